package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/quill/internal/model"
)

const (
	uriProviders = "quill://providers"
	uriLimits    = "quill://limits"
)

// requestLimits describes what a generation request may ask for.
type requestLimits struct {
	MinTargetWordCount     int    `json:"minTargetWordCount"`
	MaxTargetWordCount     int    `json:"maxTargetWordCount"`
	DefaultTargetWordCount int    `json:"defaultTargetWordCount"`
	LocationCode           int    `json:"locationCode"`
	LanguageCode           string `json:"languageCode"`
	ResearchEnabled        bool   `json:"researchEnabled"`
}

func (s *Server) registerResources() {
	// quill://providers: generation backends and the default.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			uriProviders,
			"Generation Providers",
			mcplib.WithResourceDescription("Configured generation backends and which one is used by default"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleProvidersResource,
	)

	// quill://limits: accepted request bounds and research market.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			uriLimits,
			"Request Limits",
			mcplib.WithResourceDescription("Accepted word-count bounds, defaults and the research market"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleLimitsResource,
	)
}

func jsonResource(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal %s: %w", uri, err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleProvidersResource(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	reg := s.generation.Providers()
	return jsonResource(uriProviders, model.ProviderList{Providers: reg.Names(), Default: reg.Default()})
}

func (s *Server) handleLimitsResource(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	loc := s.generation.Locale()
	return jsonResource(uriLimits, requestLimits{
		MinTargetWordCount:     model.MinTargetWordCount,
		MaxTargetWordCount:     model.MaxTargetWordCount,
		DefaultTargetWordCount: model.DefaultTargetWordCount,
		LocationCode:           loc.LocationCode,
		LanguageCode:           loc.LanguageCode,
		ResearchEnabled:        s.generation.Research() != nil,
	})
}
