package mcp

import (
	"context"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/quill/internal/model"
	"github.com/ashita-ai/quill/internal/research"
)

func (s *Server) registerTools() {
	// generate_article runs the full pipeline in buffered mode.
	s.mcpServer.AddTool(
		mcplib.NewTool("generate_article",
			mcplib.WithDescription(`Research a topic and write a complete long-form markdown article about it.

The run analyzes the top search results, builds a keyword plan, designs an
outline and writes the article with a numbered References section. It takes
one to several minutes.

WHAT YOU GET BACK: JSON with article (content, wordCount, readingTime),
outline, keywordPlan, references, internalLinks and run metadata.`),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("topic",
				mcplib.Description("What the article is about, e.g. \"best productivity tools for remote teams\""),
				mcplib.Required(),
			),
			mcplib.WithString("target_audience",
				mcplib.Description("Who the article is written for"),
			),
			mcplib.WithString("content_type",
				mcplib.Description("Style hint such as guide, listicle, comparison or how-to"),
			),
			mcplib.WithNumber("target_word_count",
				mcplib.Description("Desired length in words. Omit to let the keyword plan decide."),
				mcplib.Min(model.MinTargetWordCount),
				mcplib.Max(model.MaxTargetWordCount),
			),
			mcplib.WithBoolean("include_faq",
				mcplib.Description("Plan and write an FAQ section"),
				mcplib.DefaultBool(true),
			),
			mcplib.WithBoolean("include_keyword_research",
				mcplib.Description("Fetch keyword suggestions to enrich the keyword plan"),
				mcplib.DefaultBool(true),
			),
			mcplib.WithString("provider",
				mcplib.Description("Generation backend to use. Omit for the server default."),
			),
		),
		s.handleGenerateArticle,
	)

	// keyword_suggestions and related_keywords expose the research provider.
	for _, kind := range []string{model.KeywordKindSuggestions, model.KeywordKindRelated} {
		name, desc := "keyword_suggestions", "Long-tail keyword ideas that contain the seed phrase, with search volume, competition, CPC and difficulty."
		if kind == model.KeywordKindRelated {
			name, desc = "related_keywords", "Keywords searchers associate with the seed phrase, with search volume, competition, CPC and difficulty."
		}
		s.mcpServer.AddTool(
			mcplib.NewTool(name,
				mcplib.WithDescription(desc),
				mcplib.WithReadOnlyHintAnnotation(true),
				mcplib.WithString("seed", mcplib.Description("Seed keyword phrase"), mcplib.Required()),
				mcplib.WithNumber("limit",
					mcplib.Description("Maximum number of keywords to return"),
					mcplib.Min(1),
					mcplib.Max(100),
					mcplib.DefaultNumber(research.DefaultLimit),
				),
			),
			s.keywordHandler(kind),
		)
	}
}

func (s *Server) handleGenerateArticle(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	topic := strings.TrimSpace(request.GetString("topic", ""))
	if topic == "" {
		return errorResult("topic is required"), nil
	}
	faq := request.GetBool("include_faq", true)
	keywords := request.GetBool("include_keyword_research", true)

	res, err := s.generation.Generate(ctx, model.GenerateRequest{
		Topic:                  topic,
		TargetAudience:         request.GetString("target_audience", ""),
		ContentType:            request.GetString("content_type", ""),
		TargetWordCount:        request.GetInt("target_word_count", 0),
		IncludeFAQ:             &faq,
		IncludeKeywordResearch: &keywords,
		Provider:               request.GetString("provider", ""),
	})
	if err != nil {
		s.logger.Warn("mcp: generate_article failed", "error", err)
		return serviceErrorResult(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) keywordHandler(kind string) func(context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		seed := strings.TrimSpace(request.GetString("seed", ""))
		if seed == "" {
			return errorResult("seed is required"), nil
		}
		rp := s.generation.Research()
		if rp == nil {
			return errorResult("research provider not configured"), nil
		}
		limit := request.GetInt("limit", research.DefaultLimit)
		if limit < 1 || limit > 100 {
			return errorResult("limit must be between 1 and 100"), nil
		}

		fetch := rp.FetchKeywordSuggestions
		if kind == model.KeywordKindRelated {
			fetch = rp.FetchRelatedKeywords
		}
		list, err := fetch(ctx, seed, s.generation.Locale(), limit)
		if err != nil {
			return serviceErrorResult(err), nil
		}
		return jsonResult(model.KeywordLookup{Seed: seed, Kind: kind, Keywords: list}), nil
	}
}
