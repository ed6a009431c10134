package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/quill/internal/llm"
	"github.com/ashita-ai/quill/internal/model"
	"github.com/ashita-ai/quill/internal/parse"
	"github.com/ashita-ai/quill/internal/prompts"
)

func (s *Server) registerPrompts() {
	// keyword-plan lets a client run the keyword research phase on its own
	// model, without live search data.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("keyword-plan",
			mcplib.WithPromptDescription("Instructions for producing a JSON keyword plan for an article topic"),
			mcplib.WithArgument("topic",
				mcplib.ArgumentDescription("What the article is about"),
				mcplib.RequiredArgument(),
			),
			mcplib.WithArgument("target_audience",
				mcplib.ArgumentDescription("Who the article is written for"),
			),
			mcplib.WithArgument("target_word_count",
				mcplib.ArgumentDescription("Desired length in words"),
			),
		),
		s.handleKeywordPlanPrompt,
	)

	// article-outline produces the outline instructions for a known primary
	// keyword.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("article-outline",
			mcplib.WithPromptDescription("Instructions for producing a JSON article outline around a primary keyword"),
			mcplib.WithArgument("topic",
				mcplib.ArgumentDescription("What the article is about"),
				mcplib.RequiredArgument(),
			),
			mcplib.WithArgument("primary_keyword",
				mcplib.ArgumentDescription("Keyword the article must be built around. Defaults to the topic."),
			),
			mcplib.WithArgument("target_word_count",
				mcplib.ArgumentDescription("Desired length in words"),
			),
		),
		s.handleOutlinePrompt,
	)
}

// promptRequest builds and validates a request from prompt arguments.
func promptRequest(args map[string]string) (model.GenerateRequest, error) {
	req := model.GenerateRequest{
		Topic:          args["topic"],
		TargetAudience: args["target_audience"],
	}
	if v := strings.TrimSpace(args["target_word_count"]); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("target_word_count must be an integer, got %q", v)
		}
		req.TargetWordCount = n
	}
	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

func promptResult(description string, p prompts.Prompt) *mcplib.GetPromptResult {
	text := llm.FlattenPrompt(llm.NewRequest(p.System, p.User, 0, 0).Messages)
	return &mcplib.GetPromptResult{
		Description: description,
		Messages: []mcplib.PromptMessage{
			{
				Role:    mcplib.RoleUser,
				Content: mcplib.TextContent{Type: "text", Text: text},
			},
		},
	}
}

func (s *Server) handleKeywordPlanPrompt(_ context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	req, err := promptRequest(request.Params.Arguments)
	if err != nil {
		return nil, err
	}
	p := prompts.KeywordPlan(req, prompts.ResearchUnavailable, "")
	return promptResult(fmt.Sprintf("Keyword plan for %q", req.Topic), p), nil
}

func (s *Server) handleOutlinePrompt(_ context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	req, err := promptRequest(request.Params.Arguments)
	if err != nil {
		return nil, err
	}
	plan := parse.FallbackKeywordPlan(req.Topic, req.TargetWordCount)
	if kw := strings.TrimSpace(request.Params.Arguments["primary_keyword"]); kw != "" {
		plan.PrimaryKeyword.Keyword = kw
	}
	p := prompts.Outline(req, plan)
	return promptResult(fmt.Sprintf("Outline for %q", req.Topic), p), nil
}
