package llm

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashita-ai/quill/internal/model"
)

// NewClaude creates a backend for the Anthropic Messages API.
func NewClaude(cfg Config, logger *slog.Logger) (*Backend, error) {
	return newBackend(claudeDialect{}, cfg, logger)
}

type claudeDialect struct{}

func (claudeDialect) name() string           { return "claude" }
func (claudeDialect) defaultModel() string   { return "claude-sonnet-4-5-20250929" }
func (claudeDialect) defaultBaseURL() string { return "https://api.anthropic.com" }

func (claudeDialect) endpoint(baseURL, _ string, _ bool) string {
	return baseURL + "/v1/messages"
}

func (claudeDialect) setHeaders(h http.Header, apiKey string) {
	h.Set("x-api-key", apiKey)
	h.Set("anthropic-version", "2023-06-01")
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
	Stream      bool            `json:"stream,omitempty"`
}

func (claudeDialect) body(modelName string, req Request, stream bool) any {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096 // required by the API
	}
	out := claudeRequest{
		Model:       modelName,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		System:      SystemText(req.Messages),
		Stream:      stream,
	}
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			continue
		}
		out.Messages = append(out.Messages, claudeMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func (claudeDialect) parseCompletion(raw []byte) (Completion, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Model string `json:"model"`
		Usage struct {
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Completion{}, err
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return Completion{Text: sb.String(), Tokens: resp.Usage.OutputTokens, Model: resp.Model}, nil
}

// parseStreamLine handles the Messages streaming format: "event:" lines are
// ignored and each "data:" line carries a typed JSON event.
func (claudeDialect) parseStreamLine(line string) (string, bool, error) {
	data, ok := sseData(line)
	if !ok || data == "" {
		return "", false, nil
	}
	var event struct {
		Type  string `json:"type"`
		Delta struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"delta"`
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return "", false, nil
	}
	switch event.Type {
	case "content_block_delta":
		if event.Delta.Type == "" || event.Delta.Type == "text_delta" {
			return event.Delta.Text, false, nil
		}
	case "message_stop":
		return "", true, nil
	case "error":
		kind := model.FailureAPI
		switch event.Error.Type {
		case "overloaded_error":
			kind = model.FailureNetwork
		case "rate_limit_error":
			kind = model.FailureRateLimit
		case "authentication_error", "permission_error":
			kind = model.FailureAuth
		}
		return "", true, &Error{Provider: "claude", Kind: kind, Message: event.Error.Message}
	}
	return "", false, nil
}
