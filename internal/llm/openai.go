package llm

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashita-ai/quill/internal/model"
)

// NewOpenAI creates a backend for the OpenAI Chat Completions API.
func NewOpenAI(cfg Config, logger *slog.Logger) (*Backend, error) {
	return newBackend(openAIDialect{}, cfg, logger)
}

type openAIDialect struct{}

func (openAIDialect) name() string           { return "openai" }
func (openAIDialect) defaultModel() string   { return "gpt-4o" }
func (openAIDialect) defaultBaseURL() string { return "https://api.openai.com" }

func (openAIDialect) endpoint(baseURL, _ string, _ bool) string {
	return baseURL + "/v1/chat/completions"
}

func (openAIDialect) setHeaders(h http.Header, apiKey string) {
	h.Set("Authorization", "Bearer "+apiKey)
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model               string          `json:"model"`
	Messages            []openAIMessage `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	Temperature         float64         `json:"temperature"`
	Stream              bool            `json:"stream,omitempty"`
}

func (openAIDialect) body(modelName string, req Request, stream bool) any {
	out := openAIRequest{
		Model:               modelName,
		MaxCompletionTokens: req.MaxTokens,
		Temperature:         req.Temperature,
		Stream:              stream,
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, openAIMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func (openAIDialect) parseCompletion(raw []byte) (Completion, error) {
	var resp struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Completion{}, err
	}
	c := Completion{Tokens: resp.Usage.CompletionTokens, Model: resp.Model}
	if len(resp.Choices) > 0 {
		c.Text = resp.Choices[0].Message.Content
	}
	return c, nil
}

// parseStreamLine handles "data: {...}" chunks terminated by "data: [DONE]".
func (openAIDialect) parseStreamLine(line string) (string, bool, error) {
	data, ok := sseData(line)
	if !ok || data == "" {
		return "", false, nil
	}
	if data == "[DONE]" {
		return "", true, nil
	}
	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", false, nil
	}
	if chunk.Error != nil {
		kind := model.FailureAPI
		if strings.Contains(chunk.Error.Code, "rate_limit") {
			kind = model.FailureRateLimit
		}
		return "", true, &Error{Provider: "openai", Kind: kind, Message: chunk.Error.Message}
	}
	if len(chunk.Choices) == 0 {
		return "", false, nil
	}
	return chunk.Choices[0].Delta.Content, false, nil
}
