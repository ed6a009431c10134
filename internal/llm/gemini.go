package llm

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// NewGemini creates a backend for the Gemini generateContent API. It is
// driven as a single-prompt backend: messages are flattened with
// FlattenPrompt into one user turn.
func NewGemini(cfg Config, logger *slog.Logger) (*Backend, error) {
	return newBackend(geminiDialect{}, cfg, logger)
}

type geminiDialect struct{}

func (geminiDialect) name() string           { return "gemini" }
func (geminiDialect) defaultModel() string   { return "gemini-2.5-flash" }
func (geminiDialect) defaultBaseURL() string { return "https://generativelanguage.googleapis.com" }

func (geminiDialect) endpoint(baseURL, modelName string, stream bool) string {
	if stream {
		return baseURL + "/v1beta/models/" + modelName + ":streamGenerateContent?alt=sse"
	}
	return baseURL + "/v1beta/models/" + modelName + ":generateContent"
}

// setHeaders uses the header form of the key so it never lands in URLs or
// access logs.
func (geminiDialect) setHeaders(h http.Header, apiKey string) {
	h.Set("x-goog-api-key", apiKey)
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
		Temperature     float64 `json:"temperature"`
	} `json:"generationConfig"`
}

func (geminiDialect) body(_ string, req Request, _ bool) any {
	var out geminiRequest
	out.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: FlattenPrompt(req.Messages)}}}}
	out.GenerationConfig.MaxOutputTokens = req.MaxTokens
	out.GenerationConfig.Temperature = req.Temperature
	return out
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

func (r geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func (geminiDialect) parseCompletion(raw []byte) (Completion, error) {
	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Completion{}, err
	}
	return Completion{
		Text:   resp.text(),
		Tokens: resp.UsageMetadata.CandidatesTokenCount,
		Model:  resp.ModelVersion,
	}, nil
}

// parseStreamLine handles alt=sse chunks. Each chunk is a full response
// object; the one carrying finishReason may also carry the final text.
func (geminiDialect) parseStreamLine(line string) (string, bool, error) {
	data, ok := sseData(line)
	if !ok || data == "" {
		return "", false, nil
	}
	var resp geminiResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		return "", false, nil
	}
	done := len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != ""
	return resp.text(), done, nil
}
