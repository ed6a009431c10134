package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashita-ai/quill/internal/model"
)

// Config holds settings for one backend.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// Timeout bounds single-shot calls. Streams are bounded only by ctx.
	Timeout    time.Duration
	HTTPClient *http.Client // optional, used for both call shapes
}

// dialect is the wire format of one backend.
type dialect interface {
	name() string
	defaultModel() string
	defaultBaseURL() string
	endpoint(baseURL, model string, stream bool) string
	setHeaders(h http.Header, apiKey string)
	body(model string, req Request, stream bool) any
	parseCompletion(raw []byte) (Completion, error)
	parseStreamLine(line string) (text string, done bool, err error)
}

// Backend is a Provider speaking one dialect over HTTP.
type Backend struct {
	d          dialect
	apiKey     string
	model      string
	baseURL    string
	client     *http.Client
	streamHTTP *http.Client
	logger     *slog.Logger
}

var _ Provider = (*Backend)(nil)

func newBackend(d dialect, cfg Config, logger *slog.Logger) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for %s", ErrMissingCredential, d.name())
	}
	b := &Backend{
		d:       d,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}
	if b.model == "" {
		b.model = d.defaultModel()
	}
	if b.baseURL == "" {
		b.baseURL = d.defaultBaseURL()
	}
	if cfg.HTTPClient != nil {
		b.client = cfg.HTTPClient
		b.streamHTTP = cfg.HTTPClient
	} else {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		b.client = &http.Client{Timeout: timeout}
		b.streamHTTP = &http.Client{}
	}
	return b, nil
}

// Name implements Provider.
func (b *Backend) Name() string { return b.d.name() }

// Model returns the model identifier sent to the backend.
func (b *Backend) Model() string { return b.model }

// Complete implements Provider.
func (b *Backend) Complete(ctx context.Context, req Request) (Completion, error) {
	resp, err := b.do(ctx, b.client, req, false)
	if err != nil {
		return Completion{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, b.fail(model.FailureNetwork, 0, "read response", err)
	}
	c, err := b.d.parseCompletion(raw)
	if err != nil {
		return Completion{}, b.fail(model.FailureAPI, 0, "malformed response", err)
	}
	if c.Model == "" {
		c.Model = b.model
	}
	b.logger.Debug("llm: completion", "provider", b.Name(), "model", c.Model,
		"tokens", c.Tokens, "content_length", len(c.Text))
	return c, nil
}

// Stream implements Provider.
func (b *Backend) Stream(ctx context.Context, req Request) (*Stream, error) {
	resp, err := b.do(ctx, b.streamHTTP, req, true)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("llm: stream opened", "provider", b.Name(), "model", b.model)
	return NewStream(b.Name(), resp.Body, b.d.parseStreamLine), nil
}

// do sends the request and returns a 200 response whose body the caller
// owns. Any other status is drained, closed and classified.
func (b *Backend) do(ctx context.Context, client *http.Client, req Request, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(b.d.body(b.model, req, stream))
	if err != nil {
		return nil, fmt.Errorf("llm: marshal %s request: %w", b.Name(), err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.d.endpoint(b.baseURL, b.model, stream), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("llm: create %s request: %w", b.Name(), err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	b.d.setHeaders(httpReq.Header, b.apiKey)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, b.fail(model.FailureNetwork, 0, "request failed", err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	b.logger.Warn("llm: backend error", "provider", b.Name(), "status", resp.StatusCode)
	return nil, b.fail(model.KindForHTTPStatus(resp.StatusCode), resp.StatusCode, errorMessage(raw, resp.StatusCode), nil)
}

func (b *Backend) fail(kind model.FailureKind, status int, msg string, err error) *Error {
	return &Error{Provider: b.Name(), Kind: kind, StatusCode: status, Message: msg, Err: err}
}

// errorMessage extracts the provider's error.message, which all supported
// backends use, falling back to the status text.
func errorMessage(raw []byte, status int) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return "unexpected status"
}

// sseData returns the payload of an SSE "data:" line.
func sseData(line string) (string, bool) {
	if !strings.HasPrefix(line, "data:") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, "data:")), true
}
