package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/quill/internal/llm"
	"github.com/ashita-ai/quill/internal/mcp"
	"github.com/ashita-ai/quill/internal/model"
	"github.com/ashita-ai/quill/internal/ratelimit"
	"github.com/ashita-ai/quill/internal/research"
	"github.com/ashita-ai/quill/internal/server"
	"github.com/ashita-ai/quill/internal/service/generation"
	"github.com/ashita-ai/quill/internal/testutil"
	"github.com/ashita-ai/quill/internal/testutil/fake"
)

const (
	planText    = `{"primaryKeyword": {"keyword": "remote work tools"}, "contentStructure": {"title": "Remote Work Tools", "targetLength": 1500}}`
	outlineText = `{"metadata": {"primaryKeyword": "remote work tools", "h1": "Remote Work Tools"}, "sections": [{"heading": "Chat"}]}`
)

var fragments = []string{
	"# Remote Work Tools\n\n",
	"Remote work tools keep teams in sync.\n\n",
	"## References\n\n1. [Gallup](https://gallup.com)\n",
}

func happyLLM(name string) *fake.LLM {
	return fake.NewLLM(name,
		fake.Reply{Text: planText, Tokens: 11},
		fake.Reply{Text: outlineText, Tokens: 22},
		fake.Reply{Text: strings.Join(fragments, ""), Fragments: fragments, Tokens: 33},
	)
}

type testEnv struct {
	srv *httptest.Server
}

type envOption func(*server.ServerConfig)

func withLimiter(l ratelimit.Limiter) envOption {
	return func(c *server.ServerConfig) { c.Limiter = l }
}

func newEnv(t *testing.T, rp research.Provider, providers []llm.Provider, opts ...envOption) *testEnv {
	t.Helper()
	logger := testutil.TestLogger()
	svc := generation.New(rp, llm.NewRegistry(providers...), logger)
	cfg := server.ServerConfig{
		Generation:          svc,
		Logger:              logger,
		MCPServer:           mcp.New(svc, logger, "test").MCPServer(),
		Version:             "test",
		MaxRequestBodyBytes: 1 << 16,
		OpenAPISpec:         []byte("openapi: 3.1.0\n"),
	}
	for _, o := range opts {
		o(&cfg)
	}
	srv := httptest.NewServer(server.New(cfg).Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv}
}

func (e *testEnv) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(e.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeData[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env.Data
}

func decodeError(t *testing.T, resp *http.Response) model.ErrorDetail {
	t.Helper()
	var env model.APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.NotEmpty(t, env.Meta.RequestID)
	return env.Error
}

func TestHealthEndpoint(t *testing.T) {
	env := newEnv(t, &fake.Research{}, []llm.Provider{happyLLM("claude"), happyLLM("openai")})
	resp := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	health := decodeData[model.HealthResponse](t, resp)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, []string{"claude", "openai"}, health.Providers)
	assert.Equal(t, "claude", health.DefaultProvider)
	assert.Equal(t, "configured", health.Research)
}

func TestHealthDegradedWithoutResearch(t *testing.T) {
	env := newEnv(t, nil, []llm.Provider{happyLLM("claude")})
	health := decodeData[model.HealthResponse](t, env.get(t, "/health"))
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "disabled", health.Research)
}

func TestHealthReportsUnconfiguredResearch(t *testing.T) {
	rp := research.NewClient(research.Config{}, testutil.DiscardLogger())
	env := newEnv(t, rp, []llm.Provider{happyLLM("claude")})
	health := decodeData[model.HealthResponse](t, env.get(t, "/health"))
	assert.Equal(t, "unconfigured", health.Research)
}

func TestGenerateArticle(t *testing.T) {
	env := newEnv(t, &fake.Research{}, []llm.Provider{happyLLM("claude")})
	resp := env.post(t, "/v1/articles", `{"topic": "remote work tools", "internalLinks": [{"url": "/pricing", "title": "Pricing"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := decodeData[model.GenerationResult](t, resp)
	assert.Equal(t, strings.Join(fragments, ""), res.Article.Content)
	assert.Equal(t, "1 min", res.Article.ReadingTime)
	assert.Equal(t, []model.Reference{{Number: 1, Source: "Gallup", URL: "https://gallup.com"}}, res.References)
	require.Len(t, res.InternalLinks, 1)
	assert.Equal(t, model.PriorityMedium, res.InternalLinks[0].Relevance)
	assert.Equal(t, "body", res.InternalLinks[0].Placement)
	assert.Equal(t, model.ModeBuffered, res.Metadata.Mode)
	assert.Equal(t, 66, res.Metadata.Tokens.Total)
}

func TestGenerateArticleProviderQueryParam(t *testing.T) {
	claude, gemini := happyLLM("claude"), happyLLM("gemini")
	env := newEnv(t, &fake.Research{}, []llm.Provider{claude, gemini})
	resp := env.post(t, "/v1/articles?provider=gemini", `{"topic": "remote work tools", "provider": "claude"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gemini", decodeData[model.GenerationResult](t, resp).Metadata.Provider)
	assert.Empty(t, claude.Requests())
}

func TestGenerateArticleRejections(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"missing topic", "/v1/articles", `{}`, http.StatusBadRequest, model.ErrCodeValidation},
		{"word count too low", "/v1/articles", `{"topic": "x", "targetWordCount": 100}`, http.StatusBadRequest, model.ErrCodeValidation},
		{"unknown provider", "/v1/articles?provider=nope", `{"topic": "x"}`, http.StatusBadRequest, model.ErrCodeValidation},
		{"malformed json", "/v1/articles", `{"topic":`, http.StatusBadRequest, model.ErrCodeValidation},
		{"unknown field", "/v1/articles", `{"topic": "x", "tone": "witty"}`, http.StatusBadRequest, model.ErrCodeValidation},
		{"too large", "/v1/articles", `{"topic": "` + strings.Repeat("x", 1<<17) + `"}`, http.StatusRequestEntityTooLarge, model.ErrCodeValidation},
		{"stream missing topic", "/v1/articles/stream", `{"topic": " "}`, http.StatusBadRequest, model.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := happyLLM("claude")
			env := newEnv(t, &fake.Research{}, []llm.Provider{gen})
			resp := env.post(t, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			assert.Equal(t, tt.code, decodeError(t, resp).Code)
			assert.Empty(t, gen.Requests())
		})
	}
}

func TestGenerateArticleUpstreamFailure(t *testing.T) {
	gen := fake.NewLLM("claude", fake.Reply{Err: &llm.Error{Provider: "claude", Kind: model.FailureRateLimit, StatusCode: 429, Message: "too many requests"}})
	env := newEnv(t, &fake.Research{}, []llm.Provider{gen})
	resp := env.post(t, "/v1/articles", `{"topic": "remote work tools"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	detail := decodeError(t, resp)
	assert.Equal(t, model.ErrCodeRateLimit, detail.Code)
	assert.Equal(t, "claude: too many requests", detail.Message)
}

func TestStreamArticle(t *testing.T) {
	env := newEnv(t, &fake.Research{}, []llm.Provider{happyLLM("claude")})
	resp := env.post(t, "/v1/articles/stream", `{"topic": "remote work tools"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frames, err := testutil.ReadSSE(resp.Body)
	require.NoError(t, err)
	require.NotEmpty(t, frames)

	var (
		chunks   strings.Builder
		percents []int
	)
	for _, f := range frames[:len(frames)-1] {
		switch f.Event {
		case "progress":
			var p model.ProgressData
			require.NoError(t, json.Unmarshal([]byte(f.Data), &p))
			percents = append(percents, p.Percent)
		case "chunk":
			var c model.ChunkData
			require.NoError(t, json.Unmarshal([]byte(f.Data), &c))
			chunks.WriteString(c.Text)
		default:
			t.Fatalf("unexpected event %q before the end", f.Event)
		}
	}
	assert.Equal(t, []int{5, 20, 35, 40, 55, 60, 95, 100}, percents)

	last := frames[len(frames)-1]
	require.Equal(t, "complete", last.Event)
	var res model.GenerationResult
	require.NoError(t, json.Unmarshal([]byte(last.Data), &res))
	assert.Equal(t, chunks.String(), res.Article.Content)
	assert.Equal(t, model.ModeStreaming, res.Metadata.Mode)
	assert.True(t, res.Metadata.Tokens.ArticleEstimated)
}

func TestStreamArticleFailureAfterStart(t *testing.T) {
	gen := fake.NewLLM("claude",
		fake.Reply{Text: planText},
		fake.Reply{Text: outlineText},
		fake.Reply{Fragments: fragments[:1], StreamErr: &llm.Error{Provider: "claude", Kind: model.FailureNetwork, Message: "stream interrupted"}},
	)
	env := newEnv(t, &fake.Research{}, []llm.Provider{gen})
	resp := env.post(t, "/v1/articles/stream", `{"topic": "remote work tools"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	frames, err := testutil.ReadSSE(resp.Body)
	require.NoError(t, err)
	last := frames[len(frames)-1]
	require.Equal(t, "error", last.Event)
	var e model.ErrorData
	require.NoError(t, json.Unmarshal([]byte(last.Data), &e))
	assert.Equal(t, model.ErrCodeNetwork, e.Code)
	for _, f := range frames {
		assert.NotEqual(t, "complete", f.Event)
	}
}

func TestKeywordsEndpoint(t *testing.T) {
	rp := &fake.Research{
		Suggestions: []model.KeywordSuggestion{{Keyword: "remote work apps", SearchVolume: 880}},
		Related:     []model.KeywordSuggestion{{Keyword: "hybrid work"}},
	}
	env := newEnv(t, rp, []llm.Provider{happyLLM("claude")})

	resp := env.get(t, "/v1/keywords?seed=remote+work")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lookup := decodeData[model.KeywordLookup](t, resp)
	assert.Equal(t, "remote work", lookup.Seed)
	assert.Equal(t, "suggestions", lookup.Kind)
	assert.Equal(t, int64(880), lookup.Keywords[0].SearchVolume)

	lookup = decodeData[model.KeywordLookup](t, env.get(t, "/v1/keywords?seed=remote&kind=related&limit=5"))
	assert.Equal(t, "hybrid work", lookup.Keywords[0].Keyword)

	for _, q := range []string{"", "?seed=x&kind=nope", "?seed=x&limit=0", "?seed=x&limit=abc"} {
		resp := env.get(t, "/v1/keywords"+q)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestKeywordsEndpointUpstreamFailure(t *testing.T) {
	rp := &fake.Research{SuggestionsErr: &research.Error{Kind: model.FailureAuth, Op: "suggestions", StatusCode: 401, Message: "unauthorized"}}
	env := newEnv(t, rp, []llm.Provider{happyLLM("claude")})
	resp := env.get(t, "/v1/keywords?seed=x")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, model.ErrCodeAuth, decodeError(t, resp).Code)

	env = newEnv(t, nil, []llm.Provider{happyLLM("claude")})
	assert.Equal(t, http.StatusServiceUnavailable, env.get(t, "/v1/keywords?seed=x").StatusCode)
}

func TestProvidersEndpoint(t *testing.T) {
	env := newEnv(t, nil, []llm.Provider{happyLLM("openai"), happyLLM("gemini")})
	list := decodeData[model.ProviderList](t, env.get(t, "/v1/providers"))
	assert.Equal(t, []string{"openai", "gemini"}, list.Providers)
	assert.Equal(t, "openai", list.Default)
}

func TestOpenAPISpec(t *testing.T) {
	env := newEnv(t, nil, []llm.Provider{happyLLM("claude")})
	resp := env.get(t, "/openapi.yaml")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(body, []byte("openapi:")))
}

func TestGenerateRateLimited(t *testing.T) {
	lim := ratelimit.NewMemoryLimiter(0.25, 1)
	t.Cleanup(func() { _ = lim.Close() })
	env := newEnv(t, &fake.Research{}, []llm.Provider{happyLLM("claude")}, withLimiter(lim))

	assert.Equal(t, http.StatusOK, env.post(t, "/v1/articles", `{"topic": "remote work tools"}`).StatusCode)

	resp := env.post(t, "/v1/articles", `{"topic": "remote work tools"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "4", resp.Header.Get("Retry-After"))

	// Health is never limited.
	assert.Equal(t, http.StatusOK, env.get(t, "/health").StatusCode)
}

func newMCPClient(t *testing.T, env *testEnv) *mcpclient.Client {
	t.Helper()
	c, err := mcpclient.NewStreamableHttpClient(env.srv.URL + "/mcp")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.Initialize(context.Background(), mcplib.InitializeRequest{
		Params: mcplib.InitializeParams{
			ClientInfo: mcplib.Implementation{Name: "test-client", Version: "1.0"},
		},
	})
	require.NoError(t, err)
	return c
}

func TestMCPListTools(t *testing.T) {
	env := newEnv(t, &fake.Research{}, []llm.Provider{happyLLM("claude")})
	c := newMCPClient(t, env)

	toolsResult, err := c.ListTools(context.Background(), mcplib.ListToolsRequest{})
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, tool := range toolsResult.Tools {
		names[tool.Name] = true
	}
	assert.Len(t, names, 3)
	assert.True(t, names["generate_article"])
	assert.True(t, names["keyword_suggestions"])
	assert.True(t, names["related_keywords"])

	promptsResult, err := c.ListPrompts(context.Background(), mcplib.ListPromptsRequest{})
	require.NoError(t, err)
	assert.Len(t, promptsResult.Prompts, 2)

	resourcesResult, err := c.ListResources(context.Background(), mcplib.ListResourcesRequest{})
	require.NoError(t, err)
	assert.Len(t, resourcesResult.Resources, 2)
}

func TestMCPGenerateArticle(t *testing.T) {
	env := newEnv(t, &fake.Research{}, []llm.Provider{happyLLM("claude")})
	c := newMCPClient(t, env)

	result, err := c.CallTool(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      "generate_article",
			Arguments: map[string]any{"topic": "remote work tools"},
		},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcplib.TextContent)
	require.True(t, ok)

	var res model.GenerationResult
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &res))
	assert.Equal(t, "Remote Work Tools", res.Outline.Metadata.H1)
	assert.Len(t, res.References, 1)
}
