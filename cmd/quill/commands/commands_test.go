package commands

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/quill/internal/config"
	"github.com/ashita-ai/quill/internal/llm"
	"github.com/ashita-ai/quill/internal/model"
	"github.com/ashita-ai/quill/internal/testutil"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestGenerateOptionsRequest(t *testing.T) {
	req, err := generateOptions{
		topic:             "remote work tools",
		audience:          "team leads",
		words:             1800,
		noFAQ:             true,
		noKeywordResearch: true,
		links:             []string{"/pricing|Pricing|HIGH", "/blog/async | Async work"},
		provider:          "gemini",
	}.request()
	require.NoError(t, err)

	assert.Equal(t, "remote work tools", req.Topic)
	assert.Equal(t, 1800, req.TargetWordCount)
	assert.False(t, req.FAQEnabled())
	assert.False(t, req.KeywordResearchEnabled())
	assert.Equal(t, "gemini", req.Provider)
	assert.Equal(t, []model.InternalLink{
		{URL: "/pricing", Title: "Pricing", Relevance: model.PriorityHigh},
		{URL: "/blog/async", Title: "Async work"},
	}, req.InternalLinks)
}

func TestGenerateOptionsDefaults(t *testing.T) {
	req, err := generateOptions{topic: "x"}.request()
	require.NoError(t, err)
	assert.True(t, req.FAQEnabled())
	assert.True(t, req.KeywordResearchEnabled())
	assert.Nil(t, req.InternalLinks)
}

func TestParseLinkRejectsMalformed(t *testing.T) {
	_, err := parseLink("/pricing")
	require.Error(t, err)
	assert.Equal(t, model.ErrCodeValidation, model.CodeOf(err))

	_, err = parseLink("a|b|c|d")
	require.Error(t, err)
}

func TestTerminalSink(t *testing.T) {
	var out, errOut bytes.Buffer
	sink := &terminalSink{out: &out, errOut: &errOut, echoChunks: true}

	events := []model.StreamEvent{
		model.ProgressEvent(model.PhaseArticle, 60, "Writing article"),
		model.ChunkEvent("# Title\n\n"),
		model.ChunkEvent("Body."),
		model.ProgressEvent(model.PhaseArticle, 95, "Extracting references"),
		model.CompleteEvent(model.GenerationResult{Article: model.Article{Content: "# Title\n\nBody."}}),
	}
	for _, e := range events {
		require.NoError(t, sink.Emit(e))
	}

	assert.Equal(t, "# Title\n\nBody.\n", out.String())
	assert.Contains(t, errOut.String(), "[ 60%] Writing article")
	assert.Contains(t, errOut.String(), "[ 95%] Extracting references")
	assert.Equal(t, "# Title\n\nBody.", sink.result.Article.Content)
}

func TestTerminalSinkJSONSuppressesChunks(t *testing.T) {
	var out, errOut bytes.Buffer
	sink := &terminalSink{out: &out, errOut: &errOut}
	require.NoError(t, sink.Emit(model.ChunkEvent("hidden")))
	assert.Empty(t, out.String())
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, model.GenerationResult{
		Article:    model.Article{WordCount: 1200, ReadingTime: "6 min"},
		References: []model.Reference{{Number: 1}},
		Metadata: model.RunMetadata{
			Provider:         "claude",
			RunID:            "run-1",
			DurationMs:       1500,
			Tokens:           model.TokenUsage{Total: 900, ArticleEstimated: true},
			ResearchDegraded: true,
			Fallbacks:        []string{"outline"},
		},
	})
	got := buf.String()
	assert.Contains(t, got, "1200 words, 6 min read, 1 references")
	assert.Contains(t, got, "~900 tokens")
	assert.Contains(t, got, "research was unavailable")
	assert.Contains(t, got, "fallbacks used: outline")
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, &llm.Error{Provider: "openai", Kind: model.FailureAuth, StatusCode: 401, Message: "bad key"})
	assert.Equal(t, "✗ [AUTH_ERROR] openai: bad key\n", buf.String())

	buf.Reset()
	printError(&buf, errors.New("load config: boom"))
	assert.Equal(t, "✗ load config: boom\n", buf.String())
}

func TestBuildRegistry(t *testing.T) {
	reg, err := buildRegistry(config.ProvidersConfig{
		Default: "gemini",
		Claude:  config.BackendConfig{APIKey: "sk-ant"},
		Gemini:  config.BackendConfig{APIKey: "g-key", Model: "gemini-2.5-flash"},
	}, testutil.DiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"claude", "gemini"}, reg.Names())
	assert.Equal(t, "gemini", reg.Default())

	_, err = buildRegistry(config.ProvidersConfig{
		Default: "openai",
		Claude:  config.BackendConfig{APIKey: "sk-ant"},
	}, testutil.DiscardLogger())
	require.Error(t, err)
}

func TestWriteKeywordTable(t *testing.T) {
	var buf bytes.Buffer
	writeKeywordTable(&buf, []model.KeywordSuggestion{
		{Keyword: "remote work apps", SearchVolume: 880, Competition: model.CompetitionLow, CPC: 1.5, Difficulty: 22},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "KEYWORD"))
	assert.Contains(t, lines[1], "remote work apps")
	assert.Contains(t, lines[1], "1.50")
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "quill 1.2.3 (commit: abc123, built: 2026-01-01)\n", buf.String())
}
