package generation

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ashita-ai/quill/internal/llm"
	"github.com/ashita-ai/quill/internal/model"
	"github.com/ashita-ai/quill/internal/parse"
	"github.com/ashita-ai/quill/internal/prompts"
	"github.com/ashita-ai/quill/internal/research"
)

// run is the state of one pipeline execution. It is owned by a single
// goroutine.
type run struct {
	s        *Service
	req      model.GenerateRequest
	provider llm.Provider
	id       string
	mode     string
	sink     Sink
	started  time.Time
	logger   *slog.Logger

	emitted    bool
	sinkFailed bool
	lastPct    int

	meta model.RunMetadata
}

func (r *run) streaming() bool { return r.sink != nil }

// emit forwards e to the sink. Buffered runs drop events.
func (r *run) emit(e model.StreamEvent) error {
	if r.sink == nil {
		return nil
	}
	if err := r.sink.Emit(e); err != nil {
		r.sinkFailed = true
		return fmt.Errorf("generation: emit %s: %w", e.Type, err)
	}
	r.emitted = true
	return nil
}

func (r *run) progress(phase model.Phase, pct int, msg string) error {
	if pct < r.lastPct {
		pct = r.lastPct
	}
	r.lastPct = pct
	return r.emit(model.ProgressEvent(phase, pct, msg))
}

// execute runs every phase in order. A panic anywhere in the run ends this
// run with an internal error instead of taking the process down.
func (r *run) execute(ctx context.Context) (result model.GenerationResult, runErr error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("generation: run panicked",
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			result, runErr = model.GenerationResult{}, fmt.Errorf("generation: run panicked: %v", rec)
		}
	}()

	r.meta = model.RunMetadata{
		RunID:     r.id,
		Provider:  r.provider.Name(),
		Mode:      r.mode,
		Fallbacks: []string{},
	}
	r.logger.Info("generation: run started", "topic", r.req.Topic)

	if err := r.progress(model.PhaseInit, pctInit, "Starting generation"); err != nil {
		return model.GenerationResult{}, err
	}

	var evidence, suggestions string
	err := r.phase(ctx, model.PhaseSERPAnalysis, func(ctx context.Context) error {
		if err := r.progress(model.PhaseSERPAnalysis, pctSERP, "Analyzing top search results"); err != nil {
			return err
		}
		evidence = r.researchEvidence(ctx)
		if r.req.KeywordResearchEnabled() {
			suggestions = r.keywordEvidence(ctx)
		}
		return nil
	})
	if err != nil {
		return model.GenerationResult{}, err
	}

	var plan model.KeywordPlan
	err = r.phase(ctx, model.PhaseKeywordResearch, func(ctx context.Context) error {
		if err := r.progress(model.PhaseKeywordResearch, pctKeywordStart, "Building keyword plan"); err != nil {
			return err
		}
		p := prompts.KeywordPlan(r.req, evidence, suggestions)
		c, err := r.provider.Complete(ctx, llm.NewRequest(p.System, p.User, keywordMaxTokens, keywordTemperature))
		if err != nil {
			return err
		}
		r.meta.Tokens.KeywordResearch = c.Tokens
		r.s.countTokens(ctx, model.PhaseKeywordResearch, c.Tokens, false)

		res := parse.KeywordPlan(c.Text, r.req.Topic, r.req.TargetWordCount)
		if res.Fallback {
			r.fallback(fallbackPlan, res.Err)
		}
		plan = res.Value
		return r.progress(model.PhaseKeywordResearch, pctKeywordDone,
			fmt.Sprintf("Primary keyword: %s", plan.PrimaryKeyword.Keyword))
	})
	if err != nil {
		return model.GenerationResult{}, err
	}

	var outline model.Outline
	err = r.phase(ctx, model.PhaseOutline, func(ctx context.Context) error {
		if err := r.progress(model.PhaseOutline, pctOutline, "Creating outline"); err != nil {
			return err
		}
		p := prompts.Outline(r.req, plan)
		c, err := r.provider.Complete(ctx, llm.NewRequest(p.System, p.User, outlineMaxTokens, outlineTemperature))
		if err != nil {
			return err
		}
		r.meta.Tokens.Outline = c.Tokens
		r.s.countTokens(ctx, model.PhaseOutline, c.Tokens, false)

		res := parse.Outline(c.Text, plan)
		if res.Fallback {
			r.fallback(fallbackOutline, res.Err)
		}
		outline = res.Value
		if !r.req.FAQEnabled() {
			outline.FAQ = []model.FAQEntry{}
		}
		return nil
	})
	if err != nil {
		return model.GenerationResult{}, err
	}

	var text string
	err = r.phase(ctx, model.PhaseArticle, func(ctx context.Context) error {
		if err := r.progress(model.PhaseArticle, pctArticle, "Writing article"); err != nil {
			return err
		}
		p := prompts.Article(r.req, plan, outline)
		req := llm.NewRequest(p.System, p.User, articleMaxTokens, articleTemperature)
		var err error
		if r.streaming() {
			text, err = r.streamArticle(ctx, req)
		} else {
			text, err = r.completeArticle(ctx, req)
		}
		return err
	})
	if err != nil {
		return model.GenerationResult{}, err
	}

	if err := r.progress(model.PhaseDone, pctFinalizing, "Extracting references"); err != nil {
		return model.GenerationResult{}, err
	}
	r.meta.Tokens.Sum()
	r.meta.GeneratedAt = r.s.now().UTC()
	r.meta.DurationMs = r.s.now().Sub(r.started).Milliseconds()
	res := model.GenerationResult{
		Article:       parse.Article(text),
		Outline:       outline,
		KeywordPlan:   plan,
		InternalLinks: r.req.PlacedLinks(),
		References:    parse.References(text),
		Metadata:      r.meta,
	}
	if err := r.progress(model.PhaseDone, pctDone, "Article complete"); err != nil {
		return model.GenerationResult{}, err
	}
	return res, nil
}

func (r *run) completeArticle(ctx context.Context, req llm.Request) (string, error) {
	c, err := r.provider.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	r.meta.Tokens.Article = c.Tokens
	r.s.countTokens(ctx, model.PhaseArticle, c.Tokens, false)
	return c.Text, nil
}

// streamArticle forwards each fragment as a chunk event as soon as it
// arrives. The stream is always closed, so an aborted run releases the
// backend connection.
func (r *run) streamArticle(ctx context.Context, req llm.Request) (string, error) {
	st, err := r.provider.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	defer func() { _ = st.Close() }()

	var b strings.Builder
	for st.Next() {
		frag := st.Text()
		b.WriteString(frag)
		if err := r.emit(model.ChunkEvent(frag)); err != nil {
			return "", err
		}
	}
	if err := st.Err(); err != nil {
		return "", err
	}
	text := b.String()
	tokens := estimateTokens(text)
	r.meta.Tokens.Article = tokens
	r.meta.Tokens.ArticleEstimated = true
	r.s.countTokens(ctx, model.PhaseArticle, tokens, true)
	return text, nil
}

// estimateTokens approximates output tokens as characters / 4, rounded up.
func estimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken
}

// researchEvidence fetches ranked results and formats them. Any failure
// degrades to the placeholder text.
func (r *run) researchEvidence(ctx context.Context) string {
	if r.s.research == nil {
		r.meta.ResearchDegraded = true
		return prompts.ResearchUnavailable
	}
	snap, err := r.s.research.FetchRankedResults(ctx, r.req.Topic, r.s.locale)
	if err != nil {
		r.meta.ResearchDegraded = true
		level := slog.LevelWarn
		if research.IsAuth(err) {
			level = slog.LevelError
		}
		r.logger.Log(ctx, level, "generation: research unavailable, continuing without", "error", err)
		return prompts.ResearchUnavailable
	}
	return prompts.FormatResearch(snap)
}

func (r *run) keywordEvidence(ctx context.Context) string {
	if r.s.research == nil {
		return ""
	}
	list, err := r.s.research.FetchKeywordSuggestions(ctx, r.req.Topic, r.s.locale, r.s.suggestionLimit)
	if err != nil {
		r.fallback(fallbackKeywords, err)
		return ""
	}
	return prompts.FormatSuggestions(list)
}

func (r *run) fallback(name string, err error) {
	r.meta.Fallbacks = append(r.meta.Fallbacks, name)
	r.logger.Warn("generation: using fallback", "fallback", name, "error", err)
}

// finish records the run outcome.
func (r *run) finish(ctx context.Context, err error) {
	outcome := "ok"
	if err != nil {
		outcome = model.CodeOf(err)
	}
	r.s.runsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", r.mode),
		attribute.String("outcome", outcome),
	))
	elapsed := r.s.now().Sub(r.started)
	if err != nil {
		r.logger.Error("generation: run failed", "error", err, "duration_ms", elapsed.Milliseconds())
		return
	}
	r.logger.Info("generation: run complete",
		"duration_ms", elapsed.Milliseconds(),
		"tokens", r.meta.Tokens.Total,
		"research_degraded", r.meta.ResearchDegraded,
	)
}
