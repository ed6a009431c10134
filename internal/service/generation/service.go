// Package generation runs the topic-to-article pipeline.
//
// A run moves strictly forward through init, SERP analysis, keyword
// research, outline and article phases. Research failures degrade to a
// placeholder; generation failures end the run. The HTTP API, the MCP
// server and the CLI all delegate here, so every surface gets the same
// sequencing, fallbacks and accounting.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/quill/internal/llm"
	"github.com/ashita-ai/quill/internal/model"
	"github.com/ashita-ai/quill/internal/research"
	"github.com/ashita-ai/quill/internal/telemetry"
)

// Per-phase generation parameters.
const (
	keywordTemperature = 0.3
	keywordMaxTokens   = 4000
	outlineTemperature = 0.3
	outlineMaxTokens   = 6000
	articleTemperature = 0.7
	articleMaxTokens   = 16000
)

// Progress checkpoints, in emission order.
const (
	pctInit         = 5
	pctSERP         = 20
	pctKeywordStart = 35
	pctKeywordDone  = 40
	pctOutline      = 55
	pctArticle      = 60
	pctFinalizing   = 95
	pctDone         = 100
)

// Names recorded in RunMetadata.Fallbacks.
const (
	fallbackPlan     = "keyword_plan"
	fallbackOutline  = "outline"
	fallbackKeywords = "keyword_suggestions"
)

// charsPerToken is the streaming token-estimate divisor.
const charsPerToken = 4

// Sink receives the events of a streaming run in order. An Emit error
// aborts the run.
type Sink interface {
	Emit(model.StreamEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(model.StreamEvent) error

// Emit calls f(e).
func (f SinkFunc) Emit(e model.StreamEvent) error { return f(e) }

// StreamError is returned by Stream when a run fails. Emitted reports
// whether any event reached the sink before the failure; when it did, a
// trailing error event has already been sent.
type StreamError struct {
	Err     error
	emitted bool
}

func (e *StreamError) Error() string { return e.Err.Error() }
func (e *StreamError) Unwrap() error { return e.Err }

// Emitted reports whether output had begun when the run failed.
func (e *StreamError) Emitted() bool { return e.emitted }

// Option configures a Service.
type Option func(*Service)

// WithLocale sets the market used for research lookups.
func WithLocale(loc research.Locale) Option {
	return func(s *Service) { s.locale = loc }
}

// WithSuggestionLimit caps the keyword suggestions fed to the keyword
// research prompt.
func WithSuggestionLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.suggestionLimit = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service runs generation pipelines. It holds no per-run state and is safe
// for concurrent use.
type Service struct {
	research        research.Provider
	providers       *llm.Registry
	locale          research.Locale
	suggestionLimit int
	logger          *slog.Logger
	now             func() time.Time

	tracer        trace.Tracer
	phaseDuration metric.Float64Histogram
	tokensUsed    metric.Int64Counter
	runsTotal     metric.Int64Counter
}

// New creates a Service. rp may be nil, in which case every run proceeds
// without research data.
func New(rp research.Provider, providers *llm.Registry, logger *slog.Logger, opts ...Option) *Service {
	meter := telemetry.Meter("quill/generation")
	phaseDur, _ := meter.Float64Histogram("quill.phase.duration",
		metric.WithDescription("Time spent in each pipeline phase (ms)"),
		metric.WithUnit("ms"),
	)
	tokens, _ := meter.Int64Counter("quill.tokens",
		metric.WithDescription("Generation tokens used per phase"),
	)
	runs, _ := meter.Int64Counter("quill.runs",
		metric.WithDescription("Completed and failed generation runs"),
	)
	s := &Service{
		research:        rp,
		providers:       providers,
		locale:          research.Locale{LocationCode: research.DefaultLocationCode, LanguageCode: research.DefaultLanguageCode},
		suggestionLimit: research.DefaultLimit,
		logger:          logger,
		now:             time.Now,
		tracer:          telemetry.Tracer("quill/generation"),
		phaseDuration:   phaseDur,
		tokensUsed:      tokens,
		runsTotal:       runs,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Providers returns the generation backends the service can use.
func (s *Service) Providers() *llm.Registry { return s.providers }

// Research returns the research provider, or nil.
func (s *Service) Research() research.Provider { return s.research }

// Locale returns the research market.
func (s *Service) Locale() research.Locale { return s.locale }

// Generate runs the pipeline to completion and returns the result.
func (s *Service) Generate(ctx context.Context, req model.GenerateRequest) (model.GenerationResult, error) {
	r, err := s.begin(req, model.ModeBuffered, nil)
	if err != nil {
		return model.GenerationResult{}, err
	}
	res, err := r.execute(ctx)
	r.finish(ctx, err)
	if err != nil {
		return model.GenerationResult{}, err
	}
	return res, nil
}

// Stream runs the pipeline and reports it to sink as progress, chunk and
// a single terminal complete or error event. Validation failures and an
// unknown provider are returned before anything is emitted; every failure
// after the first event is also emitted as an error event. In both cases
// the returned error is a *StreamError.
func (s *Service) Stream(ctx context.Context, req model.GenerateRequest, sink Sink) error {
	r, err := s.begin(req, model.ModeStreaming, sink)
	if err != nil {
		return &StreamError{Err: err}
	}
	res, err := r.execute(ctx)
	if err == nil {
		err = r.emit(model.CompleteEvent(res))
	}
	r.finish(ctx, err)
	if err == nil {
		return nil
	}
	if r.emitted && !r.sinkFailed {
		if emitErr := sink.Emit(model.ErrorEvent(err)); emitErr != nil {
			s.logger.Debug("generation: error event not delivered", "run_id", r.id, "error", emitErr)
		}
	}
	return &StreamError{Err: err, emitted: r.emitted}
}

func (s *Service) begin(req model.GenerateRequest, mode string, sink Sink) (*run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.providers == nil {
		return nil, errors.New("generation: no generation providers configured")
	}
	p, err := s.providers.Resolve(req.Provider)
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()
	return &run{
		s:        s,
		req:      req,
		provider: p,
		id:       id,
		mode:     mode,
		sink:     sink,
		started:  s.now(),
		logger:   s.logger.With("run_id", id, "provider", p.Name(), "mode", mode),
	}, nil
}

// phase wraps one pipeline step in a span and records its duration.
func (r *run) phase(ctx context.Context, name model.Phase, fn func(context.Context) error) error {
	ctx, span := r.s.tracer.Start(ctx, "quill.phase."+string(name), trace.WithAttributes(
		attribute.String("quill.run_id", r.id),
		attribute.String("quill.provider", r.provider.Name()),
		attribute.String("quill.mode", r.mode),
	))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	r.s.phaseDuration.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(
			attribute.String("phase", string(name)),
			attribute.String("provider", r.provider.Name()),
		))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("generation: %s: %w", name, err)
	}
	return nil
}

func (s *Service) countTokens(ctx context.Context, phase model.Phase, n int, estimated bool) {
	if n <= 0 {
		return
	}
	s.tokensUsed.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("phase", string(phase)),
		attribute.Bool("estimated", estimated),
	))
}
