package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ashita-ai/quill/internal/model"
	"github.com/ashita-ai/quill/internal/research"
	"github.com/ashita-ai/quill/internal/service/generation"
)

// maxKeywordLimit bounds the limit query parameter of keyword lookups.
const maxKeywordLimit = 100

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	generation          *generation.Service
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
	openapiSpec         []byte
}

// HandlersDeps holds all dependencies for constructing Handlers.
// OpenAPISpec is optional.
type HandlersDeps struct {
	Generation          *generation.Service
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
	OpenAPISpec         []byte
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		generation:          d.Generation,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
		openapiSpec:         d.OpenAPISpec,
	}
}

// decodeGenerateRequest reads the request body. A provider query parameter
// overrides the body field.
func (h *Handlers) decodeGenerateRequest(w http.ResponseWriter, r *http.Request) (model.GenerateRequest, bool) {
	var req model.GenerateRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return req, false
	}
	if p := r.URL.Query().Get("provider"); p != "" {
		req.Provider = p
	}
	return req, true
}

// HandleGenerate handles POST /v1/articles.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeGenerateRequest(w, r)
	if !ok {
		return
	}
	res, err := h.generation.Generate(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// HandleGenerateStream handles POST /v1/articles/stream (SSE).
//
// Failures detected before the first event are returned as a JSON error
// with a matching status. Once the stream has started, failures arrive as
// a final "error" event instead.
func (h *Handlers) HandleGenerateStream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeGenerateRequest(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "streaming not supported")
		return
	}

	sink := newSSESink(w, flusher)
	err := h.generation.Stream(r.Context(), req, sink)
	if err == nil {
		return
	}
	var se *generation.StreamError
	if (errors.As(err, &se) && se.Emitted()) || sink.started {
		return
	}
	writeServiceError(w, r, err)
}

// HandleKeywords handles GET /v1/keywords?seed=...&kind=suggestions|related&limit=N.
func (h *Handlers) HandleKeywords(w http.ResponseWriter, r *http.Request) {
	rp := h.generation.Research()
	if rp == nil {
		writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeInternalError, "research provider not configured")
		return
	}
	q := r.URL.Query()
	seed := strings.TrimSpace(q.Get("seed"))
	if seed == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "seed is required")
		return
	}
	kind := q.Get("kind")
	if kind == "" {
		kind = model.KeywordKindSuggestions
	}
	limit := research.DefaultLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxKeywordLimit {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}

	var (
		list []model.KeywordSuggestion
		err  error
	)
	switch kind {
	case model.KeywordKindSuggestions:
		list, err = rp.FetchKeywordSuggestions(r.Context(), seed, h.generation.Locale(), limit)
	case model.KeywordKindRelated:
		list, err = rp.FetchRelatedKeywords(r.Context(), seed, h.generation.Locale(), limit)
	default:
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "kind must be suggestions or related")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, model.KeywordLookup{Seed: seed, Kind: kind, Keywords: list})
}

// HandleProviders handles GET /v1/providers.
func (h *Handlers) HandleProviders(w http.ResponseWriter, r *http.Request) {
	reg := h.generation.Providers()
	writeJSON(w, r, http.StatusOK, model.ProviderList{Providers: reg.Names(), Default: reg.Default()})
}

// configuredReporter is implemented by research providers that can tell
// whether they hold credentials.
type configuredReporter interface {
	Configured() bool
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	reg := h.generation.Providers()
	status := "healthy"
	httpStatus := http.StatusOK
	if reg.Len() == 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	researchStatus := "disabled"
	if rp := h.generation.Research(); rp != nil {
		researchStatus = "configured"
		if c, ok := rp.(configuredReporter); ok && !c.Configured() {
			researchStatus = "unconfigured"
		}
	}
	if researchStatus != "configured" && status == "healthy" {
		status = "degraded"
	}

	writeJSON(w, r, httpStatus, model.HealthResponse{
		Status:          status,
		Version:         h.version,
		Providers:       reg.Names(),
		DefaultProvider: reg.Default(),
		Research:        researchStatus,
		Uptime:          int64(time.Since(h.startedAt).Seconds()),
	})
}

// HandleOpenAPISpec serves the embedded OpenAPI specification.
func (h *Handlers) HandleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if len(h.openapiSpec) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openapiSpec)
}
