package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ashita-ai/quill/internal/model"
)

// DefaultBaseURL is the DataForSEO v3 API root.
const DefaultBaseURL = "https://api.dataforseo.com"

const (
	serpPath        = "/v3/serp/google/organic/live/advanced"
	suggestionsPath = "/v3/dataforseo_labs/google/keyword_suggestions/live"
	relatedPath     = "/v3/dataforseo_labs/google/related_keywords/live"

	statusOK            = 20000
	statusNoResults     = 40102
	maxErrorBodyPreview = 512
)

// Config holds DataForSEO client settings.
type Config struct {
	Login             string
	Password          string
	BaseURL           string
	Locale            Locale
	RequestsPerSecond float64 // <= 0 disables client-side throttling
	Timeout           time.Duration
	HTTPClient        *http.Client // optional, overrides Timeout
}

// Client is a DataForSEO-backed Provider. Calls are throttled client-side
// and never retried.
type Client struct {
	login    string
	password string
	baseURL  string
	locale   Locale
	http     *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

var _ Provider = (*Client)(nil)

// NewClient creates a DataForSEO client. Missing credentials are allowed:
// every call then fails with an AUTH error, which the generation service
// degrades to a placeholder.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	loc := cfg.Locale
	if loc.LocationCode == 0 {
		loc.LocationCode = DefaultLocationCode
	}
	if loc.LanguageCode == "" {
		loc.LanguageCode = DefaultLanguageCode
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		login:    cfg.Login,
		password: cfg.Password,
		baseURL:  base,
		locale:   loc,
		http:     hc,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

// Configured reports whether credentials were supplied.
func (c *Client) Configured() bool {
	return c.login != "" && c.password != ""
}

type serpResult struct {
	Keyword        string     `json:"keyword"`
	SEResultsCount int64      `json:"se_results_count"`
	Items          []serpItem `json:"items"`
}

type serpItem struct {
	Type         string `json:"type"`
	RankAbsolute int    `json:"rank_absolute"`
	Domain       string `json:"domain"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	URL          string `json:"url"`
}

// FetchRankedResults implements Provider. Non-organic items are dropped
// before truncation and positions are renumbered from 1.
func (c *Client) FetchRankedResults(ctx context.Context, query string, loc Locale) (model.ResearchSnapshot, error) {
	const op = "fetch ranked results"
	l := c.resolve(loc)
	task := map[string]any{
		"keyword":       query,
		"location_code": l.LocationCode,
		"language_code": l.LanguageCode,
		"depth":         MaxRankedEntries,
	}
	results, err := post[serpResult](ctx, c, op, serpPath, task)
	if err != nil {
		return model.ResearchSnapshot{}, err
	}

	snap := model.ResearchSnapshot{Query: query, Entries: []model.RankedEntry{}}
	if len(results) == 0 {
		return snap, nil
	}
	r := results[0]
	snap.TotalResults = r.SEResultsCount
	for _, item := range r.Items {
		if item.Type != "organic" {
			continue
		}
		if len(snap.Entries) == MaxRankedEntries {
			break
		}
		snap.Entries = append(snap.Entries, model.RankedEntry{
			Position:    len(snap.Entries) + 1,
			URL:         item.URL,
			Title:       item.Title,
			Description: item.Description,
			Domain:      domainOf(item),
		})
	}
	c.logger.Debug("research: ranked results fetched",
		"query", query, "entries", len(snap.Entries), "total_results", snap.TotalResults)
	return snap, nil
}

type labsKeyword struct {
	Keyword     string `json:"keyword"`
	KeywordInfo struct {
		SearchVolume     int64   `json:"search_volume"`
		CompetitionLevel string  `json:"competition_level"`
		CPC              float64 `json:"cpc"`
	} `json:"keyword_info"`
	KeywordProperties struct {
		KeywordDifficulty int `json:"keyword_difficulty"`
	} `json:"keyword_properties"`
}

func (k labsKeyword) suggestion() model.KeywordSuggestion {
	return model.KeywordSuggestion{
		Keyword:      k.Keyword,
		SearchVolume: k.KeywordInfo.SearchVolume,
		Competition:  competitionOf(k.KeywordInfo.CompetitionLevel),
		CPC:          k.KeywordInfo.CPC,
		Difficulty:   k.KeywordProperties.KeywordDifficulty,
	}
}

// FetchKeywordSuggestions implements Provider.
func (c *Client) FetchKeywordSuggestions(ctx context.Context, seed string, loc Locale, limit int) ([]model.KeywordSuggestion, error) {
	type result struct {
		Items []labsKeyword `json:"items"`
	}
	results, err := post[result](ctx, c, "fetch keyword suggestions", suggestionsPath, c.labsTask(seed, loc, limit))
	if err != nil {
		return nil, err
	}
	out := []model.KeywordSuggestion{}
	for _, r := range results {
		for _, item := range r.Items {
			out = append(out, item.suggestion())
		}
	}
	return out, nil
}

// FetchRelatedKeywords implements Provider.
func (c *Client) FetchRelatedKeywords(ctx context.Context, seed string, loc Locale, limit int) ([]model.KeywordSuggestion, error) {
	type result struct {
		Items []struct {
			KeywordData labsKeyword `json:"keyword_data"`
		} `json:"items"`
	}
	results, err := post[result](ctx, c, "fetch related keywords", relatedPath, c.labsTask(seed, loc, limit))
	if err != nil {
		return nil, err
	}
	out := []model.KeywordSuggestion{}
	for _, r := range results {
		for _, item := range r.Items {
			out = append(out, item.KeywordData.suggestion())
		}
	}
	return out, nil
}

func (c *Client) labsTask(seed string, loc Locale, limit int) map[string]any {
	if limit <= 0 {
		limit = DefaultLimit
	}
	l := c.resolve(loc)
	return map[string]any{
		"keyword":       seed,
		"location_code": l.LocationCode,
		"language_code": l.LanguageCode,
		"limit":         limit,
	}
}

func (c *Client) resolve(loc Locale) Locale {
	if loc.LocationCode == 0 {
		loc.LocationCode = c.locale.LocationCode
	}
	if loc.LanguageCode == "" {
		loc.LanguageCode = c.locale.LanguageCode
	}
	return loc
}

type envelope[T any] struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Tasks         []struct {
		StatusCode    int    `json:"status_code"`
		StatusMessage string `json:"status_message"`
		Result        []T    `json:"result"`
	} `json:"tasks"`
}

// post sends one live task and returns the first task's result list.
func post[T any](ctx context.Context, c *Client, op, path string, task map[string]any) ([]T, error) {
	if !c.Configured() {
		return nil, &Error{Kind: model.FailureAuth, Op: op, Message: "credentials not configured"}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Kind: model.FailureNetwork, Op: op, Message: "throttle wait aborted", Err: err}
	}

	body, err := json.Marshal([]map[string]any{task})
	if err != nil {
		return nil, fmt.Errorf("research: marshal %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("research: create %s request: %w", op, err)
	}
	req.SetBasicAuth(c.login, c.password)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: model.FailureNetwork, Op: op, Message: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: model.FailureNetwork, Op: op, Message: "read response", Err: err}
	}
	c.logger.Debug("research: provider call", "op", op, "status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Kind:       model.KindForHTTPStatus(resp.StatusCode),
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    strings.ToLower(http.StatusText(resp.StatusCode)),
			Err:        errors.New(preview(raw)),
		}
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &Error{Kind: model.FailureAPI, Op: op, Message: "malformed response", Err: err}
	}
	if env.StatusCode != statusOK {
		return nil, taskError(op, env.StatusCode, env.StatusMessage)
	}
	if len(env.Tasks) == 0 {
		return nil, nil
	}
	t := env.Tasks[0]
	switch t.StatusCode {
	case statusOK:
		return t.Result, nil
	case statusNoResults:
		return nil, nil
	default:
		return nil, taskError(op, t.StatusCode, t.StatusMessage)
	}
}

// taskError classifies a DataForSEO status code carried in the body.
func taskError(op string, code int, message string) *Error {
	kind := model.FailureAPI
	switch {
	case code == 40100 || code == 40104:
		kind = model.FailureAuth
	case code == 40202 || code == 40209:
		kind = model.FailureRateLimit
	case code >= 50000:
		kind = model.FailureNetwork
	}
	return &Error{Kind: kind, Op: op, StatusCode: code, Message: message}
}

func competitionOf(level string) model.Competition {
	switch c := model.Competition(strings.ToUpper(level)); c {
	case model.CompetitionLow, model.CompetitionMedium, model.CompetitionHigh:
		return c
	}
	return model.CompetitionUnknown
}

func domainOf(item serpItem) string {
	if item.Domain != "" {
		return item.Domain
	}
	if u, err := url.Parse(item.URL); err == nil {
		return u.Hostname()
	}
	return ""
}

func preview(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorBodyPreview {
		s = s[:maxErrorBodyPreview]
	}
	if s == "" {
		s = "empty response body"
	}
	return s
}
