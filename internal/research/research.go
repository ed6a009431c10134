// Package research retrieves ranked search results and keyword metrics
// used as evidence by the keyword-research phase.
//
// Provider is the capability the generation service consumes. Client is the
// DataForSEO implementation. Every failure is returned as *Error carrying a
// model.FailureKind so that callers can degrade instead of aborting.
package research

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashita-ai/quill/internal/model"
)

// Defaults applied when the caller leaves a value unset.
const (
	DefaultLocationCode = 2840 // United States
	DefaultLanguageCode = "en"
	DefaultLimit        = 20
	MaxRankedEntries    = 10
)

// Locale selects the market a query runs against. Zero fields fall back to
// the client's configured defaults.
type Locale struct {
	LocationCode int
	LanguageCode string
}

// Provider retrieves research data for a query or seed keyword.
type Provider interface {
	// FetchRankedResults returns up to MaxRankedEntries organic results.
	FetchRankedResults(ctx context.Context, query string, loc Locale) (model.ResearchSnapshot, error)

	// FetchKeywordSuggestions returns suggestions containing seed.
	// limit <= 0 means DefaultLimit.
	FetchKeywordSuggestions(ctx context.Context, seed string, loc Locale, limit int) ([]model.KeywordSuggestion, error)

	// FetchRelatedKeywords returns semantically related keywords for
	// competitive context. limit <= 0 means DefaultLimit.
	FetchRelatedKeywords(ctx context.Context, seed string, loc Locale, limit int) ([]model.KeywordSuggestion, error)
}

// Error is a classified research provider failure.
type Error struct {
	Kind       model.FailureKind
	Op         string
	StatusCode int // HTTP status or provider task status, 0 if none
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("research: %s: %s", e.Op, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode implements model.ErrorCoder.
func (e *Error) ErrorCode() string { return e.Kind.Code() }

// PublicMessage is the message shown across the API boundary.
func (e *Error) PublicMessage() string {
	return "research provider: " + e.Message
}

func kindOf(err error) (model.FailureKind, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return "", false
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	k, ok := kindOf(err)
	return ok && k == model.FailureAuth
}

// IsRateLimit reports whether err is a throttling failure.
func IsRateLimit(err error) bool {
	k, ok := kindOf(err)
	return ok && k == model.FailureRateLimit
}

// IsNetwork reports whether err is a transient transport failure.
func IsNetwork(err error) bool {
	k, ok := kindOf(err)
	return ok && k == model.FailureNetwork
}
