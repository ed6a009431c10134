package model

import (
	"net/url"
	"strings"
)

// Target word count bounds accepted on input.
const (
	MinTargetWordCount = 500
	MaxTargetWordCount = 10000
)

// GenerateRequest is the input record for one generation run.
type GenerateRequest struct {
	Topic                  string         `json:"topic"`
	TargetAudience         string         `json:"targetAudience,omitempty"`
	ContentType            string         `json:"contentType,omitempty"`
	TargetWordCount        int            `json:"targetWordCount,omitempty"`
	IncludeKeywordResearch *bool          `json:"includeKeywordResearch,omitempty"`
	IncludeFAQ             *bool          `json:"includeFAQ,omitempty"`
	InternalLinks          []InternalLink `json:"internalLinks,omitempty"`
	Provider               string         `json:"provider,omitempty"`
}

// InternalLink is a page on the caller's site the article may link to.
type InternalLink struct {
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	Relevance Priority `json:"relevance"`
}

// PlacedLink is an internal link echoed into the result.
type PlacedLink struct {
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	Relevance Priority `json:"relevance"`
	Placement string   `json:"placement"`
}

// PlacementBody is the only placement the pipeline assigns.
const PlacementBody = "body"

// KeywordResearchEnabled reports whether the keyword-suggestion lookup runs.
// Defaults to true.
func (r GenerateRequest) KeywordResearchEnabled() bool {
	return r.IncludeKeywordResearch == nil || *r.IncludeKeywordResearch
}

// FAQEnabled reports whether the outline and article include an FAQ.
// Defaults to true.
func (r GenerateRequest) FAQEnabled() bool {
	return r.IncludeFAQ == nil || *r.IncludeFAQ
}

// Validate checks the request and normalizes it in place: the topic is
// trimmed and empty link relevance defaults to medium.
func (r *GenerateRequest) Validate() error {
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Topic == "" {
		return NewValidationError("topic", "is required")
	}
	if r.TargetWordCount != 0 &&
		(r.TargetWordCount < MinTargetWordCount || r.TargetWordCount > MaxTargetWordCount) {
		return NewValidationError("targetWordCount", "must be between %d and %d, got %d",
			MinTargetWordCount, MaxTargetWordCount, r.TargetWordCount)
	}
	for i := range r.InternalLinks {
		link := &r.InternalLinks[i]
		u, err := url.Parse(link.URL)
		if err != nil || link.URL == "" || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "") {
			return NewValidationError("internalLinks", "[%d].url %q is not a valid http(s) or relative URL", i, link.URL)
		}
		if link.Relevance == "" {
			link.Relevance = PriorityMedium
		}
		if !link.Relevance.Valid() {
			return NewValidationError("internalLinks", "[%d].relevance must be one of high, medium, low", i)
		}
	}
	return nil
}

// PlacedLinks echoes the request's internal links with body placement.
func (r GenerateRequest) PlacedLinks() []PlacedLink {
	out := make([]PlacedLink, 0, len(r.InternalLinks))
	for _, l := range r.InternalLinks {
		out = append(out, PlacedLink{
			URL:       l.URL,
			Title:     l.Title,
			Relevance: l.Relevance,
			Placement: PlacementBody,
		})
	}
	return out
}
