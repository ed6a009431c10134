package model

import "time"

// Article is the final generated text plus derived statistics.
type Article struct {
	Content     string `json:"content"`
	WordCount   int    `json:"wordCount"`
	ReadingTime string `json:"readingTime"`
}

// Reference is one entry of the article's trailing References section.
type Reference struct {
	Number int    `json:"number"`
	Source string `json:"source"`
	URL    string `json:"url"`
}

// GenerationResult is the envelope returned by a completed run.
type GenerationResult struct {
	Article       Article      `json:"article"`
	Outline       Outline      `json:"outline"`
	KeywordPlan   KeywordPlan  `json:"keywordPlan"`
	InternalLinks []PlacedLink `json:"internalLinks"`
	References    []Reference  `json:"references"`
	Metadata      RunMetadata  `json:"metadata"`
}

// RunMetadata describes how a run was executed.
type RunMetadata struct {
	RunID            string     `json:"runId"`
	Provider         string     `json:"provider"`
	Mode             string     `json:"mode"`
	GeneratedAt      time.Time  `json:"generatedAt"`
	DurationMs       int64      `json:"durationMs"`
	Tokens           TokenUsage `json:"tokens"`
	ResearchDegraded bool       `json:"researchDegraded"`
	Fallbacks        []string   `json:"fallbacks"`
}

// Execution modes recorded in RunMetadata.Mode.
const (
	ModeBuffered  = "buffered"
	ModeStreaming = "streaming"
)

// TokenUsage records per-phase token counts. In streaming mode the article
// count is an estimate (characters / 4, rounded up) and ArticleEstimated is
// set; it is not billing truth.
type TokenUsage struct {
	KeywordResearch  int  `json:"keywordResearch"`
	Outline          int  `json:"outline"`
	Article          int  `json:"article"`
	Total            int  `json:"total"`
	ArticleEstimated bool `json:"articleEstimated"`
}

// Sum recomputes Total from the per-phase counts.
func (u *TokenUsage) Sum() {
	u.Total = u.KeywordResearch + u.Outline + u.Article
}
