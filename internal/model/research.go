package model

// ResearchSnapshot is the normalized result of one ranked-results query,
// frozen at fetch time.
type ResearchSnapshot struct {
	Query        string        `json:"query"`
	TotalResults int64         `json:"totalResults"`
	Entries      []RankedEntry `json:"entries"`
}

// RankedEntry is one organic search result. Position is 1-based within the
// filtered organic list, not the provider's absolute rank.
type RankedEntry struct {
	Position    int    `json:"position"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Domain      string `json:"domain"`
}

// Competition is a keyword competition tier.
type Competition string

const (
	CompetitionLow     Competition = "LOW"
	CompetitionMedium  Competition = "MEDIUM"
	CompetitionHigh    Competition = "HIGH"
	CompetitionUnknown Competition = "UNKNOWN"
)

// KeywordSuggestion is one keyword-metrics record returned by the research
// provider for a seed phrase.
type KeywordSuggestion struct {
	Keyword      string      `json:"keyword"`
	SearchVolume int64       `json:"searchVolume"`
	Competition  Competition `json:"competition"`
	CPC          float64     `json:"cpc"`
	Difficulty   int         `json:"difficulty"`
}

// Keyword lookup kinds.
const (
	KeywordKindSuggestions = "suggestions"
	KeywordKindRelated     = "related"
)

// KeywordLookup is the response of a standalone keyword lookup.
type KeywordLookup struct {
	Seed     string              `json:"seed"`
	Kind     string              `json:"kind"`
	Keywords []KeywordSuggestion `json:"keywords"`
}

// ProviderList describes the configured generation backends.
type ProviderList struct {
	Providers []string `json:"providers"`
	Default   string   `json:"default"`
}
