package model

// DefaultTargetWordCount is the article length asserted when neither the
// caller nor the generated keyword plan supplies one.
const DefaultTargetWordCount = 2500

// KeywordPlan is the structured output of the keyword-research phase.
type KeywordPlan struct {
	PrimaryKeyword    PrimaryKeyword   `json:"primaryKeyword"`
	SecondaryKeywords []KeywordRecord  `json:"secondaryKeywords"`
	Clusters          []KeywordCluster `json:"keywordClusters"`
	Questions         []UserQuestion   `json:"questions"`
	ContentStructure  ContentStructure `json:"contentStructure"`
	CompetitiveStats  CompetitiveStats `json:"competitiveStats"`
}

// PrimaryKeyword is the keyword the article is built around.
type PrimaryKeyword struct {
	Keyword        string      `json:"keyword"`
	SearchVolume   int64       `json:"searchVolume"`
	Competition    Competition `json:"competition"`
	Intent         string      `json:"intent"`
	CitationFormat string      `json:"citationFormat"`
}

// KeywordRecord is a secondary or clustered keyword.
type KeywordRecord struct {
	Keyword      string      `json:"keyword"`
	SearchVolume int64       `json:"searchVolume"`
	Competition  Competition `json:"competition"`
	Intent       string      `json:"intent,omitempty"`
}

// KeywordCluster groups related keywords under one theme.
type KeywordCluster struct {
	Theme    string          `json:"theme"`
	Keywords []KeywordRecord `json:"keywords"`
}

// Priority tags user questions and internal links.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// UserQuestion is a question searchers ask about the topic.
type UserQuestion struct {
	Question string   `json:"question"`
	Priority Priority `json:"priority"`
}

// ContentStructure is the blueprint the outline phase expands.
type ContentStructure struct {
	Title           string        `json:"title"`
	MetaTitle       string        `json:"metaTitle"`
	MetaDescription string        `json:"metaDescription"`
	TargetLength    int           `json:"targetLength"`
	Sections        []SectionPlan `json:"sections"`
}

// SectionPlan is one planned section of the blueprint.
type SectionPlan struct {
	Heading string `json:"heading"`
	Purpose string `json:"purpose,omitempty"`
}

// CompetitiveStats aggregates what the ranking pages look like.
type CompetitiveStats struct {
	AverageWordCount int      `json:"averageWordCount"`
	AverageHeadings  int      `json:"averageHeadings"`
	TopDomains       []string `json:"topDomains"`
	ContentGaps      []string `json:"contentGaps"`
}

// Normalize replaces nil collections with empty slices so the plan never
// carries null collections downstream or on the wire.
func (p *KeywordPlan) Normalize() {
	if p.SecondaryKeywords == nil {
		p.SecondaryKeywords = []KeywordRecord{}
	}
	if p.Clusters == nil {
		p.Clusters = []KeywordCluster{}
	}
	for i := range p.Clusters {
		if p.Clusters[i].Keywords == nil {
			p.Clusters[i].Keywords = []KeywordRecord{}
		}
	}
	if p.Questions == nil {
		p.Questions = []UserQuestion{}
	}
	if p.ContentStructure.Sections == nil {
		p.ContentStructure.Sections = []SectionPlan{}
	}
	if p.CompetitiveStats.TopDomains == nil {
		p.CompetitiveStats.TopDomains = []string{}
	}
	if p.CompetitiveStats.ContentGaps == nil {
		p.CompetitiveStats.ContentGaps = []string{}
	}
}
