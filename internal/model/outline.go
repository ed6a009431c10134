package model

// Outline is the structured output of the outline phase.
type Outline struct {
	Metadata     OutlineMetadata  `json:"metadata"`
	KeyTakeaway  KeyTakeaway      `json:"keyTakeaway"`
	Introduction ParagraphPlan    `json:"introduction"`
	Sections     []OutlineSection `json:"sections"`
	FAQ          []FAQEntry       `json:"faq"`
	Conclusion   ParagraphPlan    `json:"conclusion"`
	Citations    []Citation       `json:"citations"`
}

// OutlineMetadata carries the fields the article must honor exactly.
type OutlineMetadata struct {
	PrimaryKeyword  string `json:"primaryKeyword"`
	H1              string `json:"h1"`
	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription"`
	TargetLength    int    `json:"targetLength"`
}

// KeyTakeaway is the summary block placed directly under the title.
type KeyTakeaway struct {
	Heading string   `json:"heading"`
	Points  []string `json:"points"`
}

// ParagraphPlan holds paragraph-level writing instructions.
type ParagraphPlan struct {
	Paragraphs []string `json:"paragraphs"`
}

// OutlineSection is an h2 section, or an h3 nested one level inside an h2.
type OutlineSection struct {
	Level       string           `json:"level"`
	Heading     string           `json:"heading"`
	Paragraphs  []string         `json:"paragraphs"`
	Keywords    []string         `json:"keywords"`
	Subsections []OutlineSection `json:"subsections,omitempty"`
}

// FAQEntry is one planned question and answer.
type FAQEntry struct {
	Question   string `json:"question"`
	AnswerPlan string `json:"answerPlan"`
}

// Citation is a source the article intends to cite.
type Citation struct {
	Source string `json:"source"`
	URL    string `json:"url"`
	Type   string `json:"type"`
	Usage  string `json:"usage"`
}

// Normalize replaces nil collections with empty slices and flattens any
// nesting deeper than h2 > h3.
func (o *Outline) Normalize() {
	if o.KeyTakeaway.Points == nil {
		o.KeyTakeaway.Points = []string{}
	}
	if o.Introduction.Paragraphs == nil {
		o.Introduction.Paragraphs = []string{}
	}
	if o.Conclusion.Paragraphs == nil {
		o.Conclusion.Paragraphs = []string{}
	}
	if o.Sections == nil {
		o.Sections = []OutlineSection{}
	}
	for i := range o.Sections {
		normalizeSection(&o.Sections[i], "h2")
		for j := range o.Sections[i].Subsections {
			sub := &o.Sections[i].Subsections[j]
			normalizeSection(sub, "h3")
			sub.Subsections = nil
		}
	}
	if o.FAQ == nil {
		o.FAQ = []FAQEntry{}
	}
	if o.Citations == nil {
		o.Citations = []Citation{}
	}
}

func normalizeSection(s *OutlineSection, level string) {
	s.Level = level
	if s.Paragraphs == nil {
		s.Paragraphs = []string{}
	}
	if s.Keywords == nil {
		s.Keywords = []string{}
	}
}
