// Package prompts assembles the instructions sent to the generation
// backend for each phase. Every function is pure: no I/O, no clock, no
// randomness. Values the backend must honor exactly (the primary keyword,
// the target length, the H1) are embedded verbatim and quoted.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashita-ai/quill/internal/model"
)

// Prompt is a system instruction plus a user prompt.
type Prompt struct {
	System string
	User   string
}

// ResearchUnavailable replaces the research evidence when the ranked
// results could not be fetched.
const ResearchUnavailable = "Search result data unavailable. Base the analysis on general knowledge of the topic and of the content that typically ranks for it."

// TargetLength resolves the word count a run must aim for: the caller's
// value wins, then the keyword plan's, then the default.
func TargetLength(req model.GenerateRequest, plan model.KeywordPlan) int {
	if req.TargetWordCount > 0 {
		return req.TargetWordCount
	}
	if plan.ContentStructure.TargetLength > 0 {
		return plan.ContentStructure.TargetLength
	}
	return model.DefaultTargetWordCount
}

// FormatResearch serializes a snapshot as evidence text.
func FormatResearch(s model.ResearchSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search query: %q\n", s.Query)
	fmt.Fprintf(&b, "Estimated total results: %d\n", s.TotalResults)
	if len(s.Entries) == 0 {
		b.WriteString("No organic results were returned for this query.\n")
		return b.String()
	}
	b.WriteString("Top organic results:\n")
	for _, e := range s.Entries {
		fmt.Fprintf(&b, "%d. %s (%s)\n", e.Position, e.Title, e.Domain)
		fmt.Fprintf(&b, "   URL: %s\n", e.URL)
		if e.Description != "" {
			fmt.Fprintf(&b, "   Snippet: %s\n", e.Description)
		}
	}
	return b.String()
}

// FormatSuggestions serializes keyword suggestions as evidence text.
// An empty list yields an empty string.
func FormatSuggestions(list []model.KeywordSuggestion) string {
	if len(list) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Keyword suggestions (keyword | monthly volume | competition | CPC | difficulty):\n")
	for _, k := range list {
		fmt.Fprintf(&b, "- %s | %d | %s | %.2f | %d\n", k.Keyword, k.SearchVolume, k.Competition, k.CPC, k.Difficulty)
	}
	return b.String()
}

const jsonOnly = "Respond with a single JSON object and nothing else. Do not wrap it in markdown fences."

const keywordPlanShape = `{
  "primaryKeyword": {"keyword": "", "searchVolume": 0, "competition": "LOW|MEDIUM|HIGH", "intent": "informational|commercial|transactional|navigational", "citationFormat": ""},
  "secondaryKeywords": [{"keyword": "", "searchVolume": 0, "competition": "", "intent": ""}],
  "keywordClusters": [{"theme": "", "keywords": [{"keyword": "", "searchVolume": 0, "competition": ""}]}],
  "questions": [{"question": "", "priority": "high|medium|low"}],
  "contentStructure": {"title": "", "metaTitle": "", "metaDescription": "", "targetLength": 0, "sections": [{"heading": "", "purpose": ""}]},
  "competitiveStats": {"averageWordCount": 0, "averageHeadings": 0, "topDomains": [""], "contentGaps": [""]}
}`

const outlineShape = `{
  "metadata": {"primaryKeyword": "", "h1": "", "metaTitle": "", "metaDescription": "", "targetLength": 0},
  "keyTakeaway": {"heading": "", "points": [""]},
  "introduction": {"paragraphs": ["instruction for paragraph 1"]},
  "sections": [{"level": "h2", "heading": "", "paragraphs": [""], "keywords": [""],
                "subsections": [{"level": "h3", "heading": "", "paragraphs": [""], "keywords": [""]}]}],
  "faq": [{"question": "", "answerPlan": ""}],
  "conclusion": {"paragraphs": [""]},
  "citations": [{"source": "", "url": "", "type": "study|statistic|documentation|news", "usage": ""}]
}`

// KeywordPlan builds the keyword-research prompt. research is either
// FormatResearch output or ResearchUnavailable; suggestions may be empty.
func KeywordPlan(req model.GenerateRequest, research, suggestions string) Prompt {
	system := "You are an SEO strategist. You turn search results data into a precise keyword plan for one long-form article. " + jsonOnly

	var u strings.Builder
	fmt.Fprintf(&u, "Topic: \"%s\"\n", req.Topic)
	writeAudience(&u, req)
	if req.TargetWordCount > 0 {
		fmt.Fprintf(&u, "Target length: exactly %d words. Set contentStructure.targetLength to %d.\n", req.TargetWordCount, req.TargetWordCount)
	} else {
		fmt.Fprintf(&u, "Target length: choose one appropriate for the topic (use %d words if unsure).\n", model.DefaultTargetWordCount)
	}
	u.WriteString("\nResearch data:\n")
	u.WriteString(research)
	if suggestions != "" {
		u.WriteString("\n")
		u.WriteString(suggestions)
	}
	u.WriteString("\nPick the primary keyword searchers actually use for this topic, rank secondary keywords by value, ")
	u.WriteString("group related keywords into thematic clusters, list the questions searchers ask with a priority, ")
	u.WriteString("and propose a content structure that covers the gaps the ranking pages leave.\n")
	u.WriteString("\nReturn JSON with exactly this shape:\n")
	u.WriteString(keywordPlanShape)
	return Prompt{System: system, User: u.String()}
}

// Outline builds the outline prompt from the keyword plan.
func Outline(req model.GenerateRequest, plan model.KeywordPlan) Prompt {
	system := "You are a senior content editor. You design detailed article outlines that writers follow paragraph by paragraph. " + jsonOnly
	target := TargetLength(req, plan)
	cs := plan.ContentStructure

	var u strings.Builder
	fmt.Fprintf(&u, "Topic: \"%s\"\n", req.Topic)
	writeAudience(&u, req)
	fmt.Fprintf(&u, "Primary keyword (use verbatim): \"%s\"\n", plan.PrimaryKeyword.Keyword)
	fmt.Fprintf(&u, "Target length: %d words. Set metadata.targetLength to %d.\n", target, target)
	if cs.Title != "" {
		fmt.Fprintf(&u, "Working title: \"%s\"\n", cs.Title)
	}
	if len(plan.SecondaryKeywords) > 0 {
		u.WriteString("Secondary keywords:\n")
		for _, k := range plan.SecondaryKeywords {
			fmt.Fprintf(&u, "- %s\n", k.Keyword)
		}
	}
	for _, c := range plan.Clusters {
		names := make([]string, 0, len(c.Keywords))
		for _, k := range c.Keywords {
			names = append(names, k.Keyword)
		}
		fmt.Fprintf(&u, "Cluster %q: %s\n", c.Theme, strings.Join(names, ", "))
	}
	if len(cs.Sections) > 0 {
		u.WriteString("Planned sections:\n")
		for _, s := range cs.Sections {
			fmt.Fprintf(&u, "- %s", s.Heading)
			if s.Purpose != "" {
				fmt.Fprintf(&u, ": %s", s.Purpose)
			}
			u.WriteString("\n")
		}
	}
	if len(plan.CompetitiveStats.ContentGaps) > 0 {
		fmt.Fprintf(&u, "Content gaps to cover: %s\n", strings.Join(plan.CompetitiveStats.ContentGaps, "; "))
	}
	writeInternalLinks(&u, req.InternalLinks)

	if req.FAQEnabled() {
		u.WriteString("Build the FAQ from these questions, highest priority first:\n")
		for _, q := range plan.Questions {
			fmt.Fprintf(&u, "- [%s] %s\n", q.Priority, q.Question)
		}
	} else {
		u.WriteString("Do not plan an FAQ section. Return an empty faq array.\n")
	}

	u.WriteString("\nUse h2 sections with at most one level of h3 subsections. ")
	u.WriteString("For every paragraph give a concrete writing instruction, and list which keywords each section must place. ")
	u.WriteString("Cite only real, verifiable sources.\n")
	u.WriteString("\nReturn JSON with exactly this shape:\n")
	u.WriteString(outlineShape)
	return Prompt{System: system, User: u.String()}
}

// Article builds the free-text authoring prompt from the outline.
func Article(req model.GenerateRequest, plan model.KeywordPlan, outline model.Outline) Prompt {
	system := "You are an expert writer. You write long-form markdown articles that follow an outline exactly and read naturally."
	target := TargetLength(req, plan)
	primary := outline.Metadata.PrimaryKeyword
	if primary == "" {
		primary = plan.PrimaryKeyword.Keyword
	}
	h1 := outline.Metadata.H1
	if h1 == "" {
		h1 = plan.ContentStructure.Title
	}

	var u strings.Builder
	fmt.Fprintf(&u, "Write the article for the topic \"%s\".\n", req.Topic)
	writeAudience(&u, req)
	fmt.Fprintf(&u, "Start with this exact H1: # %s\n", h1)
	fmt.Fprintf(&u, "Use the exact phrase \"%s\" in the first paragraph, in at least one H2, and naturally throughout.\n", primary)
	fmt.Fprintf(&u, "Length: about %d words, excluding the References section.\n", target)
	writeInternalLinks(&u, req.InternalLinks)
	if !req.FAQEnabled() {
		u.WriteString("Do not include an FAQ section.\n")
	}

	outlineJSON, _ := json.MarshalIndent(outline, "", "  ")
	u.WriteString("\nOutline to follow:\n")
	u.Write(outlineJSON)
	u.WriteString("\n\nFormat rules:\n")
	u.WriteString("- Markdown only. Use ## for sections and ### for subsections.\n")
	u.WriteString("- Place the key takeaway block right after the H1.\n")
	u.WriteString("- Cite sources inline as [n] matching the reference list.\n")
	u.WriteString("- End with a section headed exactly \"## References\" containing a numbered list, one source per line, formatted as: 1. [Source Name](https://source.url)\n")
	return Prompt{System: system, User: u.String()}
}

func writeAudience(b *strings.Builder, req model.GenerateRequest) {
	if req.TargetAudience != "" {
		fmt.Fprintf(b, "Target audience: %s\n", req.TargetAudience)
	}
	if req.ContentType != "" {
		fmt.Fprintf(b, "Content type: %s\n", req.ContentType)
	}
}

func writeInternalLinks(b *strings.Builder, links []model.InternalLink) {
	if len(links) == 0 {
		return
	}
	b.WriteString("Internal links to place in the body, most relevant first (relevance in brackets):\n")
	for _, rel := range []model.Priority{model.PriorityHigh, model.PriorityMedium, model.PriorityLow} {
		for _, l := range links {
			if l.Relevance == rel || (rel == model.PriorityMedium && l.Relevance == "") {
				fmt.Fprintf(b, "- [%s] %q -> %s\n", rel, l.Title, l.URL)
			}
		}
	}
}
