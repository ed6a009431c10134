package prompts_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashita-ai/quill/internal/model"
	"github.com/ashita-ai/quill/internal/prompts"
)

func boolPtr(b bool) *bool { return &b }

func samplePlan() model.KeywordPlan {
	return model.KeywordPlan{
		PrimaryKeyword: model.PrimaryKeyword{Keyword: "remote work tools"},
		SecondaryKeywords: []model.KeywordRecord{
			{Keyword: "best remote collaboration software"},
		},
		Questions: []model.UserQuestion{
			{Question: "What tools do remote teams need?", Priority: model.PriorityHigh},
		},
		ContentStructure: model.ContentStructure{
			Title:        "The Complete Guide to Remote Work Tools",
			TargetLength: 3000,
			Sections:     []model.SectionPlan{{Heading: "Communication", Purpose: "chat and video"}},
		},
	}
}

func TestTargetLength(t *testing.T) {
	plan := samplePlan()
	assert.Equal(t, 1200, prompts.TargetLength(model.GenerateRequest{TargetWordCount: 1200}, plan))
	assert.Equal(t, 3000, prompts.TargetLength(model.GenerateRequest{}, plan))
	assert.Equal(t, model.DefaultTargetWordCount, prompts.TargetLength(model.GenerateRequest{}, model.KeywordPlan{}))
}

func TestFormatResearch(t *testing.T) {
	s := model.ResearchSnapshot{
		Query:        "remote work tools",
		TotalResults: 1200000,
		Entries: []model.RankedEntry{
			{Position: 1, URL: "https://a.example/tools", Title: "Tools A", Description: "snippet a", Domain: "a.example"},
			{Position: 2, URL: "https://b.example/", Title: "Tools B", Domain: "b.example"},
		},
	}
	out := prompts.FormatResearch(s)
	assert.Contains(t, out, `"remote work tools"`)
	assert.Contains(t, out, "1200000")
	assert.Contains(t, out, "1. Tools A (a.example)")
	assert.Contains(t, out, "Snippet: snippet a")
	assert.Contains(t, out, "2. Tools B (b.example)")

	empty := prompts.FormatResearch(model.ResearchSnapshot{Query: "x"})
	assert.Contains(t, empty, "No organic results")
}

func TestFormatSuggestions(t *testing.T) {
	assert.Empty(t, prompts.FormatSuggestions(nil))
	out := prompts.FormatSuggestions([]model.KeywordSuggestion{
		{Keyword: "slack alternatives", SearchVolume: 9900, Competition: model.CompetitionHigh, CPC: 4.5, Difficulty: 61},
	})
	assert.Contains(t, out, "slack alternatives | 9900 | HIGH | 4.50 | 61")
}

func TestKeywordPlanPrompt(t *testing.T) {
	req := model.GenerateRequest{Topic: "remote work tools", TargetAudience: "startup founders", TargetWordCount: 1800}
	p := prompts.KeywordPlan(req, "evidence text", "suggestion text")

	assert.Contains(t, p.System, "JSON")
	assert.Contains(t, p.User, `"remote work tools"`)
	assert.Contains(t, p.User, "startup founders")
	assert.Contains(t, p.User, "exactly 1800 words")
	assert.Contains(t, p.User, "evidence text")
	assert.Contains(t, p.User, "suggestion text")
	assert.Contains(t, p.User, `"keywordClusters"`)

	unavailable := prompts.KeywordPlan(model.GenerateRequest{Topic: "t"}, prompts.ResearchUnavailable, "")
	assert.Contains(t, unavailable.User, prompts.ResearchUnavailable)
	assert.NotContains(t, unavailable.User, "exactly")
}

func TestOutlinePrompt(t *testing.T) {
	req := model.GenerateRequest{
		Topic: "remote work tools",
		InternalLinks: []model.InternalLink{
			{URL: "/blog/async", Title: "Async communication", Relevance: model.PriorityLow},
			{URL: "/pricing", Title: "Pricing", Relevance: model.PriorityHigh},
		},
	}
	p := prompts.Outline(req, samplePlan())

	assert.Contains(t, p.User, `"remote work tools"`)
	assert.Contains(t, p.User, "Target length: 3000 words")
	assert.Contains(t, p.User, "best remote collaboration software")
	assert.Contains(t, p.User, "What tools do remote teams need?")
	assert.Contains(t, p.User, "Communication: chat and video")

	// High relevance links are listed before low ones.
	assert.Less(t, strings.Index(p.User, "/pricing"), strings.Index(p.User, "/blog/async"))

	noFAQ := prompts.Outline(model.GenerateRequest{Topic: "x", IncludeFAQ: boolPtr(false)}, samplePlan())
	assert.Contains(t, noFAQ.User, "empty faq array")
	assert.NotContains(t, noFAQ.User, "What tools do remote teams need?")
}

func TestArticlePrompt(t *testing.T) {
	outline := model.Outline{
		Metadata: model.OutlineMetadata{
			PrimaryKeyword: "remote work tools",
			H1:             "Remote Work Tools: The 2026 Guide",
		},
		Sections: []model.OutlineSection{{Level: "h2", Heading: "Video calls"}},
	}
	req := model.GenerateRequest{Topic: "remote work tools", TargetWordCount: 2000}
	p := prompts.Article(req, samplePlan(), outline)

	assert.Contains(t, p.User, "# Remote Work Tools: The 2026 Guide")
	assert.Contains(t, p.User, `"remote work tools"`)
	assert.Contains(t, p.User, "about 2000 words")
	assert.Contains(t, p.User, `"heading": "Video calls"`)
	assert.Contains(t, p.User, "## References")
	assert.Contains(t, p.User, "1. [Source Name](https://source.url)")
	assert.NotContains(t, p.User, "Do not include an FAQ")

	noFAQ := prompts.Article(model.GenerateRequest{Topic: "x", IncludeFAQ: boolPtr(false)}, samplePlan(), outline)
	assert.Contains(t, noFAQ.User, "Do not include an FAQ section.")
}

func TestArticlePromptFallsBackToPlan(t *testing.T) {
	p := prompts.Article(model.GenerateRequest{Topic: "x"}, samplePlan(), model.Outline{})
	assert.Contains(t, p.User, "# The Complete Guide to Remote Work Tools")
	assert.Contains(t, p.User, `"remote work tools"`)
	assert.Contains(t, p.User, "about 3000 words")
}

func TestPromptsEmbedKeywordVerbatim(t *testing.T) {
	plan := samplePlan()
	plan.PrimaryKeyword.Keyword = `"zero trust" networking`
	req := model.GenerateRequest{Topic: `what is "zero trust"?`}

	outline := prompts.Outline(req, plan)
	assert.Contains(t, outline.User, `Primary keyword (use verbatim): ""zero trust" networking"`)
	assert.Contains(t, outline.User, `Topic: "what is "zero trust"?"`)
	assert.NotContains(t, outline.User, `\"`)

	article := prompts.Article(req, plan, model.Outline{})
	assert.Contains(t, article.User, `Use the exact phrase ""zero trust" networking" in the first paragraph`)
	assert.NotContains(t, article.User, `\"`)
}

func TestPromptsAreDeterministic(t *testing.T) {
	req := model.GenerateRequest{Topic: "remote work tools"}
	assert.Equal(t, prompts.Outline(req, samplePlan()), prompts.Outline(req, samplePlan()))
	assert.Equal(t, prompts.Article(req, samplePlan(), model.Outline{}), prompts.Article(req, samplePlan(), model.Outline{}))
}
