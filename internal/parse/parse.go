// Package parse extracts structured values from free-form generated text.
// Parsers never fail: when extraction is impossible they return a
// deterministic fallback seeded from data already known upstream, and
// report that they did so.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ashita-ai/quill/internal/model"
)

// ErrNoJSON is recorded when the text carries no {...} span at all.
var ErrNoJSON = errors.New("no JSON object found")

// Result is the outcome of one structured extraction. Value is always
// usable. Fallback is true when Value was synthesized instead of parsed,
// and Err then says why.
type Result[T any] struct {
	Value    T
	Fallback bool
	Err      error
}

// OK reports whether Value was parsed from the text.
func (r Result[T]) OK() bool { return !r.Fallback }

// ExtractJSON returns the span from the first '{' to the last '}'.
func ExtractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func decode[T any](text string) (T, error) {
	var v T
	span, ok := ExtractJSON(text)
	if !ok {
		return v, ErrNoJSON
	}
	if err := json.Unmarshal([]byte(span), &v); err != nil {
		return v, fmt.Errorf("decode %T: %w", v, err)
	}
	return v, nil
}

// KeywordPlan parses a keyword plan. On failure the fallback uses topic as
// the primary keyword and title, empty collections, and targetWords (or
// the default) as the target length. A parsed plan with no primary keyword
// gets the topic too.
func KeywordPlan(text, topic string, targetWords int) Result[model.KeywordPlan] {
	plan, err := decode[model.KeywordPlan](text)
	if err != nil {
		return Result[model.KeywordPlan]{
			Value:    FallbackKeywordPlan(topic, targetWords),
			Fallback: true,
			Err:      err,
		}
	}
	if strings.TrimSpace(plan.PrimaryKeyword.Keyword) == "" {
		plan.PrimaryKeyword.Keyword = topic
	}
	plan.Normalize()
	return Result[model.KeywordPlan]{Value: plan}
}

// FallbackKeywordPlan is the minimal plan substituted when parsing fails.
func FallbackKeywordPlan(topic string, targetWords int) model.KeywordPlan {
	if targetWords <= 0 {
		targetWords = model.DefaultTargetWordCount
	}
	plan := model.KeywordPlan{
		PrimaryKeyword: model.PrimaryKeyword{
			Keyword:     topic,
			Competition: model.CompetitionUnknown,
		},
		ContentStructure: model.ContentStructure{
			Title:        topic,
			TargetLength: targetWords,
		},
	}
	plan.Normalize()
	return plan
}

// Outline parses an outline. On failure the fallback has empty bodies and
// metadata copied from plan.
func Outline(text string, plan model.KeywordPlan) Result[model.Outline] {
	outline, err := decode[model.Outline](text)
	if err != nil {
		return Result[model.Outline]{
			Value:    FallbackOutline(plan),
			Fallback: true,
			Err:      err,
		}
	}
	outline.Normalize()
	return Result[model.Outline]{Value: outline}
}

// FallbackOutline is the empty outline substituted when parsing fails.
func FallbackOutline(plan model.KeywordPlan) model.Outline {
	cs := plan.ContentStructure
	o := model.Outline{
		Metadata: model.OutlineMetadata{
			PrimaryKeyword:  plan.PrimaryKeyword.Keyword,
			H1:              cs.Title,
			MetaTitle:       cs.MetaTitle,
			MetaDescription: cs.MetaDescription,
			TargetLength:    cs.TargetLength,
		},
	}
	o.Normalize()
	return o
}
