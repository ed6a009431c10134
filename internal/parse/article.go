package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ashita-ai/quill/internal/model"
)

// WordsPerMinute is the reading speed behind ReadingTime.
const WordsPerMinute = 200

var (
	referencesHeading = regexp.MustCompile(`(?i)^\s*(#{1,6}\s*|\*\*)\s*references\b.*$`)
	anyHeading        = regexp.MustCompile(`^\s*#{1,6}\s`)
	numberedLine      = regexp.MustCompile(`^\s*\d+[.)]\s`)
	markdownLink      = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	markdownChars     = strings.NewReplacer("#", "", "*", "", "_", "", "`", "", "[", "", "]", "", "(", "", ")", "")
)

// References extracts citations from the last section whose heading starts
// with "References", such as "## References" or "## References and Sources". Only numbered lines carrying a [label](url) link count; numbers
// are reassigned from 1 in order of appearance. Returns an empty slice
// when there is no such section.
func References(article string) []model.Reference {
	lines := strings.Split(article, "\n")
	start := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if referencesHeading.MatchString(lines[i]) {
			start = i + 1
			break
		}
	}
	refs := []model.Reference{}
	if start < 0 {
		return refs
	}
	for _, line := range lines[start:] {
		if anyHeading.MatchString(line) {
			break
		}
		if !numberedLine.MatchString(line) {
			continue
		}
		m := markdownLink.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		refs = append(refs, model.Reference{
			Number: len(refs) + 1,
			Source: strings.TrimSpace(m[1]),
			URL:    m[2],
		})
	}
	return refs
}

// WordCount counts whitespace-separated tokens after stripping markdown
// formatting characters.
func WordCount(text string) int {
	return len(strings.Fields(markdownChars.Replace(text)))
}

// ReadingTime formats the reading time for words as "<n> min", rounding up.
func ReadingTime(words int) string {
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	return fmt.Sprintf("%d min", minutes)
}

// Article derives the article record from its full text.
func Article(text string) model.Article {
	words := WordCount(text)
	return model.Article{
		Content:     text,
		WordCount:   words,
		ReadingTime: ReadingTime(words),
	}
}
