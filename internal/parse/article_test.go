package parse_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/quill/internal/model"
	"github.com/ashita-ai/quill/internal/parse"
)

const sampleArticle = `# Best Productivity Tools for Remote Teams

Productivity tools for remote teams keep work moving [1].

## References

Sources we used:

3. [Atlassian State of Teams](https://atlassian.com/teams)
- [Not numbered](https://example.com/skip)
7) Gallup survey with no link
12. [Gallup](https://gallup.com/workplace) and [Other](https://other.example)
`

func TestReferences(t *testing.T) {
	refs := parse.References(sampleArticle)
	assert.Equal(t, []model.Reference{
		{Number: 1, Source: "Atlassian State of Teams", URL: "https://atlassian.com/teams"},
		{Number: 2, Source: "Gallup", URL: "https://gallup.com/workplace"},
	}, refs)
}

func TestReferencesUsesLastSectionAndStopsAtNextHeading(t *testing.T) {
	text := "## References\n1. [Early](https://early.example)\n\n" +
		"## More\ntext\n\n" +
		"### references:\n1. [Late](https://late.example)\n## Appendix\n2. [After](https://after.example)\n"
	refs := parse.References(text)
	require.Len(t, refs, 1)
	assert.Equal(t, "Late", refs[0].Source)
}

func TestReferencesBoldHeading(t *testing.T) {
	refs := parse.References("body\n\n**References**\n1. [A](https://a.example)\n")
	require.Len(t, refs, 1)
	assert.Equal(t, "https://a.example", refs[0].URL)
}

func TestReferencesHeadingWithSuffix(t *testing.T) {
	for _, heading := range []string{"## References and Sources", "### REFERENCES & further reading", "**References used:**"} {
		refs := parse.References("body\n\n" + heading + "\n1. [A](https://a.example)\n")
		require.Len(t, refs, 1, heading)
		assert.Equal(t, "https://a.example", refs[0].URL)
	}
	assert.Empty(t, parse.References("## Referenced works\n1. [A](https://a.example)\n"))
}

func TestReferencesMissingSection(t *testing.T) {
	refs := parse.References("# Title\n\n1. [A](https://a.example)\n")
	assert.NotNil(t, refs)
	assert.Empty(t, refs)
}

func TestReferencesIdempotent(t *testing.T) {
	assert.Equal(t, parse.References(sampleArticle), parse.References(sampleArticle))
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   \n\t ", 0},
		{"one two three", 3},
		{"# Heading\n\n**bold** _it_ `code`", 4},
		{"see [the docs](https://x.example) now", 4},
		{"## ###\n*** ---", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parse.WordCount(tt.in), "input %q", tt.in)
	}
}

func TestReadingTime(t *testing.T) {
	assert.Equal(t, "0 min", parse.ReadingTime(0))
	assert.Equal(t, "1 min", parse.ReadingTime(1))
	assert.Equal(t, "1 min", parse.ReadingTime(200))
	assert.Equal(t, "2 min", parse.ReadingTime(201))
	assert.Equal(t, "13 min", parse.ReadingTime(2500))
}

func TestArticle(t *testing.T) {
	text := strings.Repeat("word ", 450)
	a := parse.Article(text)
	assert.Equal(t, text, a.Content)
	assert.Equal(t, 450, a.WordCount)
	assert.Equal(t, "3 min", a.ReadingTime)
}
