package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/quill/internal/model"
	"github.com/ashita-ai/quill/internal/service/generation"
)

type generateOptions struct {
	topic             string
	audience          string
	contentType       string
	words             int
	noFAQ             bool
	noKeywordResearch bool
	links             []string
	provider          string
	stream            bool
	jsonOutput        bool
	verbose           bool
}

var genOpts generateOptions

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one article in the terminal",
	Long: `Run the full pipeline once and print the article to stdout.

Progress is written to stderr, so the article can be redirected:

  quill generate --topic "remote work tools" --words 1800 > article.md

With --stream the article is printed as it is written. With --json the
complete result (article, outline, keyword plan, references, metadata)
is printed instead of the article text.

Internal links use the form url|title|relevance, where relevance is
high, medium or low (default medium):

  --link "/pricing|Pricing|high" --link "/blog/async|Async work"`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&genOpts.topic, "topic", "", "Article topic (required)")
	f.StringVar(&genOpts.audience, "audience", "", "Target audience")
	f.StringVar(&genOpts.contentType, "type", "", "Content type hint, e.g. guide, listicle, comparison")
	f.IntVar(&genOpts.words, "words", 0, "Target word count (500-10000)")
	f.BoolVar(&genOpts.noFAQ, "no-faq", false, "Leave out the FAQ section")
	f.BoolVar(&genOpts.noKeywordResearch, "no-keyword-research", false, "Skip the keyword suggestion lookup")
	f.StringArrayVar(&genOpts.links, "link", nil, "Internal link as url|title|relevance (repeatable)")
	f.StringVar(&genOpts.provider, "provider", "", "Generation backend: claude, openai or gemini")
	f.BoolVar(&genOpts.stream, "stream", false, "Print the article as it is generated")
	f.BoolVar(&genOpts.jsonOutput, "json", false, "Print the full result as JSON")
	f.BoolVarP(&genOpts.verbose, "verbose", "v", false, "Log pipeline details to stderr")
	_ = generateCmd.MarkFlagRequired("topic")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	req, err := genOpts.request()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	level := "warn"
	if genOpts.verbose {
		level = "debug"
	}
	logger := newLogger(cmd.ErrOrStderr(), level, false)

	svc, err := newService(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	var result model.GenerationResult
	if genOpts.stream {
		sink := &terminalSink{out: out, errOut: errOut, echoChunks: !genOpts.jsonOutput}
		if err := svc.Stream(ctx, req, sink); err != nil {
			return err
		}
		result = sink.result
	} else {
		printDetail(errOut, "generating with %s (this takes a few minutes)...", providerLabel(svc, req.Provider))
		result, err = svc.Generate(ctx, req)
		if err != nil {
			return err
		}
		if !genOpts.jsonOutput {
			fmt.Fprintln(out, result.Article.Content)
		}
	}

	if genOpts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}
	printSummary(errOut, result)
	return nil
}

// request builds the generation request from the flags. Link syntax is
// checked here; everything else is left to request validation.
func (o generateOptions) request() (model.GenerateRequest, error) {
	req := model.GenerateRequest{
		Topic:           o.topic,
		TargetAudience:  o.audience,
		ContentType:     o.contentType,
		TargetWordCount: o.words,
		Provider:        o.provider,
	}
	if o.noFAQ {
		req.IncludeFAQ = new(bool)
	}
	if o.noKeywordResearch {
		req.IncludeKeywordResearch = new(bool)
	}
	for _, raw := range o.links {
		link, err := parseLink(raw)
		if err != nil {
			return model.GenerateRequest{}, err
		}
		req.InternalLinks = append(req.InternalLinks, link)
	}
	return req, nil
}

func parseLink(raw string) (model.InternalLink, error) {
	parts := strings.Split(raw, "|")
	if len(parts) < 2 || len(parts) > 3 {
		return model.InternalLink{}, model.NewValidationError("link", "%q must be url|title or url|title|relevance", raw)
	}
	link := model.InternalLink{URL: strings.TrimSpace(parts[0]), Title: strings.TrimSpace(parts[1])}
	if len(parts) == 3 {
		link.Relevance = model.Priority(strings.ToLower(strings.TrimSpace(parts[2])))
	}
	return link, nil
}

func providerLabel(svc *generation.Service, requested string) string {
	if requested != "" {
		return requested
	}
	return svc.Providers().Default()
}

// terminalSink renders a streaming run: progress on errOut, article text
// on out. The terminal error event is not printed here; Stream returns the
// same failure and the root command reports it.
type terminalSink struct {
	out, errOut io.Writer
	echoChunks  bool
	inArticle   bool
	result      model.GenerationResult
}

func (s *terminalSink) Emit(e model.StreamEvent) error {
	switch e.Type {
	case model.EventProgress:
		if s.inArticle && s.echoChunks {
			// Keep progress off the article's last line.
			fmt.Fprintln(s.out)
			s.inArticle = false
		}
		printProgress(s.errOut, *e.Progress)
	case model.EventChunk:
		s.inArticle = true
		if s.echoChunks {
			if _, err := io.WriteString(s.out, e.Chunk.Text); err != nil {
				return err
			}
		}
	case model.EventComplete:
		s.result = *e.Result
	}
	return nil
}

func printSummary(w io.Writer, res model.GenerationResult) {
	md := res.Metadata
	printSuccess(w, "%d words, %s read, %d references", res.Article.WordCount, res.Article.ReadingTime, len(res.References))
	tokens := fmt.Sprintf("%d", md.Tokens.Total)
	if md.Tokens.ArticleEstimated {
		tokens = "~" + tokens
	}
	printDetail(w, "provider %s, %s tokens, %.1fs, run %s", md.Provider, tokens, float64(md.DurationMs)/1000, md.RunID)
	if md.ResearchDegraded {
		printWarning(w, "search research was unavailable; the article is not grounded in live results")
	}
	if len(md.Fallbacks) > 0 {
		printWarning(w, "fallbacks used: %s", strings.Join(md.Fallbacks, ", "))
	}
}
