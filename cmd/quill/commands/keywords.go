package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/quill/internal/model"
	"github.com/ashita-ai/quill/internal/research"
)

var (
	kwRelated bool
	kwLimit   int
	kwJSON    bool
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords <seed phrase>",
	Short: "Look up keyword suggestions for a seed phrase",
	Long: `Query the research provider for keywords around a seed phrase.

By default this returns long-tail suggestions that contain the seed. With
--related it returns semantically related keywords instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKeywords,
}

func init() {
	keywordsCmd.Flags().BoolVar(&kwRelated, "related", false, "Return related keywords instead of suggestions")
	keywordsCmd.Flags().IntVar(&kwLimit, "limit", research.DefaultLimit, "Maximum number of keywords (1-100)")
	keywordsCmd.Flags().BoolVar(&kwJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(keywordsCmd)
}

func runKeywords(cmd *cobra.Command, args []string) error {
	seed := strings.TrimSpace(strings.Join(args, " "))
	if kwLimit < 1 || kwLimit > 100 {
		return model.NewValidationError("limit", "must be between 1 and 100, got %d", kwLimit)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), "warn", false)
	rc := newResearchClient(cfg.DataForSEO, logger)
	if !rc.Configured() {
		return fmt.Errorf("keywords: DATAFORSEO_LOGIN and DATAFORSEO_PASSWORD are required")
	}

	lookup := model.KeywordLookup{Seed: seed, Kind: model.KeywordKindSuggestions}
	if kwRelated {
		lookup.Kind = model.KeywordKindRelated
		lookup.Keywords, err = rc.FetchRelatedKeywords(cmd.Context(), seed, research.Locale{}, kwLimit)
	} else {
		lookup.Keywords, err = rc.FetchKeywordSuggestions(cmd.Context(), seed, research.Locale{}, kwLimit)
	}
	if err != nil {
		return err
	}

	if kwJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(lookup)
	}
	writeKeywordTable(cmd.OutOrStdout(), lookup.Keywords)
	return nil
}

func writeKeywordTable(w io.Writer, list []model.KeywordSuggestion) {
	if len(list) == 0 {
		printWarning(w, "no keywords found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEYWORD\tVOLUME\tCOMPETITION\tCPC\tDIFFICULTY")
	for _, k := range list {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.2f\t%d\n", k.Keyword, k.SearchVolume, k.Competition, k.CPC, k.Difficulty)
	}
	_ = tw.Flush()
}
