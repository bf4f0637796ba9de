package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sells-group/disclosure-cli/internal/config"
	"github.com/sells-group/disclosure-cli/internal/keywords"
	"github.com/sells-group/disclosure-cli/internal/model"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Count green and red disclosure terms per company",
	RunE: func(cmd *cobra.Command, _ []string) error {
		chunks, _ := cmd.Flags().GetString("chunks")
		if chunks == "" {
			chunks = cfg.Scrape.OutDir
		}
		out, _ := cmd.Flags().GetString("out")

		docs, err := loadDocuments(chunks)
		if err != nil {
			return err
		}
		terms, err := resolveTerms(cfg.Keywords)
		if err != nil {
			return err
		}
		green, err := keywords.NewMatcher(terms.Green)
		if err != nil {
			return err
		}
		red, err := keywords.NewMatcher(terms.Red)
		if err != nil {
			return err
		}

		stats := keywords.Compute(docs, green, red)
		rows := make([][]string, len(stats))
		for i, s := range stats {
			rows[i] = s.Values()
		}
		return writeCSVFile(out, keywords.StatsColumns, rows)
	},
}

var wordfreqCmd = &cobra.Command{
	Use:   "wordfreq",
	Short: "List the most frequent words across chunk files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		chunks, _ := cmd.Flags().GetString("chunks")
		if chunks == "" {
			chunks = cfg.Scrape.OutDir
		}
		out, _ := cmd.Flags().GetString("out")
		top, _ := cmd.Flags().GetInt("top")
		if !cmd.Flags().Changed("top") {
			top = cfg.Keywords.TopN
		}

		docs, err := loadDocuments(chunks)
		if err != nil {
			return err
		}
		counts := keywords.WordFrequency(segmentTexts(docs), top)
		rows := make([][]string, len(counts))
		for i, wc := range counts {
			rows[i] = []string{wc.Word, strconv.Itoa(wc.Count)}
		}
		return writeCSVFile(out, []string{"word", "count"}, rows)
	},
}

// resolveTerms prefers the terms file, then the inline lists, then the
// built-in defaults.
func resolveTerms(kc config.KeywordsConfig) (keywords.Terms, error) {
	if kc.TermsFile != "" {
		return keywords.LoadTerms(kc.TermsFile)
	}
	t := keywords.Terms{Green: kc.Green, Red: kc.Red}
	if len(t.Green) == 0 {
		t.Green = keywords.DefaultGreen
	}
	if len(t.Red) == 0 {
		t.Red = keywords.DefaultRed
	}
	return t, nil
}

func segmentTexts(docs []model.Document) []string {
	var texts []string
	for _, d := range docs {
		for _, s := range d.Segments {
			texts = append(texts, s.Content)
		}
	}
	return texts
}

func init() {
	keywordsCmd.Flags().String("chunks", "", "chunk directory or single chunk file (defaults to scrape.out_dir)")
	keywordsCmd.Flags().String("out", "-", "output CSV (- for stdout)")

	wordfreqCmd.Flags().String("chunks", "", "chunk directory or single chunk file (defaults to scrape.out_dir)")
	wordfreqCmd.Flags().String("out", "-", "output CSV (- for stdout)")
	wordfreqCmd.Flags().Int("top", 50, "number of words to list (0 for all)")

	rootCmd.AddCommand(keywordsCmd)
	rootCmd.AddCommand(wordfreqCmd)
}
