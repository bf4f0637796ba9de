package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/sells-group/disclosure-cli/internal/extract"
	"github.com/sells-group/disclosure-cli/internal/fetcher"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Download sustainability reports and write chunk files",
	Long: `Reads a links CSV (ticker, report_url, optional company_name, year
and format columns),
downloads each report once, extracts its text from PDF or HTML and writes
<TICKER>_<YEAR>_chunks.txt. Existing chunk files are skipped and failed rows
are logged without stopping the run.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		links, _ := cmd.Flags().GetString("links")
		if links == "" {
			links = cfg.Scrape.LinksCSV
		}
		if links == "" {
			return eris.New("scrape: --links or scrape.links_csv is required")
		}
		outDir, _ := cmd.Flags().GetString("out-dir")
		if outDir == "" {
			outDir = cfg.Scrape.OutDir
		}

		rows, err := extract.ReadLinks(links)
		if err != nil {
			return err
		}

		pdf, err := extract.NewPDFExtractor(cfg.Scrape.PDFProvider, cfg.Scrape.PdfToTextPath)
		if err != nil {
			return err
		}

		s := &extract.Scraper{
			Fetcher: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
				UserAgent: cfg.Scrape.UserAgent,
				Timeout:   time.Duration(cfg.Scrape.TimeoutSecs) * time.Second,
				HostRate:  rate.Limit(cfg.Scrape.HostRate),
			}),
			PDF:         pdf,
			OutDir:      outDir,
			RawDir:      cfg.Scrape.RawDir,
			Width:       cfg.Chunk.Width,
			Concurrency: cfg.Scrape.Concurrency,
		}

		sum, err := s.Run(cmd.Context(), rows)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "scrape: %d written, %d skipped, %d failed\n", sum.Written, sum.Skipped, sum.Failed)
		return nil
	},
}

func init() {
	scrapeCmd.Flags().String("links", "", "links CSV (defaults to scrape.links_csv)")
	scrapeCmd.Flags().String("out-dir", "", "chunk file directory (defaults to scrape.out_dir)")
	rootCmd.AddCommand(scrapeCmd)
}
