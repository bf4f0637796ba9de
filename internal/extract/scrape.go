package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/disclosure-cli/internal/chunk"
	"github.com/sells-group/disclosure-cli/internal/fetcher"
	"github.com/sells-group/disclosure-cli/internal/model"
)

// DefaultPeriod is used for link rows without a year.
const DefaultPeriod = "2024"

// Link is one row of the report links file.
type Link struct {
	Entity  string
	Company string
	Period  string
	URL     string
	Format  string
}

// ReadLinks parses a links CSV with columns ticker, company_name, year,
// report_url and an optional format.
func ReadLinks(path string) ([]Link, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: open links %s", path)
	}
	defer f.Close() //nolint:errcheck

	header, rows, err := fetcher.ReadCSV(f, fetcher.CSVOptions{TrimSpace: true, LazyQuotes: true})
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read links %s", path)
	}
	col := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}
	ticker, url := col("ticker"), col("report_url")
	if ticker < 0 || url < 0 {
		return nil, eris.Errorf("extract: links %s needs ticker and report_url columns", path)
	}
	company, year, format := col("company_name"), col("year"), col("format")

	get := func(rec []string, i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	links := make([]Link, 0, len(rows))
	for _, rec := range rows {
		l := Link{
			Entity:  get(rec, ticker),
			Company: get(rec, company),
			Period:  get(rec, year),
			URL:     get(rec, url),
			Format:  get(rec, format),
		}
		if l.Period == "" {
			l.Period = DefaultPeriod
		}
		links = append(links, l)
	}
	return links, nil
}

// Scraper downloads each linked report, extracts its text and writes one
// chunk file per entity.
type Scraper struct {
	Fetcher     fetcher.Fetcher
	PDF         Extractor
	OutDir      string
	RawDir      string // when set, extracted text is also kept here
	Width       int
	Concurrency int
}

// ScrapeSummary counts scrape outcomes.
type ScrapeSummary struct {
	Written int
	Skipped int
	Failed  int
}

// Run processes links. Rows with an existing output file are skipped;
// failures are logged and do not stop the run.
func (s *Scraper) Run(ctx context.Context, links []Link) (ScrapeSummary, error) {
	if err := os.MkdirAll(s.OutDir, 0o755); err != nil {
		return ScrapeSummary{}, eris.Wrapf(err, "extract: create %s", s.OutDir)
	}
	conc := s.Concurrency
	if conc <= 0 {
		conc = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conc)

	var written, skipped, failed atomic.Int64
	for i, l := range links {
		g.Go(func() error {
			log := zap.L().With(zap.Int("row", i), zap.String("entity", l.Entity), zap.String("url", l.URL))

			out, err := s.one(gctx, l)
			switch {
			case err != nil:
				failed.Add(1)
				log.Warn("scrape: row failed", zap.Error(err))
			case out == "":
				skipped.Add(1)
			default:
				written.Add(1)
				log.Info("scrape: wrote chunks", zap.String("path", out))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ScrapeSummary{}, eris.Wrap(err, "extract: scrape")
	}

	sum := ScrapeSummary{Written: int(written.Load()), Skipped: int(skipped.Load()), Failed: int(failed.Load())}
	zap.L().Info("scrape: complete",
		zap.Int("written", sum.Written),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

// one returns the written path, or "" when the row was skipped.
func (s *Scraper) one(ctx context.Context, l Link) (string, error) {
	entity := SafeFilename(l.Entity)
	if entity == "" || l.URL == "" {
		zap.L().Info("scrape: missing ticker or url, skipping", zap.String("entity", l.Entity))
		return "", nil
	}
	period := SafeFilename(l.Period)

	outPath := filepath.Join(s.OutDir, chunk.ChunkFileName(entity, period))
	if _, err := os.Stat(outPath); err == nil {
		zap.L().Info("scrape: already processed", zap.String("path", outPath))
		return "", nil
	}

	doc, err := s.Fetcher.Download(ctx, l.URL)
	if err != nil {
		return "", err
	}

	format := GuessFormat(l.URL, l.Format)
	if l.Format == "" {
		if f, ok := FormatFromContentType(doc.ContentType); ok {
			format = f
		}
	}

	var ext Extractor
	switch format {
	case FormatPDF:
		ext = s.PDF
	case FormatHTML:
		if b := DetectBlock(doc.Body); b != BlockNone {
			return "", eris.Errorf("extract: %s served a %s page", l.URL, b)
		}
		ext = HTML{ContentType: doc.ContentType}
	default:
		if strings.HasSuffix(strings.ToLower(l.URL), ".pdf") {
			ext = s.PDF
		} else {
			ext = HTML{ContentType: doc.ContentType}
		}
	}

	text, err := ext.Extract(ctx, doc.Body)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", eris.Errorf("extract: empty text from %s", l.URL)
	}

	if s.RawDir != "" {
		if err := writeRaw(s.RawDir, entity, period, text); err != nil {
			zap.L().Warn("scrape: keep raw text failed", zap.Error(err))
		}
	}

	segs := chunk.Segments(entity, period, text, s.Width)
	if len(segs) == 0 {
		return "", eris.Errorf("extract: no segments from %s", l.URL)
	}
	return chunk.WriteChunkFile(s.OutDir, model.Document{Entity: entity, Period: period, Source: l.URL, Segments: segs})
}

func writeRaw(dir, entity, period, text string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "extract: create %s", dir)
	}
	p := filepath.Join(dir, entity+"_"+period+".txt")
	return eris.Wrapf(os.WriteFile(p, []byte(text), 0o644), "extract: write %s", p)
}
