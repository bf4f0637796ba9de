package chunk

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/fetcher"
	"github.com/sells-group/disclosure-cli/internal/model"
)

// ReportsOptions configures ReadReportsCSV.
type ReportsOptions struct {
	KeyColumn    string // default "ticker"
	TextColumn   string // default "preprocessed_content"
	PeriodColumn string // optional
	Width        int
}

// ReadReportsCSV reads a reports CSV with one document per row and chunks
// each row's text column. Rows with empty text yield a Document with no
// segments so group positions stay aligned with the input rows.
func ReadReportsCSV(ctx context.Context, r io.Reader, opts ReportsOptions) ([]model.Document, error) {
	if opts.KeyColumn == "" {
		opts.KeyColumn = "ticker"
	}
	if opts.TextColumn == "" {
		opts.TextColumn = "preprocessed_content"
	}

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader:  true,
		HeaderCh:   headerCh,
		LazyQuotes: true,
	})

	var header []string
	var docs []model.Document
	keyIdx, textIdx, periodIdx := -1, -1, -1

	for row := range rowCh {
		if header == nil {
			header = <-headerCh
			keyIdx = columnIndex(header, opts.KeyColumn)
			textIdx = columnIndex(header, opts.TextColumn)
			if opts.PeriodColumn != "" {
				periodIdx = columnIndex(header, opts.PeriodColumn)
			}
			if textIdx < 0 {
				drain(rowCh)
				return nil, eris.Errorf("chunk: reports csv has no %q column", opts.TextColumn)
			}
		}

		doc := model.Document{}
		if keyIdx >= 0 && keyIdx < len(row) {
			doc.Entity = strings.TrimSpace(row[keyIdx])
		}
		if periodIdx >= 0 && periodIdx < len(row) {
			doc.Period = strings.TrimSpace(row[periodIdx])
		}
		if textIdx < len(row) {
			doc.Segments = Segments(doc.Entity, doc.Period, row[textIdx], opts.Width)
		}
		docs = append(docs, doc)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "chunk: read reports csv")
	}
	return docs, nil
}

// WriteDataset writes docs as segment groups to path, creating parent
// directories as needed.
func WriteDataset(path string, docs []model.Document) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "chunk: create dir %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "chunk: create %s", path)
	}

	groups := make([][]model.Segment, len(docs))
	for i, d := range docs {
		groups[i] = d.Segments
	}
	if err := WriteGroups(f, groups); err != nil {
		f.Close() //nolint:errcheck
		return err
	}

	zap.L().Info("chunk: wrote dataset",
		zap.String("path", path),
		zap.Int("documents", len(docs)),
	)
	return eris.Wrapf(f.Close(), "chunk: close %s", path)
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func drain(ch <-chan []string) {
	for range ch {
	}
}
