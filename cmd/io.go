package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/internal/chunk"
	"github.com/sells-group/disclosure-cli/internal/fetcher"
	"github.com/sells-group/disclosure-cli/internal/model"
	"github.com/sells-group/disclosure-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

// createOutput opens path for writing, or stdout when path is "" or "-".
func createOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "create dir %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "create %s", path)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// writeCSVFile writes header and rows to path (stdout for "" or "-").
func writeCSVFile(path string, header []string, rows [][]string) error {
	w, err := createOutput(path)
	if err != nil {
		return err
	}
	if err := fetcher.WriteCSV(w, header, rows); err != nil {
		w.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(w.Close(), "close %s", path)
}

// loadDocuments reads a chunk directory, or a single chunk file when path
// is not a directory.
func loadDocuments(path string) ([]model.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "stat %s", path)
	}
	if info.IsDir() {
		return chunk.LoadDir(path)
	}

	entity, period, ok := chunk.ParseChunkFileName(path)
	if !ok {
		return nil, eris.Errorf("%s is not a <TICKER>_<YEAR>_chunks.txt file", path)
	}
	segs, err := chunk.ReadFile(path)
	if err != nil {
		return nil, err
	}
	for i := range segs {
		segs[i].Entity, segs[i].Period = entity, period
	}
	return []model.Document{{Entity: entity, Period: period, Source: path, Segments: segs}}, nil
}
