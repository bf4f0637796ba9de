package merge

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/internal/fetcher"
)

var (
	// ErrMissingKeyColumn means none of the key candidates is in the header.
	ErrMissingKeyColumn = eris.New("merge: reference table has no entity key column")
	// ErrMissingColumn means a requested column is not in the header.
	ErrMissingColumn = eris.New("merge: reference table is missing a column")
)

// DefaultKeyCandidates are the header names accepted as the entity key.
var DefaultKeyCandidates = []string{"ticker", "symbol"}

// LoadReference reads a CSV or XLSX reference table. The key column is the
// first of keyCandidates found in the header (case-insensitive). When
// columns is non-empty only those columns are kept, in that order. Rows with
// a blank key are skipped.
func LoadReference(path string, keyCandidates, columns []string) (Table, error) {
	header, rows, err := readTabular(path)
	if err != nil {
		return Table{}, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return FromRecords(name, header, rows, keyCandidates, columns)
}

// FromRecords builds a keyed table from a header and data rows.
func FromRecords(name string, header []string, rows [][]string, keyCandidates, columns []string) (Table, error) {
	if len(keyCandidates) == 0 {
		keyCandidates = DefaultKeyCandidates
	}
	keyIdx := -1
	for _, k := range keyCandidates {
		if keyIdx = indexFold(header, k); keyIdx >= 0 {
			break
		}
	}
	if keyIdx < 0 {
		return Table{}, eris.Wrapf(ErrMissingKeyColumn, "merge: %s has none of %v", name, keyCandidates)
	}

	var colIdx []int
	if len(columns) > 0 {
		for _, c := range columns {
			i := indexFold(header, c)
			if i < 0 {
				return Table{}, eris.Wrapf(ErrMissingColumn, "merge: %s has no column %q", name, c)
			}
			colIdx = append(colIdx, i)
		}
	} else {
		for i := range header {
			if i != keyIdx {
				colIdx = append(colIdx, i)
			}
		}
	}

	t := Table{Name: name}
	for _, i := range colIdx {
		t.Columns = append(t.Columns, strings.TrimSpace(header[i]))
	}
	for _, rec := range rows {
		if keyIdx >= len(rec) {
			continue
		}
		key := NormalizeKey(rec[keyIdx])
		if key == "" {
			continue
		}
		vals := make([]string, len(colIdx))
		for j, i := range colIdx {
			if i < len(rec) {
				vals[j] = strings.TrimSpace(rec[i])
			}
		}
		t.Rows = append(t.Rows, Row{Key: key, Values: vals})
	}
	return t, nil
}

func readTabular(path string) ([]string, [][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	case ".csv", ".txt", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "merge: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return fetcher.ReadCSV(f, fetcher.CSVOptions{TrimSpace: true, LazyQuotes: true})
	default:
		return nil, nil, eris.Errorf("merge: unsupported reference format %s", path)
	}
}
