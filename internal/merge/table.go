// Package merge joins per-entity metric rows with reference tables on a
// normalized entity key.
package merge

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/disclosure-cli/internal/fetcher"
	"github.com/sells-group/disclosure-cli/internal/model"
)

// KeyColumn is the key column name of every table this package produces.
const KeyColumn = "ticker"

// Policy selects which row survives when a key repeats.
type Policy string

const (
	KeepFirst Policy = "first"
	KeepLast  Policy = "last"
)

// ParsePolicy converts a config value into a Policy. Empty means KeepFirst.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", KeepFirst:
		return KeepFirst, nil
	case KeepLast:
		return KeepLast, nil
	default:
		return "", eris.Errorf("merge: unknown duplicate policy %q", s)
	}
}

// Row is one keyed record. Values align with the owning table's Columns;
// an empty string is a missing value.
type Row struct {
	Key    string
	Values []string
}

// Table is a keyed flat table.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Header returns the key column followed by the value columns.
func (t Table) Header() []string {
	return append([]string{KeyColumn}, t.Columns...)
}

// Records returns each row as key followed by its values.
func (t Table) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = append([]string{r.Key}, r.Values...)
	}
	return out
}

// Keys returns the row keys in order.
func (t Table) Keys() []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Key
	}
	return out
}

// Column returns the value of column name for the row with key.
func (t Table) Column(key, name string) (string, bool) {
	ci := indexFold(t.Columns, name)
	if ci < 0 {
		return "", false
	}
	for _, r := range t.Rows {
		if r.Key == key {
			return r.Values[ci], true
		}
	}
	return "", false
}

// NormalizeKey trims and upper-cases an entity key.
func NormalizeKey(s string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}

// EntityFromName derives an entity key from a file name such as
// "xel_2024_chunks.txt". The period is taken from the right, so tickers
// like "bf_b" survive.
func EntityFromName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if ext := filepath.Ext(base); !strings.Contains(ext, "_") {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.TrimSuffix(base, "_chunks")
	if i := strings.LastIndexByte(base, '_'); i > 0 {
		base = base[:i]
	}
	return NormalizeKey(base)
}

// MetricsTable converts entity rows into a table keyed by normalized entity.
func MetricsTable(rows []model.EntityMetricRow) Table {
	t := Table{Name: "metrics", Columns: append([]string(nil), model.MetricColumns[1:]...)}
	for _, r := range rows {
		vals := r.Values()
		t.Rows = append(t.Rows, Row{Key: NormalizeKey(vals[0]), Values: vals[1:]})
	}
	return t
}

// Dedupe keeps one row per key. KeepFirst retains the first occurrence;
// KeepLast retains the last occurrence's values at the first occurrence's
// position. Every dropped row is logged.
func Dedupe(t Table, policy Policy) Table {
	out := Table{Name: t.Name, Columns: t.Columns}
	pos := make(map[string]int, len(t.Rows))
	for _, r := range t.Rows {
		i, dup := pos[r.Key]
		if !dup {
			pos[r.Key] = len(out.Rows)
			out.Rows = append(out.Rows, r)
			continue
		}
		zap.L().Warn("merge: duplicate entity key",
			zap.String("table", t.Name),
			zap.String("key", r.Key),
			zap.String("policy", string(policy)),
		)
		if policy == KeepLast {
			out.Rows[i] = r
		}
	}
	return out
}

// InnerJoin keeps the left rows whose key appears in right and appends the
// right columns. right should already be deduplicated; its first row per key
// is used.
func InnerJoin(left, right Table) Table {
	return join(left, right, false)
}

// LeftJoin keeps every left row; keys absent from right get empty cells.
func LeftJoin(left, right Table) Table {
	return join(left, right, true)
}

func join(left, right Table, keepMissing bool) Table {
	index := make(map[string][]string, len(right.Rows))
	for _, r := range right.Rows {
		if _, ok := index[r.Key]; !ok {
			index[r.Key] = r.Values
		}
	}

	out := Table{Name: left.Name, Columns: joinColumns(left, right)}
	empty := make([]string, len(right.Columns))
	for _, l := range left.Rows {
		rv, ok := index[l.Key]
		if !ok {
			if !keepMissing {
				continue
			}
			rv = empty
		}
		vals := make([]string, 0, len(out.Columns))
		vals = append(vals, l.Values...)
		vals = append(vals, rv...)
		out.Rows = append(out.Rows, Row{Key: l.Key, Values: vals})
	}
	return out
}

// joinColumns suffixes right columns that collide with left ones.
func joinColumns(left, right Table) []string {
	cols := append([]string(nil), left.Columns...)
	for _, c := range right.Columns {
		if indexFold(cols, c) >= 0 && right.Name != "" {
			c = c + "_" + right.Name
		}
		cols = append(cols, c)
	}
	return cols
}

// WriteCSV writes the table with the key column first.
func WriteCSV(w io.Writer, t Table) error {
	return eris.Wrap(fetcher.WriteCSV(w, t.Header(), t.Records()), "merge: write table")
}

func indexFold(cols []string, name string) int {
	for i, c := range cols {
		if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}
