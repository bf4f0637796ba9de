package merge

import (
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/internal/fetcher"
	"github.com/sells-group/disclosure-cli/internal/model"
)

// fileKeyColumns hold chunk file names when the ticker column is absent.
var fileKeyColumns = []string{"file", "name"}

// ReadMetricsCSV parses metric rows written in model.MetricColumns order.
// Columns are matched by name; a "file" or "name" column is accepted in
// place of the key and resolved with EntityFromName. Missing or blank
// numbers read as 0.
func ReadMetricsCSV(r io.Reader) ([]model.EntityMetricRow, error) {
	header, rows, err := fetcher.ReadCSV(r, fetcher.CSVOptions{TrimSpace: true})
	if err != nil {
		return nil, eris.Wrap(err, "merge: read metrics")
	}
	if header == nil {
		return nil, nil
	}

	keyIdx := indexFold(header, KeyColumn)
	fromFile := false
	if keyIdx < 0 {
		for _, c := range fileKeyColumns {
			if keyIdx = indexFold(header, c); keyIdx >= 0 {
				break
			}
		}
		if keyIdx < 0 {
			return nil, eris.Wrap(ErrMissingKeyColumn, "merge: metrics has no ticker, file or name column")
		}
		fromFile = true
	}

	idx := make(map[string]int, len(model.MetricColumns))
	for _, c := range model.MetricColumns[1:] {
		idx[c] = indexFold(header, c)
	}
	num := func(rec []string, col string) (float64, error) {
		i := idx[col]
		if i < 0 || i >= len(rec) || strings.TrimSpace(rec[i]) == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		if err != nil {
			return 0, eris.Wrapf(err, "merge: metrics column %s", col)
		}
		return v, nil
	}

	out := make([]model.EntityMetricRow, 0, len(rows))
	for line, rec := range rows {
		if keyIdx >= len(rec) {
			continue
		}
		entity := NormalizeKey(rec[keyIdx])
		if fromFile {
			entity = EntityFromName(rec[keyIdx])
		}
		if entity == "" {
			continue
		}

		var (
			vals [8]float64
			err  error
		)
		for j, c := range model.MetricColumns[1:] {
			if vals[j], err = num(rec, c); err != nil {
				return nil, eris.Wrapf(err, "merge: metrics row %d", line+2)
			}
		}
		out = append(out, model.EntityMetricRow{
			Entity:      entity,
			Relatedness: vals[0],
			Specificity: vals[1],
			Severity:    vals[2],
			Commitment:  vals[3],
			Categories: model.CategoryShares{
				Metrics:    vals[4],
				Strategy:   vals[5],
				Governance: vals[6],
				Risk:       vals[7],
			},
		})
	}
	return out, nil
}
