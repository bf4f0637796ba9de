package merge

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/model"
)

// Options controls Merge.
type Options struct {
	Policy Policy
}

// Merge deduplicates the metric rows, inner-joins them with esg and
// left-joins the result with emissions. A nil reference table skips its
// join.
func Merge(rows []model.EntityMetricRow, esg, emissions *Table, opts Options) (Table, error) {
	if opts.Policy == "" {
		opts.Policy = KeepFirst
	}
	if opts.Policy != KeepFirst && opts.Policy != KeepLast {
		return Table{}, eris.Errorf("merge: unknown duplicate policy %q", opts.Policy)
	}

	out := Dedupe(MetricsTable(rows), opts.Policy)
	total := len(out.Rows)

	if esg != nil {
		out = InnerJoin(out, Dedupe(*esg, opts.Policy))
	}
	if emissions != nil {
		out = LeftJoin(out, Dedupe(*emissions, opts.Policy))
	}

	zap.L().Info("merge: tables joined",
		zap.Int("metric_rows", len(rows)),
		zap.Int("entities", total),
		zap.Int("output_rows", len(out.Rows)),
		zap.Bool("esg", esg != nil),
		zap.Bool("emissions", emissions != nil),
	)
	return out, nil
}
