package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/disclosure-cli/internal/model"
	"github.com/sells-group/disclosure-cli/internal/resilience"
)

// Summary counts batch outcomes. Oracle breakers are shared by every entity
// of a task, so CircuitOpen counts the subset of Failed that never reached
// the oracle because an earlier entity's errors had opened the breaker.
type Summary struct {
	Succeeded   int
	Failed      int
	CircuitOpen int
}

// Batch scores docs with at most concurrency entities in flight. A failing
// entity records its error in its outcome and does not stop the others.
// Outcomes are returned in input order.
func (p *Pipeline) Batch(ctx context.Context, docs []model.Document, concurrency int) ([]model.EntityOutcome, Summary) {
	if concurrency <= 0 {
		concurrency = 1
	}
	outcomes := make([]model.EntityOutcome, len(docs))
	if len(docs) == 0 {
		return outcomes, Summary{}
	}

	zap.L().Info("pipeline: batch starting",
		zap.Int("entities", len(docs)),
		zap.Int("concurrency", concurrency),
	)

	// Plain errgroup (no WithContext): one entity's failure must not cancel
	// its siblings.
	var g errgroup.Group
	g.SetLimit(concurrency)

	var succeeded, failed, open atomic.Int64

	for i, doc := range docs {
		g.Go(func() error {
			out, err := p.Run(ctx, doc)
			if err != nil {
				failed.Add(1)
				if eris.Is(err, resilience.ErrOpen) {
					open.Add(1)
				}
				zap.L().Error("pipeline: entity failed",
					zap.String("entity", doc.Entity),
					zap.String("period", doc.Period),
					zap.Error(err),
				)
				outcomes[i] = model.EntityOutcome{Entity: doc.Entity, Period: doc.Period, Err: err}
				return nil
			}
			succeeded.Add(1)
			outcomes[i] = *out
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{
		Succeeded:   int(succeeded.Load()),
		Failed:      int(failed.Load()),
		CircuitOpen: int(open.Load()),
	}
	zap.L().Info("pipeline: batch complete",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int("circuit_open", sum.CircuitOpen),
	)
	return outcomes, sum
}

// Rows returns the metric rows of successful outcomes, in order.
func Rows(outcomes []model.EntityOutcome) []model.EntityMetricRow {
	rows := make([]model.EntityMetricRow, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err == nil && o.Row != nil {
			rows = append(rows, *o.Row)
		}
	}
	return rows
}
