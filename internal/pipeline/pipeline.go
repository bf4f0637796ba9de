// Package pipeline chains the funnel stages for one entity and fans entities
// out across a bounded worker group.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/config"
	"github.com/sells-group/disclosure-cli/internal/funnel"
	"github.com/sells-group/disclosure-cli/internal/metric"
	"github.com/sells-group/disclosure-cli/internal/model"
	"github.com/sells-group/disclosure-cli/internal/oracle"
)

// Pipeline runs the relatedness filter and then every downstream stage on
// the related segments.
type Pipeline struct {
	stages  []*funnel.Stage
	agg     *metric.Aggregator
	dumpDir string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDumpDir writes each stage's forwarded segments under dir.
func WithDumpDir(dir string) Option {
	return func(p *Pipeline) { p.dumpDir = dir }
}

// New builds a pipeline. The first stage must be relatedness; the other
// stages may be any subset of the remaining tasks, each at most once.
func New(stages []*funnel.Stage, opts ...Option) (*Pipeline, error) {
	if len(stages) == 0 || stages[0].Task() != model.TaskRelatedness {
		return nil, eris.New("pipeline: first stage must be relatedness")
	}
	seen := make(map[model.Task]bool, len(stages))
	p := &Pipeline{stages: stages, agg: metric.NewAggregator()}
	for _, s := range stages {
		if seen[s.Task()] {
			return nil, eris.Errorf("pipeline: duplicate %s stage", s.Task())
		}
		seen[s.Task()] = true
		if s.Task() == model.TaskSentiment {
			p.agg.SeverityWeights = s.Config().Weights
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// FromConfig builds one stage per task with oracles from factory.
func FromConfig(cfg *config.Config, factory *oracle.Factory) (*Pipeline, error) {
	stages := make([]*funnel.Stage, 0, len(model.AllTasks()))
	for _, task := range model.AllTasks() {
		o, err := factory.For(task, cfg.Stage(task).Model)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: build %s oracle", task)
		}
		st, err := funnel.NewStage(funnel.FromConfig(cfg, task), o)
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return New(stages, WithDumpDir(cfg.Funnel.DumpDir))
}

// Run scores one document. Stages run in order; every stage after the first
// sees only the segments relatedness forwarded.
func (p *Pipeline) Run(ctx context.Context, doc model.Document) (*model.EntityOutcome, error) {
	log := zap.L().With(zap.String("entity", doc.Entity), zap.String("period", doc.Period))
	start := time.Now()

	results := make(map[model.Task]*model.FunnelResult, len(p.stages))

	related, err := p.runStage(ctx, p.stages[0], doc, doc.Segments)
	if err != nil {
		return nil, err
	}
	results[model.TaskRelatedness] = related

	for _, st := range p.stages[1:] {
		res, err := p.runStage(ctx, st, doc, related.Forwarded)
		if err != nil {
			return nil, err
		}
		results[st.Task()] = res
	}

	row := p.agg.Aggregate(doc.Entity, doc.Period, results)
	log.Info("pipeline: entity scored",
		zap.Int("segments", len(doc.Segments)),
		zap.Int("related", len(related.Forwarded)),
		zap.Float64("relate", row.Relatedness),
		zap.Float64("senti", row.Severity),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &model.EntityOutcome{
		Entity:  doc.Entity,
		Period:  doc.Period,
		Row:     &row,
		Results: results,
	}, nil
}

func (p *Pipeline) runStage(ctx context.Context, st *funnel.Stage, doc model.Document, segs []model.Segment) (*model.FunnelResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrapf(err, "pipeline: %s %s", doc.Entity, st.Task())
	}
	res, err := st.Run(ctx, segs)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: %s %s", doc.Entity, st.Task())
	}
	if p.dumpDir != "" {
		if _, err := funnel.DumpForwarded(p.dumpDir, doc.Entity, doc.Period, res); err != nil {
			zap.L().Warn("pipeline: dump forwarded segments failed",
				zap.String("entity", doc.Entity),
				zap.String("task", string(st.Task())),
				zap.Error(err),
			)
		}
	}
	return res, nil
}
