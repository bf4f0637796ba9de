// Package funnel turns oracle predictions into thresholded, weighted counts
// and forwards the segments that carry a chosen label to the next stage.
package funnel

import (
	"context"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/config"
	"github.com/sells-group/disclosure-cli/internal/metric"
	"github.com/sells-group/disclosure-cli/internal/model"
	"github.com/sells-group/disclosure-cli/internal/oracle"
)

var (
	// ErrInvalidStage reports a stage configuration that cannot be run.
	ErrInvalidStage = eris.New("funnel: invalid stage")
	// ErrUnknownLabel reports an oracle label outside the task vocabulary.
	ErrUnknownLabel = eris.New("funnel: label outside task vocabulary")
)

// DefaultThreshold is the minimum confidence a verdict needs to count.
const DefaultThreshold = 0.8

// DefaultBatchSize is the number of segments sent to the oracle per call.
const DefaultBatchSize = 32

// StageConfig parameterizes one funnel pass.
type StageConfig struct {
	Task      model.Task
	Threshold float64
	Weights   map[model.Label]float64
	KeepLabel model.Label // empty forwards nothing
	Aliases   map[string]model.Label
	BatchSize int
}

// DefaultStageConfig returns the conventional settings for task.
func DefaultStageConfig(task model.Task) StageConfig {
	return StageConfig{
		Task:      task,
		Threshold: DefaultThreshold,
		Weights:   task.DefaultWeights(),
		KeepLabel: task.DefaultKeepLabel(),
		Aliases:   task.LabelAliases(),
		BatchSize: DefaultBatchSize,
	}
}

// FromConfig resolves task's stage settings from application config.
func FromConfig(cfg *config.Config, task model.Task) StageConfig {
	sc := cfg.Stage(task)
	out := StageConfig{
		Task:      task,
		Threshold: sc.Threshold,
		Weights:   make(map[model.Label]float64, len(sc.Weights)),
		KeepLabel: model.Label(strings.ToLower(strings.TrimSpace(sc.KeepLabel))),
		Aliases:   make(map[string]model.Label, len(sc.Aliases)),
		BatchSize: cfg.Funnel.BatchSize,
	}
	for l, w := range sc.Weights {
		out.Weights[model.Label(strings.ToLower(l))] = w
	}
	for raw, l := range sc.Aliases {
		out.Aliases[strings.ToLower(raw)] = model.Label(strings.ToLower(l))
	}
	return out
}

// Validate checks the configuration against the task vocabulary.
func (c StageConfig) Validate() error {
	if len(c.Task.Labels()) == 0 {
		return eris.Wrapf(ErrInvalidStage, "funnel: unknown task %q", c.Task)
	}
	if math.IsNaN(c.Threshold) || c.Threshold < 0 || c.Threshold > 1 {
		return eris.Wrapf(ErrInvalidStage, "funnel: %s threshold %v outside [0,1]", c.Task, c.Threshold)
	}
	for l, w := range c.Weights {
		if !c.Task.Valid(l) {
			return eris.Wrapf(ErrInvalidStage, "funnel: %s weight for unknown label %q", c.Task, l)
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return eris.Wrapf(ErrInvalidStage, "funnel: %s weight %v for %q", c.Task, w, l)
		}
	}
	if c.KeepLabel != "" && !c.Task.Valid(c.KeepLabel) {
		return eris.Wrapf(ErrInvalidStage, "funnel: %s keep label %q", c.Task, c.KeepLabel)
	}
	for raw, l := range c.Aliases {
		if !c.Task.Valid(l) {
			return eris.Wrapf(ErrInvalidStage, "funnel: %s alias %q maps to unknown label %q", c.Task, raw, l)
		}
	}
	return nil
}

// MaxWeight returns the largest weight in the map, 0 when empty.
func (c StageConfig) MaxWeight() float64 {
	return metric.MaxWeight(c.Weights)
}

// ParseLabel maps a raw oracle label onto the task vocabulary.
func (c StageConfig) ParseLabel(raw string) (model.Label, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if l, ok := c.Aliases[key]; ok {
		return l, nil
	}
	if l, ok := c.Task.ParseLabel(key); ok {
		return l, nil
	}
	return "", eris.Wrapf(ErrUnknownLabel, "funnel: %s oracle returned %q", c.Task, raw)
}

// Stage is one configured funnel pass bound to an oracle.
type Stage struct {
	cfg    StageConfig
	oracle oracle.Oracle
}

// NewStage validates cfg and binds it to o.
func NewStage(cfg StageConfig, o oracle.Oracle) (*Stage, error) {
	if o == nil {
		return nil, eris.Wrap(ErrInvalidStage, "funnel: nil oracle")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Weights == nil {
		cfg.Weights = map[model.Label]float64{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Stage{cfg: cfg, oracle: o}, nil
}

// Task returns the stage's task.
func (s *Stage) Task() model.Task { return s.cfg.Task }

// Config returns the validated configuration.
func (s *Stage) Config() StageConfig { return s.cfg }

// Run classifies every segment once, in order, and aggregates the verdicts.
// Any oracle failure aborts the run.
func (s *Stage) Run(ctx context.Context, segs []model.Segment) (*model.FunnelResult, error) {
	verdicts := make([]model.Verdict, 0, len(segs))

	for start := 0; start < len(segs); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(segs))
		texts := make([]string, end-start)
		for i, seg := range segs[start:end] {
			texts[i] = seg.Content
		}

		preds, err := s.oracle.Classify(ctx, texts)
		if err != nil {
			return nil, eris.Wrapf(err, "funnel: %s classify segments %d-%d", s.cfg.Task, start, end-1)
		}
		if len(preds) != len(texts) {
			return nil, eris.Wrapf(oracle.ErrShortResult, "funnel: %s got %d predictions for %d segments", s.cfg.Task, len(preds), len(texts))
		}

		for _, p := range preds {
			v, err := s.verdict(p)
			if err != nil {
				return nil, err
			}
			verdicts = append(verdicts, v)
		}
	}

	res, err := Apply(s.cfg, segs, verdicts)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("funnel: stage complete",
		zap.String("task", string(s.cfg.Task)),
		zap.String("oracle", s.oracle.Name()),
		zap.Int("evaluated", res.Evaluated),
		zap.Int("confident", res.ConfidentTotal),
		zap.Float64("weighted", res.WeightedCount),
		zap.Int("forwarded", len(res.Forwarded)),
	)
	return res, nil
}

func (s *Stage) verdict(p oracle.Prediction) (model.Verdict, error) {
	label, err := s.cfg.ParseLabel(p.Label)
	if err != nil {
		return model.Verdict{}, err
	}
	if math.IsNaN(p.Score) || p.Score < 0 || p.Score > 1 {
		return model.Verdict{}, eris.Errorf("funnel: %s confidence %v outside [0,1]", s.cfg.Task, p.Score)
	}
	return model.Verdict{Label: label, Confidence: p.Score}, nil
}

// Apply aggregates verdicts, paired index-wise with segs. Only confident
// verdicts (confidence >= threshold) count; labels without a weight add 0.
// A segment is forwarded when its verdict is confident and carries the
// keep label.
func Apply(cfg StageConfig, segs []model.Segment, verdicts []model.Verdict) (*model.FunnelResult, error) {
	if len(segs) != len(verdicts) {
		return nil, eris.Errorf("funnel: %d verdicts for %d segments", len(verdicts), len(segs))
	}

	res := &model.FunnelResult{
		Task:        cfg.Task,
		Evaluated:   len(verdicts),
		LabelCounts: make(map[model.Label]int),
	}
	for i, v := range verdicts {
		if !v.Confident(cfg.Threshold) {
			continue
		}
		res.ConfidentTotal++
		res.LabelCounts[v.Label]++
		res.WeightedCount += cfg.Weights[v.Label]
		if cfg.KeepLabel != "" && v.Label == cfg.KeepLabel {
			res.Forwarded = append(res.Forwarded, segs[i])
		}
	}
	return res, nil
}
