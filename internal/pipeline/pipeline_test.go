package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/disclosure-cli/internal/config"
	"github.com/sells-group/disclosure-cli/internal/funnel"
	"github.com/sells-group/disclosure-cli/internal/model"
	"github.com/sells-group/disclosure-cli/internal/oracle"
	"github.com/sells-group/disclosure-cli/internal/resilience"
)

// funcOracle classifies each text with fn and records every text it saw.
type funcOracle struct {
	name string
	fn   func(text string) (oracle.Prediction, error)

	mu   sync.Mutex
	seen []string
}

func (f *funcOracle) Name() string { return f.name }

func (f *funcOracle) Classify(_ context.Context, texts []string) ([]oracle.Prediction, error) {
	f.mu.Lock()
	f.seen = append(f.seen, texts...)
	f.mu.Unlock()

	out := make([]oracle.Prediction, len(texts))
	for i, t := range texts {
		p, err := f.fn(t)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func constant(label string, score float64) func(string) (oracle.Prediction, error) {
	return func(string) (oracle.Prediction, error) {
		return oracle.Prediction{Label: label, Score: score}, nil
	}
}

func climateDetector(text string) (oracle.Prediction, error) {
	if strings.Contains(text, "climate") {
		return oracle.Prediction{Label: "yes", Score: 0.95}, nil
	}
	return oracle.Prediction{Label: "no", Score: 0.9}, nil
}

func mustStage(t *testing.T, task model.Task, o oracle.Oracle) *funnel.Stage {
	t.Helper()
	st, err := funnel.NewStage(funnel.DefaultStageConfig(task), o)
	require.NoError(t, err)
	return st
}

func doc(entity string, texts ...string) model.Document {
	d := model.Document{Entity: entity, Period: "2024"}
	for i, tx := range texts {
		d.Segments = append(d.Segments, model.Segment{Entity: entity, Period: "2024", Index: i, Content: tx})
	}
	return d
}

type fixture struct {
	related, spec, senti, commit, cat *funcOracle
	pipeline                          *Pipeline
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	f := &fixture{
		related: &funcOracle{name: "related", fn: climateDetector},
		spec:    &funcOracle{name: "spec", fn: constant("spec", 0.85)},
		senti:   &funcOracle{name: "senti", fn: constant("risk", 0.9)},
		commit:  &funcOracle{name: "commit", fn: constant("no", 0.99)},
		cat:     &funcOracle{name: "cat", fn: constant("governance", 0.8)},
	}
	p, err := New([]*funnel.Stage{
		mustStage(t, model.TaskRelatedness, f.related),
		mustStage(t, model.TaskSpecificity, f.spec),
		mustStage(t, model.TaskSentiment, f.senti),
		mustStage(t, model.TaskCommitment, f.commit),
		mustStage(t, model.TaskCategory, f.cat),
	}, opts...)
	require.NoError(t, err)
	f.pipeline = p
	return f
}

func TestRun_DownstreamSeesOnlyRelatedSegments(t *testing.T) {
	f := newFixture(t)
	d := doc("XEL",
		"climate risk is material",
		"quarterly dividend declared",
		"climate targets set for 2030",
		"board meeting minutes",
	)

	out, err := f.pipeline.Run(context.Background(), d)
	require.NoError(t, err)

	assert.Len(t, f.related.seen, 4)
	want := []string{"climate risk is material", "climate targets set for 2030"}
	for _, o := range []*funcOracle{f.spec, f.senti, f.commit, f.cat} {
		assert.Equal(t, want, o.seen, o.name)
	}

	row := out.Row
	require.NotNil(t, row)
	assert.Equal(t, "XEL", row.Entity)
	assert.InDelta(t, 0.5, row.Relatedness, 1e-9)
	assert.InDelta(t, 1.0, row.Specificity, 1e-9)
	assert.Equal(t, 1.0, row.Severity)
	assert.Zero(t, row.Commitment)
	assert.Equal(t, model.CategoryShares{Governance: 1}, row.Categories)
	assert.Len(t, out.Results, 5)
}

func TestRun_EmptyDocumentScoresZero(t *testing.T) {
	f := newFixture(t)

	out, err := f.pipeline.Run(context.Background(), model.Document{Entity: "NONE"})
	require.NoError(t, err)
	assert.Equal(t, model.EntityMetricRow{Entity: "NONE"}, *out.Row)
	assert.Empty(t, f.spec.seen)
}

func TestRun_NothingRelated(t *testing.T) {
	f := newFixture(t)

	out, err := f.pipeline.Run(context.Background(), doc("AEP", "dividend", "buyback"))
	require.NoError(t, err)
	assert.Zero(t, out.Row.Relatedness)
	assert.Zero(t, out.Row.Categories.Sum())
	assert.Empty(t, f.cat.seen)
}

func TestRun_OracleFailureIsFatalForEntity(t *testing.T) {
	f := newFixture(t)
	f.senti.fn = func(string) (oracle.Prediction, error) { return oracle.Prediction{}, errors.New("model offline") }

	_, err := f.pipeline.Run(context.Background(), doc("XEL", "climate plan"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XEL")
	assert.Contains(t, err.Error(), "model offline")
	assert.Empty(t, f.commit.seen)
}

func TestRun_DumpsForwardedSegments(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, WithDumpDir(dir))

	_, err := f.pipeline.Run(context.Background(), doc("XEL", "climate plan", "dividend"))
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "XEL_2024_relatedness_forwarded.txt"))
	require.NoError(t, err)
	assert.Equal(t, "\"climate plan\"\n", string(raw))
}

func TestNew_Validation(t *testing.T) {
	o := &funcOracle{name: "x", fn: constant("yes", 1)}

	_, err := New(nil)
	require.Error(t, err)

	_, err = New([]*funnel.Stage{mustStage(t, model.TaskCommitment, o)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relatedness")

	_, err = New([]*funnel.Stage{
		mustStage(t, model.TaskRelatedness, o),
		mustStage(t, model.TaskCommitment, o),
		mustStage(t, model.TaskCommitment, o),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	p, err := New([]*funnel.Stage{mustStage(t, model.TaskRelatedness, o)})
	require.NoError(t, err)
	out, err := p.Run(context.Background(), doc("XEL", "anything"))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out.Row.Relatedness, 1e-9)
	assert.Zero(t, out.Row.Severity)
}

func TestBatch_IsolatesFailures(t *testing.T) {
	f := newFixture(t)
	f.spec.fn = func(text string) (oracle.Prediction, error) {
		if strings.Contains(text, "broken") {
			return oracle.Prediction{}, errors.New("boom")
		}
		return oracle.Prediction{Label: "nonspec", Score: 0.9}, nil
	}

	docs := []model.Document{
		doc("AAA", "climate one"),
		doc("BBB", "climate broken"),
		doc("CCC", "climate three", "unrelated"),
	}
	outcomes, sum := f.pipeline.Batch(context.Background(), docs, 2)

	assert.Equal(t, Summary{Succeeded: 2, Failed: 1}, sum)
	require.Len(t, outcomes, 3)
	assert.Equal(t, "AAA", outcomes[0].Entity)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, "BBB", outcomes[1].Entity)
	assert.Error(t, outcomes[1].Err)
	assert.Nil(t, outcomes[1].Row)
	assert.InDelta(t, 0.5, outcomes[2].Row.Relatedness, 1e-9)

	rows := Rows(outcomes)
	require.Len(t, rows, 2)
	assert.Equal(t, "AAA", rows[0].Entity)
	assert.Equal(t, "CCC", rows[1].Entity)
}

func TestBatch_CountsCircuitOpenSeparately(t *testing.T) {
	f := newFixture(t)
	f.spec.fn = func(text string) (oracle.Prediction, error) {
		switch {
		case strings.Contains(text, "open"):
			return oracle.Prediction{}, eris.Wrap(resilience.ErrOpen, "resilience: specificity")
		case strings.Contains(text, "broken"):
			return oracle.Prediction{}, errors.New("boom")
		}
		return oracle.Prediction{Label: "spec", Score: 0.9}, nil
	}

	docs := []model.Document{
		doc("AAA", "climate fine"),
		doc("BBB", "climate broken"),
		doc("CCC", "climate open"),
	}
	outcomes, sum := f.pipeline.Batch(context.Background(), docs, 1)

	assert.Equal(t, Summary{Succeeded: 1, Failed: 2, CircuitOpen: 1}, sum)
	assert.True(t, eris.Is(outcomes[2].Err, resilience.ErrOpen))
	assert.False(t, eris.Is(outcomes[1].Err, resilience.ErrOpen))
}

func TestBatch_Empty(t *testing.T) {
	f := newFixture(t)
	outcomes, sum := f.pipeline.Batch(context.Background(), nil, 4)
	assert.Empty(t, outcomes)
	assert.Equal(t, Summary{}, sum)
}

func TestBatch_MatchesSequentialRun(t *testing.T) {
	docs := []model.Document{
		doc("A", "climate a", "x"),
		doc("B", "y", "climate b", "climate c"),
		doc("C", "z"),
	}

	seq := newFixture(t)
	var want []model.EntityMetricRow
	for _, d := range docs {
		out, err := seq.pipeline.Run(context.Background(), d)
		require.NoError(t, err)
		want = append(want, *out.Row)
	}

	par := newFixture(t)
	outcomes, _ := par.pipeline.Batch(context.Background(), docs, 3)
	assert.Equal(t, want, Rows(outcomes))
}

func TestFromConfig_Lexicon(t *testing.T) {
	cfg := &config.Config{
		Funnel: config.FunnelConfig{Threshold: 0.5, BatchSize: 8},
		Oracle: config.OracleConfig{Provider: "lexicon"},
	}
	factory, err := oracle.NewFactory(cfg.Oracle)
	require.NoError(t, err)

	p, err := FromConfig(cfg, factory)
	require.NoError(t, err)
	require.Len(t, p.stages, 5)
	assert.Equal(t, model.TaskRelatedness, p.stages[0].Task())

	out, err := p.Run(context.Background(), doc("XEL", "We disclose Scope 1 greenhouse gas emissions and climate risk."))
	require.NoError(t, err)
	assert.Equal(t, "XEL", out.Row.Entity)
	assert.InDelta(t, 1.0, out.Row.Relatedness, 1e-9)
	assert.Zero(t, out.Row.Commitment)
}
