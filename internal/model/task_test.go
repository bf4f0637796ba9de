package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTask(t *testing.T) {
	task, err := ParseTask(" Sentiment ")
	require.NoError(t, err)
	assert.Equal(t, TaskSentiment, task)

	_, err = ParseTask("climate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown task")
}

func TestAllTasks_RelatednessFirst(t *testing.T) {
	tasks := AllTasks()
	require.Len(t, tasks, 5)
	assert.Equal(t, TaskRelatedness, tasks[0])
}

func TestTaskLabels(t *testing.T) {
	tests := []struct {
		task Task
		want []Label
	}{
		{TaskRelatedness, []Label{LabelYes, LabelNo}},
		{TaskSpecificity, []Label{LabelSpecific, LabelNonSpecific}},
		{TaskSentiment, []Label{LabelRisk, LabelNeutral, LabelOpportunity}},
		{TaskCommitment, []Label{LabelYes, LabelNo}},
		{TaskCategory, []Label{LabelMetrics, LabelStrategy, LabelGovernance, LabelRisk}},
	}
	for _, tt := range tests {
		t.Run(string(tt.task), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.Labels())
		})
	}
	assert.Nil(t, Task("bogus").Labels())
}

func TestTaskParseLabel(t *testing.T) {
	l, ok := TaskSpecificity.ParseLabel(" SPEC ")
	assert.True(t, ok)
	assert.Equal(t, LabelSpecific, l)

	l, ok = TaskSpecificity.ParseLabel("yes")
	assert.False(t, ok)
	assert.Equal(t, LabelYes, l)

	assert.True(t, TaskCategory.Valid(LabelRisk))
	assert.False(t, TaskSentiment.Valid(LabelMetrics))
}

func TestDefaultWeightsAndKeepLabel(t *testing.T) {
	assert.Equal(t, map[Label]float64{LabelRisk: 2, LabelNeutral: 1}, TaskSentiment.DefaultWeights())
	assert.Equal(t, map[Label]float64{LabelSpecific: 1}, TaskSpecificity.DefaultWeights())
	assert.Empty(t, TaskCategory.DefaultWeights())
	assert.Equal(t, LabelYes, TaskRelatedness.DefaultKeepLabel())
	assert.Equal(t, Label(""), TaskCommitment.DefaultKeepLabel())
	assert.Contains(t, TaskCategory.DefaultModel(), "tcfd")
}

func TestVerdictConfident_InclusiveBound(t *testing.T) {
	assert.True(t, Verdict{Confidence: 0.8}.Confident(0.8))
	assert.True(t, Verdict{Confidence: 0.81}.Confident(0.8))
	assert.False(t, Verdict{Confidence: 0.79}.Confident(0.8))
}

func TestSegmentQuoted(t *testing.T) {
	s := Segment{Content: "net zero by 2040"}
	assert.Equal(t, `"net zero by 2040"`, s.Quoted())
}

func TestEntityMetricRowValues(t *testing.T) {
	row := EntityMetricRow{
		Entity:      "XEL",
		Relatedness: 0.5,
		Specificity: 0.25,
		Severity:    0.7,
		Commitment:  1,
		Categories:  CategoryShares{Metrics: 0.5, Risk: 0.5},
	}
	assert.Equal(t, []string{"XEL", "0.5", "0.25", "0.7", "1", "0.5", "0", "0", "0.5"}, row.Values())
	assert.Len(t, MetricColumns, len(row.Values()))
	assert.InDelta(t, 1.0, row.Categories.Sum(), 1e-9)
}

func TestFunnelResultCount_Nil(t *testing.T) {
	var r *FunnelResult
	assert.Equal(t, 0, r.Count(LabelYes))
}

func TestLabelAliases(t *testing.T) {
	assert.Equal(t, LabelNonSpecific, TaskSpecificity.LabelAliases()["non"])
	assert.Empty(t, TaskRelatedness.LabelAliases())
}
