package metric

import "github.com/sells-group/disclosure-cli/internal/model"

// Aggregator builds entity rows from the results of one pipeline pass.
type Aggregator struct {
	// SeverityWeights is the sentiment stage's weight map; its largest
	// weight normalizes the severity score.
	SeverityWeights map[model.Label]float64
}

// NewAggregator returns an aggregator using the default sentiment weights.
func NewAggregator() *Aggregator {
	return &Aggregator{SeverityWeights: model.TaskSentiment.DefaultWeights()}
}

// Aggregate combines per-task results into one row. Missing tasks score 0.
func (a *Aggregator) Aggregate(entity, period string, results map[model.Task]*model.FunnelResult) model.EntityMetricRow {
	return model.EntityMetricRow{
		Entity:      entity,
		Period:      period,
		Relatedness: BinaryRate(results[model.TaskRelatedness]),
		Specificity: BinaryRate(results[model.TaskSpecificity]),
		Severity:    SeverityScore(results[model.TaskSentiment], MaxWeight(a.SeverityWeights)),
		Commitment:  BinaryRate(results[model.TaskCommitment]),
		Categories:  Categories(results[model.TaskCategory]),
	}
}
