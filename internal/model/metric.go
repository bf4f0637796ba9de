package model

import "strconv"

// CategoryShares is the four-way disclosure category distribution.
type CategoryShares struct {
	Metrics    float64 `json:"metrics"`
	Strategy   float64 `json:"strategy"`
	Governance float64 `json:"governance"`
	Risk       float64 `json:"risk"`
}

// Sum returns the total of all shares.
func (c CategoryShares) Sum() float64 {
	return c.Metrics + c.Strategy + c.Governance + c.Risk
}

// EntityMetricRow holds every derived text metric for one entity.
type EntityMetricRow struct {
	Entity      string         `json:"ticker"`
	Period      string         `json:"period,omitempty"`
	Relatedness float64        `json:"relate"`
	Specificity float64        `json:"spec"`
	Severity    float64        `json:"senti"`
	Commitment  float64        `json:"commit"`
	Categories  CategoryShares `json:"categories"`
}

// MetricColumns is the persisted column order of an EntityMetricRow.
var MetricColumns = []string{
	"ticker",
	"relate",
	"spec",
	"senti",
	"commit",
	"metrics",
	"strategy",
	"governance",
	"risk",
}

// Values renders the row in MetricColumns order.
func (r EntityMetricRow) Values() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		r.Entity,
		f(r.Relatedness),
		f(r.Specificity),
		f(r.Severity),
		f(r.Commitment),
		f(r.Categories.Metrics),
		f(r.Categories.Strategy),
		f(r.Categories.Governance),
		f(r.Categories.Risk),
	}
}
