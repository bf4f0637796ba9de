package model

import "time"

// RunStatus represents the lifecycle state of a scoring run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one invocation of the scoring pipeline over a chunk dataset.
type Run struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Status    RunStatus `json:"status"`
	Entities  int       `json:"entities"`
	Failed    int       `json:"failed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityOutcome is the per-entity result of a batch run. Err is set when the
// entity's pipeline failed; Row is nil in that case.
type EntityOutcome struct {
	Entity  string                 `json:"entity"`
	Period  string                 `json:"period,omitempty"`
	Row     *EntityMetricRow       `json:"row,omitempty"`
	Results map[Task]*FunnelResult `json:"results,omitempty"`
	Err     error                  `json:"-"`
}
