package model

// Verdict is a classifier's judgement on one segment.
type Verdict struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Confident reports whether the verdict meets threshold. The bound is
// inclusive: a confidence equal to the threshold counts.
func (v Verdict) Confident(threshold float64) bool {
	return v.Confidence >= threshold
}

// FunnelResult aggregates the verdicts of one task over one entity's corpus.
type FunnelResult struct {
	Task           Task          `json:"task"`
	Evaluated      int           `json:"evaluated"`
	ConfidentTotal int           `json:"confident_total"`
	WeightedCount  float64       `json:"weighted_count"`
	LabelCounts    map[Label]int `json:"label_counts"`
	Forwarded      []Segment     `json:"-"`
}

// Count returns the number of confident verdicts carrying label.
func (r *FunnelResult) Count(label Label) int {
	if r == nil {
		return 0
	}
	return r.LabelCounts[label]
}
