// Package metric turns funnel results into per-entity scores. Every ratio
// and share treats a zero denominator as 0.
package metric

import (
	"math"

	"github.com/sells-group/disclosure-cli/internal/model"
)

// Ratio returns n/d, or 0 when d is zero or the result is not finite.
func Ratio(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	r := n / d
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// BinaryRate is weighted_count / confident_total, unrounded.
func BinaryRate(r *model.FunnelResult) float64 {
	if r == nil {
		return 0
	}
	return Ratio(r.WeightedCount, float64(r.ConfidentTotal))
}

// SeverityScore is weighted_count / (confident_total * maxWeight), rounded
// to two decimals.
func SeverityScore(r *model.FunnelResult, maxWeight float64) float64 {
	if r == nil {
		return 0
	}
	return Round(Ratio(r.WeightedCount, float64(r.ConfidentTotal)*maxWeight), 2)
}

// MaxWeight returns the largest weight in weights, 0 when empty.
func MaxWeight(weights map[model.Label]float64) float64 {
	maxW := 0.0
	for _, w := range weights {
		if w > maxW {
			maxW = w
		}
	}
	return maxW
}

// Distribution returns each label's share of the summed counts, in labels
// order. When the sum is zero every share is 0.
func Distribution(counts map[model.Label]int, labels []model.Label) []float64 {
	total := 0
	for _, l := range labels {
		total += counts[l]
	}
	out := make([]float64, len(labels))
	for i, l := range labels {
		out[i] = Ratio(float64(counts[l]), float64(total))
	}
	return out
}

// Categories computes the four-way disclosure distribution.
func Categories(r *model.FunnelResult) model.CategoryShares {
	if r == nil {
		return model.CategoryShares{}
	}
	s := Distribution(r.LabelCounts, model.CategoryLabels())
	return model.CategoryShares{
		Metrics:    s[0],
		Strategy:   s[1],
		Governance: s[2],
		Risk:       s[3],
	}
}
