// Package oracle adapts text classifiers (hosted models, LLMs, an offline
// lexicon) to a single batched interface and wraps them with caching, rate
// limiting and a circuit breaker.
package oracle

import (
	"context"

	"github.com/rotisserie/eris"
)

// Prediction is a classifier's raw output for one text. Label has not been
// checked against any task vocabulary yet.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"confidence"`
}

// Oracle classifies texts. Implementations return exactly one prediction
// per input, in input order.
type Oracle interface {
	Name() string
	Classify(ctx context.Context, texts []string) ([]Prediction, error)
}

// ErrShortResult is returned when a backend answers for fewer or more texts
// than it was given.
var ErrShortResult = eris.New("oracle: result count does not match input count")

func checkLen(name string, got, want int) error {
	if got != want {
		return eris.Wrapf(ErrShortResult, "oracle: %s returned %d predictions for %d texts", name, got, want)
	}
	return nil
}
