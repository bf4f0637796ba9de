package oracle

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/internal/resilience"
	"github.com/sells-group/disclosure-cli/pkg/hfinference"
)

// Inference classifies with a hosted sequence-classification model and
// takes the highest-scoring label for each text.
type Inference struct {
	client hfinference.Client
	model  string
}

// NewInference creates an oracle for model served by client.
func NewInference(client hfinference.Client, model string) *Inference {
	return &Inference{client: client, model: model}
}

func (o *Inference) Name() string { return "inference:" + o.model }

func (o *Inference) Classify(ctx context.Context, texts []string) ([]Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	res, err := o.client.Classify(ctx, o.model, texts)
	if err != nil {
		var se *hfinference.StatusError
		if errors.As(err, &se) && resilience.IsTransientStatus(se.StatusCode) {
			return nil, resilience.Transient(err, se.StatusCode)
		}
		return nil, eris.Wrapf(err, "oracle: classify with %s", o.model)
	}
	if err := checkLen(o.Name(), len(res), len(texts)); err != nil {
		return nil, err
	}

	out := make([]Prediction, len(res))
	for i, scores := range res {
		if len(scores) == 0 {
			return nil, eris.Errorf("oracle: %s returned no labels for text %d", o.model, i)
		}
		out[i] = Prediction{Label: scores[0].Label, Score: scores[0].Score}
	}
	return out, nil
}
