package oracle

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/disclosure-cli/internal/resilience"
)

// Guarded throttles calls to inner, retries transient failures and stops
// calling it altogether while its circuit breaker is open.
type Guarded struct {
	inner   Oracle
	limiter *rate.Limiter
	breaker *resilience.Breaker
	retry   resilience.RetryPolicy
}

// NewGuarded wraps inner. A nil limiter disables throttling.
func NewGuarded(inner Oracle, limiter *rate.Limiter, breaker *resilience.Breaker, retry resilience.RetryPolicy) *Guarded {
	return &Guarded{inner: inner, limiter: limiter, breaker: breaker, retry: retry}
}

func (o *Guarded) Name() string { return o.inner.Name() }

func (o *Guarded) Classify(ctx context.Context, texts []string) ([]Prediction, error) {
	return resilience.Retry(ctx, o.retry, o.Name(), func(ctx context.Context) ([]Prediction, error) {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "oracle: rate limiter wait")
			}
		}
		return resilience.Call(ctx, o.breaker, func(ctx context.Context) ([]Prediction, error) {
			return o.inner.Classify(ctx, texts)
		})
	})
}
