package oracle

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/disclosure-cli/internal/config"
	"github.com/sells-group/disclosure-cli/internal/model"
	"github.com/sells-group/disclosure-cli/internal/resilience"
	"github.com/sells-group/disclosure-cli/pkg/anthropic"
	"github.com/sells-group/disclosure-cli/pkg/hfinference"
)

// Factory builds the configured oracle for each task. Remote providers share
// one client and one rate limiter; each task gets its own breaker and cache.
type Factory struct {
	cfg     config.OracleConfig
	limiter *rate.Limiter

	hf     hfinference.Client
	claude anthropic.Client
}

// NewFactory prepares shared clients for cfg.Provider.
func NewFactory(cfg config.OracleConfig) (*Factory, error) {
	f := &Factory{cfg: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	switch cfg.Provider {
	case "inference":
		opts := []hfinference.Option{
			hfinference.WithWaitForModel(cfg.Inference.WaitForModel),
			hfinference.WithTopK(cfg.Inference.TopK),
			hfinference.WithTimeout(time.Duration(cfg.Inference.TimeoutSecs) * time.Second),
		}
		if cfg.Inference.BaseURL != "" {
			opts = append(opts, hfinference.WithBaseURL(cfg.Inference.BaseURL))
		}
		f.hf = hfinference.NewClient(cfg.Inference.Token, opts...)
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("oracle: anthropic key is required")
		}
		f.claude = anthropic.NewClient(cfg.Anthropic.Key)
	case "openai", "lexicon":
	default:
		return nil, eris.Errorf("oracle: unknown provider %q", cfg.Provider)
	}
	return f, nil
}

// For returns the oracle for task. modelID names the hosted model for the
// inference provider and is ignored by the others.
func (f *Factory) For(task model.Task, modelID string) (Oracle, error) {
	var base Oracle
	switch f.cfg.Provider {
	case "inference":
		base = NewInference(f.hf, modelID)
	case "anthropic":
		base = NewAnthropic(f.claude, task, f.cfg.Anthropic.Model, f.cfg.Anthropic.MaxTokens)
	case "openai":
		o, err := NewOpenAI(f.cfg.OpenAI.Key, f.cfg.OpenAI.BaseURL, task, f.cfg.OpenAI.Model, f.cfg.OpenAI.MaxTokens)
		if err != nil {
			return nil, err
		}
		base = o
	case "lexicon":
		// Local and deterministic: nothing to throttle or cache.
		lex, err := NewLexicon(task, DefaultLexicon(task))
		if err != nil {
			return nil, err
		}
		return lex, nil
	default:
		return nil, eris.Errorf("oracle: unknown provider %q", f.cfg.Provider)
	}

	guarded := NewGuarded(base, f.limiter,
		resilience.NewBreaker(resilience.BreakerConfig{
			Name:     base.Name(),
			Failures: f.cfg.Breaker.Failures,
			Cooldown: time.Duration(f.cfg.Breaker.CooldownSecs) * time.Second,
		}),
		resilience.RetryPolicy{
			Attempts: f.cfg.Retry.Attempts,
			Backoff:  time.Duration(f.cfg.Retry.BackoffMs) * time.Millisecond,
		},
	)

	zap.L().Debug("oracle: built",
		zap.String("task", string(task)),
		zap.String("oracle", base.Name()),
	)

	if f.cfg.CacheTTLMins <= 0 {
		return guarded, nil
	}
	return NewCached(guarded, time.Duration(f.cfg.CacheTTLMins)*time.Minute), nil
}
