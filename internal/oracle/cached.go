package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Cached memoizes an oracle's predictions per text. Only texts missing from
// the cache are forwarded, as one batch, preserving input order.
type Cached struct {
	inner Oracle
	cache *gocache.Cache
}

// NewCached wraps inner with an in-memory cache whose entries expire after
// ttl.
func NewCached(inner Oracle, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: gocache.New(ttl, 2*ttl)}
}

func (o *Cached) Name() string { return o.inner.Name() }

func (o *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return o.inner.Name() + ":" + hex.EncodeToString(sum[:])
}

func (o *Cached) Classify(ctx context.Context, texts []string) ([]Prediction, error) {
	out := make([]Prediction, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		if v, ok := o.cache.Get(o.key(t)); ok {
			out[i] = v.(Prediction)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) > 0 {
		preds, err := o.inner.Classify(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if err := checkLen(o.Name(), len(preds), len(missTexts)); err != nil {
			return nil, err
		}
		for j, p := range preds {
			out[missIdx[j]] = p
			o.cache.SetDefault(o.key(missTexts[j]), p)
		}
	}

	zap.L().Debug("oracle: cache lookup",
		zap.String("oracle", o.Name()),
		zap.Int("texts", len(texts)),
		zap.Int("misses", len(missTexts)),
	)
	return out, nil
}
