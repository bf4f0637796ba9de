package keywords

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/disclosure-cli/internal/model"
)

func mustMatcher(t *testing.T, terms []string) *Matcher {
	t.Helper()
	m, err := NewMatcher(terms)
	require.NoError(t, err)
	return m
}

func TestMatcher_WholePhrase(t *testing.T) {
	green := mustMatcher(t, DefaultGreen)

	assert.Equal(t, 3, green.Count("Scope 1 and SCOPE 2 emissions; net zero by 2050."))
	assert.Equal(t, 0, green.Count("scope 12 and subscope 1x"))
	assert.Equal(t, 1, green.Count("Our SBTi-approved targets"))
}

func TestMatcher_TrailingSpaceTerms(t *testing.T) {
	red := mustMatcher(t, DefaultRed)

	assert.Equal(t, 2, red.Count("We may buy offsets."))
	assert.Equal(t, 0, red.Count("Results for May."))
	assert.Equal(t, 1, red.Count("The company aims to cut waste."))
}

func TestCompute(t *testing.T) {
	docs := []model.Document{
		{Entity: "XEL", Segments: []model.Segment{
			{Entity: "XEL", Content: "Scope 1 and Scope 2 emissions are assured."},
			{Entity: "XEL", Content: "We may buy offsets."},
		}},
		{Entity: "AEP", Segments: []model.Segment{
			{Content: "Net zero by 2050 under SBTi."},
		}},
		{Entity: "EMPTY"},
	}

	stats := Compute(docs, mustMatcher(t, DefaultGreen), mustMatcher(t, DefaultRed))
	require.Len(t, stats, 2)

	assert.Equal(t, "AEP", stats[0].Entity)
	assert.Equal(t, 1, stats[0].Chunks)
	assert.Equal(t, 2, stats[0].GreenHits)
	assert.Equal(t, 0, stats[0].RedHits)

	xel := stats[1]
	assert.Equal(t, "XEL", xel.Entity)
	assert.Equal(t, 2, xel.Chunks)
	assert.Equal(t, 12, xel.Words)
	assert.Equal(t, 2, xel.GreenHits)
	assert.Equal(t, 2, xel.RedHits)
	assert.InDelta(t, 166.667, xel.GreenPer1000, 0.001)
	assert.InDelta(t, 1.0, xel.GreenRedRatio, 1e-6)

	vals := xel.Values()
	assert.Len(t, vals, len(StatsColumns))
	assert.Equal(t, "12", vals[2])
	assert.Equal(t, "1.0000", vals[7])
}

func TestWordFrequency(t *testing.T) {
	texts := []string{
		"The board oversees climate-related risk.",
		"Climate risk and climate opportunity; 2030 targets.",
	}
	got := WordFrequency(texts, 3)
	assert.Equal(t, []WordCount{
		{Word: "climate", Count: 2},
		{Word: "risk", Count: 2},
		{Word: "board", Count: 1},
	}, got)

	all := WordFrequency(texts, 0)
	words := make([]string, len(all))
	for i, wc := range all {
		words[i] = wc.Word
	}
	assert.Contains(t, words, "climate-related")
	assert.NotContains(t, words, "the")
	assert.NotContains(t, words, "and")
}

func TestWordFrequency_Empty(t *testing.T) {
	assert.Empty(t, WordFrequency(nil, 10))
}

func TestLoadTerms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("green:\n  - transition plan\n"), 0o644))

	terms, err := LoadTerms(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"transition plan"}, terms.Green)
	assert.Equal(t, DefaultRed, terms.Red)

	_, err = LoadTerms(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
