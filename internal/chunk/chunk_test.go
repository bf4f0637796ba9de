package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeatedTokens(n int) string {
	words := []string{"AAA", "BBB", "CCC"}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = words[i%len(words)]
	}
	return strings.Join(parts, " ")
}

func TestSplit_ThreeSegmentsAtWidth500(t *testing.T) {
	text := repeatedTokens(301)
	require.Len(t, text, 1203)

	lines := Quote(Split(text, 500))
	require.Len(t, lines, 3)

	var rejoined []string
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 502)
		assert.True(t, strings.HasPrefix(l, `"`))
		assert.True(t, strings.HasSuffix(l, `"`))
		inner := Unquote(l)
		assert.NotContains(t, inner, `"`)
		rejoined = append(rejoined, inner)
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(rejoined, " ")))
}

func TestSplit_NormalizesBreaksAndQuotes(t *testing.T) {
	text := "We target \"net zero\"\r\nby 2040.\nScope 3 included."
	lines := Split(text, 500)
	require.Len(t, lines, 1)
	assert.Equal(t, "We target net zero  by 2040. Scope 3 included.", lines[0])
}

func TestSplit_Degenerate(t *testing.T) {
	assert.Empty(t, Split("", 500))
	assert.Empty(t, Split(" \n\r\t  ", 500))
	assert.Empty(t, Split(`""`, 500))
}

func TestSplit_HardSplitsLongWord(t *testing.T) {
	word := strings.Repeat("x", 23)
	lines := Split("ab "+word, 10)
	// "ab " fills 3 of 10 columns; the long word takes the remaining 7.
	assert.Equal(t, []string{"ab " + strings.Repeat("x", 7), strings.Repeat("x", 10), strings.Repeat("x", 6)}, lines)
	for _, l := range lines {
		assert.LessOrEqual(t, utf8.RuneCountInString(l), 10)
	}
	assert.Equal(t, "ab"+word, strings.ReplaceAll(strings.Join(lines, ""), " ", ""))
}

func TestSplit_DropsEdgeWhitespace(t *testing.T) {
	lines := Split("   alpha beta    gamma   ", 11)
	assert.Equal(t, []string{"alpha beta", "gamma"}, lines)
	for _, l := range lines {
		assert.Equal(t, strings.TrimSpace(l), l)
	}
}

func TestSplit_CountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("é", 12)
	lines := Split(text, 5)
	require.Len(t, lines, 3)
	assert.Equal(t, 5, utf8.RuneCountInString(lines[0]))
	assert.Equal(t, 2, utf8.RuneCountInString(lines[2]))
}

func TestSplit_DefaultWidth(t *testing.T) {
	lines := Split(repeatedTokens(301), 0)
	assert.Len(t, lines, 3)
}

func TestSplit_Deterministic(t *testing.T) {
	text := "Climate risk governance " + strings.Repeat("metrics and targets ", 80)
	assert.Equal(t, Split(text, 120), Split(text, 120))
}

func TestSplit_TokenStreamPreserved(t *testing.T) {
	text := "The Board oversees \"climate\" risk.\n\nWe disclose Scope 1, Scope 2\r\nand Scope 3 emissions annually."
	for _, width := range []int{17, 40, 500} {
		lines := Split(text, width)
		want := strings.Fields(Normalize(text))
		got := strings.Fields(strings.Join(lines, " "))
		assert.Equal(t, want, got, "width %d", width)
	}
}

func TestSegments_Indexes(t *testing.T) {
	segs := Segments("XEL", "2024", repeatedTokens(301), 500)
	require.Len(t, segs, 3)
	for i, s := range segs {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, "XEL", s.Entity)
		assert.Equal(t, "2024", s.Period)
	}
}

func TestUnquote(t *testing.T) {
	assert.Equal(t, "abc", Unquote(`"abc"`))
	assert.Equal(t, `"abc`, Unquote(`"abc`))
	assert.Equal(t, "", Unquote(`""`))
	assert.Equal(t, `"`, Unquote(`"`))
}
