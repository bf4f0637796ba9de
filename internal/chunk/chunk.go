// Package chunk splits extracted report text into delimiter-wrapped segments
// and reads and writes the persisted segment format.
package chunk

import (
	"strings"
	"unicode"

	"github.com/sells-group/disclosure-cli/internal/model"
)

// DefaultWidth is the maximum segment length in characters, excluding the
// two delimiters.
const DefaultWidth = 500

// Normalize collapses line breaks to spaces and removes every delimiter
// character so a wrapped segment can never contain one internally.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch r {
		case '\n', '\r':
			b.WriteRune(' ')
		case model.Delimiter:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Split normalizes text and greedily packs it into lines of at most width
// characters, breaking on whitespace. Words longer than width are hard-split.
// Whitespace at the start and end of every line is dropped and blank lines
// are never emitted. Lines are returned without delimiters.
func Split(text string, width int) []string {
	if width <= 0 {
		width = DefaultWidth
	}

	tokens := tokenize(Normalize(text))
	if len(tokens) == 0 {
		return nil
	}

	var lines []string
	var line []rune
	lineLen := 0

	flush := func() {
		// Trailing whitespace never ends a line.
		for len(line) > 0 && unicode.IsSpace(line[len(line)-1]) {
			line = line[:len(line)-1]
		}
		if len(line) > 0 {
			lines = append(lines, string(line))
		}
		line = nil
		lineLen = 0
	}

	for i := 0; i < len(tokens); {
		tok := tokens[i]
		space := unicode.IsSpace(tok[0])

		// Whitespace never starts a line.
		if space && lineLen == 0 {
			i++
			continue
		}

		if lineLen+len(tok) <= width {
			line = append(line, tok...)
			lineLen += len(tok)
			i++
			continue
		}

		if len(tok) > width {
			// Hard split: fill what is left of the line and keep the rest.
			room := width - lineLen
			if room < 1 {
				flush()
				continue
			}
			line = append(line, tok[:room]...)
			tokens[i] = tok[room:]
			flush()
			continue
		}

		flush()
	}
	flush()

	return lines
}

// Segments chunks text into ordered segments for entity and period.
func Segments(entity, period, text string, width int) []model.Segment {
	lines := Split(text, width)
	segs := make([]model.Segment, len(lines))
	for i, l := range lines {
		segs[i] = model.Segment{
			Entity:  entity,
			Period:  period,
			Index:   i,
			Content: l,
		}
	}
	return segs
}

// Quote wraps each line in exactly one delimiter at each end.
func Quote(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = string(model.Delimiter) + l + string(model.Delimiter)
	}
	return out
}

// Unquote strips exactly one delimiter from each end of line when both are
// present. Anything else is returned unchanged.
func Unquote(line string) string {
	d := string(model.Delimiter)
	if len(line) >= 2 && strings.HasPrefix(line, d) && strings.HasSuffix(line, d) {
		return line[1 : len(line)-1]
	}
	return line
}

// tokenize splits s into maximal runs of whitespace and non-whitespace runes.
// Every whitespace rune is replaced by a plain space.
func tokenize(s string) [][]rune {
	var tokens [][]rune
	var cur []rune
	curSpace := false
	for _, r := range s {
		space := unicode.IsSpace(r)
		if space {
			r = ' '
		}
		if len(cur) > 0 && space != curSpace {
			tokens = append(tokens, cur)
			cur = nil
		}
		cur = append(cur, r)
		curSpace = space
	}
	if len(cur) > 0 {
		tokens = append(tokens, cur)
	}
	return tokens
}
