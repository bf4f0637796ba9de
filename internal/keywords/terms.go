// Package keywords computes lexical disclosure-quality signals: green/red
// term densities per entity and plain word frequencies over segment text.
package keywords

import (
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultGreen lists phrases that usually accompany concrete, verifiable
// climate commitments.
var DefaultGreen = []string{
	"science-based target", "sbti",
	"scope 1", "scope 2", "scope 3",
	"absolute emissions", "net zero",
	"1.5°", "1.5c", "paris aligned", "paris-aligned",
	"independent assurance", "limited assurance", "reasonable assurance",
	"internal carbon price", "carbon pricing",
	"tcfd", "scenario analysis",
}

// DefaultRed lists hedging and offsetting phrases. The trailing spaces on
// the modal verbs are significant.
var DefaultRed = []string{
	"aims to", "seeks to", "intends to", "aspire to",
	"where feasible", "where appropriate", "subject to",
	"forward-looking statements",
	"may ", "might ", "could ",
	"emissions intensity", "offsets", "carbon credits",
}

// Terms is the on-disk term list format.
type Terms struct {
	Green []string `yaml:"green"`
	Red   []string `yaml:"red"`
}

// LoadTerms reads a YAML terms file. Empty lists fall back to the defaults.
func LoadTerms(path string) (Terms, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Terms{}, eris.Wrapf(err, "keywords: read %s", path)
	}
	var t Terms
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Terms{}, eris.Wrapf(err, "keywords: parse %s", path)
	}
	return t.withDefaults(), nil
}

func (t Terms) withDefaults() Terms {
	if len(t.Green) == 0 {
		t.Green = DefaultGreen
	}
	if len(t.Red) == 0 {
		t.Red = DefaultRed
	}
	return t
}

// Matcher counts case-insensitive whole-phrase occurrences of a term list.
type Matcher struct {
	patterns []*regexp.Regexp
}

// NewMatcher compiles one word-bounded pattern per term.
func NewMatcher(terms []string) (*Matcher, error) {
	m := &Matcher{patterns: make([]*regexp.Regexp, 0, len(terms))}
	for _, t := range terms {
		if t == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(t) + `\b`)
		if err != nil {
			return nil, eris.Wrapf(err, "keywords: compile term %q", t)
		}
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

// Count returns the total number of non-overlapping matches of every term
// in text. Overlaps between different terms are counted once per term.
func (m *Matcher) Count(text string) int {
	n := 0
	for _, p := range m.patterns {
		n += len(p.FindAllStringIndex(text, -1))
	}
	return n
}
