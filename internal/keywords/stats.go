package keywords

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/disclosure-cli/internal/model"
)

// epsilon keeps the density ratios finite for entities with no words or no
// red hits.
const epsilon = 1e-9

// Stats are the green/red term statistics for one entity.
type Stats struct {
	Entity        string  `json:"ticker"`
	Chunks        int     `json:"total_chunks"`
	Words         int     `json:"total_words"`
	GreenHits     int     `json:"green_hits"`
	RedHits       int     `json:"red_hits"`
	GreenPer1000  float64 `json:"green_per_1000w"`
	RedPer1000    float64 `json:"red_per_1000w"`
	GreenRedRatio float64 `json:"green_red_ratio"`
}

// StatsColumns is the CSV header matching Stats.Values.
var StatsColumns = []string{
	"ticker", "total_chunks", "total_words", "green_hits", "red_hits",
	"green_per_1000w", "red_per_1000w", "green_red_ratio",
}

// Compute aggregates term hits per entity over every segment of docs. The
// result is sorted by green/red ratio, highest first, ties by entity.
func Compute(docs []model.Document, green, red *Matcher) []Stats {
	byEntity := make(map[string]*Stats)
	var order []string

	for _, d := range docs {
		for _, s := range d.Segments {
			entity := s.Entity
			if entity == "" {
				entity = d.Entity
			}
			st, ok := byEntity[entity]
			if !ok {
				st = &Stats{Entity: entity}
				byEntity[entity] = st
				order = append(order, entity)
			}
			st.Chunks++
			st.Words += len(strings.Fields(s.Content))
			st.GreenHits += green.Count(s.Content)
			st.RedHits += red.Count(s.Content)
		}
	}

	out := make([]Stats, 0, len(order))
	for _, e := range order {
		st := byEntity[e]
		kw := float64(st.Words)/1000 + epsilon
		st.GreenPer1000 = float64(st.GreenHits) / kw
		st.RedPer1000 = float64(st.RedHits) / kw
		st.GreenRedRatio = float64(st.GreenHits) / (float64(st.RedHits) + epsilon)
		out = append(out, *st)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].GreenRedRatio != out[j].GreenRedRatio {
			return out[i].GreenRedRatio > out[j].GreenRedRatio
		}
		return out[i].Entity < out[j].Entity
	})
	return out
}

// Values formats the row in StatsColumns order.
func (s Stats) Values() []string {
	ftoa := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	return []string{
		s.Entity,
		strconv.Itoa(s.Chunks),
		strconv.Itoa(s.Words),
		strconv.Itoa(s.GreenHits),
		strconv.Itoa(s.RedHits),
		ftoa(s.GreenPer1000),
		ftoa(s.RedPer1000),
		ftoa(s.GreenRedRatio),
	}
}

// Stopwords are dropped before counting word frequencies.
var Stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "for": {}, "on": {}, "in": {},
	"by": {}, "from": {}, "that": {}, "this": {}, "these": {}, "those": {}, "it": {}, "its": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "as": {}, "at": {}, "with": {},
	"we": {}, "our": {}, "you": {}, "they": {}, "their": {},
}

var wordRe = regexp.MustCompile(`[a-z][a-z\-]*`)

// WordCount is one entry of a frequency table.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WordFrequency counts lower-cased word tokens across texts, excluding
// stopwords, and returns the topN most common (all when topN <= 0). Ties are
// ordered alphabetically.
func WordFrequency(texts []string, topN int) []WordCount {
	counts := make(map[string]int)
	for _, t := range texts {
		for _, w := range wordRe.FindAllString(strings.ToLower(t), -1) {
			if _, stop := Stopwords[w]; stop {
				continue
			}
			counts[w]++
		}
	}

	out := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, WordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
