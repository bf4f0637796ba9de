package oracle

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/internal/keywords"
	"github.com/sells-group/disclosure-cli/internal/model"
)

// LexiconRules describes a keyword classifier for one task: the terms that
// vote for each label, and the answer when nothing matches.
type LexiconRules struct {
	Terms         map[model.Label][]string
	Fallback      model.Label
	FallbackScore float64
}

// DefaultLexicon returns rules approximating each task with keyword votes.
func DefaultLexicon(task model.Task) LexiconRules {
	switch task {
	case model.TaskRelatedness:
		return LexiconRules{
			Terms: map[model.Label][]string{
				model.LabelYes: {"climate", "emissions", "carbon", "greenhouse", "ghg", "net zero",
					"renewable", "decarbonization", "decarbonisation", "warming", "sustainability", "scope 1", "scope 2", "scope 3"},
			},
			Fallback: model.LabelNo, FallbackScore: 1,
		}
	case model.TaskSpecificity:
		return LexiconRules{
			Terms: map[model.Label][]string{
				model.LabelSpecific: {"tonnes", "tco2e", "mwh", "gwh", "percent", "baseline", "2025", "2030", "2035", "2040", "2050"},
			},
			Fallback: model.LabelNonSpecific, FallbackScore: 1,
		}
	case model.TaskSentiment:
		return LexiconRules{
			Terms: map[model.Label][]string{
				model.LabelRisk:        {"risk", "risks", "threat", "damage", "losses", "exposure", "extreme weather", "flood", "wildfire", "litigation"},
				model.LabelOpportunity: {"opportunity", "opportunities", "growth", "benefit", "savings", "innovation", "new markets"},
			},
			Fallback: model.LabelNeutral, FallbackScore: 1,
		}
	case model.TaskCommitment:
		return LexiconRules{
			Terms: map[model.Label][]string{
				model.LabelYes: {"commit", "committed", "commitment", "pledge", "target", "goal", "we will"},
			},
			Fallback: model.LabelNo, FallbackScore: 1,
		}
	case model.TaskCategory:
		return LexiconRules{
			Terms: map[model.Label][]string{
				model.LabelMetrics:    {"tonnes", "intensity", "scope 1", "scope 2", "scope 3", "mwh", "metric", "metrics"},
				model.LabelStrategy:   {"strategy", "strategic", "transition plan", "scenario", "investment", "capital"},
				model.LabelGovernance: {"board", "committee", "oversight", "governance", "executive", "compensation"},
				model.LabelRisk:       {"risk management", "physical risk", "transition risk", "hazard", "enterprise risk"},
			},
			// Unmatched passages carry no category signal.
			Fallback: model.LabelStrategy, FallbackScore: 0,
		}
	}
	return LexiconRules{}
}

// Lexicon is a deterministic, offline oracle. The label with the most term
// hits wins with confidence equal to its share of all hits; ties go to the
// earlier label in the task vocabulary.
type Lexicon struct {
	task     model.Task
	rules    LexiconRules
	matchers map[model.Label]*keywords.Matcher
}

// NewLexicon compiles rules for task.
func NewLexicon(task model.Task, rules LexiconRules) (*Lexicon, error) {
	if !task.Valid(rules.Fallback) {
		return nil, eris.Errorf("oracle: lexicon fallback %q is not a %s label", rules.Fallback, task)
	}
	matchers := make(map[model.Label]*keywords.Matcher, len(rules.Terms))
	for label, terms := range rules.Terms {
		if !task.Valid(label) {
			return nil, eris.Errorf("oracle: lexicon label %q is not a %s label", label, task)
		}
		m, err := keywords.NewMatcher(terms)
		if err != nil {
			return nil, eris.Wrap(err, "oracle: lexicon")
		}
		matchers[label] = m
	}
	return &Lexicon{task: task, rules: rules, matchers: matchers}, nil
}

func (o *Lexicon) Name() string { return "lexicon:" + string(o.task) }

func (o *Lexicon) Classify(ctx context.Context, texts []string) ([]Prediction, error) {
	out := make([]Prediction, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "oracle: lexicon")
		}
		out[i] = o.classify(t)
	}
	return out, nil
}

func (o *Lexicon) classify(text string) Prediction {
	var best model.Label
	bestHits, total := 0, 0
	for _, label := range o.task.Labels() {
		m, ok := o.matchers[label]
		if !ok {
			continue
		}
		hits := m.Count(text)
		total += hits
		if hits > bestHits {
			best, bestHits = label, hits
		}
	}
	if total == 0 {
		return Prediction{Label: string(o.rules.Fallback), Score: o.rules.FallbackScore}
	}
	return Prediction{Label: string(best), Score: float64(bestHits) / float64(total)}
}
