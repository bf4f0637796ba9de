package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Task identifies a classification oracle and its closed label vocabulary.
type Task string

const (
	TaskRelatedness Task = "relatedness"
	TaskSpecificity Task = "specificity"
	TaskSentiment   Task = "sentiment"
	TaskCommitment  Task = "commitment"
	TaskCategory    Task = "category"
)

// Label is a classifier output label. Valid values depend on the Task.
type Label string

const (
	LabelYes         Label = "yes"
	LabelNo          Label = "no"
	LabelSpecific    Label = "spec"
	LabelNonSpecific Label = "nonspec"
	LabelRisk        Label = "risk"
	LabelNeutral     Label = "neutral"
	LabelOpportunity Label = "opportunity"
	LabelMetrics     Label = "metrics"
	LabelStrategy    Label = "strategy"
	LabelGovernance  Label = "governance"
)

// AllTasks returns the tasks in pipeline order. Relatedness always runs
// first because its forwarded set is the corpus for every other task.
func AllTasks() []Task {
	return []Task{
		TaskRelatedness,
		TaskSpecificity,
		TaskSentiment,
		TaskCommitment,
		TaskCategory,
	}
}

// ParseTask converts a task name into a Task.
func ParseTask(s string) (Task, error) {
	t := Task(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllTasks() {
		if t == known {
			return t, nil
		}
	}
	return "", eris.Errorf("model: unknown task %q", s)
}

// Labels returns the closed label vocabulary for the task.
func (t Task) Labels() []Label {
	switch t {
	case TaskRelatedness, TaskCommitment:
		return []Label{LabelYes, LabelNo}
	case TaskSpecificity:
		return []Label{LabelSpecific, LabelNonSpecific}
	case TaskSentiment:
		return []Label{LabelRisk, LabelNeutral, LabelOpportunity}
	case TaskCategory:
		return CategoryLabels()
	}
	return nil
}

// Valid reports whether label belongs to the task's vocabulary.
func (t Task) Valid(label Label) bool {
	for _, l := range t.Labels() {
		if l == label {
			return true
		}
	}
	return false
}

// ParseLabel normalizes raw oracle output (case, surrounding whitespace) and
// checks it against the task vocabulary.
func (t Task) ParseLabel(raw string) (Label, bool) {
	l := Label(strings.ToLower(strings.TrimSpace(raw)))
	return l, t.Valid(l)
}

// LabelAliases maps raw labels some hosted models emit onto the task
// vocabulary.
func (t Task) LabelAliases() map[string]Label {
	if t == TaskSpecificity {
		return map[string]Label{
			"non":      LabelNonSpecific,
			"non-spec": LabelNonSpecific,
			"non_spec": LabelNonSpecific,
		}
	}
	return map[string]Label{}
}

// CategoryLabels returns the four mutually exclusive disclosure categories
// in reporting order.
func CategoryLabels() []Label {
	return []Label{LabelMetrics, LabelStrategy, LabelGovernance, LabelRisk}
}

// DefaultWeights returns the weight map each task uses unless overridden.
func (t Task) DefaultWeights() map[Label]float64 {
	switch t {
	case TaskRelatedness, TaskCommitment:
		return map[Label]float64{LabelYes: 1}
	case TaskSpecificity:
		return map[Label]float64{LabelSpecific: 1}
	case TaskSentiment:
		return map[Label]float64{LabelRisk: 2, LabelNeutral: 1}
	}
	return map[Label]float64{}
}

// DefaultKeepLabel returns the label whose segments are forwarded to the
// next stage, or "" when the task forwards nothing.
func (t Task) DefaultKeepLabel() Label {
	if t == TaskRelatedness {
		return LabelYes
	}
	return ""
}

// DefaultModel returns the model identifier conventionally used for the task.
func (t Task) DefaultModel() string {
	switch t {
	case TaskRelatedness:
		return "climatebert/distilroberta-base-climate-detector"
	case TaskSpecificity:
		return "climatebert/distilroberta-base-climate-specificity"
	case TaskSentiment:
		return "climatebert/distilroberta-base-climate-sentiment"
	case TaskCommitment:
		return "climatebert/distilroberta-base-climate-commitment"
	case TaskCategory:
		return "climatebert/distilroberta-base-climate-tcfd"
	}
	return ""
}
