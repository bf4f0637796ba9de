package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/internal/model"
)

var taskGuidance = map[model.Task]string{
	model.TaskRelatedness: `"yes" if the passage is about climate change, emissions, energy transition or environmental sustainability; otherwise "no".`,
	model.TaskSpecificity: `"spec" if the passage makes concrete, verifiable statements (figures, dates, named targets, specific actions); "nonspec" if it is generic or boilerplate.`,
	model.TaskSentiment:   `"risk" if the passage frames climate change as a threat or cost, "opportunity" if as a benefit or growth area, otherwise "neutral".`,
	model.TaskCommitment:  `"yes" if the passage states a commitment, target or pledged action; otherwise "no".`,
	model.TaskCategory:    `the TCFD pillar the passage belongs to: "metrics" (metrics and targets), "strategy", "governance" or "risk" (risk management).`,
}

const llmInstructions = `You classify passages from corporate sustainability reports.
Label each passage with exactly one of: %s.
Rule: %s
Respond with only a JSON array, one object per passage, in the same order:
[{"id": <passage number>, "label": "<label>", "confidence": <0.0-1.0>}]`

// systemPrompt returns the fixed instructions for task. It is identical
// across batches so providers can cache it.
func systemPrompt(task model.Task) string {
	labels := task.Labels()
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = `"` + string(l) + `"`
	}
	return fmt.Sprintf(llmInstructions, strings.Join(quoted, ", "), taskGuidance[task])
}

// userPrompt numbers the passages from 1.
func userPrompt(texts []string) string {
	var b strings.Builder
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}
	return b.String()
}

type llmVerdict struct {
	ID         int     `json:"id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// parseVerdicts decodes an LLM reply into n predictions ordered by passage
// number. Every passage must be answered exactly once.
func parseVerdicts(name, reply string, n int) ([]Prediction, error) {
	var items []llmVerdict
	if err := json.Unmarshal([]byte(cleanJSONArray(reply)), &items); err != nil {
		return nil, eris.Wrapf(err, "oracle: %s reply is not a JSON array", name)
	}
	if err := checkLen(name, len(items), n); err != nil {
		return nil, err
	}

	out := make([]Prediction, n)
	seen := make([]bool, n)
	for _, it := range items {
		idx := it.ID - 1
		if idx < 0 || idx >= n || seen[idx] {
			return nil, eris.Errorf("oracle: %s reply has invalid or repeated id %d", name, it.ID)
		}
		seen[idx] = true
		conf := it.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		out[idx] = Prediction{Label: it.Label, Score: conf}
	}
	return out, nil
}

// cleanJSONArray strips markdown fences and surrounding prose.
func cleanJSONArray(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
