package oracle

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/internal/model"
	"github.com/sells-group/disclosure-cli/pkg/anthropic"
)

// Anthropic classifies by prompting a Claude model with the task's label
// vocabulary and parsing a JSON reply.
type Anthropic struct {
	client    anthropic.Client
	task      model.Task
	model     string
	maxTokens int64
}

// NewAnthropic creates an LLM oracle for task.
func NewAnthropic(client anthropic.Client, task model.Task, modelID string, maxTokens int64) *Anthropic {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Anthropic{client: client, task: task, model: modelID, maxTokens: maxTokens}
}

func (o *Anthropic) Name() string { return "anthropic:" + o.model + ":" + string(o.task) }

func (o *Anthropic) Classify(ctx context.Context, texts []string) ([]Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	temp := 0.0
	resp, err := o.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       o.model,
		MaxTokens:   o.maxTokens,
		System:      anthropic.CachedSystem(systemPrompt(o.task)),
		Messages:    []anthropic.Message{{Role: "user", Content: userPrompt(texts)}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "oracle: %s", o.Name())
	}
	resp.Usage.LogCost(o.model, string(o.task))

	return parseVerdicts(o.Name(), resp.Text(), len(texts))
}
