package oracle

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"

	"github.com/sells-group/disclosure-cli/internal/model"
	"github.com/sells-group/disclosure-cli/internal/resilience"
)

// OpenAI classifies through any OpenAI-compatible chat completions endpoint
// using the same prompt protocol as Anthropic.
type OpenAI struct {
	client    *openai.Client
	task      model.Task
	model     string
	maxTokens int
}

// NewOpenAI creates an LLM oracle for task. baseURL may be empty for the
// public API.
func NewOpenAI(apiKey, baseURL string, task model.Task, modelID string, maxTokens int) (*OpenAI, error) {
	if apiKey == "" {
		return nil, eris.New("oracle: openai api key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if modelID == "" {
		modelID = openai.GPT4oMini
	}
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &OpenAI{
		client:    openai.NewClientWithConfig(cfg),
		task:      task,
		model:     modelID,
		maxTokens: maxTokens,
	}, nil
}

func (o *OpenAI) Name() string { return "openai:" + o.model + ":" + string(o.task) }

func (o *OpenAI) Classify(ctx context.Context, texts []string) ([]Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(o.task)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(texts)},
		},
		MaxTokens:   o.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		if code := statusCode(err); resilience.IsTransientStatus(code) {
			return nil, resilience.Transient(err, code)
		}
		return nil, eris.Wrapf(err, "oracle: %s", o.Name())
	}
	if len(resp.Choices) == 0 {
		return nil, eris.Errorf("oracle: %s returned no choices", o.Name())
	}

	return parseVerdicts(o.Name(), resp.Choices[0].Message.Content, len(texts))
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
