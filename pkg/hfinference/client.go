// Package hfinference provides a client for Hugging Face text-classification
// inference endpoints (serverless Inference API or a dedicated endpoint).
package hfinference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client classifies text with a hosted sequence-classification model.
type Client interface {
	// Classify returns, for every input, the model's label scores sorted by
	// descending score. The result has the same length and order as inputs.
	Classify(ctx context.Context, model string, inputs []string) ([][]LabelScore, error)
}

// LabelScore is one label's probability for an input.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// StatusError is returned for non-200 responses. A 503 usually means the
// model is still loading.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hfinference: unexpected status %d: %s", e.StatusCode, e.Body)
}

type request struct {
	Inputs     []string   `json:"inputs"`
	Parameters parameters `json:"parameters"`
	Options    options    `json:"options"`
}

type parameters struct {
	TopK     int    `json:"top_k,omitempty"`
	Truncate bool   `json:"truncation,omitempty"`
	Function string `json:"function_to_apply,omitempty"`
}

type options struct {
	WaitForModel bool `json:"wait_for_model"`
	UseCache     bool `json:"use_cache"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (dedicated endpoint or test server).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithTimeout bounds each request. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTopK asks the endpoint for the k best labels per input. Zero leaves
// the endpoint default.
func WithTopK(k int) Option {
	return func(c *httpClient) {
		c.topK = k
	}
}

// WithWaitForModel makes the serverless API block until a cold model is
// loaded instead of answering 503.
func WithWaitForModel(wait bool) Option {
	return func(c *httpClient) {
		c.waitForModel = wait
	}
}

type httpClient struct {
	token        string
	baseURL      string
	http         *http.Client
	topK         int
	waitForModel bool
}

// NewClient creates a new inference client. token may be empty for public
// endpoints.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:        token,
		baseURL:      "https://api-inference.huggingface.co",
		waitForModel: true,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Classify(ctx context.Context, model string, inputs []string) ([][]LabelScore, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(request{
		Inputs:     inputs,
		Parameters: parameters{TopK: c.topK, Truncate: true},
		Options:    options{WaitForModel: c.waitForModel, UseCache: true},
	})
	if err != nil {
		return nil, eris.Wrap(err, "hfinference: marshal request")
	}

	reqURL := c.baseURL + "/models/" + model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "hfinference: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "hfinference: request failed")
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, eris.Wrap(err, "hfinference: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	out, err := decode(body, len(inputs))
	if err != nil {
		return nil, err
	}
	for _, scores := range out {
		sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	}
	return out, nil
}

// decode accepts the nested per-input shape ([[{label,score}...]...]) and,
// for a single input, the flat shape some endpoints return.
func decode(body []byte, n int) ([][]LabelScore, error) {
	var nested [][]LabelScore
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) != n {
			return nil, eris.Errorf("hfinference: got %d results for %d inputs", len(nested), n)
		}
		return nested, nil
	}

	var flat []LabelScore
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, eris.Wrap(err, "hfinference: unmarshal response")
	}
	if n == 1 {
		return [][]LabelScore{flat}, nil
	}
	// Pipelines with top_k=1 return one object per input.
	if len(flat) != n {
		return nil, eris.Errorf("hfinference: got %d results for %d inputs", len(flat), n)
	}
	out := make([][]LabelScore, n)
	for i, ls := range flat {
		out[i] = []LabelScore{ls}
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
