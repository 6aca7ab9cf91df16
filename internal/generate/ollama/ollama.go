package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"docrag/internal/domain"
	"docrag/internal/generate"
)

// Client calls the Ollama generate endpoint. One request per question; no
// streaming, so the telemetry arrives in the final response document.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

// Config configures the Ollama generation client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewClient creates a new generation client using the provided configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 5 * time.Minute
	}
	return &Client{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: t},
	}
}

// Model returns the backend model identifier.
func (c *Client) Model() string { return c.model }

// Generate posts the prompt and returns the answer with whatever token and
// timing telemetry the backend reports. num_predict -1 leaves the response
// length uncapped.
func (c *Client) Generate(ctx context.Context, prompt string) (*generate.Response, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"num_predict": -1,
		},
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, goerr.Wrap(domain.ErrBackend, "cannot marshal generate request")
	}

	url := fmt.Sprintf("%s/api/generate", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, goerr.Wrap(domain.ErrBackend, "cannot build generate request", goerr.V("url", url))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(domain.ErrBackend, "generate request failed",
			goerr.V("model", c.model), goerr.V("cause", err.Error()))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(domain.ErrBackend, "cannot read generate response", goerr.V("model", c.model))
	}
	if resp.StatusCode >= 300 {
		return nil, goerr.Wrap(domain.ErrBackend, "generate request rejected",
			goerr.V("status", resp.Status), goerr.V("model", c.model), goerr.V("body", string(payload)))
	}

	var out struct {
		Response           string `json:"response"`
		PromptEvalCount    int    `json:"prompt_eval_count"`
		EvalCount          int    `json:"eval_count"`
		TotalDuration      int64  `json:"total_duration"`
		LoadDuration       int64  `json:"load_duration"`
		PromptEvalDuration int64  `json:"prompt_eval_duration"`
		EvalDuration       int64  `json:"eval_duration"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, goerr.Wrap(domain.ErrBackend, "cannot decode generate response", goerr.V("model", c.model))
	}

	return &generate.Response{
		Content:              out.Response,
		PromptEvalCount:      out.PromptEvalCount,
		EvalCount:            out.EvalCount,
		TotalDurationNS:      out.TotalDuration,
		LoadDurationNS:       out.LoadDuration,
		PromptEvalDurationNS: out.PromptEvalDuration,
		EvalDurationNS:       out.EvalDuration,
	}, nil
}
