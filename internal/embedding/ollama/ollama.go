package ollama

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"docrag/internal/domain"
)

// Client talks to the Ollama embeddings endpoint and implements the Embedder
// interface.
type Client struct {
	baseURL    string
	model      string
	dimension  int
	client     *http.Client
	maxRetries int
}

// Config configures the Ollama embeddings client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		client:     &http.Client{Timeout: t},
		maxRetries: 5,
	}
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "ollama:" + c.model }

// Prepare is not required for remote embedding; the dimension is set lazily
// on the first embed.
func (c *Client) Prepare(corpus []string) error { return nil }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for the given text. Transient failures
// (connection errors, 429, 5xx) are retried with exponential backoff.
func (c *Client) Embed(text string) ([]float64, error) {
	type reqBody struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}
	url := fmt.Sprintf("%s/api/embeddings", c.baseURL)
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay(attempt - 1))
		}
		data, _ := json.Marshal(reqBody{Model: c.model, Prompt: text})
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, goerr.Wrap(domain.ErrEmbedding, "cannot build embeddings request", goerr.V("url", url))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					time.Sleep(time.Duration(secs) * time.Second)
				}
			}
			_ = resp.Body.Close()
			lastErr = goerr.New("embeddings request rejected", goerr.V("status", resp.Status))
			continue
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 300 {
			return nil, goerr.Wrap(domain.ErrEmbedding, "embeddings request failed",
				goerr.V("status", resp.Status), goerr.V("model", c.model))
		}

		var out struct {
			Embedding []float64 `json:"embedding"`
		}
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, goerr.Wrap(domain.ErrEmbedding, "cannot decode embeddings response", goerr.V("model", c.model))
		}
		if len(out.Embedding) == 0 {
			return nil, goerr.Wrap(domain.ErrEmbedding, "no embedding returned", goerr.V("model", c.model))
		}
		if c.dimension == 0 {
			c.dimension = len(out.Embedding)
		}
		return out.Embedding, nil
	}
	return nil, goerr.Wrap(domain.ErrEmbedding, "embeddings request gave up after retries",
		goerr.V("model", c.model), goerr.V("cause", fmt.Sprint(lastErr)))
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
