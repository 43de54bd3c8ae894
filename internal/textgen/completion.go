package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// noContentSentinel is returned when the endpoint answers 2xx but neither
// known response field carries text.
const noContentSentinel = "no content found"

// CompletionConfig holds the fixed generation parameters sent with every
// request to a llama.cpp-style completion endpoint.
type CompletionConfig struct {
	Endpoint    string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// CompletionClient calls a completion endpoint speaking the
// {prompt, n_predict, temperature, stop} wire format. It is stateless between
// calls.
type CompletionClient struct {
	cfg    CompletionConfig
	client *http.Client
}

// NewCompletionClient creates a client for the given endpoint. Zero-valued
// config fields fall back to defaults (30s timeout, 512 tokens, temperature
// 0.2, "</s>" stop sequence).
func NewCompletionClient(cfg CompletionConfig) *CompletionClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.2
	}
	if len(cfg.Stop) == 0 {
		cfg.Stop = []string{"</s>"}
	}
	return &CompletionClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type completionRequest struct {
	Prompt      string   `json:"prompt"`
	NPredict    int      `json:"n_predict"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop"`
}

type completionResponse struct {
	Content string `json:"content"`
	Text    string `json:"text"`
}

// Generate sends the prompt to the completion endpoint and returns the
// generated text verbatim (no trimming at this layer). Network failures wrap
// ErrUnavailable; non-2xx responses become *UpstreamError.
func (c *CompletionClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Prompt:      prompt,
		NPredict:    c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Stop:        c.cfg.Stop,
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBytes)}
	}

	var parsed completionResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}

	// Primary field first, then the alternate name some backends use.
	if parsed.Content != "" {
		return parsed.Content, nil
	}
	if parsed.Text != "" {
		return parsed.Text, nil
	}
	return noContentSentinel, nil
}
