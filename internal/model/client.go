// internal/model/client.go
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	maxAttempts  = 3
	retryBackoff = 500 * time.Millisecond
)

// Client talks to an Ollama-compatible generate endpoint. Every call goes
// through the breaker; transient failures are retried with linear backoff.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *Breaker
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// NewClient builds a client for the given base URL, e.g.
// "http://localhost:11434". Timeout bounds each individual HTTP call.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    NewBreaker(5, 30*time.Second),
	}
}

// Generate sends one prompt to one model and returns the raw text. An empty
// response counts as a failure so retries and the breaker see it.
func (c *Client) Generate(ctx context.Context, modelName, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var text string
		err := c.breaker.Call(func() error {
			var callErr error
			text, callErr = c.generateOnce(ctx, modelName, prompt)
			return callErr
		})
		if err == nil {
			return text, nil
		}
		lastErr = err
		if err == ErrBreakerOpen || err == ErrBreakerBusy || ctx.Err() != nil {
			break
		}
		log.Printf("[Model] Generate attempt %d/%d for %s failed: %v", attempt, maxAttempts, modelName, err)
		if attempt < maxAttempts {
			select {
			case <-time.After(retryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", fmt.Errorf("model %s failed after %d attempts: %w", modelName, maxAttempts, lastErr)
}

func (c *Client) generateOnce(ctx context.Context, modelName, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{Model: modelName, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("model returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode model response: %w", err)
	}
	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "", fmt.Errorf("model %s returned empty response", modelName)
	}
	return text, nil
}

// BreakerState exposes the breaker for health reporting.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}
