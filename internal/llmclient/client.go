package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jpillora/backoff"
)

// ErrMissingSecret is the fatal startup error: the process
// cannot make LLM calls without an API key.
var ErrMissingSecret = errors.New("llmclient: OPENAI_API_KEY is not set")

// retrySchedule is the backoff schedule: 1s, 10s, 20s, each
// with up to 100ms of jitter layered on top via jpillora/backoff.
var retrySchedule = []time.Duration{1 * time.Second, 10 * time.Second, 20 * time.Second}

// Message is one turn in a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat() contract's input.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stop     []string  `json:"stop,omitempty"`
	Stream   bool      `json:"stream,omitempty"`
}

// ChatResponse is the non-streaming chat() result.
type ChatResponse struct {
	Content string
}

// Client implements the LLM contract against an OpenAI-compatible
// HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	log        *log.Logger
	jitter     func() time.Duration
}

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client
	Logger  *log.Logger
}

// New builds a Client, returning ErrMissingSecret if APIKey is empty —
// the "absence is a fatal startup error" requirement, surfaced as a
// Go error here so main()/cmd callers can print the remediation message
// and exit rather than the package doing so itself.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingSecret
	}
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: httpClient,
		log:        logger,
		jitter:     func() time.Duration { return time.Duration(rand.Int63n(int64(100 * time.Millisecond))) },
	}, nil
}

// retriable reports whether status is worth retrying: only 429
// or 5xx.
func retriable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// doWithBackoff executes fn, retrying on a retriable HTTP status per
// the configured schedule (1s, 10s, 20s, jittered ≤100ms). fn returns the
// HTTP status it observed so the caller can decide whether to retry
// without doWithBackoff needing to know about response bodies.
func (c *Client) doWithBackoff(ctx context.Context, fn func() (status int, err error)) error {
	b := &backoff.Backoff{Min: 0, Max: 100 * time.Millisecond, Jitter: true}
	var lastErr error
	for attempt := 0; attempt <= len(retrySchedule); attempt++ {
		status, err := fn()
		if err == nil {
			return nil
		}
		if !retriable(status) {
			return err // fail fast: not a 429/5xx, retrying would not help
		}
		lastErr = err
		if attempt == len(retrySchedule) {
			break
		}
		wait := retrySchedule[attempt] + b.Duration()
		c.log.Warn("llm call failed, retrying", "attempt", attempt+1, "wait", wait, "err", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("llmclient: exhausted retries: %w", lastErr)
}

// Chat implements the chat() contract's non-streaming form.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	req.Model = nonEmpty(req.Model, c.model)
	var out ChatResponse
	err := c.doWithBackoff(ctx, func() (int, error) {
		status, content, err := c.chatOnce(ctx, req)
		if err != nil {
			return status, err
		}
		out = ChatResponse{Content: content}
		return status, nil
	})
	return out, err
}

func (c *Client) chatOnce(ctx context.Context, req ChatRequest) (int, string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return resp.StatusCode, "", fmt.Errorf("llmclient: chat completion failed with status %d", resp.StatusCode)
	}

	var parsed struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return resp.StatusCode, "", err
	}
	if len(parsed.Choices) == 0 {
		return resp.StatusCode, "", fmt.Errorf("llmclient: empty choices in response")
	}
	return resp.StatusCode, parsed.Choices[0].Message.Content, nil
}

// Embed implements the embed() contract.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	var out [][]float64
	err := c.doWithBackoff(ctx, func() (int, error) {
		status, vectors, err := c.embedOnce(ctx, texts)
		if err != nil {
			return status, err
		}
		out = vectors
		return status, nil
	})
	return out, err
}

func (c *Client) embedOnce(ctx context.Context, texts []string) (int, [][]float64, error) {
	body, err := json.Marshal(map[string]any{"model": "text-embedding-3-small", "input": texts})
	if err != nil {
		return 0, nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return resp.StatusCode, nil, fmt.Errorf("llmclient: embeddings failed with status %d", resp.StatusCode)
	}
	var parsed struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return resp.StatusCode, nil, err
	}
	out := make([][]float64, len(parsed.Data))
	for i, d := range parsed.Data {
		out[i] = d.Embedding
	}
	return resp.StatusCode, out, nil
}

// Moderate implements the moderate() contract.
func (c *Client) Moderate(ctx context.Context, text string) (flagged bool, err error) {
	err = c.doWithBackoff(ctx, func() (int, error) {
		status, f, moderateErr := c.moderateOnce(ctx, text)
		if moderateErr != nil {
			return status, moderateErr
		}
		flagged = f
		return status, nil
	})
	return flagged, err
}

func (c *Client) moderateOnce(ctx context.Context, text string) (int, bool, error) {
	body, err := json.Marshal(map[string]any{"input": text})
	if err != nil {
		return 0, false, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/moderations", bytes.NewReader(body))
	if err != nil {
		return 0, false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return resp.StatusCode, false, fmt.Errorf("llmclient: moderation failed with status %d", resp.StatusCode)
	}
	var parsed struct {
		Results []struct {
			Flagged bool `json:"flagged"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return resp.StatusCode, false, err
	}
	if len(parsed.Results) == 0 {
		return resp.StatusCode, false, nil
	}
	return resp.StatusCode, parsed.Results[0].Flagged, nil
}

func nonEmpty(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

var _ io.Closer = (*noopCloser)(nil)

type noopCloser struct{}

func (noopCloser) Close() error { return nil }
