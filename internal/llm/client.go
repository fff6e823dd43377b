// Package llm provides the Claude Haiku client used for event narration and
// the gang context that character prompts are wrapped with.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
	model      = "claude-haiku-4-5-20251001"

	defaultPerMinute = 20
)

var (
	// ErrDisabled is returned when no API key was configured.
	ErrDisabled = errors.New("llm client not configured")
	// ErrRateLimited is returned once the per-minute call quota is spent.
	ErrRateLimited = errors.New("llm call quota spent")
)

// APIError is a non-200 answer from the Messages API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// Prompt is one single-turn request: a voice and the material to work on.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
}

// Reply is the model's text plus what it cost.
type Reply struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Client wraps the Anthropic Messages API for Haiku calls. A nil *Client is
// valid and reports itself disabled.
type Client struct {
	apiKey   string
	endpoint string
	http     *http.Client
	quota    *quota
}

// NewClient returns nil when apiKey is empty, which disables narration.
func NewClient(apiKey string, perMinute int) *Client {
	if apiKey == "" {
		return nil
	}
	if perMinute <= 0 {
		perMinute = defaultPerMinute
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: apiURL,
		http:     &http.Client{Timeout: 30 * time.Second},
		quota:    &quota{limit: perMinute, now: time.Now},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []wireMessage `json:"messages"`
}

type wireReply struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Ask sends p to Haiku. Text blocks in the answer are concatenated.
func (c *Client) Ask(ctx context.Context, p Prompt) (Reply, error) {
	if !c.Enabled() {
		return Reply{}, ErrDisabled
	}
	if p.User == "" {
		return Reply{}, errors.New("empty prompt")
	}
	if !c.quota.take() {
		return Reply{}, fmt.Errorf("%w (%d calls/min)", ErrRateLimited, c.quota.limit)
	}

	body, err := json.Marshal(wireRequest{
		Model:     model,
		MaxTokens: max(p.MaxTokens, 1),
		System:    p.System,
		Messages:  []wireMessage{{Role: "user", Content: p.User}},
	})
	if err != nil {
		return Reply{}, fmt.Errorf("encode prompt: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("call haiku: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Reply{}, &APIError{Status: resp.StatusCode, Body: string(raw)}
	}

	var wr wireReply
	if err := json.Unmarshal(raw, &wr); err != nil {
		return Reply{}, fmt.Errorf("decode reply: %w", err)
	}
	out := Reply{InputTokens: wr.Usage.InputTokens, OutputTokens: wr.Usage.OutputTokens}
	for _, block := range wr.Content {
		if block.Type == "" || block.Type == "text" {
			out.Text += block.Text
		}
	}
	if out.Text == "" {
		return Reply{}, errors.New("haiku returned no text")
	}
	slog.Debug("haiku call", "input_tokens", out.InputTokens, "output_tokens", out.OutputTokens)
	return out, nil
}

// quota is a fixed one-minute window of calls.
type quota struct {
	mu      sync.Mutex
	limit   int
	used    int
	resetAt time.Time
	now     func() time.Time
}

func (q *quota) take() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	if !now.Before(q.resetAt) {
		q.used = 0
		q.resetAt = now.Add(time.Minute)
	}
	if q.used >= q.limit {
		return false
	}
	q.used++
	return true
}
