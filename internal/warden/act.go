package warden

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ActResult is what the admin API said about an intervention.
type ActResult struct {
	Message   string  `json:"message"`
	Intensity float64 `json:"intensity"`
}

// Actor executes interventions via the admin API.
type Actor struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// NewActor creates an Actor targeting the given API base URL with admin auth.
func NewActor(baseURL, adminKey string) *Actor {
	return &Actor{
		BaseURL:  baseURL,
		AdminKey: adminKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Act sends one intervention.
func (a *Actor) Act(ctx context.Context, in *Intervention) (*ActResult, error) {
	var (
		path string
		body []byte
		err  error
	)
	switch in.Type {
	case ActionYardEvent:
		path = "/api/v1/yard-event"
	case ActionEnvironment:
		path = "/api/v1/environment"
		if body, err = json.Marshal(in.Params()); err != nil {
			return nil, fmt.Errorf("marshal intervention: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown intervention %q", in.Type)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.AdminKey)

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("intervention failed (%d): %s", resp.StatusCode, string(respBody))
	}

	var result ActResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
