// Package warden implements the autonomous yard steward. It observes the
// yard through the public API, decides on at most one intervention per
// cycle, and acts through the admin endpoints.
package warden

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talgya/cellblock/internal/engine"
)

// YardSnapshot holds all data collected during an observation cycle.
type YardSnapshot struct {
	Status YardStatus         `json:"status"`
	Gangs  []engine.GangStats `json:"gangs"`
	Events []engine.Event     `json:"events"`
}

// YardStatus mirrors GET /api/v1/status.
type YardStatus struct {
	Name       string  `json:"name"`
	Tick       uint64  `json:"tick"`
	YardTime   string  `json:"yard_time"`
	Intensity  float64 `json:"intensity"`
	Mood       string  `json:"mood"`
	Gangs      int     `json:"gangs"`
	Living     int     `json:"living"`
	InSolitary int     `json:"in_solitary"`
	Dead       int     `json:"dead"`
	Speed      float64 `json:"speed"`
}

// Observer fetches yard state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Observe fetches status, gang standings and the recent event feed.
func (o *Observer) Observe(ctx context.Context) (*YardSnapshot, error) {
	snap := &YardSnapshot{}
	if err := o.fetchJSON(ctx, "/api/v1/status", &snap.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON(ctx, "/api/v1/gangs", &snap.Gangs); err != nil {
		return nil, fmt.Errorf("fetch gangs: %w", err)
	}
	if err := o.fetchJSON(ctx, "/api/v1/events?limit=200", &snap.Events); err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	return snap, nil
}

// Ready reports whether the status endpoint answers.
func (o *Observer) Ready(ctx context.Context) bool {
	var st YardStatus
	return o.fetchJSON(ctx, "/api/v1/status", &st) == nil
}

func (o *Observer) fetchJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
