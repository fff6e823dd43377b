// Command warden runs the autonomous yard steward. It observes the yard,
// decides on interventions (Claude Haiku when a key is set, fixed rules
// otherwise) and acts via the admin API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/cellblock/internal/config"
	"github.com/talgya/cellblock/internal/llm"
	"github.com/talgya/cellblock/internal/warden"
)

func main() {
	cfg, err := config.LoadWarden()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)

	slog.Info("cellblock warden starting", "api_url", cfg.APIURL, "interval", cfg.Interval)

	if err := os.MkdirAll(filepath.Dir(cfg.MemoryPath), 0755); err != nil {
		slog.Warn("memory dir unavailable", "error", err)
	}
	w := &warden.Warden{
		Observer: warden.NewObserver(cfg.APIURL),
		Actor:    warden.NewActor(cfg.APIURL, cfg.AdminKey),
		LLM:      llm.NewClient(cfg.AnthropicKey, 0),
		Memory:   warden.LoadMemory(cfg.MemoryPath),
	}
	if !w.LLM.Enabled() {
		slog.Warn("ANTHROPIC_API_KEY not set, deciding by rules")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Process start does not mean the HTTP API is ready yet.
	slog.Info("waiting for yardsim API...")
	if !waitForAPI(ctx, w.Observer) {
		slog.Error("yardsim API did not become ready")
		os.Exit(1)
	}

	runCycle(ctx, w)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runCycle(ctx, w)
		case <-ctx.Done():
			slog.Info("shutting down")
			fmt.Println("Warden stopped.")
			return
		}
	}
}

func runCycle(ctx context.Context, w *warden.Warden) {
	slog.Info("warden cycle starting")
	d, err := w.Cycle(ctx)
	if err != nil {
		slog.Error("warden cycle failed", "error", err)
		return
	}
	if d.Action == warden.ActionNone {
		slog.Info("warden cycle complete, no intervention")
	}
}

// waitForAPI polls the status endpoint with exponential backoff for up to
// five minutes.
func waitForAPI(ctx context.Context, obs *warden.Observer) bool {
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(5 * time.Minute)

	for {
		if obs.Ready(ctx) {
			slog.Info("yardsim API is ready")
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		slog.Info("yardsim not ready, retrying...", "backoff", backoff)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}
