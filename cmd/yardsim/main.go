// Command yardsim runs the cellblock prison-yard simulation and serves it
// over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/cellblock/internal/api"
	"github.com/talgya/cellblock/internal/climate"
	"github.com/talgya/cellblock/internal/config"
	"github.com/talgya/cellblock/internal/engine"
	"github.com/talgya/cellblock/internal/entropy"
	"github.com/talgya/cellblock/internal/gang"
	"github.com/talgya/cellblock/internal/llm"
	"github.com/talgya/cellblock/internal/persistence"
	"github.com/talgya/cellblock/internal/roster"
	"github.com/talgya/cellblock/internal/scheduler"
)

const (
	crewSize     = 6
	independents = 5
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)
	slog.Info("cellblock yard simulation", "seed", cfg.Seed, "step", cfg.Step, "interval", cfg.Interval)

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		slog.Error("failed to create data dir", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Randomness and identities ────────────────────────────────────
	var src entropy.Source = entropy.NewSeeded(cfg.Seed)
	if cfg.UseRandomOrg {
		if pool := entropy.NewPool(cfg.RandomOrgKey); pool.Enabled() {
			src = pool
			slog.Info("drawing from random.org")
		} else {
			slog.Warn("CELLBLOCK_RANDOM_ORG set without RANDOM_ORG_API_KEY, using seeded source")
		}
	}
	names := roster.New(cfg.Seed)

	// ── Load or create the yard ──────────────────────────────────────
	var seeds []gang.Seed
	state, err := db.LoadYard()
	fresh := errors.Is(err, persistence.ErrNoYard)
	switch {
	case fresh:
		slog.Info("no saved yard found, building a new one")
		state = gang.NewState(gang.DefaultConfig())
		seeds = names.Populate(state, crewSize, independents)
	case err != nil:
		slog.Error("failed to load yard", "error", err)
		os.Exit(1)
	default:
		slog.Info("yard restored",
			"tick", state.Tick,
			"yard_time", scheduler.YardTime(state.Tick),
			"gangs", len(state.Gangs),
			"members", len(state.Members),
		)
	}
	state.Config = cfg.Gameplay.Apply(state.Config)

	store := api.NewStore(state, time.Now().UTC().Truncate(time.Hour), cfg.Seed,
		engine.WithSource(src),
		engine.WithNames(names.Name),
		engine.WithAffinity(names.Affinity),
		engine.WithLogger(logger),
	)

	// ── LLM Client ───────────────────────────────────────────────────
	llmClient := llm.NewClient(cfg.AnthropicKey, cfg.NarrationRate)
	if llmClient != nil {
		slog.Info("LLM client enabled (Haiku)")
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set, narration disabled (bulletin will use fallback)")
	}

	// ── Event sinks ──────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := api.NewHub(64)
	go hub.Run(ctx)

	store.OnEvents(func(events []engine.Event) {
		if err := db.SaveEvents(events); err != nil {
			slog.Error("event save failed", "error", err)
		}
	})
	store.OnEvents(hub.Broadcast)
	if llmClient != nil {
		store.OnEvents(narrator(ctx, llmClient, store, names.Name))
	}

	if fresh {
		res := api.Do(store, func(e *engine.Engine, s *gang.State) engine.Result[[]string] {
			return e.InitializeGangs(s, seeds)
		})
		if !res.OK() {
			slog.Error("failed to form gangs", "error", res.Err)
			os.Exit(1)
		}
		for _, id := range res.Value {
			g := res.State.Gangs[id]
			slog.Info("gang formed", "gang", g.Name, "leader", names.Name(g.LeaderID), "members", len(g.MemberIDs))
		}
		if err := db.SaveYard(store.Snapshot()); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Scheduler ────────────────────────────────────────────────────
	curve := climate.New(cfg.Seed)
	sched := scheduler.New(cfg.Interval, store.Snapshot().Tick)
	sched.SetSpeed(cfg.Speed)

	sched.OnTick = func(tick uint64) {
		var intensity *float64
		if cfg.Climate {
			v := curve.Intensity(tick)
			intensity = &v
		}
		res := store.Advance(cfg.Step, intensity)
		if !res.OK() {
			slog.Error("tick failed", "tick", tick, "error", res.Err)
			return
		}
		if n := len(res.Events); n > 0 {
			slog.Debug("tick", "tick", tick, "events", n, "released", len(res.Value.Released))
		}
	}
	sched.OnDay = func(tick uint64) {
		snap := store.Snapshot()
		if err := db.SaveYard(snap); err != nil {
			slog.Error("daily save failed", "error", err)
			return
		}
		if err := db.SaveMeta("last_tick", strconv.FormatUint(tick, 10)); err != nil {
			slog.Warn("meta save failed", "error", err)
		}
		slog.Info("yard saved", "yard_time", scheduler.YardTime(tick), "mood", climate.Describe(snap.EnvironmentIntensity))
	}
	sched.OnWeek = func(tick uint64) {
		data := llm.BuildBulletinData(store.Snapshot(), store.Recent(200, ""))
		b := llm.GenerateBulletin(ctx, llmClient, data)
		if err := db.SaveMeta("bulletin", b.Content); err != nil {
			slog.Error("bulletin save failed", "error", err)
		}
		slog.Info("weekly bulletin", "yard_time", scheduler.YardTime(tick), "length", len(b.Content))
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("CELLBLOCK_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Store:    store,
		Sched:    sched,
		DB:       db,
		LLM:      llmClient,
		Hub:      hub,
		Names:    names.Name,
		Port:     cfg.APIPort,
		AdminKey: cfg.AdminKey,
	}
	srv := apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	fmt.Printf("\nThe yard is open: %d gangs, %d inmates.\n", len(store.Snapshot().Gangs), len(store.Snapshot().Members))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	sched.Run(ctx)

	shutdown, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdown); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveYard(store.Snapshot()); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("Simulation stopped. Yard saved.")
}

// narrator returns an event sink that turns notable events into prose on a
// single background worker. Batches arriving while the worker is busy are
// dropped.
func narrator(ctx context.Context, client *llm.Client, store *api.Store, names llm.Names) func([]engine.Event) {
	queue := make(chan engine.Event, 16)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-queue:
				var yard string
				store.View(func(s *gang.State) { yard = llm.GangContext(s, ev.ActorID, names) })
				text, err := llm.NarrateEvent(ctx, client, ev, yard)
				if err != nil {
					slog.Debug("narration skipped", "event", ev.ID, "error", err)
					continue
				}
				slog.Info("yard story", "tick", ev.Tick, "category", ev.Category, "text", text)
			}
		}
	}()
	return func(events []engine.Event) {
		for _, ev := range events {
			if !llm.Notable(ev) {
				continue
			}
			select {
			case queue <- ev:
			default:
			}
		}
	}
}
