package warden

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/cellblock/internal/llm"
)

// Warden runs observe, decide, act cycles.
type Warden struct {
	Observer *Observer
	Actor    *Actor
	LLM      *llm.Client // optional
	Memory   *CycleMemory
}

// Cycle executes one observe → decide → act pass and records it.
func (w *Warden) Cycle(ctx context.Context) (*Decision, error) {
	snap, err := w.Observer.Observe(ctx)
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	h := Triage(snap)
	slog.Info("observation complete",
		"yard_time", snap.Status.YardTime,
		"standing", h.Standing,
		"top_share", fmt.Sprintf("%.2f", h.TopShare),
		"deaths", h.Deaths,
		"crisis", h.CrisisLevel,
	)

	d := Decide(ctx, w.LLM, snap, h, w.Memory)
	slog.Info("decision made", "action", d.Action, "rationale", d.Rationale)

	if w.Memory != nil {
		w.Memory.Record(CycleRecord{
			Tick:        snap.Status.Tick,
			Action:      d.Action,
			CrisisLevel: h.CrisisLevel,
			TopShare:    h.TopShare,
			Deaths:      h.Deaths,
			Rationale:   d.Rationale,
		})
		if err := w.Memory.Save(); err != nil {
			slog.Warn("warden memory not saved", "error", err)
		}
	}

	if d.Action == ActionNone || d.Intervention == nil {
		return d, nil
	}
	res, err := w.Actor.Act(ctx, d.Intervention)
	if err != nil {
		return d, fmt.Errorf("act: %w", err)
	}
	slog.Info("intervention executed", "type", d.Intervention.Type, "message", res.Message, "intensity", res.Intensity)
	return d, nil
}
