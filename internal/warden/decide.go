package warden

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talgya/cellblock/internal/engine"
	"github.com/talgya/cellblock/internal/llm"
)

// Actions the warden may take.
const (
	ActionNone        = "none"
	ActionYardEvent   = "yard_event"
	ActionEnvironment = "environment"
)

const systemPrompt = `You are the Warden, an autonomous steward of a simulated prison yard where rival gangs recruit, fight, smuggle and die.

Your role: read the state of the yard and recommend zero or one light intervention per cycle. You keep the yard alive as a story, you do not pick winners.

## Core Values (in priority order)

1. ANTI-COLLAPSE: calm the yard when deaths pile up or gangs are falling apart.
2. ANTI-MONOPOLY: when one gang holds 80% or more of the territory, shake the yard so rivals get an opening.
3. ANTI-STAGNATION: when nobody has fought for a long stretch, raise the tension a little.
4. LIGHT TOUCH: when in doubt, do nothing.

## Available Actions

- "none": no intervention. This is the RIGHT choice most of the time.
- "yard_event": fire one random yard event (shakedown, lockdown, shipment, riot or guard rotation).
- "environment": adjust yard tension. Set "intensity" (0 to 1) and optionally "violence_frequency" (0.05 to 0.6).

## Response Format

Respond with ONLY valid JSON (no markdown, no explanation outside the JSON):
{
  "action": "environment",
  "rationale": "Five deaths since the last look; cooling the yard.",
  "intervention": {"type": "environment", "intensity": 0.35, "violence_frequency": 0.15}
}

When action is "none", set "intervention" to null.`

// Decision is the recommended action for one cycle.
type Decision struct {
	Action       string        `json:"action"`
	Rationale    string        `json:"rationale"`
	Intervention *Intervention `json:"intervention"`
}

// Intervention is the payload the actor sends.
type Intervention struct {
	Type              string   `json:"type"`
	Intensity         *float64 `json:"intensity,omitempty"`
	ViolenceFrequency *float64 `json:"violence_frequency,omitempty"`
}

// Params converts an environment intervention to engine parameters.
func (in *Intervention) Params() engine.EnvironmentParams {
	return engine.EnvironmentParams{
		Intensity:         in.Intensity,
		ViolenceFrequency: in.ViolenceFrequency,
	}
}

// Decide asks the model for a decision. Without a usable client, or when the
// model answers badly, it falls back to Rules.
func Decide(ctx context.Context, client *llm.Client, snap *YardSnapshot, h *YardHealth, mem *CycleMemory) *Decision {
	if !client.Enabled() {
		return Rules(snap, h)
	}
	prompt := formatSnapshot(snap, h) + mem.FormatForPrompt()
	slog.Debug("warden prompt", "length", len(prompt))

	reply, err := client.Ask(ctx, llm.Prompt{System: systemPrompt, User: prompt, MaxTokens: 400})
	if err != nil {
		slog.Warn("warden model call failed, using rules", "error", err)
		return Rules(snap, h)
	}
	d, err := parseDecision(reply.Text, snap)
	if err != nil {
		slog.Warn("warden decision rejected, using rules", "error", err)
		return Rules(snap, h)
	}
	return d
}

// Rules is the deterministic policy.
func Rules(snap *YardSnapshot, h *YardHealth) *Decision {
	switch {
	case h.Standing <= 1:
		return &Decision{Action: ActionNone, Rationale: "one crew or none left standing; nothing to balance"}
	case h.Bloodbath:
		v := max(h.Intensity-0.2, 0)
		freq := 0.1
		return &Decision{
			Action:       ActionEnvironment,
			Rationale:    fmt.Sprintf("%d deaths in the window; cooling the yard", h.Deaths),
			Intervention: &Intervention{Type: ActionEnvironment, Intensity: &v, ViolenceFrequency: &freq},
		}
	case h.Monopoly:
		return &Decision{
			Action:       ActionYardEvent,
			Rationale:    fmt.Sprintf("%s holds %.0f%% of the yard; shaking things up", h.TopGang, h.TopShare*100),
			Intervention: &Intervention{Type: ActionYardEvent},
		}
	case h.Stagnant:
		v := min(h.Intensity+0.15, 1)
		return &Decision{
			Action:       ActionEnvironment,
			Rationale:    "no fights in the window; raising the tension",
			Intervention: &Intervention{Type: ActionEnvironment, Intensity: &v},
		}
	}
	return &Decision{Action: ActionNone, Rationale: "the yard is running on its own"}
}

func parseDecision(resp string, snap *YardSnapshot) (*Decision, error) {
	// Strip markdown fences if Haiku wraps them anyway.
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var d Decision
	if err := json.Unmarshal([]byte(resp), &d); err != nil {
		return nil, fmt.Errorf("parse decision (raw: %s): %w", resp, err)
	}
	if err := enforceGuardrails(&d, snap); err != nil {
		return nil, fmt.Errorf("guardrail violation: %w", err)
	}
	return &d, nil
}

// enforceGuardrails validates and clamps the decision within safe bounds.
func enforceGuardrails(d *Decision, snap *YardSnapshot) error {
	switch d.Action {
	case ActionNone:
		d.Intervention = nil
		return nil
	case ActionYardEvent:
		d.Intervention = &Intervention{Type: ActionYardEvent}
		return nil
	case ActionEnvironment:
		if d.Intervention == nil {
			return fmt.Errorf("action %q requires an intervention payload", d.Action)
		}
	default:
		return fmt.Errorf("unknown action %q", d.Action)
	}

	in := d.Intervention
	in.Type = ActionEnvironment
	if in.Intensity == nil && in.ViolenceFrequency == nil {
		return fmt.Errorf("environment intervention changes nothing")
	}
	// Intensity moves at most 0.3 per cycle.
	if in.Intensity != nil {
		cur := snap.Status.Intensity
		v := min(max(*in.Intensity, cur-0.3, 0), cur+0.3, 1)
		if v != *in.Intensity {
			slog.Warn("warden intensity capped", "requested", *in.Intensity, "capped", v)
		}
		in.Intensity = &v
	}
	if in.ViolenceFrequency != nil {
		v := min(max(*in.ViolenceFrequency, 0.05), 0.6)
		in.ViolenceFrequency = &v
	}
	return nil
}

// formatSnapshot builds a concise prompt from the snapshot.
func formatSnapshot(snap *YardSnapshot, h *YardHealth) string {
	var b strings.Builder
	s := snap.Status
	fmt.Fprintf(&b, "## Yard State (%s)\n", s.YardTime)
	fmt.Fprintf(&b, "Living: %d | In solitary: %d | Dead: %d\n", s.Living, s.InSolitary, s.Dead)
	fmt.Fprintf(&b, "Intensity: %.2f (%s)\n\n", s.Intensity, s.Mood)

	b.WriteString("## Gangs\n")
	for _, g := range snap.Gangs {
		if g.Collapsed {
			fmt.Fprintf(&b, "- %s: collapsed\n", g.Name)
			continue
		}
		fmt.Fprintf(&b, "- %s: %d members, %.0f%% territory, reputation %.0f, $%d, %d armed\n",
			g.Name, g.Members, g.Territory*100, g.Reputation, g.Money, g.Armed)
	}

	fmt.Fprintf(&b, "\n## Recent Window (%d events)\n", len(snap.Events))
	fmt.Fprintf(&b, "Fights: %d | Deaths: %d | Sent to solitary: %d\n", h.Fights, h.Deaths, h.Busts)
	fmt.Fprintf(&b, "Triage: %s\n\n", h.CrisisLevel)
	return b.String()
}
