// Event narration: turns the block's major events into a few lines of prose.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/talgya/cellblock/internal/engine"
)

const narratorSystem = `You are the unofficial historian of a maximum-security cell block, writing in the voice of an old-timer who has seen every crew rise and fall.

Narrate this event in 2-3 sentences of hard-bitten, vivid prose. Do not moralize, do not invent names that are not given, and do not reference a simulation or a game.`

// Notable reports whether ev is worth spending a narration call on.
func Notable(ev engine.Event) bool {
	switch ev.Category {
	case engine.CatDeath, engine.CatMerger, engine.CatCollapse, engine.CatSuccession, engine.CatTrophy:
		return true
	}
	return false
}

// eventPrompt frames ev for the narrator. Deaths and collapses get a longer
// allowance than routine power shifts.
func eventPrompt(ev engine.Event, yardContext string) Prompt {
	var b strings.Builder
	if yardContext != "" {
		fmt.Fprintf(&b, "The block right now: %s\n\n", yardContext)
	}
	fmt.Fprintf(&b, "Event (%s, tick %d): %s", ev.Category, ev.Tick, ev.Description)
	if ev.GangID != "" {
		fmt.Fprintf(&b, "\nCrew involved: %s", ev.GangID)
	}
	p := Prompt{System: narratorSystem, User: b.String(), MaxTokens: 150}
	switch ev.Category {
	case engine.CatDeath, engine.CatCollapse, engine.CatMerger:
		p.MaxTokens = 250
	}
	return p
}

// NarrateEvent renders ev as prose. yardContext is a short summary of the
// block's current balance of power.
func NarrateEvent(ctx context.Context, client *Client, ev engine.Event, yardContext string) (string, error) {
	reply, err := client.Ask(ctx, eventPrompt(ev, yardContext))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply.Text), nil
}
