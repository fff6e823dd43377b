// Yard bulletin: a periodic digest of the block's events and balance of
// power, written by Haiku when available and as plain text otherwise.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/cellblock/internal/engine"
	"github.com/talgya/cellblock/internal/gang"
)

// BulletinData is the raw material of one bulletin.
type BulletinData struct {
	Tick      uint64
	Intensity float64
	Gangs     []engine.GangStats

	Deaths   []string
	Violence []string
	Economy  []string
	Politics []string
	World    []string
}

// Bulletin is a generated issue.
type Bulletin struct {
	GeneratedAt time.Time `json:"generated_at"`
	Tick        uint64    `json:"tick"`
	Content     string    `json:"content"`
}

// BuildBulletinData sorts events into sections.
func BuildBulletinData(s *gang.State, events []engine.Event) *BulletinData {
	d := &BulletinData{
		Tick:      s.Tick,
		Intensity: s.EnvironmentIntensity,
	}
	for _, st := range engine.AllGangStats(s) {
		if !st.Collapsed {
			d.Gangs = append(d.Gangs, st)
		}
	}
	for _, ev := range events {
		switch ev.Category {
		case engine.CatDeath:
			d.Deaths = append(d.Deaths, ev.Description)
		case engine.CatViolence, engine.CatTerritory, engine.CatSolitary:
			d.Violence = append(d.Violence, ev.Description)
		case engine.CatBribe, engine.CatCraft, engine.CatSmuggling, engine.CatDealing,
			engine.CatTrophy, engine.CatPurchase, engine.CatTheft:
			d.Economy = append(d.Economy, ev.Description)
		case engine.CatSuccession, engine.CatCollapse, engine.CatMerger, engine.CatRecruitment:
			d.Politics = append(d.Politics, ev.Description)
		case engine.CatWorld:
			d.World = append(d.World, ev.Description)
		}
	}
	return d
}

// GenerateBulletin writes an issue. Any API failure falls back to the plain
// text edition.
func GenerateBulletin(ctx context.Context, client *Client, data *BulletinData) *Bulletin {
	out := &Bulletin{GeneratedAt: time.Now(), Tick: data.Tick}
	if !client.Enabled() {
		out.Content = fallbackBulletin(data)
		return out
	}

	system := `You write "The Yard Sheet", a contraband newsletter passed cell to cell. Report the week's gang news in a clipped, street-level voice: who rose, who fell, who is holding the yard. Under 400 words. Do not reference a simulation or a game.`

	reply, err := client.Ask(ctx, Prompt{System: system, User: bulletinPrompt(data), MaxTokens: 800})
	if err != nil {
		slog.Warn("bulletin falls back to plain text", "error", err)
		out.Content = fallbackBulletin(data)
		return out
	}
	out.Content = reply.Text
	return out
}

func bulletinPrompt(d *BulletinData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write this issue of The Yard Sheet.\n\n")
	fmt.Fprintf(&b, "TICK: %d. Tension on the block: %.0f%%.\n\n", d.Tick, d.Intensity*100)
	writeStandings(&b, d.Gangs)
	section(&b, "DEATHS", d.Deaths, 5)
	section(&b, "FIGHTS", d.Violence, 5)
	section(&b, "POWER SHIFTS", d.Politics, 5)
	section(&b, "BUSINESS", d.Economy, 5)
	section(&b, "THE BLOCK", d.World, 3)
	return b.String()
}

func fallbackBulletin(d *BulletinData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "THE YARD SHEET\n")
	fmt.Fprintf(&b, "==============\n")
	fmt.Fprintf(&b, "Tick %d. Tension %.0f%%.\n\n", d.Tick, d.Intensity*100)
	writeStandings(&b, d.Gangs)
	section(&b, "OBITUARIES", d.Deaths, 5)
	section(&b, "POWER SHIFTS", d.Politics, 5)
	section(&b, "FIGHTS", d.Violence, 3)
	section(&b, "BUSINESS", d.Economy, 3)
	section(&b, "THE BLOCK", d.World, 3)
	return b.String()
}

func writeStandings(b *strings.Builder, gangs []engine.GangStats) {
	if len(gangs) == 0 {
		return
	}
	fmt.Fprintf(b, "STANDINGS\n")
	for _, g := range gangs {
		fmt.Fprintf(b, "- %s: %d %s, %.0f%% of the yard, $%s, reputation %.0f\n",
			g.Name, g.Members, plural(g.Members, "member"), g.Territory*100, humanize.Comma(int64(g.Money)), g.Reputation)
	}
	b.WriteString("\n")
}

func section(b *strings.Builder, title string, lines []string, limit int) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "%s\n", title)
	for i, l := range lines {
		if i >= limit {
			fmt.Fprintf(b, "...and %d more.\n", len(lines)-limit)
			break
		}
		fmt.Fprintf(b, "- %s\n", l)
	}
	b.WriteString("\n")
}
