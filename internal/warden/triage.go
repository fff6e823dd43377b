package warden

import "github.com/talgya/cellblock/internal/engine"

// Crisis levels, most severe first.
const (
	LevelCritical = "CRITICAL"
	LevelWarning  = "WARNING"
	LevelWatch    = "WATCH"
	LevelCalm     = "CALM"
)

// YardHealth holds signals derived from a snapshot. Computed before any
// model call, deterministic and free.
type YardHealth struct {
	Standing    int     // gangs not collapsed
	TopGang     string  // largest territory holder
	TopShare    float64 // its territory
	Deaths      int     // in the observed window
	Fights      int
	Busts       int
	Intensity   float64
	CrisisLevel string
	Monopoly    bool // one gang holds most of the yard
	Bloodbath   bool
	Stagnant    bool // nobody is fighting
}

// Triage computes a YardHealth from the snapshot's data.
func Triage(snap *YardSnapshot) *YardHealth {
	h := &YardHealth{Intensity: snap.Status.Intensity}
	for _, g := range snap.Gangs {
		if g.Collapsed {
			continue
		}
		h.Standing++
		if g.Territory > h.TopShare {
			h.TopShare = g.Territory
			h.TopGang = g.ID
		}
	}
	for _, ev := range snap.Events {
		switch ev.Category {
		case engine.CatDeath:
			h.Deaths++
		case engine.CatViolence:
			h.Fights++
		case engine.CatSolitary:
			h.Busts++
		}
	}

	h.Monopoly = h.Standing > 1 && h.TopShare >= 0.8
	h.Bloodbath = h.Deaths >= 5
	h.Stagnant = snap.Status.Tick > 0 && h.Fights == 0 && h.Deaths == 0

	h.CrisisLevel = LevelCalm
	switch {
	case h.Standing <= 1:
		h.CrisisLevel = LevelCritical
	case h.Bloodbath:
		h.CrisisLevel = LevelCritical
	case h.Monopoly:
		h.CrisisLevel = LevelWarning
	case h.Stagnant:
		h.CrisisLevel = LevelWatch
	}
	return h
}
