// Drug economy: smuggling product in, dealing it out, trophies.
package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/talgya/cellblock/internal/gang"
)

// StreetValue is the estimated dollar value of a smuggled gram, used for
// trophy progress before the product is sold.
const StreetValue = 35

// SmuggleOutcome describes a smuggling run.
type SmuggleOutcome struct {
	Success   bool          `json:"success"`
	Grams     int           `json:"grams"`
	Risk      float64       `json:"risk"`
	GuardID   string        `json:"guard_id"`
	Estimated int           `json:"estimated"`
	Extension time.Duration `json:"extension"`
	Solitary  bool          `json:"solitary"`
	Trophies  []gang.Trophy `json:"trophies,omitempty"`
}

// DealOutcome describes a dealing run.
type DealOutcome struct {
	Success      bool          `json:"success"`
	Grams        int           `json:"grams"`
	Risk         float64       `json:"risk"`
	PricePerGram int           `json:"price_per_gram"`
	Proceeds     int           `json:"proceeds"`
	Solitary     bool          `json:"solitary"`
	Trophies     []gang.Trophy `json:"trophies,omitempty"`
}

// SmugglingRisk is the chance a run is detected. Each clean run lowers the
// risk by a point, up to ten.
func SmugglingRisk(base float64, g *gang.Guard, cleanRuns int) float64 {
	return gang.Prob(base + g.Alertness*0.3 - math.Min(0.1, 0.01*float64(max(cleanRuns, 0))))
}

// AttemptDrugSmuggling brings 10–50g into the gang's stash.
func (e *Engine) AttemptDrugSmuggling(s *gang.State, memberID string) Result[SmuggleOutcome] {
	o, err := e.begin("smuggle", s)
	if err != nil {
		return failed[SmuggleOutcome](s, err)
	}
	out, err := o.smuggle(memberID)
	if err != nil {
		return failed[SmuggleOutcome](s, err)
	}
	if out.Success {
		return done(o, out, fmt.Sprintf("%s got %dg past %s", o.Name(memberID), out.Grams, o.guardName(out.GuardID)))
	}
	return done(o, out, fmt.Sprintf("%s was caught with %dg", o.Name(memberID), out.Grams))
}

// AttemptDrugDealing sells 5–25g from the gang's stash.
func (e *Engine) AttemptDrugDealing(s *gang.State, memberID string) Result[DealOutcome] {
	o, err := e.begin("deal", s)
	if err != nil {
		return failed[DealOutcome](s, err)
	}
	out, err := o.deal(memberID)
	if err != nil {
		return failed[DealOutcome](s, err)
	}
	if out.Success {
		return done(o, out, fmt.Sprintf("%s moved %dg for %s", o.Name(memberID), out.Grams, money(out.Proceeds)))
	}
	return done(o, out, fmt.Sprintf("%s got busted dealing; %dg confiscated", o.Name(memberID), out.Grams))
}

func (o *op) smuggle(memberID string) (SmuggleOutcome, error) {
	var out SmuggleOutcome
	m, g, err := o.activeGangMember(memberID)
	if err != nil {
		return out, err
	}
	if !o.s.Config.DrugEconomyEnabled {
		return out, conflictf(o.name, "the drug economy is disabled")
	}
	guard, err := o.guard("")
	if err != nil {
		return out, err
	}

	out.GuardID = guard.ID
	out.Grams = o.between(10, 50)
	out.Risk = SmugglingRisk(o.s.Config.SmugglingBaseRisk, guard, m.SmugglingRuns-m.SmugglingBusts)
	m.SmugglingRuns++

	if o.roll(out.Risk) {
		m.SmugglingBusts++
		out.Extension = time.Duration(12+out.Grams/2) * time.Hour
		m.SentenceExtension += out.Extension
		if o.s.Config.SolitaryEnabled && o.roll(0.5) {
			o.imprison(m, o.s.Config.SolitaryDuration+out.Extension, "smuggling")
			out.Solitary = true
		}
		o.emitf(CatSmuggling, m.ID, "", "%s was caught smuggling %dg past %s", o.Name(m.ID), out.Grams, guard.Name)
		return out, nil
	}

	out.Success = true
	out.Estimated = out.Grams * StreetValue
	g.DrugsStash += out.Grams
	m.DrugsSmuggled += out.Grams
	m.TotalDrugEarnings += out.Estimated
	out.Trophies = o.awardTrophies(m)
	o.emit(Event{Category: CatSmuggling, ActorID: m.ID, GangID: g.ID,
		Description: fmt.Sprintf("%s smuggled %dg in for %s", o.Name(m.ID), out.Grams, g.Name)})
	return out, nil
}

func (o *op) deal(memberID string) (DealOutcome, error) {
	var out DealOutcome
	m, g, err := o.activeGangMember(memberID)
	if err != nil {
		return out, err
	}
	if !o.s.Config.DrugEconomyEnabled {
		return out, conflictf(o.name, "the drug economy is disabled")
	}
	if g.DrugsStash <= 0 {
		return out, &Error{Kind: KindResource, Op: o.name, Msg: g.Name + " has nothing to sell", Required: 5, Available: 0}
	}
	guard, err := o.guard("")
	if err != nil {
		return out, err
	}

	out.Grams = min(o.between(5, 25), g.DrugsStash)
	out.Risk = SmugglingRisk(o.s.Config.SmugglingBaseRisk, guard, m.SmugglingRuns-m.SmugglingBusts) / 2

	if o.roll(out.Risk) {
		g.DrugsStash -= out.Grams
		if o.s.Config.SolitaryEnabled && o.roll(0.3) {
			o.imprison(m, o.s.Config.SolitaryDuration, "dealing")
			out.Solitary = true
		}
		o.emitf(CatDealing, m.ID, "", "%s was caught dealing; %dg confiscated", o.Name(m.ID), out.Grams)
		return out, nil
	}

	out.Success = true
	out.PricePerGram = o.between(20, 50)
	out.Proceeds = out.Grams * out.PricePerGram
	g.DrugsStash -= out.Grams
	g.Money += out.Proceeds
	g.TotalEarnings += out.Proceeds
	m.DrugsDealt += out.Grams
	m.TotalDrugEarnings += out.Proceeds
	out.Trophies = o.awardTrophies(m)
	o.emit(Event{Category: CatDealing, ActorID: m.ID, GangID: g.ID,
		Description: fmt.Sprintf("%s sold %dg for %s", o.Name(m.ID), out.Grams, money(out.Proceeds)),
		Meta:        map[string]any{"grams": out.Grams, "proceeds": out.Proceeds}})
	return out, nil
}

// awardTrophies unlocks every trophy whose threshold has been crossed and
// not yet awarded. Trophies are never removed.
func (o *op) awardTrophies(m *gang.Member) []gang.Trophy {
	var won []gang.Trophy
	for _, th := range gang.TrophyThresholds {
		if m.TotalDrugEarnings >= th.Earnings && !m.HasTrophy(th.Trophy) {
			m.Trophies = append(m.Trophies, th.Trophy)
			won = append(won, th.Trophy)
			o.emitf(CatTrophy, m.ID, "", "%s earned the %s at %s", o.Name(m.ID), th.Trophy, money(th.Earnings))
		}
	}
	return won
}
