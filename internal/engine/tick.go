// Tick pipeline: autonomous advancement of the whole yard.
package engine

import (
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"time"

	"github.com/talgya/cellblock/internal/gang"
)

// TickReport summarizes one Advance call.
type TickReport struct {
	Tick            uint64       `json:"tick"`
	Hours           float64      `json:"hours"`
	Released        []string     `json:"released"`
	Executed        []string     `json:"executed"`
	Collapsed       []string     `json:"collapsed"`
	DeathsProcessed []string     `json:"deaths_processed"`
	PhaseErrors     []PhaseError `json:"phase_errors,omitempty"`
}

// PhaseError records a phase that faulted and was skipped.
type PhaseError struct {
	Phase string `json:"phase"`
	Err   string `json:"error"`
}

// Phase is one pass of the tick pipeline.
type Phase struct {
	Name string
	run  func(o *op, hours float64, r *TickReport)
}

// Phases lists the tick pipeline in execution order.
var Phases = []Phase{
	{"release and decay", (*op).phaseReleaseAndDecay},
	{"collapse", (*op).phaseCollapse},
	{"death penalties", (*op).phaseDeathPenalties},
	{"arm unarmed", (*op).phaseArm},
	{"release bribes", (*op).phaseReleaseBribes},
	{"drug economy", (*op).phaseDrugEconomy},
	{"gang drift", (*op).phaseDrift},
}

// perTick converts a per-hour chance into the chance of at least one
// occurrence over hours.
func perTick(freq, hours float64) float64 {
	if hours <= 0 {
		return 0
	}
	return 1 - math.Pow(1-gang.Prob(freq), hours)
}

// Advance moves the yard forward by delta. Each phase runs on its own copy of
// the state; a phase that faults is skipped and recorded in the report. If
// the input is unusable or the result fails its checks, Advance returns the
// input unchanged with a KindInvariant error.
func (e *Engine) Advance(s *gang.State, delta time.Duration) (res Result[TickReport]) {
	const opName = "advance"
	if s == nil {
		return Result[TickReport]{Err: invariantErr(opName, errors.New("nil state")), Message: "no state to advance"}
	}
	if err := s.Check(); err != nil {
		return failed[TickReport](s, invariantErr(opName, err))
	}
	if delta < 0 {
		return failed[TickReport](s, validationf(opName, "negative delta %s", delta))
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("tick aborted", "panic", r, "stack", string(debug.Stack()))
			res = failed[TickReport](s, invariantErr(opName, fmt.Errorf("panic: %v", r)))
		}
	}()

	now := e.now()
	hours := delta.Hours()
	report := TickReport{Tick: s.Tick + 1, Hours: hours}
	cur := s.Clone()
	cur.Tick++
	var events []Event

	for _, ph := range Phases {
		o := &op{Engine: e, name: ph.Name, s: cur.Clone(), now: now}
		snapshot := report
		if err := runPhase(ph, o, hours, &report); err != nil {
			report = snapshot
			report.PhaseErrors = append(report.PhaseErrors, PhaseError{Phase: ph.Name, Err: err.Error()})
			e.log.Warn("tick phase skipped", "phase", ph.Name, "error", err)
			continue
		}
		cur = o.s
		events = append(events, o.events...)
	}
	cur.LastAdvance = now

	if err := cur.Check(); err != nil {
		e.log.Error("tick produced invalid state", "error", err)
		return failed[TickReport](s, invariantErr(opName, err))
	}

	e.log.Debug("tick complete", "tick", cur.Tick, "hours", hours, "events", len(events))
	return Result[TickReport]{
		State:   cur,
		Value:   report,
		Message: fmt.Sprintf("tick %d: %s", cur.Tick, plural(len(events), "event")),
		Events:  events,
	}
}

func runPhase(ph Phase, o *op, hours float64, r *TickReport) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	// Copy slices so a faulting phase cannot leave partial appends behind.
	r.Released = append([]string(nil), r.Released...)
	r.Executed = append([]string(nil), r.Executed...)
	r.Collapsed = append([]string(nil), r.Collapsed...)
	r.DeathsProcessed = append([]string(nil), r.DeathsProcessed...)
	ph.run(o, hours, r)
	return nil
}

func (o *op) phaseReleaseAndDecay(hours float64, r *TickReport) {
	cfg := o.s.Config
	for _, id := range o.s.MemberIDs() {
		m := o.s.Members[id]
		if m.Killed {
			continue
		}
		if m.Imprisoned && !m.ImprisonedUntil.After(o.now) {
			o.release(m)
			r.Released = append(r.Released, id)
		}
		if m.GangID != "" {
			m.AddLoyalty(-cfg.LoyaltyDecayRate * hours)
		}
		m.DeathRiskModifier = gang.ClampRisk(m.DeathRiskModifier - cfg.DeathRiskDecayRate*hours)
	}
}

func (o *op) phaseCollapse(_ float64, r *TickReport) {
	for _, id := range o.s.GangIDs() {
		g := o.s.Gangs[id]
		if g.Collapsed {
			continue
		}
		if g.LeaderID == "" {
			o.succeed(g)
		}
		if executed, ok := o.collapseIfHollow(g); ok {
			r.Collapsed = append(r.Collapsed, id)
			if executed != "" {
				r.Executed = append(r.Executed, executed)
			}
		}
	}
}

func (o *op) phaseDeathPenalties(_ float64, r *TickReport) {
	for _, id := range o.s.MemberIDs() {
		m := o.s.Members[id]
		if !m.Killed || m.DeathProcessed {
			continue
		}
		m.DeathProcessed = true
		r.DeathsProcessed = append(r.DeathsProcessed, id)
		g, ok := o.s.Gangs[m.FormerGangID]
		if !ok {
			continue
		}
		rep := 10.0
		if m.Rank == gang.RankLeader {
			rep = 20
		}
		g.AddReputation(-rep)
		g.AddResources(-5)
		// The crew keeps whatever the dead carried.
		g.Weapons = append(g.Weapons, m.Weapons...)
		m.Weapons = []gang.Weapon{}
	}
}

func (o *op) phaseArm(hours float64, _ *TickReport) {
	cfg := o.s.Config
	if !cfg.WeaponsEnabled {
		return
	}
	pBribe := perTick(cfg.BribeFrequency, hours)
	pCraft := perTick(cfg.CraftFrequency, hours)
	for _, id := range o.s.MemberIDs() {
		m := o.s.Members[id]
		if !m.Active() || m.Armed() {
			continue
		}
		g := o.s.GangOf(m)
		if g != nil && len(g.Weapons) > 0 {
			w := g.Weapons[len(g.Weapons)-1]
			g.Weapons = g.Weapons[:len(g.Weapons)-1]
			m.Weapons = append(m.Weapons, w)
			o.emitf(CatCraft, id, "", "%s drew %s from the %s stash", o.Name(id), w.Name, g.Name)
			continue
		}
		if g != nil && o.roll(pBribe) {
			t := []gang.WeaponType{gang.WeaponGun, gang.WeaponShank, gang.WeaponChain}[o.rng.Intn(3)]
			if _, err := o.bribe(id, t, ""); err != nil {
				o.log.Debug("bribe skipped", "member", id, "error", err)
			}
			continue
		}
		if o.roll(pCraft) {
			t := []gang.WeaponType{gang.WeaponShank, gang.WeaponChain}[o.rng.Intn(2)]
			if _, err := o.craft(id, t); err != nil {
				o.log.Debug("craft skipped", "member", id, "error", err)
			}
		}
	}
}

func (o *op) phaseReleaseBribes(hours float64, r *TickReport) {
	p := perTick(o.s.Config.ReleaseBribeFrequency, hours)
	for _, id := range o.s.MemberIDs() {
		m := o.s.Members[id]
		if !m.Imprisoned || m.Killed {
			continue
		}
		g := o.s.GangOf(m)
		if g == nil || g.Money < o.s.Config.ReleaseBribeCost || !o.roll(p) {
			continue
		}
		out, err := o.releaseBribe(id)
		if err != nil {
			o.log.Debug("release bribe skipped", "member", id, "error", err)
			continue
		}
		if out.Success {
			r.Released = append(r.Released, id)
		}
	}
}

func (o *op) phaseDrugEconomy(hours float64, _ *TickReport) {
	cfg := o.s.Config
	pSmuggle := perTick(cfg.SmuggleFrequency, hours)
	pDeal := perTick(cfg.DealFrequency, hours)
	pTheft := perTick(cfg.ItemTheftFrequency, hours)
	for _, id := range o.s.MemberIDs() {
		m := o.s.Members[id]
		if !m.Active() || m.GangID == "" {
			continue
		}
		if cfg.DrugEconomyEnabled {
			if o.roll(pSmuggle) {
				if _, err := o.smuggle(id); err != nil {
					o.log.Debug("smuggle skipped", "member", id, "error", err)
				}
			}
			if m.Active() && o.s.Gangs[m.GangID].DrugsStash > 0 && o.roll(pDeal) {
				if _, err := o.deal(id); err != nil {
					o.log.Debug("deal skipped", "member", id, "error", err)
				}
			}
		}
		if m.Active() && m.GangID != "" && o.roll(pTheft) {
			o.opportunisticTheft(m)
		}
	}
}

func (o *op) opportunisticTheft(m *gang.Member) {
	var marks []string
	for _, gid := range o.s.GangIDs() {
		g := o.s.Gangs[gid]
		if gid == m.GangID || g.Collapsed {
			continue
		}
		for _, n := range g.Items {
			if n > 0 {
				marks = append(marks, gid)
				break
			}
		}
	}
	target := o.pick(marks)
	if target == "" {
		return
	}
	if _, err := o.itemTheft(m.ID, target, ""); err != nil {
		o.log.Debug("item theft skipped", "member", m.ID, "error", err)
	}
}

// phaseDrift nudges gang-level stats. Territory feeds resources and
// reputation, headcount costs upkeep, and gang violence and loyalty track
// the membership average.
func (o *op) phaseDrift(hours float64, _ *TickReport) {
	for _, id := range o.s.GangIDs() {
		g := o.s.Gangs[id]
		if g.Collapsed {
			continue
		}
		living := o.s.LivingMembers(g)
		n := float64(len(living))
		g.AddResources((g.TerritoryControl*3 - 0.1*n) * hours)

		target := 30 + 70*g.TerritoryControl
		step := math.Min(1, 0.05*hours)
		g.AddReputation((target - g.Reputation) * step)

		if n == 0 {
			continue
		}
		var violence, loyalty float64
		for _, m := range living {
			violence += m.Violence
			loyalty += m.Loyalty
		}
		g.Violence = gang.Clamp(violence/n, 0, 100)
		g.Loyalty = gang.Clamp(loyalty/n, 0, 100)
	}
}
