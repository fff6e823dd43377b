// Guards and weapons: bribes, crafting and buying a way out of solitary.
package engine

import (
	"fmt"
	"math"

	"github.com/talgya/cellblock/internal/gang"
)

// BribeOutcome describes a guard bribe for a weapon.
type BribeOutcome struct {
	Success  bool         `json:"success"`
	Chance   float64      `json:"chance"`
	Cost     int          `json:"cost"`
	GuardID  string       `json:"guard_id"`
	Weapon   *gang.Weapon `json:"weapon,omitempty"`
	Solitary bool         `json:"solitary"`
}

// CraftOutcome describes a crafting attempt.
type CraftOutcome struct {
	Success bool         `json:"success"`
	Chance  float64      `json:"chance"`
	Weapon  *gang.Weapon `json:"weapon,omitempty"`
}

// ReleaseOutcome describes a bribe to get out of solitary.
type ReleaseOutcome struct {
	Success bool    `json:"success"`
	Chance  float64 `json:"chance"`
	Cost    int     `json:"cost"`
	GuardID string  `json:"guard_id"`
}

// BribeCost is what a guard asks for a weapon of type t.
func BribeCost(t gang.WeaponType, g *gang.Guard) int {
	return int(math.Round(float64(gang.Weapons[t].BribeCost) * (2 - g.Corruptibility)))
}

// BribeChance is the chance a guard takes a bribe.
func BribeChance(g *gang.Guard, respect, gangReputation float64) float64 {
	return gang.Prob(g.Corruptibility + 0.2*respect/100 + 0.15*gangReputation/100 - 0.3*g.Alertness)
}

// AttemptGuardBribe pays a guard from gang funds for a weapon. An empty
// guardID picks a guard at random.
func (e *Engine) AttemptGuardBribe(s *gang.State, memberID string, t gang.WeaponType, guardID string) Result[BribeOutcome] {
	o, err := e.begin("bribe guard", s)
	if err != nil {
		return failed[BribeOutcome](s, err)
	}
	out, err := o.bribe(memberID, t, guardID)
	if err != nil {
		return failed[BribeOutcome](s, err)
	}
	msg := fmt.Sprintf("%s paid %s %s and got nothing", o.Name(memberID), o.guardName(out.GuardID), money(out.Cost))
	if out.Success {
		msg = fmt.Sprintf("%s paid %s %s for %s", o.Name(memberID), o.guardName(out.GuardID), money(out.Cost), out.Weapon.Name)
	}
	return done(o, out, msg)
}

// CraftWeapon makes a shank or chain.
func (e *Engine) CraftWeapon(s *gang.State, memberID string, t gang.WeaponType) Result[CraftOutcome] {
	o, err := e.begin("craft weapon", s)
	if err != nil {
		return failed[CraftOutcome](s, err)
	}
	out, err := o.craft(memberID, t)
	if err != nil {
		return failed[CraftOutcome](s, err)
	}
	if !out.Success {
		return done(o, out, o.Name(memberID)+" botched the job")
	}
	return done(o, out, o.Name(memberID)+" made "+out.Weapon.Name)
}

// AttemptPrisonReleaseBribe pays a guard to cut a member's time in solitary
// short.
func (e *Engine) AttemptPrisonReleaseBribe(s *gang.State, memberID string) Result[ReleaseOutcome] {
	o, err := e.begin("release bribe", s)
	if err != nil {
		return failed[ReleaseOutcome](s, err)
	}
	out, err := o.releaseBribe(memberID)
	if err != nil {
		return failed[ReleaseOutcome](s, err)
	}
	if out.Success {
		return done(o, out, fmt.Sprintf("%s bought %s out of solitary", o.guardName(out.GuardID), o.Name(memberID)))
	}
	return done(o, out, fmt.Sprintf("%s reported the bribe; %s stays in longer", o.guardName(out.GuardID), o.Name(memberID)))
}

func (o *op) bribe(memberID string, t gang.WeaponType, guardID string) (BribeOutcome, error) {
	var out BribeOutcome
	if !t.Valid() {
		return out, validationf(o.name, "unknown weapon type %q", t)
	}
	m, g, err := o.activeGangMember(memberID)
	if err != nil {
		return out, err
	}
	if !o.s.Config.WeaponsEnabled {
		return out, conflictf(o.name, "weapons are disabled")
	}
	guard, err := o.guard(guardID)
	if err != nil {
		return out, err
	}

	out.GuardID = guard.ID
	out.Cost = BribeCost(t, guard)
	if g.Money < out.Cost {
		return out, resourceErr(o.name, g.Name+" can't cover the bribe", out.Cost, g.Money)
	}
	g.Money -= out.Cost
	m.BribesAttempted++

	out.Chance = BribeChance(guard, m.Respect, g.Reputation)
	out.Success = o.roll(out.Chance)
	if out.Success {
		w := o.forge(t, gang.FromGuard)
		m.Weapons = append(m.Weapons, w)
		m.BribesSucceeded++
		m.AddRespect(5)
		m.AddRisk(0.5)
		out.Weapon = &w
	} else if o.s.Config.SolitaryEnabled && o.roll(guard.Alertness*0.5) {
		o.imprison(m, o.s.Config.SolitaryDuration, "bribing "+guard.Name)
		out.Solitary = true
	} else {
		g.AddResources(-5)
		if o.roll(0.3) {
			m.AddRisk(0.25)
		}
	}

	o.logBribe(m.ID, t, out.Cost, out.Success, guard.ID)
	desc := fmt.Sprintf("%s bribed %s for a %s", o.Name(m.ID), guard.Name, t)
	if !out.Success {
		desc = fmt.Sprintf("%s tried to bribe %s for a %s and failed", o.Name(m.ID), guard.Name, t)
	}
	o.emit(Event{Category: CatBribe, ActorID: m.ID, GangID: g.ID, Description: desc,
		Meta: map[string]any{"guard": guard.ID, "cost": out.Cost, "success": out.Success}})
	return out, nil
}

func (o *op) craft(memberID string, t gang.WeaponType) (CraftOutcome, error) {
	var out CraftOutcome
	if !t.Valid() {
		return out, validationf(o.name, "unknown weapon type %q", t)
	}
	if !t.Craftable() {
		return out, validationf(o.name, "a %s cannot be made inside", t)
	}
	m, ok := o.s.Members[memberID]
	if !ok {
		return out, validationf(o.name, "unknown member %q", memberID)
	}
	if !m.Active() {
		return out, conflictf(o.name, "%s cannot act right now", o.Name(memberID))
	}
	if !o.s.Config.WeaponsEnabled {
		return out, conflictf(o.name, "weapons are disabled")
	}

	out.Chance = gang.Prob(0.5 + 0.4*m.Violence/100)
	out.Success = o.roll(out.Chance)
	if out.Success {
		w := o.forge(t, gang.FromCrafted)
		m.Weapons = append(m.Weapons, w)
		out.Weapon = &w
		o.emitf(CatCraft, m.ID, "", "%s made %s", o.Name(m.ID), w.Name)
	}
	return out, nil
}

func (o *op) releaseBribe(memberID string) (ReleaseOutcome, error) {
	var out ReleaseOutcome
	m, ok := o.s.Members[memberID]
	if !ok {
		return out, validationf(o.name, "unknown member %q", memberID)
	}
	if !m.Imprisoned || m.Killed {
		return out, conflictf(o.name, "%s is not in solitary", o.Name(memberID))
	}
	g := o.s.GangOf(m)
	if g == nil {
		return out, conflictf(o.name, "%s has no gang to pay", o.Name(memberID))
	}
	guard, err := o.guard("")
	if err != nil {
		return out, err
	}
	out.GuardID = guard.ID
	out.Cost = o.s.Config.ReleaseBribeCost
	if g.Money < out.Cost {
		return out, resourceErr(o.name, g.Name+" can't cover the bribe", out.Cost, g.Money)
	}
	g.Money -= out.Cost
	m.BribesAttempted++

	out.Chance = gang.Prob(guard.Corruptibility*0.8 + 0.1 - guard.Alertness*0.2)
	out.Success = o.roll(out.Chance)
	if out.Success {
		m.BribesSucceeded++
		o.release(m)
	} else {
		ext := o.s.Config.SolitaryDuration / 2
		m.ImprisonedUntil = m.ImprisonedUntil.Add(ext)
		m.SentenceExtension += ext
	}
	o.logBribe(m.ID, "", out.Cost, out.Success, guard.ID)
	return out, nil
}

// forge stamps a new weapon from its template.
func (o *op) forge(t gang.WeaponType, from gang.WeaponSource) gang.Weapon {
	spec := gang.Weapons[t]
	name := string(t)
	if len(spec.Names) > 0 {
		name = spec.Names[o.rng.Intn(len(spec.Names))]
	}
	return gang.Weapon{
		ID:           o.newID(),
		Type:         t,
		Name:         name,
		Damage:       spec.Damage,
		Concealment:  spec.Concealment,
		Durability:   spec.Durability,
		AcquiredFrom: from,
	}
}

func (o *op) logBribe(memberID string, t gang.WeaponType, cost int, success bool, guardID string) {
	o.s.BribeLog = append(o.s.BribeLog, gang.BribeAttempt{
		ID:         o.newID(),
		MemberID:   memberID,
		WeaponType: t,
		Cost:       cost,
		Success:    success,
		GuardID:    guardID,
		At:         o.now,
	})
}

// guard resolves a guard by id, or picks one at random when id is empty.
func (o *op) guard(id string) (*gang.Guard, error) {
	if id == "" {
		id = o.pick(o.s.GuardIDs())
		if id == "" {
			return nil, validationf(o.name, "no guards on duty")
		}
	}
	g, ok := o.s.Guards[id]
	if !ok {
		return nil, validationf(o.name, "unknown guard %q", id)
	}
	return g, nil
}

func (o *op) guardName(id string) string {
	if g, ok := o.s.Guards[id]; ok {
		return g.Name
	}
	return id
}

// activeGangMember resolves a member who can act and belongs to a gang.
func (o *op) activeGangMember(id string) (*gang.Member, *gang.Gang, error) {
	m, ok := o.s.Members[id]
	if !ok {
		return nil, nil, validationf(o.name, "unknown member %q", id)
	}
	if m.Killed {
		return nil, nil, conflictf(o.name, "%s is dead", o.Name(id))
	}
	if m.Imprisoned {
		return nil, nil, conflictf(o.name, "%s is in solitary", o.Name(id))
	}
	g := o.s.GangOf(m)
	if g == nil {
		return nil, nil, conflictf(o.name, "%s has no gang behind them", o.Name(id))
	}
	return m, g, nil
}
