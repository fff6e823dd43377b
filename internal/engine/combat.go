// Combat resolution: hits, misses, solitary, deaths and territory.
package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/talgya/cellblock/internal/gang"
)

// RecentTheft is how long a theft keeps a member marked.
const RecentTheft = 24 * time.Hour

// ViolenceOutcome describes one attack.
type ViolenceOutcome struct {
	AttackerID       string  `json:"attacker_id"`
	TargetID         string  `json:"target_id"`
	Success          bool    `json:"success"`
	Chance           float64 `json:"chance"`
	Weapon           string  `json:"weapon,omitempty"`
	WeaponBroken     bool    `json:"weapon_broken"`
	Stole            bool    `json:"stole"`
	DeathChecked     bool    `json:"death_checked"`
	DeathChance      float64 `json:"death_chance"`
	Killed           bool    `json:"killed"`
	// AttackerExecuted is set when the kill left the attacker's crew hollow
	// and the attacker was executed with it.
	AttackerExecuted bool    `json:"attacker_executed"`
	Imprisoned       bool    `json:"imprisoned"`
	RespectGained    float64 `json:"respect_gained"`
	TerritoryShift   float64 `json:"territory_shift"`
}

// AttackChance is the attacker's chance to land a hit.
func AttackChance(violence, gangViolence, damageRatio float64) float64 {
	p := 0.5 + 0.2*violence/100 + 0.15*gangViolence/100 + math.Min(0.3, 0.3*damageRatio)
	return gang.Prob(math.Min(p, 0.95))
}

// DeathProbability scales the base death chance by weapon damage, attacker
// violence and the target's risk modifier, clamping to [0, 1] after each
// factor.
func DeathProbability(base, damageRatio, attackerViolence, targetRisk float64) float64 {
	p := gang.Prob(base)
	p = gang.Prob(p * (1 + damageRatio*3))
	p = gang.Prob(p * (1 + attackerViolence/100*0.5))
	p = gang.Prob(p * gang.ClampRisk(targetRisk))
	return p
}

// TargetRisk aggregates a member's stored risk modifier with the situational
// factors that make them a target, bounded to [1, 3].
func TargetRisk(s *gang.State, m *gang.Member, now time.Time) float64 {
	r := m.DeathRiskModifier
	if g := s.GangOf(m); g != nil && g.LeaderID == m.ID {
		r += 0.5
	}
	if n := len(m.Weapons); n > 1 {
		r += 0.25 * float64(n-1)
	}
	if m.HasGun() {
		r += 0.5
	}
	if m.Violence >= 80 {
		r += 0.5
	}
	if m.Hits >= 5 {
		r += 0.25
	}
	if !m.LastTheftAt.IsZero() && now.Sub(m.LastTheftAt) < RecentTheft {
		r += 0.5
	}
	return gang.ClampRisk(r)
}

// DegradeWeapon wears down the weapon at idx by amount (at least 1) and
// discards it once durability reaches zero. It reports whether the weapon
// broke.
func DegradeWeapon(m *gang.Member, idx, amount int) bool {
	if idx < 0 || idx >= len(m.Weapons) {
		return false
	}
	m.Weapons[idx].Durability -= max(amount, 1)
	if m.Weapons[idx].Durability > 0 {
		return false
	}
	m.Weapons = append(m.Weapons[:idx], m.Weapons[idx+1:]...)
	return true
}

// SimulateViolence resolves an attack by attackerID on targetID.
func (e *Engine) SimulateViolence(s *gang.State, attackerID, targetID string) Result[ViolenceOutcome] {
	const opName = "violence"
	if attackerID == "" || targetID == "" {
		return failed[ViolenceOutcome](s, validationf(opName, "attacker and target ids are required"))
	}
	if attackerID == targetID {
		return failed[ViolenceOutcome](s, validationf(opName, "a member cannot attack themselves"))
	}
	o, err := e.begin(opName, s)
	if err != nil {
		return failed[ViolenceOutcome](s, err)
	}
	att, ok := o.s.Members[attackerID]
	if !ok {
		return failed[ViolenceOutcome](s, validationf(opName, "unknown member %q", attackerID))
	}
	tgt, ok := o.s.Members[targetID]
	if !ok {
		return failed[ViolenceOutcome](s, validationf(opName, "unknown member %q", targetID))
	}
	if err := o.canFight(att, tgt); err != nil {
		return failed[ViolenceOutcome](s, err)
	}
	out := o.violence(att, tgt)
	return done(o, out, o.describeViolence(out))
}

// StealWeapon moves a random weapon from victim to thief.
func (e *Engine) StealWeapon(s *gang.State, thiefID, victimID string) Result[gang.Weapon] {
	const opName = "steal weapon"
	o, err := e.begin(opName, s)
	if err != nil {
		return failed[gang.Weapon](s, err)
	}
	thief, ok := o.s.Members[thiefID]
	if !ok {
		return failed[gang.Weapon](s, validationf(opName, "unknown member %q", thiefID))
	}
	victim, ok := o.s.Members[victimID]
	if !ok {
		return failed[gang.Weapon](s, validationf(opName, "unknown member %q", victimID))
	}
	if !thief.Active() {
		return failed[gang.Weapon](s, conflictf(opName, "%s cannot act right now", o.Name(thiefID)))
	}
	if !victim.Armed() {
		return failed[gang.Weapon](s, conflictf(opName, "%s has nothing to steal", o.Name(victimID)))
	}
	w := o.steal(thief, victim)
	return done(o, w, fmt.Sprintf("%s lifted %s from %s", o.Name(thiefID), w.Name, o.Name(victimID)))
}

func (o *op) canFight(att, tgt *gang.Member) error {
	switch {
	case att.Killed:
		return conflictf(o.name, "%s is dead", o.Name(att.ID))
	case att.Imprisoned:
		return conflictf(o.name, "%s is in solitary", o.Name(att.ID))
	case tgt.Killed:
		return conflictf(o.name, "%s is already dead", o.Name(tgt.ID))
	case tgt.Imprisoned:
		return conflictf(o.name, "%s is out of reach in solitary", o.Name(tgt.ID))
	}
	return nil
}

func (o *op) violence(att, tgt *gang.Member) ViolenceOutcome {
	cfg := o.s.Config
	out := ViolenceOutcome{AttackerID: att.ID, TargetID: tgt.ID}

	att.AddViolence(5)
	att.Hits++
	att.AddRisk(0.1)

	attGang, tgtGang := o.s.GangOf(att), o.s.GangOf(tgt)
	gangViolence := 0.0
	if attGang != nil {
		gangViolence = attGang.Violence
	}

	wi := -1
	ratio := 0.0
	if cfg.WeaponsEnabled {
		wi = att.BestWeapon()
	}
	if wi >= 0 {
		w := att.Weapons[wi]
		out.Weapon = w.Name
		ratio = float64(w.Damage) / 100
	}

	out.Chance = AttackChance(att.Violence, gangViolence, ratio)
	out.Success = o.roll(out.Chance)

	if !out.Success {
		tgt.AddRespect(5)
		att.AddRespect(-5)
		if cfg.SolitaryEnabled {
			risk := 0.1 + 0.05*float64(att.Hits)
			if wi >= 0 {
				risk += 0.15
			}
			if o.roll(risk) {
				factor := math.Min(1+float64(att.Hits)/5, 4)
				o.imprison(att, time.Duration(float64(cfg.SolitaryDuration)*factor), "caught fighting")
				out.Imprisoned = true
			}
		}
		o.emit(Event{
			Category:    CatViolence,
			ActorID:     att.ID,
			TargetID:    tgt.ID,
			Description: o.describeViolence(out),
		})
		return out
	}

	if wi >= 0 {
		out.WeaponBroken = DegradeWeapon(att, wi, o.between(5, 20))
	}
	if tgt.Armed() && o.roll(0.4) {
		o.steal(att, tgt)
		out.Stole = true
	}

	if cfg.DeathEnabled && (wi >= 0 || att.Violence >= 80 || o.roll(0.1)) {
		out.DeathChecked = true
		out.DeathChance = DeathProbability(cfg.BaseDeathChance, ratio, att.Violence, TargetRisk(o.s, tgt, o.now))
		if o.roll(out.DeathChance) {
			victimLed := tgtGang != nil && tgtGang.LeaderID == tgt.ID
			o.kill(tgt, att.ID)
			out.Killed = true
			if att.Killed {
				out.AttackerExecuted = true
			} else {
				award := 30.0
				if victimLed {
					award += 20
				}
				award *= cfg.RivalHostility
				att.AddRespect(award)
				out.RespectGained = award
			}
			o.emit(Event{
				Category:    CatDeath,
				ActorID:     att.ID,
				TargetID:    tgt.ID,
				Description: o.describeViolence(out),
				Meta:        map[string]any{"death_chance": out.DeathChance, "weapon": out.Weapon},
			})
			o.log.Info("member killed", "attacker", att.ID, "target", tgt.ID, "chance", out.DeathChance)
			return out
		}
	}

	gain := 5 + 10*ratio + rankBonus(tgt.Rank)
	if out.Stole {
		gain += 5
	}
	att.AddRespect(gain)
	tgt.AddRespect(-gain / 2)
	out.RespectGained = gain

	if cfg.TerritoryWarsEnabled && rivalGangs(attGang, tgtGang) {
		out.TerritoryShift = o.shiftTerritory(attGang, tgtGang, ratio, att.Violence, tgt.Rank, out.Stole)
	}

	o.emit(Event{
		Category:    CatViolence,
		ActorID:     att.ID,
		TargetID:    tgt.ID,
		Description: o.describeViolence(out),
	})
	return out
}

// shiftTerritory moves control from the defender's gang to the attacker's.
// The transfer is zero-sum.
func (o *op) shiftTerritory(from, to *gang.Gang, ratio, violence float64, rank gang.Rank, stole bool) float64 {
	amount := 0.02 +
		0.04*ratio +
		0.03*violence/100 +
		0.01*rank.Weight() +
		0.02*gang.Clamp((from.Reputation-to.Reputation)/100, -1, 1)
	if stole {
		amount += 0.01
	}
	amount *= o.s.Config.RivalHostility
	amount = gang.Clamp(amount, 0.01, 0.15)
	amount = math.Min(amount, to.TerritoryControl)
	if amount <= 0 {
		return 0
	}
	to.TerritoryControl -= amount
	from.TerritoryControl += amount
	o.emit(Event{
		Category:    CatTerritory,
		GangID:      from.ID,
		TargetID:    to.ID,
		Description: fmt.Sprintf("%s took %.0f%% of the yard from %s", from.Name, amount*100, to.Name),
		Meta:        map[string]any{"amount": amount},
	})
	return amount
}

func (o *op) steal(thief, victim *gang.Member) gang.Weapon {
	i := o.rng.Intn(len(victim.Weapons))
	w := victim.Weapons[i]
	victim.Weapons = append(victim.Weapons[:i], victim.Weapons[i+1:]...)
	w.AcquiredFrom = gang.FromStolen
	thief.Weapons = append(thief.Weapons, w)
	thief.Thefts++
	thief.LastTheftAt = o.now
	o.emit(Event{
		Category:    CatTheft,
		ActorID:     thief.ID,
		TargetID:    victim.ID,
		Description: fmt.Sprintf("%s took %s off %s", o.Name(thief.ID), w.Name, o.Name(victim.ID)),
	})
	return w
}

func (o *op) imprison(m *gang.Member, d time.Duration, reason string) {
	until := o.now.Add(d)
	if m.Imprisoned && m.ImprisonedUntil.After(until) {
		until = m.ImprisonedUntil
	}
	m.Imprisoned = true
	m.ImprisonedUntil = until
	o.emit(Event{
		Category:    CatSolitary,
		TargetID:    m.ID,
		Description: fmt.Sprintf("%s thrown in solitary for %s (%s)", o.Name(m.ID), d.Round(time.Minute), reason),
	})
}

func (o *op) release(m *gang.Member) {
	m.Imprisoned = false
	m.ImprisonedUntil = time.Time{}
	o.emit(Event{
		Category:    CatRelease,
		TargetID:    m.ID,
		Description: o.Name(m.ID) + " walked out of solitary",
	})
	if g := o.s.GangOf(m); g != nil && g.LeaderID == "" {
		o.succeed(g)
	}
}

func (o *op) describeViolence(v ViolenceOutcome) string {
	a, t := o.Name(v.AttackerID), o.Name(v.TargetID)
	with := ""
	if v.Weapon != "" {
		with = " with " + v.Weapon
	}
	switch {
	case v.AttackerExecuted:
		return fmt.Sprintf("%s killed %s%s and went down with the crew", a, t, with)
	case v.Killed:
		return fmt.Sprintf("%s killed %s%s", a, t, with)
	case v.Success:
		return fmt.Sprintf("%s beat down %s%s", a, t, with)
	case v.Imprisoned:
		return fmt.Sprintf("%s went after %s%s and ended up in solitary", a, t, with)
	default:
		return fmt.Sprintf("%s went after %s%s and came off worse", a, t, with)
	}
}

func rankBonus(r gang.Rank) float64 {
	switch r {
	case gang.RankLeader:
		return 10
	case gang.RankLieutenant:
		return 6
	case gang.RankSoldier:
		return 3
	case gang.RankRecruit:
		return 1
	default:
		return 0
	}
}

func rivalGangs(a, b *gang.Gang) bool {
	return a != nil && b != nil && a.ID != b.ID && !a.Collapsed && !b.Collapsed
}
