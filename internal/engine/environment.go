// Environment parameters and ambient yard events.
package engine

import (
	"fmt"

	"github.com/talgya/cellblock/internal/gang"
)

// EnvironmentParams carries optional overrides. Nil fields are left alone.
type EnvironmentParams struct {
	Intensity *float64 `json:"intensity,omitempty"`

	DeathEnabled         *bool `json:"death_enabled,omitempty"`
	WeaponsEnabled       *bool `json:"weapons_enabled,omitempty"`
	DrugEconomyEnabled   *bool `json:"drug_economy_enabled,omitempty"`
	SolitaryEnabled      *bool `json:"solitary_enabled,omitempty"`
	TerritoryWarsEnabled *bool `json:"territory_wars_enabled,omitempty"`

	ViolenceFrequency    *float64 `json:"violence_frequency,omitempty"`
	RecruitmentFrequency *float64 `json:"recruitment_frequency,omitempty"`
	BaseDeathChance      *float64 `json:"base_death_chance,omitempty"`
	SmugglingBaseRisk    *float64 `json:"smuggling_base_risk,omitempty"`
	RivalHostility       *float64 `json:"rival_hostility,omitempty"`
}

// Event kinds produced by TriggerRandomGangEvent.
const (
	EventShakedown     = "shakedown"
	EventLockdown      = "lockdown"
	EventShipment      = "shipment"
	EventRiot          = "riot"
	EventGuardRotation = "guard_rotation"
)

var yardEvents = []string{EventShakedown, EventLockdown, EventShipment, EventRiot, EventGuardRotation}

// ApplyEnvironmentParameters validates and applies overrides. The value is
// the resulting config.
func (e *Engine) ApplyEnvironmentParameters(s *gang.State, p EnvironmentParams) Result[gang.Config] {
	const opName = "environment"
	unit := map[string]*float64{
		"intensity":             p.Intensity,
		"violence frequency":    p.ViolenceFrequency,
		"recruitment frequency": p.RecruitmentFrequency,
		"base death chance":     p.BaseDeathChance,
		"smuggling base risk":   p.SmugglingBaseRisk,
	}
	for name, v := range unit {
		if v != nil && (*v < 0 || *v > 1) {
			return failed[gang.Config](s, validationf(opName, "%s must be between 0 and 1, got %g", name, *v))
		}
	}
	if p.RivalHostility != nil && (*p.RivalHostility < 0 || *p.RivalHostility > 3) {
		return failed[gang.Config](s, validationf(opName, "rival hostility must be between 0 and 3, got %g", *p.RivalHostility))
	}

	o, err := e.begin(opName, s)
	if err != nil {
		return failed[gang.Config](s, err)
	}
	cfg := &o.s.Config
	setF := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setB := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setF(&o.s.EnvironmentIntensity, p.Intensity)
	setB(&cfg.DeathEnabled, p.DeathEnabled)
	setB(&cfg.WeaponsEnabled, p.WeaponsEnabled)
	setB(&cfg.DrugEconomyEnabled, p.DrugEconomyEnabled)
	setB(&cfg.SolitaryEnabled, p.SolitaryEnabled)
	setB(&cfg.TerritoryWarsEnabled, p.TerritoryWarsEnabled)
	setF(&cfg.ViolenceFrequency, p.ViolenceFrequency)
	setF(&cfg.RecruitmentFrequency, p.RecruitmentFrequency)
	setF(&cfg.BaseDeathChance, p.BaseDeathChance)
	setF(&cfg.SmugglingBaseRisk, p.SmugglingBaseRisk)
	setF(&cfg.RivalHostility, p.RivalHostility)

	o.log.Debug("environment updated", "intensity", o.s.EnvironmentIntensity)
	return done(o, o.s.Config, fmt.Sprintf("yard intensity now %.0f%%", o.s.EnvironmentIntensity*100))
}

// TriggerRandomGangEvent fires one ambient event. The value is the event kind.
func (e *Engine) TriggerRandomGangEvent(s *gang.State) Result[string] {
	o, err := e.begin("yard event", s)
	if err != nil {
		return failed[string](s, err)
	}
	kind := o.pick(yardEvents)
	var msg string
	switch kind {
	case EventShakedown:
		msg = o.shakedown()
	case EventLockdown:
		o.s.EnvironmentIntensity = gang.Prob(o.s.EnvironmentIntensity + 0.1)
		for _, id := range o.s.GangIDs() {
			if g := o.s.Gangs[id]; !g.Collapsed {
				g.AddResources(-3)
			}
		}
		msg = "lockdown: the yard is closed and tempers rise"
	case EventShipment:
		msg = o.shipment()
	case EventRiot:
		msg = o.riot()
	case EventGuardRotation:
		msg = o.rotateGuard()
	}
	o.emit(Event{Category: CatWorld, Description: msg, Meta: map[string]any{"kind": kind}})
	return done(o, kind, msg)
}

// shakedown confiscates the best weapon of a random armed member.
func (o *op) shakedown() string {
	var armed []string
	for _, id := range o.s.MemberIDs() {
		if m := o.s.Members[id]; m.Active() && m.Armed() {
			armed = append(armed, id)
		}
	}
	id := o.pick(armed)
	if id == "" {
		return "shakedown: cells tossed, nothing found"
	}
	m := o.s.Members[id]
	i := m.BestWeapon()
	w := m.Weapons[i]
	m.Weapons = append(m.Weapons[:i], m.Weapons[i+1:]...)
	m.AddRisk(0.1)
	return fmt.Sprintf("shakedown: guards found %s on %s", w.Name, o.Name(id))
}

// shipment lands product with a random standing gang.
func (o *op) shipment() string {
	if !o.s.Config.DrugEconomyEnabled {
		return "shipment: a delivery came in clean"
	}
	g := o.randomStandingGang()
	if g == nil {
		return "shipment: nobody to receive it"
	}
	grams := o.between(10, 30)
	g.DrugsStash += grams
	return fmt.Sprintf("shipment: %s took delivery of %dg", g.Name, grams)
}

// riot sets one active member of a gang on one of a rival gang.
func (o *op) riot() string {
	var fighters [][]string
	for _, gid := range o.s.GangIDs() {
		g := o.s.Gangs[gid]
		if g.Collapsed {
			continue
		}
		var active []string
		for _, m := range o.s.LivingMembers(g) {
			if m.Active() {
				active = append(active, m.ID)
			}
		}
		if len(active) > 0 {
			fighters = append(fighters, active)
		}
	}
	if len(fighters) < 2 {
		o.s.EnvironmentIntensity = gang.Prob(o.s.EnvironmentIntensity + 0.05)
		return "riot: noise in the block, no crews to clash"
	}
	i := o.rng.Intn(len(fighters))
	j := o.rng.Intn(len(fighters) - 1)
	if j >= i {
		j++
	}
	att := o.s.Members[o.pick(fighters[i])]
	tgt := o.s.Members[o.pick(fighters[j])]
	v := o.violence(att, tgt)
	o.s.EnvironmentIntensity = gang.Prob(o.s.EnvironmentIntensity + 0.05)
	return "riot: " + o.describeViolence(v)
}

// rotateGuard swaps in a new shift temperament for a random guard.
func (o *op) rotateGuard() string {
	id := o.pick(o.s.GuardIDs())
	if id == "" {
		return "guard rotation: nobody showed up"
	}
	g := o.s.Guards[id]
	g.Corruptibility = gang.Prob(g.Corruptibility + (o.rng.Float64()-0.5)*0.2)
	g.Alertness = gang.Prob(g.Alertness + (o.rng.Float64()-0.5)*0.2)
	return fmt.Sprintf("guard rotation: %s is back on the block, %s", g.Name, g.ReputationTier())
}

func (o *op) randomStandingGang() *gang.Gang {
	var ids []string
	for _, id := range o.s.GangIDs() {
		if !o.s.Gangs[id].Collapsed {
			ids = append(ids, id)
		}
	}
	if id := o.pick(ids); id != "" {
		return o.s.Gangs[id]
	}
	return nil
}
