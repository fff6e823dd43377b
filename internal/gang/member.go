// Member status: one record per personality that has ever touched the yard's
// gang life, whether affiliated, independent, locked up or dead.
package gang

import (
	"slices"
	"time"
)

// Death risk bounds. Every write to DeathRiskModifier goes through ClampRisk.
const (
	MinDeathRisk = 1.0
	MaxDeathRisk = 3.0
)

// Member is the gang-life status of a single personality.
type Member struct {
	ID           string `json:"id"`
	GangID       string `json:"gang_id,omitempty"`
	FormerGangID string `json:"former_gang_id,omitempty"` // gang at time of death or departure
	Rank         Rank   `json:"rank"`

	Loyalty  float64 `json:"loyalty"`  // 0–100
	Respect  float64 `json:"respect"`  // 0–100
	Violence float64 `json:"violence"` // 0–100
	Hits     int     `json:"hits"`

	// Confinement
	Imprisoned        bool          `json:"imprisoned"`
	ImprisonedUntil   time.Time     `json:"imprisoned_until,omitempty"`
	SentenceExtension time.Duration `json:"sentence_extension"`

	// Death
	Killed         bool      `json:"killed"`
	KilledBy       string    `json:"killed_by,omitempty"`
	KilledAt       time.Time `json:"killed_at,omitempty"`
	DeathProcessed bool      `json:"death_processed"`

	Weapons []Weapon `json:"weapons"`

	// Counters
	BribesAttempted   int       `json:"bribes_attempted"`
	BribesSucceeded   int       `json:"bribes_succeeded"`
	Thefts            int       `json:"thefts"`
	LastTheftAt       time.Time `json:"last_theft_at,omitempty"`
	SmugglingRuns     int       `json:"smuggling_runs"`
	SmugglingBusts    int       `json:"smuggling_busts"`
	DrugsSmuggled     int       `json:"drugs_smuggled"` // grams
	DrugsDealt        int       `json:"drugs_dealt"`    // grams
	TotalDrugEarnings int       `json:"total_drug_earnings"`

	DeathRiskModifier float64  `json:"death_risk_modifier"`
	Trophies          []Trophy `json:"trophies"`
}

// NewMember returns an unaffiliated member with baseline stats.
func NewMember(id string) *Member {
	return &Member{
		ID:                id,
		Rank:              RankIndependent,
		Loyalty:           50,
		Respect:           10,
		Violence:          10,
		DeathRiskModifier: MinDeathRisk,
		Weapons:           []Weapon{},
		Trophies:          []Trophy{},
	}
}

// Alive reports whether the member has not been killed.
func (m *Member) Alive() bool {
	return !m.Killed
}

// Active reports whether the member can act: alive and not locked up.
func (m *Member) Active() bool {
	return !m.Killed && !m.Imprisoned
}

// Armed reports whether the member carries any weapon.
func (m *Member) Armed() bool {
	return len(m.Weapons) > 0
}

// HasGun reports whether the member carries a gun.
func (m *Member) HasGun() bool {
	for _, w := range m.Weapons {
		if w.Type == WeaponGun {
			return true
		}
	}
	return false
}

// BestWeapon returns the index of the highest-damage weapon, or -1 if unarmed.
func (m *Member) BestWeapon() int {
	best := -1
	for i, w := range m.Weapons {
		if best < 0 || w.Damage > m.Weapons[best].Damage {
			best = i
		}
	}
	return best
}

// HasTrophy reports whether t has been unlocked.
func (m *Member) HasTrophy(t Trophy) bool {
	return slices.Contains(m.Trophies, t)
}

// AddRisk shifts the death risk modifier and keeps it in bounds.
func (m *Member) AddRisk(delta float64) {
	m.DeathRiskModifier = ClampRisk(m.DeathRiskModifier + delta)
}

// AddRespect shifts respect within 0–100.
func (m *Member) AddRespect(delta float64) {
	m.Respect = Clamp(m.Respect+delta, 0, 100)
}

// AddLoyalty shifts loyalty within 0–100.
func (m *Member) AddLoyalty(delta float64) {
	m.Loyalty = Clamp(m.Loyalty+delta, 0, 100)
}

// AddViolence shifts violence within 0–100.
func (m *Member) AddViolence(delta float64) {
	m.Violence = Clamp(m.Violence+delta, 0, 100)
}

// ClampRisk bounds a death risk modifier to [1.0, 3.0].
func ClampRisk(v float64) float64 {
	return Clamp(v, MinDeathRisk, MaxDeathRisk)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Prob bounds a probability to [0, 1].
func Prob(p float64) float64 {
	return Clamp(p, 0, 1)
}

// Clone returns a deep copy.
func (m *Member) Clone() *Member {
	c := *m
	c.Weapons = slices.Clone(m.Weapons)
	if c.Weapons == nil {
		c.Weapons = []Weapon{}
	}
	c.Trophies = slices.Clone(m.Trophies)
	if c.Trophies == nil {
		c.Trophies = []Trophy{}
	}
	return &c
}
