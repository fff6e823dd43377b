// Aggregate state and tunables. The caller owns a State, hands it to the
// engine and receives a new one back; nothing here is shared between calls.
package gang

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"time"
)

// TerritoryEpsilon absorbs float drift when checking the territory sum.
const TerritoryEpsilon = 1e-9

// Config holds the tunables of the simulation. Frequencies are chances per
// simulated hour.
type Config struct {
	DeathEnabled         bool `json:"death_enabled"`
	WeaponsEnabled       bool `json:"weapons_enabled"`
	DrugEconomyEnabled   bool `json:"drug_economy_enabled"`
	SolitaryEnabled      bool `json:"solitary_enabled"`
	TerritoryWarsEnabled bool `json:"territory_wars_enabled"`

	ViolenceFrequency     float64 `json:"violence_frequency"`
	RecruitmentFrequency  float64 `json:"recruitment_frequency"`
	BribeFrequency        float64 `json:"bribe_frequency"`
	CraftFrequency        float64 `json:"craft_frequency"`
	SmuggleFrequency      float64 `json:"smuggle_frequency"`
	DealFrequency         float64 `json:"deal_frequency"`
	ItemTheftFrequency    float64 `json:"item_theft_frequency"`
	ReleaseBribeFrequency float64 `json:"release_bribe_frequency"`

	LoyaltyDecayRate   float64 `json:"loyalty_decay_rate"`    // loyalty points per hour
	DeathRiskDecayRate float64 `json:"death_risk_decay_rate"` // modifier units per hour

	BaseDeathChance   float64       `json:"base_death_chance"`
	SmugglingBaseRisk float64       `json:"smuggling_base_risk"`
	RivalHostility    float64       `json:"rival_hostility"`
	SolitaryDuration  time.Duration `json:"solitary_duration"`
	ReleaseBribeCost  int           `json:"release_bribe_cost"`
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		DeathEnabled:         true,
		WeaponsEnabled:       true,
		DrugEconomyEnabled:   true,
		SolitaryEnabled:      true,
		TerritoryWarsEnabled: true,

		ViolenceFrequency:     0.3,
		RecruitmentFrequency:  0.2,
		BribeFrequency:        0.1,
		CraftFrequency:        0.15,
		SmuggleFrequency:      0.08,
		DealFrequency:         0.12,
		ItemTheftFrequency:    0.03,
		ReleaseBribeFrequency: 0.25,

		LoyaltyDecayRate:   0.5,
		DeathRiskDecayRate: 0.05,

		BaseDeathChance:   0.15,
		SmugglingBaseRisk: 0.25,
		RivalHostility:    1.0,
		SolitaryDuration:  6 * time.Hour,
		ReleaseBribeCost:  250,
	}
}

// State is the aggregate root.
type State struct {
	Config Config `json:"config"`

	Gangs    map[string]*Gang   `json:"gangs"`
	Members  map[string]*Member `json:"members"`
	Guards   map[string]*Guard  `json:"guards"`
	BribeLog []BribeAttempt     `json:"bribe_log"`

	EnvironmentIntensity float64   `json:"environment_intensity"` // 0–1
	Tick                 uint64    `json:"tick"`
	LastAdvance          time.Time `json:"last_advance,omitempty"`
}

// NewState returns an empty aggregate with the given tuning and the default guards.
func NewState(cfg Config) *State {
	s := &State{
		Config:               cfg,
		Gangs:                make(map[string]*Gang),
		Members:              make(map[string]*Member),
		Guards:               make(map[string]*Guard),
		BribeLog:             []BribeAttempt{},
		EnvironmentIntensity: 0.5,
	}
	for _, g := range DefaultGuards() {
		s.Guards[g.ID] = g
	}
	return s
}

// Clone returns a deep copy. Nil nested maps in the source stay nil so that
// Check can still report them.
func (s *State) Clone() *State {
	c := *s
	if s.Gangs != nil {
		c.Gangs = make(map[string]*Gang, len(s.Gangs))
		for id, g := range s.Gangs {
			if g != nil {
				c.Gangs[id] = g.Clone()
			} else {
				c.Gangs[id] = nil
			}
		}
	}
	if s.Members != nil {
		c.Members = make(map[string]*Member, len(s.Members))
		for id, m := range s.Members {
			if m != nil {
				c.Members[id] = m.Clone()
			} else {
				c.Members[id] = nil
			}
		}
	}
	if s.Guards != nil {
		c.Guards = make(map[string]*Guard, len(s.Guards))
		for id, g := range s.Guards {
			if g != nil {
				gc := *g
				c.Guards[id] = &gc
			} else {
				c.Guards[id] = nil
			}
		}
	}
	c.BribeLog = slices.Clone(s.BribeLog)
	return &c
}

// Check reports structural corruption: missing collections, nil entries,
// dangling references, asymmetric membership, killed members on a roster and
// territory overflow.
func (s *State) Check() error {
	if s == nil {
		return errors.New("nil state")
	}
	if s.Gangs == nil || s.Members == nil || s.Guards == nil {
		return errors.New("state collections not initialized")
	}
	var errs []error
	for id, g := range s.Gangs {
		if g == nil {
			errs = append(errs, fmt.Errorf("gang %q is nil", id))
			continue
		}
		if g.Items == nil {
			errs = append(errs, fmt.Errorf("gang %q has nil items", id))
		}
		for _, mid := range g.MemberIDs {
			m, ok := s.Members[mid]
			if !ok || m == nil {
				errs = append(errs, fmt.Errorf("gang %q lists unknown member %q", id, mid))
				continue
			}
			if m.GangID != id {
				errs = append(errs, fmt.Errorf("gang %q lists %q whose gang is %q", id, mid, m.GangID))
			}
			if m.Killed {
				errs = append(errs, fmt.Errorf("gang %q lists killed member %q", id, mid))
			}
		}
		if g.LeaderID != "" && !g.HasMember(g.LeaderID) {
			errs = append(errs, fmt.Errorf("gang %q leader %q is not a member", id, g.LeaderID))
		}
	}
	for id, m := range s.Members {
		if m == nil {
			errs = append(errs, fmt.Errorf("member %q is nil", id))
			continue
		}
		if m.GangID == "" {
			continue
		}
		g, ok := s.Gangs[m.GangID]
		if !ok || g == nil {
			errs = append(errs, fmt.Errorf("member %q belongs to unknown gang %q", id, m.GangID))
			continue
		}
		if !g.HasMember(id) {
			errs = append(errs, fmt.Errorf("member %q missing from gang %q roster", id, m.GangID))
		}
	}
	for id, g := range s.Guards {
		if g == nil {
			errs = append(errs, fmt.Errorf("guard %q is nil", id))
		}
	}
	if total := s.TotalTerritory(); total > 1+TerritoryEpsilon {
		errs = append(errs, fmt.Errorf("territory sums to %.4f", total))
	}
	return errors.Join(errs...)
}

// TotalTerritory sums territory control over all gangs.
func (s *State) TotalTerritory() float64 {
	total := 0.0
	for _, g := range s.Gangs {
		if g != nil {
			total += g.TerritoryControl
		}
	}
	return total
}

// NormalizeTerritory scales every gang's territory down so the sum is at most 1.
func (s *State) NormalizeTerritory() {
	total := s.TotalTerritory()
	if total <= 1 {
		return
	}
	for _, g := range s.Gangs {
		g.TerritoryControl /= total
	}
}

// GangIDs returns gang IDs in sorted order for deterministic iteration.
func (s *State) GangIDs() []string {
	return slices.Sorted(maps.Keys(s.Gangs))
}

// MemberIDs returns member IDs in sorted order for deterministic iteration.
func (s *State) MemberIDs() []string {
	return slices.Sorted(maps.Keys(s.Members))
}

// GuardIDs returns guard IDs in sorted order.
func (s *State) GuardIDs() []string {
	return slices.Sorted(maps.Keys(s.Guards))
}

// LivingMembers returns the gang's living members ordered by roster position.
func (s *State) LivingMembers(g *Gang) []*Member {
	var out []*Member
	for _, id := range g.MemberIDs {
		if m, ok := s.Members[id]; ok && m.Alive() {
			out = append(out, m)
		}
	}
	return out
}

// Member returns the member with id, creating an unaffiliated record if the
// personality has never been seen.
func (s *State) Member(id string) *Member {
	m, ok := s.Members[id]
	if !ok {
		m = NewMember(id)
		s.Members[id] = m
	}
	return m
}

// GangOf returns the member's gang, or nil.
func (s *State) GangOf(m *Member) *Gang {
	if m == nil || m.GangID == "" {
		return nil
	}
	return s.Gangs[m.GangID]
}

// SortByStanding orders members by rank priority then respect, leaders first.
func SortByStanding(ms []*Member) {
	sort.SliceStable(ms, func(i, j int) bool {
		ri, rj := standing(ms[i].Rank), standing(ms[j].Rank)
		if ri != rj {
			return ri > rj
		}
		if ms[i].Respect != ms[j].Respect {
			return ms[i].Respect > ms[j].Respect
		}
		return ms[i].ID < ms[j].ID
	})
}

func standing(r Rank) int {
	if r == RankLeader {
		return 5
	}
	return r.SuccessionPriority()
}
