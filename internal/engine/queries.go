// Read-only queries. None of these modify the state.
package engine

import (
	"maps"

	"github.com/talgya/cellblock/internal/gang"
)

// MemberInfo is a member's gang situation.
type MemberInfo struct {
	ID         string        `json:"id"`
	GangID     string        `json:"gang_id,omitempty"`
	GangName   string        `json:"gang_name,omitempty"`
	GangColor  string        `json:"gang_color,omitempty"`
	Rank       gang.Rank     `json:"rank"`
	IsLeader   bool          `json:"is_leader"`
	Loyalty    float64       `json:"loyalty"`
	Respect    float64       `json:"respect"`
	Violence   float64       `json:"violence"`
	Hits       int           `json:"hits"`
	Weapons    []gang.Weapon `json:"weapons"`
	Imprisoned bool          `json:"imprisoned"`
	Killed     bool          `json:"killed"`
	KilledBy   string        `json:"killed_by,omitempty"`
	DeathRisk  float64       `json:"death_risk"`
	Earnings   int           `json:"drug_earnings"`
	Trophies   []gang.Trophy `json:"trophies"`
}

// GangStats is a summary of one gang.
type GangStats struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Color         string                `json:"color"`
	LeaderID      string                `json:"leader_id,omitempty"`
	Members       int                   `json:"members"`
	Imprisoned    int                   `json:"imprisoned"`
	Armed         int                   `json:"armed"`
	Weapons       int                   `json:"weapons"`
	Territory     float64               `json:"territory"`
	Resources     float64               `json:"resources"`
	Reputation    float64               `json:"reputation"`
	Violence      float64               `json:"violence"`
	Loyalty       float64               `json:"loyalty"`
	Money         int                   `json:"money"`
	TotalEarnings int                   `json:"total_earnings"`
	DrugsStash    int                   `json:"drugs_stash"`
	Items         map[gang.ItemType]int `json:"items"`
	Collapsed     bool                  `json:"collapsed"`
}

// GetPersonalityGangInfo reports a member's situation. ok is false for
// personalities that have never touched gang life.
func GetPersonalityGangInfo(s *gang.State, memberID string) (MemberInfo, bool) {
	if s == nil {
		return MemberInfo{}, false
	}
	m, ok := s.Members[memberID]
	if !ok || m == nil {
		return MemberInfo{}, false
	}
	c := m.Clone()
	info := MemberInfo{
		ID:         c.ID,
		GangID:     c.GangID,
		Rank:       c.Rank,
		Loyalty:    c.Loyalty,
		Respect:    c.Respect,
		Violence:   c.Violence,
		Hits:       c.Hits,
		Weapons:    c.Weapons,
		Imprisoned: c.Imprisoned,
		Killed:     c.Killed,
		KilledBy:   c.KilledBy,
		DeathRisk:  c.DeathRiskModifier,
		Earnings:   c.TotalDrugEarnings,
		Trophies:   c.Trophies,
	}
	if g := s.GangOf(m); g != nil {
		info.GangName = g.Name
		info.GangColor = g.Color
		info.IsLeader = g.LeaderID == m.ID
	}
	return info, true
}

// GetGangMembers returns copies of a gang's living members, leader first.
func GetGangMembers(s *gang.State, gangID string) []*gang.Member {
	if s == nil {
		return nil
	}
	g, ok := s.Gangs[gangID]
	if !ok {
		return nil
	}
	living := s.LivingMembers(g)
	out := make([]*gang.Member, 0, len(living))
	for _, m := range living {
		out = append(out, m.Clone())
	}
	gang.SortByStanding(out)
	return out
}

// AreRivals reports whether a and b belong to different standing gangs.
func AreRivals(s *gang.State, a, b string) bool {
	if s == nil {
		return false
	}
	ma, ok1 := s.Members[a]
	mb, ok2 := s.Members[b]
	if !ok1 || !ok2 {
		return false
	}
	return rivalGangs(s.GangOf(ma), s.GangOf(mb))
}

// GetGangStats summarizes one gang.
func GetGangStats(s *gang.State, gangID string) (GangStats, bool) {
	if s == nil {
		return GangStats{}, false
	}
	g, ok := s.Gangs[gangID]
	if !ok || g == nil {
		return GangStats{}, false
	}
	st := GangStats{
		ID:            g.ID,
		Name:          g.Name,
		Color:         g.Color,
		LeaderID:      g.LeaderID,
		Weapons:       len(g.Weapons),
		Territory:     g.TerritoryControl,
		Resources:     g.Resources,
		Reputation:    g.Reputation,
		Violence:      g.Violence,
		Loyalty:       g.Loyalty,
		Money:         g.Money,
		TotalEarnings: g.TotalEarnings,
		DrugsStash:    g.DrugsStash,
		Items:         maps.Clone(g.Items),
		Collapsed:     g.Collapsed,
	}
	for _, m := range s.LivingMembers(g) {
		st.Members++
		if m.Imprisoned {
			st.Imprisoned++
		}
		if m.Armed() {
			st.Armed++
		}
		st.Weapons += len(m.Weapons)
	}
	return st, true
}

// AllGangStats summarizes every gang in ID order.
func AllGangStats(s *gang.State) []GangStats {
	if s == nil {
		return nil
	}
	var out []GangStats
	for _, id := range s.GangIDs() {
		if st, ok := GetGangStats(s, id); ok {
			out = append(out, st)
		}
	}
	return out
}
