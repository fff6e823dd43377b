// Gangs: crews competing for the yard.
package gang

import (
	"maps"
	"slices"
)

// Gang is a crew with a leader, members, territory and an economy.
type Gang struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Color     string   `json:"color"`
	LeaderID  string   `json:"leader_id,omitempty"`
	MemberIDs []string `json:"member_ids"`

	TerritoryControl float64 `json:"territory_control"` // 0–1, summed across gangs ≤ 1

	Resources  float64 `json:"resources"`  // 0–100
	Reputation float64 `json:"reputation"` // 0–100
	Violence   float64 `json:"violence"`   // 0–100
	Loyalty    float64 `json:"loyalty"`    // 0–100

	Weapons       []Weapon         `json:"weapons"`
	Money         int              `json:"money"`
	TotalEarnings int              `json:"total_earnings"`
	DrugsStash    int              `json:"drugs_stash"` // grams
	Items         map[ItemType]int `json:"items"`

	Collapsed bool `json:"collapsed"`
}

// NewGang returns an empty gang with baseline stats.
func NewGang(id, name, color string) *Gang {
	return &Gang{
		ID:         id,
		Name:       name,
		Color:      color,
		MemberIDs:  []string{},
		Resources:  50,
		Reputation: 50,
		Violence:   30,
		Loyalty:    60,
		Weapons:    []Weapon{},
		Money:      500,
		Items:      make(map[ItemType]int),
	}
}

// HasMember reports whether id is on the roster.
func (g *Gang) HasMember(id string) bool {
	return slices.Contains(g.MemberIDs, id)
}

// AddMember puts id on the roster once.
func (g *Gang) AddMember(id string) {
	if !g.HasMember(id) {
		g.MemberIDs = append(g.MemberIDs, id)
	}
}

// RemoveMember drops id from the roster and clears leadership if it was the leader.
// Returns true if id was the leader.
func (g *Gang) RemoveMember(id string) bool {
	g.MemberIDs = slices.DeleteFunc(g.MemberIDs, func(m string) bool { return m == id })
	if g.LeaderID == id {
		g.LeaderID = ""
		return true
	}
	return false
}

// AddReputation shifts reputation within 0–100.
func (g *Gang) AddReputation(delta float64) {
	g.Reputation = Clamp(g.Reputation+delta, 0, 100)
}

// AddResources shifts resources within 0–100.
func (g *Gang) AddResources(delta float64) {
	g.Resources = Clamp(g.Resources+delta, 0, 100)
}

// Clone returns a deep copy.
func (g *Gang) Clone() *Gang {
	c := *g
	c.MemberIDs = slices.Clone(g.MemberIDs)
	if c.MemberIDs == nil {
		c.MemberIDs = []string{}
	}
	c.Weapons = slices.Clone(g.Weapons)
	if c.Weapons == nil {
		c.Weapons = []Weapon{}
	}
	c.Items = maps.Clone(g.Items)
	if c.Items == nil {
		c.Items = make(map[ItemType]int)
	}
	return &c
}

// Seed describes a gang to create at initialization.
type Seed struct {
	ID        string
	Name      string
	Color     string
	LeaderID  string
	MemberIDs []string // leader may be included or not
}

// DefaultSeeds returns the three crews the yard starts with. Members are
// filled in by the caller.
func DefaultSeeds() []Seed {
	return []Seed{
		{ID: "saints", Name: "Iron Saints", Color: "red"},
		{ID: "kings", Name: "Ghost Kings", Color: "blue"},
		{ID: "dogs", Name: "Yard Dogs", Color: "green"},
	}
}
