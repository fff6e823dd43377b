package gang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededState() *State {
	s := NewState(DefaultConfig())
	g := NewGang("saints", "Iron Saints", "red")
	g.LeaderID = "ana"
	g.MemberIDs = []string{"ana", "bo"}
	g.TerritoryControl = 0.5
	g.Items[ItemBeer] = 2
	s.Gangs[g.ID] = g

	for _, id := range g.MemberIDs {
		m := NewMember(id)
		m.GangID = g.ID
		m.Rank = RankSoldier
		s.Members[id] = m
	}
	s.Members["ana"].Rank = RankLeader
	s.Members["bo"].Weapons = append(s.Members["bo"].Weapons, Weapon{ID: "w1", Type: WeaponShank, Durability: 60})
	return s
}

func TestNewStateSeedsGuards(t *testing.T) {
	s := NewState(DefaultConfig())
	assert.Len(t, s.Guards, len(DefaultGuards()))
	assert.Empty(t, s.Gangs)
	assert.NoError(t, s.Check())
}

func TestCloneIsDeep(t *testing.T) {
	s := seededState()
	c := s.Clone()

	c.Gangs["saints"].MemberIDs[0] = "zed"
	c.Gangs["saints"].Items[ItemBeer] = 9
	c.Members["bo"].Weapons[0].Durability = 1
	c.Members["bo"].Respect = 99
	c.Guards["g-reyes"].Alertness = 1
	c.BribeLog = append(c.BribeLog, BribeAttempt{ID: "b1"})

	assert.Equal(t, "ana", s.Gangs["saints"].MemberIDs[0])
	assert.Equal(t, 2, s.Gangs["saints"].Items[ItemBeer])
	assert.Equal(t, 60, s.Members["bo"].Weapons[0].Durability)
	assert.Equal(t, 10.0, s.Members["bo"].Respect)
	assert.Equal(t, 0.40, s.Guards["g-reyes"].Alertness)
	assert.Empty(t, s.BribeLog)
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(*State)
		wantErr string
	}{
		{"valid", func(*State) {}, ""},
		{"nil gangs", func(s *State) { s.Gangs = nil }, "not initialized"},
		{"nil gang entry", func(s *State) { s.Gangs["ghost"] = nil }, `gang "ghost" is nil`},
		{"dangling roster", func(s *State) { s.Gangs["saints"].MemberIDs = append(s.Gangs["saints"].MemberIDs, "nobody") }, "unknown member"},
		{"asymmetric", func(s *State) { s.Members["cy"] = &Member{ID: "cy", GangID: "saints"} }, "missing from gang"},
		{"killed on roster", func(s *State) { s.Members["bo"].Killed = true }, "killed member"},
		{"leader off roster", func(s *State) { s.Gangs["saints"].LeaderID = "zed" }, "is not a member"},
		{"territory overflow", func(s *State) {
			g := NewGang("kings", "Ghost Kings", "blue")
			g.TerritoryControl = 0.6
			s.Gangs[g.ID] = g
		}, "territory sums"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seededState()
			tt.corrupt(s)
			err := s.Check()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalizeTerritory(t *testing.T) {
	s := NewState(DefaultConfig())
	for id, share := range map[string]float64{"a": 0.8, "b": 0.6} {
		g := NewGang(id, id, "grey")
		g.TerritoryControl = share
		s.Gangs[id] = g
	}
	s.NormalizeTerritory()
	assert.InDelta(t, 1.0, s.TotalTerritory(), 1e-9)
	assert.InDelta(t, 0.8/1.4, s.Gangs["a"].TerritoryControl, 1e-9)

	s.Gangs["a"].TerritoryControl = 0.2
	s.Gangs["b"].TerritoryControl = 0.3
	s.NormalizeTerritory()
	assert.Equal(t, 0.2, s.Gangs["a"].TerritoryControl, "sums under 1 are left alone")
}

func TestMemberCreatesOnDemand(t *testing.T) {
	s := NewState(DefaultConfig())
	m := s.Member("newcomer")
	assert.Equal(t, RankIndependent, m.Rank)
	assert.Same(t, m, s.Member("newcomer"))
	assert.Nil(t, s.GangOf(m))
}

func TestSortByStanding(t *testing.T) {
	ms := []*Member{
		{ID: "r", Rank: RankRecruit, Respect: 90},
		{ID: "s2", Rank: RankSoldier, Respect: 20},
		{ID: "l", Rank: RankLeader, Respect: 5},
		{ID: "s1", Rank: RankSoldier, Respect: 20},
		{ID: "lt", Rank: RankLieutenant, Respect: 1},
	}
	SortByStanding(ms)
	var ids []string
	for _, m := range ms {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"l", "lt", "s1", "s2", "r"}, ids)
}
