package gang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskStaysInBounds(t *testing.T) {
	m := NewMember("ana")
	m.AddRisk(-5)
	assert.Equal(t, MinDeathRisk, m.DeathRiskModifier)
	for range 20 {
		m.AddRisk(0.5)
	}
	assert.Equal(t, MaxDeathRisk, m.DeathRiskModifier)
}

func TestBestWeapon(t *testing.T) {
	m := NewMember("ana")
	assert.Equal(t, -1, m.BestWeapon())
	assert.False(t, m.Armed())

	m.Weapons = []Weapon{
		{Type: WeaponShank, Damage: 35},
		{Type: WeaponGun, Damage: 90},
		{Type: WeaponChain, Damage: 50},
	}
	assert.Equal(t, 1, m.BestWeapon())
	assert.True(t, m.HasGun())
}

func TestRankOrdering(t *testing.T) {
	order := []Rank{RankLieutenant, RankSoldier, RankRecruit, RankIndependent}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i-1].SuccessionPriority(), order[i].SuccessionPriority())
		assert.Greater(t, order[i-1].Weight(), order[i].Weight())
	}
	assert.Zero(t, RankLeader.SuccessionPriority())
}

func TestWeaponTypes(t *testing.T) {
	assert.False(t, WeaponGun.Craftable())
	assert.True(t, WeaponShank.Craftable())
	assert.True(t, WeaponChain.Craftable())
	assert.False(t, WeaponType("bazooka").Valid())
	for wt := range Weapons {
		assert.True(t, wt.Valid(), wt)
	}
}

func TestGuardTier(t *testing.T) {
	tests := []struct {
		corruptibility float64
		want           string
	}{
		{0.05, "incorruptible"},
		{0.3, "by the book"},
		{0.5, "negotiable"},
		{0.9, "on the take"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Guard{Corruptibility: tt.corruptibility}.ReputationTier())
	}
}

func TestGangRoster(t *testing.T) {
	g := NewGang("saints", "Iron Saints", "red")
	g.AddMember("ana")
	g.AddMember("ana")
	g.AddMember("bo")
	g.LeaderID = "ana"
	assert.Equal(t, []string{"ana", "bo"}, g.MemberIDs)

	assert.False(t, g.RemoveMember("bo"))
	assert.True(t, g.RemoveMember("ana"))
	assert.Empty(t, g.LeaderID)
	assert.Empty(t, g.MemberIDs)
}
