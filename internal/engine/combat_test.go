package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/cellblock/internal/gang"
)

func gun() gang.Weapon {
	return gang.Weapon{ID: "w-gun", Type: gang.WeaponGun, Name: "Zip gun", Damage: 90, Durability: 100, AcquiredFrom: gang.FromGuard}
}

func TestDeathProbabilityClampsEachStep(t *testing.T) {
	tests := []struct {
		name                 string
		base, ratio, v, risk float64
		want                 float64
	}{
		{"no base", 0, 1, 100, 3, 0},
		{"plain", 0.1, 0, 0, 1, 0.1},
		{"weapon", 0.1, 0.5, 0, 1, 0.25},
		{"violence", 0.1, 0, 100, 1, 0.15},
		{"saturates early", 0.5, 1, 100, 3, 1},
		{"risk", 0.1, 0, 0, 2, 0.2},
		{"risk floor", 0.1, 0, 0, 0.2, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DeathProbability(tt.base, tt.ratio, tt.v, tt.risk), 1e-9)
		})
	}
}

func TestLethalCombatArmedBeatsUnarmed(t *testing.T) {
	run := func(armed bool) ViolenceOutcome {
		s := newYard(t)
		bo := s.Members["bo"]
		bo.Violence = 85
		if armed {
			bo.Weapons = []gang.Weapon{gun()}
		}
		res := newTestEngine(fixed(0)).SimulateViolence(s, "bo", "eli")
		require.NoError(t, res.Err)
		require.True(t, res.Value.DeathChecked)
		requireConsistent(t, res.State)
		return res.Value
	}
	armed, unarmed := run(true), run(false)
	assert.Greater(t, armed.DeathChance, unarmed.DeathChance)
	assert.LessOrEqual(t, armed.DeathChance, 1.0)
}

func TestKillingALeaderRunsSuccession(t *testing.T) {
	s := newYard(t)
	s.Members["bo"].Weapons = []gang.Weapon{gun()}
	s.Members["fay"].Respect = 40

	res := newTestEngine(fixed(0)).SimulateViolence(s, "bo", "dee")
	require.NoError(t, res.Err)
	require.True(t, res.Value.Killed)
	out := res.State

	dee := out.Members["dee"]
	assert.True(t, dee.Killed)
	assert.Equal(t, "bo", dee.KilledBy)
	assert.Equal(t, "kings", dee.FormerGangID)
	assert.NotContains(t, out.Gangs["kings"].MemberIDs, "dee")
	assert.Equal(t, "fay", out.Gangs["kings"].LeaderID)
	assert.Equal(t, 10+50.0, out.Members["bo"].Respect)
	requireConsistent(t, out)
}

func TestLeaderKillingLastSoldierIsExecuted(t *testing.T) {
	e := newTestEngine(fixed(0))
	left := e.RemoveFromGang(newYard(t), "cy")
	require.NoError(t, left.Err)
	before := left.State.Members["ana"].Respect

	res := e.SimulateViolence(left.State, "ana", "bo")
	require.NoError(t, res.Err)
	require.True(t, res.Value.Killed)
	assert.True(t, res.Value.AttackerExecuted)
	assert.Zero(t, res.Value.RespectGained)

	ana := res.State.Members["ana"]
	assert.True(t, ana.Killed)
	assert.Equal(t, SystemKiller, ana.KilledBy)
	assert.Equal(t, before, ana.Respect, "no reward for the dead")
	assert.True(t, res.State.Gangs["saints"].Collapsed)
	assert.Contains(t, res.Message, "went down with the crew")
	requireConsistent(t, res.State)
}

func TestTerritoryShiftIsZeroSum(t *testing.T) {
	s := newYard(t)
	s.Config.DeathEnabled = false
	before := s.TotalTerritory()

	res := newTestEngine(fixed(0)).SimulateViolence(s, "bo", "eli")
	require.NoError(t, res.Err)
	require.True(t, res.Value.Success)

	out := res.State
	// 0.02 base, 0.03 * 15 violence, 0.01 * soldier weight, equal reputations.
	want := 0.02 + 0.03*0.15 + 0.01*0.3
	assert.InDelta(t, want, res.Value.TerritoryShift, 1e-9)
	assert.InDelta(t, 0.5+want, out.Gangs["saints"].TerritoryControl, 1e-9)
	assert.InDelta(t, 0.5-want, out.Gangs["kings"].TerritoryControl, 1e-9)
	assert.InDelta(t, before, out.TotalTerritory(), 1e-9)
}

func TestTerritoryShiftBounds(t *testing.T) {
	s := newYard(t)
	s.Config.DeathEnabled = false
	s.Config.RivalHostility = 3
	s.Members["bo"].Violence = 100
	s.Members["bo"].Weapons = []gang.Weapon{gun()}
	s.Gangs["kings"].TerritoryControl = 0.05
	s.Gangs["saints"].TerritoryControl = 0.95

	res := newTestEngine(fixed(0)).SimulateViolence(s, "bo", "dee")
	require.NoError(t, res.Err)
	assert.InDelta(t, 0.05, res.Value.TerritoryShift, 1e-9, "capped by what the defender holds")
	assert.Zero(t, res.State.Gangs["kings"].TerritoryControl)
	assert.InDelta(t, 1.0, res.State.TotalTerritory(), 1e-9)
}

func TestSuccessfulHitUpdatesAttacker(t *testing.T) {
	s := newYard(t)
	s.Config.DeathEnabled = false
	s.Members["bo"].Weapons = []gang.Weapon{gun()}

	res := newTestEngine(fixed(0)).SimulateViolence(s, "bo", "eli")
	require.NoError(t, res.Err)
	bo := res.State.Members["bo"]
	assert.Equal(t, 15.0, bo.Violence)
	assert.Equal(t, 1, bo.Hits)
	assert.InDelta(t, 1.1, bo.DeathRiskModifier, 1e-9)
	assert.Equal(t, 95, bo.Weapons[0].Durability, "degraded by the minimum draw")
	// 5 + 10*0.9 + soldier bonus 3
	assert.InDelta(t, 10+17.0, bo.Respect, 1e-9)
	assert.InDelta(t, 10-8.5, res.State.Members["eli"].Respect, 1e-9)
}

func TestFailedAttackCanLandInSolitary(t *testing.T) {
	s := newYard(t)
	src := &script{draws: []float64{0.99, 0.0}, fallback: 0.99}

	res := newTestEngine(src).SimulateViolence(s, "bo", "eli")
	require.NoError(t, res.Err)
	assert.False(t, res.Value.Success)
	assert.True(t, res.Value.Imprisoned)

	bo := res.State.Members["bo"]
	assert.True(t, bo.Imprisoned)
	assert.Equal(t, t0.Add(time.Duration(float64(6*time.Hour)*1.2)), bo.ImprisonedUntil)
	assert.Equal(t, 5.0, bo.Respect)
	assert.Equal(t, 15.0, res.State.Members["eli"].Respect)
}

func TestFailedAttackWithoutSolitary(t *testing.T) {
	s := newYard(t)
	s.Config.SolitaryEnabled = false
	res := newTestEngine(fixed(0.99)).SimulateViolence(s, "bo", "eli")
	require.NoError(t, res.Err)
	assert.False(t, res.Value.Success)
	assert.False(t, res.State.Members["bo"].Imprisoned)
}

func TestTargetRisk(t *testing.T) {
	s := newYard(t)
	dee := s.Members["dee"]
	assert.InDelta(t, 2.0, TargetRisk(s, dee, t0), 1e-9, "stored 1.5 plus leadership")

	eli := s.Members["eli"]
	assert.Equal(t, 1.0, TargetRisk(s, eli, t0))
	eli.Weapons = []gang.Weapon{gun(), {Type: gang.WeaponShank}}
	assert.InDelta(t, 1.75, TargetRisk(s, eli, t0), 1e-9)
	eli.Violence = 80
	eli.Hits = 5
	assert.InDelta(t, 2.5, TargetRisk(s, eli, t0), 1e-9)
	eli.LastTheftAt = t0
	assert.Equal(t, gang.MaxDeathRisk, TargetRisk(s, eli, t0))

	fay := s.Members["fay"]
	fay.LastTheftAt = t0.Add(-time.Hour)
	assert.InDelta(t, 1.5, TargetRisk(s, fay, t0), 1e-9)
	fay.LastTheftAt = t0.Add(-48 * time.Hour)
	assert.Equal(t, 1.0, TargetRisk(s, fay, t0))
}

func TestDegradeWeapon(t *testing.T) {
	m := gang.NewMember("bo")
	m.Weapons = []gang.Weapon{{ID: "a", Durability: 10}, {ID: "b", Durability: 50}}

	assert.False(t, DegradeWeapon(m, 1, 0))
	assert.Equal(t, 49, m.Weapons[1].Durability, "always loses at least one point")

	assert.True(t, DegradeWeapon(m, 0, 10))
	require.Len(t, m.Weapons, 1)
	assert.Equal(t, "b", m.Weapons[0].ID)

	assert.False(t, DegradeWeapon(m, 5, 10))
}

func TestStealWeapon(t *testing.T) {
	s := newYard(t)
	s.Members["eli"].Weapons = []gang.Weapon{gun()}
	e := newTestEngine(fixed(0))

	res := e.StealWeapon(s, "bo", "eli")
	require.NoError(t, res.Err)
	assert.Equal(t, gang.FromStolen, res.Value.AcquiredFrom)
	assert.Empty(t, res.State.Members["eli"].Weapons)
	require.Len(t, res.State.Members["bo"].Weapons, 1)
	assert.Equal(t, 1, res.State.Members["bo"].Thefts)
	assert.Equal(t, t0, res.State.Members["bo"].LastTheftAt)

	assert.ErrorIs(t, e.StealWeapon(res.State, "bo", "eli").Err, ErrStateConflict)
}

func TestSimulateViolenceErrors(t *testing.T) {
	s := newYard(t)
	e := newTestEngine(fixed(0))

	assert.ErrorIs(t, e.SimulateViolence(s, "bo", "bo").Err, ErrValidation)
	assert.ErrorIs(t, e.SimulateViolence(s, "", "bo").Err, ErrValidation)

	res := e.SimulateViolence(s, "ghost-a", "ghost-b")
	assert.ErrorIs(t, res.Err, ErrValidation)
	assert.Same(t, s, res.State)
	assert.ErrorIs(t, e.SimulateViolence(s, "bo", "ghost-b").Err, ErrValidation)
	assert.Len(t, s.Members, 6, "no records invented for strangers")

	s.Members["eli"].Killed = true
	s.Gangs["kings"].RemoveMember("eli")
	res = e.SimulateViolence(s, "bo", "eli")
	assert.ErrorIs(t, res.Err, ErrStateConflict)
	assert.Same(t, s, res.State)
}

func TestAttackChanceCapped(t *testing.T) {
	assert.Equal(t, 0.95, AttackChance(100, 100, 1))
	assert.InDelta(t, 0.5, AttackChance(0, 0, 0), 1e-9)
}
