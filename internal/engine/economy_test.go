package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/cellblock/internal/gang"
)

func TestBribeCost(t *testing.T) {
	tests := []struct {
		weapon         gang.WeaponType
		corruptibility float64
		want           int
	}{
		{gang.WeaponShank, 0.55, 145},
		{gang.WeaponGun, 1, 500},
		{gang.WeaponGun, 0, 1000},
		{gang.WeaponChain, 0.75, 188},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BribeCost(tt.weapon, &gang.Guard{Corruptibility: tt.corruptibility}), tt.weapon)
	}
}

func TestBribeChanceBounded(t *testing.T) {
	assert.Zero(t, BribeChance(&gang.Guard{Corruptibility: 0, Alertness: 1}, 0, 0))
	assert.InDelta(t, 0.55+0.02+0.075-0.12, BribeChance(&gang.Guard{Corruptibility: 0.55, Alertness: 0.4}, 10, 50), 1e-9)
}

func TestGuardBribeSuccess(t *testing.T) {
	s := newYard(t)
	res := newTestEngine(fixed(0)).AttemptGuardBribe(s, "bo", gang.WeaponShank, "g-reyes")
	require.NoError(t, res.Err)
	require.True(t, res.Value.Success)

	out := res.State
	bo := out.Members["bo"]
	require.Len(t, bo.Weapons, 1)
	assert.Equal(t, gang.FromGuard, bo.Weapons[0].AcquiredFrom)
	assert.Equal(t, gang.WeaponShank, bo.Weapons[0].Type)
	assert.NotEmpty(t, bo.Weapons[0].ID)
	assert.Equal(t, 15.0, bo.Respect)
	assert.Equal(t, 1.5, bo.DeathRiskModifier)
	assert.Equal(t, 1, bo.BribesAttempted)
	assert.Equal(t, 1, bo.BribesSucceeded)
	assert.Equal(t, 500-145, out.Gangs["saints"].Money)

	require.Len(t, out.BribeLog, 1)
	entry := out.BribeLog[0]
	assert.True(t, entry.Success)
	assert.Equal(t, "g-reyes", entry.GuardID)
	assert.Equal(t, 145, entry.Cost)
	assert.Equal(t, t0, entry.At)
	assert.Empty(t, s.BribeLog)
}

func TestGuardBribeFailurePenalizesGang(t *testing.T) {
	s := newYard(t)
	res := newTestEngine(fixed(0.999)).AttemptGuardBribe(s, "bo", gang.WeaponChain, "g-okafor")
	require.NoError(t, res.Err)
	assert.False(t, res.Value.Success)
	assert.False(t, res.Value.Solitary)

	out := res.State
	assert.Empty(t, out.Members["bo"].Weapons)
	assert.Equal(t, 45.0, out.Gangs["saints"].Resources)
	assert.Equal(t, 1.0, out.Members["bo"].DeathRiskModifier)
	require.Len(t, out.BribeLog, 1)
	assert.False(t, out.BribeLog[0].Success)
}

func TestGuardBribeFailureCanMeanSolitary(t *testing.T) {
	s := newYard(t)
	// miss the bribe, then get caught
	src := &script{draws: []float64{0.99, 0.1}, fallback: 0.99}
	res := newTestEngine(src).AttemptGuardBribe(s, "bo", gang.WeaponShank, "g-okafor")
	require.NoError(t, res.Err)
	assert.True(t, res.Value.Solitary)
	assert.True(t, res.State.Members["bo"].Imprisoned)
	assert.Equal(t, t0.Add(6*time.Hour), res.State.Members["bo"].ImprisonedUntil)
}

func TestGuardBribeInsufficientFunds(t *testing.T) {
	s := newYard(t)
	s.Gangs["saints"].Money = 40
	res := newTestEngine(fixed(0)).AttemptGuardBribe(s, "bo", gang.WeaponGun, "g-reyes")
	require.ErrorIs(t, res.Err, ErrResource)
	assert.Same(t, s, res.State)

	var e *Error
	require.True(t, errors.As(res.Err, &e))
	assert.Equal(t, 725, e.Required)
	assert.Equal(t, 40, e.Available)
	assert.Contains(t, res.Message, "need $725, have $40")
}

func TestGuardBribeErrors(t *testing.T) {
	s := newYard(t)
	e := newTestEngine(fixed(0))
	s.Members["loner"] = gang.NewMember("loner")

	assert.ErrorIs(t, e.AttemptGuardBribe(s, "bo", "bazooka", "").Err, ErrValidation)
	assert.ErrorIs(t, e.AttemptGuardBribe(s, "nobody", gang.WeaponGun, "").Err, ErrValidation)
	assert.ErrorIs(t, e.AttemptGuardBribe(s, "bo", gang.WeaponGun, "g-nobody").Err, ErrValidation)
	assert.ErrorIs(t, e.AttemptGuardBribe(s, "loner", gang.WeaponGun, "").Err, ErrStateConflict)

	s.Config.WeaponsEnabled = false
	assert.ErrorIs(t, e.AttemptGuardBribe(s, "bo", gang.WeaponGun, "").Err, ErrStateConflict)
}

func TestCraftWeapon(t *testing.T) {
	s := newYard(t)
	e := newTestEngine(fixed(0))

	res := e.CraftWeapon(s, "bo", gang.WeaponGun)
	assert.ErrorIs(t, res.Err, ErrValidation)

	res = e.CraftWeapon(s, "bo", gang.WeaponChain)
	require.NoError(t, res.Err)
	require.True(t, res.Value.Success)
	assert.InDelta(t, 0.54, res.Value.Chance, 1e-9)
	require.Len(t, res.State.Members["bo"].Weapons, 1)
	assert.Equal(t, gang.FromCrafted, res.State.Members["bo"].Weapons[0].AcquiredFrom)
	assert.Equal(t, "Padlock in a sock", res.State.Members["bo"].Weapons[0].Name)

	res = newTestEngine(fixed(0.999)).CraftWeapon(s, "bo", gang.WeaponShank)
	require.NoError(t, res.Err)
	assert.False(t, res.Value.Success)
	assert.Empty(t, res.State.Members["bo"].Weapons)
}

func TestSmugglingTrophyAwardedOnce(t *testing.T) {
	s := newYard(t)
	s.Members["bo"].TotalDrugEarnings = 3000
	e := newTestEngine(fixed(0.999)) // never detected, always 50g

	res := e.AttemptDrugSmuggling(s, "bo")
	require.NoError(t, res.Err)
	require.True(t, res.Value.Success)
	assert.Equal(t, 50, res.Value.Grams)
	assert.Equal(t, []gang.Trophy{gang.TrophyMedal}, res.Value.Trophies)
	assert.Equal(t, 4750, res.State.Members["bo"].TotalDrugEarnings)
	assert.Equal(t, 50, res.State.Gangs["saints"].DrugsStash)

	res = e.AttemptDrugSmuggling(res.State, "bo")
	require.NoError(t, res.Err)
	assert.Equal(t, []gang.Trophy{gang.TrophyCup}, res.Value.Trophies)

	medals := 0
	for _, tr := range res.State.Members["bo"].Trophies {
		if tr == gang.TrophyMedal {
			medals++
		}
	}
	assert.Equal(t, 1, medals)
	assert.Equal(t, 2, res.State.Members["bo"].SmugglingRuns)
}

func TestSmugglingBust(t *testing.T) {
	s := newYard(t)
	res := newTestEngine(fixed(0)).AttemptDrugSmuggling(s, "bo")
	require.NoError(t, res.Err)
	assert.False(t, res.Value.Success)
	assert.Equal(t, 10, res.Value.Grams)
	assert.Equal(t, 17*time.Hour, res.Value.Extension)

	bo := res.State.Members["bo"]
	assert.Equal(t, 1, bo.SmugglingBusts)
	assert.Equal(t, 17*time.Hour, bo.SentenceExtension)
	assert.True(t, bo.Imprisoned)
	assert.Equal(t, t0.Add(s.Config.SolitaryDuration+17*time.Hour), bo.ImprisonedUntil, "the extension adds to the confinement")
	assert.Zero(t, res.State.Gangs["saints"].DrugsStash)
}

func TestSmugglingRisk(t *testing.T) {
	g := &gang.Guard{Alertness: 0.5}
	assert.InDelta(t, 0.4, SmugglingRisk(0.25, g, 0), 1e-9)
	assert.InDelta(t, 0.35, SmugglingRisk(0.25, g, 5), 1e-9)
	assert.InDelta(t, 0.3, SmugglingRisk(0.25, g, 40), 1e-9, "experience caps at ten points")
}

func TestDrugDealing(t *testing.T) {
	s := newYard(t)
	e := newTestEngine(fixed(0.999))

	res := e.AttemptDrugDealing(s, "bo")
	require.ErrorIs(t, res.Err, ErrResource)

	s.Gangs["saints"].DrugsStash = 100
	res = e.AttemptDrugDealing(s, "bo")
	require.NoError(t, res.Err)
	require.True(t, res.Value.Success)
	assert.Equal(t, 25, res.Value.Grams)
	assert.Equal(t, 50, res.Value.PricePerGram)
	assert.Equal(t, 1250, res.Value.Proceeds)

	out := res.State
	assert.Equal(t, 75, out.Gangs["saints"].DrugsStash)
	assert.Equal(t, 500+1250, out.Gangs["saints"].Money)
	assert.Equal(t, 1250, out.Gangs["saints"].TotalEarnings)
	assert.Equal(t, 25, out.Members["bo"].DrugsDealt)
	assert.Equal(t, 1250, out.Members["bo"].TotalDrugEarnings)
}

func TestDrugDealingBust(t *testing.T) {
	s := newYard(t)
	s.Gangs["saints"].DrugsStash = 8
	res := newTestEngine(fixed(0)).AttemptDrugDealing(s, "bo")
	require.NoError(t, res.Err)
	assert.False(t, res.Value.Success)
	assert.Equal(t, 5, res.Value.Grams)
	assert.Equal(t, 3, res.State.Gangs["saints"].DrugsStash)
	assert.Equal(t, 500, res.State.Gangs["saints"].Money)
}

func TestDrugEconomyDisabled(t *testing.T) {
	s := newYard(t)
	s.Config.DrugEconomyEnabled = false
	e := newTestEngine(fixed(0))
	assert.ErrorIs(t, e.AttemptDrugSmuggling(s, "bo").Err, ErrStateConflict)
	assert.ErrorIs(t, e.AttemptDrugDealing(s, "bo").Err, ErrStateConflict)
}

func TestPurchasePrisonItem(t *testing.T) {
	s := newYard(t)
	e := newTestEngine(fixed(0))

	res := e.PurchasePrisonItem(s, "saints", gang.ItemBeer, "bo")
	require.NoError(t, res.Err)
	assert.Equal(t, 450, res.State.Gangs["saints"].Money)
	assert.Equal(t, 55.0, res.State.Members["bo"].Loyalty)
	assert.Equal(t, 12.0, res.State.Members["bo"].Respect)
	assert.Zero(t, res.State.Gangs["saints"].Items[gang.ItemBeer])

	res = e.PurchasePrisonItem(res.State, "saints", gang.ItemCigarettes, "")
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.State.Gangs["saints"].Items[gang.ItemCigarettes])
	assert.Equal(t, 430, res.State.Gangs["saints"].Money)

	res = e.PurchasePrisonItem(res.State, "saints", gang.ItemPhone, "")
	require.ErrorIs(t, res.Err, ErrResource)

	assert.ErrorIs(t, e.PurchasePrisonItem(s, "saints", "yacht", "").Err, ErrValidation)
	assert.ErrorIs(t, e.PurchasePrisonItem(s, "saints", gang.ItemBeer, "eli").Err, ErrStateConflict)
}

func TestItemTheftUnnoticed(t *testing.T) {
	s := newYard(t)
	s.Gangs["kings"].Items[gang.ItemCigarettes] = 2

	res := newTestEngine(fixed(0.999)).AttemptItemTheft(s, "bo", "kings", "")
	require.NoError(t, res.Err)
	require.True(t, res.Value.Success)
	assert.Equal(t, gang.ItemCigarettes, res.Value.Item)
	assert.Equal(t, 1, res.State.Gangs["kings"].Items[gang.ItemCigarettes])
	assert.Equal(t, 1, res.State.Gangs["saints"].Items[gang.ItemCigarettes])
	assert.Equal(t, 20.0, res.State.Members["bo"].Respect)
	assert.Equal(t, t0, res.State.Members["bo"].LastTheftAt)
}

func TestItemTheftNoticedTurnsViolent(t *testing.T) {
	s := newYard(t)
	s.Config.DeathEnabled = false
	s.Gangs["kings"].Items[gang.ItemBeer] = 1

	res := newTestEngine(fixed(0)).AttemptItemTheft(s, "bo", "kings", gang.ItemBeer)
	require.NoError(t, res.Err)
	assert.True(t, res.Value.Detected)
	require.NotNil(t, res.Value.Violence)
	assert.Equal(t, "bo", res.Value.Violence.AttackerID)
	assert.Equal(t, "dee", res.Value.Violence.TargetID)
	assert.Equal(t, 1, res.State.Gangs["kings"].Items[gang.ItemBeer])
	requireConsistent(t, res.State)
}

func TestItemTheftErrors(t *testing.T) {
	s := newYard(t)
	e := newTestEngine(fixed(0))
	assert.ErrorIs(t, e.AttemptItemTheft(s, "bo", "saints", gang.ItemBeer).Err, ErrStateConflict)
	assert.ErrorIs(t, e.AttemptItemTheft(s, "bo", "kings", gang.ItemBeer).Err, ErrStateConflict)
	assert.ErrorIs(t, e.AttemptItemTheft(s, "bo", "nowhere", gang.ItemBeer).Err, ErrValidation)
}

func TestPrisonReleaseBribe(t *testing.T) {
	s := newYard(t)
	e := newTestEngine(fixed(0))

	assert.ErrorIs(t, e.AttemptPrisonReleaseBribe(s, "bo").Err, ErrStateConflict)

	s.Members["bo"].Imprisoned = true
	s.Members["bo"].ImprisonedUntil = t0.Add(4 * time.Hour)
	res := e.AttemptPrisonReleaseBribe(s, "bo")
	require.NoError(t, res.Err)
	assert.True(t, res.Value.Success)
	assert.False(t, res.State.Members["bo"].Imprisoned)
	assert.Equal(t, 250, res.State.Gangs["saints"].Money)
	require.Len(t, res.State.BribeLog, 1)
	assert.Empty(t, res.State.BribeLog[0].WeaponType)

	res = newTestEngine(fixed(0.999)).AttemptPrisonReleaseBribe(s, "bo")
	require.NoError(t, res.Err)
	assert.False(t, res.Value.Success)
	assert.Equal(t, t0.Add(7*time.Hour), res.State.Members["bo"].ImprisonedUntil)
	assert.Equal(t, 3*time.Hour, res.State.Members["bo"].SentenceExtension)

	s.Gangs["saints"].Money = 100
	res = e.AttemptPrisonReleaseBribe(s, "bo")
	assert.ErrorIs(t, res.Err, ErrResource)
}
