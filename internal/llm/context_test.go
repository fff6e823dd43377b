package llm

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/cellblock/internal/engine"
	"github.com/talgya/cellblock/internal/gang"
)

var names = Names(func(id string) string {
	return map[string]string{"ana": "Ana Reyes", "bo": "Bo Tanner", "dee": "Dee Marsh"}[id]
})

func yard(t *testing.T) *gang.State {
	t.Helper()
	e := engine.New(1, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	res := e.InitializeGangs(gang.NewState(gang.DefaultConfig()), []gang.Seed{
		{ID: "saints", Name: "Iron Saints", Color: "red", LeaderID: "ana", MemberIDs: []string{"bo", "cy"}},
		{ID: "kings", Name: "Ghost Kings", Color: "blue", LeaderID: "dee", MemberIDs: []string{"eli"}},
	})
	require.NoError(t, res.Err)
	return res.State
}

func TestGangContextLeader(t *testing.T) {
	s := yard(t)
	ctx := GangContext(s, "ana", names)
	assert.Contains(t, ctx, "You lead the Iron Saints (red).")
	assert.Contains(t, ctx, "3 strong")
	assert.Contains(t, ctx, "holds 50% of the yard")
	assert.Contains(t, ctx, "$500 in the kitty")
	assert.Contains(t, ctx, "Rival crews: Ghost Kings (50% of the yard).")
	assert.NotContains(t, ctx, "in line")
}

func TestGangContextSoldier(t *testing.T) {
	s := yard(t)
	s.Members["bo"].Weapons = []gang.Weapon{{Name: "Bike chain", Type: gang.WeaponChain, Damage: 50, Durability: 80}}
	s.Members["bo"].Hits = 1
	s.Members["bo"].Imprisoned = true

	ctx := GangContext(s, "bo", names)
	assert.Contains(t, ctx, "soldier in the Iron Saints (red), answering to Ana Reyes.")
	assert.Contains(t, ctx, "locked in solitary")
	assert.Contains(t, ctx, "you carry Bike chain")
	assert.Contains(t, ctx, "1 fight")
}

func TestGangContextSuccessionLine(t *testing.T) {
	s := yard(t)
	s.Members["cy"].Respect = 90
	assert.Contains(t, GangContext(s, "cy", nil), "1st in line")
	assert.Contains(t, GangContext(s, "bo", nil), "2nd in line")
	assert.Contains(t, GangContext(s, "cy", nil), "The block fears you", "sentence starts capitalized")
}

func TestGangContextOutsiders(t *testing.T) {
	s := yard(t)
	assert.Empty(t, GangContext(s, "stranger", names))
	assert.Empty(t, GangContext(nil, "ana", names))

	s.Members["loner"] = gang.NewMember("loner")
	ctx := GangContext(s, "loner", names)
	assert.Contains(t, ctx, "no crew")
	assert.Contains(t, ctx, "Ghost Kings")
	assert.Contains(t, ctx, "Iron Saints")
}

func TestGangContextDead(t *testing.T) {
	s := yard(t)
	s.Gangs["kings"].RemoveMember("eli")
	eli := s.Members["eli"]
	eli.GangID = ""
	eli.Killed = true
	eli.KilledBy = "bo"
	assert.Equal(t, "eli is dead, killed by Bo Tanner.\n", GangContext(s, "eli", names))

	eli.KilledBy = engine.SystemKiller
	assert.Equal(t, "eli is dead.\n", GangContext(s, "eli", names))
}

func TestModifyPromptForGang(t *testing.T) {
	s := yard(t)
	prompt := "What do you think of the new guard?"

	assert.Equal(t, prompt, ModifyPromptForGang(s, "stranger", prompt, names))

	wrapped := ModifyPromptForGang(s, "dee", prompt, names)
	assert.True(t, strings.HasPrefix(wrapped, "[Life on the block]\n"))
	assert.True(t, strings.HasSuffix(wrapped, prompt))
	assert.Contains(t, wrapped, "You lead the Ghost Kings (blue).")
}
