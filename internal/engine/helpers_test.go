package engine

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/talgya/cellblock/internal/gang"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// fixed returns the same draw forever. fixed(0) makes every roll with a
// positive chance succeed; fixed(0.999) makes nearly every roll fail.
type fixed float64

func (f fixed) Float64() float64 { return float64(f) }
func (f fixed) Intn(n int) int   { return min(int(float64(f)*float64(n)), n-1) }

// script replays draws in order, then falls back to a fixed value.
type script struct {
	draws    []float64
	fallback float64
}

func (s *script) Float64() float64 {
	if len(s.draws) == 0 {
		return s.fallback
	}
	f := s.draws[0]
	s.draws = s.draws[1:]
	return f
}

func (s *script) Intn(n int) int { return min(int(s.Float64()*float64(n)), n-1) }

// exploding panics on any draw.
type exploding struct{}

func (exploding) Float64() float64 { panic("random source failed") }
func (exploding) Intn(int) int     { panic("random source failed") }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(src interface {
	Float64() float64
	Intn(int) int
}) *Engine {
	return New(7,
		WithSource(src),
		WithClock(func() time.Time { return t0 }),
		WithLogger(quietLogger()),
	)
}

// newYard builds two gangs: saints (ana leading bo and cy) and kings (dee
// leading eli and fay), each holding half the yard.
func newYard(t *testing.T) *gang.State {
	t.Helper()
	e := newTestEngine(fixed(0.5))
	res := e.InitializeGangs(gang.NewState(gang.DefaultConfig()), []gang.Seed{
		{ID: "saints", Name: "Iron Saints", Color: "red", LeaderID: "ana", MemberIDs: []string{"bo", "cy"}},
		{ID: "kings", Name: "Ghost Kings", Color: "blue", LeaderID: "dee", MemberIDs: []string{"eli", "fay"}},
	})
	require.NoError(t, res.Err)
	require.NoError(t, res.State.Check())
	return res.State
}

func requireConsistent(t *testing.T, s *gang.State) {
	t.Helper()
	require.NoError(t, s.Check())
	require.LessOrEqual(t, s.TotalTerritory(), 1+gang.TerritoryEpsilon)
	for id, m := range s.Members {
		require.GreaterOrEqual(t, m.DeathRiskModifier, gang.MinDeathRisk, id)
		require.LessOrEqual(t, m.DeathRiskModifier, gang.MaxDeathRisk, id)
	}
}
