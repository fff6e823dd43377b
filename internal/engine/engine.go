// Package engine implements the cell block's rules: membership and
// succession, recruitment and mergers, combat, the contraband economy and the
// tick pipeline. An Engine holds collaborators only. Every mutator takes a
// *gang.State, works on a deep copy and returns the copy in a Result; the
// input is never modified.
package engine

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/cellblock/internal/entropy"
	"github.com/talgya/cellblock/internal/gang"
)

// Engine resolves operations against caller-owned state. It is not safe for
// concurrent use; callers serialize access the same way they serialize
// access to the state.
type Engine struct {
	rng      entropy.Source
	ids      io.Reader
	now      func() time.Time
	affinity func(a, b string) float64
	names    func(id string) string
	log      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSource replaces the random source.
func WithSource(src entropy.Source) Option {
	return func(e *Engine) { e.rng = src }
}

// WithIDSource replaces the reader new IDs are drawn from.
func WithIDSource(r io.Reader) Option {
	return func(e *Engine) { e.ids = r }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithAffinity supplies the relationship lookup used by recruitment.
// The function returns a value in [-1, 1].
func WithAffinity(fn func(a, b string) float64) Option {
	return func(e *Engine) { e.affinity = fn }
}

// WithNames supplies display names for messages.
func WithNames(fn func(id string) string) Option {
	return func(e *Engine) { e.names = fn }
}

// WithLogger replaces the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an engine whose randomness is fully determined by seed.
func New(seed int64, opts ...Option) *Engine {
	e := &Engine{
		rng: entropy.NewSeeded(seed),
		ids: entropy.NewSeeded(seed + 1),
		now: time.Now,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the display name for id.
func (e *Engine) Name(id string) string {
	if e.names != nil {
		if n := e.names(id); n != "" {
			return n
		}
	}
	return id
}

func (e *Engine) roll(p float64) bool {
	return e.rng.Float64() < gang.Prob(p)
}

// between returns a uniform int in [lo, hi].
func (e *Engine) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + e.rng.Intn(hi-lo+1)
}

func (e *Engine) pick(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[e.rng.Intn(len(ids))]
}

func (e *Engine) newID() string {
	id, err := uuid.NewRandomFromReader(e.ids)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (e *Engine) affinityOf(a, b string) float64 {
	if e.affinity == nil || a == "" || b == "" {
		return 0
	}
	return gang.Clamp(e.affinity(a, b), -1, 1)
}
