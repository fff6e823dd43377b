package api

import (
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/cellblock/internal/engine"
	"github.com/talgya/cellblock/internal/gang"
)

const recentEventCap = 500

// Store is the single writer for the yard. Every engine call goes through
// it under one lock, so the scheduler, the admin API and any chat layer
// never race. It also owns the simulated clock the engine reads.
type Store struct {
	mu     sync.RWMutex
	state  *gang.State
	eng    *engine.Engine
	clock  time.Time
	recent []engine.Event
	sinks  []func([]engine.Event)
}

// NewStore wraps s. The engine is built with seed and opts, plus a clock
// that starts at s.LastAdvance (or start, for a fresh yard) and only moves
// when Advance is called.
func NewStore(s *gang.State, start time.Time, seed int64, opts ...engine.Option) *Store {
	st := &Store{state: s, clock: start}
	if !s.LastAdvance.IsZero() {
		st.clock = s.LastAdvance
	}
	opts = append(opts, engine.WithClock(st.now))
	st.eng = engine.New(seed, opts...)
	return st
}

// now is only called by the engine while the write lock is held.
func (st *Store) now() time.Time { return st.clock }

// Engine returns the engine bound to this store.
func (st *Store) Engine() *engine.Engine { return st.eng }

// OnEvents registers a sink called with each batch of new events, outside
// the lock.
func (st *Store) OnEvents(fn func([]engine.Event)) {
	st.mu.Lock()
	st.sinks = append(st.sinks, fn)
	st.mu.Unlock()
}

// View runs fn against the current state under a read lock. fn must not
// keep or modify s.
func (st *Store) View(fn func(s *gang.State)) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	fn(st.state)
}

// Snapshot returns a deep copy of the current state.
func (st *Store) Snapshot() *gang.State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.Clone()
}

// Now returns the simulated clock.
func (st *Store) Now() time.Time {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.clock
}

// Do runs one engine operation against the current state and commits the
// result on success.
func Do[T any](st *Store, fn func(e *engine.Engine, s *gang.State) engine.Result[T]) engine.Result[T] {
	st.mu.Lock()
	res := fn(st.eng, st.state)
	sinks := st.commit(res.State, res.Events, res.Err)
	st.mu.Unlock()
	notify(sinks, res.Events)
	return res
}

// Advance moves the clock forward by delta and runs a tick. A non-nil
// intensity is applied to the environment first.
func (st *Store) Advance(delta time.Duration, intensity *float64) engine.Result[engine.TickReport] {
	st.mu.Lock()
	if intensity != nil {
		env := st.eng.ApplyEnvironmentParameters(st.state, engine.EnvironmentParams{Intensity: intensity})
		if env.OK() {
			st.state = env.State
		} else {
			slog.Warn("climate update rejected", "error", env.Err)
		}
	}
	prev := st.clock
	st.clock = st.clock.Add(delta)
	res := st.eng.Advance(st.state, delta)
	if !res.OK() {
		st.clock = prev
	}
	sinks := st.commit(res.State, res.Events, res.Err)
	st.mu.Unlock()

	for _, pe := range res.Value.PhaseErrors {
		slog.Error("tick phase failed", "phase", pe.Phase, "tick", res.Value.Tick, "error", pe.Err)
	}
	notify(sinks, res.Events)
	return res
}

// Replace swaps in a whole new state, as after loading a save.
func (st *Store) Replace(s *gang.State) {
	st.mu.Lock()
	st.state = s
	if !s.LastAdvance.IsZero() {
		st.clock = s.LastAdvance
	}
	st.mu.Unlock()
}

// Recent returns up to limit in-memory events, oldest first. A non-empty
// category filters them.
func (st *Store) Recent(limit int, category engine.Category) []engine.Event {
	st.mu.RLock()
	defer st.mu.RUnlock()
	var out []engine.Event
	for i := len(st.recent) - 1; i >= 0 && len(out) < limit; i-- {
		if category == "" || st.recent[i].Category == category {
			out = append(out, st.recent[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// commit must be called with the write lock held.
func (st *Store) commit(next *gang.State, events []engine.Event, err error) []func([]engine.Event) {
	if err != nil || next == nil {
		return nil
	}
	st.state = next
	if len(events) == 0 {
		return nil
	}
	st.recent = append(st.recent, events...)
	if over := len(st.recent) - recentEventCap; over > 0 {
		st.recent = append([]engine.Event(nil), st.recent[over:]...)
	}
	return append([]func([]engine.Event)(nil), st.sinks...)
}

func notify(sinks []func([]engine.Event), events []engine.Event) {
	if len(events) == 0 {
		return
	}
	for _, fn := range sinks {
		fn(events)
	}
}
