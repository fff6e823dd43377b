// Package scheduler drives the yard forward in real time. Each tick stands for
// one simulated hour; callbacks fire on tick, day and week boundaries.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Tick layers, counted in simulated hours.
const (
	TicksPerDay  = 24
	TicksPerWeek = 168
)

// Scheduler owns invocation timing. It never touches yard state itself.
type Scheduler struct {
	Interval time.Duration // base wall-clock time per tick at speed 1

	mu      sync.Mutex
	tick    uint64
	speed   float64 // 1.0 = normal, 0 = paused
	running bool
	stop    chan struct{}

	// Callbacks for each tick layer, set during setup.
	OnTick func(tick uint64)
	OnDay  func(tick uint64)
	OnWeek func(tick uint64)
}

// New creates a scheduler resuming after tick.
func New(interval time.Duration, tick uint64) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		Interval: interval,
		tick:     tick,
		speed:    1.0,
	}
}

// Tick returns the last completed tick.
func (s *Scheduler) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Speed returns the current multiplier.
func (s *Scheduler) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// SetSpeed changes the multiplier. Zero pauses; negative values are treated
// as zero.
func (s *Scheduler) SetSpeed(v float64) {
	s.mu.Lock()
	s.speed = max(v, 0)
	s.mu.Unlock()
	slog.Info("speed changed", "speed", v)
}

// Running reports whether Run is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Run starts the loop. Blocks until ctx is done or Stop is called.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	slog.Info("scheduler started", "tick", s.Tick(), "speed", s.Speed())
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		slog.Info("scheduler stopped", "tick", s.Tick())
	}()

	for {
		speed := s.Speed()
		wait := 100 * time.Millisecond // paused; check again shortly
		if speed > 0 {
			start := time.Now()
			s.Step()
			wait = max(time.Duration(float64(s.Interval)/speed)-time.Since(start), 0)
		}
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-time.After(wait):
		}
	}
}

// Stop halts the loop started by Run.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// Step advances by exactly one tick, firing the due callbacks. It is also
// how admin tools force a tick while paused.
func (s *Scheduler) Step() uint64 {
	s.mu.Lock()
	s.tick++
	tick := s.tick
	s.mu.Unlock()

	if s.OnTick != nil {
		s.OnTick(tick)
	}
	if tick%TicksPerDay == 0 && s.OnDay != nil {
		s.OnDay(tick)
	}
	if tick%TicksPerWeek == 0 && s.OnWeek != nil {
		s.OnWeek(tick)
	}
	return tick
}

// YardTime renders a tick as a day and hour.
func YardTime(tick uint64) string {
	hours := tick % 24
	days := tick/24 + 1
	weeks := tick/TicksPerWeek + 1
	return fmt.Sprintf("Day %d, %02d:00 (week %d)", days, hours, weeks)
}
