package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/talgya/cellblock/internal/gang"
)

// Category groups events for filtering and narration.
type Category string

const (
	CatMembership  Category = "membership"
	CatSuccession  Category = "succession"
	CatCollapse    Category = "collapse"
	CatRecruitment Category = "recruitment"
	CatMerger      Category = "merger"
	CatViolence    Category = "violence"
	CatDeath       Category = "death"
	CatTerritory   Category = "territory"
	CatSolitary    Category = "solitary"
	CatRelease     Category = "release"
	CatBribe       Category = "bribe"
	CatCraft       Category = "craft"
	CatSmuggling   Category = "smuggling"
	CatDealing     Category = "dealing"
	CatTrophy      Category = "trophy"
	CatPurchase    Category = "purchase"
	CatTheft       Category = "theft"
	CatLoyalty     Category = "loyalty"
	CatWorld       Category = "world"
)

// Event is a notable occurrence produced by an operation.
type Event struct {
	ID          string         `json:"id"`
	Tick        uint64         `json:"tick"`
	At          time.Time      `json:"at"`
	Category    Category       `json:"category"`
	Description string         `json:"description"`
	ActorID     string         `json:"actor_id,omitempty"`
	TargetID    string         `json:"target_id,omitempty"`
	GangID      string         `json:"gang_id,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// Result is returned by every mutator. On failure State is the unchanged
// input and Err is an *Error.
type Result[T any] struct {
	State   *gang.State
	Value   T
	Message string
	Events  []Event
	Err     error
}

// OK reports whether the operation succeeded.
func (r Result[T]) OK() bool { return r.Err == nil }

// op is the working context of a single mutator call: the clone being
// mutated, the instant the call is evaluated at and the events so far.
type op struct {
	*Engine
	name   string
	s      *gang.State
	now    time.Time
	events []Event
}

func (e *Engine) begin(name string, s *gang.State) (*op, error) {
	if s == nil || s.Gangs == nil || s.Members == nil || s.Guards == nil {
		return nil, invariantErr(name, errors.New("state not initialized"))
	}
	return &op{Engine: e, name: name, s: s.Clone(), now: e.now()}, nil
}

func (o *op) emit(ev Event) {
	ev.ID = o.newID()
	ev.Tick = o.s.Tick
	ev.At = o.now
	o.events = append(o.events, ev)
}

func (o *op) emitf(cat Category, actor, target, format string, args ...any) {
	o.emit(Event{Category: cat, ActorID: actor, TargetID: target, Description: fmt.Sprintf(format, args...)})
}

func done[T any](o *op, v T, msg string) Result[T] {
	return Result[T]{State: o.s, Value: v, Message: msg, Events: o.events}
}

func failed[T any](s *gang.State, err error) Result[T] {
	return Result[T]{State: s, Err: err, Message: err.Error()}
}
