package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/talgya/cellblock/internal/engine"
)

type eventRow struct {
	ID          string `db:"id"`
	Tick        int64  `db:"tick"`
	At          string `db:"at"`
	Category    string `db:"category"`
	Description string `db:"description"`
	ActorID     string `db:"actor_id"`
	TargetID    string `db:"target_id"`
	GangID      string `db:"gang_id"`
	MetaJSON    string `db:"meta_json"`
}

func (r eventRow) event() (engine.Event, error) {
	at, err := time.Parse(time.RFC3339Nano, r.At)
	if err != nil {
		return engine.Event{}, fmt.Errorf("parse event %s time: %w", r.ID, err)
	}
	ev := engine.Event{
		ID:          r.ID,
		Tick:        uint64(r.Tick),
		At:          at,
		Category:    engine.Category(r.Category),
		Description: r.Description,
		ActorID:     r.ActorID,
		TargetID:    r.TargetID,
		GangID:      r.GangID,
	}
	if r.MetaJSON != "" && r.MetaJSON != "null" {
		if err := json.Unmarshal([]byte(r.MetaJSON), &ev.Meta); err != nil {
			return engine.Event{}, fmt.Errorf("decode event %s meta: %w", r.ID, err)
		}
	}
	return ev, nil
}

// SaveEvents appends events. Events already stored are skipped.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		meta, err := json.Marshal(e.Meta)
		if err != nil {
			return fmt.Errorf("encode event %s meta: %w", e.ID, err)
		}
		_, err = tx.Exec(`INSERT OR IGNORE INTO events
			(id, tick, at, category, description, actor_id, target_id, gang_id, meta_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, int64(e.Tick), e.At.UTC().Format(time.RFC3339Nano), string(e.Category),
			e.Description, e.ActorID, e.TargetID, e.GangID, string(meta),
		)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

const eventColumns = "id, tick, at, category, description, actor_id, target_id, gang_id, meta_json"

// RecentEvents returns up to limit events, newest first. A non-empty
// category filters the feed.
func (db *DB) RecentEvents(limit int, category engine.Category) ([]engine.Event, error) {
	var rows []eventRow
	var err error
	if category == "" {
		err = db.conn.Select(&rows,
			"SELECT "+eventColumns+" FROM events ORDER BY seq DESC LIMIT ?", limit)
	} else {
		err = db.conn.Select(&rows,
			"SELECT "+eventColumns+" FROM events WHERE category = ? ORDER BY seq DESC LIMIT ?", string(category), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	return toEvents(rows)
}

// EventsSince returns every event after tick, oldest first.
func (db *DB) EventsSince(tick uint64) ([]engine.Event, error) {
	var rows []eventRow
	if err := db.conn.Select(&rows,
		"SELECT "+eventColumns+" FROM events WHERE tick > ? ORDER BY seq", int64(tick)); err != nil {
		return nil, fmt.Errorf("events since %d: %w", tick, err)
	}
	return toEvents(rows)
}

func toEvents(rows []eventRow) ([]engine.Event, error) {
	out := make([]engine.Event, 0, len(rows))
	for _, r := range rows {
		ev, err := r.event()
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}
