// Package persistence stores the yard in SQLite: the current roster of
// gangs, members and guards, the append-only bribe log and the event feed.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/cellblock/internal/engine"
	"github.com/talgya/cellblock/internal/gang"
)

// ErrNoYard is returned by LoadYard when nothing has been saved yet.
var ErrNoYard = errors.New("no saved yard")

// DB wraps a SQLite connection for yard persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS gangs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		leader_id TEXT NOT NULL,
		territory REAL NOT NULL,
		reputation REAL NOT NULL,
		money INTEGER NOT NULL,
		collapsed INTEGER NOT NULL,
		data_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		gang_id TEXT NOT NULL,
		rank TEXT NOT NULL,
		respect REAL NOT NULL,
		imprisoned INTEGER NOT NULL,
		killed INTEGER NOT NULL,
		data_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS guards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		corruptibility REAL NOT NULL,
		alertness REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bribes (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		member_id TEXT NOT NULL,
		weapon_type TEXT NOT NULL,
		cost INTEGER NOT NULL,
		success INTEGER NOT NULL,
		guard_id TEXT NOT NULL,
		at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		tick INTEGER NOT NULL,
		at TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		gang_id TEXT NOT NULL,
		meta_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS yard_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_events_category ON events(category);
	CREATE INDEX IF NOT EXISTS idx_members_gang ON members(gang_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Meta keys.
const (
	metaTick        = "tick"
	metaLastAdvance = "last_advance"
	metaIntensity   = "intensity"
	metaConfig      = "config_json"
)

// SaveYard writes the full yard in one transaction. Gangs, members and
// guards are replaced; bribe attempts are appended, so entries already on
// disk are never rewritten.
func (db *DB) SaveYard(s *gang.State) error {
	if err := s.Check(); err != nil {
		return fmt.Errorf("refusing to save inconsistent yard: %w", err)
	}
	slog.Info("saving yard", "tick", s.Tick, "gangs", len(s.Gangs), "members", len(s.Members))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"gangs", "members", "guards"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, id := range s.GangIDs() {
		g := s.Gangs[id]
		data, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("encode gang %s: %w", id, err)
		}
		_, err = tx.Exec(`INSERT INTO gangs
			(id, name, leader_id, territory, reputation, money, collapsed, data_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			g.ID, g.Name, g.LeaderID, g.TerritoryControl, g.Reputation, g.Money, g.Collapsed, string(data),
		)
		if err != nil {
			return fmt.Errorf("insert gang %s: %w", id, err)
		}
	}

	stmt, err := tx.Preparex(`INSERT INTO members
		(id, gang_id, rank, respect, imprisoned, killed, data_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, id := range s.MemberIDs() {
		m := s.Members[id]
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode member %s: %w", id, err)
		}
		if _, err := stmt.Exec(m.ID, m.GangID, m.Rank, m.Respect, m.Imprisoned, m.Killed, string(data)); err != nil {
			return fmt.Errorf("insert member %s: %w", id, err)
		}
	}

	for _, id := range s.GuardIDs() {
		g := s.Guards[id]
		if _, err := tx.Exec("INSERT INTO guards (id, name, corruptibility, alertness) VALUES (?, ?, ?, ?)",
			g.ID, g.Name, g.Corruptibility, g.Alertness); err != nil {
			return fmt.Errorf("insert guard %s: %w", id, err)
		}
	}

	for i, b := range s.BribeLog {
		_, err := tx.Exec(`INSERT OR IGNORE INTO bribes
			(id, seq, member_id, weapon_type, cost, success, guard_id, at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, i, b.MemberID, b.WeaponType, b.Cost, b.Success, b.GuardID, b.At.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert bribe %s: %w", b.ID, err)
		}
	}

	cfg, err := json.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	meta := map[string]string{
		metaTick:        strconv.FormatUint(s.Tick, 10),
		metaLastAdvance: s.LastAdvance.UTC().Format(time.RFC3339Nano),
		metaIntensity:   strconv.FormatFloat(s.EnvironmentIntensity, 'g', -1, 64),
		metaConfig:      string(cfg),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO yard_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("yard saved", "tick", s.Tick)
	return nil
}

type bribeRow struct {
	ID         string `db:"id"`
	MemberID   string `db:"member_id"`
	WeaponType string `db:"weapon_type"`
	Cost       int    `db:"cost"`
	Success    bool   `db:"success"`
	GuardID    string `db:"guard_id"`
	At         string `db:"at"`
}

type guardRow struct {
	ID             string  `db:"id"`
	Name           string  `db:"name"`
	Corruptibility float64 `db:"corruptibility"`
	Alertness      float64 `db:"alertness"`
}

// LoadYard rebuilds the last saved yard. It returns ErrNoYard on a fresh
// database.
func (db *DB) LoadYard() (*gang.State, error) {
	tickStr, err := db.GetMeta(metaTick)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoYard
	}
	if err != nil {
		return nil, fmt.Errorf("load tick: %w", err)
	}

	s := gang.NewState(gang.DefaultConfig())
	s.Guards = make(map[string]*gang.Guard)
	if s.Tick, err = strconv.ParseUint(tickStr, 10, 64); err != nil {
		return nil, fmt.Errorf("parse tick: %w", err)
	}
	if v, err := db.GetMeta(metaConfig); err == nil {
		if err := json.Unmarshal([]byte(v), &s.Config); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if v, err := db.GetMeta(metaIntensity); err == nil {
		if s.EnvironmentIntensity, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("parse intensity: %w", err)
		}
	}
	if v, err := db.GetMeta(metaLastAdvance); err == nil {
		if s.LastAdvance, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, fmt.Errorf("parse last advance: %w", err)
		}
	}

	var gangs []string
	if err := db.conn.Select(&gangs, "SELECT data_json FROM gangs ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load gangs: %w", err)
	}
	for _, data := range gangs {
		var g gang.Gang
		if err := json.Unmarshal([]byte(data), &g); err != nil {
			return nil, fmt.Errorf("decode gang: %w", err)
		}
		s.Gangs[g.ID] = g.Clone()
	}

	var members []string
	if err := db.conn.Select(&members, "SELECT data_json FROM members ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	for _, data := range members {
		var m gang.Member
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return nil, fmt.Errorf("decode member: %w", err)
		}
		s.Members[m.ID] = m.Clone()
	}

	var guards []guardRow
	if err := db.conn.Select(&guards, "SELECT id, name, corruptibility, alertness FROM guards ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load guards: %w", err)
	}
	for _, g := range guards {
		s.Guards[g.ID] = &gang.Guard{ID: g.ID, Name: g.Name, Corruptibility: g.Corruptibility, Alertness: g.Alertness}
	}

	var bribes []bribeRow
	if err := db.conn.Select(&bribes, `SELECT id, member_id, weapon_type, cost, success, guard_id, at
		FROM bribes ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("load bribes: %w", err)
	}
	for _, b := range bribes {
		at, err := time.Parse(time.RFC3339Nano, b.At)
		if err != nil {
			return nil, fmt.Errorf("parse bribe %s: %w", b.ID, err)
		}
		s.BribeLog = append(s.BribeLog, gang.BribeAttempt{
			ID: b.ID, MemberID: b.MemberID, WeaponType: gang.WeaponType(b.WeaponType),
			Cost: b.Cost, Success: b.Success, GuardID: b.GuardID, At: at,
		})
	}

	if err := s.Check(); err != nil {
		return nil, fmt.Errorf("saved yard is inconsistent: %w", err)
	}
	slog.Info("yard loaded", "tick", s.Tick, "gangs", len(s.Gangs), "members", len(s.Members))
	return s, nil
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO yard_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM yard_meta WHERE key = ?", key)
	return value, err
}
