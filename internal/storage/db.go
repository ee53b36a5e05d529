// Package storage persists player sessions in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/Porkelson/dnd-project/internal/models"
)

// ErrSessionNotFound is returned when no session has the requested id.
var ErrSessionNotFound = errors.New("storage: session not found")

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
	now  func() time.Time
}

// Session is a stored session summary.
type Session struct {
	ID        string
	Name      string
	UpdatedAt time.Time
	State     models.PlayerState
}

type sessionRow struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	Tags       string `db:"tags_json"`
	Inventory  string `db:"inventory_json"`
	Health     int    `db:"health"`
	MaxHealth  int    `db:"max_health"`
	Gold       int    `db:"gold"`
	Experience int    `db:"experience"`
	Level      int    `db:"level"`
	UpdatedAt  int64  `db:"updated_at"`
}

// Open opens or creates the database at path. Use ":memory:" in tests.
func Open(path string) (*DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		dsn = path
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one connection keeps an in-memory database alive and serializes writes
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, now: time.Now}
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
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		tags_json TEXT NOT NULL,
		inventory_json TEXT NOT NULL,
		health INTEGER NOT NULL,
		max_health INTEGER NOT NULL,
		gold INTEGER NOT NULL,
		experience INTEGER NOT NULL,
		level INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// NewSessionID returns a fresh session id.
func NewSessionID() string {
	return uuid.NewString()
}

// SaveSession inserts or replaces the session with the given id.
func (db *DB) SaveSession(ctx context.Context, id, name string, state models.PlayerState) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("storage: invalid session id %q: %w", id, err)
	}
	tags, err := json.Marshal([]string(state.Tags.Clone()))
	if err != nil {
		return err
	}
	inventory := state.Inventory
	if inventory == nil {
		inventory = []string{}
	}
	inv, err := json.Marshal(inventory)
	if err != nil {
		return err
	}

	row := sessionRow{
		ID:         id,
		Name:       name,
		Tags:       string(tags),
		Inventory:  string(inv),
		Health:     state.Stats.Health,
		MaxHealth:  state.Stats.MaxHealth,
		Gold:       state.Stats.Gold,
		Experience: state.Stats.Experience,
		Level:      state.Stats.Level,
		UpdatedAt:  db.now().UnixNano(),
	}
	_, err = db.conn.NamedExecContext(ctx, `
		INSERT INTO sessions (id, name, tags_json, inventory_json, health, max_health, gold, experience, level, updated_at)
		VALUES (:id, :name, :tags_json, :inventory_json, :health, :max_health, :gold, :experience, :level, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			tags_json = excluded.tags_json,
			inventory_json = excluded.inventory_json,
			health = excluded.health,
			max_health = excluded.max_health,
			gold = excluded.gold,
			experience = excluded.experience,
			level = excluded.level,
			updated_at = excluded.updated_at`, row)
	if err != nil {
		return fmt.Errorf("storage: save session %s: %w", id, err)
	}
	return nil
}

// LoadSession reads one session.
func (db *DB) LoadSession(ctx context.Context, id string) (Session, error) {
	var row sessionRow
	err := db.conn.GetContext(ctx, &row, `SELECT * FROM sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("storage: load session %s: %w", id, err)
	}
	return row.toSession()
}

// ListSessions returns every session, most recently updated first.
func (db *DB) ListSessions(ctx context.Context) ([]Session, error) {
	var rows []sessionRow
	if err := db.conn.SelectContext(ctx, &rows, `SELECT * FROM sessions ORDER BY updated_at DESC, id`); err != nil {
		return nil, fmt.Errorf("storage: list sessions: %w", err)
	}
	out := make([]Session, 0, len(rows))
	for _, r := range rows {
		s, err := r.toSession()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// DeleteSession removes a session.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage: delete session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r sessionRow) toSession() (Session, error) {
	var tags, inv []string
	if err := json.Unmarshal([]byte(r.Tags), &tags); err != nil {
		return Session{}, fmt.Errorf("storage: session %s tags: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Inventory), &inv); err != nil {
		return Session{}, fmt.Errorf("storage: session %s inventory: %w", r.ID, err)
	}
	if inv == nil {
		inv = []string{}
	}
	return Session{
		ID:        r.ID,
		Name:      r.Name,
		UpdatedAt: time.Unix(0, r.UpdatedAt),
		State: models.PlayerState{
			Tags:      models.NewTagSet(tags...),
			Inventory: inv,
			Stats: models.Stats{
				Health:     r.Health,
				MaxHealth:  r.MaxHealth,
				Gold:       r.Gold,
				Experience: r.Experience,
				Level:      r.Level,
			}.Normalize(),
		},
	}, nil
}
