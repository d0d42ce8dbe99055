package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sadopc/flow/internal/clock"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

// Store is the SQLite-backed persistence gateway.
type Store struct {
	db    *sql.DB
	clock clock.Clock
	newID func() string
}

type Option func(*Store)

// WithClock sets the time source used for created_at stamps, streaks
// and the heatmap window.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string, opts ...Option) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, clock: clock.Real(), newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory(opts ...Option) (*Store, error) {
	return New(":memory:", opts...)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) now() string {
	return s.clock.Now().UTC().Format(time.RFC3339)
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		email       TEXT NOT NULL DEFAULT '',
		avatar_path TEXT NOT NULL DEFAULT '',
		join_date   TEXT NOT NULL,
		is_premium  INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS focus_sessions (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		duration_seconds INTEGER NOT NULL,
		started_at       TEXT NOT NULL,
		ended_at         TEXT NOT NULL,
		category         TEXT NOT NULL DEFAULT '',
		notes            TEXT NOT NULL DEFAULT '',
		created_at       TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user ON focus_sessions(user_id, started_at);

	CREATE TABLE IF NOT EXISTS daily_stats (
		id                  TEXT PRIMARY KEY,
		user_id             TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		date                TEXT NOT NULL,
		total_focus_seconds INTEGER NOT NULL DEFAULT 0,
		session_count       INTEGER NOT NULL DEFAULT 0,
		UNIQUE(user_id, date)
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title       TEXT NOT NULL,
		category    TEXT NOT NULL CHECK (category IN ('Reminder', 'To Do', 'Event')),
		date        TEXT NOT NULL,
		start_time  TEXT NOT NULL DEFAULT '',
		end_time    TEXT NOT NULL DEFAULT '',
		completed   INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_user_date ON tasks(user_id, date);

	CREATE TABLE IF NOT EXISTS achievements (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		achievement_type TEXT NOT NULL,
		unlocked_at      TEXT NOT NULL,
		seen             INTEGER NOT NULL DEFAULT 0,
		UNIQUE(user_id, achievement_type)
	);

	CREATE TABLE IF NOT EXISTS user_settings (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		key     TEXT NOT NULL,
		value   TEXT NOT NULL,
		PRIMARY KEY (user_id, key)
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/flow/flow.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "flow", "flow.db"), nil
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339, v)
	return t
}
