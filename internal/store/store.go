package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentVersion = 2

// Store records the history of countdown runs. It never holds the live
// timer state.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the history database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	// Configure pragmas.
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

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
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
	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS countdowns (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id            TEXT NOT NULL UNIQUE,
		planned_seconds   INTEGER NOT NULL,
		added_seconds     INTEGER NOT NULL DEFAULT 0,
		pauses            INTEGER NOT NULL DEFAULT 0,
		remaining_seconds INTEGER NOT NULL,
		status            TEXT NOT NULL DEFAULT 'running',
		shutdown_error    TEXT NOT NULL DEFAULT '',
		started_at        TEXT NOT NULL,
		ended_at          TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_countdowns_started ON countdowns(started_at);
	CREATE INDEX IF NOT EXISTS idx_countdowns_status  ON countdowns(status);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// migrateV2 tracks net field edits made while a run was active.
func (s *Store) migrateV2() error {
	_, err := s.db.Exec(`ALTER TABLE countdowns ADD COLUMN adjusted_seconds INTEGER NOT NULL DEFAULT 0`)
	return err
}
