// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/verte-zerg/typeracer/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for rooms, scores, sessions and the corpus.
type Store struct {
	db *sql.DB
	// mu serializes read-modify-write updates of rooms and progress rows.
	mu sync.Mutex
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			host_id TEXT NOT NULL,
			host_name TEXT NOT NULL,
			guest_id TEXT NOT NULL DEFAULT '',
			guest_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			corpus TEXT NOT NULL,
			start_time TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS race_progress (
			room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
			participant_id TEXT NOT NULL,
			chars_typed INTEGER NOT NULL,
			wpm REAL NOT NULL,
			finished INTEGER NOT NULL,
			finish_time TEXT,
			disconnected INTEGER NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (room_id, participant_id)
		);`,
		`CREATE TABLE IF NOT EXISTS leaderboard (
			user_id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS leaderboard_scores (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES leaderboard(user_id) ON DELETE CASCADE,
			wpm REAL NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL,
			mode TEXT NOT NULL,
			wpm REAL NOT NULL,
			accuracy REAL NOT NULL,
			chars_typed INTEGER NOT NULL,
			error_count INTEGER NOT NULL,
			corpus_length INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_mistakes (
			session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			char TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (session_id, char)
		);`,
		`CREATE TABLE IF NOT EXISTS corpus (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			text TEXT NOT NULL,
			reference TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_leaderboard_scores_user ON leaderboard_scores(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_ended ON sessions(user_id, ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func closeRows(rows *sql.Rows) {
	if cerr := rows.Close(); cerr != nil {
		// Best-effort rows close.
		_ = cerr
	}
}

// timeLayout keeps a fixed-width fraction so stored values sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, v)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := parseTime(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
