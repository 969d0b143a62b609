// Package journal keeps an append-only audit trail of tracker transitions in
// SQLite, queryable per day.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

// FileName is the journal database inside the data directory.
const FileName = "journal.db"

// Entry is one journaled transition.
type Entry struct {
	ID      string    `json:"id" yaml:"id"`
	Day     string    `json:"day" yaml:"day"`
	Kind    string    `json:"kind" yaml:"kind"`
	Cause   string    `json:"cause,omitempty" yaml:"cause,omitempty"`
	At      time.Time `json:"at" yaml:"at"`
	Lap     int       `json:"lap" yaml:"lap"`
	Seconds int64     `json:"seconds" yaml:"seconds"`
	Origin  string    `json:"origin,omitempty" yaml:"origin,omitempty"`
}

// FromTransition converts a tracker transition into a new entry.
func FromTransition(tr tracker.Transition) Entry {
	return Entry{
		ID:      uuid.NewString(),
		Day:     tr.DayKey,
		Kind:    string(tr.Kind),
		Cause:   tr.Cause,
		At:      tr.At.UTC(),
		Lap:     tr.Lap,
		Seconds: tr.Seconds,
		Origin:  string(tr.Origin),
	}
}

// Store persists entries.
type Store interface {
	Append(ctx context.Context, entries ...Entry) error
	ByDay(ctx context.Context, day string) ([]Entry, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens or creates the journal. Use ":memory:" for an
// in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection: an in-memory database is per connection, and writes
	// are serialized anyway.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transitions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		day TEXT NOT NULL,
		kind TEXT NOT NULL,
		cause TEXT NOT NULL DEFAULT '',
		at_unix_ms INTEGER NOT NULL,
		lap INTEGER NOT NULL,
		seconds INTEGER NOT NULL,
		origin TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_transitions_day ON transitions(day);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append inserts entries in one transaction, preserving their order.
func (s *SQLiteStore) Append(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO transitions (id, day, kind, cause, at_unix_ms, lap, seconds, origin) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.Day, e.Kind, e.Cause, e.At.UnixMilli(), e.Lap, e.Seconds, e.Origin); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ByDay returns a day's entries in insertion order.
func (s *SQLiteStore) ByDay(ctx context.Context, day string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, day, kind, cause, at_unix_ms, lap, seconds, origin FROM transitions WHERE day = ? ORDER BY seq",
		day,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var atMillis int64
		if err := rows.Scan(&e.ID, &e.Day, &e.Kind, &e.Cause, &atMillis, &e.Lap, &e.Seconds, &e.Origin); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.At = time.UnixMilli(atMillis).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
