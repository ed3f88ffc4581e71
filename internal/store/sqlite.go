package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists entries in a single key/value table. The schema is
// migrated on open.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrStorage, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to migrate: %v", ErrStorage, err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS diff_states (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_diff_states_expiry ON diff_states(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Get returns the stored value for key. Expired entries report absent.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM diff_states WHERE key = ?`, key).
		Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s: %v", ErrStorage, key, err)
	}

	if expiresAt.Valid && time.Now().After(expiresAt.Time) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM diff_states WHERE key = ?`, key)
		return nil, false, nil
	}

	return value, true, nil
}

// Put inserts or replaces the value for key. ttl of zero stores forever.
func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt any
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO diff_states (key, value, expires_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at, updated_at = excluded.updated_at`,
		key, value, expiresAt, time.Now())
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrStorage, key, err)
	}
	return nil
}

// Has reports whether a live entry exists for key.
func (s *SQLiteStore) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

// Delete removes the entry for key. Deleting an absent key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM diff_states WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrStorage, key, err)
	}
	return nil
}

// Clear removes all entries.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM diff_states`)
	if err != nil {
		return fmt.Errorf("%w: clear: %v", ErrStorage, err)
	}
	return nil
}

// Entry is a row listed from the store, with payload size rather than the
// payload itself.
type Entry struct {
	Key       string
	Size      int
	ExpiresAt time.Time
	UpdatedAt time.Time
}

// List returns all entries ordered by most recently updated.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, LENGTH(value), expires_at, updated_at FROM diff_states ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrStorage, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var expiresAt sql.NullTime
		if err := rows.Scan(&e.Key, &e.Size, &expiresAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: list: %v", ErrStorage, err)
		}
		if expiresAt.Valid {
			e.ExpiresAt = expiresAt.Time
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats summarises store contents.
type Stats struct {
	Entries    int
	TotalBytes int
}

// Stats returns entry count and cumulative payload size.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(value)), 0) FROM diff_states`).
		Scan(&stats.Entries, &stats.TotalBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: stats: %v", ErrStorage, err)
	}
	return stats, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
