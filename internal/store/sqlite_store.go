// Package store provides SQLite-backed persistence for lorekeep.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

// DefaultKeepVersions is how many historical writes per key are retained.
const DefaultKeepVersions = 20

// SQLiteStore is the SQLite-backed key-value store.
// Every Put writes a new version of the key; the previous one is closed.
// Thread-safe for concurrent WASM callbacks.
type SQLiteStore struct {
	mu   sync.RWMutex
	db   *sql.DB
	keep int
	now  func() time.Time
}

// schema defines the key-value table with temporal versioning.
const schema = `
-- Composite primary key (key, version) keeps write history
CREATE TABLE IF NOT EXISTS kv (
    key TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    value BLOB NOT NULL,
    valid_from INTEGER NOT NULL,
    valid_to INTEGER,
    is_current INTEGER DEFAULT 1,
    PRIMARY KEY (key, version)
);

-- Partial index for current versions (fast reads)
CREATE INDEX IF NOT EXISTS idx_kv_current ON kv(key) WHERE is_current = 1;
`

// NewSQLiteStore creates a new in-memory SQLite store.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)

	// Create schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, keep: DefaultKeepVersions, now: time.Now}, nil
}

// SetKeepVersions changes history retention. n < 1 keeps only the current value.
func (s *SQLiteStore) SetKeepVersions(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 {
		n = 1
	}
	s.keep = n
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the current value of key.
func (s *SQLiteStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ? AND is_current = 1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put writes a new current version of key inside one transaction.
func (s *SQLiteStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixMilli()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM kv WHERE key = ?`, key).Scan(&current)
	if err != nil {
		return err
	}

	// Close old current version
	if _, err := tx.Exec(`
		UPDATE kv SET valid_to = ?, is_current = 0
		WHERE key = ? AND is_current = 1
	`, now, key); err != nil {
		return err
	}

	if value == nil {
		value = []byte{}
	}
	if _, err := tx.Exec(`
		INSERT INTO kv (key, version, value, valid_from, valid_to, is_current)
		VALUES (?, ?, ?, ?, NULL, 1)
	`, key, current+1, value, now); err != nil {
		return err
	}

	// Prune history beyond retention
	if _, err := tx.Exec(`
		DELETE FROM kv WHERE key = ? AND version <= ?
	`, key, current+1-s.keep); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes key and its history.
func (s *SQLiteStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}

// ListVersions returns the retained versions of key, newest first.
func (s *SQLiteStore) ListVersions(key string) ([]*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT key, version, LENGTH(value), valid_from, valid_to, is_current
		FROM kv WHERE key = ? ORDER BY version DESC
	`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*Version
	for rows.Next() {
		var v Version
		var validTo sql.NullInt64
		var isCurrent int
		if err := rows.Scan(&v.Key, &v.Version, &v.Size, &v.ValidFrom, &validTo, &isCurrent); err != nil {
			return nil, err
		}
		v.IsCurrent = isCurrent != 0
		if validTo.Valid {
			v.ValidTo = &validTo.Int64
		}
		versions = append(versions, &v)
	}
	return versions, rows.Err()
}

// GetVersion returns a specific retained version of key, or nil if pruned.
func (s *SQLiteStore) GetVersion(key string, version int) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ? AND version = ?`, key, version).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Compile-time interface checks
var (
	_ Storer    = (*SQLiteStore)(nil)
	_ Versioner = (*SQLiteStore)(nil)
)
