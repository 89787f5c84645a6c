package client

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrCorrupt is returned when a stored value is not valid JSON for its key.
// Only the feature reading that key is affected.
var ErrCorrupt = errors.New("local value is corrupt")

const localSchema = `
CREATE TABLE IF NOT EXISTS kv (
	scope      TEXT    NOT NULL,
	key        TEXT    NOT NULL,
	value      TEXT    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (scope, key)
)`

// LocalStore is a durable key-value store for device-local state. Each key
// holds one JSON blob that is always read and written whole, so concurrent
// writers to the same key resolve as last-writer-wins.
type LocalStore struct {
	db    *sql.DB
	scope string
}

// OpenLocalStore opens or creates the store at path. scope partitions keys,
// typically by principal.
func OpenLocalStore(path, scope string) (*LocalStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	// One writer at a time keeps sqlite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping local store: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(localSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create local schema: %w", err)
	}

	return &LocalStore{db: db, scope: scope}, nil
}

// WithScope returns a view of the same store under another scope.
func (s *LocalStore) WithScope(scope string) *LocalStore {
	return &LocalStore{db: s.db, scope: scope}
}

// Close closes the underlying database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// Get decodes the value at key into v. It reports false when the key is absent.
func (s *LocalStore) Get(ctx context.Context, key string, v any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE scope = ? AND key = ?`, s.scope, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

// Put replaces the value at key.
func (s *LocalStore) Put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.putRaw(ctx, key, string(raw))
}

func (s *LocalStore) putRaw(ctx context.Context, key, raw string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (scope, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.scope, key, raw, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE scope = ? AND key = ?`, s.scope, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Update reads the value at key, applies fn and writes the whole value back.
// An absent key starts from the zero value.
func Update[T any](ctx context.Context, s *LocalStore, key string, fn func(*T) error) (T, error) {
	var v T
	if _, err := s.Get(ctx, key, &v); err != nil {
		return v, err
	}
	if err := fn(&v); err != nil {
		return v, err
	}
	return v, s.Put(ctx, key, v)
}

// Append adds item to the list stored at key and returns the new list.
func Append[T any](ctx context.Context, s *LocalStore, key string, item T) ([]T, error) {
	return Update(ctx, s, key, func(items *[]T) error {
		*items = append(*items, item)
		return nil
	})
}
