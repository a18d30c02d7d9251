package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/ghframe/dbopen"
)

// Keys read or written by the frame controller.
const (
	KeyStateURL   = "state.url"
	KeyStateIssue = "state.issue"
	KeyBaseURL    = "baseUrl"
)

// ErrClosed is returned by Store methods after Close.
var ErrClosed = errors.New("config: store closed")

// Schema for the config table. Values are JSON documents.
const Schema = `
CREATE TABLE IF NOT EXISTS config (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Store is the durable key-value settings store.
type Store struct {
	DB     *sql.DB
	closed atomic.Bool
}

// NewStore wraps an already-opened database. The schema must be applied.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Get decodes the value under key into dst. It reports false when the key
// is absent.
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	var raw string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("config: get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("config: decode %s: %w", key, err)
	}
	return true, nil
}

// GetString returns the string under key, or fallback when absent or not a
// string.
func (s *Store) GetString(ctx context.Context, key, fallback string) (string, error) {
	var v string
	ok, err := s.Get(ctx, key, &v)
	if err != nil {
		var syn *json.UnmarshalTypeError
		if errors.As(err, &syn) {
			return fallback, nil
		}
		return fallback, err
	}
	if !ok {
		return fallback, nil
	}
	return v, nil
}

// Set stores v under key. A nil v deletes the key.
func (s *Store) Set(ctx context.Context, key string, v any) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if v == nil {
		_, err := dbopen.Exec(ctx, s.DB, `DELETE FROM config WHERE key = ?`, key)
		if err != nil {
			return fmt.Errorf("config: delete %s: %w", key, err)
		}
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("config: encode %s: %w", key, err)
	}
	_, err = dbopen.Exec(ctx, s.DB, `
		INSERT INTO config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("config: set %s: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys in lexical order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT key FROM config ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("config: keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("config: keys: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Clear removes every key.
func (s *Store) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM config`)
		return err
	})
	if err != nil {
		return fmt.Errorf("config: clear: %w", err)
	}
	return nil
}

// BaseURL returns the configured site root, always ending in "/".
func (s *Store) BaseURL(ctx context.Context, fallback string) (string, error) {
	if fallback == "" {
		fallback = DefaultBaseURL
	}
	u, err := s.GetString(ctx, KeyBaseURL, fallback)
	if u == "" {
		u = fallback
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u, err
}

// LoginURL is BaseURL + "login".
func (s *Store) LoginURL(ctx context.Context, fallback string) (string, error) {
	u, err := s.BaseURL(ctx, fallback)
	return u + "login", err
}

// Close detaches the store. The database handle stays open; it belongs to
// the caller.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}
