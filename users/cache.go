package users

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/ghframe/dbopen"
)

// Schema for the display-name cache. An empty name records a lookup that
// found nothing, so it is not retried before the entry expires.
const Schema = `
CREATE TABLE IF NOT EXISTS user_names (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	fetched_at INTEGER NOT NULL
);
`

type cache struct {
	db  *sql.DB
	ttl time.Duration
}

// lookup returns the fresh entries among ids.
func (c *cache) lookup(ctx context.Context, ids []string, now time.Time) (map[string]string, error) {
	if c.db == nil || len(ids) == 0 {
		return map[string]string{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, now.Add(-c.ttl).UnixMilli())

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name FROM user_names WHERE id IN (`+placeholders+`) AND fetched_at > ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("users: cache lookup: %w", err)
	}
	defer rows.Close()

	found := make(map[string]string, len(ids))
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("users: cache scan: %w", err)
		}
		found[id] = name
	}
	return found, rows.Err()
}

func (c *cache) store(ctx context.Context, id, name string, now time.Time) error {
	if c.db == nil {
		return nil
	}
	_, err := dbopen.Exec(ctx, c.db, `
		INSERT INTO user_names (id, name, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, fetched_at = excluded.fetched_at`,
		id, name, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("users: cache store: %w", err)
	}
	return nil
}
