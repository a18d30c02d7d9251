// Package history is the local log of visited pages: one row per
// fragment-less URL, queryable by id and by free text.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/ghframe/dbopen"
	"github.com/hazyhaar/ghframe/idgen"
	"github.com/hazyhaar/ghframe/page"
)

// ErrStorage wraps every failure reported by the database.
var ErrStorage = errors.New("history: storage error")

// Schema for the history table. The rowid gives insertion order. name_fold
// holds the lower-cased name that Find matches, since LIKE folds ASCII only.
const Schema = `
CREATE TABLE IF NOT EXISTS history (
	id        TEXT PRIMARY KEY,
	url       TEXT NOT NULL UNIQUE,
	name      TEXT NOT NULL DEFAULT '',
	number    TEXT NOT NULL DEFAULT '',
	repo_path TEXT NOT NULL DEFAULT '',
	kind      TEXT NOT NULL DEFAULT 'page',
	timestamp INTEGER NOT NULL,
	visited   INTEGER NOT NULL,
	name_fold TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_history_visited ON history(visited DESC);
`

// Record is one visited page.
type Record struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Name      string    `json:"name"`
	Number    string    `json:"number,omitempty"`
	RepoPath  string    `json:"repoPath,omitempty"`
	Kind      page.Kind `json:"kind"`
	Timestamp int64     `json:"timestamp"`
	Visited   int64     `json:"visited"`
}

// FromDescriptor builds a record for a confirmed page.
func FromDescriptor(d page.Descriptor, at time.Time) Record {
	return Record{
		URL:       d.URL,
		Name:      d.Name,
		Number:    d.ID,
		RepoPath:  d.RepoPath,
		Kind:      d.Kind,
		Timestamp: at.UnixMilli(),
	}
}

// Store is the history database handle.
type Store struct {
	DB    *sql.DB
	NewID idgen.Generator
	Now   func() time.Time
}

// Open opens (or creates) the history database at path.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrStorage, err)
	}
	return New(db), nil
}

// New wraps an already-opened database. The schema must be applied.
func New(db *sql.DB) *Store {
	return &Store{DB: db, NewID: idgen.Default, Now: time.Now}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Add strips the fragment from r.URL and upserts by URL in one statement:
// a new URL inserts a row, a known URL has its fields replaced in place and
// keeps its id. The stored record is returned.
func (s *Store) Add(ctx context.Context, r Record) (Record, error) {
	r.URL = page.StripFragment(r.URL)
	if r.URL == "" {
		return Record{}, fmt.Errorf("history: add: empty url")
	}
	now := s.Now().UnixMilli()
	if r.Timestamp == 0 {
		r.Timestamp = now
	}
	if r.Visited == 0 {
		r.Visited = now
	}
	if r.Kind == "" {
		r.Kind = page.KindPage
	}

	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO history (id, url, name, number, repo_path, kind, timestamp, visited, name_fold)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			name      = excluded.name,
			name_fold = excluded.name_fold,
			number    = excluded.number,
			repo_path = excluded.repo_path,
			kind      = excluded.kind,
			timestamp = excluded.timestamp,
			visited   = excluded.visited
		RETURNING id`,
		s.NewID(), r.URL, r.Name, r.Number, r.RepoPath, string(r.Kind), r.Timestamp, r.Visited,
		strings.ToLower(r.Name),
	).Scan(&r.ID)
	if err != nil {
		return Record{}, storageErr("add", err)
	}
	return r, nil
}

const selectCols = `SELECT id, url, name, number, repo_path, kind, timestamp, visited FROM history`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	r := &Record{}
	var kind string
	if err := sc.Scan(&r.ID, &r.URL, &r.Name, &r.Number, &r.RepoPath, &kind, &r.Timestamp, &r.Visited); err != nil {
		return nil, err
	}
	r.Kind = page.Kind(kind)
	return r, nil
}

func (s *Store) query(ctx context.Context, op, query string, args ...any) ([]*Record, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return records, nil
}

// Get returns every record, most recently inserted first.
func (s *Store) Get(ctx context.Context) ([]*Record, error) {
	return s.query(ctx, "get", selectCols+` ORDER BY rowid DESC`)
}

// GetByID returns the record with the given id, or nil when there is none.
func (s *Store) GetByID(ctx context.Context, id string) (*Record, error) {
	r, err := scanRecord(s.DB.QueryRowContext(ctx, selectCols+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get by id", err)
	}
	return r, nil
}

// Find splits text on whitespace and returns the records where every token
// occurs, in any order and case-insensitively, within the id, the number
// or the name. Results are ordered by visited, newest first. An empty
// query matches everything.
func (s *Store) Find(ctx context.Context, text string) ([]*Record, error) {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return s.query(ctx, "find", selectCols+` ORDER BY visited DESC, rowid DESC`)
	}

	var groups []string
	var args []any
	for _, col := range []string{"id", "number", "name_fold"} {
		conds := make([]string, len(tokens))
		for i, tok := range tokens {
			conds[i] = col + ` LIKE ? ESCAPE '\'`
			args = append(args, "%"+escapeLike(tok)+"%")
		}
		groups = append(groups, "("+strings.Join(conds, " AND ")+")")
	}

	query := selectCols + ` WHERE ` + strings.Join(groups, " OR ") + ` ORDER BY visited DESC, rowid DESC`
	return s.query(ctx, "find", query, args...)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
