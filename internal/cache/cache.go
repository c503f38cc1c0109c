// Package cache stores extracted outlines in SQLite keyed by content hash and
// tier. Extraction is deterministic for a fixed tier, so a hit is exact.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/docoutline/internal/doctree"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS outlines (
	hash       TEXT    NOT NULL,
	tier       INTEGER NOT NULL,
	name       TEXT    NOT NULL,
	title      TEXT    NOT NULL,
	outline    TEXT    NOT NULL,
	tree       TEXT    NOT NULL,
	headings   INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (hash, tier)
);
CREATE INDEX IF NOT EXISTS outlines_created ON outlines (created_at);
`

// Entry is one cached extraction.
type Entry struct {
	Hash      string                 `json:"hash"`
	Tier      int                    `json:"tier"`
	Name      string                 `json:"name"`
	Outline   doctree.Outline        `json:"outline"`
	Tree      []*doctree.OutlineNode `json:"-"`
	Headings  int                    `json:"headings"`
	CreatedAt time.Time              `json:"created_at"`
}

// Store is a SQLite-backed outline cache. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the cache database. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the cached entry for (hash, tier). The second result is false on a miss.
func (s *Store) Get(ctx context.Context, hash string, tier int) (*Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, title, outline, tree, headings, created_at FROM outlines WHERE hash = ? AND tier = ?`,
		hash, tier)

	e := &Entry{Hash: hash, Tier: tier}
	var title, outlineJSON, treeJSON string
	var created int64
	err := row.Scan(&e.Name, &title, &outlineJSON, &treeJSON, &e.Headings, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cache: %w", err)
	}
	if err := json.Unmarshal([]byte(outlineJSON), &e.Outline); err != nil {
		return nil, false, fmt.Errorf("decode cached outline: %w", err)
	}
	if err := json.Unmarshal([]byte(treeJSON), &e.Tree); err != nil {
		return nil, false, fmt.Errorf("decode cached tree: %w", err)
	}
	e.Outline.Title = title
	if e.Outline.Entries == nil {
		e.Outline.Entries = []doctree.Entry{}
	}
	e.CreatedAt = time.Unix(created, 0).UTC()
	return e, true, nil
}

// Put stores or replaces an entry.
func (s *Store) Put(ctx context.Context, e Entry) error {
	outlineJSON, err := json.Marshal(e.Outline)
	if err != nil {
		return fmt.Errorf("encode outline: %w", err)
	}
	treeJSON, err := json.Marshal(e.Tree)
	if err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO outlines (hash, tier, name, title, outline, tree, headings, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Hash, e.Tier, e.Name, e.Outline.Title, string(outlineJSON), string(treeJSON), len(e.Outline.Entries), created.Unix())
	if err != nil {
		return fmt.Errorf("store outline: %w", err)
	}
	return nil
}

// List returns the most recent entries without their trees.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT hash, tier, name, title, outline, headings, created_at
		 FROM outlines ORDER BY created_at DESC, hash LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list cache: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var title, outlineJSON string
		var created int64
		if err := rows.Scan(&e.Hash, &e.Tier, &e.Name, &title, &outlineJSON, &e.Headings, &created); err != nil {
			return nil, fmt.Errorf("scan cache row: %w", err)
		}
		if err := json.Unmarshal([]byte(outlineJSON), &e.Outline); err != nil {
			return nil, fmt.Errorf("decode cached outline: %w", err)
		}
		e.Outline.Title = title
		e.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes every tier cached for hash and returns the number of rows removed.
func (s *Store) Delete(ctx context.Context, hash string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM outlines WHERE hash = ?`, hash)
	if err != nil {
		return 0, fmt.Errorf("delete cached outline: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
