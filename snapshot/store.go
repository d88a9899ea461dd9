// CLAUDE:SUMMARY SQLite store of serialised pages (declarative shadow roots inlined) for offline selector resolution.
// Package snapshot persists serialised pages so selectors can be resolved
// against them later, offline, with the in-memory dom tree.
package snapshot

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/shadowq/dbopen"
	"github.com/hazyhaar/shadowq/dom"
	"github.com/hazyhaar/shadowq/idgen"
)

// IDPrefix starts every snapshot ID.
const IDPrefix = "snap_"

// Source tells how a snapshot was acquired.
const (
	SourceLive   = "live"
	SourceFetch  = "fetch"
	SourceFile   = "file"
	SourceInline = "inline"
)

// SourceSnapshot marks a page read back from the store. Saved rows never
// carry it.
const SourceSnapshot = "snapshot"

// Snapshot is one serialised page.
type Snapshot struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Source      string `json:"source"`
	HTML        string `json:"html,omitempty"`
	HTMLHash    string `json:"html_hash"`
	ShadowRoots int    `json:"shadow_roots"`
	CapturedAt  int64  `json:"captured_at"` // epoch milliseconds
}

// HashHTML returns the SHA-256 hex digest of html.
func HashHTML(html string) string {
	h := sha256.Sum256([]byte(html))
	return hex.EncodeToString(h[:])
}

// Store is the snapshot database handle.
type Store struct {
	DB  *sql.DB
	ids idgen.Generator
}

// Open opens (or creates) the store at path.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	all := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)
	db, err := dbopen.Open(path, all...)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return New(db), nil
}

// New wraps an open database whose schema is already applied.
func New(db *sql.DB) *Store {
	return &Store{DB: db, ids: idgen.Prefixed(IDPrefix, idgen.Default)}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Save stores snap, filling ID, hash, title, shadow root count and capture
// time. A page already stored with the same URL and content is not stored
// twice: Save returns false and fills snap from the existing row.
func (s *Store) Save(ctx context.Context, snap *Snapshot) (bool, error) {
	if snap.HTML == "" {
		return false, fmt.Errorf("snapshot: save: empty html")
	}
	snap.HTMLHash = HashHTML(snap.HTML)
	switch snap.Source {
	case "":
		snap.Source = SourceFile
	case SourceLive, SourceFetch, SourceFile, SourceInline:
	default:
		return false, fmt.Errorf("snapshot: save: unknown source %q", snap.Source)
	}
	if doc, err := dom.ParseString(snap.HTML); err == nil {
		if snap.Title == "" {
			snap.Title = doc.Title()
		}
		snap.ShadowRoots = len(doc.ShadowRoots())
	}

	created := false
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		var id string
		var at int64
		err := tx.QueryRowContext(ctx, `
			SELECT id, captured_at FROM snapshots WHERE url = ? AND html_hash = ?`,
			snap.URL, snap.HTMLHash).Scan(&id, &at)
		if err == nil {
			snap.ID, snap.CapturedAt = id, at
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if snap.ID == "" {
			snap.ID = s.ids()
		}
		if snap.CapturedAt == 0 {
			snap.CapturedAt = time.Now().UnixMilli()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO snapshots (id, url, title, source, html, html_hash, shadow_roots, captured_at)
			VALUES (?,?,?,?,?,?,?,?)`,
			snap.ID, snap.URL, snap.Title, snap.Source, snap.HTML, snap.HTMLHash,
			snap.ShadowRoots, snap.CapturedAt)
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("snapshot: save: %w", err)
	}
	return created, nil
}

// Get returns the snapshot with its HTML, or nil when id is unknown.
func (s *Store) Get(ctx context.Context, id string) (*Snapshot, error) {
	snap := &Snapshot{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, url, title, source, html, html_hash, shadow_roots, captured_at
		FROM snapshots WHERE id = ?`, id).Scan(
		&snap.ID, &snap.URL, &snap.Title, &snap.Source, &snap.HTML, &snap.HTMLHash,
		&snap.ShadowRoots, &snap.CapturedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: get: %w", err)
	}
	return snap, nil
}

// Latest returns the most recent snapshot of url, or nil.
func (s *Store) Latest(ctx context.Context, url string) (*Snapshot, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `
		SELECT id FROM snapshots WHERE url = ?
		ORDER BY captured_at DESC, id DESC LIMIT 1`, url).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: latest: %w", err)
	}
	return s.Get(ctx, id)
}

// ListOptions filter List.
type ListOptions struct {
	URL   string // exact match; empty lists every URL
	Limit int    // default 50
}

// List returns snapshots newest first, without their HTML.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Snapshot, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	query := `
		SELECT id, url, title, source, html_hash, shadow_roots, captured_at
		FROM snapshots`
	args := []any{}
	if opts.URL != "" {
		query += ` WHERE url = ?`
		args = append(args, opts.URL)
	}
	query += ` ORDER BY captured_at DESC, id DESC LIMIT ?`
	args = append(args, opts.Limit)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list: %w", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		if err := rows.Scan(&snap.ID, &snap.URL, &snap.Title, &snap.Source,
			&snap.HTMLHash, &snap.ShadowRoots, &snap.CapturedAt); err != nil {
			return nil, fmt.Errorf("snapshot: list: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Delete removes a snapshot. It reports whether one existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("snapshot: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("snapshot: delete: %w", err)
	}
	return n > 0, nil
}

// Document parses a stored snapshot into an in-memory tree.
func (s *Store) Document(ctx context.Context, id string) (*dom.Document, error) {
	snap, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("snapshot: %s: %w", id, ErrNotFound)
	}
	doc, err := dom.ParseString(snap.HTML)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %s: %w", id, err)
	}
	return doc, nil
}

// ErrNotFound is returned by Document for unknown IDs.
var ErrNotFound = errors.New("snapshot not found")
