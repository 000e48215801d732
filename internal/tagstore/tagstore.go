// Package tagstore persists user tags across window lifetimes, keyed by
// process name and title.
package tagstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Entry is one stored tag set.
type Entry struct {
	ID          string    `json:"id"`
	ProcessName string    `json:"process_name"`
	Title       string    `json:"title"`
	Tags        string    `json:"tags"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store is a SQLite-backed tag store.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS window_tags (
		id           TEXT PRIMARY KEY,
		process_name TEXT NOT NULL,
		title        TEXT NOT NULL,
		tags         TEXT NOT NULL,
		updated_at   TEXT NOT NULL,
		UNIQUE (process_name, title)
	);
	CREATE INDEX IF NOT EXISTS idx_window_tags_updated ON window_tags(updated_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func normalizeProcess(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Put stores tags for a process/title pair. Blank tags delete the entry.
func (s *Store) Put(ctx context.Context, processName, title, tags string) error {
	if strings.TrimSpace(tags) == "" {
		_, err := s.Delete(ctx, processName, title)
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO window_tags (id, process_name, title, tags, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (process_name, title) DO UPDATE SET
			tags = excluded.tags,
			updated_at = excluded.updated_at`,
		s.newID(), normalizeProcess(processName), title, tags, now)
	if err != nil {
		return fmt.Errorf("put tags: %w", err)
	}
	return nil
}

// Get looks up the tags stored for a process/title pair.
func (s *Store) Get(ctx context.Context, processName, title string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, process_name, title, tags, updated_at
		FROM window_tags WHERE process_name = ? AND title = ?`,
		normalizeProcess(processName), title)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get tags: %w", err)
	}
	return e, true, nil
}

// All returns every entry, most recently updated first.
func (s *Store) All(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, process_name, title, tags, updated_at
		FROM window_tags ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tags: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes the entry for a process/title pair and reports whether one
// existed.
func (s *Store) Delete(ctx context.Context, processName, title string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM window_tags WHERE process_name = ? AND title = ?`,
		normalizeProcess(processName), title)
	if err != nil {
		return false, fmt.Errorf("delete tags: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var e Entry
	var updated string
	if err := sc.Scan(&e.ID, &e.ProcessName, &e.Title, &e.Tags, &updated); err != nil {
		return Entry{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return Entry{}, fmt.Errorf("parse updated_at %q: %w", updated, err)
	}
	e.UpdatedAt = t
	return e, nil
}
