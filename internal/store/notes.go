package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Note is a user-authored annotation keyed by file path.
type Note struct {
	ID        int64
	Path      string
	Symbol    string
	Content   string
	CreatedAt string
}

// AddNote inserts a note and returns its generated id. content must
// be non-empty; validation of that constraint is the knowledge store's
// job (internal/knowledge), not the persistence layer's.
func (s *Store) AddNote(path, symbol, content string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.Exec(
		`INSERT INTO notes (path, symbol, content, created_at) VALUES (?, ?, ?, ?)`,
		path, symbol, content, now,
	)
	if err != nil {
		return 0, fmt.Errorf("add note for %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read note id: %w", err)
	}
	return id, nil
}

// NotesForPath returns all notes for path, newest first.
func (s *Store) NotesForPath(path string) ([]Note, error) {
	rows, err := s.db.Query(
		`SELECT id, path, symbol, content, created_at FROM notes WHERE path = ? ORDER BY created_at DESC`,
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("notes for %s: %w", path, err)
	}
	defer rows.Close()
	return scanNotes(rows)
}

// SearchNotes returns notes whose content or path contains query,
// case-insensitively, newest first.
func (s *Store) SearchNotes(query string) ([]Note, error) {
	like := "%" + query + "%"
	rows, err := s.db.Query(
		`SELECT id, path, symbol, content, created_at FROM notes
		 WHERE content LIKE ? COLLATE NOCASE OR path LIKE ? COLLATE NOCASE
		 ORDER BY created_at DESC`,
		like, like,
	)
	if err != nil {
		return nil, fmt.Errorf("search notes %q: %w", query, err)
	}
	defer rows.Close()
	return scanNotes(rows)
}

// ListNotes returns all notes newest-first, optionally filtered by path.
func (s *Store) ListNotes(path string) ([]Note, error) {
	if path != "" {
		return s.NotesForPath(path)
	}
	rows, err := s.db.Query(`SELECT id, path, symbol, content, created_at FROM notes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()
	return scanNotes(rows)
}

func scanNotes(rows *sql.Rows) ([]Note, error) {
	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Path, &n.Symbol, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
