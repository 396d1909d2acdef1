// Package knowledge is a thin layer over the persisted notes table:
// add, search, list, and attach notes to a set of coupled files.
package knowledge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anthropic/engram/internal/store"
)

// ErrEmptyContent is returned by Add when content is empty after
// trimming; spec.md §4.4 requires non-empty content.
var ErrEmptyContent = errors.New("knowledge: note content must not be empty")

// NoteStore is the narrow slice of internal/store's persistence API
// this package needs, declared here at the point of use rather than
// accepting the concrete *store.Store (the internal/correlation
// narrow-interface idiom, carried forward from the donor repo).
type NoteStore interface {
	AddNote(path, symbol, content string) (int64, error)
	SearchNotes(query string) ([]store.Note, error)
	ListNotes(path string) ([]store.Note, error)
	NotesForPath(path string) ([]store.Note, error)
}

// Memory is the external-interface shape of a note (spec.md §6's
// {id, file_path, symbol?, content, created_at}).
type Memory struct {
	ID         int64  `json:"id"`
	FilePath   string `json:"file_path"`
	SymbolName string `json:"symbol,omitempty"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
}

func fromStoreNote(n store.Note) Memory {
	return Memory{
		ID:         n.ID,
		FilePath:   n.Path,
		SymbolName: n.Symbol,
		Content:    n.Content,
		CreatedAt:  n.CreatedAt,
	}
}

// AddResponse is the result of Add.
type AddResponse struct {
	ID       int64  `json:"id"`
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

// Add validates content is non-empty, inserts a note, and returns the
// generated id alongside the echoed path and content.
func Add(s NoteStore, path, symbol, content string) (AddResponse, error) {
	if strings.TrimSpace(content) == "" {
		return AddResponse{}, ErrEmptyContent
	}
	id, err := s.AddNote(path, symbol, content)
	if err != nil {
		return AddResponse{}, fmt.Errorf("add note: %w", err)
	}
	return AddResponse{ID: id, FilePath: path, Content: content}, nil
}

// SearchResponse is the result of Search.
type SearchResponse struct {
	Query    string   `json:"query"`
	Memories []Memory `json:"memories"`
}

// Search performs a case-insensitive substring match over content and
// path, newest first.
func Search(s NoteStore, query string) (SearchResponse, error) {
	notes, err := s.SearchNotes(query)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search notes: %w", err)
	}
	return SearchResponse{Query: query, Memories: toMemories(notes)}, nil
}

// ListResponse is the result of List.
type ListResponse struct {
	FilePath *string  `json:"file_path,omitempty"`
	Memories []Memory `json:"memories"`
}

// List returns notes for path, or every note newest-first when path
// is empty.
func List(s NoteStore, path string) (ListResponse, error) {
	notes, err := s.ListNotes(path)
	if err != nil {
		return ListResponse{}, fmt.Errorf("list notes: %w", err)
	}
	resp := ListResponse{Memories: toMemories(notes)}
	if path != "" {
		resp.FilePath = &path
	}
	return resp, nil
}

// Attach returns the notes filed under path, the per-file half of
// spec.md §4.4's attach operation. The coordinator calls this once per
// coupled file and assigns the result onto that file's Memories field;
// Go's lack of in-place slice-element mutation through an interface
// makes a single batch-mutate entry point (the original's
// enrich_with_memories) awkward, so the per-path form is the one
// exported here.
func Attach(s NoteStore, path string) ([]Memory, error) {
	notes, err := s.NotesForPath(path)
	if err != nil {
		return nil, fmt.Errorf("attach notes for %s: %w", path, err)
	}
	return toMemories(notes), nil
}

func toMemories(notes []store.Note) []Memory {
	if len(notes) == 0 {
		return nil
	}
	out := make([]Memory, len(notes))
	for i, n := range notes {
		out[i] = fromStoreNote(n)
	}
	return out
}
