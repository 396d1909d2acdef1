package engine

import (
	"github.com/anthropic/engram/internal/knowledge"
	"github.com/anthropic/engram/internal/store"
)

// AddNote validates and inserts a note, then records a telemetry
// event for it (spec.md §6 operation 2).
func (c *Coordinator) AddNote(path, symbol, content string) (knowledge.AddResponse, error) {
	resp, err := knowledge.Add(c.store, normalizePath(path), symbol, content)
	if err != nil {
		return knowledge.AddResponse{}, err
	}

	noteID := resp.ID
	if err := c.store.InsertMetricsEvent(store.MetricsEvent{
		EventType: store.EventAddNote,
		Path:      resp.FilePath,
		NoteID:    &noteID,
		RepoRoot:  c.installID,
	}); err != nil {
		c.logger.Warn("failed to record add_note metrics event", "error", err)
	}
	return resp, nil
}

// SearchNotes performs a case-insensitive substring search over notes
// (spec.md §6 operation 3).
func (c *Coordinator) SearchNotes(query string) (knowledge.SearchResponse, error) {
	return knowledge.Search(c.store, query)
}

// ListNotes lists notes, optionally scoped to a path (spec.md §6
// operation 4).
func (c *Coordinator) ListNotes(path string) (knowledge.ListResponse, error) {
	if path != "" {
		path = normalizePath(path)
	}
	return knowledge.List(c.store, path)
}

// MetricsSummary reports the aggregated telemetry for this repository
// (SPEC_FULL.md section E's additive operation 5).
func (c *Coordinator) MetricsSummary() (store.MetricsSummary, error) {
	return c.store.MetricsSummary(c.installID)
}
