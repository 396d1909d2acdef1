package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Metrics event type constants, mirroring the two call sites in
// internal/engine that record telemetry after a request completes.
const (
	EventAnalysis = "analysis"
	EventAddNote  = "add_note"
)

// MetricsEvent is one row of the telemetry log.
type MetricsEvent struct {
	EventType        string
	Path             string
	CoupledCount     int
	CriticalCount    int
	HighCount        int
	MediumCount      int
	LowCount         int
	TestFilesFound   int
	TestIntentsTotal int
	CommitCount      int
	AnalysisTimeMs   int64
	NoteID           *int64
	RepoRoot         string
}

// InsertMetricsEvent appends one telemetry row.
func (s *Store) InsertMetricsEvent(e MetricsEvent) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(`
		INSERT INTO metrics_events (
			event_type, ts, path, coupled_count, critical_count, high_count,
			medium_count, low_count, test_files_found, test_intents_total,
			commit_count, analysis_time_ms, note_id, repo_root
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EventType, now, e.Path, e.CoupledCount, e.CriticalCount, e.HighCount,
		e.MediumCount, e.LowCount, e.TestFilesFound, e.TestIntentsTotal,
		e.CommitCount, e.AnalysisTimeMs, e.NoteID, e.RepoRoot,
	)
	if err != nil {
		return fmt.Errorf("insert metrics event: %w", err)
	}
	return nil
}

// MetricsSummary is the aggregated telemetry for one repository.
type MetricsSummary struct {
	TotalAnalyses        int   `json:"total_analyses"`
	TotalCoupledFiles    int   `json:"total_coupled_files"`
	CriticalRiskCount    int   `json:"critical_risk_count"`
	HighRiskCount        int   `json:"high_risk_count"`
	MediumRiskCount      int   `json:"medium_risk_count"`
	LowRiskCount         int   `json:"low_risk_count"`
	TestFilesFound       int   `json:"test_files_found"`
	TestIntentsExtracted int   `json:"test_intents_extracted"`
	NotesCreated         int   `json:"notes_created"`
	AvgAnalysisTimeMs    int64 `json:"avg_analysis_time_ms"`
}

// MetricsSummary aggregates the telemetry log for repoRoot. Ported from
// the prior implementation's SQL FILTER-clause aggregation, rewritten
// as CASE WHEN since modernc.org/sqlite has no Postgres-style FILTER.
func (s *Store) MetricsSummary(repoRoot string) (MetricsSummary, error) {
	var sum MetricsSummary
	var avg sql.NullFloat64
	err := s.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN event_type = ? THEN 1 END),
			COALESCE(SUM(CASE WHEN event_type = ? THEN coupled_count ELSE 0 END), 0),
			COALESCE(SUM(critical_count), 0),
			COALESCE(SUM(high_count), 0),
			COALESCE(SUM(medium_count), 0),
			COALESCE(SUM(low_count), 0),
			COALESCE(SUM(test_files_found), 0),
			COALESCE(SUM(test_intents_total), 0),
			COUNT(CASE WHEN event_type = ? THEN 1 END),
			AVG(CASE WHEN event_type = ? THEN analysis_time_ms END)
		FROM metrics_events
		WHERE repo_root = ?`,
		EventAnalysis, EventAnalysis, EventAddNote, EventAnalysis, repoRoot,
	).Scan(
		&sum.TotalAnalyses, &sum.TotalCoupledFiles, &sum.CriticalRiskCount,
		&sum.HighRiskCount, &sum.MediumRiskCount, &sum.LowRiskCount,
		&sum.TestFilesFound, &sum.TestIntentsExtracted, &sum.NotesCreated, &avg,
	)
	if err != nil {
		return MetricsSummary{}, fmt.Errorf("metrics summary for %s: %w", repoRoot, err)
	}
	if avg.Valid {
		sum.AvgAnalysisTimeMs = int64(avg.Float64 + 0.5)
	}
	return sum, nil
}
