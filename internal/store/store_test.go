package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "engram.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "engram.db")
	s1, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	wm, err := s2.GetWatermark("repo")
	require.NoError(t, err)
	require.Nil(t, wm)
}

func TestChangeEventInsertIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	tx, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.InsertChangeEvent("c1", "src/Auth.ts", 100))
	require.NoError(t, tx.InsertChangeEvent("c1", "src/Auth.ts", 100))
	require.NoError(t, tx.SetWatermark("repo", "c1", 100))
	require.NoError(t, tx.Commit())

	count, err := s.CommitCount("src/Auth.ts")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRollbackDiscardsBatch(t *testing.T) {
	s := openTestStore(t)

	tx, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.InsertChangeEvent("c1", "src/Auth.ts", 100))
	require.NoError(t, tx.Rollback())

	count, err := s.CommitCount("src/Auth.ts")
	require.NoError(t, err)
	require.Equal(t, 0, count)

	wm, err := s.GetWatermark("repo")
	require.NoError(t, err)
	require.Nil(t, wm)
}

func TestCoChangeCounts(t *testing.T) {
	s := openTestStore(t)

	tx, err := s.Begin()
	require.NoError(t, err)
	commits := []struct {
		id    string
		paths []string
		ts    int64
	}{
		{"c1", []string{"src/Auth.ts", "src/Session.ts"}, 100},
		{"c2", []string{"src/Auth.ts", "src/Session.ts"}, 200},
		{"c3", []string{"src/Auth.ts", "src/Utils.ts"}, 300},
	}
	for _, c := range commits {
		for _, p := range c.paths {
			require.NoError(t, tx.InsertChangeEvent(c.id, p, c.ts))
		}
	}
	require.NoError(t, tx.SetWatermark("repo", "c3", 300))
	require.NoError(t, tx.Commit())

	stats, err := s.CoChangeCounts("src/Auth.ts")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	require.Equal(t, "src/Session.ts", stats[0].Path)
	require.Equal(t, 2, stats[0].CoChangeCount)
	require.Equal(t, int64(200), stats[0].LastCoChangedAt)
	require.Equal(t, "src/Utils.ts", stats[1].Path)
	require.Equal(t, 1, stats[1].CoChangeCount)

	total, err := s.TotalTargetCommitCount("src/Auth.ts")
	require.NoError(t, err)
	require.Equal(t, 3, total)

	newest, err := s.RepoNewestCommitTS()
	require.NoError(t, err)
	require.NotNil(t, newest)
	require.Equal(t, int64(300), *newest)
}

func TestNotesRoundTrip(t *testing.T) {
	s := openTestStore(t)

	id, err := s.AddNote("src/Auth.ts", "login", "Handles OAuth flow")
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	notes, err := s.NotesForPath("src/Auth.ts")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "Handles OAuth flow", notes[0].Content)

	found, err := s.SearchNotes("oauth")
	require.NoError(t, err)
	require.Len(t, found, 1)

	all, err := s.ListNotes("")
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestMetricsSummary(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.InsertMetricsEvent(MetricsEvent{
		EventType:        EventAnalysis,
		Path:             "src/A.ts",
		CoupledCount:     2,
		CriticalCount:    1,
		HighCount:        1,
		TestFilesFound:   1,
		TestIntentsTotal: 2,
		CommitCount:      15,
		AnalysisTimeMs:   150,
		RepoRoot:         "/repo",
	}))
	require.NoError(t, s.InsertMetricsEvent(MetricsEvent{
		EventType:      EventAnalysis,
		Path:           "src/B.ts",
		CommitCount:    10,
		AnalysisTimeMs: 100,
		RepoRoot:       "/repo",
	}))

	summary, err := s.MetricsSummary("/repo")
	require.NoError(t, err)
	require.Equal(t, 2, summary.TotalAnalyses)
	require.Equal(t, 1, summary.CriticalRiskCount)
	require.Equal(t, 1, summary.HighRiskCount)
	require.Equal(t, int64(125), summary.AvgAnalysisTimeMs)
}
