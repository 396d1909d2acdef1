package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/anthropic/engram/internal/config"
)

func testAuthor() *object.Signature {
	return &object.Signature{Name: "Test Author", Email: "test@example.com", When: time.Now()}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	full := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func buildCoupledRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	writeFile(t, dir, "src/Auth.ts", "auth v1")
	writeFile(t, dir, "src/Session.db", "session v1")
	writeFile(t, dir, "src/Utils.ts", "utils v1")
	_, err = wt.Add("src/Auth.ts")
	require.NoError(t, err)
	_, err = wt.Add("src/Session.db")
	require.NoError(t, err)
	_, err = wt.Add("src/Utils.ts")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &gogit.CommitOptions{Author: testAuthor()})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		writeFile(t, dir, "src/Auth.ts", fmt.Sprintf("auth change %d", i))
		writeFile(t, dir, "src/Session.db", fmt.Sprintf("session change %d", i))
		_, err = wt.Add("src/Auth.ts")
		require.NoError(t, err)
		_, err = wt.Add("src/Session.db")
		require.NoError(t, err)
		_, err = wt.Commit("co-change", &gogit.CommitOptions{Author: testAuthor()})
		require.NoError(t, err)
	}
	return dir
}

func TestAnalyzeCoupledPair(t *testing.T) {
	dir := buildCoupledRepo(t)
	coord, err := Open(dir, config.Default(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = coord.Close() })

	result, err := coord.Analyze(context.Background(), "src/Auth.ts")
	require.NoError(t, err)
	require.False(t, result.PartialIndex)
	require.Equal(t, 51, result.CommitCount)

	var session, utils *CoupledFile
	for i := range result.CoupledFiles {
		switch result.CoupledFiles[i].Path {
		case "src/Session.db":
			session = &result.CoupledFiles[i]
		case "src/Utils.ts":
			utils = &result.CoupledFiles[i]
		}
	}
	require.NotNil(t, session)
	require.Greater(t, session.CouplingScore, 0.95)
	if utils != nil {
		require.Less(t, utils.CouplingScore, 0.1)
	}
}

func TestAnalyzeNonexistentPathYieldsEmptyList(t *testing.T) {
	dir := buildCoupledRepo(t)
	coord, err := Open(dir, config.Default(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = coord.Close() })

	result, err := coord.Analyze(context.Background(), "src/DoesNotExist.ts")
	require.NoError(t, err)
	require.Empty(t, result.CoupledFiles)
}

func TestAnalyzeRejectsEmptyPath(t *testing.T) {
	dir := buildCoupledRepo(t)
	coord, err := Open(dir, config.Default(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = coord.Close() })

	_, err = coord.Analyze(context.Background(), "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestNotesAndMetricsRoundTrip(t *testing.T) {
	dir := buildCoupledRepo(t)
	coord, err := Open(dir, config.Default(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = coord.Close() })

	_, err = coord.AddNote("src/Auth.ts", "login", "Handles OAuth flow")
	require.NoError(t, err)

	search, err := coord.SearchNotes("oauth")
	require.NoError(t, err)
	require.Len(t, search.Memories, 1)

	list, err := coord.ListNotes("")
	require.NoError(t, err)
	require.Len(t, list.Memories, 1)

	_, err = coord.Analyze(context.Background(), "src/Auth.ts")
	require.NoError(t, err)

	summary, err := coord.MetricsSummary()
	require.NoError(t, err)
	require.Equal(t, 1, summary.TotalAnalyses)
	require.Equal(t, 1, summary.NotesCreated)
}
