package gitint

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

	"github.com/anthropic/engram/internal/store"
)

func TestShouldIndex(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"src/Auth.ts", true},
		{"package-lock.json", false},
		{"nested/dir/yarn.lock", false}, // basename match applies regardless of directory depth
		{"yarn.lock", false},
		{"go.sum", false},
		{"assets/logo.PNG", false},
		{"assets/logo.png", false},
		{"dist/bundle.min.js", false},
		{"dist/bundle.js", true},
		{"vendor/lib.a", false},
		{".DS_Store", false},
		{"PACKAGE-LOCK.JSON", true}, // basename match is exact-case
	}
	for _, c := range cases {
		t.Run(c.path, func(t *testing.T) {
			require.Equal(t, c.want, ShouldIndex(c.path))
		})
	}
}

func initTestRepo(t *testing.T, dir string) *gogit.Repository {
	t.Helper()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	return repo
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	full := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func testAuthor() *object.Signature {
	return &object.Signature{
		Name:  "Test Author",
		Email: "test@example.com",
		When:  time.Now(),
	}
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "engram.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEnsureFreshIndexesAllCommits(t *testing.T) {
	tmpDir := t.TempDir()
	repo := initTestRepo(t, tmpDir)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	writeFile(t, tmpDir, "src/Auth.ts", "auth v1")
	writeFile(t, tmpDir, "src/Session.ts", "session v1")
	_, err = wt.Add("src/Auth.ts")
	require.NoError(t, err)
	_, err = wt.Add("src/Session.ts")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &gogit.CommitOptions{Author: testAuthor()})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		writeFile(t, tmpDir, "src/Auth.ts", fmt.Sprintf("auth change %d", i))
		writeFile(t, tmpDir, "src/Session.ts", fmt.Sprintf("session change %d", i))
		_, err = wt.Add("src/Auth.ts")
		require.NoError(t, err)
		_, err = wt.Add("src/Session.ts")
		require.NoError(t, err)
		_, err = wt.Commit("co-change", &gogit.CommitOptions{Author: testAuthor()})
		require.NoError(t, err)
	}

	s := openTestStore(t)
	idx, err := Open(tmpDir, s, 50_000, nil)
	require.NoError(t, err)

	partial, err := idx.EnsureFresh(context.Background(), time.Time{}, "src/Auth.ts")
	require.NoError(t, err)
	require.False(t, partial)

	count, err := s.CommitCount("src/Auth.ts")
	require.NoError(t, err)
	require.Equal(t, 6, count)

	stats, err := s.CoChangeCounts("src/Auth.ts")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.Equal(t, "src/Session.ts", stats[0].Path)
	require.Equal(t, 6, stats[0].CoChangeCount)

	// Second pass is a no-op: watermark already equals HEAD.
	partial, err = idx.EnsureFresh(context.Background(), time.Time{}, "src/Auth.ts")
	require.NoError(t, err)
	require.False(t, partial)
	count2, err := s.CommitCount("src/Auth.ts")
	require.NoError(t, err)
	require.Equal(t, count, count2)
}

func TestEnsureFreshFiltersLockfiles(t *testing.T) {
	tmpDir := t.TempDir()
	repo := initTestRepo(t, tmpDir)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	writeFile(t, tmpDir, "src/Auth.ts", "auth")
	writeFile(t, tmpDir, "package-lock.json", "{}")
	_, err = wt.Add("src/Auth.ts")
	require.NoError(t, err)
	_, err = wt.Add("package-lock.json")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &gogit.CommitOptions{Author: testAuthor()})
	require.NoError(t, err)

	s := openTestStore(t)
	idx, err := Open(tmpDir, s, 50_000, nil)
	require.NoError(t, err)

	_, err = idx.EnsureFresh(context.Background(), time.Time{}, "src/Auth.ts")
	require.NoError(t, err)

	count, err := s.CommitCount("package-lock.json")
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestEnsureFreshRenameLaw(t *testing.T) {
	tmpDir := t.TempDir()
	repo := initTestRepo(t, tmpDir)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	writeFile(t, tmpDir, "A.ts", "a")
	writeFile(t, tmpDir, "B.ts", "b")
	_, err = wt.Add("A.ts")
	require.NoError(t, err)
	_, err = wt.Add("B.ts")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &gogit.CommitOptions{Author: testAuthor()})
	require.NoError(t, err)

	aContent := "a"
	for i := 0; i < 9; i++ {
		aContent = fmt.Sprintf("a change %d", i)
		writeFile(t, tmpDir, "A.ts", aContent)
		writeFile(t, tmpDir, "B.ts", fmt.Sprintf("b change %d", i))
		_, err = wt.Add("A.ts")
		require.NoError(t, err)
		_, err = wt.Add("B.ts")
		require.NoError(t, err)
		_, err = wt.Commit("co-change", &gogit.CommitOptions{Author: testAuthor()})
		require.NoError(t, err)
	}

	writeFile(t, tmpDir, "ARenamed.ts", aContent)
	_, err = wt.Add("ARenamed.ts")
	require.NoError(t, err)
	_, err = wt.Remove("A.ts")
	require.NoError(t, err)
	renameHash, err := wt.Commit("rename A to ARenamed", &gogit.CommitOptions{Author: testAuthor()})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		writeFile(t, tmpDir, "ARenamed.ts", fmt.Sprintf("more changes a %d", i))
		writeFile(t, tmpDir, "B.ts", fmt.Sprintf("more changes b %d", i))
		_, err = wt.Add("ARenamed.ts")
		require.NoError(t, err)
		_, err = wt.Add("B.ts")
		require.NoError(t, err)
		_, err = wt.Commit("co-change after rename", &gogit.CommitOptions{Author: testAuthor()})
		require.NoError(t, err)
	}

	s := openTestStore(t)
	idx, err := Open(tmpDir, s, 50_000, nil)
	require.NoError(t, err)
	_, err = idx.EnsureFresh(context.Background(), time.Time{}, "ARenamed.ts")
	require.NoError(t, err)

	var oldCount int
	err = s.DB().QueryRow(
		`SELECT COUNT(*) FROM change_events WHERE commit_id = ? AND path = ?`,
		renameHash.String(), "A.ts",
	).Scan(&oldCount)
	require.NoError(t, err)
	require.Equal(t, 0, oldCount, "old path must not accumulate a change event on the rename commit")

	stats, err := s.CoChangeCounts("ARenamed.ts")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.GreaterOrEqual(t, stats[0].CoChangeCount, 13)
}
