package gitint

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// WatchForNewCommits watches the .git directory (which holds HEAD) and
// .git/refs/heads at repoRoot and calls onChange on any event in either, so a detached cold-backfill
// worker can wake on new commits instead of polling. Returns a cancel
// function to stop watching and any setup error. Adapted from a
// branch-switch watcher into a "history may have advanced" signal:
// callers re-check the watermark themselves rather than trusting the
// event to mean anything more specific than "look again."
func WatchForNewCommits(repoRoot string, onChange func()) (cancel func(), err error) {
	gitDir := filepath.Join(repoRoot, ".git")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(gitDir); err != nil {
		watcher.Close()
		return nil, err
	}
	refsDir := filepath.Join(gitDir, "refs", "heads")
	_ = watcher.Add(refsDir) // best-effort; absent on a fresh repo with no branches yet.

	var once sync.Once
	done := make(chan struct{})

	go func() {
		for {
			select {
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				onChange()
			case <-watcher.Errors:
				// Ignore transport errors silently; the next poll of the
				// watermark by the caller is the source of truth.
			case <-done:
				return
			}
		}
	}()

	cancel = func() {
		once.Do(func() { close(done) })
		watcher.Close()
	}
	return cancel, nil
}
