// Package gitint implements the temporal indexer: it walks a
// repository's commit history with go-git, resolves renames and
// path filtering, and records change events into the embedded store
// behind a single watermark-bounded, rollback-safe transaction.
package gitint

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/anthropic/engram/internal/store"
)

// RepoKey is the repo_key stored in the watermark/indexing_state
// tables. Each .engram/engram.db belongs to exactly one working tree
// (see internal/engramfs), so a single constant key is sufficient —
// there is never more than one repository's history in a given
// database file.
const RepoKey = "default"

// Indexer walks a git repository's commit history into a Store.
type Indexer struct {
	repo     *git.Repository
	store    *store.Store
	repoRoot string
	logger   *slog.Logger

	adaptiveThreshold int
}

// Open opens an existing git repository at repoRoot wired to s for
// persistence. adaptiveThreshold is the virgin-database commit count
// above which the initial cold walk switches to a path-filtered
// traversal (SPEC_FULL.md section D).
func Open(repoRoot string, s *store.Store, adaptiveThreshold int, logger *slog.Logger) (*Indexer, error) {
	repo, err := git.PlainOpen(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("open git repo at %s: %w", repoRoot, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		repo:              repo,
		store:             s,
		repoRoot:          repoRoot,
		logger:            logger,
		adaptiveThreshold: adaptiveThreshold,
	}, nil
}

// Freshness describes the state of the index relative to HEAD,
// matching spec.md §4.6's freshness state machine.
type Freshness int

const (
	// Fresh means the watermark equals HEAD; no work is needed.
	Fresh Freshness = iota
	// Stale means the watermark is older than HEAD.
	Stale
	// Virgin means no watermark has ever been recorded.
	Virgin
)

// CurrentFreshness reports the index's freshness relative to HEAD
// without doing any indexing work.
func (idx *Indexer) CurrentFreshness() (Freshness, *object.Commit, error) {
	head, err := idx.repo.Head()
	if err != nil {
		return Virgin, nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	headCommit, err := idx.repo.CommitObject(head.Hash())
	if err != nil {
		return Virgin, nil, fmt.Errorf("load HEAD commit: %w", err)
	}

	wm, err := idx.store.GetWatermark(RepoKey)
	if err != nil {
		return Virgin, headCommit, err
	}
	if wm == nil {
		return Virgin, headCommit, nil
	}
	if wm.CommitID == head.Hash().String() {
		return Fresh, headCommit, nil
	}
	return Stale, headCommit, nil
}

// EnsureFresh performs an incremental indexing pass up to deadline.
// It returns partial=true if the deadline elapsed before the walk
// reached the stored watermark (or, on a virgin database, before it
// reached the root commit), in which case the watermark is advanced
// only to the oldest fully processed commit. The next call walks from
// HEAD again (re-inserting already indexed commits is a no-op) and,
// because the prior pass was partial, walks past that watermark
// rather than stopping at it, since it marks an unfinished cold
// backfill's frontier, not a caught-up point; a watermark left by a
// complete pass is still a hard stop. targetPath, when non-empty,
// seeds the adaptive path-filtered walk on a virgin database above
// adaptiveThreshold.
func (idx *Indexer) EnsureFresh(ctx context.Context, deadline time.Time, targetPath string) (partial bool, err error) {
	freshness, headCommit, err := idx.CurrentFreshness()
	if err != nil {
		return false, err
	}
	if freshness == Fresh {
		return false, nil
	}

	wm, err := idx.store.GetWatermark(RepoKey)
	if err != nil {
		return false, err
	}
	priorState, err := idx.store.GetIndexingState(RepoKey)
	if err != nil {
		return false, err
	}
	// A watermark left behind by a deadline-truncated pass marks the
	// frontier of a still-incomplete cold backfill, not a caught-up
	// point: resuming must walk past it into older history rather than
	// treat it as a hard stop, or backfill never makes progress beyond
	// the first chunk.
	resumingPartial := priorState != nil && !priorState.IsComplete

	pathFilter := ""
	if freshness == Virgin && idx.adaptiveThreshold > 0 {
		over, err := idx.overAdaptiveThreshold(headCommit)
		if err != nil {
			idx.logger.Warn("adaptive threshold probe failed, falling back to full walk", "error", err)
		} else if over {
			pathFilter = targetPath
		}
	}

	tx, err := idx.store.Begin()
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	iter, err := idx.repo.Log(&git.LogOptions{From: headCommit.Hash, Order: git.LogOrderCommitterTime})
	if err != nil {
		return false, fmt.Errorf("walk commit history: %w", err)
	}
	defer iter.Close()

	var (
		lastFullyProcessed *object.Commit
		indexed            int
		stopHash           string
	)
	if wm != nil {
		stopHash = wm.CommitID
	}

	for {
		select {
		case <-ctx.Done():
			partial = true
		default:
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			partial = true
		}
		if partial {
			break
		}

		c, err := iter.Next()
		if err != nil {
			break // io.EOF or a plumbing error both end the walk.
		}
		if c.Hash.String() == stopHash {
			if resumingPartial {
				// Already indexed in an earlier chunk; skip re-recording
				// it but keep descending into the unindexed history
				// beyond it.
				continue
			}
			break
		}

		if err := idx.processCommit(tx, c, pathFilter); err != nil {
			idx.logger.Warn("skipping commit due to indexing error", "commit", c.Hash.String(), "error", err)
			// Per-commit errors are recoverable (spec.md §7 IndexingError):
			// skip this commit, keep the overall batch going.
		}
		lastFullyProcessed = c
		indexed++
	}

	now := time.Now().UTC()
	switch {
	case !partial:
		// A full walk reached the watermark (or the repo root): HEAD is
		// now fully represented, regardless of which commit the loop
		// last processed (it may have stopped one short of HEAD if HEAD
		// itself was already the watermark, or processed nothing at all
		// on an already-fresh virgin repo).
		if err := tx.SetWatermark(RepoKey, headCommit.Hash.String(), headCommit.Committer.When.Unix()); err != nil {
			return false, err
		}
	case lastFullyProcessed != nil:
		// The deadline hit mid-walk: advance the watermark only to the
		// oldest commit fully processed so the next call resumes there.
		if err := tx.SetWatermark(RepoKey, lastFullyProcessed.Hash.String(), lastFullyProcessed.Committer.When.Unix()); err != nil {
			return false, err
		}
	}
	if err := tx.SetIndexingState(RepoKey, !partial, indexed, now.Format(time.RFC3339)); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true

	return partial, nil
}

// processCommit resolves renames and path filtering for one commit
// and records the surviving change events.
func (idx *Indexer) processCommit(tx *store.Tx, c *object.Commit, pathFilter string) error {
	if pathFilter != "" {
		touched, err := touchesPath(c, pathFilter)
		if err != nil {
			return err
		}
		if !touched {
			return nil
		}
	}

	changes, err := commitChanges(c)
	if err != nil {
		return err
	}

	hash := c.Hash.String()
	ts := c.Committer.When.Unix()
	for _, ch := range changes {
		if !ShouldIndex(ch.Path) {
			continue
		}
		if err := tx.InsertChangeEvent(hash, ch.Path, ts); err != nil {
			return err
		}
		if ch.OldPath != "" {
			if err := tx.InsertRename(hash, ch.OldPath, ch.Path, ts); err != nil {
				return err
			}
		}
	}
	return nil
}

// overAdaptiveThreshold counts commits reachable from head up to
// adaptiveThreshold+1, stopping early once the cap is exceeded so a
// huge repository's full history is never walked just to decide
// whether to walk it.
func (idx *Indexer) overAdaptiveThreshold(head *object.Commit) (bool, error) {
	iter, err := idx.repo.Log(&git.LogOptions{From: head.Hash, Order: git.LogOrderCommitterTime})
	if err != nil {
		return false, err
	}
	defer iter.Close()

	count := 0
	for {
		if _, err := iter.Next(); err != nil {
			break
		}
		count++
		if count > idx.adaptiveThreshold {
			return true, nil
		}
	}
	return false, nil
}
