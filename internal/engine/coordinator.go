// Package engine implements the analysis coordinator: it orchestrates
// the temporal indexer, persistence, risk scorer, knowledge store, and
// test-intent extractor behind a single Analyze call, enforcing the
// freshness state machine and request deadlines.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anthropic/engram/internal/config"
	"github.com/anthropic/engram/internal/engramfs"
	"github.com/anthropic/engram/internal/gitint"
	"github.com/anthropic/engram/internal/knowledge"
	"github.com/anthropic/engram/internal/risk"
	"github.com/anthropic/engram/internal/store"
	"github.com/anthropic/engram/internal/testintent"
)

// CoupledStore is the narrow slice of internal/store's query API the
// coordinator needs to gather scoring input, declared at the point of
// use rather than depending on the concrete *store.Store.
type CoupledStore interface {
	CoChangeCounts(targetPath string) ([]store.CoChangeStat, error)
	CommitCount(path string) (int, error)
	TotalTargetCommitCount(targetPath string) (int, error)
	RepoNewestCommitTS() (*int64, error)
	InsertMetricsEvent(e store.MetricsEvent) error
}

// Coordinator holds everything one repository's analyze/note/metrics
// requests need: the embedded store, the git indexer, and the tunable
// scoring/deadline constants.
type Coordinator struct {
	repoRoot  string
	installID string
	cfg       *config.Config
	logger    *slog.Logger

	store *store.Store
	idx   *gitint.Indexer

	// writerMu is the process-wide writer lock spec.md §5 requires:
	// only one goroutine may run an indexing batch at a time. A
	// request that cannot acquire it proceeds against whatever is
	// already committed and reports partial_index instead of blocking.
	writerMu sync.Mutex
}

// Open opens (creating if necessary) the .engram/ database for
// repoRoot and wires an indexer against it.
func Open(repoRoot string, cfg *config.Config, logger *slog.Logger) (*Coordinator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	dbPath, err := engramfs.DBPath(repoRoot)
	if err != nil {
		return nil, wrap(ErrStorage, "resolve database path", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, wrap(ErrStorage, "open database", err)
	}
	idx, err := gitint.Open(repoRoot, s, cfg.AdaptiveIndexingThreshold, logger)
	if err != nil {
		_ = s.Close()
		return nil, wrap(ErrRepository, "open repository", err)
	}

	if err := engramfs.EnsureIgnored(repoRoot); err != nil {
		logger.Warn("failed to add .engram/ to the repository ignore file", "error", err)
	}

	installID, err := engramfs.InstallID(repoRoot)
	if err != nil {
		_ = s.Close()
		return nil, wrap(ErrStorage, "read install id", err)
	}

	return &Coordinator{
		repoRoot:  repoRoot,
		installID: installID,
		cfg:       cfg,
		logger:    logger,
		store:     s,
		idx:       idx,
	}, nil
}

// Close releases the underlying database handle.
func (c *Coordinator) Close() error {
	return c.store.Close()
}

// Store exposes the coordinator's persistence handle for direct
// access. The note and metrics operations have their own coordinator
// methods in notes.go.
func (c *Coordinator) Store() *store.Store {
	return c.store
}

// normalizePath cleans a caller-supplied path into the repository-
// relative, forward-slash, no-leading-slash form every internal
// component expects.
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimPrefix(p, "./")
	if p == "." {
		return ""
	}
	return p
}

// deadlineFor picks the soft (hot-path) or hard (cold-path) budget
// per spec.md §4.6: a request that finds the index already Fresh only
// pays for query, scoring, and enrichment; anything else pays for
// indexing too and gets the larger budget.
func (c *Coordinator) deadlineFor(fresh bool) time.Time {
	ms := c.cfg.SoftDeadlineMs
	if !fresh {
		ms = c.cfg.HardDeadlineMs
	}
	return time.Now().Add(time.Duration(ms) * time.Millisecond)
}

// Analyze runs the full coupled-file analysis for targetPath.
// targetPath is repository-relative; it is normalized on entry. A
// target path that does not exist in the index yields an empty
// coupled list, not an error.
//
// The soft (fresh index) or hard (indexing needed) deadline from
// spec.md §4.6 bounds the whole request — freshness, query, scoring,
// and enrichment together — not just the indexing pass, so Analyze
// derives its own deadline from the index's current state and applies
// it on top of whatever ctx the caller already supplied.
func (c *Coordinator) Analyze(ctx context.Context, targetPath string) (*Result, error) {
	start := time.Now()
	targetPath = normalizePath(targetPath)
	if targetPath == "" {
		return nil, fmt.Errorf("%w: target path must not be empty", ErrValidation)
	}

	freshness, _, err := c.idx.CurrentFreshness()
	if err != nil {
		c.logger.Warn("freshness check failed, proceeding against existing index", "error", err)
		freshness = gitint.Stale
	}
	ctx, cancel := context.WithDeadline(ctx, c.deadlineFor(freshness == gitint.Fresh))
	defer cancel()

	partialIndex := c.ensureFresh(ctx, freshness, targetPath)

	scored, targetCommitCount, err := gatherAndScore(c.store, targetPath, c.cfg)
	if err != nil {
		return nil, err
	}

	coupledFiles := make([]CoupledFile, len(scored))
	for i, sc := range scored {
		coupledFiles[i] = CoupledFile{
			Path:           sc.Path,
			CouplingScore:  sc.CouplingScore,
			CoChangeCount:  sc.CoChangeCount,
			RiskScore:      sc.RiskScore,
			Classification: string(sc.Classification),
		}
	}

	if enrichmentDeadlinePassed(ctx) {
		result := c.finish(start, targetPath, coupledFiles, targetCommitCount, nil, partialIndex)
		c.recordAnalysisMetrics(result)
		return result, nil
	}
	c.enrich(ctx, coupledFiles)

	testInfo := testintent.DiscoverTestInfo(c.repoRoot, targetPath, c.cfg.TestIntentsPerFile)

	result := c.finish(start, targetPath, coupledFiles, targetCommitCount, testInfo, partialIndex)
	c.recordAnalysisMetrics(result)
	return result, nil
}

// ensureFresh acquires the writer lock and brings the index up to
// date, unless another goroutine already holds the lock, in which
// case this request proceeds against whatever is already committed
// (the Indexing freshness state of spec.md §4.6) and reports partial.
func (c *Coordinator) ensureFresh(ctx context.Context, freshness gitint.Freshness, targetPath string) bool {
	if freshness == gitint.Fresh {
		return false
	}

	if !c.writerMu.TryLock() {
		return true
	}
	defer c.writerMu.Unlock()

	deadline, _ := ctx.Deadline()
	partial, err := c.idx.EnsureFresh(ctx, deadline, targetPath)
	if err != nil {
		c.logger.Warn("indexing pass failed, proceeding against existing index", "error", err)
		return true
	}
	return partial
}

func enrichmentDeadlinePassed(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// enrich attaches notes and, for coupled files that look like tests,
// extracted test-intent titles, bounded by ctx and run concurrently
// across files since each does its own disk I/O.
func (c *Coordinator) enrich(ctx context.Context, files []CoupledFile) {
	for i := range files {
		memories, err := knowledge.Attach(c.store, files[i].Path)
		if err != nil {
			c.logger.Warn("attach notes failed", "path", files[i].Path, "error", err)
			continue
		}
		files[i].Memories = memories
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range files {
		i := i
		if !testintent.IsTestFile(files[i].Path) {
			continue
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}
			content, err := os.ReadFile(path.Join(c.repoRoot, files[i].Path))
			if err != nil {
				return nil // best-effort: spec.md §4.5's failure semantics.
			}
			files[i].TestIntents = testintent.ExtractTestIntents(string(content), files[i].Path, c.cfg.TestIntentsPerFile)
			return nil
		})
	}
	_ = g.Wait() // extraction never returns an error; this only bounds concurrency.
}

// gatherAndScore queries co-change statistics through the narrow
// CoupledStore interface and runs them through the risk scorer,
// keeping the scoring gather step decoupled from the concrete
// persistence type.
func gatherAndScore(cs CoupledStore, targetPath string, cfg *config.Config) ([]risk.Scored, int, error) {
	stats, err := cs.CoChangeCounts(targetPath)
	if err != nil {
		return nil, 0, wrap(ErrStorage, "query co-change counts", err)
	}
	targetCommitCount, err := cs.TotalTargetCommitCount(targetPath)
	if err != nil {
		return nil, 0, wrap(ErrStorage, "query target commit count", err)
	}
	newestTS, err := cs.RepoNewestCommitTS()
	if err != nil {
		return nil, 0, wrap(ErrStorage, "query repo newest commit timestamp", err)
	}

	riskInputs := make([]risk.Stat, 0, len(stats))
	for _, st := range stats {
		commitCount, err := cs.CommitCount(st.Path)
		if err != nil {
			return nil, 0, wrap(ErrStorage, fmt.Sprintf("query commit count for %s", st.Path), err)
		}
		riskInputs = append(riskInputs, risk.Stat{
			Path:            st.Path,
			CoChangeCount:   st.CoChangeCount,
			CommitCount:     commitCount,
			LastCoChangedAt: st.LastCoChangedAt,
		})
	}

	return risk.Score(riskInputs, targetCommitCount, newestTS, cfg), targetCommitCount, nil
}

func (c *Coordinator) finish(start time.Time, targetPath string, coupledFiles []CoupledFile, commitCount int, testInfo *testintent.TestInfo, partialIndex bool) *Result {
	return &Result{
		FilePath:       targetPath,
		RepoRoot:       c.repoRoot,
		CoupledFiles:   coupledFiles,
		CommitCount:    commitCount,
		AnalysisTimeMs: time.Since(start).Milliseconds(),
		TestInfo:       testInfo,
		PartialIndex:   partialIndex,
	}
}

func (c *Coordinator) recordAnalysisMetrics(r *Result) {
	testFilesFound := 0
	testIntentsTotal := 0
	if r.TestInfo != nil {
		testFilesFound = len(r.TestInfo.TestFiles)
		for _, tf := range r.TestInfo.TestFiles {
			testIntentsTotal += len(tf.TestIntents)
		}
	}

	var critical, high, medium, low int
	for _, f := range r.CoupledFiles {
		switch telemetryRiskBand(f.RiskScore) {
		case risk.Critical:
			critical++
		case risk.High:
			high++
		case risk.Medium:
			medium++
		default:
			low++
		}
	}

	err := c.store.InsertMetricsEvent(store.MetricsEvent{
		EventType:        store.EventAnalysis,
		Path:             r.FilePath,
		CoupledCount:     len(r.CoupledFiles),
		CriticalCount:    critical,
		HighCount:        high,
		MediumCount:      medium,
		LowCount:         low,
		TestFilesFound:   testFilesFound,
		TestIntentsTotal: testIntentsTotal,
		CommitCount:      r.CommitCount,
		AnalysisTimeMs:   r.AnalysisTimeMs,
		RepoRoot:         c.installID,
	})
	if err != nil {
		c.logger.Warn("failed to record analysis metrics event", "error", err)
	}
}

// telemetryRiskBand buckets a raw risk score for the metrics summary.
// These thresholds (0.8/0.5/0.25) are the original's own, distinct
// from risk.Classify's presentation bands (0.8/0.6/0.3) used in
// coupled_files[].classification — SPEC_FULL.md's metrics supplement
// keeps them separate because the original's test suite fixes these
// exact cutoffs for this aggregate.
func telemetryRiskBand(score float64) risk.Classification {
	switch {
	case score >= 0.8:
		return risk.Critical
	case score >= 0.5:
		return risk.High
	case score >= 0.25:
		return risk.Medium
	default:
		return risk.Low
	}
}

// WatchAndBackfill starts a detached background worker that reindexes
// on every observed .git change, so a subsequent analyze call is more
// likely to find the index Fresh. It returns a cancel function; the
// worker owns the writer lock exactly like a foreground indexing pass.
func (c *Coordinator) WatchAndBackfill() (cancel func(), err error) {
	return gitint.WatchForNewCommits(c.repoRoot, func() {
		if !c.writerMu.TryLock() {
			return
		}
		defer c.writerMu.Unlock()

		deadline := time.Now().Add(time.Duration(c.cfg.HardDeadlineMs) * time.Millisecond)
		if _, err := c.idx.EnsureFresh(context.Background(), deadline, ""); err != nil {
			c.logger.Warn("background backfill failed", "error", err)
		}
	})
}
