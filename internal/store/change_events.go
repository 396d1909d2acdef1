package store

import (
	"database/sql"
	"fmt"
)

// Tx wraps a transaction so callers can bracket a batch of inserts
// with a single commit or rollback. The writer lock is held by
// convention: Begin uses database/sql's own connection pool, but the
// indexer (internal/gitint) is the only caller that ever holds a Tx
// open across multiple statements, and the engine runs it under its
// process-wide mutex (see internal/engine/coordinator.go's writerMu).
type Tx struct {
	tx *sql.Tx
}

// Begin starts a new transaction for a batch of change-event inserts
// and a watermark update.
func (s *Store) Begin() (*Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls back the transaction. Safe to call after Commit has
// already failed; it is a no-op if the transaction is already closed.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// InsertChangeEvent records that commitID touched path at committedAt.
// Idempotent on (commit_id, path): a duplicate insert is a no-op, not
// an error.
func (t *Tx) InsertChangeEvent(commitID, path string, committedAt int64) error {
	_, err := t.tx.Exec(
		`INSERT INTO change_events (commit_id, path, committed_at) VALUES (?, ?, ?)
		 ON CONFLICT(commit_id, path) DO NOTHING`,
		commitID, path, committedAt,
	)
	if err != nil {
		return fmt.Errorf("insert change event %s %s: %w", commitID, path, err)
	}
	return nil
}

// InsertRename records that commitID renamed oldPath to newPath,
// growing the alias graph coupling queries resolve through.
func (t *Tx) InsertRename(commitID, oldPath, newPath string, committedAt int64) error {
	_, err := t.tx.Exec(
		`INSERT INTO renames (commit_id, old_path, new_path, committed_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(commit_id, old_path, new_path) DO NOTHING`,
		commitID, oldPath, newPath, committedAt,
	)
	if err != nil {
		return fmt.Errorf("insert rename %s -> %s: %w", oldPath, newPath, err)
	}
	return nil
}

// SetWatermark overwrites the stored watermark for repoKey. Called
// exactly once per successful index batch, inside the same
// transaction as the change-event inserts it covers.
func (t *Tx) SetWatermark(repoKey, commitID string, committedAt int64) error {
	_, err := t.tx.Exec(
		`INSERT INTO watermark (repo_key, last_commit_id, last_committed_at) VALUES (?, ?, ?)
		 ON CONFLICT(repo_key) DO UPDATE SET last_commit_id = excluded.last_commit_id, last_committed_at = excluded.last_committed_at`,
		repoKey, commitID, committedAt,
	)
	if err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}
	return nil
}

// SetIndexingState records the resumable progress row for repoKey.
func (t *Tx) SetIndexingState(repoKey string, isComplete bool, commitsIndexed int, updatedAt string) error {
	_, err := t.tx.Exec(
		`INSERT INTO indexing_state (repo_key, is_complete, commits_indexed, last_updated) VALUES (?, ?, ?, ?)
		 ON CONFLICT(repo_key) DO UPDATE SET is_complete = excluded.is_complete, commits_indexed = excluded.commits_indexed, last_updated = excluded.last_updated`,
		repoKey, boolToInt(isComplete), commitsIndexed, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("set indexing state: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Watermark holds the last indexed commit for a repository.
type Watermark struct {
	CommitID    string
	CommittedAt int64
}

// GetWatermark returns the stored watermark for repoKey, or nil on a
// virgin database.
func (s *Store) GetWatermark(repoKey string) (*Watermark, error) {
	var w Watermark
	err := s.db.QueryRow(
		`SELECT last_commit_id, last_committed_at FROM watermark WHERE repo_key = ?`,
		repoKey,
	).Scan(&w.CommitID, &w.CommittedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get watermark: %w", err)
	}
	return &w, nil
}

// IndexingState reports the resumable progress row for repoKey.
type IndexingState struct {
	IsComplete     bool
	CommitsIndexed int
	LastUpdated    string
}

// GetIndexingState returns the stored progress row for repoKey, or nil
// if indexing has never run.
func (s *Store) GetIndexingState(repoKey string) (*IndexingState, error) {
	var st IndexingState
	var complete int
	err := s.db.QueryRow(
		`SELECT is_complete, commits_indexed, last_updated FROM indexing_state WHERE repo_key = ?`,
		repoKey,
	).Scan(&complete, &st.CommitsIndexed, &st.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get indexing state: %w", err)
	}
	st.IsComplete = complete != 0
	return &st, nil
}

// CoChangeStat is one row of the co-change aggregation for a target path.
type CoChangeStat struct {
	Path            string
	CoChangeCount   int
	LastCoChangedAt int64
}

// ResolveAliases returns the transitive closure of path under the
// renames graph: every name the underlying file has ever been known
// by, including path itself. History recorded under a prior name
// remains reachable through any of its later names, and vice versa,
// so coupling queries never lose history across a rename (spec.md
// §8's rename law).
func (s *Store) ResolveAliases(path string) ([]string, error) {
	visited := map[string]struct{}{path: {}}
	queue := []string{path}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		rows, err := s.db.Query(
			`SELECT old_path FROM renames WHERE new_path = ?
			 UNION
			 SELECT new_path FROM renames WHERE old_path = ?`,
			cur, cur,
		)
		if err != nil {
			return nil, fmt.Errorf("resolve aliases for %s: %w", path, err)
		}
		var neighbors []string
		for rows.Next() {
			var n string
			if err := rows.Scan(&n); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan alias: %w", err)
			}
			neighbors = append(neighbors, n)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()

		for _, n := range neighbors {
			if _, ok := visited[n]; !ok {
				visited[n] = struct{}{}
				queue = append(queue, n)
			}
		}
	}

	aliases := make([]string, 0, len(visited))
	for p := range visited {
		aliases = append(aliases, p)
	}
	return aliases, nil
}

// CoChangeCounts enumerates, for every commit that touched targetPath
// under any of its historical names, the other paths touched in the
// same commit, aggregated by count and the most recent shared commit
// timestamp. Self-joins change_events on commit_id with the target's
// alias set on one side, per spec.md §4.1/§9.
func (s *Store) CoChangeCounts(targetPath string) ([]CoChangeStat, error) {
	aliases, err := s.ResolveAliases(targetPath)
	if err != nil {
		return nil, err
	}

	placeholders, args := inClause(aliases)
	query := fmt.Sprintf(`
		SELECT b.path, COUNT(*) AS co_change_count, MAX(b.committed_at) AS last_ts
		FROM change_events AS a
		JOIN change_events AS b ON a.commit_id = b.commit_id AND b.path NOT IN (%s)
		WHERE a.path IN (%s)
		GROUP BY b.path
		ORDER BY co_change_count DESC, b.path ASC
	`, placeholders, placeholders)

	rows, err := s.db.Query(query, append(append([]any{}, args...), args...)...)
	if err != nil {
		return nil, fmt.Errorf("co-change counts for %s: %w", targetPath, err)
	}
	defer rows.Close()

	var stats []CoChangeStat
	for rows.Next() {
		var st CoChangeStat
		if err := rows.Scan(&st.Path, &st.CoChangeCount, &st.LastCoChangedAt); err != nil {
			return nil, fmt.Errorf("scan co-change row: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func inClause(values []string) (string, []any) {
	placeholders := make([]byte, 0, len(values)*2)
	args := make([]any, len(values))
	for i, v := range values {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = v
	}
	return string(placeholders), args
}

// CommitCount returns the number of distinct commits touching path
// under any of its historical names.
func (s *Store) CommitCount(path string) (int, error) {
	aliases, err := s.ResolveAliases(path)
	if err != nil {
		return 0, err
	}
	placeholders, args := inClause(aliases)
	var count int
	err = s.db.QueryRow(
		fmt.Sprintf(`SELECT COUNT(DISTINCT commit_id) FROM change_events WHERE path IN (%s)`, placeholders),
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("commit count for %s: %w", path, err)
	}
	return count, nil
}

// TotalTargetCommitCount is CommitCount by another name, kept distinct
// per spec.md §4.1's naming so callers reading the coupling formula
// see the denominator they expect at the call site.
func (s *Store) TotalTargetCommitCount(targetPath string) (int, error) {
	return s.CommitCount(targetPath)
}

// RepoNewestCommitTS returns the timestamp of the most recent commit
// observed in the index, or nil on a virgin database.
func (s *Store) RepoNewestCommitTS() (*int64, error) {
	var ts sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(committed_at) FROM change_events`).Scan(&ts)
	if err != nil {
		return nil, fmt.Errorf("repo newest commit ts: %w", err)
	}
	if !ts.Valid {
		return nil, nil
	}
	v := ts.Int64
	return &v, nil
}
