package store

// schemaVersion is the current schema version. Increment when adding migrations.
const schemaVersion = 1

// migrations maps version numbers to SQL statements that bring the schema
// from (version-1) to (version). Version 1 is the initial schema.
var migrations = map[int]string{
	1: `
-- One row per (commit, path) touched by that commit, after rename
-- resolution and path filtering. Unique on (commit_id, path).
CREATE TABLE IF NOT EXISTS change_events (
	commit_id    TEXT    NOT NULL,
	path         TEXT    NOT NULL,
	committed_at INTEGER NOT NULL,
	PRIMARY KEY (commit_id, path)
);

CREATE INDEX IF NOT EXISTS idx_change_events_path ON change_events(path);
CREATE INDEX IF NOT EXISTS idx_change_events_commit ON change_events(commit_id);

-- One edge per rename observed while indexing. Coupling queries
-- resolve a target path's full alias set by walking this graph, so
-- history recorded under a path's old name continues to surface after
-- the file is renamed (spec.md §8's rename law).
CREATE TABLE IF NOT EXISTS renames (
	commit_id    TEXT    NOT NULL,
	old_path     TEXT    NOT NULL,
	new_path     TEXT    NOT NULL,
	committed_at INTEGER NOT NULL,
	PRIMARY KEY (commit_id, old_path, new_path)
);

CREATE INDEX IF NOT EXISTS idx_renames_old ON renames(old_path);
CREATE INDEX IF NOT EXISTS idx_renames_new ON renames(new_path);

-- Single-row resumable bookmark for incremental indexing, keyed by
-- repository so one database file could in principle serve more than
-- one working tree (Engram itself only ever opens one per .engram/).
CREATE TABLE IF NOT EXISTS watermark (
	repo_key         TEXT PRIMARY KEY,
	last_commit_id   TEXT NOT NULL,
	last_committed_at INTEGER NOT NULL
);

-- User-authored notes keyed by file path.
CREATE TABLE IF NOT EXISTS notes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	path       TEXT    NOT NULL,
	symbol     TEXT    NOT NULL DEFAULT '',
	content    TEXT    NOT NULL,
	created_at TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_path ON notes(path);

-- Telemetry log: one row per analyze/add_note call, aggregated by
-- metrics_summary. Not part of the core data model; a supplemental
-- capability recovered from the prior implementation.
CREATE TABLE IF NOT EXISTS metrics_events (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type          TEXT    NOT NULL,
	ts                  TEXT    NOT NULL,
	path                TEXT    NOT NULL DEFAULT '',
	coupled_count       INTEGER NOT NULL DEFAULT 0,
	critical_count      INTEGER NOT NULL DEFAULT 0,
	high_count          INTEGER NOT NULL DEFAULT 0,
	medium_count        INTEGER NOT NULL DEFAULT 0,
	low_count           INTEGER NOT NULL DEFAULT 0,
	test_files_found    INTEGER NOT NULL DEFAULT 0,
	test_intents_total  INTEGER NOT NULL DEFAULT 0,
	commit_count        INTEGER NOT NULL DEFAULT 0,
	analysis_time_ms    INTEGER NOT NULL DEFAULT 0,
	note_id             INTEGER,
	repo_root           TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_metrics_events_type ON metrics_events(event_type);
CREATE INDEX IF NOT EXISTS idx_metrics_events_repo ON metrics_events(repo_root);

-- Resumable state for the cold/adaptive indexing walk. A strict
-- subset of the prior implementation's indexing_state row: enough to
-- report progress and completion without resurrecting its resume-by-OID
-- state machine.
CREATE TABLE IF NOT EXISTS indexing_state (
	repo_key        TEXT PRIMARY KEY,
	is_complete     INTEGER NOT NULL DEFAULT 0,
	commits_indexed INTEGER NOT NULL DEFAULT 0,
	last_updated    TEXT    NOT NULL
);

-- Key-value bookkeeping table, used only for schema_version.
CREATE TABLE IF NOT EXISTS engram_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);
`,
}
