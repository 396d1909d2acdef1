// Package store implements the embedded persistence layer for Engram:
// change events, the indexing watermark, user notes, and the metrics
// event log. It is the only component that touches the on-disk
// database file; every other package reaches the schema through the
// narrow method set exposed here.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver.
)

// Store wraps a SQLite database connection holding Engram's schema.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at dbPath with WAL mode
// and a 5-second busy timeout, then runs any pending migrations. Open
// is idempotent: calling it again against the same path is safe.
func Open(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("check journal mode: %w", err)
	}
	if journalMode != "wal" {
		_ = db.Close()
		return nil, fmt.Errorf("expected WAL journal mode, got %q", journalMode)
	}

	// Single-writer, many-reader: Begin takes no lock of its own;
	// indexing batches are serialized by the coordinator's process-wide
	// mutex (see Tx), and the pool's extra connections let readers run
	// concurrently.
	db.SetMaxOpenConns(8)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct queries. Use sparingly;
// prefer adding methods to Store.
func (s *Store) DB() *sql.DB {
	return s.db
}
