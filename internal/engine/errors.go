package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure mode the coordinator can
// surface to a caller (spec.md §7's error taxonomy). wrap joins a
// sentinel and the underlying cause with two %w verbs, so errors.Is
// and errors.As find either one.
var (
	// ErrRepository covers failures opening or reading the git
	// repository itself (not found, corrupt, detached in a way
	// go-git can't resolve).
	ErrRepository = errors.New("engram: repository error")

	// ErrStorage covers failures opening, migrating, or querying the
	// embedded database.
	ErrStorage = errors.New("engram: storage error")

	// ErrIndexing covers failures during the commit walk that could
	// not be recovered by skipping the offending commit.
	ErrIndexing = errors.New("engram: indexing error")

	// ErrExtraction covers failures in the test-intent extractor that
	// escape its own best-effort swallowing (e.g. invalid UTF-8 that
	// breaks path handling, not a regular missing-file read error).
	ErrExtraction = errors.New("engram: extraction error")

	// ErrValidation covers malformed caller input, such as an empty
	// target path. An invalid repo root is reported as ErrRepository.
	ErrValidation = errors.New("engram: validation error")

	// ErrDeadlineExceeded classifies an expired request deadline. Analyze
	// does not return it: a deadline that expires during indexing yields
	// a result flagged partial_index, and one that expires before
	// enrichment yields the scored result without notes or test intents.
	ErrDeadlineExceeded = errors.New("engram: deadline exceeded")
)

// wrap annotates err with sentinel and msg, preserving errors.Is/As
// access to both. Returns nil if err is nil.
func wrap(sentinel error, msg string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", sentinel, msg, err)
}
