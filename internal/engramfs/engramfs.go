// Package engramfs manages the persisted-state layout Engram keeps
// alongside a repository: a single .engram/ directory at the repo
// root holding the embedded database file and a stable install id.
// Nothing outside this package writes to any other location, per
// spec.md §6.
package engramfs

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	// DirName is the directory Engram owns inside a repository root.
	DirName = ".engram"
	// DBFileName is the single embedded database file within DirName.
	DBFileName = "engram.db"
	idFileName = "install_id"
)

// Dir returns the path to .engram/ under repoRoot, creating it if it
// does not yet exist.
func Dir(repoRoot string) (string, error) {
	dir := filepath.Join(repoRoot, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// DBPath returns the path to the embedded database file under
// repoRoot, ensuring the parent directory exists.
func DBPath(repoRoot string) (string, error) {
	dir, err := Dir(repoRoot)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DBFileName), nil
}

// InstallID returns a stable, randomly generated identifier for this
// repository's .engram/ directory, persisting it on first use. The
// coordinator uses it (not the raw repository path) to key metrics
// events and summaries, so telemetry for a repository survives it
// being moved or renamed on disk; it is never used as a path or
// content key in the core data model.
func InstallID(repoRoot string) (string, error) {
	dir, err := Dir(repoRoot)
	if err != nil {
		return "", err
	}
	idPath := filepath.Join(dir, idFileName)

	if data, err := os.ReadFile(idPath); err == nil {
		return string(data), nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	id := uuid.NewString()
	if err := os.WriteFile(idPath, []byte(id), 0o644); err != nil {
		return "", err
	}
	return id, nil
}

// EnsureIgnored appends ".engram/" to repoRoot's .gitignore if it is
// not already present. Best-effort: a failure to write is returned
// but never fatal to callers that treat it as a convenience.
func EnsureIgnored(repoRoot string) error {
	ignorePath := filepath.Join(repoRoot, ".gitignore")
	existing, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	content := string(existing)
	for _, line := range splitLines(content) {
		if line == DirName || line == DirName+"/" {
			return nil
		}
	}
	if content != "" && content[len(content)-1] != '\n' {
		content += "\n"
	}
	content += DirName + "/\n"
	return os.WriteFile(ignorePath, []byte(content), 0o644)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
