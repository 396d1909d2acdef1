package testintent

import (
	"fmt"
	"os"
	"path"
	"strings"
)

// DiscoveredTestFile is one proactively-discovered sibling test file.
type DiscoveredTestFile struct {
	Path        string       `json:"path"`
	TestCount   int          `json:"test_count"`
	TestIntents []TestIntent `json:"test_intents,omitempty"`
}

// TestInfo is the proactive-discovery bucket attached to an analysis
// result, independent of co-change coupling.
type TestInfo struct {
	TestFiles    []DiscoveredTestFile `json:"test_files"`
	CoverageHint *string              `json:"coverage_hint,omitempty"`
}

// candidatesFor synthesizes sibling test-path candidates for
// sourcePath by naming convention, per language (spec.md §4.5's
// proactive-discovery list, extended to the JVM languages).
func candidatesFor(sourcePath string) []string {
	dir := path.Dir(sourcePath)
	if dir == "." {
		dir = ""
	}
	base := path.Base(sourcePath)

	join := func(parts ...string) string {
		var nonEmpty []string
		for _, p := range parts {
			if p != "" {
				nonEmpty = append(nonEmpty, p)
			}
		}
		return strings.Join(nonEmpty, "/")
	}

	for _, ext := range []string{"tsx", "ts", "jsx", "js", "mjs", "cjs"} {
		suffix := "." + ext
		if !strings.HasSuffix(base, suffix) {
			continue
		}
		stem := strings.TrimSuffix(base, suffix)
		testsDir := join(dir, "__tests__")
		var out []string
		for _, e := range []string{"tsx", "ts", "jsx", "js", "mjs", "cjs"} {
			out = append(out,
				join(dir, fmt.Sprintf("%s.test.%s", stem, e)),
				join(dir, fmt.Sprintf("%s.spec.%s", stem, e)),
				join(testsDir, fmt.Sprintf("%s.test.%s", stem, e)),
				join(testsDir, fmt.Sprintf("%s.spec.%s", stem, e)),
				join(testsDir, fmt.Sprintf("%s.%s", stem, e)),
			)
		}
		return out
	}

	if stem := strings.TrimSuffix(base, ".py"); stem != base {
		return []string{
			join(dir, fmt.Sprintf("test_%s.py", stem)),
			join(dir, fmt.Sprintf("%s_test.py", stem)),
			join(dir, "tests", fmt.Sprintf("test_%s.py", stem)),
			join("tests", fmt.Sprintf("test_%s.py", stem)),
		}
	}

	if stem := strings.TrimSuffix(base, ".go"); stem != base {
		return []string{join(dir, fmt.Sprintf("%s_test.go", stem))}
	}

	if stem := strings.TrimSuffix(base, ".rs"); stem != base {
		return []string{
			join(dir, "tests", fmt.Sprintf("%s.rs", stem)),
			join("tests", fmt.Sprintf("%s.rs", stem)),
		}
	}

	if stem := strings.TrimSuffix(base, ".java"); stem != base {
		return []string{
			join(dir, fmt.Sprintf("%sTest.java", stem)),
			strings.Replace(join(dir, fmt.Sprintf("%sTest.java", stem)), "/main/", "/test/", 1),
		}
	}

	if stem := strings.TrimSuffix(base, ".kt"); stem != base {
		return []string{
			join(dir, fmt.Sprintf("%sTest.kt", stem)),
			strings.Replace(join(dir, fmt.Sprintf("%sTest.kt", stem)), "/main/", "/test/", 1),
		}
	}

	if stem := strings.TrimSuffix(base, ".scala"); stem != base {
		return []string{
			join(dir, fmt.Sprintf("%sSpec.scala", stem)),
			strings.Replace(join(dir, fmt.Sprintf("%sSpec.scala", stem)), "/main/", "/test/", 1),
		}
	}

	return nil
}

// FindTestFiles returns the candidate sibling test paths for
// sourcePath that exist and are readable on disk, relative to
// repoRoot, deduplicated. Test files themselves have no siblings to
// discover.
func FindTestFiles(repoRoot, sourcePath string) []string {
	if IsTestFile(sourcePath) {
		return nil
	}

	seen := make(map[string]struct{})
	var found []string
	for _, candidate := range candidatesFor(sourcePath) {
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}

		info, err := os.Stat(path.Join(repoRoot, candidate))
		if err != nil || info.IsDir() {
			continue
		}
		found = append(found, candidate)
	}
	return found
}

// DiscoverTestInfo discovers sibling test files for sourcePath,
// extracts their test intents and counts, and builds a coverage hint
// from the source file's own line count. Returns nil if no sibling
// test file is found. Per-file read errors are swallowed; discovery
// is best-effort.
func DiscoverTestInfo(repoRoot, sourcePath string, maxIntentsPerFile int) *TestInfo {
	testPaths := FindTestFiles(repoRoot, sourcePath)
	if len(testPaths) == 0 {
		return nil
	}

	var testFiles []DiscoveredTestFile
	totalTests := 0
	for _, tp := range testPaths {
		content, err := os.ReadFile(path.Join(repoRoot, tp))
		if err != nil {
			continue
		}
		count := CountTestCases(string(content), tp)
		totalTests += count
		testFiles = append(testFiles, DiscoveredTestFile{
			Path:        tp,
			TestCount:   count,
			TestIntents: ExtractTestIntents(string(content), tp, maxIntentsPerFile),
		})
	}
	if len(testFiles) == 0 {
		return nil
	}

	info := &TestInfo{TestFiles: testFiles}
	if srcContent, err := os.ReadFile(path.Join(repoRoot, sourcePath)); err == nil {
		lineCount := strings.Count(string(srcContent), "\n") + 1
		plural := "s"
		if totalTests == 1 {
			plural = ""
		}
		hint := fmt.Sprintf("%d test%s covering a %d-line source file", totalTests, plural, lineCount)
		info.CoverageHint = &hint
	}
	return info
}
