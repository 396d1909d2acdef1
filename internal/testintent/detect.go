// Package testintent identifies test files and extracts their titled
// cases across seven language conventions, for attachment to coupled
// files and for proactive sibling-test discovery.
package testintent

import "strings"

// IsTestFile reports whether path looks like a test file by naming
// convention (spec.md §4.5). Matching is case-insensitive on path
// segments.
func IsTestFile(path string) bool {
	lower := strings.ToLower(path)
	base := lower
	if i := strings.LastIndex(lower, "/"); i >= 0 {
		base = lower[i+1:]
	}

	switch {
	case strings.Contains(base, ".test."), strings.Contains(base, ".spec."), strings.Contains(base, "_test."):
		return true
	case strings.HasPrefix(base, "test") && strings.HasSuffix(base, ".java"):
		return true
	case strings.HasSuffix(base, "test.java"), strings.HasSuffix(base, "tests.java"):
		return true
	case strings.HasSuffix(base, "spec.kt"), strings.HasSuffix(base, "spec.scala"):
		return true
	case strings.HasPrefix(base, "test_"):
		return true
	}

	segments := strings.Split(lower, "/")
	for i, seg := range segments {
		switch seg {
		case "__tests__", "tests", "test":
			return true
		}
		if seg == "src" && i+1 < len(segments) && segments[i+1] == "test" {
			return true
		}
	}
	return false
}
