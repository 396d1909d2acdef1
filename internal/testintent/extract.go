package testintent

import (
	"path"
	"regexp"
	"strings"
)

// TestIntent is one extracted titled test case.
type TestIntent struct {
	Title string `json:"title"`
}

// language groups the extensions sharing one extraction pattern
// (spec.md §4.5's table), compiled once at package init and reused.
type language int

const (
	langNone language = iota
	langJSTS
	langRust
	langPython
	langGo
	langJava
	langKotlin
	langScala
)

var extensionLanguage = map[string]language{
	"js": langJSTS, "jsx": langJSTS, "ts": langJSTS, "tsx": langJSTS, "mjs": langJSTS, "cjs": langJSTS,
	"rs":    langRust,
	"py":    langPython,
	"go":    langGo,
	"java":  langJava,
	"kt":    langKotlin,
	"kts":   langKotlin,
	"scala": langScala,
}

func detectLanguage(filePath string) language {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filePath), "."))
	return extensionLanguage[ext]
}

var (
	jsTestRe      = regexp.MustCompile("\\b(?:it|test|describe)\\s*\\(\\s*[\"'`](.*?)[\"'`]")
	rustTestRe    = regexp.MustCompile(`#\[test\][^\n]*\n\s*(?:pub\s+)?(?:async\s+)?fn\s+(\w+)`)
	pythonTestRe  = regexp.MustCompile(`(?m)^\s*def\s+(test_\w+)`)
	goTestRe      = regexp.MustCompile(`(?m)^func\s+(Test\w+)`)
	javaTestRe    = regexp.MustCompile(`@Test\b[^\n]*\n(?:[^\n]*\n)?\s*(?:public|private|protected)?\s*(?:static\s+)?\w[\w<>]*\s+(\w+)\s*\(`)
	javaDisplayRe = regexp.MustCompile(`@DisplayName\(\s*"([^"]+)"\s*\)`)
	kotlinKotestRe = regexp.MustCompile(`(?:should|it|describe|test)\s*\(\s*"([^"]+)"\s*\)`)
	kotlinJUnitBacktickRe = regexp.MustCompile("fun\\s+`([^`]+)`")
	kotlinJUnitPlainRe    = regexp.MustCompile(`fun\s+(\w+)\s*\(`)
	scalaTestRe           = regexp.MustCompile(`(?:it|test|"[^"]+"\s+in|should)\s*\(?\s*"([^"]+)"\s*\)?`)
)

// ExtractTestIntents extracts titled test cases from content, whose
// language is detected from filePath's extension. At most maxPerFile
// titles are returned, in source order. Any language with no
// extraction pattern yields an empty result.
func ExtractTestIntents(content, filePath string, maxPerFile int) []TestIntent {
	switch detectLanguage(filePath) {
	case langJSTS:
		return capture(jsTestRe, content, maxPerFile, func(m []string) string {
			return firstNonEmpty(m[1:])
		})
	case langRust:
		return capture(rustTestRe, content, maxPerFile, func(m []string) string {
			return Humanize(m[1])
		})
	case langPython:
		return capture(pythonTestRe, content, maxPerFile, func(m []string) string {
			return Humanize(m[1])
		})
	case langGo:
		return capture(goTestRe, content, maxPerFile, func(m []string) string {
			return Humanize(m[1])
		})
	case langJava:
		if displays := capture(javaDisplayRe, content, maxPerFile, func(m []string) string { return m[1] }); len(displays) > 0 {
			return displays
		}
		return capture(javaTestRe, content, maxPerFile, func(m []string) string {
			return Humanize(m[1])
		})
	case langKotlin:
		if titles := capture(kotlinKotestRe, content, maxPerFile, func(m []string) string { return m[1] }); len(titles) > 0 {
			return titles
		}
		if titles := capture(kotlinJUnitBacktickRe, content, maxPerFile, func(m []string) string { return m[1] }); len(titles) > 0 {
			return titles
		}
		return capture(kotlinJUnitPlainRe, content, maxPerFile, func(m []string) string {
			return Humanize(m[1])
		})
	case langScala:
		return capture(scalaTestRe, content, maxPerFile, func(m []string) string {
			return m[1]
		})
	default:
		return nil
	}
}

// CountTestCases counts the total number of test cases in content with
// no cap, used for the proactive-discovery test_count field.
func CountTestCases(content, filePath string) int {
	lang := detectLanguage(filePath)
	var re *regexp.Regexp
	switch lang {
	case langJSTS:
		re = jsTestRe
	case langRust:
		re = rustTestRe
	case langPython:
		re = pythonTestRe
	case langGo:
		re = goTestRe
	case langJava:
		re = javaTestRe
	case langKotlin:
		// Same precedence as ExtractTestIntents: the first Kotlin
		// pattern with any match is the one counted.
		for _, kre := range []*regexp.Regexp{kotlinKotestRe, kotlinJUnitBacktickRe} {
			if n := len(kre.FindAllStringIndex(content, -1)); n > 0 {
				return n
			}
		}
		re = kotlinJUnitPlainRe
	case langScala:
		re = scalaTestRe
	default:
		return 0
	}
	return len(re.FindAllStringIndex(content, -1))
}

func capture(re *regexp.Regexp, content string, max int, title func([]string) string) []TestIntent {
	var intents []TestIntent
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		t := title(m)
		if t == "" {
			continue
		}
		intents = append(intents, TestIntent{Title: t})
		if len(intents) >= max {
			break
		}
	}
	return intents
}

func firstNonEmpty(groups []string) string {
	for _, g := range groups {
		if g != "" {
			return g
		}
	}
	return ""
}

var (
	camelLowerUpper  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	camelAcronymWord = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
)

// Humanize converts an identifier-derived title to human-readable
// form: strips a "test_" or "Test" prefix, replaces underscores with
// spaces, splits CamelCase on capital boundaries, and lowercases every
// word except an all-caps acronym of two or more letters.
func Humanize(name string) string {
	stripped := name
	switch {
	case strings.HasPrefix(strings.ToLower(stripped), "test_"):
		stripped = stripped[len("test_"):]
	case strings.HasPrefix(stripped, "Test"):
		stripped = strings.TrimPrefix(stripped, "Test")
	}

	spaced := strings.ReplaceAll(stripped, "_", " ")
	spaced = camelAcronymWord.ReplaceAllString(spaced, "$1 $2")
	spaced = camelLowerUpper.ReplaceAllString(spaced, "$1 $2")

	words := strings.Fields(spaced)
	for i, w := range words {
		if isAcronym(w) {
			continue
		}
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, " ")
}

func isAcronym(word string) bool {
	if len(word) < 2 {
		return false
	}
	for _, r := range word {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
