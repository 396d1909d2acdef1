package gitint

import (
	"path"
	"strings"
)

// ignoredBasenames is the exact-case lockfile set from spec.md §4.2.
var ignoredBasenames = map[string]struct{}{
	"package-lock.json": {},
	"yarn.lock":          {},
	"pnpm-lock.yaml":     {},
	"Cargo.lock":         {},
	"poetry.lock":        {},
	"Gemfile.lock":       {},
	"composer.lock":      {},
	"go.sum":             {},
	".DS_Store":          {},
	"Thumbs.db":          {},
}

// ignoredExtensions is the case-insensitive binary/opaque-extension set
// from spec.md §4.2: images, fonts, archives, executables/objects, and
// compiled/minified artifacts.
var ignoredExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "webp": {}, "ico": {}, "svg": {},
	"woff": {}, "woff2": {}, "ttf": {}, "otf": {}, "eot": {},
	"zip": {}, "tar": {}, "gz": {}, "tgz": {}, "bz2": {}, "xz": {}, "7z": {}, "rar": {},
	"exe": {}, "dll": {}, "so": {}, "dylib": {}, "a": {}, "o": {},
	"class": {}, "jar": {}, "wasm": {},
}

// ignoredDoubleExtensions covers the compound suffixes in spec.md §4.2
// (min.js, min.css) that a single path.Ext pass would miss.
var ignoredDoubleExtensions = []string{".min.js", ".min.css", ".map"}

// ShouldIndex reports whether path should be recorded as a change
// event. Basename matching is exact-case; extension matching is
// case-insensitive. See spec.md §4.2.
func ShouldIndex(p string) bool {
	base := path.Base(p)
	if _, skip := ignoredBasenames[base]; skip {
		return false
	}

	lower := strings.ToLower(p)
	for _, suffix := range ignoredDoubleExtensions {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(base), "."))
	if ext == "" {
		return true
	}
	_, skip := ignoredExtensions[ext]
	return !skip
}
