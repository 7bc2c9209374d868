package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// excludePattern is a parsed exclude pattern with its anchoring.
type excludePattern struct {
	pattern  string
	anchored bool // true = matched from the target root; false = at any depth
}

// ExcludeMatcher checks paths relative to a target root against exclude patterns.
// A pattern matches at any depth below the root unless it starts with '/'.
// A pattern that matches a directory excludes everything beneath it.
type ExcludeMatcher struct {
	patterns []excludePattern
}

// NewExcludeMatcher creates an ExcludeMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewExcludeMatcher(rawPatterns []string) (*ExcludeMatcher, error) {
	var patterns []excludePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		anchored := strings.HasPrefix(raw, "/")
		raw = strings.Trim(raw, "/")
		if raw == "" {
			continue
		}
		if !doublestar.ValidatePattern(raw) {
			return nil, fmt.Errorf("invalid exclude pattern: %q", raw)
		}
		patterns = append(patterns, excludePattern{pattern: raw, anchored: anchored})
	}
	return &ExcludeMatcher{patterns: patterns}, nil
}

// Empty reports whether the matcher has no patterns.
func (m *ExcludeMatcher) Empty() bool {
	return len(m.patterns) == 0
}

// Match reports whether the given relative path is excluded.
func (m *ExcludeMatcher) Match(relativePath string) bool {
	normalized := filepath.ToSlash(relativePath)

	for _, p := range m.patterns {
		pattern := p.pattern
		if !p.anchored {
			pattern = "**/" + pattern
		}
		if doublestar.MatchUnvalidated(pattern, normalized) ||
			doublestar.MatchUnvalidated(pattern+"/**", normalized) {
			return true
		}
	}
	return false
}

// ParseExcludeFile reads one pattern per line from path and returns the raw
// lines. Returns nil and no error if the file does not exist.
func ParseExcludeFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening exclude file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading exclude file: %w", err)
	}
	return patterns, nil
}

// JoinExcludes renders patterns in the colon-delimited form targets store,
// dropping blanks and comments.
func JoinExcludes(patterns []string) string {
	var kept []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, ":")
}
