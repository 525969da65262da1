package scanner

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// IgnoreFileName is the per-root file holding extra exclude patterns
const IgnoreFileName = ".orgestignore"

// IgnoreMatcher matches root-relative paths against gitignore-style patterns
type IgnoreMatcher struct {
	matcher gitignore.Matcher
	count   int
}

// NewIgnoreMatcher compiles the given patterns. Blank lines and # comments
// are skipped.
func NewIgnoreMatcher(lines []string) *IgnoreMatcher {
	var patterns []gitignore.Pattern
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	if len(patterns) == 0 {
		return &IgnoreMatcher{}
	}
	return &IgnoreMatcher{matcher: gitignore.NewMatcher(patterns), count: len(patterns)}
}

// LoadIgnore combines configured patterns with root/.orgestignore when present
func LoadIgnore(root string, patterns []string) (*IgnoreMatcher, error) {
	lines := append([]string(nil), patterns...)

	path := filepath.Join(root, IgnoreFileName)
	file, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
		return NewIgnoreMatcher(lines), nil
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer file.Close()

	sc := bufio.NewScanner(file)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return NewIgnoreMatcher(lines), nil
}

// Match reports whether rel (relative to the root) is ignored
func (m *IgnoreMatcher) Match(rel string, isDir bool) bool {
	if m == nil || m.matcher == nil {
		return false
	}
	segments := splitPath(rel)
	if len(segments) == 0 {
		return false
	}
	return m.matcher.Match(segments, isDir)
}

// Len returns the number of compiled patterns
func (m *IgnoreMatcher) Len() int {
	if m == nil {
		return 0
	}
	return m.count
}

func splitPath(path string) []string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			segments = append(segments, part)
		}
	}
	return segments
}
