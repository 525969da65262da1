package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotDirectory is returned when a root path exists but is not a directory
var ErrNotDirectory = errors.New("not a directory")

// PathValidator validates user-supplied roots and the paths derived from them
type PathValidator struct {
	protectedPaths []string
}

// NewPathValidator creates a new PathValidator with default protected paths
func NewPathValidator() *PathValidator {
	pv := &PathValidator{
		protectedPaths: []string{
			// Unix system directories
			"/",
			"/bin",
			"/boot",
			"/dev",
			"/etc",
			"/lib",
			"/lib64",
			"/proc",
			"/sbin",
			"/sys",
			"/usr",
			"/var",
			// macOS system directories
			"/System",
			"/Applications",
			"/Library",
		},
	}
	// Organizing the whole home directory would flatten dotfiles into it
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		pv.AddProtectedPath(home)
		if resolved, err := filepath.EvalSymlinks(home); err == nil && resolved != home {
			pv.AddProtectedPath(resolved)
		}
	}
	return pv
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// ValidateRoot checks that path names an existing, writable directory that is
// safe to reorganize and returns its cleaned absolute form
func (pv *PathValidator) ValidateRoot(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("root path is empty")
	}

	expanded, err := ExpandHome(path)
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	// Resolve symlinks so protected-path checks see the real location
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("root %s: %w", abs, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("root %s: %w", resolved, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %s: %w", resolved, ErrNotDirectory)
	}

	if pv.isExactlyProtected(resolved) {
		return "", fmt.Errorf("refusing to organize protected path: %s", resolved)
	}

	if err := checkWritable(resolved); err != nil {
		return "", fmt.Errorf("root %s is not writable: %w", resolved, err)
	}

	return resolved, nil
}

// ValidatePathForRemoval checks that target lies strictly inside root before a
// recursive delete
func (pv *PathValidator) ValidatePathForRemoval(root, target string) error {
	if !filepath.IsAbs(target) {
		return fmt.Errorf("path must be absolute: %s", target)
	}

	cleanRoot := filepath.Clean(root)
	cleanTarget := filepath.Clean(target)
	if cleanTarget != target {
		return fmt.Errorf("path contains suspicious elements: %s", target)
	}

	rel, err := filepath.Rel(cleanRoot, cleanTarget)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("refusing to remove %s: outside of %s", cleanTarget, cleanRoot)
	}

	if pv.isExactlyProtected(cleanTarget) {
		return fmt.Errorf("refusing to remove protected path: %s", cleanTarget)
	}

	return nil
}

func (pv *PathValidator) isExactlyProtected(cleanPath string) bool {
	for _, protected := range pv.protectedPaths {
		if cleanPath == protected {
			return true
		}
	}
	return false
}

// AddProtectedPath adds a custom protected path
func (pv *PathValidator) AddProtectedPath(path string) {
	pv.protectedPaths = append(pv.protectedPaths, filepath.Clean(path))
}

// ValidateIgnorePattern validates a gitignore-style exclude pattern
func ValidateIgnorePattern(pattern string) error {
	if strings.Contains(pattern, "..") {
		return fmt.Errorf("pattern contains directory traversal: %s", pattern)
	}

	// Each segment must still be a valid glob
	for _, segment := range strings.Split(strings.Trim(pattern, "/"), "/") {
		segment = strings.TrimPrefix(segment, "!")
		if segment == "**" {
			continue
		}
		if _, err := filepath.Match(segment, "test"); err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	}

	return nil
}
