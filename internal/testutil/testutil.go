// Package testutil provides test helpers and fixtures for orgest tests.
// All file operations use t.TempDir() for safe, isolated testing.
package testutil

import (
	"crypto/rand"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/disintegration/imaging"
)

// TestFixture holds the root of a throwaway directory tree
type TestFixture struct {
	T       *testing.T
	RootDir string // Root temp directory (auto-cleaned)
}

// NewFixture creates a new test fixture rooted in a fresh temp directory
func NewFixture(t *testing.T) *TestFixture {
	t.Helper()

	return &TestFixture{
		T:       t,
		RootDir: t.TempDir(),
	}
}

// =============================================================================
// File Creation Helpers
// =============================================================================

// CreateFile creates a file with specified content and returns its path
func (f *TestFixture) CreateFile(relPath string, content []byte) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		f.T.Fatalf("failed to create file %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateFiles creates every relPath -> content pair
func (f *TestFixture) CreateFiles(files map[string]string) {
	f.T.Helper()
	for relPath, content := range files {
		f.CreateFile(relPath, []byte(content))
	}
}

// CreateRandomFile creates a file with random content
func (f *TestFixture) CreateRandomFile(relPath string, size int) string {
	f.T.Helper()
	content := make([]byte, size)
	rand.Read(content)
	return f.CreateFile(relPath, content)
}

// CreateImage writes a solid-colour image, encoded by extension
func (f *TestFixture) CreateImage(relPath string, width, height int, c color.Color) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		f.T.Fatalf("failed to create directory for %s: %v", fullPath, err)
	}

	img := imaging.New(width, height, c)
	if err := imaging.Save(img, fullPath); err != nil {
		f.T.Fatalf("failed to write image %s: %v", fullPath, err)
	}

	return fullPath
}

// =============================================================================
// Directory Helpers
// =============================================================================

// CreateDir creates a directory and returns its path
func (f *TestFixture) CreateDir(relPath string) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(fullPath, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateDirWithMode creates a directory with specific permissions and
// restores write access on cleanup so t.TempDir can remove it
func (f *TestFixture) CreateDirWithMode(relPath string, mode os.FileMode) string {
	f.T.Helper()

	fullPath := f.CreateDir(relPath)
	if err := os.Chmod(fullPath, mode); err != nil {
		f.T.Fatalf("failed to chmod %s: %v", fullPath, err)
	}
	f.T.Cleanup(func() {
		os.Chmod(fullPath, 0755)
	})

	return fullPath
}

// Chmod changes the mode of path and restores owner read/write on cleanup
func Chmod(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	if err := os.Chmod(path, mode); err != nil {
		t.Fatalf("failed to chmod %s: %v", path, err)
	}
	t.Cleanup(func() {
		os.Chmod(path, 0755)
	})
}

// CreateSymlink creates a symlink at linkPath pointing to target
func (f *TestFixture) CreateSymlink(target, linkPath string) string {
	f.T.Helper()

	fullLink := filepath.Join(f.RootDir, linkPath)
	if err := os.MkdirAll(filepath.Dir(fullLink), 0755); err != nil {
		f.T.Fatalf("failed to create directory for symlink: %v", err)
	}
	if err := os.Symlink(target, fullLink); err != nil {
		f.T.Fatalf("failed to create symlink %s -> %s: %v", fullLink, target, err)
	}

	return fullLink
}

// =============================================================================
// Path Helpers
// =============================================================================

// Path returns the full path for a relative path within the fixture
func (f *TestFixture) Path(relPath string) string {
	return filepath.Join(f.RootDir, relPath)
}

// RelPath returns the relative path from the fixture root
func (f *TestFixture) RelPath(fullPath string) string {
	rel, _ := filepath.Rel(f.RootDir, fullPath)
	return filepath.ToSlash(rel)
}

// ListFiles returns the slash-separated relative paths of every regular file
// below the fixture root, sorted
func (f *TestFixture) ListFiles() []string {
	f.T.Helper()

	var files []string
	err := filepath.WalkDir(f.RootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, f.RelPath(path))
		}
		return nil
	})
	if err != nil {
		f.T.Fatalf("failed to list fixture files: %v", err)
	}

	sort.Strings(files)
	return files
}

// =============================================================================
// Assertion Helpers
// =============================================================================

// FileExists checks if a file exists
func (f *TestFixture) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// AssertFileExists fails the test if the file doesn't exist
func (f *TestFixture) AssertFileExists(path string) {
	f.T.Helper()
	if !f.FileExists(path) {
		f.T.Errorf("expected file to exist: %s", path)
	}
}

// AssertFileNotExists fails the test if the file exists
func (f *TestFixture) AssertFileNotExists(path string) {
	f.T.Helper()
	if f.FileExists(path) {
		f.T.Errorf("expected file to not exist: %s", path)
	}
}

// AssertFileContent fails the test if the file content differs from want
func (f *TestFixture) AssertFileContent(path string, want string) {
	f.T.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		f.T.Errorf("failed to read %s: %v", path, err)
		return
	}
	if string(data) != want {
		f.T.Errorf("file %s has content %q, want %q", path, string(data), want)
	}
}

// =============================================================================
// Environment Helpers
// =============================================================================

// IsRoot reports whether tests run with root privileges
func IsRoot() bool {
	return runtime.GOOS != "windows" && os.Geteuid() == 0
}

// SkipIfRoot skips permission tests that root would bypass
func SkipIfRoot(t *testing.T) {
	t.Helper()
	if IsRoot() {
		t.Skip("skipping test when running as root")
	}
}

// SkipOnWindows skips tests that rely on POSIX permissions or symlinks
func SkipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on windows")
	}
}
