package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/fenilsonani/orgest/internal/platform"
	"github.com/fenilsonani/orgest/pkg/utils"
)

// ErrLocked is returned when another run already holds the root
var ErrLocked = errors.New("another orgest run is using this folder")

// RunLock is an exclusive advisory lock on one root folder
type RunLock struct {
	fl   *flock.Flock
	path string
}

// AcquireRunLock locks root using a lock file in the user state directory
func AcquireRunLock(root string) (*RunLock, error) {
	dir, err := platform.StateDir()
	if err != nil {
		return nil, err
	}
	return AcquireRunLockIn(dir, root)
}

// AcquireRunLockIn locks root using a lock file in dir. It never blocks:
// a held lock returns ErrLocked.
func AcquireRunLockIn(dir, root string) (*RunLock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	// The lock file lives outside root so no stage ever walks over it
	path := filepath.Join(dir, utils.HashString(filepath.Clean(root))[:16]+".lock")
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", root, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", root, ErrLocked)
	}

	return &RunLock{fl: fl, path: path}, nil
}

// Path returns the lock file path
func (l *RunLock) Path() string {
	return l.path
}

// Release unlocks the root
func (l *RunLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
