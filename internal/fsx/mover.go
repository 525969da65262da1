package fsx

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fenilsonani/orgest/internal/logging"
)

// MoveResult is the outcome of one move attempt
type MoveResult struct {
	Source      string
	Requested   string // dstDir/basename(Source)
	Destination string // path actually used; empty on failure
	Renamed     bool   // Destination differs from Requested because of a collision
	Success     bool
	Err         *OpError
}

// Mover relocates files into directories without ever overwriting an
// existing entry. Colliding names get a numeric suffix before the extension.
type Mover struct {
	logger *slog.Logger
}

// NewMover creates a Mover
func NewMover(logger *slog.Logger) *Mover {
	return &Mover{logger: logging.OrNop(logger)}
}

// Move moves the regular file src into dstDir, creating dstDir when needed.
// On failure the source is left where it was.
func (m *Mover) Move(src, dstDir string) MoveResult {
	return m.MoveAs(src, dstDir, filepath.Base(src))
}

// MoveAs is Move with an explicit destination file name
func (m *Mover) MoveAs(src, dstDir, name string) MoveResult {
	res := MoveResult{
		Source:    src,
		Requested: filepath.Join(dstDir, name),
	}

	info, err := os.Lstat(src)
	if err != nil {
		res.Err = CategorizeError("move", src, err)
		return res
	}
	if info.IsDir() {
		res.Err = &OpError{Op: "move", Path: src, Reason: ReasonIsDirectory, Err: fmt.Errorf("refusing to move a directory")}
		return res
	}

	// Already in place
	if filepath.Clean(src) == filepath.Clean(res.Requested) {
		res.Destination = src
		res.Success = true
		return res
	}

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		res.Err = CategorizeError("mkdir", dstDir, err)
		return res
	}

	dst, renamed, err := FreePath(dstDir, name)
	if err != nil {
		res.Err = CategorizeError("move", dst, err)
		return res
	}

	if err := Rename(src, dst); err != nil {
		if !IsCrossDevice(err) {
			res.Err = CategorizeError("move", src, err)
			return res
		}
		if err := moveByCopy(src, dst); err != nil {
			res.Err = CategorizeError("move", src, err)
			return res
		}
	}

	res.Destination = dst
	res.Renamed = renamed
	res.Success = true

	m.logger.Debug("moved file",
		logging.FieldPath, src,
		logging.FieldDest, dst,
		"renamed", renamed,
	)
	return res
}

// moveByCopy is the EXDEV fallback. If the source cannot be removed after a
// verified copy, the copy is deleted so exactly one file remains.
func moveByCopy(src, dst string) error {
	if err := CopyFileVerified(src, dst); err != nil {
		return fmt.Errorf("copy across filesystems: %w", err)
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

// FreePath returns dir/name when nothing exists there, otherwise the first
// free dir/stem_N.ext probing N from 1. renamed reports whether a suffix was
// needed.
func FreePath(dir, name string) (path string, renamed bool, err error) {
	candidate := filepath.Join(dir, name)
	free, err := isFree(candidate)
	if err != nil || free {
		return candidate, false, err
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		free, err := isFree(candidate)
		if err != nil {
			return candidate, true, err
		}
		if free {
			return candidate, true, nil
		}
	}
}

func isFree(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return false, nil
	}
	if os.IsNotExist(err) {
		return true, nil
	}
	return false, err
}
