package cleaner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fenilsonani/orgest/internal/fsx"
	"github.com/fenilsonani/orgest/internal/logging"
	"github.com/fenilsonani/orgest/internal/security"
	"github.com/fenilsonani/orgest/internal/stage"
	"github.com/fenilsonani/orgest/pkg/utils"
)

// FolderReport describes one working folder offered for removal
type FolderReport struct {
	Name    string
	Path    string
	Size    int64
	Files   int
	Removed bool
	Skipped string // why the folder was kept, empty when removed
}

// Result reports what a cleanup pass did
type Result struct {
	stage.Base
	Folders    []FolderReport
	FreedBytes int64
}

// Processed is always zero: cleanup deletes working copies, it does not
// organize any file
func (r *Result) Processed() int { return 0 }

// Removed returns how many folders were deleted
func (r *Result) Removed() int {
	n := 0
	for _, f := range r.Folders {
		if f.Removed {
			n++
		}
	}
	return n
}

// Summary implements stage.Outcome
func (r *Result) Summary() []stage.Field {
	var fields []stage.Field
	for _, f := range r.Folders {
		state := "kept"
		if f.Removed {
			state = "deleted"
		} else if f.Skipped != "" {
			state = "kept (" + f.Skipped + ")"
		}
		fields = append(fields, stage.Field{
			Label: f.Name,
			Value: fmt.Sprintf("%s in %s files, %s", utils.FormatBytes(f.Size), utils.FormatCount(f.Files), state),
		})
	}
	fields = append(fields, stage.Field{Label: "Space freed", Value: utils.FormatBytes(r.FreedBytes)})
	return append(fields, r.BaseSummary()...)
}

// Cleaner removes the trash and backup folders, one confirmation per folder
type Cleaner struct {
	env       stage.Env
	validator *security.PathValidator
	retries   []time.Duration
}

// New creates a new Cleaner
func New(env stage.Env) *Cleaner {
	return &Cleaner{
		env:       env.WithDefaults(),
		validator: security.NewPathValidator(),
		retries: []time.Duration{
			100 * time.Millisecond,
			500 * time.Millisecond,
			2 * time.Second,
		},
	}
}

// Targets returns the folders cleanup offers to delete, in order
func (c *Cleaner) Targets(root string) []string {
	folders := c.env.Config.Folders
	return []string{
		filepath.Join(root, folders.Trash),
		filepath.Join(root, folders.Backup),
	}
}

// Inspect reports size and file count for every target folder that exists
func (c *Cleaner) Inspect(root string) []FolderReport {
	var reports []FolderReport
	for _, path := range c.Targets(root) {
		info, err := os.Lstat(path)
		if err != nil || !info.IsDir() {
			continue
		}
		size, files, err := utils.DirUsage(path)
		if err != nil {
			c.env.Logger.Warn("failed to measure folder", logging.FieldPath, path, logging.Error(err))
		}
		reports = append(reports, FolderReport{
			Name:  filepath.Base(path),
			Path:  path,
			Size:  size,
			Files: files,
		})
	}
	return reports
}

// Run asks about each existing target folder and deletes the confirmed ones.
// Nothing is deleted without an explicit yes, in every mode.
func (c *Cleaner) Run(ctx context.Context, root string) *Result {
	start := time.Now()
	res := &Result{Base: stage.Base{Stage: stage.Clean}}
	defer func() { res.Duration = time.Since(start) }()

	logger := c.env.Logger.With(logging.FieldStage, stage.Clean)

	res.Folders = c.Inspect(root)
	if len(res.Folders) == 0 {
		logger.Info("no working folders to clean")
		return res
	}

	tracker := c.env.Progress.Start(stage.Clean, len(res.Folders))
	for i := range res.Folders {
		if err := ctx.Err(); err != nil {
			res.Interrupt(err)
			tracker.Done(err)
			return res
		}

		folder := &res.Folders[i]
		question := fmt.Sprintf("Delete folder %q (%s in %s files)?",
			folder.Name, utils.FormatBytes(folder.Size), utils.FormatCount(folder.Files))
		if !c.env.Prompter.Confirm(question) {
			folder.Skipped = "declined"
			tracker.Step(folder.Path, true)
			logger.Info("folder kept", logging.FieldPath, folder.Path)
			continue
		}

		if err := c.removeFolder(root, folder.Path); err != nil {
			folder.Skipped = err.UserMessage()
			res.AddFailure(err)
			tracker.Step(folder.Path, false)
			logger.Warn("failed to delete folder", logging.FieldPath, folder.Path, logging.Error(err))
			continue
		}

		folder.Removed = true
		res.FreedBytes += folder.Size
		tracker.Step(folder.Path, true)
		logger.Info("folder deleted",
			logging.FieldPath, folder.Path,
			"freed", utils.FormatBytes(folder.Size),
		)
	}
	tracker.Done(nil)

	return res
}

// removeFolder deletes path after re-checking it, retrying transient errors
func (c *Cleaner) removeFolder(root, path string) *fsx.OpError {
	if err := c.validator.ValidatePathForRemoval(root, path); err != nil {
		return &fsx.OpError{Op: "remove", Path: path, Reason: fsx.ReasonUnknown, Err: err}
	}

	// Use Lstat so a folder swapped for a symlink is never followed
	info, err := os.Lstat(path)
	if err != nil {
		return fsx.CategorizeError("remove", path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 || !info.IsDir() {
		return &fsx.OpError{Op: "remove", Path: path, Reason: fsx.ReasonUnknown, Err: fmt.Errorf("no longer a plain directory")}
	}

	var lastErr *fsx.OpError
	for attempt := 0; attempt <= len(c.retries); attempt++ {
		err := os.RemoveAll(path)
		if err == nil {
			return nil
		}
		lastErr = fsx.CategorizeError("remove", path, err)
		if !lastErr.Retryable || attempt == len(c.retries) {
			break
		}
		time.Sleep(c.retries[attempt])
	}
	return lastErr
}
