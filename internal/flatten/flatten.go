// Package flatten pulls every file out of the subdirectories of a root and
// removes the directories left empty.
package flatten

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fenilsonani/orgest/internal/fsx"
	"github.com/fenilsonani/orgest/internal/logging"
	"github.com/fenilsonani/orgest/internal/stage"
)

// Result reports what a flatten pass did
type Result struct {
	stage.Base
	Candidates  int
	Extracted   int
	Renamed     int
	DirsRemoved int
	DirsKept    int // left in place because something is still inside
}

// Processed counts files moved into the root
func (r *Result) Processed() int { return r.Extracted }

// Summary implements stage.Outcome
func (r *Result) Summary() []stage.Field {
	fields := []stage.Field{
		{Label: "Files extracted", Value: fmt.Sprintf("%d/%d", r.Extracted, r.Candidates)},
		{Label: "Renamed on collision", Value: fmt.Sprint(r.Renamed)},
		{Label: "Folders removed", Value: fmt.Sprint(r.DirsRemoved)},
	}
	if r.DirsKept > 0 {
		fields = append(fields, stage.Field{Label: "Folders kept (not empty)", Value: fmt.Sprint(r.DirsKept)})
	}
	return append(fields, r.BaseSummary()...)
}

// Flattener moves nested files into the root
type Flattener struct {
	env   stage.Env
	mover *fsx.Mover
}

// New creates a Flattener
func New(env stage.Env) *Flattener {
	env = env.WithDefaults()
	return &Flattener{env: env, mover: env.Mover()}
}

// Run moves every file below a subdirectory of root into root, then removes
// emptied subdirectories deepest first. Outside automatic mode the user is
// asked first; declining is a cancelled outcome.
func (f *Flattener) Run(ctx context.Context, root string) *Result {
	start := time.Now()
	res := &Result{Base: stage.Base{Stage: stage.Flatten}}
	defer func() { res.Duration = time.Since(start) }()

	logger := f.env.Logger.With(logging.FieldStage, stage.Flatten)
	folders := f.env.Config.Folders

	exclude := append([]string{folders.Trash, folders.Backup, folders.Failures}, folders.VendorBackups...)
	listing, err := f.env.Walk(ctx, root, exclude...)
	if err != nil {
		if ctx.Err() != nil {
			res.Interrupt(err)
		} else {
			res.Err = err
		}
		return res
	}

	var nested []string
	for _, file := range listing.Files {
		if filepath.Dir(file.Path) != listing.Root {
			nested = append(nested, file.Path)
		}
	}
	res.Candidates = len(nested)

	if !f.env.Automatic && len(listing.Dirs) > 0 {
		question := fmt.Sprintf("Move %d file(s) from %d folder(s) into %s?", len(nested), len(listing.Dirs), root)
		if !f.env.Prompter.Confirm(question) {
			res.Cancelled = true
			logger.Info("flatten cancelled by user")
			return res
		}
	}

	tracker := f.env.Progress.Start(stage.Flatten, len(nested))
	for _, path := range nested {
		if err := ctx.Err(); err != nil {
			res.Interrupt(err)
			tracker.Done(err)
			return res
		}

		moved := f.mover.Move(path, listing.Root)
		tracker.Step(path, moved.Success)
		if !moved.Success {
			res.AddFailure(moved.Err)
			logger.Warn("failed to extract file", logging.FieldPath, path, logging.Error(moved.Err))
			continue
		}
		res.Extracted++
		if moved.Renamed {
			res.Renamed++
		}
		logger.Debug("extracted file", logging.FieldPath, path, logging.FieldDest, moved.Destination)
	}
	tracker.Done(nil)

	f.removeEmptyDirs(listing.Dirs, res)

	logger.Info("flatten finished",
		"extracted", res.Extracted,
		"dirs_removed", res.DirsRemoved,
		"dirs_kept", res.DirsKept,
	)
	return res
}

// removeEmptyDirs walks dirs in reverse preorder so every directory is
// examined after all of its descendants
func (f *Flattener) removeEmptyDirs(dirs []string, res *Result) {
	for i := len(dirs) - 1; i >= 0; i-- {
		dir := dirs[i]

		entries, err := os.ReadDir(dir)
		if err != nil {
			res.AddFailure(fsx.CategorizeError("readdir", dir, err))
			continue
		}
		if len(entries) > 0 {
			res.DirsKept++
			continue
		}

		if err := os.Remove(dir); err != nil {
			res.AddFailure(fsx.CategorizeError("rmdir", dir, err))
			f.env.Logger.Warn("failed to remove empty folder", logging.FieldPath, dir, logging.Error(err))
			continue
		}
		res.DirsRemoved++
		f.env.Logger.Debug("removed empty folder", logging.FieldPath, dir)
	}
}
