// Package dedup moves every later copy of identical content into the trash
// folder, keeping the first copy in walk order.
package dedup

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
)

// Result reports what a dedup pass did
type Result struct {
	stage.Base
	TotalScanned    int
	Unhashable      int
	DuplicatesFound int
	Relocated       int
	DuplicateBytes  int64
	TrashRemoved    bool
}

// Processed counts relocated duplicates
func (r *Result) Processed() int { return r.Relocated }

// Summary implements stage.Outcome
func (r *Result) Summary() []stage.Field {
	fields := []stage.Field{
		{Label: "Files scanned", Value: fmt.Sprint(r.TotalScanned)},
		{Label: "Unhashable", Value: fmt.Sprint(r.Unhashable)},
		{Label: "Duplicates found", Value: fmt.Sprint(r.DuplicatesFound)},
		{Label: "Moved to trash", Value: fmt.Sprint(r.Relocated)},
	}
	if r.TrashRemoved {
		fields = append(fields, stage.Field{Label: "Trash deleted", Value: "yes"})
	}
	return append(fields, r.BaseSummary()...)
}

// Deduplicator relocates duplicate files into root/<trash>
type Deduplicator struct {
	env       stage.Env
	name      string
	mover     *fsx.Mover
	validator *security.PathValidator
}

// New creates the first-pass deduplicator
func New(env stage.Env) *Deduplicator {
	return newNamed(env, stage.Dedup)
}

// NewVerifier creates the final verification pass. It behaves exactly like
// the first pass and only reports under a different name.
func NewVerifier(env stage.Env) *Deduplicator {
	return newNamed(env, stage.Verify)
}

func newNamed(env stage.Env, name string) *Deduplicator {
	env = env.WithDefaults()
	return &Deduplicator{
		env:       env,
		name:      name,
		mover:     env.Mover(),
		validator: security.NewPathValidator(),
	}
}

// Run scans root, excluding the trash folder, and moves each duplicate into
// it. Outside automatic mode the user may then delete the trash folder.
func (d *Deduplicator) Run(ctx context.Context, root string) *Result {
	start := time.Now()
	res := &Result{Base: stage.Base{Stage: d.name}}
	defer func() { res.Duration = time.Since(start) }()

	logger := d.env.Logger.With(logging.FieldStage, d.name)
	trash := filepath.Join(root, d.env.Config.Folders.Trash)

	sc, err := d.env.Scanner(root, d.env.Config.Folders.Trash)
	if err != nil {
		res.Err = err
		return res
	}

	listing, err := sc.Collect(ctx, root)
	if err != nil {
		if ctx.Err() != nil {
			res.Interrupt(err)
		} else {
			res.Err = err
		}
		return res
	}

	tracker := d.env.Progress.Start(d.name, len(listing.Files))
	sc.SetProgressCallback(func(_, _ int, path string) {
		tracker.Step(path, true)
	})

	scan, err := sc.ScanListing(ctx, listing)
	res.TotalScanned = scan.TotalScanned
	res.Unhashable = len(scan.Unhashable)
	res.DuplicatesFound = len(scan.Duplicates)
	res.DuplicateBytes = scan.DuplicateSize()
	if err != nil {
		res.Interrupt(err)
		tracker.Done(err)
		return res
	}

	logger.Info("duplicate scan finished",
		"scanned", res.TotalScanned,
		"duplicates", res.DuplicatesFound,
		"unhashable", res.Unhashable,
	)

	for _, dup := range scan.Duplicates {
		if err := ctx.Err(); err != nil {
			res.Interrupt(err)
			tracker.Done(err)
			return res
		}

		moved := d.mover.Move(dup.Path, trash)
		if !moved.Success {
			res.AddFailure(moved.Err)
			logger.Warn("failed to move duplicate",
				logging.FieldPath, dup.Path,
				logging.Error(moved.Err),
			)
			continue
		}
		res.Relocated++
		logger.Debug("moved duplicate to trash",
			logging.FieldPath, dup.Path,
			logging.FieldDest, moved.Destination,
			"canonical", dup.CanonicalPath,
		)
	}
	tracker.Done(nil)

	// Only offer when this pass put something in the trash folder
	if !d.env.Automatic && res.Relocated > 0 {
		d.offerTrashRemoval(root, trash, res)
	}

	return res
}

func (d *Deduplicator) offerTrashRemoval(root, trash string, res *Result) {
	if info, err := os.Stat(trash); err != nil || !info.IsDir() {
		return
	}

	question := fmt.Sprintf("Trash folder %q holds %d moved duplicate(s). Delete it now?",
		d.env.Config.Folders.Trash, res.Relocated)
	if !d.env.Prompter.Confirm(question) {
		d.env.Logger.Info("trash folder kept", logging.FieldPath, trash)
		return
	}

	if err := d.validator.ValidatePathForRemoval(root, trash); err != nil {
		res.AddFailure(fsx.CategorizeError("remove", trash, err))
		return
	}
	if err := os.RemoveAll(trash); err != nil {
		res.AddFailure(fsx.CategorizeError("remove", trash, err))
		d.env.Logger.Warn("failed to delete trash folder", logging.FieldPath, trash, logging.Error(err))
		return
	}
	res.TrashRemoved = true
	d.env.Logger.Info("trash folder deleted", logging.FieldPath, trash)
}
