// Package normalize rewrites images into a form every downstream tool can
// read: flat RGB, bounded dimensions, re-encoded with fixed quality.
//
// Each original is first moved into the backup folder and the normalized
// image is decoded from that backup. When processing fails the backup is
// quarantined in the failures folder next to an error sidecar, so exactly one
// copy of the original bytes exists after every file.
package normalize

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/fenilsonani/orgest/internal/fsx"
	"github.com/fenilsonani/orgest/internal/logging"
	"github.com/fenilsonani/orgest/internal/stage"
)

// Result reports what a normalize pass did
type Result struct {
	stage.Base
	Found          int
	Normalized     int
	Resized        int
	Flattened      int
	Quarantined    int
	BackupFailures int
	FailuresKept   bool // the failures folder remains on disk
}

// Processed counts images rewritten successfully
func (r *Result) Processed() int { return r.Normalized }

// Summary implements stage.Outcome
func (r *Result) Summary() []stage.Field {
	fields := []stage.Field{
		{Label: "Images found", Value: fmt.Sprint(r.Found)},
		{Label: "Normalized", Value: fmt.Sprint(r.Normalized)},
		{Label: "Resized", Value: fmt.Sprint(r.Resized)},
		{Label: "Transparency flattened", Value: fmt.Sprint(r.Flattened)},
		{Label: "Quarantined", Value: fmt.Sprint(r.Quarantined)},
	}
	if r.BackupFailures > 0 {
		fields = append(fields, stage.Field{Label: "Not backed up (left as is)", Value: fmt.Sprint(r.BackupFailures)})
	}
	return append(fields, r.BaseSummary()...)
}

// Normalizer runs the image normalization stage
type Normalizer struct {
	env   stage.Env
	mover *fsx.Mover
	codec Codec
	now   func() time.Time
}

// New creates a Normalizer. A nil codec uses ImagingCodec.
func New(env stage.Env, codec Codec) *Normalizer {
	env = env.WithDefaults()
	if codec == nil {
		codec = NewImagingCodec(env.Config.Normalize)
	}
	return &Normalizer{
		env:   env,
		mover: env.Mover(),
		codec: codec,
		now:   time.Now,
	}
}

// CheckCodec reports the configured extensions the codec cannot handle
func (n *Normalizer) CheckCodec() error {
	var missing []string
	for _, ext := range n.env.Config.Normalize.Extensions {
		if !n.codec.Supports(strings.ToLower(ext)) {
			missing = append(missing, ext)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: no codec for %s", stage.ErrDependencyMissing, strings.Join(missing, ", "))
	}
	return nil
}

// Run normalizes every image below root outside the reserved folders
func (n *Normalizer) Run(ctx context.Context, root string) *Result {
	start := time.Now()
	res := &Result{Base: stage.Base{Stage: stage.Normalize}}
	defer func() { res.Duration = time.Since(start) }()

	logger := n.env.Logger.With(logging.FieldStage, stage.Normalize)
	folders := n.env.Config.Folders

	if err := n.CheckCodec(); err != nil {
		res.Fail(stage.CodeDependencyMissing, err)
		logger.Error("image codec unavailable", logging.Error(err))
		return res
	}

	exclude := append([]string{folders.Trash, folders.Backup, folders.Failures}, folders.VendorBackups...)
	listing, err := n.env.Walk(ctx, root, exclude...)
	if err != nil {
		if ctx.Err() != nil {
			res.Interrupt(err)
		} else {
			res.Err = err
		}
		return res
	}

	wanted := make(map[string]struct{}, len(n.env.Config.Normalize.Extensions))
	for _, ext := range n.env.Config.Normalize.Extensions {
		wanted[strings.ToLower(ext)] = struct{}{}
	}
	var images []string
	for _, file := range listing.Files {
		if _, ok := wanted[strings.ToLower(filepath.Ext(file.Path))]; ok {
			images = append(images, file.Path)
		}
	}
	res.Found = len(images)

	if len(images) == 0 {
		logger.Info("no images to normalize")
		return res
	}

	if !n.env.Automatic {
		question := fmt.Sprintf("Start preprocessing %d image(s)? Originals are kept in %q.", len(images), folders.Backup)
		if !n.env.Prompter.Confirm(question) {
			res.Cancelled = true
			logger.Info("normalize cancelled by user")
			return res
		}
	}

	backupDir := filepath.Join(root, folders.Backup)
	failuresDir := filepath.Join(root, folders.Failures)
	tracker := n.env.Progress.Start(stage.Normalize, len(images))

	for _, path := range images {
		if err := ctx.Err(); err != nil {
			res.Interrupt(err)
			tracker.Done(err)
			return res
		}
		ok := n.processOne(path, backupDir, failuresDir, res)
		tracker.Step(path, ok)
	}
	tracker.Done(nil)

	n.tidyFailures(failuresDir, res)

	logger.Info("normalize finished",
		"normalized", res.Normalized,
		"resized", res.Resized,
		"quarantined", res.Quarantined,
	)
	return res
}

// processOne backs up, transforms and rewrites one image
func (n *Normalizer) processOne(path, backupDir, failuresDir string, res *Result) bool {
	logger := n.env.Logger.With(logging.FieldStage, stage.Normalize)

	backup := n.mover.Move(path, backupDir)
	if !backup.Success {
		res.BackupFailures++
		res.AddFailure(backup.Err)
		logger.Warn("failed to back up original, leaving it untouched",
			logging.FieldPath, path,
			logging.Error(backup.Err),
		)
		return false
	}

	resized, flattened, err := n.rewrite(backup.Destination, path)
	if err != nil {
		n.quarantine(backup.Destination, failuresDir, err, res)
		return false
	}

	res.Normalized++
	if resized {
		res.Resized++
	}
	if flattened {
		res.Flattened++
	}
	logger.Debug("normalized image",
		logging.FieldPath, path,
		"backup", backup.Destination,
		"resized", resized,
		"flattened", flattened,
	)
	return true
}

// rewrite decodes src and writes the normalized image to dst atomically.
// Decoder panics on malformed input are returned as errors.
func (n *Normalizer) rewrite(src, dst string) (resized, flattened bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("image processing panicked: %v", r)
		}
	}()

	img, err := n.codec.Decode(src)
	if err != nil {
		return false, false, err
	}

	if needsFlatten(img) {
		img = flattenOnWhite(img)
		flattened = true
	}

	if scaled, ok := fitWithin(img, n.env.Config.Normalize.MaxDimension); ok {
		img = scaled
		resized = true
	}

	ext := strings.ToLower(filepath.Ext(dst))
	err = fsx.WriteAtomic(dst, func(w io.Writer) error {
		return n.codec.Encode(w, img, ext)
	})
	if err != nil {
		return false, false, fmt.Errorf("encode %s: %w", filepath.Base(dst), err)
	}
	return resized, flattened, nil
}

// quarantine moves the backup copy into the failures folder and writes a
// sidecar describing the error
func (n *Normalizer) quarantine(backup, failuresDir string, cause error, res *Result) {
	logger := n.env.Logger.With(logging.FieldStage, stage.Normalize)
	res.AddFailure(fsx.CategorizeError("normalize", backup, cause))

	moved := n.mover.Move(backup, failuresDir)
	if !moved.Success {
		// The backup stays in the backup folder; still exactly one copy
		res.AddFailure(moved.Err)
		logger.Error("failed to quarantine image",
			logging.FieldPath, backup,
			logging.Error(moved.Err),
		)
		return
	}
	res.Quarantined++

	name := filepath.Base(moved.Destination)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	sidecar, _, err := fsx.FreePath(failuresDir, stem+"_error.txt")
	if err == nil {
		report := fmt.Sprintf("Failed to process: %s\nError: %v\nDate: %s\n",
			name, cause, n.now().Format(time.RFC3339))
		err = fsx.WriteFileAtomic(sidecar, []byte(report))
	}
	if err != nil {
		logger.Warn("failed to write error sidecar", logging.FieldPath, sidecar, logging.Error(err))
	}

	logger.Warn("image quarantined",
		logging.FieldPath, moved.Destination,
		logging.FieldReason, cause.Error(),
	)
}

// tidyFailures removes an empty failures folder after a clean run
func (n *Normalizer) tidyFailures(dir string, res *Result) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	if res.Quarantined == 0 && len(entries) == 0 {
		if err := os.Remove(dir); err == nil {
			return
		}
	}
	res.FailuresKept = true
}

// needsFlatten reports whether img carries a palette or transparency
func needsFlatten(img image.Image) bool {
	if _, ok := img.(*image.Paletted); ok {
		return true
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return false
}

// flattenOnWhite composites img over an opaque white background
func flattenOnWhite(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// fitWithin downscales img with Lanczos so neither side exceeds limit,
// preserving the aspect ratio. ok is false when img already fits.
func fitWithin(img image.Image, limit int) (image.Image, bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if limit <= 0 || (w <= limit && h <= limit) {
		return img, false
	}

	// Scale by the longer side; integer math keeps that side exactly at limit
	nw, nh := limit, h*limit/w
	if h > w {
		nw, nh = w*limit/h, limit
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return imaging.Resize(img, nw, nh, imaging.Lanczos), true
}
