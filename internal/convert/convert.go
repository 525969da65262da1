// Package convert transcodes the two legacy formats left behind by the
// sorter: webp images become png and ts streams are remuxed into mp4.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fenilsonani/orgest/internal/deps"
	"github.com/fenilsonani/orgest/internal/fsx"
	"github.com/fenilsonani/orgest/internal/logging"
	"github.com/fenilsonani/orgest/internal/stage"
)

// Provisioner ensures the transcoding tool is installed
type Provisioner interface {
	Ensure(ctx context.Context) (deps.Status, error)
}

// target describes one conversion rule
type target struct {
	kind       string // source extension without the dot
	ext        string // output extension
	streamCopy bool
}

// rules run in this order
var rules = []target{
	{kind: "webp", ext: ".png"},
	{kind: "ts", ext: ".mp4", streamCopy: true},
}

// Result reports what a conversion pass did
type Result struct {
	stage.Base
	Found     map[string]int
	Converted map[string]int
	Failed    int
	ToolPath  string
}

// Processed counts successful conversions
func (r *Result) Processed() int {
	total := 0
	for _, n := range r.Converted {
		total += n
	}
	return total
}

// Summary implements stage.Outcome
func (r *Result) Summary() []stage.Field {
	var fields []stage.Field
	for _, rule := range rules {
		fields = append(fields, stage.Field{
			Label: fmt.Sprintf("%s converted", strings.ToUpper(rule.kind)),
			Value: fmt.Sprintf("%d/%d", r.Converted[rule.kind], r.Found[rule.kind]),
		})
	}
	if r.Failed > 0 {
		fields = append(fields, stage.Field{Label: "Conversion failures", Value: fmt.Sprint(r.Failed)})
	}
	return append(fields, r.BaseSummary()...)
}

// Converter runs the transcoding stage
type Converter struct {
	env         stage.Env
	mover       *fsx.Mover
	transcoder  Transcoder
	provisioner Provisioner
}

// New creates a Converter. A nil transcoder uses the configured ffmpeg
// command; a nil provisioner skips the availability check.
func New(env stage.Env, transcoder Transcoder, provisioner Provisioner) *Converter {
	env = env.WithDefaults()
	return &Converter{
		env:         env,
		mover:       env.Mover(),
		transcoder:  transcoder,
		provisioner: provisioner,
	}
}

// Run converts every webp and ts file below root. Originals of successful
// conversions go to the trash folder; failed ones stay where they are.
func (c *Converter) Run(ctx context.Context, root string) *Result {
	start := time.Now()
	res := &Result{
		Base:      stage.Base{Stage: stage.Convert},
		Found:     make(map[string]int),
		Converted: make(map[string]int),
	}
	defer func() { res.Duration = time.Since(start) }()

	logger := c.env.Logger.With(logging.FieldStage, stage.Convert)
	folders := c.env.Config.Folders

	transcoder := c.transcoder
	if c.provisioner != nil {
		status, err := c.provisioner.Ensure(ctx)
		if err != nil {
			if ctx.Err() != nil {
				res.Interrupt(err)
				return res
			}
			res.Fail(stage.CodeToolMissing, err)
			logger.Error("transcoder unavailable, skipping conversions", logging.Error(err))
			return res
		}
		res.ToolPath = status.Path
		if transcoder == nil {
			transcoder = NewFFmpeg(status.Path)
		}
	}
	if transcoder == nil {
		transcoder = NewFFmpeg(c.env.Config.Transcoder.Command)
	}

	exclude := append([]string{folders.Trash, folders.Backup, folders.Failures}, folders.VendorBackups...)
	listing, err := c.env.Walk(ctx, root, exclude...)
	if err != nil {
		if ctx.Err() != nil {
			res.Interrupt(err)
		} else {
			res.Err = err
		}
		return res
	}

	queues := make(map[string][]string)
	total := 0
	for _, file := range listing.Files {
		kind := strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Path)), ".")
		for _, rule := range rules {
			if rule.kind == kind {
				queues[kind] = append(queues[kind], file.Path)
				res.Found[kind]++
				total++
			}
		}
	}

	logger.Info("conversion candidates found", "webp", res.Found["webp"], "ts", res.Found["ts"])

	tracker := c.env.Progress.Start(stage.Convert, total)
	trash := filepath.Join(root, folders.Trash)

	for _, rule := range rules {
		for _, src := range queues[rule.kind] {
			if err := ctx.Err(); err != nil {
				res.Interrupt(err)
				tracker.Done(err)
				return res
			}

			ok := c.convertOne(ctx, transcoder, rule, src, trash, res)
			tracker.Step(src, ok)
		}
	}
	tracker.Done(nil)

	logger.Info("conversions finished",
		"converted", res.Processed(),
		"failed", res.Failed,
	)
	return res
}

func (c *Converter) convertOne(ctx context.Context, transcoder Transcoder, rule target, src, trash string, res *Result) bool {
	logger := c.env.Logger.With(logging.FieldStage, stage.Convert)

	dir := filepath.Dir(src)
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	dst, _, err := fsx.FreePath(dir, stem+rule.ext)
	if err != nil {
		res.Failed++
		res.AddFailure(fsx.CategorizeError("convert", src, err))
		return false
	}

	if err := transcoder.Transcode(ctx, src, dst, rule.streamCopy); err != nil {
		res.Failed++
		res.AddFailure(fsx.CategorizeError("convert", src, err))
		if rmErr := os.Remove(dst); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warn("failed to remove partial output", logging.FieldPath, dst, logging.Error(rmErr))
		}
		logger.Warn("conversion failed", logging.FieldPath, src, logging.Error(err))
		return false
	}

	res.Converted[rule.kind]++
	logger.Debug("converted file", logging.FieldPath, src, logging.FieldDest, dst)

	// The conversion stands even if the original cannot be moved aside
	moved := c.mover.Move(src, trash)
	if !moved.Success {
		res.AddFailure(moved.Err)
		logger.Warn("converted but original not moved to trash",
			logging.FieldPath, src,
			logging.Error(moved.Err),
		)
	}
	return true
}
