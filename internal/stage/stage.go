// Package stage holds the contracts shared by every pipeline stage: the
// injected environment, the prompter capability, and the result base.
package stage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fenilsonani/orgest/internal/config"
	"github.com/fenilsonani/orgest/internal/fsx"
	"github.com/fenilsonani/orgest/internal/logging"
	"github.com/fenilsonani/orgest/internal/progress"
	"github.com/fenilsonani/orgest/internal/scanner"
)

// Stage names, also accepted by `orgest run`
const (
	Dedup     = "dedup"
	Sort      = "sort"
	Convert   = "convert"
	Flatten   = "flatten"
	Verify    = "verify"
	Normalize = "normalize"
	Clean     = "clean"
)

// Names lists the automatic-mode order
var Names = []string{Dedup, Sort, Convert, Flatten, Verify, Normalize, Clean}

// Field is one labelled line of a stage summary
type Field struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Outcome is the structured result every stage returns, even on failure
type Outcome interface {
	Name() string
	// Processed is the number of files this stage moved, converted or rewrote
	Processed() int
	Code() ErrorCode
	Error() error
	FileFailures() []*fsx.OpError
	Elapsed() time.Duration
	Summary() []Field
}

// Base carries the fields shared by every stage result
type Base struct {
	Stage     string
	Cancelled bool // the user declined a confirmation
	ErrorCode ErrorCode
	Err       error
	Failures  []*fsx.OpError
	Duration  time.Duration
}

func (b *Base) Name() string    { return b.Stage }
func (b *Base) Code() ErrorCode { return b.ErrorCode }
func (b *Base) Error() error    { return b.Err }

// FileFailures returns the per-file failures recorded so far
func (b *Base) FileFailures() []*fsx.OpError { return b.Failures }

// Elapsed returns how long the stage ran
func (b *Base) Elapsed() time.Duration { return b.Duration }

// Fail marks the stage as aborted with code
func (b *Base) Fail(code ErrorCode, err error) {
	b.ErrorCode = code
	b.Err = err
}

// Interrupt records a context cancellation
func (b *Base) Interrupt(err error) {
	b.Fail(CodeInterrupted, err)
}

// AddFailure records a per-file failure
func (b *Base) AddFailure(err *fsx.OpError) {
	if err != nil {
		b.Failures = append(b.Failures, err)
	}
}

// BaseSummary returns the fields every stage reports
func (b *Base) BaseSummary() []Field {
	var fields []Field
	if b.Cancelled {
		fields = append(fields, Field{"Cancelled", "yes"})
	}
	if len(b.Failures) > 0 {
		fields = append(fields, Field{"Failures", fmt.Sprint(len(b.Failures))})
	}
	if b.ErrorCode != CodeNone {
		fields = append(fields, Field{"Error code", string(b.ErrorCode)})
	}
	return fields
}

// Env is what a stage needs from its caller, passed at construction
type Env struct {
	Config    *config.Config
	Logger    *slog.Logger
	Prompter  Prompter
	Progress  *progress.Reporter
	Automatic bool
}

// WithDefaults fills unset collaborators: default config, a discarding
// logger, and a prompter that declines everything
func (e Env) WithDefaults() Env {
	if e.Config == nil {
		e.Config = config.GetDefault()
	}
	e.Logger = logging.OrNop(e.Logger)
	if e.Prompter == nil {
		e.Prompter = Auto{Yes: false}
	}
	return e
}

// Mover returns a collision-safe mover logging through the env's logger
func (e Env) Mover() *fsx.Mover {
	return fsx.NewMover(e.Logger)
}

// Walk lists the files below root, skipping directories named in exclude
// and paths matched by configured or .orgestignore patterns
func (e Env) Walk(ctx context.Context, root string, exclude ...string) (*scanner.Listing, error) {
	ignore, err := scanner.LoadIgnore(root, e.Config.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	listing, err := scanner.NewWalker(root, scanner.WalkOptions{Exclude: exclude, Ignore: ignore}).Collect(ctx)
	for _, walkErr := range listingErrors(listing) {
		e.Logger.Warn("walk error", logging.Error(walkErr))
	}
	return listing, err
}

// Scanner returns a duplicate scanner with the same exclusions Walk applies
func (e Env) Scanner(root string, exclude ...string) (*scanner.Scanner, error) {
	ignore, err := scanner.LoadIgnore(root, e.Config.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	return scanner.New(scanner.Options{
		Exclude: exclude,
		Ignore:  ignore,
		Logger:  e.Logger,
	}), nil
}

func listingErrors(l *scanner.Listing) []error {
	if l == nil {
		return nil
	}
	return l.Errors
}
