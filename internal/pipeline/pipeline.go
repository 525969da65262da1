// Package pipeline runs the organizing stages in order and keeps the run
// ledger: what ran, what it processed and what went wrong.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/fenilsonani/orgest/internal/cleaner"
	"github.com/fenilsonani/orgest/internal/config"
	"github.com/fenilsonani/orgest/internal/convert"
	"github.com/fenilsonani/orgest/internal/dedup"
	"github.com/fenilsonani/orgest/internal/deps"
	"github.com/fenilsonani/orgest/internal/flatten"
	"github.com/fenilsonani/orgest/internal/logging"
	"github.com/fenilsonani/orgest/internal/normalize"
	"github.com/fenilsonani/orgest/internal/sorter"
	"github.com/fenilsonani/orgest/internal/stage"
)

// ErrUnknownStep is returned for a step name no factory is registered for
var ErrUnknownStep = errors.New("unknown step")

// Runner runs one stage over root
type Runner func(ctx context.Context, root string) stage.Outcome

// Factory builds a stage runner for an environment
type Factory func(env stage.Env) Runner

// Observer is told when steps start and finish. The UI uses it for banners.
type Observer interface {
	StepStarted(index, total int, name string)
	StepFinished(index, total int, outcome stage.Outcome)
}

// Orchestrator sequences stages over a root folder
type Orchestrator struct {
	env       stage.Env
	factories map[string]Factory
	observer  Observer
	history   *config.HistoryStore
	now       func() time.Time
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithFactory registers or replaces the factory for a step
func WithFactory(name string, f Factory) Option {
	return func(o *Orchestrator) { o.factories[name] = f }
}

// WithTranscoder replaces the converter's transcoder and provisioner
func WithTranscoder(t convert.Transcoder, p convert.Provisioner) Option {
	return WithFactory(stage.Convert, func(env stage.Env) Runner {
		c := convert.New(env, t, p)
		return func(ctx context.Context, root string) stage.Outcome { return c.Run(ctx, root) }
	})
}

// WithObserver sets the step observer
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithHistory persists every finished ledger into store
func WithHistory(store *config.HistoryStore) Option {
	return func(o *Orchestrator) { o.history = store }
}

// New creates an Orchestrator with the default stage set
func New(env stage.Env, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		env:       env.WithDefaults(),
		factories: DefaultFactories(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DefaultFactories returns the production stage set keyed by step name
func DefaultFactories() map[string]Factory {
	return map[string]Factory{
		stage.Dedup: func(env stage.Env) Runner {
			d := dedup.New(env)
			return func(ctx context.Context, root string) stage.Outcome { return d.Run(ctx, root) }
		},
		stage.Sort: func(env stage.Env) Runner {
			s := sorter.New(env)
			return func(ctx context.Context, root string) stage.Outcome { return s.Run(ctx, root) }
		},
		stage.Convert: func(env stage.Env) Runner {
			p := deps.NewProvisioner(env.Config.Transcoder, env.Logger)
			c := convert.New(env, nil, p)
			return func(ctx context.Context, root string) stage.Outcome { return c.Run(ctx, root) }
		},
		stage.Flatten: func(env stage.Env) Runner {
			f := flatten.New(env)
			return func(ctx context.Context, root string) stage.Outcome { return f.Run(ctx, root) }
		},
		stage.Verify: func(env stage.Env) Runner {
			v := dedup.NewVerifier(env)
			return func(ctx context.Context, root string) stage.Outcome { return v.Run(ctx, root) }
		},
		stage.Normalize: func(env stage.Env) Runner {
			n := normalize.New(env, normalize.NewImagingCodec(env.Config.Normalize))
			return func(ctx context.Context, root string) stage.Outcome { return n.Run(ctx, root) }
		},
		stage.Clean: func(env stage.Env) Runner {
			c := cleaner.New(env)
			return func(ctx context.Context, root string) stage.Outcome { return c.Run(ctx, root) }
		},
	}
}

// Config returns the configuration stages run with
func (o *Orchestrator) Config() *config.Config {
	return o.env.Config
}

// NewLedger starts a ledger for a run over root
func (o *Orchestrator) NewLedger(root, mode string) *Ledger {
	return NewLedger(root, mode, o.now())
}

// CountFiles counts the files a run starts with, ignoring the trash, backup
// and failures folders
func (o *Orchestrator) CountFiles(ctx context.Context, root string) (int, error) {
	folders := o.env.Config.Folders
	listing, err := o.env.Walk(ctx, root, folders.Trash, folders.Failures, folders.Backup)
	if err != nil {
		return 0, err
	}
	return len(listing.Files), nil
}

// RunAutomatic runs every step in order without stage confirmations, then
// finishes and saves the ledger. pause waits for the user between steps.
func (o *Orchestrator) RunAutomatic(ctx context.Context, root string, pause bool) *Ledger {
	ledger := o.NewLedger(root, ModeAutomatic)
	o.RunAll(ctx, ledger, root, pause)
	o.Finish(ledger)
	return ledger
}

// RunAll runs every step into an existing ledger. It counts the starting
// files first and stops early when the context is cancelled.
func (o *Orchestrator) RunAll(ctx context.Context, ledger *Ledger, root string, pause bool) {
	logger := o.env.Logger.With(logging.FieldRunID, ledger.RunID)

	total, err := o.CountFiles(ctx, root)
	if err != nil {
		logger.Warn("failed to count files", logging.Error(err))
	}
	ledger.TotalFiles += total
	logger.Info("automatic run started", logging.FieldPath, root, "files", total, "pause", pause)

	env := o.env
	env.Automatic = true
	env.Logger = logger

	for i, name := range stage.Names {
		if err := ctx.Err(); err != nil {
			ledger.Interrupted = true
			ledger.AddError(name, "run interrupted before this step", o.now())
			break
		}

		outcome, err := o.run(ctx, env, i, len(stage.Names), name, root)
		if err != nil {
			ledger.AddError(name, err.Error(), o.now())
			continue
		}
		ledger.Record(outcome, o.now())

		if outcome.Code() == stage.CodeInterrupted {
			logger.Warn("run interrupted", logging.FieldStage, name)
			break
		}
		if pause && i < len(stage.Names)-1 {
			o.env.Prompter.Pause()
		}
	}
}

// RunStep runs a single step with confirmations enabled and records it
func (o *Orchestrator) RunStep(ctx context.Context, ledger *Ledger, name, root string) (stage.Outcome, error) {
	env := o.env
	env.Automatic = false
	env.Logger = o.env.Logger.With(logging.FieldRunID, ledger.RunID)

	outcome, err := o.run(ctx, env, 0, 1, name, root)
	if err != nil {
		return nil, err
	}
	ledger.Record(outcome, o.now())
	return outcome, nil
}

// Finish closes the ledger and saves it to history when configured
func (o *Orchestrator) Finish(ledger *Ledger) {
	ledger.Finish(o.now())

	o.env.Logger.Info("run finished",
		logging.FieldRunID, ledger.RunID,
		"steps", len(ledger.Steps),
		"processed", ledger.Processed,
		"unprocessable", ledger.Unprocessable,
		"errors", len(ledger.Errors),
	)

	if o.history == nil {
		return
	}
	if err := o.history.Save(ledger.ToRecord()); err != nil {
		o.env.Logger.Warn("failed to save run history", logging.Error(err))
	}
}

func (o *Orchestrator) run(ctx context.Context, env stage.Env, index, total int, name, root string) (stage.Outcome, error) {
	factory, ok := o.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStep, name)
	}

	if o.observer != nil {
		o.observer.StepStarted(index, total, name)
	}
	outcome := runGuarded(ctx, env, factory, name, root)
	if o.observer != nil {
		o.observer.StepFinished(index, total, outcome)
	}
	return outcome, nil
}

// runGuarded turns a panicking stage into a failed outcome
func runGuarded(ctx context.Context, env stage.Env, factory Factory, name, root string) (outcome stage.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			env.Logger.Error("stage panicked",
				logging.FieldStage, name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			failed := &failedOutcome{Base: stage.Base{Stage: name, Duration: time.Since(start)}}
			failed.Fail(stage.CodePanic, fmt.Errorf("panic: %v", r))
			outcome = failed
		}
	}()

	return factory(env)(ctx, root)
}

// failedOutcome is the result recorded for a stage that produced none
type failedOutcome struct {
	stage.Base
}

func (f *failedOutcome) Processed() int         { return 0 }
func (f *failedOutcome) Summary() []stage.Field { return f.BaseSummary() }
