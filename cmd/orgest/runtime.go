package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/orgest/internal/config"
	"github.com/fenilsonani/orgest/internal/logging"
	"github.com/fenilsonani/orgest/internal/pipeline"
	"github.com/fenilsonani/orgest/internal/progress"
	"github.com/fenilsonani/orgest/internal/scanner"
	"github.com/fenilsonani/orgest/internal/security"
	"github.com/fenilsonani/orgest/internal/stage"
	"github.com/fenilsonani/orgest/internal/ui"
)

// runtime bundles what every command builds from flags and config
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	console   *ui.Console
	progress  *progress.Reporter
	history   *config.HistoryStore
	validator *security.PathValidator
}

func setup(cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Flags override config
	if cmd.Flags().Changed("verbose") {
		cfg.Display.Verbose = verbose
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	history, err := config.NewHistoryStore()
	if err != nil {
		// Runs still work without history
		logger.Warn("run history disabled", logging.Error(err))
		history = nil
	}

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		console:   ui.NewConsole(os.Stdin, os.Stdout, cfg.Display),
		progress:  progress.NewReporter(),
		history:   history,
		validator: security.NewPathValidator(),
	}, nil
}

// app builds the interactive front end. Menus use bubbletea only when both
// ends are terminals.
func (rt *runtime) app(interactive bool) *ui.App {
	opts := ui.Options{
		Config:   rt.cfg,
		Logger:   rt.logger,
		Console:  rt.console,
		Progress: rt.progress,
		History:  rt.history,
		Validate: rt.validator.ValidateRoot,
		Lock:     lockRoot,
	}
	if interactive && ui.IsTerminal(os.Stdin) && ui.IsTerminal(os.Stdout) {
		opts.Chooser = ui.NewTeaChooser(os.Stdin, os.Stdout)
	}
	if assumeYes {
		opts.Prompter = stage.Auto{Yes: true}
	}
	return ui.NewApp(opts)
}

// openRoot validates and locks a root given on the command line
func (rt *runtime) openRoot(path string) (string, func(), error) {
	root, err := rt.validator.ValidateRoot(path)
	if err != nil {
		return "", nil, err
	}
	release, err := lockRoot(root)
	if err != nil {
		return "", nil, err
	}
	return root, release, nil
}

// scan reports duplicates below root without moving anything
func (rt *runtime) scan(ctx context.Context, root string) (*scanner.ScanResult, error) {
	env := stage.Env{Config: rt.cfg, Logger: rt.logger}.WithDefaults()
	s, err := env.Scanner(root, rt.cfg.Folders.Trash)
	if err != nil {
		return nil, err
	}
	return s.Scan(ctx, root)
}

func lockRoot(root string) (func(), error) {
	lock, err := pipeline.AcquireRunLock(root)
	if err != nil {
		return nil, err
	}
	return func() { lock.Release() }, nil
}
