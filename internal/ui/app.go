// Package ui is the interactive front end: menus, prompts, banners and live
// progress around the pipeline.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fenilsonani/orgest/internal/config"
	"github.com/fenilsonani/orgest/internal/fsx"
	"github.com/fenilsonani/orgest/internal/logging"
	"github.com/fenilsonani/orgest/internal/pipeline"
	"github.com/fenilsonani/orgest/internal/progress"
	"github.com/fenilsonani/orgest/internal/reporter"
	"github.com/fenilsonani/orgest/internal/stage"
	"github.com/fenilsonani/orgest/internal/ui/styles"
)

// StepTitles are the headings shown while a step runs
var StepTitles = map[string]string{
	stage.Dedup:     "FIND AND REMOVE DUPLICATES",
	stage.Sort:      "SORT FILES INTO FOLDERS",
	stage.Convert:   "CONVERT WEBP AND TS FILES",
	stage.Flatten:   "EXTRACT FILES TO THE ROOT",
	stage.Verify:    "FINAL DUPLICATE CHECK",
	stage.Normalize: "IMAGE PREPROCESSING",
	stage.Clean:     "CLEAN UP WORKING FOLDERS",
}

// customSteps maps the custom menu keys to steps
var customSteps = map[string]string{
	"1": stage.Dedup,
	"2": stage.Sort,
	"3": stage.Convert,
	"4": stage.Flatten,
	"5": stage.Normalize,
}

var mainMenu = []MenuItem{
	{Key: "1", Label: "Automatic", Hint: "Runs every step in sequence"},
	{Key: "2", Label: "Customizable", Hint: "Choose which steps to run"},
	{Key: "3", Label: "Exit"},
}

var pauseMenu = []MenuItem{
	{Key: "1", Label: "With pauses between steps", Hint: "Review each step before continuing"},
	{Key: "2", Label: "Continuous run", Hint: "Everything runs without interruptions"},
}

var customMenu = []MenuItem{
	{Key: "1", Label: "Find and remove duplicates"},
	{Key: "2", Label: "Sort files into folders"},
	{Key: "3", Label: "Convert WEBP and TS files"},
	{Key: "4", Label: "Extract files to the root"},
	{Key: "5", Label: "Image preprocessing"},
	{Key: "6", Label: "Run every step"},
	{Key: "0", Label: "Back to the main menu"},
}

// Options configures an App
type Options struct {
	Config   *config.Config
	Logger   *slog.Logger
	Console  *Console
	Chooser  Chooser        // defaults to Console
	Prompter stage.Prompter // stage confirmations, defaults to Console
	Progress *progress.Reporter
	History  *config.HistoryStore
	// Validate turns user input into a usable root folder
	Validate func(string) (string, error)
	// Lock guards a root for the duration of a run; nil skips locking
	Lock func(root string) (release func(), err error)
	// Pipeline adds orchestrator options, e.g. replacement stages in tests
	Pipeline []pipeline.Option
}

// App drives the interactive menus
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	console  *Console
	chooser  Chooser
	progress *progress.Reporter
	validate func(string) (string, error)
	lock     func(string) (func(), error)
	orch     *pipeline.Orchestrator
	pausing  bool
}

// NewApp creates the interactive application
func NewApp(opts Options) *App {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.GetDefault()
	}
	chooser := opts.Chooser
	if chooser == nil {
		chooser = opts.Console
	}
	var prompter stage.Prompter = opts.Console
	if opts.Prompter != nil {
		prompter = opts.Prompter
	}

	a := &App{
		cfg:      cfg,
		logger:   logging.OrNop(opts.Logger),
		console:  opts.Console,
		chooser:  chooser,
		progress: opts.Progress,
		validate: opts.Validate,
		lock:     opts.Lock,
	}

	pipelineOpts := []pipeline.Option{pipeline.WithObserver(a)}
	if opts.History != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithHistory(opts.History))
	}
	pipelineOpts = append(pipelineOpts, opts.Pipeline...)

	a.orch = pipeline.New(stage.Env{
		Config:   cfg,
		Logger:   a.logger,
		Prompter: prompter,
		Progress: opts.Progress,
	}, pipelineOpts...)

	return a
}

// Run shows the main menu until the user exits or ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		a.console.Banner()
		choice, err := a.chooser.Choose("How do you want to use orgest?", mainMenu)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch choice {
		case "1":
			a.automatic(ctx)
		case "2":
			a.custom(ctx)
		default:
			a.console.Println("\nThanks for using orgest. See you soon!")
			return nil
		}
	}
	return nil
}

func (a *App) automatic(ctx context.Context) {
	a.console.Clear()
	choice, err := a.chooser.Choose("PAUSES - AUTOMATIC MODE", pauseMenu)
	if err != nil || choice == "" {
		return
	}
	pause := choice == "1"

	root, release, ok := a.selectRoot()
	if !ok {
		return
	}
	defer release()

	a.RunAutomatic(ctx, root, pause)
	if pause {
		a.console.Pause()
	}
}

// RunAutomatic runs every step over a validated root and prints the summary
func (a *App) RunAutomatic(ctx context.Context, root string, pause bool) *pipeline.Ledger {
	a.console.Clear()
	a.console.Println(a.console.Render(styles.TitleStyle, "AUTOMATIC MODE - RUNNING EVERY STEP"))
	if pause {
		a.console.Println("Mode: with pauses between steps")
	} else {
		a.console.Println("Mode: continuous run")
	}

	a.pausing = pause
	stop := a.attachProgress()
	ledger := a.orch.RunAutomatic(ctx, root, pause)
	stop()
	a.pausing = false

	a.finished(ledger)
	return ledger
}

// RunSteps runs the named steps in order with confirmations enabled, then
// finishes the ledger and prints the summary
func (a *App) RunSteps(ctx context.Context, root string, names ...string) (*pipeline.Ledger, error) {
	ledger := a.orch.NewLedger(root, pipeline.ModeCustom)
	defer func() {
		a.orch.Finish(ledger)
		a.summary(ledger)
	}()

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return ledger, err
		}
		stop := a.attachProgress()
		_, err := a.orch.RunStep(ctx, ledger, name, root)
		stop()
		if err != nil {
			return ledger, err
		}
	}
	return ledger, nil
}

func (a *App) custom(ctx context.Context) {
	root, release, ok := a.selectRoot()
	if !ok {
		return
	}
	defer release()

	ledger := a.orch.NewLedger(root, pipeline.ModeCustom)
	defer func() {
		a.orch.Finish(ledger)
		a.summary(ledger)
	}()

	for ctx.Err() == nil {
		a.console.Banner()
		a.console.Printf("Current folder: %s\n\n", a.console.Render(styles.PathStyle, TruncatePath(root, 60)))

		choice, err := a.chooser.Choose("CUSTOMIZABLE MODE", customMenu)
		if err != nil || choice == "" || choice == "0" {
			return
		}

		if choice == "6" {
			a.pausing = true
			stop := a.attachProgress()
			a.orch.RunAll(ctx, ledger, root, true)
			stop()
			a.pausing = false
			return
		}

		name := customSteps[choice]
		a.console.Clear()
		stop := a.attachProgress()
		_, err = a.orch.RunStep(ctx, ledger, name, root)
		stop()
		if err != nil {
			a.console.Errorf("%v", err)
		}
		if a.cfg.Display.PauseBetweenSteps {
			a.console.Pause()
		}
	}
}

// selectRoot asks for the folder and locks it
func (a *App) selectRoot() (string, func(), bool) {
	a.console.Clear()
	root, err := a.chooser.AskPath("Enter the folder to organize: ", a.validate)
	if err != nil || root == "" {
		return "", nil, false
	}

	release := func() {}
	if a.lock != nil {
		unlock, err := a.lock(root)
		if err != nil {
			a.console.Errorf("%v", err)
			a.console.Pause()
			return "", nil, false
		}
		release = unlock
	}
	return root, release, true
}

// attachProgress shows live progress on terminals unless verbose logging
// already prints per-file lines
func (a *App) attachProgress() func() {
	if a.progress == nil || a.cfg.Display.Verbose || !a.console.tty {
		return func() {}
	}
	return NewLiveProgress(a.console.Out()).Attach(a.progress)
}

// StepStarted implements pipeline.Observer
func (a *App) StepStarted(index, total int, name string) {
	if total > 1 && a.pausing && index > 0 {
		a.console.Clear()
	}
	title := StepTitles[name]
	if total > 1 {
		a.console.Heading(stepLabel(index, title))
		return
	}
	a.console.Heading(title)
}

func stepLabel(index int, title string) string {
	return fmt.Sprintf("STEP %d: %s", index+1, title)
}

// StepFinished implements pipeline.Observer
func (a *App) StepFinished(_, _ int, outcome stage.Outcome) {
	for _, field := range outcome.Summary() {
		a.console.Printf("  %s %s\n", a.console.Render(styles.LabelStyle, field.Label+":"), field.Value)
	}
	if summary := fsx.FormatErrorSummary(outcome.FileFailures()); summary != "" {
		a.console.Println(a.console.Render(styles.WarningStyle, strings.TrimRight(summary, "\n")))
	}
	switch {
	case outcome.Code() != stage.CodeNone:
		a.console.Errorf("%s: %s", outcome.Code().Description(), errString(outcome.Error()))
	case outcome.Error() != nil:
		a.console.Errorf("%v", outcome.Error())
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (a *App) finished(ledger *pipeline.Ledger) {
	a.console.Clear()
	a.console.Println()
	if ledger.Interrupted {
		a.console.Println(a.console.Render(styles.WarningStyle, "AUTOMATIC RUN INTERRUPTED"))
	} else {
		a.console.Println(a.console.Render(styles.SuccessStyle, "AUTOMATIC RUN COMPLETED"))
	}
	a.summary(ledger)
}

func (a *App) summary(ledger *pipeline.Ledger) {
	if !a.cfg.Display.ShowBanners {
		return
	}
	a.console.Println()
	if err := reporter.New(a.console.Out(), reporter.FormatSummary).Ledger(ledger); err != nil {
		a.logger.Warn("failed to print summary", logging.Error(err))
	}
}
