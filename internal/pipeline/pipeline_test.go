package pipeline

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/orgest/internal/config"
	"github.com/fenilsonani/orgest/internal/deps"
	"github.com/fenilsonani/orgest/internal/fsx"
	"github.com/fenilsonani/orgest/internal/stage"
	"github.com/fenilsonani/orgest/internal/testutil"
)

// fakeOutcome is a canned stage result
type fakeOutcome struct {
	stage.Base
	processed int
}

func (f *fakeOutcome) Processed() int         { return f.processed }
func (f *fakeOutcome) Summary() []stage.Field { return f.BaseSummary() }

// recorder collects which steps ran and in which mode
type recorder struct {
	calls     []string
	automatic []bool
}

func (r *recorder) factory(name string, processed int) Factory {
	return func(env stage.Env) Runner {
		return func(ctx context.Context, root string) stage.Outcome {
			r.calls = append(r.calls, name)
			r.automatic = append(r.automatic, env.Automatic)
			return &fakeOutcome{Base: stage.Base{Stage: name}, processed: processed}
		}
	}
}

func (r *recorder) options(processed int) []Option {
	var opts []Option
	for _, name := range stage.Names {
		opts = append(opts, WithFactory(name, r.factory(name, processed)))
	}
	return opts
}

type countingPrompter struct {
	pauses int
}

func (p *countingPrompter) Confirm(string) bool { return false }
func (p *countingPrompter) Pause()              { p.pauses++ }

type observerLog struct {
	started  []string
	finished []string
}

func (o *observerLog) StepStarted(_, _ int, name string) { o.started = append(o.started, name) }
func (o *observerLog) StepFinished(_, _ int, outcome stage.Outcome) {
	o.finished = append(o.finished, outcome.Name())
}

func TestRunAutomaticRunsEveryStepInOrder(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	obs := &observerLog{}

	o := New(stage.Env{}, append(rec.options(1), WithObserver(obs))...)
	ledger := o.RunAutomatic(context.Background(), root, false)

	assert.Equal(t, stage.Names, rec.calls)
	for _, automatic := range rec.automatic {
		assert.True(t, automatic, "automatic runs must not ask stage confirmations")
	}
	assert.Equal(t, stage.Names, obs.started)
	assert.Equal(t, stage.Names, obs.finished)

	assert.Equal(t, ModeAutomatic, ledger.Mode)
	assert.NotEmpty(t, ledger.RunID)
	assert.Len(t, ledger.Steps, len(stage.Names))
	assert.Equal(t, len(stage.Names), ledger.Succeeded())
	assert.Equal(t, len(stage.Names), ledger.Processed)
	assert.False(t, ledger.FinishedAt.IsZero())
}

func TestRunAutomaticPausesBetweenSteps(t *testing.T) {
	rec := &recorder{}
	prompter := &countingPrompter{}

	o := New(stage.Env{Prompter: prompter}, rec.options(0)...)
	o.RunAutomatic(context.Background(), t.TempDir(), true)
	assert.Equal(t, len(stage.Names)-1, prompter.pauses)

	prompter.pauses = 0
	o.RunAutomatic(context.Background(), t.TempDir(), false)
	assert.Zero(t, prompter.pauses)
}

func TestRunAutomaticCountsFilesAndUnprocessable(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFiles(map[string]string{
		"a.txt":          "a",
		"sub/b.txt":      "b",
		"c.txt":          "c",
		"basura/x.txt":   "x",
		"sin_edit/y.txt": "y",
		"fallos/z.txt":   "z",
	})

	rec := &recorder{}
	opts := rec.options(0)
	opts = append(opts, WithFactory(stage.Sort, rec.factory(stage.Sort, 1)))

	ledger := New(stage.Env{}, opts...).RunAutomatic(context.Background(), f.RootDir, false)

	assert.Equal(t, 3, ledger.TotalFiles)
	assert.Equal(t, 1, ledger.Processed)
	assert.Equal(t, 2, ledger.Unprocessable)
}

func TestLedgerUnprocessableNeverNegative(t *testing.T) {
	ledger := NewLedger("/data", ModeAutomatic, time.Now())
	ledger.TotalFiles = 2
	ledger.Processed = 5
	ledger.Finish(time.Now())

	assert.Zero(t, ledger.Unprocessable)
}

func TestRunAutomaticRecoversPanics(t *testing.T) {
	rec := &recorder{}
	opts := append(rec.options(0), WithFactory(stage.Convert, func(stage.Env) Runner {
		return func(context.Context, string) stage.Outcome { panic("boom") }
	}))

	ledger := New(stage.Env{}, opts...).RunAutomatic(context.Background(), t.TempDir(), false)

	require.Len(t, ledger.Steps, len(stage.Names))
	convertStep := ledger.Steps[2]
	assert.Equal(t, stage.Convert, convertStep.Name)
	assert.False(t, convertStep.Success)
	assert.Equal(t, stage.CodePanic, convertStep.ErrorCode)
	require.NotEmpty(t, ledger.Errors)
	assert.Contains(t, ledger.Errors[0].Message, "boom")

	// Later steps still ran
	assert.Contains(t, rec.calls, stage.Clean)
}

func TestRunAutomaticStopsWhenStageIsInterrupted(t *testing.T) {
	rec := &recorder{}
	opts := append(rec.options(0), WithFactory(stage.Sort, func(stage.Env) Runner {
		return func(context.Context, string) stage.Outcome {
			out := &fakeOutcome{Base: stage.Base{Stage: stage.Sort}}
			out.Interrupt(context.Canceled)
			return out
		}
	}))

	ledger := New(stage.Env{}, opts...).RunAutomatic(context.Background(), t.TempDir(), false)

	assert.Equal(t, []string{stage.Dedup}, rec.calls)
	assert.True(t, ledger.Interrupted)
	assert.Len(t, ledger.Steps, 2)
}

func TestRunAutomaticCancelledContextRunsNothing(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ledger := New(stage.Env{}, rec.options(0)...).RunAutomatic(ctx, t.TempDir(), false)

	assert.Empty(t, rec.calls)
	assert.True(t, ledger.Interrupted)
}

func TestRunAutomaticContinuesAfterToolMissing(t *testing.T) {
	rec := &recorder{}
	opts := append(rec.options(0), WithFactory(stage.Convert, func(stage.Env) Runner {
		return func(context.Context, string) stage.Outcome {
			out := &fakeOutcome{Base: stage.Base{Stage: stage.Convert}}
			out.Fail(stage.CodeToolMissing, stage.ErrToolMissing)
			return out
		}
	}))

	ledger := New(stage.Env{}, opts...).RunAutomatic(context.Background(), t.TempDir(), false)

	assert.Len(t, ledger.Steps, len(stage.Names))
	assert.Equal(t, len(stage.Names)-1, ledger.Succeeded())
	assert.Equal(t, stage.CodeToolMissing, ledger.Steps[2].ErrorCode)
}

func TestRunStepIsInteractiveAndRecorded(t *testing.T) {
	rec := &recorder{}
	o := New(stage.Env{}, rec.options(4)...)
	ledger := o.NewLedger(t.TempDir(), ModeCustom)

	outcome, err := o.RunStep(context.Background(), ledger, stage.Flatten, ledger.Root)
	require.NoError(t, err)

	assert.Equal(t, stage.Flatten, outcome.Name())
	assert.Equal(t, []bool{false}, rec.automatic)
	assert.Len(t, ledger.Steps, 1)
	assert.Equal(t, 4, ledger.Processed)
}

func TestRunStepUnknown(t *testing.T) {
	o := New(stage.Env{})
	ledger := o.NewLedger(t.TempDir(), ModeCustom)

	_, err := o.RunStep(context.Background(), ledger, "polish", ledger.Root)
	assert.ErrorIs(t, err, ErrUnknownStep)
	assert.Empty(t, ledger.Steps)
}

func TestLedgerRecordsFileFailures(t *testing.T) {
	ledger := NewLedger("/data", ModeCustom, time.Now())
	out := &fakeOutcome{Base: stage.Base{Stage: stage.Sort}}
	out.AddFailure(fsx.CategorizeError("move", "/data/a.jpg", os.ErrPermission))

	step := ledger.Record(out, time.Now())

	assert.True(t, step.Success, "per-file failures do not fail the stage")
	assert.Equal(t, 1, step.Failures)
	require.Len(t, ledger.Errors, 1)
	assert.Equal(t, stage.Sort, ledger.Errors[0].Stage)
}

func TestFinishSavesHistory(t *testing.T) {
	store, err := config.NewHistoryStoreAt(t.TempDir())
	require.NoError(t, err)

	rec := &recorder{}
	o := New(stage.Env{}, append(rec.options(1), WithHistory(store))...)
	ledger := o.RunAutomatic(context.Background(), t.TempDir(), false)

	saved, err := store.Load(ledger.RunID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Root, saved.Root)
	assert.Equal(t, ModeAutomatic, saved.Mode)
	assert.Len(t, saved.Steps, len(stage.Names))
	assert.Equal(t, ledger.Processed, saved.Processed)
}

// =============================================================================
// End-to-end
// =============================================================================

type copyTranscoder struct{}

func (copyTranscoder) Transcode(_ context.Context, src, dst string, _ bool) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

type readyProvisioner struct{}

func (readyProvisioner) Ensure(context.Context) (deps.Status, error) {
	return deps.Status{Name: "ffmpeg", Available: true, Path: "ffmpeg"}, nil
}

func TestRunAutomaticOrganizesTree(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateImage("a.jpg", 10, 10, color.RGBA{R: 200, A: 255})
	f.CreateImage("sub/b.jpg", 10, 10, color.RGBA{R: 200, A: 255})
	f.CreateFile("doc.txt", []byte("notes"))
	f.CreateFile("sub/deep/clip.mp4", []byte("video"))

	o := New(stage.Env{}, WithTranscoder(copyTranscoder{}, readyProvisioner{}))
	ledger := o.RunAutomatic(context.Background(), f.RootDir, false)

	require.Len(t, ledger.Steps, len(stage.Names))
	for _, step := range ledger.Steps {
		assert.True(t, step.Success, "step %s failed: %v", step.Name, ledger.Errors)
	}
	assert.Equal(t, 4, ledger.TotalFiles)

	f.AssertFileExists(f.Path("a.jpg"))
	f.AssertFileExists(f.Path("clip.mp4"))
	f.AssertFileExists(f.Path("basura/b.jpg"))
	f.AssertFileExists(f.Path("basura/doc.txt"))
	f.AssertFileExists(f.Path("sin_edit/a.jpg"))
	f.AssertFileNotExists(f.Path("sub"))
	f.AssertFileNotExists(f.Path("fallos"))
}

// =============================================================================
// Run lock
// =============================================================================

func TestRunLockIsExclusive(t *testing.T) {
	testutil.SkipOnWindows(t)

	dir := t.TempDir()
	root := filepath.Join(t.TempDir(), "photos")

	first, err := AcquireRunLockIn(dir, root)
	require.NoError(t, err)

	_, err = AcquireRunLockIn(dir, root)
	assert.True(t, errors.Is(err, ErrLocked), "expected ErrLocked, got %v", err)

	other, err := AcquireRunLockIn(dir, filepath.Join(t.TempDir(), "videos"))
	require.NoError(t, err, "different roots lock independently")
	require.NoError(t, other.Release())

	require.NoError(t, first.Release())

	again, err := AcquireRunLockIn(dir, root)
	require.NoError(t, err)
	assert.FileExists(t, again.Path())
	require.NoError(t, again.Release())
}
