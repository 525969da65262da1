package cleaner

import (
	"context"
	"testing"

	"github.com/fenilsonani/orgest/internal/stage"
	"github.com/fenilsonani/orgest/internal/testutil"
)

// scriptedPrompter answers questions in order
type scriptedPrompter struct {
	answers []bool
	asked   int
}

func (p *scriptedPrompter) Confirm(string) bool {
	if p.asked >= len(p.answers) {
		p.asked++
		return false
	}
	answer := p.answers[p.asked]
	p.asked++
	return answer
}

func (p *scriptedPrompter) Pause() {}

// =============================================================================
// Inspect Tests
// =============================================================================

func TestInspectReportsExistingFolders(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateRandomFile("basura/a.bin", 1024)
	f.CreateRandomFile("basura/sub/b.bin", 512)

	reports := New(stage.Env{}).Inspect(f.RootDir)

	if len(reports) != 1 {
		t.Fatalf("expected only basura, got %+v", reports)
	}
	if reports[0].Name != "basura" || reports[0].Size != 1536 || reports[0].Files != 2 {
		t.Errorf("unexpected report: %+v", reports[0])
	}
}

// =============================================================================
// Run Tests
// =============================================================================

func TestRunAsksPerFolder(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateRandomFile("basura/a.bin", 100)
	f.CreateRandomFile("sin_edit/b.bin", 200)

	p := &scriptedPrompter{answers: []bool{true, false}}
	res := New(stage.Env{Prompter: p, Automatic: true}).Run(context.Background(), f.RootDir)

	if p.asked != 2 {
		t.Errorf("expected one question per folder, got %d", p.asked)
	}
	f.AssertFileNotExists(f.Path("basura"))
	f.AssertFileExists(f.Path("sin_edit/b.bin"))

	if res.FreedBytes != 100 {
		t.Errorf("FreedBytes = %d, want 100", res.FreedBytes)
	}
	if res.Removed() != 1 {
		t.Errorf("Removed() = %d, want 1", res.Removed())
	}
	if res.Folders[1].Skipped != "declined" {
		t.Errorf("expected declined skip reason, got %q", res.Folders[1].Skipped)
	}
}

func TestRunWithoutConfirmationDeletesNothing(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFile("basura/a.txt", []byte("a"))
	f.CreateFile("sin_edit/b.txt", []byte("b"))

	res := New(stage.Env{Automatic: true}).Run(context.Background(), f.RootDir)

	f.AssertFileExists(f.Path("basura/a.txt"))
	f.AssertFileExists(f.Path("sin_edit/b.txt"))
	if res.FreedBytes != 0 {
		t.Errorf("nothing should be freed, got %d", res.FreedBytes)
	}
}

func TestRunNoFolders(t *testing.T) {
	f := testutil.NewFixture(t)

	p := &scriptedPrompter{}
	res := New(stage.Env{Prompter: p}).Run(context.Background(), f.RootDir)

	if p.asked != 0 || len(res.Folders) != 0 {
		t.Errorf("nothing to clean, but asked %d times", p.asked)
	}
}

func TestRunRefusesSymlinkedFolder(t *testing.T) {
	testutil.SkipOnWindows(t)

	f := testutil.NewFixture(t)
	outside := testutil.NewFixture(t)
	outside.CreateFile("precious.txt", []byte("keep"))
	f.CreateSymlink(outside.RootDir, "basura")

	res := New(stage.Env{Prompter: stage.Auto{Yes: true}}).Run(context.Background(), f.RootDir)

	if len(res.Folders) != 0 {
		t.Errorf("a symlinked trash folder must not be offered, got %+v", res.Folders)
	}
	outside.AssertFileExists(outside.Path("precious.txt"))
}

func TestRunCancelled(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFile("basura/a.txt", []byte("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(stage.Env{Prompter: stage.Auto{Yes: true}}).Run(ctx, f.RootDir)

	if res.Code() != stage.CodeInterrupted {
		t.Errorf("expected interrupted, got %q", res.Code())
	}
	f.AssertFileExists(f.Path("basura/a.txt"))
}
