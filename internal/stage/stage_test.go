package stage

import (
	"context"
	"errors"
	"testing"

	"github.com/fenilsonani/orgest/internal/fsx"
	"github.com/fenilsonani/orgest/internal/testutil"
)

func TestIsAffirmative(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"s", true},
		{"si", true},
		{"sí", true},
		{"SÍ", true},
		{"y", true},
		{"Yes", true},
		{"  yes please", true},
		{"yes\n", true},
		{"no", false},
		{"n", false},
		{"", false},
		{"   ", false},
		{"sure", false},
		{"nope yes", false},
		{"yess", false},
	}

	for _, tt := range tests {
		if got := IsAffirmative(tt.answer); got != tt.want {
			t.Errorf("IsAffirmative(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}

func TestAutoPrompter(t *testing.T) {
	if !(Auto{Yes: true}).Confirm("delete?") {
		t.Error("Auto{Yes: true} should confirm")
	}
	if (Auto{}).Confirm("delete?") {
		t.Error("zero Auto should decline")
	}
}

func TestBaseRecordsFailures(t *testing.T) {
	b := &Base{Stage: Sort}
	b.AddFailure(nil)
	b.AddFailure(&fsx.OpError{Op: "move", Path: "/x", Reason: fsx.ReasonPermissionDenied})

	if len(b.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(b.Failures))
	}

	b.Interrupt(context.Canceled)
	if b.Code() != CodeInterrupted || !errors.Is(b.Error(), context.Canceled) {
		t.Errorf("unexpected interrupt state: %s %v", b.Code(), b.Error())
	}

	fields := b.BaseSummary()
	if len(fields) != 2 {
		t.Errorf("expected failures and error code fields, got %v", fields)
	}
}

func TestEnvWithDefaults(t *testing.T) {
	env := Env{}.WithDefaults()
	if env.Config == nil || env.Logger == nil || env.Prompter == nil {
		t.Fatal("WithDefaults left a nil collaborator")
	}
	if env.Prompter.Confirm("anything?") {
		t.Error("default prompter must decline")
	}
}

func TestEnvWalkAppliesExclusionsAndIgnoreFile(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFiles(map[string]string{
		"keep.jpg":        "a",
		"basura/old.jpg":  "b",
		"tmp/scratch.txt": "c",
		".orgestignore":   "tmp/\n",
	})

	env := Env{}.WithDefaults()
	listing, err := env.Walk(context.Background(), f.RootDir, "basura")
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	if len(listing.Files) != 1 || f.RelPath(listing.Files[0].Path) != "keep.jpg" {
		t.Errorf("unexpected listing: %+v", listing.Files)
	}
}
