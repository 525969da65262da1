package fsx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fenilsonani/orgest/internal/testutil"
)

func TestMoveIntoEmptyDirectoryKeepsName(t *testing.T) {
	f := testutil.NewFixture(t)
	src := f.CreateFile("x.png", []byte("one"))

	res := NewMover(nil).Move(src, f.Path("dest"))
	if !res.Success {
		t.Fatalf("move failed: %v", res.Err)
	}
	if res.Destination != f.Path("dest/x.png") {
		t.Errorf("Destination = %s, want dest/x.png", res.Destination)
	}
	if res.Renamed {
		t.Error("expected no rename into empty directory")
	}
	f.AssertFileNotExists(src)
	f.AssertFileContent(res.Destination, "one")
}

func TestMoveCollisionProbesFromOne(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFile("dest/x.png", []byte("existing"))
	first := f.CreateFile("a/x.png", []byte("second"))
	second := f.CreateFile("b/x.png", []byte("third"))

	m := NewMover(nil)

	res := m.Move(first, f.Path("dest"))
	if !res.Success || res.Destination != f.Path("dest/x_1.png") || !res.Renamed {
		t.Fatalf("first collision: %+v", res)
	}

	res = m.Move(second, f.Path("dest"))
	if !res.Success || res.Destination != f.Path("dest/x_2.png") {
		t.Fatalf("second collision: %+v", res)
	}

	f.AssertFileContent(f.Path("dest/x.png"), "existing")
	f.AssertFileContent(f.Path("dest/x_1.png"), "second")
	f.AssertFileContent(f.Path("dest/x_2.png"), "third")
}

func TestMoveReprobesEachCall(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFile("dest/x.png", []byte("0"))
	f.CreateFile("dest/x_1.png", []byte("1"))
	src := f.CreateFile("x.png", []byte("new"))

	// Free the first suffix again; the next move must reuse it
	if err := os.Remove(f.Path("dest/x_1.png")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	res := NewMover(nil).Move(src, f.Path("dest"))
	if res.Destination != f.Path("dest/x_1.png") {
		t.Errorf("expected re-probe to pick x_1.png, got %s", res.Destination)
	}
}

func TestMoveMissingSourceIsError(t *testing.T) {
	f := testutil.NewFixture(t)
	src := f.CreateFile("once.txt", []byte("x"))

	m := NewMover(nil)
	if res := m.Move(src, f.Path("dest")); !res.Success {
		t.Fatalf("first move failed: %v", res.Err)
	}

	res := m.Move(src, f.Path("dest"))
	if res.Success {
		t.Fatal("second move of a vanished source should fail")
	}
	if res.Err == nil || res.Err.Reason != ReasonFileNotFound {
		t.Errorf("expected ReasonFileNotFound, got %+v", res.Err)
	}
}

func TestMoveRefusesDirectories(t *testing.T) {
	f := testutil.NewFixture(t)
	dir := f.CreateDir("folder")

	res := NewMover(nil).Move(dir, f.Path("dest"))
	if res.Success || res.Err.Reason != ReasonIsDirectory {
		t.Errorf("expected directory refusal, got %+v", res)
	}
}

func TestMoveSameDirectoryIsNoop(t *testing.T) {
	f := testutil.NewFixture(t)
	src := f.CreateFile("here.txt", []byte("x"))

	res := NewMover(nil).Move(src, f.RootDir)
	if !res.Success || res.Destination != src || res.Renamed {
		t.Errorf("expected in-place no-op, got %+v", res)
	}
	f.AssertFileExists(src)
}

func TestMoveAsUsesGivenName(t *testing.T) {
	f := testutil.NewFixture(t)
	src := f.CreateFile("a.bin", []byte("x"))

	res := NewMover(nil).MoveAs(src, f.Path("out"), "renamed.bin")
	if !res.Success || res.Destination != f.Path("out/renamed.bin") {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestMoveUnwritableDestinationLeavesSource(t *testing.T) {
	testutil.SkipIfRoot(t)
	testutil.SkipOnWindows(t)

	f := testutil.NewFixture(t)
	src := f.CreateFile("keep.txt", []byte("x"))
	locked := f.CreateDirWithMode("locked", 0555)

	res := NewMover(nil).Move(src, locked)
	if res.Success {
		t.Fatal("expected failure moving into read-only directory")
	}
	if res.Err.Reason != ReasonPermissionDenied {
		t.Errorf("expected permission reason, got %s", res.Err.Reason)
	}
	f.AssertFileContent(src, "x")
}

func TestFreePathExtensionHandling(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFile("archive.tar.gz", nil)
	f.CreateFile("README", nil)

	tests := []struct {
		name string
		want string
	}{
		{"archive.tar.gz", "archive.tar_1.gz"},
		{"README", "README_1"},
		{"fresh.txt", "fresh.txt"},
	}

	for _, tt := range tests {
		got, _, err := FreePath(f.RootDir, tt.name)
		if err != nil {
			t.Fatalf("FreePath(%s): %v", tt.name, err)
		}
		if filepath.Base(got) != tt.want {
			t.Errorf("FreePath(%s) = %s, want %s", tt.name, filepath.Base(got), tt.want)
		}
	}
}
