package convert

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/fenilsonani/orgest/internal/deps"
	"github.com/fenilsonani/orgest/internal/stage"
	"github.com/fenilsonani/orgest/internal/testutil"
)

// fakeTranscoder writes a marker file at dst, failing for listed sources
type fakeTranscoder struct {
	failFor map[string]bool
	calls   []string
}

func (f *fakeTranscoder) Transcode(_ context.Context, src, dst string, streamCopy bool) error {
	call := src + " -> " + dst
	if streamCopy {
		call += " (copy)"
	}
	f.calls = append(f.calls, call)
	if f.failFor[src] {
		// Leave a partial file behind like a crashed tool would
		os.WriteFile(dst, []byte("partial"), 0644)
		return errors.New("invalid data found when processing input")
	}
	return os.WriteFile(dst, []byte("converted"), 0644)
}

type fakeProvisioner struct {
	err error
}

func (p fakeProvisioner) Ensure(context.Context) (deps.Status, error) {
	if p.err != nil {
		return deps.Status{}, p.err
	}
	return deps.Status{Available: true, Path: "/usr/bin/ffmpeg"}, nil
}

// =============================================================================
// FFmpeg Tests
// =============================================================================

func TestFFmpegArgs(t *testing.T) {
	f := NewFFmpeg("ffmpeg")

	got := f.Args("in.webp", "in.png", false)
	want := []string{"-i", "in.webp", "in.png", "-y"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("webp args = %v, want %v", got, want)
	}

	got = f.Args("in.ts", "in.mp4", true)
	want = []string{"-i", "in.ts", "-c", "copy", "in.mp4", "-y"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ts args = %v, want %v", got, want)
	}
}

type recordingRunner struct {
	name string
	args []string
	out  []byte
	err  error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.name, r.args = name, args
	return r.out, r.err
}

func TestFFmpegTranscodeReportsLastOutputLine(t *testing.T) {
	runner := &recordingRunner{
		out: []byte("ffmpeg version 6\nconfiguration...\nin.ts: Invalid data found\n\n"),
		err: errors.New("exit status 1"),
	}
	f := &FFmpeg{Command: "/opt/ffmpeg", Runner: runner}

	err := f.Transcode(context.Background(), "in.ts", "in.mp4", true)
	if err == nil {
		t.Fatal("expected error")
	}
	if runner.name != "/opt/ffmpeg" {
		t.Errorf("ran %q, want /opt/ffmpeg", runner.name)
	}
	if !strings.Contains(err.Error(), "in.ts: Invalid data found") {
		t.Errorf("error should carry tool output, got %v", err)
	}
}

// =============================================================================
// Run Tests
// =============================================================================

func TestRunConvertsAndTrashesOriginals(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFiles(map[string]string{
		"img.webp":    "w",
		"sub/vid.TS":  "t",
		"photo.jpg":   "p",
		"basura/x.ts": "already trashed",
	})

	tr := &fakeTranscoder{}
	res := New(stage.Env{Automatic: true}, tr, fakeProvisioner{}).Run(context.Background(), f.RootDir)

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Converted["webp"] != 1 || res.Converted["ts"] != 1 {
		t.Errorf("unexpected conversions: %v", res.Converted)
	}
	if res.Processed() != 2 {
		t.Errorf("Processed() = %d, want 2", res.Processed())
	}

	want := []string{
		"basura/img.webp",
		"basura/vid.TS",
		"basura/x.ts",
		"img.png",
		"photo.jpg",
		"sub/vid.mp4",
	}
	if got := f.ListFiles(); !reflect.DeepEqual(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}

	if len(tr.calls) != 2 || !strings.HasSuffix(tr.calls[1], "(copy)") {
		t.Errorf("expected webp then ts with stream copy, got %v", tr.calls)
	}
}

func TestRunNeverOverwritesExistingOutput(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFiles(map[string]string{
		"img.webp": "w",
		"img.png":  "keep me",
	})

	New(stage.Env{Automatic: true}, &fakeTranscoder{}, fakeProvisioner{}).Run(context.Background(), f.RootDir)

	f.AssertFileContent(f.Path("img.png"), "keep me")
	f.AssertFileContent(f.Path("img_1.png"), "converted")
}

func TestRunFailedConversionLeavesOriginal(t *testing.T) {
	f := testutil.NewFixture(t)
	src := f.CreateFile("bad.webp", []byte("w"))

	tr := &fakeTranscoder{failFor: map[string]bool{src: true}}
	res := New(stage.Env{Automatic: true}, tr, fakeProvisioner{}).Run(context.Background(), f.RootDir)

	if res.Failed != 1 || res.Processed() != 0 {
		t.Errorf("expected one failure and no conversions, got %+v", res)
	}
	f.AssertFileExists(src)
	f.AssertFileNotExists(f.Path("bad.png"))
	f.AssertFileNotExists(f.Path("basura"))
}

func TestRunToolMissingAbortsStage(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFile("img.webp", []byte("w"))

	tr := &fakeTranscoder{}
	prov := fakeProvisioner{err: stage.ErrToolMissing}
	res := New(stage.Env{Automatic: true}, tr, prov).Run(context.Background(), f.RootDir)

	if res.Code() != stage.CodeToolMissing {
		t.Errorf("expected tool_missing, got %q", res.Code())
	}
	if res.Processed() != 0 || len(tr.calls) != 0 {
		t.Error("no conversion may run without the tool")
	}
	f.AssertFileExists(f.Path("img.webp"))
}

func TestRunSkipsReservedFolders(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFiles(map[string]string{
		"sin_edit/orig.webp": "w",
		"fallos/bad.webp":    "w",
	})

	tr := &fakeTranscoder{}
	New(stage.Env{Automatic: true}, tr, fakeProvisioner{}).Run(context.Background(), f.RootDir)

	if len(tr.calls) != 0 {
		t.Errorf("reserved folders must not be converted, got %v", tr.calls)
	}
}
