package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/fenilsonani/orgest/internal/deps"
)

// Transcoder converts src into dst. With streamCopy set the streams are
// remuxed without re-encoding.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst string, streamCopy bool) error
}

// FFmpeg runs an ffmpeg-compatible command line tool
type FFmpeg struct {
	Command string
	Runner  deps.Runner
}

// NewFFmpeg creates a transcoder for command
func NewFFmpeg(command string) *FFmpeg {
	return &FFmpeg{Command: command, Runner: deps.ExecRunner{}}
}

// Args returns the argument list for one conversion
func (f *FFmpeg) Args(src, dst string, streamCopy bool) []string {
	if streamCopy {
		return []string{"-i", src, "-c", "copy", dst, "-y"}
	}
	return []string{"-i", src, dst, "-y"}
}

// Transcode implements Transcoder
func (f *FFmpeg) Transcode(ctx context.Context, src, dst string, streamCopy bool) error {
	out, err := f.Runner.Run(ctx, f.Command, f.Args(src, dst, streamCopy)...)
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", f.Command, err, lastLine(out))
	}
	return nil
}

// lastLine returns the final non-empty line of tool output, which is
// where ffmpeg reports the reason it stopped
func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no output"
}
