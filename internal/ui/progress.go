package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/fenilsonani/orgest/internal/progress"
	"github.com/fenilsonani/orgest/internal/ui/styles"
)

// LiveProgress redraws a single status line from progress updates
type LiveProgress struct {
	mu         sync.Mutex
	out        io.Writer
	termWidth  int
	lastUpdate time.Time
	drawn      bool
	throttle   time.Duration
	wg         sync.WaitGroup
}

// NewLiveProgress creates a live progress display writing to out
func NewLiveProgress(out io.Writer) *LiveProgress {
	width := DefaultTerminalWidth
	if f, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}

	return &LiveProgress{
		out:       out,
		termWidth: max(width, MinTerminalWidth),
		throttle:  100 * time.Millisecond,
	}
}

// Attach renders every update published on r until the returned stop
// function is called
func (lp *LiveProgress) Attach(r *progress.Reporter) (stop func()) {
	if r == nil {
		return func() {}
	}

	ch := r.Subscribe()
	lp.wg.Add(1)
	go func() {
		defer lp.wg.Done()
		for update := range ch {
			lp.Render(update)
		}
	}()

	return func() {
		r.Unsubscribe(ch)
		lp.wg.Wait()
		lp.Finish()
	}
}

// Render draws p, skipping per-file updates that arrive faster than the
// throttle interval
func (lp *LiveProgress) Render(p *progress.StageProgress) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	final := p.Phase == progress.PhaseComplete || p.Phase == progress.PhaseError
	now := time.Now()
	if !final && now.Sub(lp.lastUpdate) < lp.throttle {
		return
	}
	lp.lastUpdate = now

	fmt.Fprintf(lp.out, "\r\033[K%s", lp.line(p))
	lp.drawn = true

	if final {
		fmt.Fprint(lp.out, "\n")
		lp.drawn = false
	}
}

func (lp *LiveProgress) line(p *progress.StageProgress) string {
	width := lp.termWidth - 2
	status := progress.FormatStageProgress(p)

	if p.Phase != progress.PhaseProcessing || p.Total == 0 {
		return TruncateString(status, width)
	}

	barWidth := min(20, width/4)
	bar := styles.ProgressBar(p.Current, p.Total, barWidth)
	return bar + " " + TruncateString(status, width-barWidth-1)
}

// Finish clears a half-drawn status line
func (lp *LiveProgress) Finish() {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	if lp.drawn {
		fmt.Fprint(lp.out, "\r\033[K")
		lp.drawn = false
	}
}
