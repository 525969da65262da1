package progress

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fenilsonani/orgest/pkg/utils"
)

// Phase represents the current phase of a stage
type Phase string

const (
	PhaseCounting   Phase = "counting"
	PhaseProcessing Phase = "processing"
	PhaseComplete   Phase = "complete"
	PhaseError      Phase = "error"
)

// StageProgress represents progress of one pipeline stage
type StageProgress struct {
	Stage     string
	Phase     Phase
	Path      string
	Current   int
	Total     int
	Failed    int
	StartTime time.Time
	Error     error
}

// Reporter provides thread-safe progress fan-out. A nil *Reporter is valid
// and drops every update.
type Reporter struct {
	current   *StageProgress
	mu        sync.RWMutex
	listeners []chan *StageProgress
}

// NewReporter creates a new progress reporter
func NewReporter() *Reporter {
	return &Reporter{
		listeners: make([]chan *StageProgress, 0),
	}
}

// Subscribe returns a channel that receives progress updates
func (r *Reporter) Subscribe() <-chan *StageProgress {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan *StageProgress, 16)
	r.listeners = append(r.listeners, ch)
	return ch
}

// Unsubscribe closes and removes a listener channel
func (r *Reporter) Unsubscribe(ch <-chan *StageProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, listener := range r.listeners {
		if listener == ch {
			close(listener)
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// Update stores the latest progress and notifies listeners
func (r *Reporter) Update(update *StageProgress) {
	if r == nil || update == nil {
		return
	}

	r.mu.Lock()
	r.current = update
	listeners := make([]chan *StageProgress, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	// Notify all listeners (non-blocking)
	for _, listener := range listeners {
		select {
		case listener <- update:
		default:
			// Skip if channel is full
		}
	}
}

// Current returns the latest progress
func (r *Reporter) Current() *StageProgress {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Tracker publishes updates for one stage run
type Tracker struct {
	reporter *Reporter
	stage    string
	start    time.Time
	total    int
	current  int
	failed   int
}

// Start begins tracking a stage that will visit total items
func (r *Reporter) Start(stage string, total int) *Tracker {
	t := &Tracker{reporter: r, stage: stage, start: time.Now(), total: total}
	r.Update(&StageProgress{Stage: stage, Phase: PhaseCounting, Total: total, StartTime: t.start})
	return t
}

// Step records one processed item
func (t *Tracker) Step(path string, ok bool) {
	t.current++
	if !ok {
		t.failed++
	}
	t.reporter.Update(&StageProgress{
		Stage:     t.stage,
		Phase:     PhaseProcessing,
		Path:      path,
		Current:   t.current,
		Total:     t.total,
		Failed:    t.failed,
		StartTime: t.start,
	})
}

// Done marks the stage complete, or failed when err is non-nil
func (t *Tracker) Done(err error) {
	phase := PhaseComplete
	if err != nil {
		phase = PhaseError
	}
	t.reporter.Update(&StageProgress{
		Stage:     t.stage,
		Phase:     phase,
		Current:   t.current,
		Total:     t.total,
		Failed:    t.failed,
		StartTime: t.start,
		Error:     err,
	})
}

// FormatStageProgress returns a human-readable progress line
func FormatStageProgress(p *StageProgress) string {
	if p == nil {
		return "Preparing..."
	}

	elapsed := time.Since(p.StartTime)

	switch p.Phase {
	case PhaseCounting:
		return fmt.Sprintf("%s: %d files to process", p.Stage, p.Total)
	case PhaseProcessing:
		percentage := 0
		if p.Total > 0 {
			percentage = (p.Current * 100) / p.Total
		}

		eta := ""
		if p.Current > 0 && p.Total > p.Current {
			avgTime := elapsed / time.Duration(p.Current)
			remaining := time.Duration(p.Total-p.Current) * avgTime
			eta = fmt.Sprintf(" ETA: %s", FormatDuration(remaining))
		}

		return fmt.Sprintf("%s: %d/%d (%d%%) %s%s",
			p.Stage,
			p.Current,
			p.Total,
			percentage,
			filepath.Base(p.Path),
			eta)
	case PhaseComplete:
		return fmt.Sprintf("%s complete: %s files in %s (%d failed)",
			p.Stage,
			utils.FormatCount(p.Current),
			FormatDuration(elapsed),
			p.Failed)
	case PhaseError:
		return fmt.Sprintf("%s error: %v", p.Stage, p.Error)
	default:
		return "Working..."
	}
}

// FormatDuration formats duration in human-readable format
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
