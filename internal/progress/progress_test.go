package progress

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTrackerPublishesToSubscribers(t *testing.T) {
	r := NewReporter()
	ch := r.Subscribe()

	tr := r.Start("sort", 2)
	tr.Step("/root/a.jpg", true)
	tr.Step("/root/b.xyz", false)
	tr.Done(nil)

	var updates []*StageProgress
	for i := 0; i < 4; i++ {
		select {
		case u := <-ch:
			updates = append(updates, u)
		case <-time.After(time.Second):
			t.Fatalf("expected 4 updates, got %d", len(updates))
		}
	}

	if updates[0].Phase != PhaseCounting || updates[0].Total != 2 {
		t.Errorf("first update = %+v", updates[0])
	}
	if updates[2].Current != 2 || updates[2].Failed != 1 {
		t.Errorf("third update = %+v", updates[2])
	}
	if updates[3].Phase != PhaseComplete {
		t.Errorf("last update phase = %s", updates[3].Phase)
	}
	if r.Current() != updates[3] {
		t.Error("Current should return the last update")
	}

	r.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after Unsubscribe")
	}
}

func TestNilReporterIsSafe(t *testing.T) {
	var r *Reporter
	tr := r.Start("dedup", 1)
	tr.Step("x", true)
	tr.Done(errors.New("boom"))

	if r.Current() != nil {
		t.Error("nil reporter should have no current progress")
	}
}

func TestFormatStageProgress(t *testing.T) {
	start := time.Now().Add(-10 * time.Second)

	tests := []struct {
		name string
		p    *StageProgress
		want string
	}{
		{"nil", nil, "Preparing..."},
		{"counting", &StageProgress{Stage: "dedup", Phase: PhaseCounting, Total: 5, StartTime: start}, "dedup: 5 files to process"},
		{"processing", &StageProgress{Stage: "sort", Phase: PhaseProcessing, Current: 1, Total: 4, Path: "/x/photo.jpg", StartTime: start}, "sort: 1/4 (25%) photo.jpg ETA:"},
		{"error", &StageProgress{Stage: "convert", Phase: PhaseError, Error: errors.New("tool missing"), StartTime: start}, "convert error: tool missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatStageProgress(tt.p)
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("got %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "2h3m4s"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
