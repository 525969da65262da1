package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/fenilsonani/orgest/internal/config"
	"github.com/fenilsonani/orgest/internal/stage"
)

// Run modes recorded in the ledger
const (
	ModeAutomatic = "automatic"
	ModeCustom    = "custom"
)

// StepRecord is one executed stage
type StepRecord struct {
	Name      string          `json:"name" yaml:"name"`
	Success   bool            `json:"success" yaml:"success"`
	ErrorCode stage.ErrorCode `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	Processed int             `json:"processed" yaml:"processed"`
	Failures  int             `json:"failures" yaml:"failures"`
	Summary   []stage.Field   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Duration  time.Duration   `json:"duration" yaml:"duration"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
}

// ErrorRecord is one error raised while a stage ran
type ErrorRecord struct {
	Stage     string    `json:"stage" yaml:"stage"`
	Message   string    `json:"message" yaml:"message"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Ledger tracks the progress of one run across stages
type Ledger struct {
	RunID         string        `json:"run_id" yaml:"run_id"`
	Root          string        `json:"root" yaml:"root"`
	Mode          string        `json:"mode" yaml:"mode"`
	StartedAt     time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt    time.Time     `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Steps         []StepRecord  `json:"steps" yaml:"steps"`
	Errors        []ErrorRecord `json:"errors,omitempty" yaml:"errors,omitempty"`
	TotalFiles    int           `json:"total_files" yaml:"total_files"`
	Processed     int           `json:"processed" yaml:"processed"`
	Unprocessable int           `json:"unprocessable" yaml:"unprocessable"`
	Interrupted   bool          `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
}

// NewLedger starts a ledger for a run over root
func NewLedger(root, mode string, now time.Time) *Ledger {
	return &Ledger{
		RunID:     uuid.NewString(),
		Root:      root,
		Mode:      mode,
		StartedAt: now,
	}
}

// Record appends the outcome of a stage and adds its processed count
func (l *Ledger) Record(outcome stage.Outcome, at time.Time) StepRecord {
	step := StepRecord{
		Name:      outcome.Name(),
		Success:   outcome.Code() == stage.CodeNone && outcome.Error() == nil,
		ErrorCode: outcome.Code(),
		Processed: outcome.Processed(),
		Failures:  len(outcome.FileFailures()),
		Summary:   outcome.Summary(),
		Duration:  outcome.Elapsed(),
		Timestamp: at,
	}
	l.Steps = append(l.Steps, step)
	l.Processed += step.Processed

	if err := outcome.Error(); err != nil {
		l.AddError(outcome.Name(), err.Error(), at)
	}
	for _, failure := range outcome.FileFailures() {
		l.AddError(outcome.Name(), failure.UserMessage(), at)
	}
	if outcome.Code() == stage.CodeInterrupted {
		l.Interrupted = true
	}
	return step
}

// AddError records an error against a stage
func (l *Ledger) AddError(stageName, message string, at time.Time) {
	l.Errors = append(l.Errors, ErrorRecord{Stage: stageName, Message: message, Timestamp: at})
}

// Finish stamps the end time and derives the unprocessable count from the
// files counted before the run
func (l *Ledger) Finish(at time.Time) {
	l.FinishedAt = at
	l.Unprocessable = max(0, l.TotalFiles-l.Processed)
}

// Succeeded returns the number of steps that finished without a stage error
func (l *Ledger) Succeeded() int {
	n := 0
	for _, s := range l.Steps {
		if s.Success {
			n++
		}
	}
	return n
}

// Duration is the wall time between start and finish
func (l *Ledger) Duration() time.Duration {
	if l.FinishedAt.IsZero() {
		return 0
	}
	return l.FinishedAt.Sub(l.StartedAt)
}

// ToRecord converts the ledger into its persisted history form
func (l *Ledger) ToRecord() *config.RunRecord {
	record := &config.RunRecord{
		ID:            l.RunID,
		Root:          l.Root,
		Mode:          l.Mode,
		StartedAt:     l.StartedAt,
		FinishedAt:    l.FinishedAt,
		TotalFiles:    l.TotalFiles,
		Processed:     l.Processed,
		Unprocessable: l.Unprocessable,
		Interrupted:   l.Interrupted,
	}
	for _, s := range l.Steps {
		record.Steps = append(record.Steps, config.RunStepRecord{
			Name:      s.Name,
			Success:   s.Success,
			ErrorCode: string(s.ErrorCode),
			Timestamp: s.Timestamp,
		})
	}
	for _, e := range l.Errors {
		record.Errors = append(record.Errors, e.Stage+": "+e.Message)
	}
	return record
}
