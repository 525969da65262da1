package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/orgest/internal/config"
	"github.com/fenilsonani/orgest/internal/deps"
	"github.com/fenilsonani/orgest/internal/fsx"
	"github.com/fenilsonani/orgest/internal/pipeline"
	"github.com/fenilsonani/orgest/internal/progress"
	"github.com/fenilsonani/orgest/internal/scanner"
	"github.com/fenilsonani/orgest/pkg/utils"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable   OutputFormat = "table"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatSummary OutputFormat = "summary"
)

// ParseFormat validates a user-supplied format name
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML, FormatSummary:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (use summary, table, json or yaml)", s)
	}
}

// Reporter handles report generation
type Reporter struct {
	writer io.Writer
	format OutputFormat
}

// New creates a new Reporter
func New(writer io.Writer, format OutputFormat) *Reporter {
	return &Reporter{
		writer: writer,
		format: format,
	}
}

// =============================================================================
// Run ledger
// =============================================================================

// Ledger reports the outcome of a run
func (r *Reporter) Ledger(l *pipeline.Ledger) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(l)
	case FormatYAML:
		return r.encodeYAML(l)
	case FormatTable:
		return r.ledgerTable(l)
	case FormatSummary:
		return r.ledgerSummary(l)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

func (r *Reporter) ledgerSummary(l *pipeline.Ledger) error {
	fmt.Fprintf(r.writer, "=== Run Summary ===\n")
	fmt.Fprintf(r.writer, "Folder: %s\n", l.Root)
	fmt.Fprintf(r.writer, "Mode: %s\n", l.Mode)
	fmt.Fprintf(r.writer, "Steps completed: %d/%d\n", l.Succeeded(), len(l.Steps))
	fmt.Fprintf(r.writer, "Errors: %d\n", len(l.Errors))
	if l.TotalFiles > 0 {
		fmt.Fprintf(r.writer, "Files in folder: %s\n", utils.FormatCount(l.TotalFiles))
	}
	fmt.Fprintf(r.writer, "Files processed: %s\n", utils.FormatCount(l.Processed))
	if l.TotalFiles > 0 {
		fmt.Fprintf(r.writer, "Files not processable: %s\n", utils.FormatCount(l.Unprocessable))
	}
	if d := l.Duration(); d > 0 {
		fmt.Fprintf(r.writer, "Duration: %s\n", progress.FormatDuration(d))
	}
	if l.Interrupted {
		fmt.Fprintf(r.writer, "Interrupted before completion\n")
	}

	if len(l.Errors) > 0 {
		fmt.Fprintf(r.writer, "\nErrors found:\n")
		for _, e := range l.Errors {
			fmt.Fprintf(r.writer, "  - %s: %s\n", e.Stage, e.Message)
		}
	}

	return nil
}

func (r *Reporter) ledgerTable(l *pipeline.Ledger) error {
	rows := make([][]string, 0, len(l.Steps))
	for _, s := range l.Steps {
		status := "ok"
		if !s.Success {
			status = "failed"
			if s.ErrorCode != "" {
				status = string(s.ErrorCode)
			}
		}
		rows = append(rows, []string{
			s.Name,
			status,
			utils.FormatCount(s.Processed),
			utils.FormatCount(s.Failures),
			progress.FormatDuration(s.Duration),
		})
	}

	fmt.Fprintln(r.writer, renderTable(
		[]string{"Step", "Status", "Processed", "Failures", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
	fmt.Fprintf(r.writer, "Total: %s processed, %s not processable, %s\n",
		utils.FormatCount(l.Processed), utils.FormatCount(l.Unprocessable), utils.Plural(len(l.Errors), "error"))

	return nil
}

// =============================================================================
// Duplicate scan
// =============================================================================

type duplicateReport struct {
	Path      string `json:"path" yaml:"path"`
	Canonical string `json:"canonical" yaml:"canonical"`
	Size      int64  `json:"size" yaml:"size"`
}

type unhashableReport struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

type scanReport struct {
	Timestamp              string             `json:"timestamp" yaml:"timestamp"`
	Root                   string             `json:"root" yaml:"root"`
	TotalScanned           int                `json:"total_scanned" yaml:"total_scanned"`
	Duplicates             []duplicateReport  `json:"duplicates" yaml:"duplicates"`
	DuplicateSize          int64              `json:"duplicate_size" yaml:"duplicate_size"`
	DuplicateSizeFormatted string             `json:"duplicate_size_formatted" yaml:"duplicate_size_formatted"`
	Unhashable             []unhashableReport `json:"unhashable,omitempty" yaml:"unhashable,omitempty"`
	WalkErrors             int                `json:"walk_errors" yaml:"walk_errors"`
}

// Scan reports a duplicate scan
func (r *Reporter) Scan(result *scanner.ScanResult) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(newScanReport(result))
	case FormatYAML:
		return r.encodeYAML(newScanReport(result))
	case FormatTable:
		return r.scanTable(result)
	case FormatSummary:
		return r.scanSummary(result)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

func newScanReport(result *scanner.ScanResult) scanReport {
	report := scanReport{
		Timestamp:              time.Now().Format(time.RFC3339),
		Root:                   result.Root,
		TotalScanned:           result.TotalScanned,
		Duplicates:             []duplicateReport{},
		DuplicateSize:          result.DuplicateSize(),
		DuplicateSizeFormatted: utils.FormatBytes(result.DuplicateSize()),
		WalkErrors:             len(result.WalkErrors),
	}
	for _, d := range result.Duplicates {
		report.Duplicates = append(report.Duplicates, duplicateReport{
			Path:      d.Path,
			Canonical: d.CanonicalPath,
			Size:      d.Size,
		})
	}
	for _, u := range result.Unhashable {
		report.Unhashable = append(report.Unhashable, unhashableReport{Path: u.Path, Error: u.Err.Error()})
	}
	return report
}

func (r *Reporter) scanSummary(result *scanner.ScanResult) error {
	groups := result.Groups()

	fmt.Fprintf(r.writer, "=== Duplicate Scan ===\n")
	fmt.Fprintf(r.writer, "Folder: %s\n", result.Root)
	fmt.Fprintf(r.writer, "Files scanned: %s\n", utils.FormatCount(result.TotalScanned))
	fmt.Fprintf(r.writer, "Duplicates: %s in %d groups, %s\n",
		utils.FormatCount(len(result.Duplicates)), len(groups), utils.FormatBytes(result.DuplicateSize()))

	for _, g := range groups {
		fmt.Fprintf(r.writer, "\n  %s\n", r.rel(result.Root, g.Kept.Path))
		for _, c := range g.Copies {
			fmt.Fprintf(r.writer, "    = %s\n", r.rel(result.Root, c.Path))
		}
	}

	if len(result.Unhashable) > 0 {
		fmt.Fprintf(r.writer, "\nUnreadable files: %d\n", len(result.Unhashable))
	}
	if len(result.WalkErrors) > 0 {
		fmt.Fprintf(r.writer, "Errors: %d\n", len(result.WalkErrors))
	}

	return nil
}

func (r *Reporter) scanTable(result *scanner.ScanResult) error {
	rows := make([][]string, 0, len(result.Duplicates))
	for _, d := range result.Duplicates {
		rows = append(rows, []string{
			r.rel(result.Root, d.Path),
			r.rel(result.Root, d.CanonicalPath),
			utils.FormatBytes(d.Size),
		})
	}

	fmt.Fprintln(r.writer, renderTable(
		[]string{"Duplicate", "Copy of", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	))
	fmt.Fprintf(r.writer, "Total: %s duplicates, %s\n",
		utils.FormatCount(len(result.Duplicates)), utils.FormatBytes(result.DuplicateSize()))

	return nil
}

func (r *Reporter) rel(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

// =============================================================================
// History and dependencies
// =============================================================================

// History reports saved runs, newest first
func (r *Reporter) History(records []*config.RunRecord) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(records)
	case FormatYAML:
		return r.encodeYAML(records)
	case FormatTable, FormatSummary:
		if len(records) == 0 {
			fmt.Fprintln(r.writer, "No runs recorded yet")
			return nil
		}
		rows := make([][]string, 0, len(records))
		for _, rec := range records {
			rows = append(rows, []string{
				rec.StartedAt.Format("2006-01-02 15:04"),
				rec.Mode,
				rec.Root,
				fmt.Sprintf("%d/%d", succeededSteps(rec), len(rec.Steps)),
				utils.FormatCount(rec.Processed),
				fmt.Sprint(len(rec.Errors)),
			})
		}
		fmt.Fprintln(r.writer, renderTable(
			[]string{"Started", "Mode", "Folder", "Steps", "Processed", "Errors"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
		))
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

func succeededSteps(rec *config.RunRecord) int {
	n := 0
	for _, s := range rec.Steps {
		if s.Success {
			n++
		}
	}
	return n
}

// Deps reports external tool availability
func (r *Reporter) Deps(statuses []deps.Status) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(statuses)
	case FormatYAML:
		return r.encodeYAML(statuses)
	case FormatTable, FormatSummary:
		rows := make([][]string, 0, len(statuses))
		for _, s := range statuses {
			state := "missing"
			switch {
			case s.Available:
				state = "ok"
			case s.Optional:
				state = "not found (optional)"
			}
			detail := s.Path
			if !s.Available {
				detail = s.Detail
			}
			rows = append(rows, []string{s.Name, s.Command, state, detail, s.Description})
		}
		fmt.Fprintln(r.writer, renderTable(
			[]string{"Tool", "Command", "Status", "Path", "Used for"},
			rows,
			nil,
		))
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

// =============================================================================
// Encoding helpers
// =============================================================================

func (r *Reporter) encodeJSON(v any) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (r *Reporter) encodeYAML(v any) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(v)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// SaveToFile writes a report to path atomically
func SaveToFile(path string, format OutputFormat, report func(*Reporter) error) error {
	return fsx.WriteAtomic(path, func(w io.Writer) error {
		return report(New(w, format))
	})
}
