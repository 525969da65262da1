package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme colors
var (
	Primary   = lipgloss.Color("#7C3AED")
	Secondary = lipgloss.Color("#A78BFA")
	Success   = lipgloss.Color("#10B981")
	Warning   = lipgloss.Color("#F59E0B")
	Danger    = lipgloss.Color("#EF4444")
	Info      = lipgloss.Color("#3B82F6")
	Muted     = lipgloss.Color("#6B7280")
	TextDim   = lipgloss.Color("#9CA3AF")
	Border    = lipgloss.Color("#4B5563")
)

// Common styles
var (
	BannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Border(lipgloss.DoubleBorder(), true, false).
			BorderForeground(Border).
			Width(60).
			Align(lipgloss.Center)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	StepStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Secondary)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	HintStyle = lipgloss.NewStyle().
			Foreground(Muted).
			PaddingLeft(5)

	PathStyle = lipgloss.NewStyle().
			Foreground(Info)

	LabelStyle = lipgloss.NewStyle().
			Foreground(TextDim)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(TextDim).
			Italic(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(TextDim)
)

// Rule returns a horizontal line of width characters
func Rule(width int) string {
	return DimStyle.Render(strings.Repeat("=", width))
}

// ProgressBar renders a filled/empty bar for current out of total
func ProgressBar(current, total int, width int) string {
	if total <= 0 || width <= 0 {
		return ""
	}

	filled := min(current*width/total, width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	return lipgloss.NewStyle().Foreground(Primary).Render(bar)
}
