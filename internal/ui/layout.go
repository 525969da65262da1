package ui

import (
	"path/filepath"
	"strings"
)

const (
	// MinTerminalWidth is the narrowest terminal the live progress line targets
	MinTerminalWidth = 40
	// DefaultTerminalWidth is used when the width cannot be detected
	DefaultTerminalWidth = 80
)

// TruncatePath shortens path to maxWidth, keeping the file name and as
// much of the leading directory as fits
func TruncatePath(path string, maxWidth int) string {
	if len(path) <= maxWidth {
		return path
	}
	if maxWidth < 10 {
		return "..."
	}

	dir, file := filepath.Split(path)
	if len(file) > maxWidth-4 {
		return "..." + file[len(file)-(maxWidth-4):]
	}

	available := maxWidth - len(file) - 3
	dir = filepath.Clean(dir)
	if available < 10 {
		return "..." + string(filepath.Separator) + file
	}

	parts := strings.Split(dir, string(filepath.Separator))
	first := parts[0]
	if first == "" && len(parts) > 1 {
		first = string(filepath.Separator) + parts[1]
	}
	last := parts[len(parts)-1]

	if len(first)+len(last)+5 <= available {
		return filepath.Join(first, "...", last, file)
	}
	return "..." + string(filepath.Separator) + filepath.Join(last, file)
}

// TruncateString truncates s to maxLen, adding an ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
