// Package util provides shared utility functions used across the codebase.
package util

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Truncate shortens a string to maxLen runes, appending "..." when it was
// cut. It ignores ANSI escape codes and wide characters; for styled
// terminal output use TruncateANSI.
func Truncate(s string, maxLen int) string {
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateANSI shortens a string to maxWidth visual columns, appending
// "..." when it was cut. Escape sequences and wide characters are
// measured correctly, so styled content keeps its styling.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "...")
}

// FirstLine returns the first line of a string, truncated to maxLen runes.
func FirstLine(s string, maxLen int) string {
	for i, r := range s {
		if r == '\n' {
			return Truncate(s[:i], maxLen)
		}
	}
	return Truncate(s, maxLen)
}
