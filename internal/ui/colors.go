package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette using ANSI color codes for terminal compatibility.
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// StatusColor maps a metric status (OK, WARNING, CRITICAL, UNKNOWN) to its
// display color. Unrecognized statuses are muted.
func StatusColor(status string) lipgloss.Color {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "OK":
		return ColorSuccess
	case "WARNING":
		return ColorWarning
	case "CRITICAL":
		return ColorError
	case "UNKNOWN":
		return ColorInfo
	}
	return ColorMuted
}
