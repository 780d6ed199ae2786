package ui

import "strings"

// Unicode symbols for status indicators.
const (
	SymbolSuccess = "✓"
	SymbolFail    = "✗"
	SymbolWarning = "!"
	SymbolUnknown = "?"
)

// StatusSymbol returns the indicator shown before a metric status.
func StatusSymbol(status string) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "OK":
		return SymbolSuccess
	case "WARNING":
		return SymbolWarning
	case "CRITICAL":
		return SymbolFail
	}
	return SymbolUnknown
}
