// Package ui holds the terminal styling shared by the result renderers and
// the inventory listing: a small ANSI palette, status symbols and a
// non-interactive table.
//
// Colors are ANSI codes so that they degrade on limited terminals:
//
//	ColorSuccess (green)  - OK
//	ColorWarning (yellow) - WARNING
//	ColorError   (red)    - CRITICAL
//	ColorInfo    (cyan)   - UNKNOWN
//	ColorMuted   (gray)   - anything else, secondary text
package ui
