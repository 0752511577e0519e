// Package theme holds the colours and styles of the monitor TUI. Colours are
// adaptive so they work on light and dark terminals; lipgloss drops them
// when NO_COLOR is set.
package theme

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#66bb6a"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#e65100", Dark: "#ffa726"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#0277bd", Dark: "#4fc3f7"}
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#6a1b9a", Dark: "#ce93d8"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}

	ColorBorder       = lipgloss.AdaptiveColor{Light: "#bdbdbd", Dark: "#616161"}
	ColorBorderActive = lipgloss.AdaptiveColor{Light: "#1565c0", Dark: "#42a5f5"}

	ColorBgAlt = lipgloss.AdaptiveColor{Light: "#f5f5f5", Dark: "#2d2d2d"}
	ColorFgDim = lipgloss.AdaptiveColor{Light: "#9e9e9e", Dark: "#757575"}
)

// Symbols, replaced by ASCII fallbacks in InitSymbols.
var (
	SymbolSuccess  = "✓"
	SymbolError    = "✗"
	SymbolWarning  = "⚠"
	SymbolInfo     = "●"
	SymbolArrowR   = "→"
	SymbolBullet   = "•"
	SymbolEllipsis = "…"
	SymbolBarFull  = "▮"
	SymbolBarEmpty = "▯"
)

var (
	Bold = lipgloss.NewStyle().Bold(true)
	Dim  = lipgloss.NewStyle().Faint(true)

	TextSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	TextError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	TextWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	TextInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	TextAccent  = lipgloss.NewStyle().Foreground(ColorAccent)
	TextMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
)

var (
	BorderNormal = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	BorderActive = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorderActive)

	Title = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)
)

var (
	StatusBar = lipgloss.NewStyle().
			Foreground(ColorFgDim).
			Background(ColorBgAlt).
			Padding(0, 1)

	StatusKey = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Bold(true)
)

// StateStyle colours an adapter state: poweredOn is good, unknown and
// resetting are transient, everything else is a problem.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "poweredOn":
		return TextSuccess
	case "unknown", "resetting":
		return TextWarning
	default:
		return TextError
	}
}

// RSSIBar renders rssi (dBm) as a four-cell signal meter.
func RSSIBar(rssi int) string {
	var cells int
	switch {
	case rssi == 0 || rssi == 127:
		cells = 0
	case rssi >= -55:
		cells = 4
	case rssi >= -67:
		cells = 3
	case rssi >= -80:
		cells = 2
	case rssi >= -90:
		cells = 1
	}
	bar := ""
	for i := range 4 {
		if i < cells {
			bar += SymbolBarFull
		} else {
			bar += SymbolBarEmpty
		}
	}
	return bar
}

// Clamp returns v clamped to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
