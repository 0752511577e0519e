package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"blecentral/internal/adapter/tui/theme"
)

// KeyHint represents a single keybinding hint shown in the status bar.
type KeyHint struct {
	Key  string // e.g. "s"
	Desc string // e.g. "Scan"
}

// StatusBarModel renders a bottom status bar with keybinding hints on the
// left and the adapter state on the right.
type StatusBarModel struct {
	Hints []KeyHint
	State string
	Extra string // e.g. "scanning"
	width int
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() StatusBarModel {
	return StatusBarModel{}
}

// SetWidth updates the available width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single line.
func (m StatusBarModel) View() string {
	var hints []string
	for _, h := range m.Hints {
		hints = append(hints, theme.StatusKey.Render(h.Key)+": "+h.Desc)
	}
	left := strings.Join(hints, "  "+theme.Dim.Render("|")+"  ")

	var parts []string
	if m.Extra != "" {
		parts = append(parts, theme.TextInfo.Render(m.Extra))
	}
	if m.State != "" {
		parts = append(parts, theme.StateStyle(m.State).Render(m.State))
	}
	right := strings.Join(parts, " "+theme.SymbolBullet+" ")

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	bar := left + strings.Repeat(" ", gap) + right
	return theme.StatusBar.Width(m.width).Render(bar)
}
