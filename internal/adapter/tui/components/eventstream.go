package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"blecentral/internal/adapter/tui/theme"
	"blecentral/internal/domain"
)

const maxEventEntries = 500

// EventStreamModel is a scrollable log of driver events. It follows the
// tail unless the user has scrolled up.
type EventStreamModel struct {
	Viewport viewport.Model
	events   []domain.Event
	hidden   map[domain.EventType]bool
	ready    bool
	atBottom bool
	width    int
	height   int
}

// NewEventStream creates an event stream viewer.
func NewEventStream() EventStreamModel {
	return EventStreamModel{atBottom: true, hidden: make(map[domain.EventType]bool)}
}

// SetSize sets the viewport dimensions.
func (m *EventStreamModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if !m.ready {
		m.Viewport = viewport.New(w, h)
		m.Viewport.MouseWheelEnabled = true
		m.Viewport.MouseWheelDelta = 3
		m.ready = true
	} else {
		m.Viewport.Width = w
		m.Viewport.Height = h
	}
	m.refreshContent()
}

// ToggleHidden hides or shows events of type t and reports whether they
// are now hidden.
func (m *EventStreamModel) ToggleHidden(t domain.EventType) bool {
	m.hidden[t] = !m.hidden[t]
	m.refreshContent()
	return m.hidden[t]
}

// AddEvent appends an event, dropping the oldest past maxEventEntries.
func (m *EventStreamModel) AddEvent(event domain.Event) {
	m.events = append(m.events, event)
	if len(m.events) > maxEventEntries {
		m.events = m.events[len(m.events)-maxEventEntries:]
	}
	m.refreshContent()
	if m.atBottom {
		m.Viewport.GotoBottom()
	}
}

// Clear drops all events.
func (m *EventStreamModel) Clear() {
	m.events = nil
	m.refreshContent()
}

// Update handles viewport scrolling.
func (m EventStreamModel) Update(msg tea.Msg) (EventStreamModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	m.atBottom = m.Viewport.AtBottom()
	return m, cmd
}

// EventCount returns the number of buffered events.
func (m EventStreamModel) EventCount() int {
	return len(m.events)
}

// View renders the event stream.
func (m EventStreamModel) View() string {
	if !m.ready {
		return ""
	}
	return m.Viewport.View()
}

func (m *EventStreamModel) refreshContent() {
	if !m.ready {
		return
	}
	if len(m.events) == 0 {
		m.Viewport.SetContent(theme.TextMuted.Render("  Waiting for events" + theme.SymbolEllipsis))
		return
	}

	var sb strings.Builder
	for _, ev := range m.events {
		if m.hidden[ev.Type] {
			continue
		}
		sb.WriteString(FormatEventLine(ev))
		sb.WriteByte('\n')
	}
	m.Viewport.SetContent(sb.String())
}

// FormatEventLine renders one event as a timestamped, colour-coded line.
func FormatEventLine(ev domain.Event) string {
	padded := fmt.Sprintf("%-26s", string(ev.Type))
	var typeStyled string
	switch ev.Type {
	case domain.EventError:
		typeStyled = theme.TextError.Render(padded)
	case domain.EventStateChange:
		typeStyled = theme.TextWarning.Render(padded)
	case domain.EventDiscover, domain.EventRSSIUpdate:
		typeStyled = theme.TextInfo.Render(padded)
	case domain.EventConnect, domain.EventDisconnect:
		typeStyled = theme.TextAccent.Render(padded)
	default:
		typeStyled = theme.TextMuted.Render(padded)
	}
	return fmt.Sprintf("  %s  %s%s",
		theme.Dim.Render(ev.Timestamp.Format("15:04:05")),
		typeStyled,
		theme.TextMuted.Render(summarizeArgs(ev)))
}

func summarizeArgs(ev domain.Event) string {
	if p, ok := domain.PeripheralFromDiscover(ev); ok {
		name := p.Advertisement.LocalName
		if name == "" {
			name = "-"
		}
		return fmt.Sprintf(" %s %s %ddBm", p.UUID, name, p.RSSI)
	}
	var parts []string
	for _, a := range ev.Args {
		switch v := a.(type) {
		case nil:
		case *domain.DriverError:
			if v != nil {
				parts = append(parts, theme.TextError.Render(v.Error()))
			}
		case []byte:
			parts = append(parts, fmt.Sprintf("% x", v))
		case error:
			parts = append(parts, theme.TextError.Render(v.Error()))
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}
