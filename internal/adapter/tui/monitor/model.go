package monitor

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"blecentral/internal/adapter/tui/components"
	"blecentral/internal/adapter/tui/theme"
	"blecentral/internal/domain"
)

var _ tea.Model = (*Model)(nil)

// Central is what the monitor needs from a central.
type Central interface {
	SubscribeAll(l domain.Listener) func()
	State() domain.AdapterState
	StartScanning(serviceUUIDs []string, allowDuplicates bool)
	StopScanning()
}

// Deps configures the monitor.
type Deps struct {
	Central         Central
	ServiceUUIDs    []string
	AllowDuplicates bool
	// ScanOnStart starts scanning as soon as the adapter is powered on.
	ScanOnStart bool
}

type pane int

const (
	panePeripherals pane = iota
	paneEvents
)

// Model is the root Bubble Tea model of the monitor.
type Model struct {
	deps Deps

	state     domain.AdapterState
	scanning  bool
	allowDups bool
	errors    int
	autoScan  bool
	focus     pane

	table  components.PeripheralTableModel
	stream components.EventStreamModel

	width  int
	height int

	programSend func(tea.Msg)
	unsubscribe func()
}

// New creates the monitor model.
func New(deps Deps) *Model {
	return &Model{
		deps:      deps,
		state:     deps.Central.State(),
		allowDups: deps.AllowDuplicates,
		autoScan:  deps.ScanOnStart,
		table:     components.NewPeripheralTable(),
		stream:    components.NewEventStream(),
	}
}

// SetProgramSender sets the function used to inject events into the
// program. Must be called before Run.
func (m *Model) SetProgramSender(send func(tea.Msg)) {
	m.programSend = send
}

// Init subscribes to every driver event.
func (m *Model) Init() tea.Cmd {
	if m.programSend != nil {
		m.unsubscribe = m.deps.Central.SubscribeAll(func(_ context.Context, ev domain.Event) {
			m.programSend(EventMsg{Event: ev})
		})
	}
	if m.autoScan && m.state == domain.StatePoweredOn {
		m.autoScan = false
		return startScanCmd(m.deps.Central, m.deps.ServiceUUIDs, m.allowDups)
	}
	return nil
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case EventMsg:
		return m, m.handleEvent(msg.Event)

	case scanRequestedMsg:
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case panePeripherals:
		m.table, cmd = m.table.Update(msg)
	case paneEvents:
		m.stream, cmd = m.stream.Update(msg)
	}
	return m, cmd
}

func (m *Model) quit() (tea.Cmd, bool) {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	if m.scanning {
		return tea.Sequence(stopScanCmd(m.deps.Central), tea.Quit), true
	}
	return tea.Quit, true
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m.quit()
	case tea.KeyTab:
		if m.focus == panePeripherals {
			m.focus = paneEvents
		} else {
			m.focus = panePeripherals
		}
		return nil, true
	case tea.KeyRunes:
	default:
		return nil, false
	}

	switch string(msg.Runes) {
	case "q":
		return m.quit()
	case "s":
		if m.scanning {
			return stopScanCmd(m.deps.Central), true
		}
		return startScanCmd(m.deps.Central, m.deps.ServiceUUIDs, m.allowDups), true
	case "d":
		m.allowDups = !m.allowDups
		if m.scanning {
			return tea.Sequence(stopScanCmd(m.deps.Central),
				startScanCmd(m.deps.Central, m.deps.ServiceUUIDs, m.allowDups)), true
		}
		return nil, true
	case "c":
		m.table.Clear()
		m.stream.Clear()
		m.errors = 0
		return nil, true
	case "h":
		m.stream.ToggleHidden(domain.EventDiscover)
		return nil, true
	}
	return nil, false
}

func (m *Model) handleEvent(ev domain.Event) tea.Cmd {
	m.stream.AddEvent(ev)

	switch ev.Type {
	case domain.EventStateChange:
		m.state = domain.AdapterState(ev.StringArg(0))
		if m.state != domain.StatePoweredOn {
			m.scanning = false
		} else if m.autoScan {
			m.autoScan = false
			return startScanCmd(m.deps.Central, m.deps.ServiceUUIDs, m.allowDups)
		}
	case domain.EventScanStart:
		m.scanning = true
	case domain.EventScanStop:
		m.scanning = false
	case domain.EventDiscover:
		if p, ok := domain.PeripheralFromDiscover(ev); ok {
			m.table.Observe(p, ev.Timestamp)
		}
	case domain.EventRSSIUpdate:
		if rssi, ok := ev.Arg(1).(int); ok {
			m.table.SetRSSI(ev.StringArg(0), rssi)
		}
	case domain.EventConnect:
		if ev.Arg(1) == nil {
			m.table.SetConnected(ev.StringArg(0), true)
		}
	case domain.EventDisconnect:
		m.table.SetConnected(ev.StringArg(0), false)
	case domain.EventError:
		m.errors++
	}
	return nil
}

// View renders the monitor.
func (m *Model) View() string {
	if m.width == 0 {
		return "  Initializing" + theme.SymbolEllipsis
	}

	header := theme.Title.Render("BLE monitor") + "  " +
		theme.TextMuted.Render(fmt.Sprintf("%d peripherals %s %d events %s %d errors",
			m.table.Len(), theme.SymbolBullet, m.stream.EventCount(), theme.SymbolBullet, m.errors))

	events := theme.BorderNormal
	if m.focus == paneEvents {
		events = theme.BorderActive
	}

	sb := components.NewStatusBar()
	sb.Hints = []components.KeyHint{
		{Key: "s", Desc: scanHint(m.scanning)},
		{Key: "d", Desc: dupHint(m.allowDups)},
		{Key: "h", Desc: "Hide discover"},
		{Key: "c", Desc: "Clear"},
		{Key: "Tab", Desc: "Focus"},
		{Key: "q", Desc: "Quit"},
	}
	sb.State = string(m.state)
	if m.scanning {
		sb.Extra = "scanning"
	}
	sb.SetWidth(m.width)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.table.View(),
		events.Width(max(m.width-2, 10)).Render(m.stream.View()),
		sb.View(),
	)
}

func scanHint(scanning bool) string {
	if scanning {
		return "Stop scan"
	}
	return "Scan"
}

func dupHint(allow bool) string {
	if allow {
		return "Duplicates on"
	}
	return "Duplicates off"
}

func (m *Model) layout() {
	const headerH, footerH, borders = 1, 1, 4
	avail := max(m.height-headerH-footerH-borders, 6)
	tableH := avail * 3 / 5
	streamH := avail - tableH

	m.table.SetSize(m.width-2, tableH)
	m.stream.SetSize(max(m.width-4, 10), streamH)
	m.table.Focus()
}

// State returns the adapter state the monitor last saw.
func (m *Model) State() domain.AdapterState { return m.state }

// Scanning reports whether the driver last reported an active scan.
func (m *Model) Scanning() bool { return m.scanning }

// Peripherals returns the peripherals in display order.
func (m *Model) Peripherals() []components.PeripheralRow { return m.table.Rows() }
