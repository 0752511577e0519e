package components

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"blecentral/internal/adapter/tui/theme"
	"blecentral/internal/domain"
)

// PeripheralRow is what the table knows about one device.
type PeripheralRow struct {
	Peripheral domain.Peripheral
	LastSeen   time.Time
	Seen       int
	Connected  bool
}

// PeripheralTableModel lists discovered peripherals, strongest signal first.
type PeripheralTableModel struct {
	Table  table.Model
	rows   map[string]*PeripheralRow
	ready  bool
	width  int
	height int
}

// NewPeripheralTable creates an empty peripheral table.
func NewPeripheralTable() PeripheralTableModel {
	return PeripheralTableModel{rows: make(map[string]*PeripheralRow)}
}

// SetSize sets the available dimensions.
func (m *PeripheralTableModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.ready = true
	m.rebuildTable()
}

// Observe records a discover event. Names and service lists from earlier
// advertisements are kept when a later one omits them.
func (m *PeripheralTableModel) Observe(p domain.Peripheral, at time.Time) {
	row, ok := m.rows[p.UUID]
	if !ok {
		row = &PeripheralRow{}
		m.rows[p.UUID] = row
	}
	prev := row.Peripheral
	row.Peripheral = p
	if p.Advertisement.LocalName == "" {
		row.Peripheral.Advertisement.LocalName = prev.Advertisement.LocalName
	}
	if len(p.Advertisement.ServiceUUIDs) == 0 {
		row.Peripheral.Advertisement.ServiceUUIDs = prev.Advertisement.ServiceUUIDs
	}
	row.LastSeen = at
	row.Seen++
	m.rebuildTable()
}

// SetRSSI updates the signal strength of a known peripheral.
func (m *PeripheralTableModel) SetRSSI(uuid string, rssi int) {
	if row, ok := m.rows[uuid]; ok {
		row.Peripheral.RSSI = rssi
		m.rebuildTable()
	}
}

// SetConnected marks a known peripheral connected or disconnected.
func (m *PeripheralTableModel) SetConnected(uuid string, connected bool) {
	if row, ok := m.rows[uuid]; ok {
		row.Connected = connected
		m.rebuildTable()
	}
}

// Clear forgets every peripheral.
func (m *PeripheralTableModel) Clear() {
	m.rows = make(map[string]*PeripheralRow)
	m.rebuildTable()
}

// Len returns the number of peripherals.
func (m PeripheralTableModel) Len() int { return len(m.rows) }

// Rows returns the peripherals in display order.
func (m PeripheralTableModel) Rows() []PeripheralRow {
	out := make([]PeripheralRow, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Peripheral.RSSI != out[j].Peripheral.RSSI {
			return out[i].Peripheral.RSSI > out[j].Peripheral.RSSI
		}
		return out[i].Peripheral.UUID < out[j].Peripheral.UUID
	})
	return out
}

// Selected returns the UUID of the highlighted peripheral, or "".
func (m PeripheralTableModel) Selected() string {
	row := m.Table.SelectedRow()
	if len(row) == 0 {
		return ""
	}
	return row[0]
}

// Focus gives the table keyboard focus.
func (m *PeripheralTableModel) Focus() { m.Table.Focus() }

// Update handles table navigation.
func (m PeripheralTableModel) Update(msg tea.Msg) (PeripheralTableModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

// View renders the table.
func (m PeripheralTableModel) View() string {
	if !m.ready {
		return ""
	}
	if len(m.rows) == 0 {
		return theme.TextMuted.Render("  No peripherals yet. Press s to scan.")
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(m.Table.View())
}

func (m *PeripheralTableModel) rebuildTable() {
	if !m.ready {
		return
	}

	nameW := max(m.width-12-7-6-8-9-6-10-16, 12)
	columns := []table.Column{
		{Title: "UUID", Width: 12},
		{Title: "Name", Width: nameW},
		{Title: "RSSI", Width: 7},
		{Title: "Signal", Width: 6},
		{Title: "Addr", Width: 8},
		{Title: "Conn", Width: 9},
		{Title: "Seen", Width: 6},
		{Title: "Last", Width: 10},
	}

	var rows []table.Row
	for _, r := range m.Rows() {
		p := r.Peripheral
		name := p.Advertisement.LocalName
		if len(name) > nameW {
			name = name[:nameW-1] + theme.SymbolEllipsis
		}
		conn := "-"
		switch {
		case r.Connected:
			conn = theme.SymbolSuccess
		case p.Connectable:
			conn = "yes"
		}
		rows = append(rows, table.Row{
			p.UUID,
			name,
			fmt.Sprintf("%d", p.RSSI),
			theme.RSSIBar(p.RSSI),
			string(p.AddressType),
			conn,
			strconv.Itoa(r.Seen),
			r.LastSeen.Format("15:04:05"),
		})
	}

	cursor := m.Table.Cursor()
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-2, 3)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(s)
	if cursor > 0 && cursor < len(rows) {
		t.SetCursor(cursor)
	}

	m.Table = t
}
