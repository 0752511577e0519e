package monitor

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blecentral/internal/domain"
)

type fakeCentral struct {
	mu       sync.Mutex
	state    domain.AdapterState
	calls    []string
	dups     []bool
	listener domain.Listener
}

func (f *fakeCentral) SubscribeAll(l domain.Listener) func() {
	f.mu.Lock()
	f.listener = l
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.listener = nil
		f.mu.Unlock()
	}
}

func (f *fakeCentral) State() domain.AdapterState { return f.state }

func (f *fakeCentral) StartScanning(_ []string, allowDuplicates bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "start")
	f.dups = append(f.dups, allowDuplicates)
}

func (f *fakeCentral) StopScanning() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "stop")
}

func (f *fakeCentral) emit(ev domain.Event) {
	f.mu.Lock()
	l := f.listener
	f.mu.Unlock()
	if l != nil {
		l(context.Background(), ev)
	}
}

func key(r string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)} }

func newSizedModel(t *testing.T, deps Deps) *Model {
	t.Helper()
	m := New(deps)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

// run executes cmd and any nested batch or sequence commands, returning
// the messages they produced.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	switch m := msg.(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range m {
			out = append(out, run(c)...)
		}
		return out
	case nil:
		return nil
	default:
		if seq := sequenceCmds(msg); seq != nil {
			var out []tea.Msg
			for _, c := range seq {
				out = append(out, run(c)...)
			}
			return out
		}
		return []tea.Msg{msg}
	}
}

// sequenceCmds unpacks the message produced by tea.Sequence, whose type is
// not exported.
func sequenceCmds(msg tea.Msg) []tea.Cmd {
	v := reflect.ValueOf(msg)
	if v.Kind() != reflect.Slice {
		return nil
	}
	out := make([]tea.Cmd, 0, v.Len())
	for i := range v.Len() {
		c, ok := v.Index(i).Interface().(tea.Cmd)
		if !ok {
			return nil
		}
		out = append(out, c)
	}
	return out
}

func discover(uuid, name string, rssi int) domain.Event {
	return domain.NewEvent(domain.EventDiscover, uuid, "aa:bb", domain.AddressPublic, true,
		domain.Advertisement{LocalName: name}, rssi)
}

func TestViewBeforeSize(t *testing.T) {
	m := New(Deps{Central: &fakeCentral{state: domain.StateUnknown}})
	assert.Contains(t, m.View(), "Initializing")
}

func TestInitSubscribesAndForwards(t *testing.T) {
	fc := &fakeCentral{state: domain.StatePoweredOn}
	m := New(Deps{Central: fc})

	var got []tea.Msg
	m.SetProgramSender(func(msg tea.Msg) { got = append(got, msg) })
	assert.Nil(t, m.Init())

	fc.emit(domain.NewEvent(domain.EventScanStart))
	require.Len(t, got, 1)
	assert.Equal(t, domain.EventScanStart, got[0].(EventMsg).Event.Type)
}

func TestScanOnStartWaitsForPoweredOn(t *testing.T) {
	fc := &fakeCentral{state: domain.StateUnknown}
	m := newSizedModel(t, Deps{Central: fc, ScanOnStart: true})
	assert.Nil(t, m.Init())

	_, cmd := m.Update(EventMsg{Event: domain.NewEvent(domain.EventStateChange, "poweredOn")})
	run(cmd)
	assert.Equal(t, []string{"start"}, fc.calls)
	assert.Equal(t, domain.StatePoweredOn, m.State())

	_, cmd = m.Update(EventMsg{Event: domain.NewEvent(domain.EventStateChange, "poweredOn")})
	assert.Nil(t, cmd, "auto scan only once")
}

func TestScanToggle(t *testing.T) {
	fc := &fakeCentral{state: domain.StatePoweredOn}
	m := newSizedModel(t, Deps{Central: fc})

	_, cmd := m.Update(key("s"))
	run(cmd)
	m.Update(EventMsg{Event: domain.NewEvent(domain.EventScanStart)})
	assert.True(t, m.Scanning())

	_, cmd = m.Update(key("s"))
	run(cmd)
	m.Update(EventMsg{Event: domain.NewEvent(domain.EventScanStop)})
	assert.False(t, m.Scanning())
	assert.Equal(t, []string{"start", "stop"}, fc.calls)
}

func TestDuplicatesToggleRestartsScan(t *testing.T) {
	fc := &fakeCentral{state: domain.StatePoweredOn}
	m := newSizedModel(t, Deps{Central: fc})
	m.Update(EventMsg{Event: domain.NewEvent(domain.EventScanStart)})

	_, cmd := m.Update(key("d"))
	require.NotNil(t, cmd)
	run(cmd)
	assert.Equal(t, []string{"stop", "start"}, fc.calls)
	assert.Equal(t, []bool{true}, fc.dups)
}

func TestDiscoverFillsTable(t *testing.T) {
	fc := &fakeCentral{state: domain.StatePoweredOn}
	m := newSizedModel(t, Deps{Central: fc})

	m.Update(EventMsg{Event: discover("c0ffee000002", "Thermo", -80)})
	m.Update(EventMsg{Event: discover("c0ffee000001", "Polar H10", -58)})
	m.Update(EventMsg{Event: discover("c0ffee000002", "", -70)})
	m.Update(EventMsg{Event: domain.NewEvent(domain.EventConnect, "c0ffee000001", nil)})
	m.Update(EventMsg{Event: domain.NewEvent(domain.EventRSSIUpdate, "c0ffee000001", -50)})

	rows := m.Peripherals()
	require.Len(t, rows, 2)
	assert.Equal(t, "c0ffee000001", rows[0].Peripheral.UUID)
	assert.True(t, rows[0].Connected)
	assert.Equal(t, -50, rows[0].Peripheral.RSSI)
	assert.Equal(t, "Thermo", rows[1].Peripheral.Advertisement.LocalName, "name kept across advertisements")
	assert.Equal(t, 2, rows[1].Seen)

	view := m.View()
	assert.Contains(t, view, "Polar H10")
	assert.Contains(t, view, "2 peripherals")
}

func TestFailedConnectLeavesRowDisconnected(t *testing.T) {
	fc := &fakeCentral{state: domain.StatePoweredOn}
	m := newSizedModel(t, Deps{Central: fc})
	m.Update(EventMsg{Event: discover("c0ffee000001", "Polar H10", -58)})
	m.Update(EventMsg{Event: domain.NewEvent(domain.EventConnect, "c0ffee000001",
		domain.NewDriverError("Connect", "c0ffee000001", errors.New("refused")))})
	assert.False(t, m.Peripherals()[0].Connected)
}

func TestErrorsCountedAndCleared(t *testing.T) {
	fc := &fakeCentral{state: domain.StatePoweredOn}
	m := newSizedModel(t, Deps{Central: fc})
	m.Update(EventMsg{Event: domain.NewEvent(domain.EventError, domain.NewDriverError("Read", "x", errors.New("boom")))})
	m.Update(EventMsg{Event: discover("c0ffee000001", "Polar H10", -58)})
	assert.Contains(t, m.View(), "1 errors")

	m.Update(key("c"))
	assert.Contains(t, m.View(), "0 peripherals")
	assert.Contains(t, m.View(), "0 errors")
}

func TestPowerOffStopsScanningFlag(t *testing.T) {
	fc := &fakeCentral{state: domain.StatePoweredOn}
	m := newSizedModel(t, Deps{Central: fc})
	m.Update(EventMsg{Event: domain.NewEvent(domain.EventScanStart)})
	m.Update(EventMsg{Event: domain.NewEvent(domain.EventStateChange, "poweredOff")})
	assert.False(t, m.Scanning())
	assert.Contains(t, m.View(), "poweredOff")
}

func TestQuitStopsScanAndUnsubscribes(t *testing.T) {
	fc := &fakeCentral{state: domain.StatePoweredOn}
	m := newSizedModel(t, Deps{Central: fc})
	m.SetProgramSender(func(tea.Msg) {})
	m.Init()
	m.Update(EventMsg{Event: domain.NewEvent(domain.EventScanStart)})

	_, cmd := m.Update(key("q"))
	msgs := run(cmd)
	assert.Contains(t, fc.calls, "stop")
	assert.Nil(t, fc.listener)

	var quit bool
	for _, msg := range msgs {
		if _, ok := msg.(tea.QuitMsg); ok {
			quit = true
		}
	}
	assert.True(t, quit)
}

func TestTabSwitchesFocus(t *testing.T) {
	fc := &fakeCentral{state: domain.StatePoweredOn}
	m := newSizedModel(t, Deps{Central: fc})
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, paneEvents, m.focus)
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, panePeripherals, m.focus)
}

func TestStreamShowsEventTypes(t *testing.T) {
	fc := &fakeCentral{state: domain.StatePoweredOn}
	m := newSizedModel(t, Deps{Central: fc})
	ev := domain.NewEvent(domain.EventRead, "c0ffee000001", "180f", "2a19", []byte{0x57}, false)
	ev.Timestamp = time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)
	m.Update(EventMsg{Event: ev})
	view := m.View()
	assert.True(t, strings.Contains(view, "read"), view)
	assert.Contains(t, view, "09:30:00")
}
