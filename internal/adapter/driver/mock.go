package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"blecentral/internal/domain"
)

func init() {
	mustRegister(NameMock, func(cfg Config) (domain.Driver, error) {
		opts := []MockOption{WithMockLogger(cfg.logger())}
		if cfg.MockState != "" {
			opts = append(opts, WithMockState(cfg.MockState))
		}
		peripherals := cfg.MockPeripherals
		if peripherals == nil {
			peripherals = DemoPeripherals()
		}
		opts = append(opts, WithMockPeripherals(peripherals...))
		return NewMock(opts...), nil
	})
}

var errNotConnected = errors.New("peripheral not connected")

// MockPeripheral is a simulated peripheral served by MockDriver.
type MockPeripheral struct {
	Peripheral domain.Peripheral
	Services   []MockService
	Handles    map[uint16][]byte
}

// MockService is a simulated GATT service.
type MockService struct {
	UUID            string
	Included        []string
	Characteristics []MockCharacteristic
}

// MockCharacteristic is a simulated GATT characteristic.
type MockCharacteristic struct {
	UUID        string
	Properties  []string
	Value       []byte
	Descriptors map[string][]byte
}

type mockDevice struct {
	info      MockPeripheral
	connected bool
	notifying map[string]bool // "svc/char"
}

// MockDriver is an in-memory domain.Driver. Every operation completes
// synchronously and posts its outcome to the bound sink before returning.
type MockDriver struct {
	mu        sync.Mutex
	sink      domain.EventSink
	logger    *slog.Logger
	state     domain.AdapterState
	devices   map[string]*mockDevice
	order     []string
	scanning  bool
	filter    []string
	allowDups bool
	seen      map[string]bool
	calls     []string
	closed    bool
}

// MockOption configures a MockDriver.
type MockOption func(*MockDriver)

// WithMockState sets the adapter state reported on Init.
func WithMockState(st domain.AdapterState) MockOption {
	return func(m *MockDriver) { m.state = st }
}

// WithMockPeripherals seeds the simulated environment.
func WithMockPeripherals(ps ...MockPeripheral) MockOption {
	return func(m *MockDriver) {
		for _, p := range ps {
			m.addLocked(p)
		}
	}
}

// WithMockLogger sets the logger.
func WithMockLogger(l *slog.Logger) MockOption {
	return func(m *MockDriver) { m.logger = l }
}

// NewMock creates a mock driver that powers on by default.
func NewMock(opts ...MockOption) *MockDriver {
	m := &MockDriver{
		state:   domain.StatePoweredOn,
		devices: make(map[string]*mockDevice),
		seen:    make(map[string]bool),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockDriver) addLocked(p MockPeripheral) *mockDevice {
	p.Peripheral.UUID = domain.NormalizeUUID(p.Peripheral.UUID)
	if p.Peripheral.AddressType == "" {
		p.Peripheral.AddressType = domain.AddressUnknown
	}
	dev, ok := m.devices[p.Peripheral.UUID]
	if !ok {
		dev = &mockDevice{notifying: make(map[string]bool)}
		m.devices[p.Peripheral.UUID] = dev
		m.order = append(m.order, p.Peripheral.UUID)
	}
	dev.info = p
	return dev
}

func (m *MockDriver) record(call string) {
	m.calls = append(m.calls, call)
}

// Calls returns the driver operations invoked so far, in order.
func (m *MockDriver) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how many times op was invoked.
func (m *MockDriver) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == op {
			n++
		}
	}
	return n
}

// Sink returns the sink passed to Bind, or nil.
func (m *MockDriver) Sink() domain.EventSink {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sink
}

func (m *MockDriver) post(sink domain.EventSink, evs ...domain.Event) {
	if sink == nil {
		return
	}
	for _, ev := range evs {
		sink.Post(ev)
	}
}

func (m *MockDriver) failure(op, device string, err error) domain.Event {
	return domain.NewEvent(domain.EventError, domain.NewDriverError(op, device, err))
}

// Bind implements domain.Driver.
func (m *MockDriver) Bind(sink domain.EventSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Bind")
	m.sink = sink
}

// Init implements domain.Driver. It reports the configured adapter state.
func (m *MockDriver) Init(_ context.Context) {
	m.mu.Lock()
	m.record("Init")
	sink, st := m.sink, m.state
	m.mu.Unlock()

	m.logger.Debug("mock ble driver initialised", "state", string(st))
	m.post(sink, domain.NewEvent(domain.EventStateChange, string(st)))
}

// SetState simulates an adapter power or authorisation change.
func (m *MockDriver) SetState(st domain.AdapterState) {
	m.mu.Lock()
	m.state = st
	if st != domain.StatePoweredOn {
		m.scanning = false
	}
	sink := m.sink
	m.mu.Unlock()
	m.post(sink, domain.NewEvent(domain.EventStateChange, string(st)))
}

func matchesFilter(filter, advertised []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, want := range filter {
		for _, have := range advertised {
			if domain.CompactUUID(want) == domain.CompactUUID(have) {
				return true
			}
		}
	}
	return false
}

func discoverEvent(p domain.Peripheral) domain.Event {
	return domain.NewEvent(domain.EventDiscover,
		p.UUID, p.Address, p.AddressType, p.Connectable, p.Advertisement, p.RSSI)
}

// StartScanning implements domain.Driver.
func (m *MockDriver) StartScanning(serviceUUIDs []string, allowDuplicates bool) {
	m.mu.Lock()
	m.record("StartScanning")
	sink := m.sink
	if m.state != domain.StatePoweredOn {
		st := m.state
		m.mu.Unlock()
		m.post(sink, m.failure("StartScanning", "", fmt.Errorf("adapter is %s", st)))
		return
	}
	m.scanning = true
	m.filter = domain.NormalizeUUIDs(serviceUUIDs)
	m.allowDups = allowDuplicates
	m.seen = make(map[string]bool)

	evs := []domain.Event{domain.NewEvent(domain.EventScanStart)}
	for _, id := range m.order {
		if ev, ok := m.discoverLocked(m.devices[id]); ok {
			evs = append(evs, ev)
		}
	}
	m.mu.Unlock()
	m.post(sink, evs...)
}

func (m *MockDriver) discoverLocked(dev *mockDevice) (domain.Event, bool) {
	p := dev.info.Peripheral
	if !matchesFilter(m.filter, p.Advertisement.ServiceUUIDs) {
		return domain.Event{}, false
	}
	if m.seen[p.UUID] && !m.allowDups {
		return domain.Event{}, false
	}
	m.seen[p.UUID] = true
	return discoverEvent(p), true
}

// Announce adds or updates a peripheral. While scanning it is reported
// with discover, subject to the service filter and duplicate policy.
func (m *MockDriver) Announce(p MockPeripheral) {
	m.mu.Lock()
	dev := m.addLocked(p)
	sink := m.sink
	var evs []domain.Event
	if m.scanning {
		if ev, ok := m.discoverLocked(dev); ok {
			evs = append(evs, ev)
		}
	}
	m.mu.Unlock()
	m.post(sink, evs...)
}

// StopScanning implements domain.Driver.
func (m *MockDriver) StopScanning() {
	m.mu.Lock()
	m.record("StopScanning")
	m.scanning = false
	sink := m.sink
	m.mu.Unlock()
	m.post(sink, domain.NewEvent(domain.EventScanStop))
}

// Scanning reports whether a scan is active.
func (m *MockDriver) Scanning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanning
}

// device returns the peripheral for op, or an error event when it is
// unknown or, if needConnected, not connected. Caller holds m.mu.
func (m *MockDriver) deviceLocked(op, id string, needConnected bool) (*mockDevice, *domain.Event) {
	dev, ok := m.devices[id]
	if !ok {
		ev := m.failure(op, id, domain.ErrNotFound)
		return nil, &ev
	}
	if needConnected && !dev.connected {
		ev := m.failure(op, id, errNotConnected)
		return nil, &ev
	}
	return dev, nil
}

func (d *mockDevice) service(uuid string) (*MockService, bool) {
	for i := range d.info.Services {
		if domain.CompactUUID(d.info.Services[i].UUID) == domain.CompactUUID(uuid) {
			return &d.info.Services[i], true
		}
	}
	return nil, false
}

func (s *MockService) characteristic(uuid string) (*MockCharacteristic, bool) {
	for i := range s.Characteristics {
		if domain.CompactUUID(s.Characteristics[i].UUID) == domain.CompactUUID(uuid) {
			return &s.Characteristics[i], true
		}
	}
	return nil, false
}

// lookupChar resolves a characteristic on a connected peripheral. Caller
// holds m.mu.
func (m *MockDriver) lookupCharLocked(op, id, svcUUID, charUUID string) (*mockDevice, *MockCharacteristic, *domain.Event) {
	dev, fail := m.deviceLocked(op, id, true)
	if fail != nil {
		return nil, nil, fail
	}
	svc, ok := dev.service(svcUUID)
	if !ok {
		ev := m.failure(op, id, fmt.Errorf("service %s: %w", svcUUID, domain.ErrNotFound))
		return nil, nil, &ev
	}
	ch, ok := svc.characteristic(charUUID)
	if !ok {
		ev := m.failure(op, id, fmt.Errorf("characteristic %s: %w", charUUID, domain.ErrNotFound))
		return nil, nil, &ev
	}
	return dev, ch, nil
}

// Connect implements domain.Driver.
func (m *MockDriver) Connect(deviceUUID string) {
	m.mu.Lock()
	m.record("Connect")
	sink := m.sink
	dev, ok := m.devices[deviceUUID]
	var ev domain.Event
	switch {
	case !ok:
		ev = domain.NewEvent(domain.EventConnect, deviceUUID, domain.NewDriverError("Connect", deviceUUID, domain.ErrNotFound))
	case !dev.info.Peripheral.Connectable:
		ev = domain.NewEvent(domain.EventConnect, deviceUUID, domain.NewDriverError("Connect", deviceUUID, errors.New("peripheral is not connectable")))
	default:
		dev.connected = true
		ev = domain.NewEvent(domain.EventConnect, deviceUUID, nil)
	}
	m.mu.Unlock()
	m.post(sink, ev)
}

// Disconnect implements domain.Driver.
func (m *MockDriver) Disconnect(deviceUUID string) {
	m.mu.Lock()
	m.record("Disconnect")
	sink := m.sink
	dev, fail := m.deviceLocked("Disconnect", deviceUUID, false)
	if fail != nil {
		m.mu.Unlock()
		m.post(sink, *fail)
		return
	}
	dev.connected = false
	dev.notifying = make(map[string]bool)
	m.mu.Unlock()
	m.post(sink, domain.NewEvent(domain.EventDisconnect, deviceUUID))
}

// Connected reports whether the peripheral is connected.
func (m *MockDriver) Connected(deviceUUID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	dev, ok := m.devices[deviceUUID]
	return ok && dev.connected
}

// UpdateRSSI implements domain.Driver.
func (m *MockDriver) UpdateRSSI(deviceUUID string) {
	m.mu.Lock()
	m.record("UpdateRSSI")
	sink := m.sink
	dev, fail := m.deviceLocked("UpdateRSSI", deviceUUID, true)
	if fail != nil {
		m.mu.Unlock()
		m.post(sink, *fail)
		return
	}
	rssi := dev.info.Peripheral.RSSI
	m.mu.Unlock()
	m.post(sink, domain.NewEvent(domain.EventRSSIUpdate, deviceUUID, rssi))
}

func filterUUIDs(all, filter []string) []string {
	out := make([]string, 0, len(all))
	for _, u := range all {
		if matchesFilter(filter, []string{u}) {
			out = append(out, domain.NormalizeUUID(u))
		}
	}
	return out
}

// DiscoverServices implements domain.Driver.
func (m *MockDriver) DiscoverServices(deviceUUID string, serviceUUIDs []string) {
	m.mu.Lock()
	m.record("DiscoverServices")
	sink := m.sink
	dev, fail := m.deviceLocked("DiscoverServices", deviceUUID, true)
	if fail != nil {
		m.mu.Unlock()
		m.post(sink, *fail)
		return
	}
	all := make([]string, len(dev.info.Services))
	for i, s := range dev.info.Services {
		all[i] = s.UUID
	}
	found := filterUUIDs(all, serviceUUIDs)
	m.mu.Unlock()
	m.post(sink, domain.NewEvent(domain.EventServicesDiscover, deviceUUID, found))
}

// DiscoverIncludedServices implements domain.Driver.
func (m *MockDriver) DiscoverIncludedServices(deviceUUID, serviceUUID string, serviceUUIDs []string) {
	m.mu.Lock()
	m.record("DiscoverIncludedServices")
	sink := m.sink
	dev, fail := m.deviceLocked("DiscoverIncludedServices", deviceUUID, true)
	if fail != nil {
		m.mu.Unlock()
		m.post(sink, *fail)
		return
	}
	svc, ok := dev.service(serviceUUID)
	if !ok {
		m.mu.Unlock()
		m.post(sink, m.failure("DiscoverIncludedServices", deviceUUID, fmt.Errorf("service %s: %w", serviceUUID, domain.ErrNotFound)))
		return
	}
	found := filterUUIDs(svc.Included, serviceUUIDs)
	m.mu.Unlock()
	m.post(sink, domain.NewEvent(domain.EventIncludedServicesDiscover, deviceUUID, serviceUUID, found))
}

// DiscoverCharacteristics implements domain.Driver.
func (m *MockDriver) DiscoverCharacteristics(deviceUUID, serviceUUID string, characteristicUUIDs []string) {
	m.mu.Lock()
	m.record("DiscoverCharacteristics")
	sink := m.sink
	dev, fail := m.deviceLocked("DiscoverCharacteristics", deviceUUID, true)
	if fail != nil {
		m.mu.Unlock()
		m.post(sink, *fail)
		return
	}
	svc, ok := dev.service(serviceUUID)
	if !ok {
		m.mu.Unlock()
		m.post(sink, m.failure("DiscoverCharacteristics", deviceUUID, fmt.Errorf("service %s: %w", serviceUUID, domain.ErrNotFound)))
		return
	}
	var chars []domain.Characteristic
	for _, c := range svc.Characteristics {
		if matchesFilter(characteristicUUIDs, []string{c.UUID}) {
			chars = append(chars, domain.Characteristic{
				UUID:       domain.NormalizeUUID(c.UUID),
				Properties: append([]string(nil), c.Properties...),
			})
		}
	}
	m.mu.Unlock()
	m.post(sink, domain.NewEvent(domain.EventCharacteristicsDiscover, deviceUUID, serviceUUID, chars))
}

// Read implements domain.Driver.
func (m *MockDriver) Read(deviceUUID, serviceUUID, characteristicUUID string) {
	m.mu.Lock()
	m.record("Read")
	sink := m.sink
	_, ch, fail := m.lookupCharLocked("Read", deviceUUID, serviceUUID, characteristicUUID)
	if fail != nil {
		m.mu.Unlock()
		m.post(sink, *fail)
		return
	}
	data := append([]byte(nil), ch.Value...)
	m.mu.Unlock()
	m.post(sink, domain.NewEvent(domain.EventRead, deviceUUID, serviceUUID, characteristicUUID, data, false))
}

// Write implements domain.Driver.
func (m *MockDriver) Write(deviceUUID, serviceUUID, characteristicUUID string, data []byte, _ bool) {
	m.mu.Lock()
	m.record("Write")
	sink := m.sink
	_, ch, fail := m.lookupCharLocked("Write", deviceUUID, serviceUUID, characteristicUUID)
	if fail != nil {
		m.mu.Unlock()
		m.post(sink, *fail)
		return
	}
	ch.Value = append([]byte(nil), data...)
	m.mu.Unlock()
	m.post(sink, domain.NewEvent(domain.EventWrite, deviceUUID, serviceUUID, characteristicUUID))
}

// Notify implements domain.Driver.
func (m *MockDriver) Notify(deviceUUID, serviceUUID, characteristicUUID string, enable bool) {
	m.mu.Lock()
	m.record("Notify")
	sink := m.sink
	dev, _, fail := m.lookupCharLocked("Notify", deviceUUID, serviceUUID, characteristicUUID)
	if fail != nil {
		m.mu.Unlock()
		m.post(sink, *fail)
		return
	}
	dev.notifying[charKey(serviceUUID, characteristicUUID)] = enable
	m.mu.Unlock()
	m.post(sink, domain.NewEvent(domain.EventNotify, deviceUUID, serviceUUID, characteristicUUID, enable))
}

func charKey(svc, char string) string {
	return domain.CompactUUID(svc) + "/" + domain.CompactUUID(char)
}

// PushNotification simulates a peripheral notification. It reports whether
// a read event was emitted, which requires notifications to be enabled.
func (m *MockDriver) PushNotification(deviceUUID, serviceUUID, characteristicUUID string, data []byte) bool {
	m.mu.Lock()
	dev, ok := m.devices[deviceUUID]
	if !ok || !dev.connected || !dev.notifying[charKey(serviceUUID, characteristicUUID)] {
		m.mu.Unlock()
		return false
	}
	sink := m.sink
	m.mu.Unlock()
	m.post(sink, domain.NewEvent(domain.EventRead, deviceUUID, serviceUUID, characteristicUUID, append([]byte(nil), data...), true))
	return true
}

// DiscoverDescriptors implements domain.Driver.
func (m *MockDriver) DiscoverDescriptors(deviceUUID, serviceUUID, characteristicUUID string) {
	m.mu.Lock()
	m.record("DiscoverDescriptors")
	sink := m.sink
	_, ch, fail := m.lookupCharLocked("DiscoverDescriptors", deviceUUID, serviceUUID, characteristicUUID)
	if fail != nil {
		m.mu.Unlock()
		m.post(sink, *fail)
		return
	}
	descs := make([]string, 0, len(ch.Descriptors))
	for u := range ch.Descriptors {
		descs = append(descs, domain.NormalizeUUID(u))
	}
	sort.Strings(descs)
	m.mu.Unlock()
	m.post(sink, domain.NewEvent(domain.EventDescriptorsDiscover, deviceUUID, serviceUUID, characteristicUUID, descs))
}

func (c *MockCharacteristic) descriptorKey(uuid string) (string, bool) {
	for k := range c.Descriptors {
		if domain.CompactUUID(k) == domain.CompactUUID(uuid) {
			return k, true
		}
	}
	return "", false
}

// ReadValue implements domain.Driver.
func (m *MockDriver) ReadValue(deviceUUID, serviceUUID, characteristicUUID, descriptorUUID string) {
	m.mu.Lock()
	m.record("ReadValue")
	sink := m.sink
	_, ch, fail := m.lookupCharLocked("ReadValue", deviceUUID, serviceUUID, characteristicUUID)
	if fail != nil {
		m.mu.Unlock()
		m.post(sink, *fail)
		return
	}
	key, ok := ch.descriptorKey(descriptorUUID)
	if !ok {
		m.mu.Unlock()
		m.post(sink, m.failure("ReadValue", deviceUUID, fmt.Errorf("descriptor %s: %w", descriptorUUID, domain.ErrNotFound)))
		return
	}
	data := append([]byte(nil), ch.Descriptors[key]...)
	m.mu.Unlock()
	m.post(sink, domain.NewEvent(domain.EventValueRead, deviceUUID, serviceUUID, characteristicUUID, descriptorUUID, data))
}

// WriteValue implements domain.Driver.
func (m *MockDriver) WriteValue(deviceUUID, serviceUUID, characteristicUUID, descriptorUUID string, data []byte) {
	m.mu.Lock()
	m.record("WriteValue")
	sink := m.sink
	_, ch, fail := m.lookupCharLocked("WriteValue", deviceUUID, serviceUUID, characteristicUUID)
	if fail != nil {
		m.mu.Unlock()
		m.post(sink, *fail)
		return
	}
	key, ok := ch.descriptorKey(descriptorUUID)
	if !ok {
		key = domain.NormalizeUUID(descriptorUUID)
	}
	if ch.Descriptors == nil {
		ch.Descriptors = make(map[string][]byte)
	}
	ch.Descriptors[key] = append([]byte(nil), data...)
	m.mu.Unlock()
	m.post(sink, domain.NewEvent(domain.EventValueWrite, deviceUUID, serviceUUID, characteristicUUID, descriptorUUID))
}

// ReadHandle implements domain.Driver.
func (m *MockDriver) ReadHandle(deviceUUID string, handle uint16) {
	m.mu.Lock()
	m.record("ReadHandle")
	sink := m.sink
	dev, fail := m.deviceLocked("ReadHandle", deviceUUID, true)
	if fail != nil {
		m.mu.Unlock()
		m.post(sink, *fail)
		return
	}
	data, ok := dev.info.Handles[handle]
	if !ok {
		m.mu.Unlock()
		m.post(sink, m.failure("ReadHandle", deviceUUID, fmt.Errorf("handle %d: %w", handle, domain.ErrNotFound)))
		return
	}
	data = append([]byte(nil), data...)
	m.mu.Unlock()
	m.post(sink, domain.NewEvent(domain.EventHandleRead, deviceUUID, handle, data))
}

// WriteHandle implements domain.Driver.
func (m *MockDriver) WriteHandle(deviceUUID string, handle uint16, data []byte, _ bool) {
	m.mu.Lock()
	m.record("WriteHandle")
	sink := m.sink
	dev, fail := m.deviceLocked("WriteHandle", deviceUUID, true)
	if fail != nil {
		m.mu.Unlock()
		m.post(sink, *fail)
		return
	}
	if dev.info.Handles == nil {
		dev.info.Handles = make(map[uint16][]byte)
	}
	dev.info.Handles[handle] = append([]byte(nil), data...)
	m.mu.Unlock()
	m.post(sink, domain.NewEvent(domain.EventHandleWrite, deviceUUID, handle))
}

// Close implements domain.Driver.
func (m *MockDriver) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.record("Close")
	m.closed = true
	m.scanning = false
	for _, dev := range m.devices {
		dev.connected = false
	}
	return nil
}

// DemoPeripherals returns the peripherals the mock backend serves when none
// are configured.
func DemoPeripherals() []MockPeripheral {
	tx := 4
	return []MockPeripheral{
		{
			Peripheral: domain.Peripheral{
				UUID:        "c0ffee000001",
				Address:     "c0:ff:ee:00:00:01",
				AddressType: domain.AddressRandom,
				Connectable: true,
				RSSI:        -58,
				Advertisement: domain.Advertisement{
					LocalName:    "Polar H10",
					TxPowerLevel: &tx,
					ServiceUUIDs: []string{"180d", "180f"},
				},
			},
			Services: []MockService{
				{
					UUID: "180d",
					Characteristics: []MockCharacteristic{
						{
							UUID:        "2a37",
							Properties:  []string{domain.PropNotify},
							Value:       []byte{0x00, 0x48},
							Descriptors: map[string][]byte{"2902": {0x00, 0x00}},
						},
						{UUID: "2a38", Properties: []string{domain.PropRead}, Value: []byte{0x01}},
					},
				},
				{
					UUID:            "180f",
					Characteristics: []MockCharacteristic{{UUID: "2a19", Properties: []string{domain.PropRead, domain.PropNotify}, Value: []byte{87}}},
				},
			},
			Handles: map[uint16][]byte{0x0003: []byte("Polar H10")},
		},
		{
			Peripheral: domain.Peripheral{
				UUID:        "c0ffee000002",
				Address:     "c0:ff:ee:00:00:02",
				AddressType: domain.AddressPublic,
				Connectable: true,
				RSSI:        -71,
				Advertisement: domain.Advertisement{
					LocalName:        "Nordic_UART",
					ManufacturerData: []byte{0x59, 0x00, 0x01, 0x02},
					ServiceUUIDs:     []string{"6e400001b5a3f393e0a9e50e24dcca9e"},
				},
			},
			Services: []MockService{
				{
					UUID: "6e400001b5a3f393e0a9e50e24dcca9e",
					Characteristics: []MockCharacteristic{
						{UUID: "6e400002b5a3f393e0a9e50e24dcca9e", Properties: []string{domain.PropWrite, domain.PropWriteWithoutResponse}},
						{UUID: "6e400003b5a3f393e0a9e50e24dcca9e", Properties: []string{domain.PropNotify}},
					},
				},
			},
		},
		{
			Peripheral: domain.Peripheral{
				UUID:        "c0ffee000003",
				Address:     "c0:ff:ee:00:00:03",
				AddressType: domain.AddressRandom,
				RSSI:        -84,
				Advertisement: domain.Advertisement{
					ServiceData: []domain.ServiceData{{UUID: "feaa", Data: []byte{0x10, 0x00, 0x03}}},
				},
			},
		},
	}
}
