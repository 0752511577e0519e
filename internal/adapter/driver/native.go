//go:build native

package driver

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"

	"blecentral/internal/domain"
)

func init() {
	mustRegister(NameNative, func(cfg Config) (domain.Driver, error) {
		return newNativeDriver(bluetooth.DefaultAdapter, cfg.logger()), nil
	})
}

// readBufferSize bounds a single characteristic read (ATT maximum).
const readBufferSize = 512

// nativeDriver drives the host adapter through tinygo.org/x/bluetooth
// (BlueZ on Linux, CoreBluetooth on macOS, WinRT on Windows).
type nativeDriver struct {
	adapter *bluetooth.Adapter
	logger  *slog.Logger

	mu       sync.Mutex
	sink     domain.EventSink
	addrs    map[string]bluetooth.Address
	devices  map[string]bluetooth.Device
	services map[string]map[string]bluetooth.DeviceService        // device -> service
	chars    map[string]map[string]bluetooth.DeviceCharacteristic // device -> "svc/char"
	scanning bool
	filter   []bluetooth.UUID
	allowDup bool
	seen     map[string]bool
	closed   bool
}

func newNativeDriver(adapter *bluetooth.Adapter, logger *slog.Logger) *nativeDriver {
	return &nativeDriver{
		adapter:  adapter,
		logger:   logger,
		addrs:    make(map[string]bluetooth.Address),
		devices:  make(map[string]bluetooth.Device),
		services: make(map[string]map[string]bluetooth.DeviceService),
		chars:    make(map[string]map[string]bluetooth.DeviceCharacteristic),
		seen:     make(map[string]bool),
	}
}

func (d *nativeDriver) post(ev domain.Event) {
	d.mu.Lock()
	sink := d.sink
	d.mu.Unlock()
	if sink != nil {
		sink.Post(ev)
	}
}

func (d *nativeDriver) fail(op, device string, err error) {
	d.logger.Debug("ble operation failed", "op", op, "device", device, "error", err)
	d.post(domain.NewEvent(domain.EventError, domain.NewDriverError(op, device, err)))
}

func (d *nativeDriver) unsupported(op, device string) {
	d.fail(op, device, domain.ErrUnsupported)
}

func (d *nativeDriver) Bind(sink domain.EventSink) {
	d.mu.Lock()
	d.sink = sink
	d.mu.Unlock()
}

// Init enables the adapter in the background; the outcome is reported as a
// stateChange.
func (d *nativeDriver) Init(_ context.Context) {
	d.adapter.SetConnectHandler(func(dev bluetooth.Device, connected bool) {
		if connected {
			return
		}
		id := domain.PeripheralID(dev.Address.String())
		if d.dropDevice(id) {
			d.post(domain.NewEvent(domain.EventDisconnect, id))
		}
	})
	go func() {
		if err := d.adapter.Enable(); err != nil {
			d.logger.Warn("ble adapter unavailable", "error", err)
			d.post(domain.NewEvent(domain.EventStateChange, string(domain.StateUnsupported)))
			d.fail("Init", "", err)
			return
		}
		d.post(domain.NewEvent(domain.EventStateChange, string(domain.StatePoweredOn)))
	}()
}

func parseUUIDs(in []string) ([]bluetooth.UUID, error) {
	out := make([]bluetooth.UUID, 0, len(in))
	for _, s := range in {
		full, err := domain.ExpandUUID(s)
		if err != nil {
			return nil, err
		}
		u, err := bluetooth.ParseUUID(full.String())
		if err != nil {
			return nil, fmt.Errorf("uuid %q: %w", s, domain.ErrInvalidInput)
		}
		out = append(out, u)
	}
	return out, nil
}

func addressType(addr bluetooth.Address) domain.AddressType {
	// Only MAC-based platforms know whether an address is random.
	r, ok := any(addr).(interface{ IsRandom() bool })
	if !ok {
		return domain.AddressUnknown
	}
	if r.IsRandom() {
		return domain.AddressRandom
	}
	return domain.AddressPublic
}

func (d *nativeDriver) StartScanning(serviceUUIDs []string, allowDuplicates bool) {
	filter, err := parseUUIDs(serviceUUIDs)
	if err != nil {
		d.fail("StartScanning", "", err)
		return
	}

	d.mu.Lock()
	d.filter = filter
	d.allowDup = allowDuplicates
	d.seen = make(map[string]bool)
	if d.scanning {
		d.mu.Unlock()
		return
	}
	d.scanning = true
	d.mu.Unlock()

	d.post(domain.NewEvent(domain.EventScanStart))
	go func() {
		err := d.adapter.Scan(d.onScanResult)
		d.mu.Lock()
		d.scanning = false
		d.mu.Unlock()
		if err != nil {
			d.fail("StartScanning", "", err)
		}
		d.post(domain.NewEvent(domain.EventScanStop))
	}()
}

// onScanResult reports a scan result as discover. The library only answers
// HasServiceUUID for an advertisement, so Advertisement.ServiceUUIDs holds
// the filter UUIDs the peripheral advertised and stays empty when scanning
// without a filter.
func (d *nativeDriver) onScanResult(_ *bluetooth.Adapter, res bluetooth.ScanResult) {
	id := domain.PeripheralID(res.Address.String())

	d.mu.Lock()
	var matched []string
	for _, u := range d.filter {
		if res.HasServiceUUID(u) {
			matched = append(matched, domain.CompactUUID(u.String()))
		}
	}
	if len(d.filter) > 0 && len(matched) == 0 {
		d.mu.Unlock()
		return
	}
	if d.seen[id] && !d.allowDup {
		d.mu.Unlock()
		return
	}
	d.seen[id] = true
	d.addrs[id] = res.Address
	d.mu.Unlock()

	adv := domain.Advertisement{
		LocalName:    res.LocalName(),
		ServiceUUIDs: matched,
	}
	// Manufacturer data is reported as the raw AD payload: company ID
	// little-endian followed by the data.
	for _, md := range res.ManufacturerData() {
		adv.ManufacturerData = binary.LittleEndian.AppendUint16(adv.ManufacturerData, md.CompanyID)
		adv.ManufacturerData = append(adv.ManufacturerData, md.Data...)
	}

	d.post(domain.NewEvent(domain.EventDiscover,
		id, res.Address.String(), addressType(res.Address), true, adv, int(res.RSSI)))
}

func (d *nativeDriver) StopScanning() {
	d.mu.Lock()
	scanning := d.scanning
	d.mu.Unlock()
	if !scanning {
		d.post(domain.NewEvent(domain.EventScanStop))
		return
	}
	if err := d.adapter.StopScan(); err != nil {
		d.fail("StopScanning", "", err)
	}
}

func (d *nativeDriver) Connect(deviceUUID string) {
	d.mu.Lock()
	addr, ok := d.addrs[deviceUUID]
	d.mu.Unlock()
	if !ok {
		d.post(domain.NewEvent(domain.EventConnect, deviceUUID,
			domain.NewDriverError("Connect", deviceUUID, fmt.Errorf("peripheral not discovered: %w", domain.ErrNotFound))))
		return
	}
	go func() {
		dev, err := d.adapter.Connect(addr, bluetooth.ConnectionParams{})
		if err != nil {
			d.post(domain.NewEvent(domain.EventConnect, deviceUUID, domain.NewDriverError("Connect", deviceUUID, err)))
			return
		}
		d.mu.Lock()
		d.devices[deviceUUID] = dev
		d.mu.Unlock()
		d.post(domain.NewEvent(domain.EventConnect, deviceUUID, nil))
	}()
}

// dropDevice forgets a connection. It reports whether one was known.
func (d *nativeDriver) dropDevice(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.devices[id]; !ok {
		return false
	}
	delete(d.devices, id)
	delete(d.services, id)
	delete(d.chars, id)
	return true
}

func (d *nativeDriver) device(op, id string) (bluetooth.Device, bool) {
	d.mu.Lock()
	dev, ok := d.devices[id]
	d.mu.Unlock()
	if !ok {
		d.fail(op, id, fmt.Errorf("peripheral not connected: %w", domain.ErrNotFound))
	}
	return dev, ok
}

func (d *nativeDriver) Disconnect(deviceUUID string) {
	dev, ok := d.device("Disconnect", deviceUUID)
	if !ok {
		return
	}
	go func() {
		if err := dev.Disconnect(); err != nil {
			d.fail("Disconnect", deviceUUID, err)
			return
		}
		if d.dropDevice(deviceUUID) {
			d.post(domain.NewEvent(domain.EventDisconnect, deviceUUID))
		}
	}()
}

func (d *nativeDriver) UpdateRSSI(deviceUUID string) { d.unsupported("UpdateRSSI", deviceUUID) }

func (d *nativeDriver) DiscoverServices(deviceUUID string, serviceUUIDs []string) {
	dev, ok := d.device("DiscoverServices", deviceUUID)
	if !ok {
		return
	}
	filter, err := parseUUIDs(serviceUUIDs)
	if err != nil {
		d.fail("DiscoverServices", deviceUUID, err)
		return
	}
	go func() {
		svcs, err := dev.DiscoverServices(filter)
		if err != nil {
			d.fail("DiscoverServices", deviceUUID, err)
			return
		}
		found := make([]string, 0, len(svcs))
		d.mu.Lock()
		byUUID := make(map[string]bluetooth.DeviceService, len(svcs))
		for _, svc := range svcs {
			u := domain.CompactUUID(svc.UUID().String())
			byUUID[u] = svc
			found = append(found, u)
		}
		d.services[deviceUUID] = byUUID
		d.mu.Unlock()
		d.post(domain.NewEvent(domain.EventServicesDiscover, deviceUUID, found))
	}()
}

func (d *nativeDriver) DiscoverIncludedServices(deviceUUID, _ string, _ []string) {
	d.unsupported("DiscoverIncludedServices", deviceUUID)
}

func (d *nativeDriver) DiscoverCharacteristics(deviceUUID, serviceUUID string, characteristicUUIDs []string) {
	d.mu.Lock()
	svc, ok := d.services[deviceUUID][domain.CompactUUID(serviceUUID)]
	d.mu.Unlock()
	if !ok {
		d.fail("DiscoverCharacteristics", deviceUUID, fmt.Errorf("service %s not discovered: %w", serviceUUID, domain.ErrNotFound))
		return
	}
	filter, err := parseUUIDs(characteristicUUIDs)
	if err != nil {
		d.fail("DiscoverCharacteristics", deviceUUID, err)
		return
	}
	go func() {
		chars, err := svc.DiscoverCharacteristics(filter)
		if err != nil {
			d.fail("DiscoverCharacteristics", deviceUUID, err)
			return
		}
		out := make([]domain.Characteristic, 0, len(chars))
		d.mu.Lock()
		if d.chars[deviceUUID] == nil {
			d.chars[deviceUUID] = make(map[string]bluetooth.DeviceCharacteristic)
		}
		for _, ch := range chars {
			u := domain.CompactUUID(ch.UUID().String())
			d.chars[deviceUUID][charKey(serviceUUID, u)] = ch
			// The library does not expose characteristic properties.
			out = append(out, domain.Characteristic{UUID: u, Properties: []string{}})
		}
		d.mu.Unlock()
		d.post(domain.NewEvent(domain.EventCharacteristicsDiscover, deviceUUID, serviceUUID, out))
	}()
}

func (d *nativeDriver) characteristic(op, deviceUUID, serviceUUID, characteristicUUID string) (bluetooth.DeviceCharacteristic, bool) {
	d.mu.Lock()
	ch, ok := d.chars[deviceUUID][charKey(serviceUUID, characteristicUUID)]
	d.mu.Unlock()
	if !ok {
		d.fail(op, deviceUUID, fmt.Errorf("characteristic %s not discovered: %w", characteristicUUID, domain.ErrNotFound))
	}
	return ch, ok
}

func (d *nativeDriver) Read(deviceUUID, serviceUUID, characteristicUUID string) {
	ch, ok := d.characteristic("Read", deviceUUID, serviceUUID, characteristicUUID)
	if !ok {
		return
	}
	go func() {
		buf := make([]byte, readBufferSize)
		n, err := ch.Read(buf)
		if err != nil {
			d.fail("Read", deviceUUID, err)
			return
		}
		d.post(domain.NewEvent(domain.EventRead, deviceUUID, serviceUUID, characteristicUUID, buf[:n], false))
	}()
}

func (d *nativeDriver) Write(deviceUUID, serviceUUID, characteristicUUID string, data []byte, withoutResponse bool) {
	ch, ok := d.characteristic("Write", deviceUUID, serviceUUID, characteristicUUID)
	if !ok {
		return
	}
	payload := append([]byte(nil), data...)
	go func() {
		if err := writeCharacteristic(ch, payload, withoutResponse); err != nil {
			d.fail("Write", deviceUUID, err)
			return
		}
		d.post(domain.NewEvent(domain.EventWrite, deviceUUID, serviceUUID, characteristicUUID))
	}()
}

func (d *nativeDriver) Notify(deviceUUID, serviceUUID, characteristicUUID string, enable bool) {
	ch, ok := d.characteristic("Notify", deviceUUID, serviceUUID, characteristicUUID)
	if !ok {
		return
	}
	var cb func([]byte)
	if enable {
		cb = func(buf []byte) {
			d.post(domain.NewEvent(domain.EventRead, deviceUUID, serviceUUID, characteristicUUID,
				append([]byte(nil), buf...), true))
		}
	}
	if err := ch.EnableNotifications(cb); err != nil {
		d.fail("Notify", deviceUUID, err)
		return
	}
	d.post(domain.NewEvent(domain.EventNotify, deviceUUID, serviceUUID, characteristicUUID, enable))
}

func (d *nativeDriver) DiscoverDescriptors(deviceUUID, _, _ string) {
	d.unsupported("DiscoverDescriptors", deviceUUID)
}

func (d *nativeDriver) ReadValue(deviceUUID, _, _, _ string) {
	d.unsupported("ReadValue", deviceUUID)
}

func (d *nativeDriver) WriteValue(deviceUUID, _, _, _ string, _ []byte) {
	d.unsupported("WriteValue", deviceUUID)
}

func (d *nativeDriver) ReadHandle(deviceUUID string, _ uint16) {
	d.unsupported("ReadHandle", deviceUUID)
}

func (d *nativeDriver) WriteHandle(deviceUUID string, _ uint16, _ []byte, _ bool) {
	d.unsupported("WriteHandle", deviceUUID)
}

func (d *nativeDriver) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	scanning := d.scanning
	devices := make([]bluetooth.Device, 0, len(d.devices))
	for _, dev := range d.devices {
		devices = append(devices, dev)
	}
	d.mu.Unlock()

	if scanning {
		_ = d.adapter.StopScan()
	}
	for _, dev := range devices {
		if err := dev.Disconnect(); err != nil {
			d.logger.Warn("ble disconnect on close failed", "device", dev.Address.String(), "error", err)
		}
	}
	return nil
}
