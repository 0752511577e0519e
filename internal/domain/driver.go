package domain

import "context"

// Driver is the platform BLE central driver. Operations are fire-and-forget:
// outcomes arrive as events on the EventSink passed to Bind.
//
// Device, service, characteristic and descriptor identifiers are normalised
// UUID strings (see NormalizeUUID).
type Driver interface {
	// Bind hands the driver the sink it must emit through. It is called
	// once, before Init.
	Bind(sink EventSink)
	// Init starts the driver. It must not block on adapter readiness;
	// readiness is reported with a stateChange event.
	Init(ctx context.Context)

	StartScanning(serviceUUIDs []string, allowDuplicates bool)
	StopScanning()

	Connect(deviceUUID string)
	Disconnect(deviceUUID string)
	UpdateRSSI(deviceUUID string)

	DiscoverServices(deviceUUID string, serviceUUIDs []string)
	DiscoverIncludedServices(deviceUUID, serviceUUID string, serviceUUIDs []string)
	DiscoverCharacteristics(deviceUUID, serviceUUID string, characteristicUUIDs []string)

	Read(deviceUUID, serviceUUID, characteristicUUID string)
	Write(deviceUUID, serviceUUID, characteristicUUID string, data []byte, withoutResponse bool)
	Notify(deviceUUID, serviceUUID, characteristicUUID string, enable bool)

	DiscoverDescriptors(deviceUUID, serviceUUID, characteristicUUID string)
	ReadValue(deviceUUID, serviceUUID, characteristicUUID, descriptorUUID string)
	WriteValue(deviceUUID, serviceUUID, characteristicUUID, descriptorUUID string, data []byte)

	ReadHandle(deviceUUID string, handle uint16)
	WriteHandle(deviceUUID string, handle uint16, data []byte, withoutResponse bool)

	// Close releases platform resources. It is safe to call more than once.
	Close() error
}
