//go:build native && !linux

package driver

import "tinygo.org/x/bluetooth"

// writeCharacteristic writes p to ch as a write request, or as a write
// command when withoutResponse is set.
func writeCharacteristic(ch bluetooth.DeviceCharacteristic, p []byte, withoutResponse bool) error {
	if withoutResponse {
		_, err := ch.WriteWithoutResponse(p)
		return err
	}
	_, err := ch.Write(p)
	return err
}
