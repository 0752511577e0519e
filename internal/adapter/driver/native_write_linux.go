//go:build native && linux

package driver

import "tinygo.org/x/bluetooth"

// writeCharacteristic writes p to ch. BlueZ exposes a single WriteValue
// call without a type option, so it chooses request or command from the
// characteristic's flags and withoutResponse cannot force either.
func writeCharacteristic(ch bluetooth.DeviceCharacteristic, p []byte, withoutResponse bool) error {
	_, err := ch.WriteWithoutResponse(p)
	return err
}
