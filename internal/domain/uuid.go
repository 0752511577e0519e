package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// bluetoothBaseSuffix is the tail of the Bluetooth Base UUID
// 0000xxxx-0000-1000-8000-00805f9b34fb.
const bluetoothBaseSuffix = "00001000800000805f9b34fb"

// NormalizeUUID strips dashes and lower-cases s. It does not validate.
func NormalizeUUID(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "-", ""))
}

// NormalizeUUIDs applies NormalizeUUID to every element.
func NormalizeUUIDs(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = NormalizeUUID(s)
	}
	return out
}

// PeripheralID derives the identifier used for a peripheral from its
// platform address: a MAC address or a CoreBluetooth identifier.
func PeripheralID(address string) string {
	return strings.ToLower(strings.NewReplacer(":", "", "-", "").Replace(address))
}

// ExpandUUID parses a 16-bit, 32-bit or 128-bit UUID in any common form and
// returns the full 128-bit value.
func ExpandUUID(s string) (uuid.UUID, error) {
	n := NormalizeUUID(s)
	switch len(n) {
	case 4:
		n = "0000" + n + bluetoothBaseSuffix
	case 8:
		n = n + bluetoothBaseSuffix
	case 32:
	default:
		return uuid.Nil, fmt.Errorf("uuid %q: %w", s, ErrInvalidInput)
	}
	u, err := uuid.Parse(n)
	if err != nil {
		return uuid.Nil, fmt.Errorf("uuid %q: %w", s, ErrInvalidInput)
	}
	return u, nil
}

// CompactUUID returns the normalised form of s, shortened to 16 bits when
// it lies on the Bluetooth Base UUID.
func CompactUUID(s string) string {
	n := NormalizeUUID(s)
	if len(n) == 32 && strings.HasPrefix(n, "0000") && strings.HasSuffix(n, bluetoothBaseSuffix) {
		return n[4:8]
	}
	return n
}

// ValidateUUIDs reports the first entry that ExpandUUID rejects.
func ValidateUUIDs(in []string) error {
	for _, s := range in {
		if _, err := ExpandUUID(s); err != nil {
			return err
		}
	}
	return nil
}
