package domain

import "fmt"

// AdapterState is the power/authorisation state of the local adapter.
type AdapterState string

const (
	StateUnknown      AdapterState = "unknown"
	StateResetting    AdapterState = "resetting"
	StateUnsupported  AdapterState = "unsupported"
	StateUnauthorized AdapterState = "unauthorized"
	StatePoweredOff   AdapterState = "poweredOff"
	StatePoweredOn    AdapterState = "poweredOn"
)

var knownStates = map[AdapterState]bool{
	StateUnknown:      true,
	StateResetting:    true,
	StateUnsupported:  true,
	StateUnauthorized: true,
	StatePoweredOff:   true,
	StatePoweredOn:    true,
}

// ParseAdapterState validates s against the known adapter states.
func ParseAdapterState(s string) (AdapterState, error) {
	st := AdapterState(s)
	if !knownStates[st] {
		return StateUnknown, fmt.Errorf("adapter state %q: %w", s, ErrInvalidInput)
	}
	return st, nil
}

// AddressType classifies a peripheral's advertised address.
type AddressType string

const (
	AddressPublic  AddressType = "public"
	AddressRandom  AddressType = "random"
	AddressUnknown AddressType = "unknown"
)

// Advertisement is the decoded advertising payload carried by discover.
type Advertisement struct {
	LocalName        string        `json:"localName,omitempty"`
	TxPowerLevel     *int          `json:"txPowerLevel,omitempty"`
	ManufacturerData []byte        `json:"manufacturerData,omitempty"`
	ServiceData      []ServiceData `json:"serviceData,omitempty"`
	ServiceUUIDs     []string      `json:"serviceUuids,omitempty"`
}

// ServiceData is one service-data AD structure.
type ServiceData struct {
	UUID string `json:"uuid"`
	Data []byte `json:"data"`
}

// Characteristic describes a discovered characteristic.
type Characteristic struct {
	UUID       string   `json:"uuid"`
	Properties []string `json:"properties"`
}

// Characteristic property names.
const (
	PropBroadcast                 = "broadcast"
	PropRead                      = "read"
	PropWriteWithoutResponse      = "writeWithoutResponse"
	PropWrite                     = "write"
	PropNotify                    = "notify"
	PropIndicate                  = "indicate"
	PropAuthenticatedSignedWrites = "authenticatedSignedWrites"
	PropExtendedProperties        = "extendedProperties"
)

// Peripheral is the record kept for a discovered device.
type Peripheral struct {
	UUID          string        `json:"uuid"`
	Address       string        `json:"address"`
	AddressType   AddressType   `json:"addressType"`
	Connectable   bool          `json:"connectable"`
	Advertisement Advertisement `json:"advertisement"`
	RSSI          int           `json:"rssi"`
}

// PeripheralFromDiscover decodes the positional arguments of a discover
// event. ok is false when the event is not a well-formed discover.
func PeripheralFromDiscover(ev Event) (Peripheral, bool) {
	if ev.Type != EventDiscover || len(ev.Args) < 6 {
		return Peripheral{}, false
	}
	p := Peripheral{
		UUID:    ev.StringArg(0),
		Address: ev.StringArg(1),
	}
	switch at := ev.Arg(2).(type) {
	case AddressType:
		p.AddressType = at
	case string:
		p.AddressType = AddressType(at)
	}
	p.Connectable, _ = ev.Arg(3).(bool)
	switch adv := ev.Arg(4).(type) {
	case Advertisement:
		p.Advertisement = adv
	case *Advertisement:
		if adv != nil {
			p.Advertisement = *adv
		}
	}
	p.RSSI, _ = ev.Arg(5).(int)
	return p, p.UUID != ""
}
