package central

import (
	"blecentral/internal/domain"
	usecase "blecentral/internal/usecase/central"
	"blecentral/internal/usecase/emitter"
)

type (
	Central        = usecase.Central
	Driver         = domain.Driver
	Event          = domain.Event
	EventType      = domain.EventType
	Listener       = domain.Listener
	ListenerID     = emitter.ListenerID
	AdapterState   = domain.AdapterState
	AddressType    = domain.AddressType
	Peripheral     = domain.Peripheral
	Advertisement  = domain.Advertisement
	ServiceData    = domain.ServiceData
	Characteristic = domain.Characteristic
	LoadError      = domain.LoadError
	DriverError    = domain.DriverError
)

// Events.
const (
	EventStateChange              = domain.EventStateChange
	EventScanStart                = domain.EventScanStart
	EventScanStop                 = domain.EventScanStop
	EventDiscover                 = domain.EventDiscover
	EventConnect                  = domain.EventConnect
	EventDisconnect               = domain.EventDisconnect
	EventRSSIUpdate               = domain.EventRSSIUpdate
	EventServicesDiscover         = domain.EventServicesDiscover
	EventIncludedServicesDiscover = domain.EventIncludedServicesDiscover
	EventCharacteristicsDiscover  = domain.EventCharacteristicsDiscover
	EventRead                     = domain.EventRead
	EventWrite                    = domain.EventWrite
	EventNotify                   = domain.EventNotify
	EventDescriptorsDiscover      = domain.EventDescriptorsDiscover
	EventValueRead                = domain.EventValueRead
	EventValueWrite               = domain.EventValueWrite
	EventHandleRead               = domain.EventHandleRead
	EventHandleWrite              = domain.EventHandleWrite
	EventError                    = domain.EventError
	EventNewListener              = domain.EventNewListener
	EventRemoveListener           = domain.EventRemoveListener
)

// Adapter states.
const (
	StateUnknown      = domain.StateUnknown
	StateResetting    = domain.StateResetting
	StateUnsupported  = domain.StateUnsupported
	StateUnauthorized = domain.StateUnauthorized
	StatePoweredOff   = domain.StatePoweredOff
	StatePoweredOn    = domain.StatePoweredOn
)

// Address types.
const (
	AddressPublic  = domain.AddressPublic
	AddressRandom  = domain.AddressRandom
	AddressUnknown = domain.AddressUnknown
)

// Errors callers can match with errors.Is.
var (
	ErrLoad               = domain.ErrLoad
	ErrDriver             = domain.ErrDriver
	ErrUnsupported        = domain.ErrUnsupported
	ErrNotFound           = domain.ErrNotFound
	ErrTimeout            = domain.ErrTimeout
	ErrAlreadyInitialized = domain.ErrAlreadyInitialized
)

// PeripheralFromDiscover decodes the arguments of a discover event.
func PeripheralFromDiscover(ev Event) (Peripheral, bool) {
	return domain.PeripheralFromDiscover(ev)
}

// NormalizeUUID formats a UUID the way events carry it.
func NormalizeUUID(s string) string { return domain.NormalizeUUID(s) }
