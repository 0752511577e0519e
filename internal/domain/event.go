package domain

import (
	"context"
	"time"
)

// EventType names an event delivered through the central's emitter.
type EventType string

// Adapter events emitted by drivers.
const (
	EventStateChange              EventType = "stateChange"
	EventScanStart                EventType = "scanStart"
	EventScanStop                 EventType = "scanStop"
	EventDiscover                 EventType = "discover"
	EventConnect                  EventType = "connect"
	EventDisconnect               EventType = "disconnect"
	EventRSSIUpdate               EventType = "rssiUpdate"
	EventServicesDiscover         EventType = "servicesDiscover"
	EventIncludedServicesDiscover EventType = "includedServicesDiscover"
	EventCharacteristicsDiscover  EventType = "characteristicsDiscover"
	EventRead                     EventType = "read"
	EventWrite                    EventType = "write"
	EventNotify                   EventType = "notify"
	EventDescriptorsDiscover      EventType = "descriptorsDiscover"
	EventValueRead                EventType = "valueRead"
	EventValueWrite               EventType = "valueWrite"
	EventHandleRead               EventType = "handleRead"
	EventHandleWrite              EventType = "handleWrite"
	EventError                    EventType = "error"
)

// Emitter bookkeeping events.
const (
	EventNewListener    EventType = "newListener"
	EventRemoveListener EventType = "removeListener"
)

// DriverEvents lists every event a driver may emit, in catalogue order.
var DriverEvents = []EventType{
	EventStateChange,
	EventScanStart,
	EventScanStop,
	EventDiscover,
	EventConnect,
	EventDisconnect,
	EventRSSIUpdate,
	EventServicesDiscover,
	EventIncludedServicesDiscover,
	EventCharacteristicsDiscover,
	EventRead,
	EventWrite,
	EventNotify,
	EventDescriptorsDiscover,
	EventValueRead,
	EventValueWrite,
	EventHandleRead,
	EventHandleWrite,
	EventError,
}

// Event is the envelope delivered to listeners. Args are positional, in
// the order documented for each EventType.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Args      []any     `json:"args,omitempty"`
}

// NewEvent stamps an event with the current time.
func NewEvent(t EventType, args ...any) Event {
	return Event{Type: t, Timestamp: time.Now(), Args: args}
}

// Arg returns the i-th positional argument, or nil when absent.
func (e Event) Arg(i int) any {
	if i < 0 || i >= len(e.Args) {
		return nil
	}
	return e.Args[i]
}

// StringArg returns the i-th argument as a string, or "" when it is absent
// or of another type.
func (e Event) StringArg(i int) string {
	s, _ := e.Arg(i).(string)
	return s
}

// Listener is a callback invoked when an event is emitted.
type Listener func(ctx context.Context, ev Event)

// EventSink accepts events from driver goroutines. Post may block while the
// sink's queue is full.
type EventSink interface {
	Post(ev Event)
}

// EventSinkFunc adapts a plain function to EventSink.
type EventSinkFunc func(ev Event)

// Post calls f(ev).
func (f EventSinkFunc) Post(ev Event) { f(ev) }
