package gateway

import (
	"encoding/json"
	"time"

	"blecentral/internal/domain"
)

// FrameType identifies the kind of frame sent over the WebSocket connection.
type FrameType string

const (
	FrameTypeRequest  FrameType = "request"
	FrameTypeResponse FrameType = "response"
	FrameTypeEvent    FrameType = "event"
)

// Frame is the envelope exchanged between client and server over WebSocket.
type Frame struct {
	Type    FrameType        `json:"type"`
	ID      uint64           `json:"id,omitempty"`      // request/response correlation ID
	Method  string           `json:"method,omitempty"`  // RPC method name (request only)
	Payload json.RawMessage  `json:"payload,omitempty"` // request params, response result or event
	Error   string           `json:"error,omitempty"`   // response only
	Code    domain.ErrorCode `json:"code,omitempty"`    // set with Error
}

// EventPayload is the payload of an event frame.
type EventPayload struct {
	Type      domain.EventType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Args      []any            `json:"args"`
}

// WireError is how error arguments of driver events are encoded.
type WireError struct {
	Op     string           `json:"op,omitempty"`
	Device string           `json:"device,omitempty"`
	Error  string           `json:"error"`
	Code   domain.ErrorCode `json:"code"`
}

func eventPayload(ev domain.Event) EventPayload {
	args := make([]any, len(ev.Args))
	for i, a := range ev.Args {
		args[i] = wireArg(a)
	}
	return EventPayload{Type: ev.Type, Timestamp: ev.Timestamp, Args: args}
}

// wireArg converts values that do not survive encoding/json as-is.
func wireArg(a any) any {
	switch v := a.(type) {
	case *domain.DriverError:
		if v == nil {
			return nil
		}
		code := domain.ErrorCodeOf(v.Err)
		if code == domain.CodeUnknown {
			code = domain.CodeDriver
		}
		return WireError{Op: v.Op, Device: v.Device, Error: v.Error(), Code: code}
	case error:
		if v == nil {
			return nil
		}
		return WireError{Error: v.Error(), Code: domain.ErrorCodeOf(v)}
	case domain.AdapterState:
		return string(v)
	case domain.AddressType:
		return string(v)
	default:
		return a
	}
}
