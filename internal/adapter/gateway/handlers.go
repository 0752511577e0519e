package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"blecentral/internal/domain"
)

// HandlerDeps holds dependencies needed by RPC and REST handlers.
type HandlerDeps struct {
	Central Central
	Store   domain.PeripheralStore   // can be nil (cache disabled)
	NextRun func() (time.Time, bool) // can be nil (no scan schedule)
}

// acceptedResponse is returned by every driver operation. The outcome of
// the operation arrives later as an event frame.
var acceptedResponse = json.RawMessage(`{"accepted":true}`)

type stateResponse struct {
	State       domain.AdapterState `json:"state"`
	Initialized bool                `json:"initialized"`
}

type scanStartRequest struct {
	ServiceUUIDs    []string `json:"serviceUuids"`
	AllowDuplicates bool     `json:"allowDuplicates"`
}

type deviceRequest struct {
	Device string `json:"device"`
}

type servicesRequest struct {
	Device       string   `json:"device"`
	Service      string   `json:"service"`
	ServiceUUIDs []string `json:"serviceUuids"`
}

type characteristicsRequest struct {
	Device              string   `json:"device"`
	Service             string   `json:"service"`
	CharacteristicUUIDs []string `json:"characteristicUuids"`
}

type attributeRequest struct {
	Device          string `json:"device"`
	Service         string `json:"service"`
	Characteristic  string `json:"characteristic"`
	Descriptor      string `json:"descriptor"`
	Data            []byte `json:"data"` // base64 on the wire
	WithoutResponse bool   `json:"withoutResponse"`
	Enable          bool   `json:"enable"`
}

type handleRequest struct {
	Device          string `json:"device"`
	Handle          uint16 `json:"handle"`
	Data            []byte `json:"data"`
	WithoutResponse bool   `json:"withoutResponse"`
}

func decode[T any](payload json.RawMessage) (T, error) {
	var req T
	if len(payload) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, fmt.Errorf("%w: %v", domain.ErrRPCInvalidPayload, err)
	}
	return req, nil
}

// op adapts a fire-and-forget driver call to an RPCHandler.
func op[T any](fn func(req T)) RPCHandler {
	return func(_ context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		req, err := decode[T](payload)
		if err != nil {
			return nil, err
		}
		fn(req)
		return acceptedResponse, nil
	}
}

func dev(s string) string { return domain.PeripheralID(s) }

func normUUID(s string) string { return domain.NormalizeUUID(s) }

// RegisterRPCHandlers registers one RPC method per driver operation plus
// state and peripherals.list.
func RegisterRPCHandlers(s *Server, deps HandlerDeps) {
	c := deps.Central

	s.RegisterHandler(MethodState, func(context.Context, *ClientInfo, json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(stateResponse{State: c.State(), Initialized: c.Initialized()})
	})

	s.RegisterHandler(MethodScanStart, op(func(r scanStartRequest) {
		c.StartScanning(domain.NormalizeUUIDs(r.ServiceUUIDs), r.AllowDuplicates)
	}))
	s.RegisterHandler(MethodScanStop, op(func(struct{}) { c.StopScanning() }))

	s.RegisterHandler(MethodConnect, op(func(r deviceRequest) { c.Connect(dev(r.Device)) }))
	s.RegisterHandler(MethodDisconnect, op(func(r deviceRequest) { c.Disconnect(dev(r.Device)) }))
	s.RegisterHandler(MethodRSSIUpdate, op(func(r deviceRequest) { c.UpdateRSSI(dev(r.Device)) }))

	s.RegisterHandler(MethodServicesDiscover, op(func(r servicesRequest) {
		c.DiscoverServices(dev(r.Device), domain.NormalizeUUIDs(r.ServiceUUIDs))
	}))
	s.RegisterHandler(MethodIncludedServicesDiscover, op(func(r servicesRequest) {
		c.DiscoverIncludedServices(dev(r.Device), normUUID(r.Service), domain.NormalizeUUIDs(r.ServiceUUIDs))
	}))
	s.RegisterHandler(MethodCharacteristicsDiscover, op(func(r characteristicsRequest) {
		c.DiscoverCharacteristics(dev(r.Device), normUUID(r.Service), domain.NormalizeUUIDs(r.CharacteristicUUIDs))
	}))

	s.RegisterHandler(MethodRead, op(func(r attributeRequest) {
		c.Read(dev(r.Device), normUUID(r.Service), normUUID(r.Characteristic))
	}))
	s.RegisterHandler(MethodWrite, op(func(r attributeRequest) {
		c.Write(dev(r.Device), normUUID(r.Service), normUUID(r.Characteristic), r.Data, r.WithoutResponse)
	}))
	s.RegisterHandler(MethodNotify, op(func(r attributeRequest) {
		c.Notify(dev(r.Device), normUUID(r.Service), normUUID(r.Characteristic), r.Enable)
	}))

	s.RegisterHandler(MethodDescriptorsDiscover, op(func(r attributeRequest) {
		c.DiscoverDescriptors(dev(r.Device), normUUID(r.Service), normUUID(r.Characteristic))
	}))
	s.RegisterHandler(MethodValueRead, op(func(r attributeRequest) {
		c.ReadValue(dev(r.Device), normUUID(r.Service), normUUID(r.Characteristic), normUUID(r.Descriptor))
	}))
	s.RegisterHandler(MethodValueWrite, op(func(r attributeRequest) {
		c.WriteValue(dev(r.Device), normUUID(r.Service), normUUID(r.Characteristic), normUUID(r.Descriptor), r.Data)
	}))

	s.RegisterHandler(MethodHandleRead, op(func(r handleRequest) { c.ReadHandle(dev(r.Device), r.Handle) }))
	s.RegisterHandler(MethodHandleWrite, op(func(r handleRequest) {
		c.WriteHandle(dev(r.Device), r.Handle, r.Data, r.WithoutResponse)
	}))

	s.RegisterHandler(MethodPeripheralsList, func(ctx context.Context, _ *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		if deps.Store == nil {
			return nil, fmt.Errorf("peripheral cache: %w", domain.ErrDisabled)
		}
		records, err := deps.Store.ListPeripherals(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(nonNilRecords(records))
	})
}

func nonNilRecords(rs []*domain.PeripheralRecord) []*domain.PeripheralRecord {
	if rs == nil {
		return []*domain.PeripheralRecord{}
	}
	return rs
}
