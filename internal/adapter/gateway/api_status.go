package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"blecentral/internal/domain"
	"blecentral/internal/infra/middleware"
)

// Metrics holds the gateway counters reported by /api/v1/status.
type Metrics struct {
	Clients         atomic.Int64
	EventsForwarded atomic.Int64
	EventsDropped   atomic.Int64
	RPCCalls        atomic.Int64
	RPCErrors       atomic.Int64
}

// StatusResponse is the JSON body returned by GET /api/v1/status.
type StatusResponse struct {
	Adapter  AdapterStatus  `json:"adapter"`
	Gateway  GatewayStatus  `json:"gateway"`
	Schedule ScheduleStatus `json:"schedule"`
}

// AdapterStatus reports the central.
type AdapterStatus struct {
	State       domain.AdapterState `json:"state"`
	Initialized bool                `json:"initialized"`
}

// GatewayStatus reports the gateway counters.
type GatewayStatus struct {
	UptimeSeconds   int64 `json:"uptime_seconds"`
	Clients         int64 `json:"clients"`
	EventsForwarded int64 `json:"events_forwarded"`
	EventsDropped   int64 `json:"events_dropped"`
	RPCCalls        int64 `json:"rpc_calls"`
	RPCErrors       int64 `json:"rpc_errors"`
}

// ScheduleStatus reports the next scheduled scan window, if any.
type ScheduleStatus struct {
	NextScan *time.Time `json:"next_scan,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func statusHandler(s *Server, deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		m := s.metrics
		resp := StatusResponse{
			Adapter: AdapterStatus{
				State:       deps.Central.State(),
				Initialized: deps.Central.Initialized(),
			},
			Gateway: GatewayStatus{
				UptimeSeconds:   int64(time.Since(s.started).Seconds()),
				Clients:         m.Clients.Load(),
				EventsForwarded: m.EventsForwarded.Load(),
				EventsDropped:   m.EventsDropped.Load(),
				RPCCalls:        m.RPCCalls.Load(),
				RPCErrors:       m.RPCErrors.Load(),
			},
		}
		if deps.NextRun != nil {
			if next, ok := deps.NextRun(); ok {
				resp.Schedule.NextScan = &next
			}
		}
		writeJSON(w, resp)
	}
}

func peripheralsHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if deps.Store == nil {
			middleware.WriteError(w, http.StatusServiceUnavailable, fmt.Errorf("peripheral cache: %w", domain.ErrDisabled))
			return
		}
		records, err := deps.Store.ListPeripherals(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, nonNilRecords(records))
	}
}

// RegisterRESTHandlers registers the HTTP endpoints behind token auth.
func RegisterRESTHandlers(s *Server, deps HandlerDeps) {
	authMiddleware := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if _, err := s.auth.Authenticate(requestToken(r)); err != nil {
				middleware.WriteError(w, http.StatusUnauthorized, err)
				return
			}
			next(w, r)
		}
	}

	s.RegisterHTTPRoute("/api/v1/status", authMiddleware(statusHandler(s, deps)))
	s.RegisterHTTPRoute("/api/v1/peripherals", authMiddleware(peripheralsHandler(deps)))
}
