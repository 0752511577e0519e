package config

import (
	"fmt"
	"net"
	"strings"

	"blecentral/internal/domain"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// Unwrap lets callers match domain.ErrConfigLoad.
func (v *ValidationError) Unwrap() error { return domain.ErrConfigLoad }

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateDriver(cfg, ve)
	validateScan(cfg, ve)
	validateStore(cfg, ve)
	validateGateway(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateDriver(cfg *Config, ve *ValidationError) {
	if cfg.Driver.Backend == "" {
		ve.Add("driver.backend must not be empty")
	}
	if cfg.Driver.QueueSize <= 0 {
		ve.Add("driver.queue_size must be > 0")
	}
	if cfg.Driver.MaxListeners < 0 {
		ve.Add("driver.max_listeners must be >= 0")
	}
	if cfg.Driver.MockState != "" {
		if _, err := domain.ParseAdapterState(cfg.Driver.MockState); err != nil {
			ve.Add("driver.mock_state %q is not a known adapter state", cfg.Driver.MockState)
		}
	}
}

func validateScan(cfg *Config, ve *ValidationError) {
	for i, u := range cfg.Scan.ServiceUUIDs {
		if _, err := domain.ExpandUUID(u); err != nil {
			ve.Add("scan.service_uuids[%d] %q is not a valid uuid", i, u)
		}
	}
	if cfg.Scan.Schedule != "" && cfg.Scan.Window <= 0 {
		ve.Add("scan.window must be > 0 when scan.schedule is set")
	}
}

func validateStore(cfg *Config, ve *ValidationError) {
	if cfg.Store.Enabled && cfg.Store.Path == "" {
		ve.Add("store.path is required when store is enabled")
	}
}

func validateGateway(cfg *Config, ve *ValidationError) {
	if !cfg.Gateway.Enabled {
		return
	}
	if cfg.Gateway.Addr == "" {
		ve.Add("gateway.addr is required when gateway is enabled")
	} else if _, _, err := net.SplitHostPort(cfg.Gateway.Addr); err != nil {
		ve.Add("gateway.addr %q is not a valid host:port", cfg.Gateway.Addr)
	}
	if len(cfg.Gateway.Tokens) == 0 {
		ve.Add("gateway.tokens must list at least one token when gateway is enabled")
	}
	for i, t := range cfg.Gateway.Tokens {
		if t.Token == "" {
			ve.Add("gateway.tokens[%d].token is required", i)
		}
	}
	if cfg.Gateway.RequestsPerMin <= 0 {
		ve.Add("gateway.requests_per_min must be > 0")
	}
	if cfg.Gateway.Burst <= 0 {
		ve.Add("gateway.burst must be > 0")
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q must be one of debug, info, warn, error", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q must be text or json", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q must be noop or stdout", cfg.Tracer.Exporter)
	}
}
