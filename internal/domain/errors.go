package domain

import (
	"errors"
	"fmt"
	"runtime"
)

// Category sentinels.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrTimeout      = fmt.Errorf("operation timed out")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrDisabled     = fmt.Errorf("disabled")
)

// Sentinel errors for the domain layer.
var (
	ErrLoad               = fmt.Errorf("failed to load ble driver")
	ErrDriver             = fmt.Errorf("ble driver error")
	ErrUnsupported        = fmt.Errorf("operation not supported by driver")
	ErrAlreadyInitialized = fmt.Errorf("central already initialized")
	ErrClosed             = fmt.Errorf("central closed")
	ErrConfigLoad         = fmt.Errorf("failed to load configuration")
	ErrStore              = fmt.Errorf("peripheral store failed")

	// Gateway / RPC errors.
	ErrGatewayAuthFailed = fmt.Errorf("gateway: %w", ErrAuthInvalid)
	ErrRPCMethodNotFound = fmt.Errorf("rpc method not found")
	ErrRPCInvalidPayload = fmt.Errorf("rpc payload invalid")

	ErrRateLimit   = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid = fmt.Errorf("authentication failed")
)

// LoadError reports that no driver instance could be obtained for a backend.
// It matches both ErrLoad and the underlying cause under errors.Is.
type LoadError struct {
	Backend  string
	Platform string
	Err      error
}

// NewLoadError builds a LoadError stamped with the running platform.
func NewLoadError(backend string, err error) *LoadError {
	return &LoadError{
		Backend:  backend,
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		Err:      err,
	}
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: backend %q on %s", ErrLoad, e.Backend, e.Platform)
	}
	return fmt.Sprintf("%s: backend %q on %s: %v", ErrLoad, e.Backend, e.Platform, e.Err)
}

func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrLoad}
	}
	return []error{ErrLoad, e.Err}
}

// DriverError is delivered on the error event, or as the error argument of
// connect, when a driver operation fails.
type DriverError struct {
	Op     string // driver operation, e.g. "Connect"
	Device string // peripheral uuid, empty for adapter-level failures
	Err    error
}

// NewDriverError builds a DriverError.
func NewDriverError(op, device string, err error) *DriverError {
	return &DriverError{Op: op, Device: device, Err: err}
}

func (e *DriverError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Device, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DriverError) Unwrap() []error { return []error{ErrDriver, e.Err} }

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Gateway.RPC")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category carried in gateway
// responses.
type ErrorCode string

const (
	CodeUnknown            ErrorCode = "UNKNOWN"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodeDisabled           ErrorCode = "DISABLED"
	CodeLoad               ErrorCode = "DRIVER_LOAD"
	CodeDriver             ErrorCode = "DRIVER"
	CodeUnsupported        ErrorCode = "UNSUPPORTED"
	CodeAlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"
	CodeClosed             ErrorCode = "CLOSED"
	CodeConfigLoad         ErrorCode = "CONFIG_LOAD"
	CodeStore              ErrorCode = "STORE"
	CodeGatewayAuth        ErrorCode = "GATEWAY_AUTH"
	CodeRPCMethodNotFound  ErrorCode = "RPC_METHOD_NOT_FOUND"
	CodeRPCInvalidPayload  ErrorCode = "RPC_INVALID_PAYLOAD"
	CodeRateLimit          ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid        ErrorCode = "AUTH_INVALID"
)

// codeOrder lists sentinel -> code pairs, most specific first, so that a
// chain matching several sentinels (e.g. ErrGatewayAuthFailed wraps
// ErrAuthInvalid) resolves deterministically.
var codeOrder = []struct {
	err  error
	code ErrorCode
}{
	{ErrGatewayAuthFailed, CodeGatewayAuth},
	{ErrRPCMethodNotFound, CodeRPCMethodNotFound},
	{ErrRPCInvalidPayload, CodeRPCInvalidPayload},
	{ErrUnsupported, CodeUnsupported},
	{ErrLoad, CodeLoad},
	{ErrDriver, CodeDriver},
	{ErrAlreadyInitialized, CodeAlreadyInitialized},
	{ErrClosed, CodeClosed},
	{ErrConfigLoad, CodeConfigLoad},
	{ErrStore, CodeStore},
	{ErrRateLimit, CodeRateLimit},
	{ErrAuthInvalid, CodeAuthInvalid},
	{ErrNotFound, CodeNotFound},
	{ErrTimeout, CodeTimeout},
	{ErrInvalidInput, CodeInvalidInput},
	{ErrDisabled, CodeDisabled},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	for _, c := range codeOrder {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode { return ErrorCodeOf(e.Err) }
