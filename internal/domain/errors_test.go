package domain

import (
	"errors"
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Gateway.RPC", ErrRPCMethodNotFound, "method 'ble.frobnicate'")
	want := "Gateway.RPC: method 'ble.frobnicate': rpc method not found"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorFormatNoDetail(t *testing.T) {
	err := NewDomainError("Central.Init", ErrClosed, "")
	want := "Central.Init: central closed"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewDomainError("Store.Get", ErrNotFound, "abc"))
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("errors.As should match *DomainError")
	}
	if de.Op != "Store.Get" {
		t.Errorf("Op = %q, want %q", de.Op, "Store.Get")
	}
	assert.Equal(t, CodeNotFound, de.Code())
}

func TestLoadError(t *testing.T) {
	cause := errors.New("no adapter")
	err := NewLoadError("native", cause)

	assert.True(t, errors.Is(err, ErrLoad))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, err.Platform)
	assert.Contains(t, err.Error(), `backend "native"`)
	assert.Contains(t, err.Error(), "no adapter")

	var le *LoadError
	require.True(t, errors.As(fmt.Errorf("wrap: %w", err), &le))
	assert.Equal(t, "native", le.Backend)
}

func TestLoadError_NilCause(t *testing.T) {
	err := NewLoadError("mock", nil)
	assert.True(t, errors.Is(err, ErrLoad))
	assert.NotContains(t, err.Error(), "<nil>")
}

func TestDriverError(t *testing.T) {
	err := NewDriverError("Connect", "aabbccddeeff", ErrUnsupported)
	assert.Equal(t, "Connect aabbccddeeff: operation not supported by driver", err.Error())
	assert.True(t, errors.Is(err, ErrDriver))
	assert.True(t, errors.Is(err, ErrUnsupported))

	adapterLevel := NewDriverError("Init", "", errors.New("powered off"))
	assert.Equal(t, "Init: powered off", adapterLevel.Error())
}

func TestErrorCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, CodeUnknown},
		{"unknown", fmt.Errorf("some random error"), CodeUnknown},
		{"direct", ErrRPCInvalidPayload, CodeRPCInvalidPayload},
		{"wrapped", fmt.Errorf("context: %w", ErrNotFound), CodeNotFound},
		{"gateway auth beats auth invalid", ErrGatewayAuthFailed, CodeGatewayAuth},
		{"plain auth invalid", ErrAuthInvalid, CodeAuthInvalid},
		{"load error", NewLoadError("x", ErrUnsupported), CodeUnsupported},
		{"load error generic", NewLoadError("x", errors.New("boom")), CodeLoad},
		{"driver error", NewDriverError("Read", "d", errors.New("io")), CodeDriver},
		{"domain error", NewDomainError("Op", ErrAlreadyInitialized, ""), CodeAlreadyInitialized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCodeOf(tt.err))
		})
	}
}

func TestAllSentinelsHaveCodes(t *testing.T) {
	require.NotEmpty(t, codeOrder)
	for _, c := range codeOrder {
		assert.NotEqual(t, CodeUnknown, c.code, "sentinel %v maps to UNKNOWN", c.err)
		assert.Equal(t, c.code, ErrorCodeOf(c.err), "sentinel %v", c.err)
	}
}

func TestWrapOp(t *testing.T) {
	assert.Nil(t, WrapOp("anything", nil))

	inner := WrapOp("inner", ErrStore)
	outer := WrapOp("outer", inner)
	assert.Equal(t, "outer: inner: peripheral store failed", outer.Error())
	assert.True(t, errors.Is(outer, ErrStore))
	assert.Equal(t, CodeStore, ErrorCodeOf(outer))
}
