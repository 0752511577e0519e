package driver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blecentral/internal/domain"
)

func registerForTest(t *testing.T, name string, f Factory) {
	t.Helper()
	require.NoError(t, Register(name, f))
	t.Cleanup(func() {
		regMu.Lock()
		delete(factories, name)
		regMu.Unlock()
	})
}

func TestBackendsIncludesBuiltins(t *testing.T) {
	names := Backends()
	assert.Contains(t, names, NameMock)
	assert.Contains(t, names, NameNative)
}

func TestLoadMock(t *testing.T) {
	drv, err := Load(NameMock, Config{})
	require.NoError(t, err)
	m, ok := drv.(*MockDriver)
	require.True(t, ok)
	assert.Len(t, m.devices, len(DemoPeripherals()))
}

func TestLoadMockWithEmptyPeripherals(t *testing.T) {
	drv, err := Load(NameMock, Config{MockPeripherals: []MockPeripheral{}, MockState: domain.StatePoweredOff})
	require.NoError(t, err)
	m := drv.(*MockDriver)
	assert.Empty(t, m.devices)
	assert.Equal(t, domain.StatePoweredOff, m.state)
}

func TestLoadUnknownBackend(t *testing.T) {
	drv, err := Load("bluez-over-carrier-pigeon", Config{})
	assert.Nil(t, drv)

	var le *domain.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "bluez-over-carrier-pigeon", le.Backend)
	assert.True(t, errors.Is(err, domain.ErrLoad))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLoadFactoryFailure(t *testing.T) {
	cause := errors.New("adapter busy")
	registerForTest(t, "test-failing", func(Config) (domain.Driver, error) { return nil, cause })

	_, err := Load("test-failing", Config{})
	assert.True(t, errors.Is(err, domain.ErrLoad))
	assert.True(t, errors.Is(err, cause))
}

func TestLoadFactoryNilDriver(t *testing.T) {
	registerForTest(t, "test-nil", func(Config) (domain.Driver, error) { return nil, nil })

	_, err := Load("test-nil", Config{})
	assert.True(t, errors.Is(err, domain.ErrLoad))
}

func TestRegisterRejectsDuplicatesAndReservedNames(t *testing.T) {
	assert.Error(t, Register(NameMock, func(Config) (domain.Driver, error) { return NewMock(), nil }))
	assert.True(t, errors.Is(Register(NameAuto, nil), domain.ErrInvalidInput))
	assert.True(t, errors.Is(Register("", nil), domain.ErrInvalidInput))
}

func TestResolve(t *testing.T) {
	assert.Equal(t, NameNative, Resolve(""))
	assert.Equal(t, NameNative, Resolve(NameAuto))
	assert.Equal(t, NameMock, Resolve(NameMock))
}
