// Package driver holds the BLE driver backends and the registry the central
// loads them from.
package driver

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"blecentral/internal/domain"
)

// Backend names.
const (
	NameAuto   = "auto"
	NameMock   = "mock"
	NameNative = "native"
)

// Config carries what a factory needs to build a driver.
type Config struct {
	Logger *slog.Logger

	// MockState is the adapter state the mock reports on Init.
	MockState domain.AdapterState
	// MockPeripherals seeds the mock. Nil selects DemoPeripherals.
	MockPeripherals []MockPeripheral
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Factory builds a driver instance.
type Factory func(cfg Config) (domain.Driver, error)

var (
	regMu     sync.RWMutex
	factories = make(map[string]Factory)
)

// Register adds a backend. Returns error if name already registered.
func Register(name string, f Factory) error {
	if name == "" || name == NameAuto {
		return fmt.Errorf("register backend %q: %w", name, domain.ErrInvalidInput)
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := factories[name]; exists {
		return fmt.Errorf("backend %q already registered", name)
	}
	factories[name] = f
	return nil
}

func mustRegister(name string, f Factory) {
	if err := Register(name, f); err != nil {
		panic(err)
	}
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve maps "auto" (or empty) to the native backend.
func Resolve(name string) string {
	if name == "" || name == NameAuto {
		return NameNative
	}
	return name
}

// Load builds a driver for the named backend. Every failure is a
// *domain.LoadError.
func Load(name string, cfg Config) (domain.Driver, error) {
	resolved := Resolve(name)

	regMu.RLock()
	f, ok := factories[resolved]
	regMu.RUnlock()
	if !ok {
		return nil, domain.NewLoadError(resolved, fmt.Errorf("unknown backend (available: %s): %w",
			strings.Join(Backends(), ", "), domain.ErrNotFound))
	}

	drv, err := f(cfg)
	if err != nil {
		return nil, domain.NewLoadError(resolved, err)
	}
	if drv == nil {
		return nil, domain.NewLoadError(resolved, fmt.Errorf("factory returned no driver"))
	}
	cfg.logger().Debug("ble driver loaded", "backend", resolved)
	return drv, nil
}
