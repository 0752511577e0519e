// Package central exposes the process-wide BLE central.
//
// The first call to Default loads the configured driver, attaches an event
// emitter to it and initialises it; every later call returns the same value.
// Readiness is reported as a stateChange event, so subscribe before use or
// wait for it:
//
//	c, err := central.Default()
//	if err != nil {
//	    log.Fatal(err) // *central.LoadError
//	}
//	c.On(central.EventDiscover, func(ctx context.Context, ev central.Event) {
//	    p, _ := central.PeripheralFromDiscover(ev)
//	    fmt.Println(p.UUID, p.Advertisement.LocalName, p.RSSI)
//	})
//	if err := c.WaitForState(ctx, central.StatePoweredOn); err != nil {
//	    return err
//	}
//	c.StartScanning(nil, false)
package central

import (
	"context"
	"fmt"
	"sync"

	"blecentral/internal/domain"
	usecase "blecentral/internal/usecase/central"
)

var (
	mu         sync.Mutex
	configured []Option
	started    bool

	once        sync.Once
	instance    *Central
	instanceErr error
)

// Configure records options for the default central. It must be called
// before the first Default; afterwards it returns ErrAlreadyInitialized.
func Configure(opts ...Option) error {
	mu.Lock()
	defer mu.Unlock()
	if started {
		return fmt.Errorf("configure default central: %w", domain.ErrAlreadyInitialized)
	}
	configured = append(configured, opts...)
	return nil
}

// Default returns the process-wide central, building it on first use. A
// load failure is returned from every call and no central is ever exposed
// for it.
func Default() (*Central, error) {
	once.Do(func() {
		mu.Lock()
		started = true
		opts := configured
		mu.Unlock()

		c, err := New(context.Background(), opts...)
		if err != nil {
			instanceErr = err
			return
		}
		instance = c
	})
	return instance, instanceErr
}

// MustDefault is like Default but panics if the driver cannot be loaded.
func MustDefault() *Central {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// New builds an initialised central that is independent of the default one.
// Callers own it and should Close it when done.
func New(ctx context.Context, opts ...Option) (*Central, error) {
	s := newSettings(opts)
	return usecase.New(ctx, s.backend, s.driverConfig(), s.centralOptions()...)
}
