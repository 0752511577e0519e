// Package central composes a BLE driver with an event emitter and runs its
// initialisation exactly once.
package central

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"blecentral/internal/adapter/driver"
	"blecentral/internal/domain"
	"blecentral/internal/infra/tracer"
	"blecentral/internal/usecase/emitter"
)

var (
	_ domain.Driver = (*Central)(nil)
	_ emitter.API   = (*Central)(nil)
)

// Central is a driver with an emitter attached. Driver operations and
// emitter operations are both methods of the same value; events the driver
// posts are delivered to listeners on a single dispatch goroutine.
type Central struct {
	domain.Driver
	*emitter.Emitter

	logger     *slog.Logger
	dispatcher *emitter.Dispatcher

	initOnce    sync.Once
	initialized atomic.Bool

	closeOnce sync.Once
	closeErr  error

	stateMu sync.Mutex
	state   domain.AdapterState
	stateCh chan struct{} // closed and replaced on every state change
}

// Construct loads the driver for backend. Failures are *domain.LoadError.
func Construct(ctx context.Context, backend string, cfg driver.Config) (domain.Driver, error) {
	_, span := tracer.StartSpan(ctx, "central.construct",
		trace.WithAttributes(tracer.StringAttr("backend", backend)))
	drv, err := driver.Load(backend, cfg)
	tracer.Finish(span, err)
	if err != nil {
		return nil, err
	}
	return drv, nil
}

// AttachEmitter composes drv with a new emitter. drv itself is kept as the
// embedded Driver; nothing about it is replaced. Listeners given with
// WithListener or WithCatchAll are registered before drv is bound, so they
// observe everything the driver emits from Init onwards.
func AttachEmitter(drv domain.Driver, opts ...Option) *Central {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	_, span := tracer.StartSpan(context.Background(), "central.attach_emitter",
		trace.WithAttributes(
			tracer.IntAttr("queue_size", o.queueSize),
			tracer.IntAttr("listeners", len(o.listeners)+len(o.catchAll)),
		))
	defer span.End()

	c := &Central{
		Driver:  drv,
		Emitter: emitter.New(o.logger),
		logger:  o.logger,
		state:   domain.StateUnknown,
		stateCh: make(chan struct{}),
	}
	c.SetMaxListeners(o.maxListeners)
	for _, l := range o.listeners {
		c.On(l.event, l.fn)
	}
	for _, fn := range o.catchAll {
		c.SubscribeAll(fn)
	}

	c.dispatcher = emitter.NewDispatcher(context.Background(), o.queueSize, c.deliver, o.logger)
	drv.Bind(c.dispatcher)

	tracer.SetOK(span)
	return c
}

// New runs Construct, AttachEmitter and Init in order.
func New(ctx context.Context, backend string, cfg driver.Config, opts ...Option) (*Central, error) {
	drv, err := Construct(ctx, backend, cfg)
	if err != nil {
		return nil, err
	}
	c := AttachEmitter(drv, opts...)
	c.Init(ctx)
	return c, nil
}

// deliver runs on the dispatcher goroutine.
func (c *Central) deliver(ctx context.Context, ev domain.Event) {
	if ev.Type == domain.EventStateChange {
		c.setState(domain.AdapterState(ev.StringArg(0)))
	}
	c.EmitEvent(ctx, ev)
}

// Init starts the driver. Only the first call reaches the driver; it does
// not wait for the adapter, whose readiness arrives as a stateChange event.
func (c *Central) Init(ctx context.Context) {
	first := false
	c.initOnce.Do(func() {
		first = true
		ctx, span := tracer.StartSpan(ctx, "central.init")
		c.Driver.Init(ctx)
		c.initialized.Store(true)
		tracer.Finish(span, nil)
		c.logger.Debug("ble central initialised")
	})
	if !first {
		c.logger.Debug("ble central already initialised, ignoring init")
	}
}

// Initialized reports whether Init has run.
func (c *Central) Initialized() bool { return c.initialized.Load() }

// State returns the last adapter state seen on a stateChange event.
func (c *Central) State() domain.AdapterState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

func (c *Central) setState(st domain.AdapterState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if st == c.state {
		return
	}
	c.logger.Debug("adapter state changed", "from", string(c.state), "to", string(st))
	c.state = st
	close(c.stateCh)
	c.stateCh = make(chan struct{})
}

// WaitForState blocks until the adapter reports want or ctx is done.
func (c *Central) WaitForState(ctx context.Context, want domain.AdapterState) error {
	for {
		c.stateMu.Lock()
		st, changed := c.state, c.stateCh
		c.stateMu.Unlock()
		if st == want {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return fmt.Errorf("wait for adapter state %s (last %s): %w: %w", want, st, domain.ErrTimeout, ctx.Err())
		}
	}
}

// Pending returns the number of driver events waiting for delivery.
func (c *Central) Pending() int { return c.dispatcher.Pending() }

// Close releases the driver and drains queued events. It is meant for
// instances created with New or AttachEmitter; the process-wide default is
// never closed. Called from a listener, Close does not wait for the drain.
func (c *Central) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.Driver.Close()
	})
	c.dispatcher.Close()
	return c.closeErr
}
