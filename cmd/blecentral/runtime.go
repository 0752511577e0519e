package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blecentral/internal/adapter/store"
	"blecentral/internal/domain"
	"blecentral/internal/infra/config"
	"blecentral/internal/infra/logger"
	"blecentral/internal/infra/tracer"
	"blecentral/pkg/central"
)

// stateTimeout bounds how long a command waits for the adapter.
const stateTimeout = 5 * time.Second

// runtime holds what every command needs: config, logger and tracer.
type runtime struct {
	cfg *config.Config
	log *slog.Logger

	closers []func()
}

func newRuntime(flags cliFlags) (*runtime, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	return startRuntime(cfg)
}

// loadConfig loads the config file and applies command-line overrides.
func loadConfig(flags cliFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if flags.Backend != "" {
		cfg.Driver.Backend = flags.Backend
	}
	return cfg, nil
}

func startRuntime(cfg *config.Config) (*runtime, error) {
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	rt := &runtime{cfg: cfg, log: log}
	rt.closers = append(rt.closers, func() { _ = logCloser() })

	shutdown, err := tracer.Setup(context.Background(), cfg.Tracer)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("tracer: %w", err)
	}
	rt.closers = append(rt.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			log.Warn("tracer shutdown", "error", err)
		}
	})
	return rt, nil
}

// close runs the registered closers in reverse order.
func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// centralOptions maps the driver config onto facade options.
func (rt *runtime) centralOptions(extra ...central.Option) []central.Option {
	d := rt.cfg.Driver
	opts := []central.Option{
		central.WithBackend(d.Backend),
		central.WithLogger(logger.Component(rt.log, "central")),
		central.WithQueueSize(d.QueueSize),
		central.WithMaxListeners(d.MaxListeners),
	}
	if d.MockState != "" {
		opts = append(opts, central.WithMockState(central.AdapterState(d.MockState)))
	}
	return append(opts, extra...)
}

// defaultCentral configures and returns the process-wide central. extra options
// register listeners before the driver is initialised.
func (rt *runtime) defaultCentral(extra ...central.Option) (*central.Central, error) {
	if err := central.Configure(rt.centralOptions(extra...)...); err != nil {
		return nil, err
	}
	return central.Default()
}

// openStore opens the peripheral cache at the configured path.
func (rt *runtime) openStore() (*store.SQLiteStore, error) {
	st, err := store.Open(rt.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	rt.closers = append(rt.closers, func() {
		if err := st.Close(); err != nil {
			rt.log.Warn("store close", "error", err)
		}
	})
	return st, nil
}

// waitPoweredOn waits for the adapter to power on and explains the last
// state it saw otherwise.
func waitPoweredOn(ctx context.Context, c *central.Central) error {
	ctx, cancel := context.WithTimeout(ctx, stateTimeout)
	defer cancel()
	if err := c.WaitForState(ctx, central.StatePoweredOn); err != nil {
		if errors.Is(err, domain.ErrTimeout) {
			return fmt.Errorf("adapter not powered on (state %s): %w", c.State(), err)
		}
		return err
	}
	return nil
}
