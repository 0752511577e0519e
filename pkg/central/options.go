package central

import (
	"log/slog"
	"os"

	"blecentral/internal/adapter/driver"
	"blecentral/internal/domain"
	usecase "blecentral/internal/usecase/central"
)

// Option configures a central built by Default or New.
type Option func(*settings)

type settings struct {
	backend   string
	logger    *slog.Logger
	mockState domain.AdapterState
	extra     []usecase.Option
}

func newSettings(opts []Option) *settings {
	s := &settings{
		backend: os.Getenv("BLECENTRAL_DRIVER_BACKEND"),
		logger:  slog.Default(),
	}
	if s.backend == "" {
		s.backend = driver.NameAuto
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *settings) driverConfig() driver.Config {
	return driver.Config{Logger: s.logger, MockState: s.mockState}
}

func (s *settings) centralOptions() []usecase.Option {
	return append([]usecase.Option{usecase.WithLogger(s.logger)}, s.extra...)
}

// WithBackend selects the driver backend ("auto", "native", "mock", or any
// registered name). Defaults to $BLECENTRAL_DRIVER_BACKEND, then "auto".
func WithBackend(name string) Option {
	return func(s *settings) { s.backend = name }
}

// WithLogger sets the logger for the driver and the emitter.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMockState sets the adapter state the mock backend reports.
func WithMockState(st AdapterState) Option {
	return func(s *settings) { s.mockState = st }
}

// WithQueueSize sets the driver event queue size.
func WithQueueSize(n int) Option {
	return func(s *settings) { s.extra = append(s.extra, usecase.WithQueueSize(n)) }
}

// WithMaxListeners sets the per-event listener warning threshold.
func WithMaxListeners(n int) Option {
	return func(s *settings) { s.extra = append(s.extra, usecase.WithMaxListeners(n)) }
}

// WithListener subscribes fn to event before the driver is initialised, so
// events emitted during Init are not missed.
func WithListener(event EventType, fn Listener) Option {
	return func(s *settings) { s.extra = append(s.extra, usecase.WithListener(event, fn)) }
}

// WithCatchAll subscribes fn to every event before the driver is initialised.
func WithCatchAll(fn Listener) Option {
	return func(s *settings) { s.extra = append(s.extra, usecase.WithCatchAll(fn)) }
}
