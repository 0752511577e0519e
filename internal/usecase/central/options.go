package central

import (
	"log/slog"

	"blecentral/internal/domain"
	"blecentral/internal/usecase/emitter"
)

// Option configures AttachEmitter.
type Option func(*options)

type listenerSpec struct {
	event domain.EventType
	fn    domain.Listener
}

type options struct {
	logger       *slog.Logger
	queueSize    int
	maxListeners int
	listeners    []listenerSpec
	catchAll     []domain.Listener
}

func defaultOptions() options {
	return options{
		logger:       slog.Default(),
		queueSize:    emitter.DefaultQueueSize,
		maxListeners: emitter.DefaultMaxListeners,
	}
}

// WithLogger sets the logger used by the emitter and dispatcher.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithQueueSize sets the dispatcher buffer. Values <= 0 keep the default.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithMaxListeners sets the per-event listener warning threshold. 0 disables it.
func WithMaxListeners(n int) Option {
	return func(o *options) { o.maxListeners = n }
}

// WithListener registers fn for event before the driver is initialised.
func WithListener(event domain.EventType, fn domain.Listener) Option {
	return func(o *options) {
		o.listeners = append(o.listeners, listenerSpec{event: event, fn: fn})
	}
}

// WithCatchAll registers fn for every driver event before the driver is
// initialised.
func WithCatchAll(fn domain.Listener) Option {
	return func(o *options) { o.catchAll = append(o.catchAll, fn) }
}
