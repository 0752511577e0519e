// Package emitter provides the publish/subscribe capability composed into a
// central: named events, ordered synchronous delivery, once-listeners and
// catch-all subscribers.
package emitter

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"blecentral/internal/domain"
)

// DefaultMaxListeners is the per-event listener count above which a leak
// warning is logged.
const DefaultMaxListeners = 10

// ListenerID identifies a registered listener for Off.
type ListenerID uint64

// API is the emitter capability. *Emitter and anything embedding it
// satisfy it.
type API interface {
	On(event domain.EventType, l domain.Listener) ListenerID
	Once(event domain.EventType, l domain.Listener) ListenerID
	Prepend(event domain.EventType, l domain.Listener) ListenerID
	PrependOnce(event domain.EventType, l domain.Listener) ListenerID
	Off(event domain.EventType, id ListenerID) bool
	Subscribe(event domain.EventType, l domain.Listener) func()
	SubscribeAll(l domain.Listener) func()
	Emit(ctx context.Context, event domain.EventType, args ...any) bool
	EmitEvent(ctx context.Context, ev domain.Event) bool
	Listeners(event domain.EventType) []domain.Listener
	ListenerCount(event domain.EventType) int
	EventNames() []domain.EventType
	RemoveAllListeners(events ...domain.EventType)
	SetMaxListeners(n int)
	MaxListeners() int
}

type subscription struct {
	id       ListenerID
	listener domain.Listener
	once     bool
}

// Emitter is a goroutine-safe event emitter. Listeners run synchronously
// in the goroutine that emits, in registration order.
type Emitter struct {
	mu      sync.RWMutex
	typed   map[domain.EventType][]subscription
	order   []domain.EventType
	allSubs []subscription
	warned  map[domain.EventType]bool
	limit   int
	nextID  atomic.Uint64
	logger  *slog.Logger
}

// New creates an emitter.
func New(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		typed:  make(map[domain.EventType][]subscription),
		warned: make(map[domain.EventType]bool),
		limit:  DefaultMaxListeners,
		logger: logger,
	}
}

// On appends a listener for event.
func (e *Emitter) On(event domain.EventType, l domain.Listener) ListenerID {
	return e.add(event, l, false, false)
}

// Once appends a listener that is removed before its first invocation.
func (e *Emitter) Once(event domain.EventType, l domain.Listener) ListenerID {
	return e.add(event, l, true, false)
}

// Prepend adds a listener ahead of those already registered for event.
func (e *Emitter) Prepend(event domain.EventType, l domain.Listener) ListenerID {
	return e.add(event, l, false, true)
}

// PrependOnce is Prepend with Once semantics.
func (e *Emitter) PrependOnce(event domain.EventType, l domain.Listener) ListenerID {
	return e.add(event, l, true, true)
}

func (e *Emitter) add(event domain.EventType, l domain.Listener, once, prepend bool) ListenerID {
	id := ListenerID(e.nextID.Add(1))

	// newListener fires before the listener is in the table, so a
	// newListener listener never observes its own registration.
	e.emitMeta(domain.EventNewListener, event, id)

	sub := subscription{id: id, listener: l, once: once}

	e.mu.Lock()
	subs, seen := e.typed[event]
	if !seen {
		e.order = append(e.order, event)
	}
	if prepend {
		subs = append([]subscription{sub}, subs...)
	} else {
		subs = append(subs, sub)
	}
	e.typed[event] = subs
	warn := e.limit > 0 && len(subs) > e.limit && !e.warned[event]
	if warn {
		e.warned[event] = true
	}
	count, limit := len(subs), e.limit
	e.mu.Unlock()

	if warn {
		e.logger.Warn("possible listener leak detected",
			"event", string(event),
			"listeners", count,
			"max_listeners", limit,
		)
	}
	return id
}

// Off removes the listener registered under id. It reports whether a
// listener was removed.
func (e *Emitter) Off(event domain.EventType, id ListenerID) bool {
	if !e.remove(event, id) {
		return false
	}
	e.emitMeta(domain.EventRemoveListener, event, id)
	return true
}

func (e *Emitter) remove(event domain.EventType, id ListenerID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	subs := e.typed[event]
	for i, s := range subs {
		if s.id == id {
			e.typed[event] = append(subs[:i:i], subs[i+1:]...)
			return true
		}
	}
	return false
}

// Subscribe registers a listener for event.
// Returns an unsubscribe function.
func (e *Emitter) Subscribe(event domain.EventType, l domain.Listener) func() {
	id := e.On(event, l)
	return func() { e.Off(event, id) }
}

// SubscribeAll registers a listener that receives every emitted event after
// the event's own listeners. Bookkeeping events are not delivered to it.
// Returns an unsubscribe function.
func (e *Emitter) SubscribeAll(l domain.Listener) func() {
	id := ListenerID(e.nextID.Add(1))
	sub := subscription{id: id, listener: l}

	e.mu.Lock()
	e.allSubs = append(e.allSubs, sub)
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.allSubs {
			if s.id == id {
				e.allSubs = append(e.allSubs[:i:i], e.allSubs[i+1:]...)
				return
			}
		}
	}
}

// Emit builds an event from args and delivers it. See EmitEvent.
func (e *Emitter) Emit(ctx context.Context, event domain.EventType, args ...any) bool {
	return e.EmitEvent(ctx, domain.NewEvent(event, args...))
}

// EmitEvent invokes every listener for ev.Type, then every catch-all
// subscriber, synchronously and in order. Panicking listeners are
// recovered. It reports whether any listener ran.
//
// An error event with no listeners is logged at error level.
func (e *Emitter) EmitEvent(ctx context.Context, ev domain.Event) bool {
	e.mu.RLock()
	typed := make([]subscription, len(e.typed[ev.Type]))
	copy(typed, e.typed[ev.Type])
	allSubs := make([]subscription, len(e.allSubs))
	copy(allSubs, e.allSubs)
	e.mu.RUnlock()

	handled := false
	for _, sub := range typed {
		// A once-listener is claimed by removing it; a concurrent emit that
		// loses the race skips it.
		if sub.once {
			if !e.remove(ev.Type, sub.id) {
				continue
			}
			e.emitMeta(domain.EventRemoveListener, ev.Type, sub.id)
		}
		e.invoke(ctx, ev, sub)
		handled = true
	}
	for _, sub := range allSubs {
		e.invoke(ctx, ev, sub)
		handled = true
	}

	if !handled && ev.Type == domain.EventError {
		e.logger.Error("unhandled error event", "args", ev.Args)
	}
	return handled
}

// emitMeta delivers newListener/removeListener to their own listeners only.
func (e *Emitter) emitMeta(meta, event domain.EventType, id ListenerID) {
	e.mu.RLock()
	subs := make([]subscription, len(e.typed[meta]))
	copy(subs, e.typed[meta])
	e.mu.RUnlock()
	if len(subs) == 0 {
		return
	}
	ev := domain.NewEvent(meta, event, id)
	for _, sub := range subs {
		if sub.once {
			if !e.remove(meta, sub.id) {
				continue
			}
		}
		e.invoke(context.Background(), ev, sub)
	}
}

func (e *Emitter) invoke(ctx context.Context, ev domain.Event, sub subscription) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event listener panicked",
				"event", string(ev.Type),
				"listener_id", uint64(sub.id),
				"panic", r,
			)
		}
	}()
	sub.listener(ctx, ev)
}

// Listeners returns a copy of the listeners registered for event, in
// invocation order.
func (e *Emitter) Listeners(event domain.EventType) []domain.Listener {
	e.mu.RLock()
	defer e.mu.RUnlock()
	subs := e.typed[event]
	out := make([]domain.Listener, len(subs))
	for i, s := range subs {
		out[i] = s.listener
	}
	return out
}

// ListenerCount returns the number of listeners registered for event.
func (e *Emitter) ListenerCount(event domain.EventType) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.typed[event])
}

// EventNames returns the events that currently have listeners, in the
// order they were first registered.
func (e *Emitter) EventNames() []domain.EventType {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var names []domain.EventType
	for _, name := range e.order {
		if len(e.typed[name]) > 0 {
			names = append(names, name)
		}
	}
	return names
}

// RemoveAllListeners drops the listeners of the given events, or of every
// event when none are named. Catch-all subscribers are kept.
func (e *Emitter) RemoveAllListeners(events ...domain.EventType) {
	e.mu.Lock()
	if len(events) == 0 {
		events = append(events, e.order...)
	}
	type removed struct {
		event domain.EventType
		subs  []subscription
	}
	var gone []removed
	for _, ev := range events {
		if subs := e.typed[ev]; len(subs) > 0 {
			gone = append(gone, removed{event: ev, subs: subs})
		}
		delete(e.typed, ev)
		delete(e.warned, ev)
	}
	kept := e.order[:0]
	for _, name := range e.order {
		if _, ok := e.typed[name]; ok {
			kept = append(kept, name)
		}
	}
	e.order = kept
	e.mu.Unlock()

	for _, r := range gone {
		if r.event == domain.EventRemoveListener {
			continue
		}
		for _, s := range r.subs {
			e.emitMeta(domain.EventRemoveListener, r.event, s.id)
		}
	}
}

// SetMaxListeners sets the per-event leak warning threshold. Zero disables
// the warning.
func (e *Emitter) SetMaxListeners(n int) {
	if n < 0 {
		n = 0
	}
	e.mu.Lock()
	e.limit = n
	e.mu.Unlock()
}

// MaxListeners returns the current leak warning threshold.
func (e *Emitter) MaxListeners() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.limit
}
