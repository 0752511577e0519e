package emitter

import (
	"bytes"
	"context"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"blecentral/internal/domain"
)

// DefaultQueueSize is the dispatcher buffer used when none is configured.
const DefaultQueueSize = 256

// Dispatcher serialises events posted from arbitrary goroutines onto a single
// delivery goroutine, preserving FIFO order per poster. It implements
// domain.EventSink.
//
// Listeners run on the delivery goroutine and may call driver operations
// that post again. Those posts never block: they are held in an unbounded
// overflow queue delivered right after the current event.
type Dispatcher struct {
	ch      chan domain.Event
	deliver func(ctx context.Context, ev domain.Event)
	ctx     context.Context
	logger  *slog.Logger

	runner     atomic.Uint64 // goroutine id of run
	delivering atomic.Bool

	overflowMu sync.Mutex
	overflow   []domain.Event

	closed    atomic.Bool
	closeOnce sync.Once
	quit      chan struct{}
	done      chan struct{}
}

// NewDispatcher starts a dispatcher that hands every posted event to
// deliver. A non-positive size selects DefaultQueueSize.
func NewDispatcher(ctx context.Context, size int, deliver func(ctx context.Context, ev domain.Event), logger *slog.Logger) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		ch:      make(chan domain.Event, size),
		deliver: deliver,
		ctx:     context.WithoutCancel(ctx),
		logger:  logger,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	ready := make(chan struct{})
	go d.run(ready)
	<-ready
	return d
}

func (d *Dispatcher) run(ready chan<- struct{}) {
	defer close(d.done)
	d.runner.Store(goroutineID())
	close(ready)

	for {
		select {
		case ev := <-d.ch:
			d.deliverOne(ev)
			d.drainOverflow()
		case <-d.quit:
			for {
				select {
				case ev := <-d.ch:
					d.deliverOne(ev)
					d.drainOverflow()
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) drainOverflow() {
	for {
		d.overflowMu.Lock()
		if len(d.overflow) == 0 {
			d.overflow = nil
			d.overflowMu.Unlock()
			return
		}
		ev := d.overflow[0]
		d.overflow[0] = domain.Event{}
		d.overflow = d.overflow[1:]
		d.overflowMu.Unlock()
		d.deliverOne(ev)
	}
}

func (d *Dispatcher) deliverOne(ev domain.Event) {
	d.delivering.Store(true)
	defer d.delivering.Store(false)
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event delivery panicked",
				"event", string(ev.Type),
				"panic", r,
			)
		}
	}()
	d.deliver(d.ctx, ev)
}

// inDelivery reports whether the caller is a listener running on the
// delivery goroutine.
func (d *Dispatcher) inDelivery() bool {
	return d.delivering.Load() && goroutineID() == d.runner.Load()
}

// Post enqueues ev, blocking while the queue is full unless called from a
// listener. Events posted after Close are dropped.
func (d *Dispatcher) Post(ev domain.Event) {
	if d.closed.Load() {
		d.logger.Debug("event dropped after close", "event", string(ev.Type))
		return
	}
	if d.inDelivery() {
		d.overflowMu.Lock()
		d.overflow = append(d.overflow, ev)
		d.overflowMu.Unlock()
		return
	}
	select {
	case d.ch <- ev:
	case <-d.quit:
		d.logger.Debug("event dropped after close", "event", string(ev.Type))
	}
}

// Pending returns the number of queued, undelivered events.
func (d *Dispatcher) Pending() int {
	d.overflowMu.Lock()
	defer d.overflowMu.Unlock()
	return len(d.ch) + len(d.overflow)
}

// Close stops intake and waits until every queued event has been delivered.
// Called from a listener it stops intake and returns at once; the queue
// drains after that listener returns. Close is idempotent.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.quit)
	})
	if d.inDelivery() {
		return
	}
	<-d.done
}

// goroutineID parses the current goroutine's id from its stack header,
// "goroutine 42 [running]:".
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
