package emitter

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"blecentral/internal/domain"
)

var _ domain.EventSink = (*Dispatcher)(nil)

func TestDispatcherFIFO(t *testing.T) {
	var mu sync.Mutex
	var got []int
	d := NewDispatcher(context.Background(), 4, func(_ context.Context, ev domain.Event) {
		mu.Lock()
		got = append(got, ev.Args[0].(int))
		mu.Unlock()
	}, slog.Default())

	for i := 0; i < 100; i++ {
		d.Post(domain.NewEvent(domain.EventRSSIUpdate, i))
	}
	d.Close()

	if len(got) != 100 {
		t.Fatalf("expected 100 events, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("event %d delivered out of order: %d", i, v)
		}
	}
}

func TestDispatcherSerialisesConcurrentPosters(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	var delivered atomic.Int32
	d := NewDispatcher(context.Background(), 8, func(_ context.Context, _ domain.Event) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		delivered.Add(1)
		inFlight.Add(-1)
	}, nil)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				d.Post(domain.NewEvent(domain.EventDiscover))
			}
		}()
	}
	wg.Wait()
	d.Close()

	assert.Equal(t, int32(200), delivered.Load())
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestDispatcherCloseIdempotentAndDropsLatePosts(t *testing.T) {
	var delivered atomic.Int32
	d := NewDispatcher(context.Background(), 0, func(_ context.Context, _ domain.Event) {
		delivered.Add(1)
	}, nil)

	d.Post(domain.NewEvent(domain.EventScanStart))
	d.Close()
	d.Close()
	d.Post(domain.NewEvent(domain.EventScanStop))

	assert.Equal(t, int32(1), delivered.Load())
	assert.Equal(t, 0, d.Pending())
}

func TestDispatcherRecoversDeliveryPanic(t *testing.T) {
	var delivered atomic.Int32
	d := NewDispatcher(context.Background(), 2, func(_ context.Context, ev domain.Event) {
		if ev.Type == domain.EventError {
			panic("bad listener")
		}
		delivered.Add(1)
	}, nil)

	d.Post(domain.NewEvent(domain.EventError))
	d.Post(domain.NewEvent(domain.EventScanStart))
	d.Close()

	assert.Equal(t, int32(1), delivered.Load())
}

func TestDispatcherIntoEmitter(t *testing.T) {
	em := newTestEmitter()
	d := NewDispatcher(context.Background(), 16, func(ctx context.Context, ev domain.Event) {
		em.EmitEvent(ctx, ev)
	}, nil)

	var order []string
	em.On(domain.EventConnect, func(_ context.Context, ev domain.Event) { order = append(order, ev.StringArg(0)) })

	d.Post(domain.NewEvent(domain.EventConnect, "a", nil))
	d.Post(domain.NewEvent(domain.EventConnect, "b", nil))
	d.Close()

	assert.Equal(t, []string{"a", "b"}, order)
}

func TestDispatcherPostFromListenerDoesNotBlock(t *testing.T) {
	var mu sync.Mutex
	var got []int
	var d *Dispatcher
	d = NewDispatcher(context.Background(), 1, func(_ context.Context, ev domain.Event) {
		n := ev.Args[0].(int)
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
		if n == 0 {
			for i := 1; i <= 5; i++ {
				d.Post(domain.NewEvent(domain.EventDiscover, i))
			}
		}
	}, nil)

	d.Post(domain.NewEvent(domain.EventStateChange, 0))

	closed := make(chan struct{})
	go func() {
		d.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("dispatcher stuck, pending=%d", d.Pending())
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, got)
}

func TestDispatcherListenerPostsBeforeQueuedEvents(t *testing.T) {
	release := make(chan struct{})
	var order []string
	var d *Dispatcher
	d = NewDispatcher(context.Background(), 4, func(_ context.Context, ev domain.Event) {
		order = append(order, ev.StringArg(0))
		if ev.StringArg(0) == "first" {
			<-release
			d.Post(domain.NewEvent(domain.EventScanStart, "nested"))
		}
	}, nil)

	d.Post(domain.NewEvent(domain.EventScanStart, "first"))
	d.Post(domain.NewEvent(domain.EventScanStart, "second"))
	close(release)
	d.Close()

	assert.Equal(t, []string{"first", "nested", "second"}, order)
}

func TestDispatcherCloseFromListener(t *testing.T) {
	var delivered atomic.Int32
	var d *Dispatcher
	d = NewDispatcher(context.Background(), 1, func(_ context.Context, ev domain.Event) {
		delivered.Add(1)
		if ev.Type == domain.EventScanStart {
			d.Close()
			d.Post(domain.NewEvent(domain.EventScanStop))
		}
	}, nil)

	d.Post(domain.NewEvent(domain.EventScanStart))

	closed := make(chan struct{})
	go func() {
		d.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close from a listener deadlocked")
	}
	assert.Equal(t, int32(1), delivered.Load(), "posts after close are dropped")
}

func TestGoroutineIDDistinct(t *testing.T) {
	here := goroutineID()
	assert.NotZero(t, here)
	other := make(chan uint64)
	go func() { other <- goroutineID() }()
	assert.NotEqual(t, here, <-other)
}
