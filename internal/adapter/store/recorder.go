package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"blecentral/internal/domain"
)

// Subscriber is the part of the central the recorder listens on.
type Subscriber interface {
	Subscribe(event domain.EventType, l domain.Listener) func()
}

// Recorder writes discover events to a PeripheralStore and brackets them
// in scan sessions opened on scanStart and closed on scanStop.
type Recorder struct {
	store  domain.PeripheralStore
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	filter  []string
	session *domain.ScanSession
	seen    map[string]struct{}
	unsubs  []func()
}

// NewRecorder creates a recorder for st.
func NewRecorder(st domain.PeripheralStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: st, logger: logger, now: time.Now}
}

// SetServiceFilter records the filter the next scan runs with, so the
// session carries it.
func (r *Recorder) SetServiceFilter(uuids []string) {
	r.mu.Lock()
	r.filter = domain.NormalizeUUIDs(uuids)
	r.mu.Unlock()
}

// Attach subscribes to sub. Call Detach to stop recording.
func (r *Recorder) Attach(sub Subscriber) {
	unsubs := []func(){
		sub.Subscribe(domain.EventScanStart, r.onScanStart),
		sub.Subscribe(domain.EventDiscover, r.onDiscover),
		sub.Subscribe(domain.EventScanStop, r.onScanStop),
	}
	r.mu.Lock()
	r.unsubs = append(r.unsubs, unsubs...)
	r.mu.Unlock()
}

// Detach unsubscribes and closes any open session.
func (r *Recorder) Detach(ctx context.Context) {
	r.mu.Lock()
	unsubs := r.unsubs
	r.unsubs = nil
	r.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
	r.endSession(ctx)
}

// Session returns a copy of the open session, or nil.
func (r *Recorder) Session() *domain.ScanSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	cp := *r.session
	cp.Discovered = len(r.seen)
	return &cp
}

func (r *Recorder) onScanStart(ctx context.Context, _ domain.Event) {
	r.endSession(ctx)

	r.mu.Lock()
	filter := r.filter
	r.mu.Unlock()

	sess, err := r.store.StartSession(ctx, filter)
	if err != nil {
		r.logger.Warn("start scan session failed", "error", err)
		return
	}
	r.mu.Lock()
	r.session = sess
	r.seen = make(map[string]struct{})
	r.mu.Unlock()
	r.logger.Debug("scan session started", "session", sess.ID)
}

func (r *Recorder) onDiscover(ctx context.Context, ev domain.Event) {
	p, ok := domain.PeripheralFromDiscover(ev)
	if !ok {
		r.logger.Warn("malformed discover event", "args", len(ev.Args))
		return
	}
	seenAt := ev.Timestamp
	if seenAt.IsZero() {
		seenAt = r.now()
	}
	if err := r.store.UpsertPeripheral(ctx, p, seenAt); err != nil {
		r.logger.Warn("record peripheral failed", "peripheral", p.UUID, "error", err)
		return
	}
	r.mu.Lock()
	if r.seen != nil {
		r.seen[p.UUID] = struct{}{}
	}
	r.mu.Unlock()
}

func (r *Recorder) onScanStop(ctx context.Context, _ domain.Event) {
	r.endSession(ctx)
}

func (r *Recorder) endSession(ctx context.Context) {
	r.mu.Lock()
	sess, n := r.session, len(r.seen)
	r.session, r.seen = nil, nil
	r.mu.Unlock()
	if sess == nil {
		return
	}
	if err := r.store.EndSession(ctx, sess.ID, n); err != nil {
		r.logger.Warn("end scan session failed", "session", sess.ID, "error", err)
		return
	}
	r.logger.Debug("scan session ended", "session", sess.ID, "discovered", n)
}
