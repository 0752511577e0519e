package scheduling

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"blecentral/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(newTestLogger())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	if err := NewScheduler(newTestLogger()).Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestSchedulerActionFires(t *testing.T) {
	var count atomic.Int32

	s := NewScheduler(newTestLogger())
	s.RegisterAction(ActionScanWindow, func(ctx context.Context) error {
		count.Add(1)
		return nil
	})
	if err := s.AddTask(ScheduledTask{Name: "scan", Schedule: "50ms", Action: ActionScanWindow}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	s.Start(context.Background())
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if c := count.Load(); c < 1 {
		t.Errorf("action fired %d times, expected at least 1", c)
	}
}

func TestSchedulerUnknownAction(t *testing.T) {
	s := NewScheduler(newTestLogger())
	if err := s.AddTask(ScheduledTask{Name: "x", Schedule: "100ms", Action: "does_not_exist"}); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestSchedulerDuplicateTask(t *testing.T) {
	s := NewScheduler(newTestLogger())
	s.RegisterAction(ActionScanWindow, func(context.Context) error { return nil })
	task := ScheduledTask{Name: "scan", Schedule: "1h", Action: ActionScanWindow}
	if err := s.AddTask(task); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTask(task); err == nil {
		t.Error("expected error for duplicate task name")
	}
}

func TestSchedulerInvalidSchedule(t *testing.T) {
	s := NewScheduler(newTestLogger())
	s.RegisterAction(ActionScanWindow, func(context.Context) error { return nil })
	if err := s.AddTask(ScheduledTask{Name: "bad", Schedule: "every tuesday", Action: ActionScanWindow}); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestSchedulerOneShot(t *testing.T) {
	var count atomic.Int32
	s := NewScheduler(newTestLogger())
	s.RegisterAction(ActionScanWindow, func(context.Context) error {
		count.Add(1)
		return nil
	})
	if err := s.AddTask(ScheduledTask{Name: "once", Schedule: "30ms", Action: ActionScanWindow, OneShot: true}); err != nil {
		t.Fatal(err)
	}
	s.Start(context.Background())
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if c := count.Load(); c != 1 {
		t.Errorf("one-shot fired %d times, want 1", c)
	}
	if _, ok := s.NextRun("once"); ok {
		t.Error("one-shot task should be gone after running")
	}
}

func TestSchedulerTaskTimeout(t *testing.T) {
	deadlines := make(chan time.Duration, 1)
	s := NewScheduler(newTestLogger())
	s.RegisterAction(ActionScanWindow, func(ctx context.Context) error {
		if dl, ok := ctx.Deadline(); ok {
			select {
			case deadlines <- time.Until(dl):
			default:
			}
		}
		return nil
	})
	s.AddTask(ScheduledTask{Name: "t", Schedule: "20ms", Action: ActionScanWindow, Timeout: time.Second})
	s.Start(context.Background())
	defer s.Stop()

	select {
	case d := <-deadlines:
		if d > time.Second {
			t.Errorf("deadline %v exceeds task timeout", d)
		}
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
}

func TestSchedulerNextRunAndRemove(t *testing.T) {
	s := NewScheduler(newTestLogger())
	s.RegisterAction(ActionScanWindow, func(context.Context) error { return nil })
	s.AddTask(ScheduledTask{Name: "hourly", Schedule: "@hourly", Action: ActionScanWindow})
	s.Start(context.Background())
	defer s.Stop()

	next, ok := s.NextRun("hourly")
	if !ok {
		t.Fatal("NextRun should report the task")
	}
	if !next.After(time.Now()) {
		t.Errorf("next run %v is not in the future", next)
	}

	if err := s.RemoveTask("hourly"); err != nil {
		t.Fatalf("RemoveTask: %v", err)
	}
	if _, ok := s.NextRun("hourly"); ok {
		t.Error("removed task still scheduled")
	}
	if err := s.RemoveTask("hourly"); err == nil {
		t.Error("expected error removing unknown task")
	}
}

func TestParseSchedule(t *testing.T) {
	valid := []string{"*/5 * * * *", "@hourly", "30m", "10ms"}
	for _, s := range valid {
		if _, err := ParseSchedule(s); err != nil {
			t.Errorf("ParseSchedule(%q): %v", s, err)
		}
	}
	invalid := []string{"", "not a schedule", "-5m", "0s"}
	for _, s := range invalid {
		if _, err := ParseSchedule(s); err == nil {
			t.Errorf("ParseSchedule(%q) should fail", s)
		}
	}

	sched, _ := ParseSchedule("250ms")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := sched.Next(base); !got.Equal(base.Add(250 * time.Millisecond)) {
		t.Errorf("Next = %v", got)
	}
}

type fakeScanner struct {
	mu     sync.Mutex
	state  domain.AdapterState
	starts int
	stops  int
	uuids  []string
	dups   bool
}

func (f *fakeScanner) StartScanning(uuids []string, dups bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.uuids, f.dups = uuids, dups
}

func (f *fakeScanner) StopScanning() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeScanner) State() domain.AdapterState { return f.state }

func (f *fakeScanner) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

func TestScanWindowRunsForDuration(t *testing.T) {
	sc := &fakeScanner{state: domain.StatePoweredOn}
	action := ScanWindowAction(sc, ScanWindow{
		ServiceUUIDs:    []string{"180D"},
		AllowDuplicates: true,
		Duration:        50 * time.Millisecond,
	}, newTestLogger())

	start := time.Now()
	if err := action(context.Background()); err != nil {
		t.Fatalf("action: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("window ended after %v", elapsed)
	}
	starts, stops := sc.counts()
	if starts != 1 || stops != 1 {
		t.Errorf("starts=%d stops=%d, want 1/1", starts, stops)
	}
	if len(sc.uuids) != 1 || sc.uuids[0] != "180d" || !sc.dups {
		t.Errorf("scan args = %v %v", sc.uuids, sc.dups)
	}
}

func TestScanWindowSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	sc := &fakeScanner{state: domain.StatePoweredOn}
	action := ScanWindowAction(sc, ScanWindow{
		ServiceUUIDs:    []string{"180d", "180f"},
		AllowDuplicates: true,
		Duration:        time.Millisecond,
	}, newTestLogger())
	if err := action(context.Background()); err != nil {
		t.Fatalf("action: %v", err)
	}

	spans := rec.Ended()
	if len(spans) != 1 || spans[0].Name() != "scan.window" {
		t.Fatalf("spans = %v", spans)
	}
	var dups bool
	var services int64
	for _, kv := range spans[0].Attributes() {
		switch kv.Key {
		case "allow_duplicates":
			dups = kv.Value.AsBool()
		case "service_uuids":
			services = kv.Value.AsInt64()
		}
	}
	if !dups || services != 2 {
		t.Errorf("attributes: allow_duplicates=%v service_uuids=%d", dups, services)
	}
}

func TestScanWindowRequiresPower(t *testing.T) {
	sc := &fakeScanner{state: domain.StatePoweredOff}
	err := ScanWindowAction(sc, ScanWindow{Duration: time.Second}, newTestLogger())(context.Background())
	if !errors.Is(err, domain.ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
	if starts, _ := sc.counts(); starts != 0 {
		t.Error("scan should not start while powered off")
	}
}

func TestScanWindowCancelledStopsScan(t *testing.T) {
	sc := &fakeScanner{state: domain.StatePoweredOn}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := ScanWindowAction(sc, ScanWindow{Duration: time.Hour}, newTestLogger())(ctx); err != nil {
		t.Fatalf("action: %v", err)
	}
	if _, stops := sc.counts(); stops != 1 {
		t.Errorf("stops = %d, want 1", stops)
	}
}

func TestScanWindowSkipsOverlap(t *testing.T) {
	sc := &fakeScanner{state: domain.StatePoweredOn}
	action := ScanWindowAction(sc, ScanWindow{Duration: 100 * time.Millisecond}, newTestLogger())

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			action(context.Background())
		}()
	}
	wg.Wait()
	if starts, _ := sc.counts(); starts != 1 {
		t.Errorf("starts = %d, want 1", starts)
	}
}
