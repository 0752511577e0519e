package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"blecentral/internal/domain"
	"blecentral/internal/infra/tracer"
)

// Scanner is the part of the central a scan window drives.
type Scanner interface {
	StartScanning(serviceUUIDs []string, allowDuplicates bool)
	StopScanning()
	State() domain.AdapterState
}

// ScanWindow describes one bounded scan.
type ScanWindow struct {
	ServiceUUIDs    []string
	AllowDuplicates bool
	Duration        time.Duration
}

// ScanWindowAction returns an action that scans for w.Duration and then
// stops. Windows never overlap: a run that starts while another is active
// is skipped.
func ScanWindowAction(sc Scanner, w ScanWindow, logger *slog.Logger) func(ctx context.Context) error {
	var running atomic.Bool
	uuids := domain.NormalizeUUIDs(w.ServiceUUIDs)
	return func(ctx context.Context) error {
		if st := sc.State(); st != domain.StatePoweredOn {
			return fmt.Errorf("scan window: adapter is %s: %w", st, domain.ErrDisabled)
		}
		if !running.CompareAndSwap(false, true) {
			logger.Debug("scan window already running, skipping")
			return nil
		}
		defer running.Store(false)

		_, span := tracer.StartSpan(ctx, "scan.window", trace.WithAttributes(
			tracer.BoolAttr("allow_duplicates", w.AllowDuplicates),
			tracer.IntAttr("service_uuids", len(uuids)),
		))
		defer tracer.Finish(span, nil)

		sc.StartScanning(uuids, w.AllowDuplicates)
		defer sc.StopScanning()

		timer := time.NewTimer(w.Duration)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			logger.Debug("scan window cut short", "reason", ctx.Err())
		}
		return nil
	}
}
