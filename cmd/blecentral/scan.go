package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"blecentral/internal/adapter/store"
	"blecentral/internal/adapter/tui/theme"
	"blecentral/internal/infra/logger"
	"blecentral/pkg/central"
)

func runScan(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	rt, err := newRuntime(flags)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	found := make(chan central.Peripheral, 64)
	c, err := rt.defaultCentral(central.WithListener(central.EventDiscover, func(_ context.Context, ev central.Event) {
		p, ok := central.PeripheralFromDiscover(ev)
		if !ok {
			return
		}
		select {
		case found <- p:
		default:
			rt.log.Debug("scan output behind, dropping discovery", "uuid", p.UUID)
		}
	}))
	if err != nil {
		return err
	}
	if err := waitPoweredOn(ctx, c); err != nil {
		return err
	}

	uuids := rt.cfg.Scan.ServiceUUIDs
	dups := flags.Duplicates || rt.cfg.Scan.AllowDuplicates
	if flags.Record || rt.cfg.Store.Enabled {
		st, err := rt.openStore()
		if err != nil {
			return err
		}
		rec := store.NewRecorder(st, logger.Component(rt.log, "recorder"))
		rec.SetServiceFilter(uuids)
		rec.Attach(c)
		defer rec.Detach(context.Background())
	}

	c.StartScanning(uuids, dups)
	n := printDiscoveries(ctx, os.Stdout, found, flags.Duration)
	c.StopScanning()

	fmt.Printf("\n%d peripheral(s) found\n", n)
	return nil
}

// printDiscoveries writes one line per discovery until d elapses or ctx is
// done, and returns the number of distinct peripherals seen.
func printDiscoveries(ctx context.Context, w io.Writer, found <-chan central.Peripheral, d time.Duration) int {
	timer := time.NewTimer(d)
	defer timer.Stop()

	seen := make(map[string]struct{})
	for {
		select {
		case p := <-found:
			seen[p.UUID] = struct{}{}
			fmt.Fprintln(w, formatPeripheral(p))
		case <-timer.C:
			return len(seen)
		case <-ctx.Done():
			return len(seen)
		}
	}
}

func formatPeripheral(p central.Peripheral) string {
	name := p.Advertisement.LocalName
	if name == "" {
		name = theme.TextMuted.Render("(unnamed)")
	} else {
		name = theme.Bold.Render(name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %s  %s %4d dBm",
		theme.TextInfo.Render(theme.SymbolInfo),
		p.UUID,
		name,
		theme.RSSIBar(p.RSSI),
		p.RSSI,
	)
	if p.Address != "" {
		fmt.Fprintf(&b, "  %s", theme.TextMuted.Render(p.Address+" ("+string(p.AddressType)+")"))
	}
	if !p.Connectable {
		fmt.Fprintf(&b, "  %s", theme.Dim.Render("non-connectable"))
	}
	if len(p.Advertisement.ServiceUUIDs) > 0 {
		fmt.Fprintf(&b, "  %s %s", theme.SymbolArrowR, strings.Join(p.Advertisement.ServiceUUIDs, ","))
	}
	return b.String()
}
