package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blecentral/internal/adapter/gateway"
	"blecentral/internal/adapter/store"
	"blecentral/internal/infra/config"
	"blecentral/internal/infra/logger"
	"blecentral/internal/usecase/scheduling"
	"blecentral/pkg/central"
)

const scanTaskName = "scan-window"

func runServe(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	rt, err := newRuntime(flags)
	if err != nil {
		return err
	}
	defer rt.close()

	if len(rt.cfg.Gateway.Tokens) == 0 {
		return errors.New("gateway: no tokens configured (set gateway.tokens or BLECENTRAL_GATEWAY_TOKEN)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := rt.defaultCentral()
	if err != nil {
		return err
	}

	deps := gateway.HandlerDeps{Central: c}
	if rt.cfg.Store.Enabled {
		st, err := rt.openStore()
		if err != nil {
			return err
		}
		rec := store.NewRecorder(st, logger.Component(rt.log, "recorder"))
		rec.SetServiceFilter(rt.cfg.Scan.ServiceUUIDs)
		rec.Attach(c)
		defer rec.Detach(context.Background())
		deps.Store = st
	}

	if rt.cfg.Scan.Schedule != "" {
		sched, err := startScanSchedule(ctx, c, rt)
		if err != nil {
			return err
		}
		defer func() {
			if err := sched.Stop(); err != nil {
				rt.log.Warn("scheduler stop", "error", err)
			}
		}()
		deps.NextRun = func() (time.Time, bool) { return sched.NextRun(scanTaskName) }
	}

	srv := gateway.NewServer(c, gateway.NewStaticTokenAuth(gatewayTokens(rt.cfg.Gateway.Tokens)), gateway.Config{
		Addr:           rt.cfg.Gateway.Addr,
		RequestsPerMin: rt.cfg.Gateway.RequestsPerMin,
		Burst:          rt.cfg.Gateway.Burst,
	}, logger.Component(rt.log, "gateway"))
	gateway.RegisterRPCHandlers(srv, deps)
	gateway.RegisterRESTHandlers(srv, deps)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	if rt.cfg.Gateway.MDNS {
		addr, err := waitBound(ctx, srv, errCh)
		if err != nil {
			return err
		}
		go advertise(ctx, rt, addr)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	rt.log.Info("shutting down")
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(stopCtx)
}

func gatewayTokens(tcs []config.TokenConfig) []gateway.Token {
	out := make([]gateway.Token, 0, len(tcs))
	for _, tc := range tcs {
		out = append(out, gateway.Token{Token: tc.Token, Name: tc.Name})
	}
	return out
}

// startScanSchedule runs a bounded scan window on the configured schedule.
func startScanSchedule(ctx context.Context, c *central.Central, rt *runtime) (*scheduling.Scheduler, error) {
	log := logger.Component(rt.log, "scheduler")
	sched := scheduling.NewScheduler(log)
	sched.RegisterAction(scheduling.ActionScanWindow, scheduling.ScanWindowAction(c, scheduling.ScanWindow{
		ServiceUUIDs:    rt.cfg.Scan.ServiceUUIDs,
		AllowDuplicates: rt.cfg.Scan.AllowDuplicates,
		Duration:        rt.cfg.Scan.Window,
	}, log))
	if err := sched.AddTask(scheduling.ScheduledTask{
		Name:     scanTaskName,
		Schedule: rt.cfg.Scan.Schedule,
		Action:   scheduling.ActionScanWindow,
		Timeout:  rt.cfg.Scan.Window + stateTimeout,
	}); err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	if err := sched.Start(ctx); err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	return sched, nil
}

// waitBound waits until the gateway is listening.
func waitBound(ctx context.Context, srv *gateway.Server, errCh <-chan error) (string, error) {
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		if addr := srv.BoundAddr(); addr != "" {
			return addr, nil
		}
		select {
		case err := <-errCh:
			if err == nil {
				err = errors.New("gateway stopped before listening")
			}
			return "", err
		case <-ctx.Done():
			return "", ctx.Err()
		case <-tick.C:
		}
	}
}

func advertise(ctx context.Context, rt *runtime, addr string) {
	port, err := gateway.PortOf(addr)
	if err != nil {
		rt.log.Warn("mdns disabled", "error", err)
		return
	}
	host, _ := os.Hostname()
	if host == "" {
		host = "blecentral"
	}
	meta := map[string]string{"backend": rt.cfg.Driver.Backend, "path": "/ws"}
	if err := gateway.NewMDNS(logger.Component(rt.log, "mdns")).Advertise(ctx, host, port, meta); err != nil {
		rt.log.Warn("mdns advertise failed", "error", err)
	}
}
