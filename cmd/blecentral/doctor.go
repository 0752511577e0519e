package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"slices"
	"strings"
	"time"

	"blecentral/internal/adapter/driver"
	"blecentral/internal/adapter/gateway"
	"blecentral/internal/adapter/store"
	"blecentral/internal/domain"
	"blecentral/internal/infra/config"
	"blecentral/internal/infra/logger"
	usecase "blecentral/internal/usecase/central"
	"blecentral/internal/usecase/scheduling"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

// runDoctor executes all health checks and reports results.
func runDoctor(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	// Some checks work without a valid config.
	cfg, cfgErr := loadConfig(flags)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(flags.ConfigPath, cfgErr)},
		{Name: "Driver backend", Fn: checkBackend},
		{Name: "Adapter", Fn: checkAdapter},
		{Name: "Scan schedule", Fn: checkSchedule},
		{Name: "Peripheral store", Fn: checkStore},
		{Name: "Gateway", Fn: checkGateway},
		{Name: "mDNS", Fn: checkMDNS},
	}

	fmt.Println("blecentral doctor")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println()

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Printf("  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Printf("      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("-", 50))
	fmt.Printf("Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	if warn == 0 {
		fmt.Println("\nAll checks passed.")
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

func needConfig() CheckResult {
	return CheckResult{Status: StatusFail, Message: "skipped, config did not load"}
}

// checkConfigFile reports a missing file as a warning since defaults apply.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     fmt.Sprintf("Fix %s (YAML syntax, permissions or invalid values)", cfgPath),
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config file at %s, using defaults", cfgPath),
				Fix:     "Create blecentral.yaml or pass --config",
			}
		}
		return CheckResult{Status: StatusPass, Message: fmt.Sprintf("config loaded from %s", cfgPath)}
	}
}

func checkBackend(cfg *config.Config) CheckResult {
	if cfg == nil {
		return needConfig()
	}
	name := driver.Resolve(cfg.Driver.Backend)
	if !slices.Contains(driver.Backends(), name) {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("backend %q is not registered (have %s)", name, strings.Join(driver.Backends(), ", ")),
			Fix:     "Set driver.backend to one of the registered backends",
		}
	}
	if name == driver.NameMock {
		return CheckResult{Status: StatusWarn, Message: "using the mock backend, no radio is used"}
	}
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("backend %s registered", name)}
}

// checkAdapter loads the driver, initialises it and waits for the first
// state report.
func checkAdapter(cfg *config.Config) CheckResult {
	if cfg == nil {
		return needConfig()
	}
	ctx, cancel := context.WithTimeout(context.Background(), stateTimeout)
	defer cancel()

	states := make(chan domain.AdapterState, 1)
	dcfg := driver.Config{Logger: logger.Discard(), MockState: domain.AdapterState(cfg.Driver.MockState)}
	c, err := usecase.New(ctx, cfg.Driver.Backend, dcfg,
		usecase.WithLogger(logger.Discard()),
		usecase.WithListener(domain.EventStateChange, func(_ context.Context, ev domain.Event) {
			select {
			case states <- domain.AdapterState(ev.StringArg(0)):
			default:
			}
		}))
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     "Check that Bluetooth is available on this host, or use --backend mock",
		}
	}
	defer c.Close()

	st, _ := firstState(states, stateTimeout)
	return adapterResult(st)
}

func adapterResult(st domain.AdapterState) CheckResult {
	switch st {
	case domain.StatePoweredOn:
		return CheckResult{Status: StatusPass, Message: "adapter is poweredOn"}
	case domain.StatePoweredOff:
		return CheckResult{Status: StatusWarn, Message: "adapter is poweredOff", Fix: "Turn Bluetooth on"}
	case domain.StateUnauthorized:
		return CheckResult{Status: StatusFail, Message: "not authorised to use Bluetooth", Fix: "Grant Bluetooth permission to this program"}
	case domain.StateUnknown:
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("no state reported within %s", stateTimeout)}
	default:
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("adapter is %s", st)}
	}
}

func checkSchedule(cfg *config.Config) CheckResult {
	if cfg == nil {
		return needConfig()
	}
	if cfg.Scan.Schedule == "" {
		return CheckResult{Status: StatusPass, Message: "no scan schedule"}
	}
	sched, err := scheduling.ParseSchedule(cfg.Scan.Schedule)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: err.Error(), Fix: `Use a cron expression ("*/5 * * * *") or a duration ("30m")`}
	}
	next := sched.Next(time.Now())
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("next %s window at %s", cfg.Scan.Window, next.Format(time.RFC3339))}
}

func checkStore(cfg *config.Config) CheckResult {
	if cfg == nil {
		return needConfig()
	}
	if !cfg.Store.Enabled {
		return CheckResult{Status: StatusPass, Message: "disabled"}
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: err.Error(), Fix: "Choose a writable store.path"}
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	recs, err := st.ListPeripherals(ctx)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: err.Error()}
	}
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%s (%d peripherals cached)", cfg.Store.Path, len(recs))}
}

func checkGateway(cfg *config.Config) CheckResult {
	if cfg == nil {
		return needConfig()
	}
	if !cfg.Gateway.Enabled {
		return CheckResult{Status: StatusPass, Message: "disabled"}
	}
	if len(cfg.Gateway.Tokens) == 0 {
		return CheckResult{Status: StatusFail, Message: "no tokens configured", Fix: "Add gateway.tokens or set BLECENTRAL_GATEWAY_TOKEN"}
	}
	ln, err := net.Listen("tcp", cfg.Gateway.Addr)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("cannot listen on %s: %v", cfg.Gateway.Addr, err), Fix: "Pick a free gateway.addr"}
	}
	_ = ln.Close()
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%s is free, %d token(s)", cfg.Gateway.Addr, len(cfg.Gateway.Tokens))}
}

func checkMDNS(cfg *config.Config) CheckResult {
	if cfg == nil {
		return needConfig()
	}
	if !cfg.Gateway.MDNS {
		return CheckResult{Status: StatusPass, Message: "disabled"}
	}
	found, err := gateway.NewMDNS(logger.Discard()).Browse(context.Background(), time.Second)
	if err != nil {
		return CheckResult{Status: StatusWarn, Message: err.Error(), Fix: "Check multicast is allowed on this network"}
	}
	if len(found) == 0 {
		return CheckResult{Status: StatusPass, Message: "no other gateways on the network"}
	}
	names := make([]string, 0, len(found))
	for _, e := range found {
		names = append(names, e.Instance+"@"+e.Addr)
	}
	return CheckResult{Status: StatusWarn, Message: "other gateways found: " + strings.Join(names, ", ")}
}
