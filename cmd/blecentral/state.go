package main

import (
	"context"
	"fmt"
	"time"

	"blecentral/internal/adapter/tui/theme"
	"blecentral/pkg/central"
)

func runState(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	rt, err := newRuntime(flags)
	if err != nil {
		return err
	}
	defer rt.close()

	states := make(chan central.AdapterState, 1)
	c, err := rt.defaultCentral(central.WithListener(central.EventStateChange, func(_ context.Context, ev central.Event) {
		select {
		case states <- central.AdapterState(ev.StringArg(0)):
		default:
		}
	}))
	if err != nil {
		return err
	}

	st, err := firstState(states, stateTimeout)
	if err != nil {
		return fmt.Errorf("%w (backend %s)", err, rt.cfg.Driver.Backend)
	}
	fmt.Printf("%s %s\n", theme.StateStyle(string(st)).Render(string(st)), theme.TextMuted.Render(fmt.Sprintf("(initialised: %t)", c.Initialized())))
	return nil
}

// firstState returns the first state reported on states within timeout.
func firstState(states <-chan central.AdapterState, timeout time.Duration) (central.AdapterState, error) {
	select {
	case st := <-states:
		return st, nil
	case <-time.After(timeout):
		return central.StateUnknown, fmt.Errorf("no stateChange within %s: %w", timeout, central.ErrTimeout)
	}
}
