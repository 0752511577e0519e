// Package monitor is a Bubble Tea view of a live central: adapter state,
// discovered peripherals and the raw event stream.
package monitor

import "blecentral/internal/domain"

// EventMsg wraps a driver event delivered through the central's emitter.
type EventMsg struct {
	Event domain.Event
}

// scanRequestedMsg reports that a scan start or stop was handed to the driver.
type scanRequestedMsg struct {
	start bool
}
