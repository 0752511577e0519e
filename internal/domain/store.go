package domain

import (
	"context"
	"time"
)

// PeripheralRecord is a cached peripheral with sighting statistics.
type PeripheralRecord struct {
	Peripheral
	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`
	SeenCount int       `json:"seenCount"`
}

// ScanSession records one scan window.
type ScanSession struct {
	ID           string    `json:"id"`
	ServiceUUIDs []string  `json:"serviceUuids,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt,omitzero"`
	Discovered   int       `json:"discovered"`
}

// Open reports whether the session has not been ended.
func (s *ScanSession) Open() bool { return s.EndedAt.IsZero() }

// PeripheralStore persists discovered peripherals and scan sessions.
type PeripheralStore interface {
	UpsertPeripheral(ctx context.Context, p Peripheral, seenAt time.Time) error
	GetPeripheral(ctx context.Context, uuid string) (*PeripheralRecord, error)
	// ListPeripherals returns records most recently seen first.
	ListPeripherals(ctx context.Context) ([]*PeripheralRecord, error)
	StartSession(ctx context.Context, serviceUUIDs []string) (*ScanSession, error)
	EndSession(ctx context.Context, id string, discovered int) error
	// ListSessions returns up to limit sessions, newest first. limit <= 0 means all.
	ListSessions(ctx context.Context, limit int) ([]*ScanSession, error)
	Close() error
}
