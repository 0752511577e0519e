// Package store caches discovered peripherals and scan sessions in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"blecentral/internal/domain"
)

var _ domain.PeripheralStore = (*SQLiteStore)(nil)

// SQLiteStore implements domain.PeripheralStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) a SQLite database at dbPath and runs the schema
// migration. The parent directory is created if needed.
func Open(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create store dir: %w: %w", domain.ErrStore, err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open peripheral db: %w: %w", domain.ErrStore, err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w: %w", domain.ErrStore, err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate peripheral db: %w: %w", domain.ErrStore, err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS peripherals (
			uuid          TEXT PRIMARY KEY,
			address       TEXT NOT NULL,
			address_type  TEXT NOT NULL DEFAULT 'unknown',
			connectable   INTEGER NOT NULL DEFAULT 0,
			local_name    TEXT NOT NULL DEFAULT '',
			rssi          INTEGER NOT NULL DEFAULT 0,
			advertisement TEXT NOT NULL DEFAULT '{}',
			first_seen    TEXT NOT NULL,
			last_seen     TEXT NOT NULL,
			seen_count    INTEGER NOT NULL DEFAULT 1
		);
		CREATE TABLE IF NOT EXISTS scan_sessions (
			id            TEXT PRIMARY KEY,
			service_uuids TEXT NOT NULL DEFAULT '[]',
			started_at    TEXT NOT NULL,
			ended_at      TEXT NOT NULL DEFAULT '',
			discovered    INTEGER NOT NULL DEFAULT 0
		);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// timeLayout is fixed width so that timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// UpsertPeripheral inserts p or refreshes its last sighting.
func (s *SQLiteStore) UpsertPeripheral(ctx context.Context, p domain.Peripheral, seenAt time.Time) error {
	if p.UUID == "" {
		return fmt.Errorf("upsert peripheral: empty uuid: %w", domain.ErrInvalidInput)
	}
	advJSON, err := json.Marshal(p.Advertisement)
	if err != nil {
		return fmt.Errorf("marshal advertisement: %w", err)
	}
	ts := formatTime(seenAt)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO peripherals (uuid, address, address_type, connectable, local_name, rssi, advertisement, first_seen, last_seen, seen_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(uuid) DO UPDATE SET
			address       = excluded.address,
			address_type  = excluded.address_type,
			connectable   = excluded.connectable,
			local_name    = CASE WHEN excluded.local_name != '' THEN excluded.local_name ELSE peripherals.local_name END,
			rssi          = excluded.rssi,
			advertisement = excluded.advertisement,
			last_seen     = excluded.last_seen,
			seen_count    = peripherals.seen_count + 1`,
		p.UUID, p.Address, string(p.AddressType), p.Connectable, p.Advertisement.LocalName, p.RSSI,
		string(advJSON), ts, ts,
	)
	if err != nil {
		return fmt.Errorf("upsert peripheral %s: %w: %w", p.UUID, domain.ErrStore, err)
	}
	return nil
}

const peripheralColumns = "uuid, address, address_type, connectable, local_name, rssi, advertisement, first_seen, last_seen, seen_count"

// GetPeripheral returns the cached record for uuid.
func (s *SQLiteStore) GetPeripheral(ctx context.Context, uuid string) (*domain.PeripheralRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+peripheralColumns+" FROM peripherals WHERE uuid = ?", uuid)
	rec, err := scanPeripheral(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("peripheral %s: %w", uuid, domain.ErrNotFound)
	}
	return rec, err
}

// ListPeripherals returns every cached peripheral, most recently seen first.
func (s *SQLiteStore) ListPeripherals(ctx context.Context) ([]*domain.PeripheralRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+peripheralColumns+" FROM peripherals ORDER BY last_seen DESC, uuid")
	if err != nil {
		return nil, fmt.Errorf("list peripherals: %w: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	var out []*domain.PeripheralRecord
	for rows.Next() {
		rec, err := scanPeripheral(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPeripheral(row scanner) (*domain.PeripheralRecord, error) {
	var rec domain.PeripheralRecord
	var addrType, localName, advStr, firstStr, lastStr string
	if err := row.Scan(&rec.UUID, &rec.Address, &addrType, &rec.Connectable, &localName, &rec.RSSI,
		&advStr, &firstStr, &lastStr, &rec.SeenCount); err != nil {
		return nil, err
	}
	rec.AddressType = domain.AddressType(addrType)
	if err := json.Unmarshal([]byte(advStr), &rec.Advertisement); err != nil {
		return nil, fmt.Errorf("unmarshal advertisement: %w", err)
	}
	if rec.Advertisement.LocalName == "" {
		rec.Advertisement.LocalName = localName
	}
	rec.FirstSeen = parseTime(firstStr)
	rec.LastSeen = parseTime(lastStr)
	return &rec, nil
}

func newSessionID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// StartSession opens a scan session with a ULID identifier.
func (s *SQLiteStore) StartSession(ctx context.Context, serviceUUIDs []string) (*domain.ScanSession, error) {
	now := s.now().UTC()
	sess := &domain.ScanSession{
		ID:           newSessionID(now),
		ServiceUUIDs: serviceUUIDs,
		StartedAt:    now,
	}
	uuids, err := json.Marshal(nonNil(serviceUUIDs))
	if err != nil {
		return nil, fmt.Errorf("marshal service uuids: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO scan_sessions (id, service_uuids, started_at) VALUES (?, ?, ?)",
		sess.ID, string(uuids), formatTime(now),
	); err != nil {
		return nil, fmt.Errorf("start scan session: %w: %w", domain.ErrStore, err)
	}
	return sess, nil
}

// EndSession closes session id with its discovery count.
func (s *SQLiteStore) EndSession(ctx context.Context, id string, discovered int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE scan_sessions SET ended_at = ?, discovered = ? WHERE id = ?",
		formatTime(s.now()), discovered, id,
	)
	if err != nil {
		return fmt.Errorf("end scan session: %w: %w", domain.ErrStore, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("scan session %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListSessions returns up to limit sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]*domain.ScanSession, error) {
	q := "SELECT id, service_uuids, started_at, ended_at, discovered FROM scan_sessions ORDER BY started_at DESC, id DESC"
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list scan sessions: %w: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	var out []*domain.ScanSession
	for rows.Next() {
		var sess domain.ScanSession
		var uuids, started, ended string
		if err := rows.Scan(&sess.ID, &uuids, &started, &ended, &sess.Discovered); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(uuids), &sess.ServiceUUIDs); err != nil {
			return nil, fmt.Errorf("unmarshal service uuids: %w", err)
		}
		if len(sess.ServiceUUIDs) == 0 {
			sess.ServiceUUIDs = nil
		}
		sess.StartedAt = parseTime(started)
		if ended != "" {
			sess.EndedAt = parseTime(ended)
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
