package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blecentral/internal/adapter/driver"
	"blecentral/internal/domain"
	"blecentral/internal/infra/logger"
	"blecentral/internal/usecase/emitter"
)

func TestRecorderWithEmitter(t *testing.T) {
	st := newTestStore(t)
	em := emitter.New(logger.Discard())
	rec := NewRecorder(st, logger.Discard())
	rec.SetServiceFilter([]string{"0000180D-0000-1000-8000-00805F9B34FB"})
	rec.Attach(em)
	ctx := context.Background()

	em.Emit(ctx, domain.EventScanStart)
	require.NotNil(t, rec.Session())

	p := heartRate(-55)
	em.Emit(ctx, domain.EventDiscover, p.UUID, p.Address, p.AddressType, p.Connectable, p.Advertisement, p.RSSI)
	em.Emit(ctx, domain.EventDiscover, p.UUID, p.Address, p.AddressType, p.Connectable, p.Advertisement, p.RSSI)
	em.Emit(ctx, domain.EventDiscover, "broken")
	assert.Equal(t, 1, rec.Session().Discovered)

	em.Emit(ctx, domain.EventScanStop)
	assert.Nil(t, rec.Session())

	got, err := st.GetPeripheral(ctx, p.UUID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.SeenCount)

	sessions, err := st.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 1, sessions[0].Discovered)
	assert.Equal(t, []string{"0000180d00001000800000805f9b34fb"}, sessions[0].ServiceUUIDs)
}

func TestRecorderWithMockDriver(t *testing.T) {
	st := newTestStore(t)
	em := emitter.New(logger.Discard())
	rec := NewRecorder(st, logger.Discard())
	rec.Attach(em)

	m := driver.NewMock(driver.WithMockLogger(logger.Discard()), driver.WithMockPeripherals(driver.DemoPeripherals()...))
	m.Bind(domain.EventSinkFunc(func(ev domain.Event) { em.EmitEvent(context.Background(), ev) }))
	m.Init(context.Background())
	m.StartScanning(nil, false)

	// Detach closes the open session.
	rec.Detach(context.Background())
	assert.Equal(t, 0, em.ListenerCount(domain.EventDiscover))

	recs, err := st.ListPeripherals(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, len(driver.DemoPeripherals()))

	sessions, err := st.ListSessions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.False(t, sessions[0].Open())
	assert.Equal(t, len(driver.DemoPeripherals()), sessions[0].Discovered)
}
