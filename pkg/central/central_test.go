package central

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blecentral/internal/adapter/driver"
	"blecentral/internal/domain"
	"blecentral/internal/infra/logger"
)

var (
	loads        atomic.Int32
	failingLoads atomic.Int32
)

func init() {
	if err := driver.Register("test-counting", func(cfg driver.Config) (domain.Driver, error) {
		loads.Add(1)
		return driver.NewMock(driver.WithMockLogger(cfg.Logger)), nil
	}); err != nil {
		panic(err)
	}
	if err := driver.Register("test-failing", func(driver.Config) (domain.Driver, error) {
		failingLoads.Add(1)
		return nil, errors.New("no adapter on this host")
	}); err != nil {
		panic(err)
	}
}

// resetDefault forgets the process-wide central so each test starts fresh.
func resetDefault(t *testing.T) {
	t.Helper()
	reset := func() {
		if instance != nil {
			_ = instance.Close()
		}
		mu.Lock()
		configured, started = nil, false
		mu.Unlock()
		once = sync.Once{}
		instance, instanceErr = nil, nil
		loads.Store(0)
		failingLoads.Store(0)
	}
	reset()
	t.Cleanup(reset)
}

func TestDefaultReturnsSameInstance(t *testing.T) {
	resetDefault(t)
	require.NoError(t, Configure(WithBackend("test-counting"), WithLogger(logger.Discard())))

	var wg sync.WaitGroup
	got := make([]*Central, 16)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := Default()
			assert.NoError(t, err)
			got[i] = c
		}()
	}
	wg.Wait()

	require.NotNil(t, got[0])
	for _, c := range got[1:] {
		assert.Same(t, got[0], c)
	}
	assert.Equal(t, int32(1), loads.Load(), "driver loaded once")
	assert.True(t, got[0].Initialized())
}

func TestDefaultLoadFailureIsMemoised(t *testing.T) {
	resetDefault(t)
	require.NoError(t, Configure(WithBackend("test-failing")))

	c, err := Default()
	assert.Nil(t, c)
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "test-failing", le.Backend)
	assert.True(t, errors.Is(err, ErrLoad))

	c2, err2 := Default()
	assert.Nil(t, c2)
	assert.Same(t, err, err2)
	assert.Equal(t, int32(1), failingLoads.Load())

	assert.Panics(t, func() { MustDefault() })
}

func TestConfigureAfterDefault(t *testing.T) {
	resetDefault(t)
	require.NoError(t, Configure(WithBackend(driver.NameMock), WithLogger(logger.Discard())))
	_ = MustDefault()

	err := Configure(WithBackend("native"))
	assert.True(t, errors.Is(err, ErrAlreadyInitialized))
}

func TestDefaultBackendFromEnv(t *testing.T) {
	resetDefault(t)
	t.Setenv("BLECENTRAL_DRIVER_BACKEND", "test-counting")
	require.NoError(t, Configure(WithLogger(logger.Discard())))

	_, err := Default()
	require.NoError(t, err)
	assert.Equal(t, int32(1), loads.Load())
}

func TestConfiguredListenerSeesReadiness(t *testing.T) {
	resetDefault(t)
	states := make(chan string, 1)
	require.NoError(t, Configure(
		WithBackend(driver.NameMock),
		WithLogger(logger.Discard()),
		WithListener(EventStateChange, func(_ context.Context, ev Event) { states <- ev.StringArg(0) }),
	))

	c := MustDefault()
	select {
	case st := <-states:
		assert.Equal(t, string(StatePoweredOn), st)
	case <-time.After(2 * time.Second):
		t.Fatal("stateChange not delivered")
	}
	assert.Equal(t, StatePoweredOn, c.State())
}

func TestNewIsIndependent(t *testing.T) {
	resetDefault(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	a, err := New(ctx, WithBackend(driver.NameMock), WithLogger(logger.Discard()), WithMockState(StatePoweredOff))
	require.NoError(t, err)
	defer a.Close()
	b, err := New(ctx, WithBackend(driver.NameMock), WithLogger(logger.Discard()))
	require.NoError(t, err)
	defer b.Close()

	assert.NotSame(t, a, b)
	require.NoError(t, a.WaitForState(ctx, StatePoweredOff))
	require.NoError(t, b.WaitForState(ctx, StatePoweredOn))
}

func TestScanThroughFacade(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	found := make(chan Peripheral, 8)
	c, err := New(ctx,
		WithBackend(driver.NameMock),
		WithLogger(logger.Discard()),
		WithMaxListeners(2),
		WithQueueSize(4),
		WithListener(EventDiscover, func(_ context.Context, ev Event) {
			if p, ok := PeripheralFromDiscover(ev); ok {
				found <- p
			}
		}),
	)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WaitForState(ctx, StatePoweredOn))
	c.StartScanning([]string{NormalizeUUID("0000180D-0000-1000-8000-00805F9B34FB")}, false)

	select {
	case p := <-found:
		assert.Equal(t, "c0ffee000001", p.UUID)
		assert.Equal(t, AddressRandom, p.AddressType)
	case <-time.After(2 * time.Second):
		t.Fatal("no discover event")
	}
	assert.Equal(t, 2, c.MaxListeners())
}
