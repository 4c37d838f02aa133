package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory stand-in for a store client handle
type fakeConn struct {
	id       int
	mu       sync.Mutex
	pingErr  error
	pings    int
	closed   bool
}

func (c *fakeConn) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings++
	return c.pingErr
}

func (c *fakeConn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) setPingErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingErr = err
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeFactory hands out numbered fakeConns and remembers them
type fakeFactory struct {
	mu    sync.Mutex
	next  int
	conns []*fakeConn
	err   error
}

func (f *fakeFactory) create(ctx context.Context) (*fakeConn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.next++
	conn := &fakeConn{id: f.next}
	f.conns = append(f.conns, conn)
	return conn, nil
}

func newTestPool(t *testing.T, cfg Config) (*Pool[*fakeConn], *fakeFactory) {
	t.Helper()

	factory := &fakeFactory{}
	p, err := New(context.Background(), cfg, factory.create)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close(context.Background()) })

	return p, factory
}

func TestPool_PrewarmsToMin(t *testing.T) {
	p, factory := newTestPool(t, Config{
		Min:                 2,
		Max:                 5,
		IdleTimeout:         time.Minute,
		AcquireTimeout:      time.Second,
		HealthCheckInterval: time.Hour,
	})

	stats := p.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 0, stats.InUse)
	assert.Len(t, factory.conns, 2)
}

func TestPool_InvalidBounds(t *testing.T) {
	factory := &fakeFactory{}
	_, err := New(context.Background(), Config{Min: 5, Max: 2}, factory.create)
	require.Error(t, err)
}

func TestPool_SetupFailure(t *testing.T) {
	factory := &fakeFactory{err: errors.New("connect refused")}
	_, err := New(context.Background(), Config{Min: 1, Max: 2, AcquireTimeout: time.Second}, factory.create)
	require.Error(t, err)
}

func TestPool_AcquireRelease(t *testing.T) {
	p, _ := newTestPool(t, Config{
		Min:                 1,
		Max:                 3,
		IdleTimeout:         time.Minute,
		AcquireTimeout:      time.Second,
		HealthCheckInterval: time.Hour,
	})

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stats().InUse)

	p.Release(conn)
	assert.Equal(t, 0, p.Stats().InUse)
}

func TestPool_GrowsUpToMax(t *testing.T) {
	p, _ := newTestPool(t, Config{
		Min:                 1,
		Max:                 3,
		IdleTimeout:         time.Minute,
		AcquireTimeout:      200 * time.Millisecond,
		HealthCheckInterval: time.Hour,
	})

	var held []*fakeConn
	for i := 0; i < 3; i++ {
		conn, err := p.Acquire(context.Background())
		require.NoError(t, err)
		held = append(held, conn)
	}

	stats := p.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.InUse)

	for _, conn := range held {
		p.Release(conn)
	}
}

func TestPool_AcquireTimeout(t *testing.T) {
	p, _ := newTestPool(t, Config{
		Min:                 1,
		Max:                 1,
		IdleTimeout:         time.Minute,
		AcquireTimeout:      200 * time.Millisecond,
		HealthCheckInterval: time.Hour,
	})

	held, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer p.Release(held)

	start := time.Now()
	_, err = p.Acquire(context.Background())
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrPoolExhausted)
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 600*time.Millisecond, "timeout should be bounded")
}

func TestPool_NoDoubleAcquire(t *testing.T) {
	p, _ := newTestPool(t, Config{
		Min:                 2,
		Max:                 4,
		IdleTimeout:         time.Minute,
		AcquireTimeout:      2 * time.Second,
		HealthCheckInterval: time.Hour,
	})

	const goroutines = 16
	const iterations = 50

	var inUse sync.Map
	var overlaps atomic.Int32

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				conn, err := p.Acquire(context.Background())
				if err != nil {
					continue
				}
				if _, loaded := inUse.LoadOrStore(conn, true); loaded {
					overlaps.Add(1)
				}
				time.Sleep(time.Millisecond)
				inUse.Delete(conn)
				p.Release(conn)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, overlaps.Load(), "no handle may be owned by two acquirers at once")

	stats := p.Stats()
	assert.GreaterOrEqual(t, stats.Total, 2)
	assert.LessOrEqual(t, stats.Total, 4)
	assert.Equal(t, 0, stats.InUse)
}

func TestPool_WithConnReleasesOnError(t *testing.T) {
	p, _ := newTestPool(t, Config{
		Min:                 1,
		Max:                 1,
		IdleTimeout:         time.Minute,
		AcquireTimeout:      time.Second,
		HealthCheckInterval: time.Hour,
	})

	opErr := errors.New("query failed")
	err := p.WithConn(context.Background(), func(conn *fakeConn) error {
		return opErr
	})
	require.ErrorIs(t, err, opErr)

	// The handle must be back even though fn failed.
	assert.Equal(t, 0, p.Stats().InUse)

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(conn)
}

func TestPool_ReleaseUnknownHandleIsNoop(t *testing.T) {
	p, _ := newTestPool(t, Config{
		Min:                 1,
		Max:                 2,
		IdleTimeout:         time.Minute,
		AcquireTimeout:      time.Second,
		HealthCheckInterval: time.Hour,
	})

	p.Release(&fakeConn{id: 999})
	assert.Equal(t, 1, p.Stats().Total)
}

func TestPool_EvictsUnhealthyIdle(t *testing.T) {
	p, factory := newTestPool(t, Config{
		Min:                 1,
		Max:                 3,
		IdleTimeout:         time.Millisecond,
		AcquireTimeout:      time.Second,
		HealthCheckInterval: time.Hour,
	})

	// Grow to two connections, then idle both.
	c1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	c2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(c1)
	p.Release(c2)

	factory.conns[0].setPingErr(errors.New("connection reset"))

	time.Sleep(5 * time.Millisecond)
	p.maintain()

	// The unhealthy connection is evicted; the healthy one stays to hold
	// the pool at Min.
	stats := p.Stats()
	assert.Equal(t, 1, stats.Total)
	assert.True(t, factory.conns[0].isClosed())
}

func TestPool_UnhealthyEvictedBeforeOlderHealthy(t *testing.T) {
	p, factory := newTestPool(t, Config{
		Min:                 1,
		Max:                 3,
		IdleTimeout:         time.Minute,
		AcquireTimeout:      time.Second,
		HealthCheckInterval: time.Hour,
	})

	// Grow to two connections, then idle both.
	c1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	c2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(c1)
	p.Release(c2)

	// The healthy connection has been idle longer than the broken one.
	factory.conns[1].setPingErr(errors.New("connection reset"))
	p.mu.Lock()
	for _, pc := range p.conns {
		pc.lastHealthCheckAt = time.Time{}
	}
	p.conns[0].lastUsedAt = time.Now().Add(-2 * time.Hour)
	p.conns[1].lastUsedAt = time.Now().Add(-1 * time.Hour)
	p.mu.Unlock()

	p.maintain()

	// The broken connection goes; the older healthy one holds the pool at
	// Min instead of being trimmed as excess.
	stats := p.Stats()
	assert.Equal(t, 1, stats.Total)
	assert.True(t, factory.conns[1].isClosed())
	assert.False(t, factory.conns[0].isClosed())

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, factory.conns[0], conn)
	p.Release(conn)
}

func TestPool_NeverEvictsInUse(t *testing.T) {
	p, factory := newTestPool(t, Config{
		Min:                 1,
		Max:                 2,
		IdleTimeout:         time.Millisecond,
		AcquireTimeout:      time.Second,
		HealthCheckInterval: time.Hour,
	})

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)

	factory.conns[0].setPingErr(errors.New("flagged"))

	time.Sleep(5 * time.Millisecond)
	p.maintain()

	assert.Equal(t, 1, p.Stats().Total)
	assert.False(t, conn.isClosed())

	p.Release(conn)
}

func TestPool_FlaggedConnNotHandedOut(t *testing.T) {
	p, factory := newTestPool(t, Config{
		Min:                 1,
		Max:                 2,
		IdleTimeout:         time.Hour, // never idle-evicted
		AcquireTimeout:      time.Second,
		HealthCheckInterval: time.Hour,
	})

	factory.conns[0].setPingErr(errors.New("broken"))

	// The stale health check forces a probe; the short idle keeps the
	// flagged connection from being evicted yet.
	p.mu.Lock()
	p.conns[0].lastHealthCheckAt = time.Time{}
	p.mu.Unlock()
	p.maintain()

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)

	// A second connection was created rather than reusing the flagged one.
	assert.NotSame(t, factory.conns[0], conn)
	p.Release(conn)
}

func TestPool_SlowDialDoesNotBlockPool(t *testing.T) {
	dialStarted := make(chan struct{})
	dialRelease := make(chan struct{})

	var calls atomic.Int32
	factory := func(ctx context.Context) (*fakeConn, error) {
		n := calls.Add(1)
		if n > 1 {
			close(dialStarted)
			<-dialRelease
		}
		return &fakeConn{id: int(n)}, nil
	}

	p, err := New(context.Background(), Config{
		Min:                 1,
		Max:                 2,
		IdleTimeout:         time.Minute,
		AcquireTimeout:      5 * time.Second,
		HealthCheckInterval: time.Hour,
	}, factory)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close(context.Background()) })

	// Hold the only existing connection so the next Acquire has to dial.
	held, err := p.Acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan *fakeConn, 1)
	go func() {
		conn, err := p.Acquire(context.Background())
		if err == nil {
			acquired <- conn
		}
	}()
	<-dialStarted

	// With the dial hanging, Stats and Release must still return promptly.
	statsDone := make(chan Stats, 1)
	go func() { statsDone <- p.Stats() }()
	select {
	case stats := <-statsDone:
		assert.Equal(t, 1, stats.Total)
	case <-time.After(time.Second):
		t.Fatal("Stats blocked behind an in-flight dial")
	}

	releaseDone := make(chan struct{})
	go func() {
		p.Release(held)
		close(releaseDone)
	}()
	select {
	case <-releaseDone:
	case <-time.After(time.Second):
		t.Fatal("Release blocked behind an in-flight dial")
	}

	close(dialRelease)
	conn := <-acquired
	p.Release(conn)

	stats := p.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 0, stats.InUse)
}

func TestPool_CloseStopsAcquire(t *testing.T) {
	factory := &fakeFactory{}
	p, err := New(context.Background(), Config{
		Min:                 1,
		Max:                 2,
		IdleTimeout:         time.Minute,
		AcquireTimeout:      time.Second,
		HealthCheckInterval: time.Hour,
	}, factory.create)
	require.NoError(t, err)

	p.Close(context.Background())

	_, err = p.Acquire(context.Background())
	require.Error(t, err)
	assert.True(t, factory.conns[0].isClosed())
}
