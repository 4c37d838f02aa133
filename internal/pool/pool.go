// Package pool manages a bounded set of store client handles. Callers
// acquire a handle, use it, and release it; a background maintenance loop
// health-checks idle handles and evicts ones that have gone stale.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"trendybets/ingestion/internal/metrics"

	"github.com/rs/zerolog/log"
)

// ErrPoolExhausted is returned by Acquire when no handle becomes available
// within the configured acquire timeout. It is surfaced to the caller, not
// retried internally.
var ErrPoolExhausted = errors.New("pool: no connection available within acquire timeout")

// acquirePollInterval is how often a blocked Acquire re-checks the pool.
const acquirePollInterval = 100 * time.Millisecond

// healthCheckStaleness is how old a health check result may get before the
// maintenance loop probes the connection again.
const healthCheckStaleness = 5 * time.Minute

// Conn is the handle type a Pool manages. *pgx.Conn satisfies it.
type Conn interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Factory creates a new store client handle.
type Factory[C Conn] func(ctx context.Context) (C, error)

// Config holds pool sizing and timing configuration.
type Config struct {
	Min                 int
	Max                 int
	IdleTimeout         time.Duration
	AcquireTimeout      time.Duration
	HealthCheckInterval time.Duration
}

// DefaultConfig returns the pool configuration used in production.
func DefaultConfig() Config {
	return Config{
		Min:                 2,
		Max:                 10,
		IdleTimeout:         30 * time.Second,
		AcquireTimeout:      10 * time.Second,
		HealthCheckInterval: 10 * time.Second,
	}
}

// healthState tracks the outcome of the most recent health probe.
type healthState int

const (
	healthUnknown healthState = iota
	healthPass
	healthFail
)

// pooledConn wraps one store client handle with pool bookkeeping.
type pooledConn[C Conn] struct {
	handle            C
	lastUsedAt        time.Time
	inUse             bool
	health            healthState
	lastHealthCheckAt time.Time
}

// Pool owns a set of store client handles between Min and Max in size.
// All mutation is guarded by mu; a handle marked inUse is never handed to
// a second acquirer.
type Pool[C Conn] struct {
	cfg     Config
	factory Factory[C]

	mu       sync.Mutex
	conns    []*pooledConn[C]
	creating int // dials in flight, counted against Max

	stopMaintenance chan struct{}
	maintenanceDone chan struct{}
	closed          bool
}

// New creates a pool, pre-warms it to cfg.Min handles, and starts the
// maintenance loop. Failure to create the initial handles is a setup error.
func New[C Conn](ctx context.Context, cfg Config, factory Factory[C]) (*Pool[C], error) {
	if cfg.Min < 0 || cfg.Max < 1 || cfg.Min > cfg.Max {
		return nil, fmt.Errorf("pool: invalid size bounds min=%d max=%d", cfg.Min, cfg.Max)
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = DefaultConfig().AcquireTimeout
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = DefaultConfig().HealthCheckInterval
	}

	p := &Pool[C]{
		cfg:             cfg,
		factory:         factory,
		stopMaintenance: make(chan struct{}),
		maintenanceDone: make(chan struct{}),
	}

	for i := 0; i < cfg.Min; i++ {
		if _, err := p.addConnLocked(ctx); err != nil {
			p.closeAllLocked(ctx)
			return nil, fmt.Errorf("pool: failed to initialize connection %d of %d: %w", i+1, cfg.Min, err)
		}
	}

	log.Info().
		Int("min", cfg.Min).
		Int("max", cfg.Max).
		Msg("Connection pool initialized")

	go p.maintenanceLoop()

	return p, nil
}

// addConnLocked creates a new handle and appends it to the pool. Only New
// calls this, before the pool is shared.
func (p *Pool[C]) addConnLocked(ctx context.Context) (*pooledConn[C], error) {
	handle, err := p.factory(ctx)
	if err != nil {
		return nil, err
	}
	pc := &pooledConn[C]{
		handle:     handle,
		lastUsedAt: time.Now(),
	}
	p.conns = append(p.conns, pc)
	return pc, nil
}

// Acquire returns an idle healthy handle, creating one if the pool is below
// Max. When the pool is saturated it polls until a handle frees up or the
// acquire timeout elapses, in which case it fails with ErrPoolExhausted.
func (p *Pool[C]) Acquire(ctx context.Context) (C, error) {
	deadline := time.Now().Add(p.cfg.AcquireTimeout)

	for {
		handle, ok, err := p.tryAcquire(ctx)
		if err != nil {
			var zero C
			return zero, err
		}
		if ok {
			return handle, nil
		}

		if time.Now().After(deadline) {
			metrics.PoolAcquireTimeouts.Inc()
			var zero C
			return zero, ErrPoolExhausted
		}

		select {
		case <-ctx.Done():
			var zero C
			return zero, ctx.Err()
		case <-time.After(acquirePollInterval):
		}
	}
}

// tryAcquire makes a single pass over the pool. It returns ok=false when the
// pool is full and every handle is in use.
func (p *Pool[C]) tryAcquire(ctx context.Context) (C, bool, error) {
	var zero C

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return zero, false, errors.New("pool: closed")
	}

	for _, pc := range p.conns {
		if !pc.inUse && pc.health != healthFail {
			pc.inUse = true
			pc.lastUsedAt = time.Now()
			handle := pc.handle
			p.mu.Unlock()
			return handle, true, nil
		}
	}

	// In-flight dials count against Max so concurrent acquirers cannot
	// overshoot the bound while a dial is still connecting.
	if len(p.conns)+p.creating >= p.cfg.Max {
		p.mu.Unlock()
		return zero, false, nil
	}
	p.creating++
	p.mu.Unlock()

	// Dial outside the lock: a slow connect must not block Release, Stats,
	// or the maintenance sweep.
	handle, err := p.factory(ctx)

	p.mu.Lock()
	p.creating--
	if err != nil {
		p.mu.Unlock()
		return zero, false, fmt.Errorf("pool: failed to create connection: %w", err)
	}
	if p.closed {
		p.mu.Unlock()
		_ = handle.Close(context.Background())
		return zero, false, errors.New("pool: closed")
	}
	p.conns = append(p.conns, &pooledConn[C]{
		handle:     handle,
		lastUsedAt: time.Now(),
		inUse:      true,
	})
	p.mu.Unlock()

	return handle, true, nil
}

// Release returns a handle to the pool. Releasing a handle the pool no
// longer tracks (already evicted) is a logged no-op.
func (p *Pool[C]) Release(handle C) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, pc := range p.conns {
		if any(pc.handle) == any(handle) {
			pc.inUse = false
			pc.lastUsedAt = time.Now()
			return
		}
	}

	log.Warn().Msg("Released connection not found in pool, ignoring")
}

// WithConn acquires a handle, runs fn, and releases the handle on every exit
// path including panics. This is the only sanctioned way to use a pooled
// connection.
func (p *Pool[C]) WithConn(ctx context.Context, fn func(conn C) error) error {
	handle, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(handle)

	return fn(handle)
}

// maintenanceLoop runs health checks and eviction on a fixed interval,
// independent of caller goroutines.
func (p *Pool[C]) maintenanceLoop() {
	defer close(p.maintenanceDone)

	ticker := time.NewTicker(p.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopMaintenance:
			return
		case <-ticker.C:
			p.maintain()
		}
	}
}

// maintain probes idle connections whose health check is stale and evicts
// idle connections that are unhealthy or excess, down to Min.
func (p *Pool[C]) maintain() {
	now := time.Now()

	// Probe outside the lock so a slow Ping never blocks Acquire/Release.
	for _, pc := range p.probeCandidates(now) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := pc.handle.Ping(ctx)
		cancel()

		p.mu.Lock()
		pc.lastHealthCheckAt = time.Now()
		if err != nil {
			// A failed probe only flags the connection for eviction; it is
			// never surfaced to callers, and an in-flight user of this handle
			// is not disrupted.
			pc.health = healthFail
			log.Warn().Err(err).Msg("Pool connection failed health check")
		} else {
			pc.health = healthPass
		}
		p.mu.Unlock()
	}

	evicted := p.evictIdle(now)
	if evicted > 0 {
		log.Info().
			Int("evicted", evicted).
			Int("pool_size", p.Stats().Total).
			Msg("Evicted idle connections from pool")
	}
}

// probeCandidates returns idle connections due for a health check: the last
// result is stale, or the connection has sat idle beyond half the idle
// timeout.
func (p *Pool[C]) probeCandidates(now time.Time) []*pooledConn[C] {
	p.mu.Lock()
	defer p.mu.Unlock()

	var due []*pooledConn[C]
	for _, pc := range p.conns {
		if pc.inUse {
			continue
		}
		stale := now.Sub(pc.lastHealthCheckAt) > healthCheckStaleness
		longIdle := p.cfg.IdleTimeout > 0 && now.Sub(pc.lastUsedAt) > p.cfg.IdleTimeout/2
		if stale || longIdle {
			due = append(due, pc)
		}
	}
	return due
}

// evictIdle removes connections that are idle beyond the idle timeout and
// either unhealthy or excess over Min, oldest-idle first. In-use connections
// are never evicted. Returns the number evicted.
func (p *Pool[C]) evictIdle(now time.Time) int {
	p.mu.Lock()

	var candidates []*pooledConn[C]
	for _, pc := range p.conns {
		if pc.inUse || now.Sub(pc.lastUsedAt) <= p.cfg.IdleTimeout {
			continue
		}
		candidates = append(candidates, pc)
	}

	// Oldest-idle first.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].lastUsedAt.Before(candidates[j].lastUsedAt)
	})

	// Unhealthy idle connections go first, regardless of Min; healthy ones
	// only while the pool stays above Min. Taking the unhealthy ones before
	// counting excess keeps an older healthy connection from being trimmed
	// in place of a broken one.
	var victims []*pooledConn[C]
	for _, pc := range candidates {
		if pc.health == healthFail {
			victims = append(victims, pc)
		}
	}
	for _, pc := range candidates {
		if pc.health == healthFail {
			continue
		}
		if len(p.conns)-len(victims) > p.cfg.Min {
			victims = append(victims, pc)
		}
	}

	if len(victims) > 0 {
		remaining := make([]*pooledConn[C], 0, len(p.conns)-len(victims))
		for _, pc := range p.conns {
			doomed := false
			for _, v := range victims {
				if pc == v {
					doomed = true
					break
				}
			}
			if !doomed {
				remaining = append(remaining, pc)
			}
		}
		p.conns = remaining
	}
	p.mu.Unlock()

	for _, pc := range victims {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = pc.handle.Close(ctx)
		cancel()
	}

	return len(victims)
}

// Stats describes the pool at a point in time.
type Stats struct {
	Total int
	InUse int
	Idle  int
}

// Stats returns a snapshot of the pool size and usage.
func (p *Pool[C]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{Total: len(p.conns)}
	for _, pc := range p.conns {
		if pc.inUse {
			s.InUse++
		}
	}
	s.Idle = s.Total - s.InUse
	return s
}

// Close stops the maintenance loop and closes every handle. Acquire fails
// after Close.
func (p *Pool[C]) Close(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stopMaintenance)
	<-p.maintenanceDone

	p.mu.Lock()
	p.closeAllLocked(ctx)
	p.mu.Unlock()

	log.Info().Msg("Connection pool closed")
}

func (p *Pool[C]) closeAllLocked(ctx context.Context) {
	for _, pc := range p.conns {
		_ = pc.handle.Close(ctx)
	}
	p.conns = nil
}
