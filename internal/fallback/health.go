package fallback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// HealthState is the last known reachability of the backend.
type HealthState int

const (
	// Unknown means no probe has completed yet.
	Unknown HealthState = iota

	// Healthy means the last probe succeeded.
	Healthy

	// Unhealthy means the last probe, or the last remote call, failed.
	Unhealthy
)

// String returns a human-readable state name.
func (s HealthState) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Unhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// HealthChecker probes the backend. A nil error means healthy.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthMonitor answers "is the backend usable?" without stampeding it with probes.
// Results are cached for a TTL and at most one probe is in flight at a time.
type HealthMonitor struct {
	checker HealthChecker
	ttl     time.Duration
	logger  zerolog.Logger
	rec     Recorder
	now     func() time.Time

	group singleflight.Group

	mu        sync.Mutex
	state     HealthState
	lastCheck time.Time // zero until a probe completes or a failure is recorded
	checking  bool
}

// NewHealthMonitor builds a monitor whose cached results live for ttl.
func NewHealthMonitor(checker HealthChecker, ttl time.Duration, logger zerolog.Logger, rec Recorder) *HealthMonitor {
	if rec == nil {
		rec = NopRecorder{}
	}
	return &HealthMonitor{
		checker: checker,
		ttl:     ttl,
		logger:  logger,
		rec:     rec,
		now:     time.Now,
		state:   Unknown,
	}
}

// Check reports whether the backend should be tried. It never fails: a probe error
// maps to false.
//
// With allowImmediateOptimistic and no completed check, Check returns true at once and
// probes in the background, accepting a one-shot false positive for first-load latency.
// With useCache, a result younger than the TTL is returned without a probe. While a
// probe is in flight the last known value is returned; callers that have no known value
// yet wait for the in-flight probe instead of starting their own.
//
// Policy: Unknown is treated as healthy.
func (m *HealthMonitor) Check(ctx context.Context, useCache, allowImmediateOptimistic bool) bool {
	m.mu.Lock()
	known := !m.lastCheck.IsZero()

	if allowImmediateOptimistic && !known {
		m.mu.Unlock()
		go m.probe(context.WithoutCancel(ctx))
		return true
	}

	if useCache && known && m.now().Sub(m.lastCheck) < m.ttl {
		state := m.state
		m.mu.Unlock()
		return state != Unhealthy
	}

	if m.checking && known {
		state := m.state
		m.mu.Unlock()
		return state != Unhealthy
	}
	m.mu.Unlock()

	return m.probe(ctx) != Unhealthy
}

// probe runs one shared health probe; concurrent callers join the in-flight one.
func (m *HealthMonitor) probe(ctx context.Context) HealthState {
	ch := m.group.DoChan("health", func() (interface{}, error) {
		m.mu.Lock()
		m.checking = true
		m.mu.Unlock()

		start := m.now()
		// Detached so one caller giving up does not fail the probe for the others.
		err := m.checker.Health(context.WithoutCancel(ctx))
		elapsed := m.now().Sub(start)

		state := Healthy
		if err != nil {
			state = Unhealthy
			m.logger.Warn().Err(err).Dur("elapsed", elapsed).Msg("Backend health check failed, using local content")
		} else {
			m.logger.Debug().Dur("elapsed", elapsed).Msg("Backend is healthy")
		}
		m.rec.ObserveProbe(state == Healthy, elapsed)

		m.mu.Lock()
		m.state = state
		m.lastCheck = m.now()
		m.checking = false
		m.mu.Unlock()
		return state, nil
	})

	select {
	case res := <-ch:
		return res.Val.(HealthState)
	case <-ctx.Done():
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.state
	}
}

// MarkUnhealthy records a failed remote call so that callers inside the TTL skip the
// backend without probing.
func (m *HealthMonitor) MarkUnhealthy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Unhealthy
	m.lastCheck = m.now()
}

// State returns the last known state.
func (m *HealthMonitor) State() HealthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastCheck returns when the state was last recorded; zero if never.
func (m *HealthMonitor) LastCheck() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCheck
}
