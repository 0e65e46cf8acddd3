package services

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/portfolio/internal/fallback"
	"github.com/inkwell/portfolio/internal/mocks"
)

// TestHealthRefreshService_StartStop tests the lifecycle errors of the service.
func TestHealthRefreshService_StartStop(t *testing.T) {
	// Setup
	checker := new(mocks.HealthChecker)
	checker.On("Health", mock.Anything).Return(nil)
	monitor := fallback.NewHealthMonitor(checker, time.Minute, zerolog.Nop(), nil)
	h := NewHealthRefreshService(time.Hour, monitor, zerolog.Nop())

	// Execute
	err := h.Start()

	// Assert
	require.NoError(t, err)
	err = h.Start()
	assert.EqualError(t, err, "health refresh service is already running")

	assert.NoError(t, h.Stop())
	err = h.Stop()
	assert.EqualError(t, err, "health refresh service is not running")
}

// TestHealthRefreshService_ProbesPeriodically verifies the monitor is refreshed without requests.
func TestHealthRefreshService_ProbesPeriodically(t *testing.T) {
	var probes atomic.Int32
	checker := new(mocks.HealthChecker)
	checker.On("Health", mock.Anything).Run(func(mock.Arguments) { probes.Add(1) }).Return(nil)
	monitor := fallback.NewHealthMonitor(checker, time.Minute, zerolog.Nop(), nil)
	h := NewHealthRefreshService(20*time.Millisecond, monitor, zerolog.Nop())

	require.NoError(t, h.Start())
	defer func() { _ = h.Stop() }()

	assert.Eventually(t, func() bool {
		return probes.Load() >= 3
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, fallback.Healthy, monitor.State())
}

// TestHealthRefreshService_InvalidInterval verifies a zero interval is rejected.
func TestHealthRefreshService_InvalidInterval(t *testing.T) {
	monitor := fallback.NewHealthMonitor(new(mocks.HealthChecker), time.Minute, zerolog.Nop(), nil)
	h := NewHealthRefreshService(0, monitor, zerolog.Nop())

	assert.Error(t, h.Start())
}
