package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkwell/portfolio/internal/fallback"
)

// HealthRefreshService probes the backend periodically so request paths usually find a
// fresh cached answer instead of paying for a probe themselves.
type HealthRefreshService struct {
	Interval time.Duration
	Monitor  *fallback.HealthMonitor
	Logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHealthRefreshService initializes a new HealthRefreshService.
func NewHealthRefreshService(interval time.Duration, monitor *fallback.HealthMonitor, logger zerolog.Logger) *HealthRefreshService {
	return &HealthRefreshService{
		Interval: interval,
		Monitor:  monitor,
		Logger:   logger,
	}
}

// Start launches the refresh loop in a separate goroutine.
func (h *HealthRefreshService) Start() error {
	if h.ctx != nil {
		h.Logger.Warn().Msg("HealthRefreshService is already running")
		return errors.New("health refresh service is already running")
	}
	if h.Interval <= 0 {
		return errors.New("health refresh interval must be positive")
	}

	h.ctx, h.cancel = context.WithCancel(context.Background())

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.runRefreshLoop()
	}()

	h.Logger.Info().Dur("interval", h.Interval).Msg("HealthRefreshService started successfully")
	return nil
}

// Stop gracefully stops the refresh loop.
func (h *HealthRefreshService) Stop() error {
	if h.ctx == nil {
		h.Logger.Warn().Msg("HealthRefreshService is not running")
		return errors.New("health refresh service is not running")
	}

	h.cancel()
	h.wg.Wait()

	h.ctx = nil
	h.cancel = nil

	h.Logger.Info().Msg("HealthRefreshService stopped successfully")
	return nil
}

// runRefreshLoop probes once at startup and then on every tick.
func (h *HealthRefreshService) runRefreshLoop() {
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	h.refresh()
	for {
		select {
		case <-ticker.C:
			h.refresh()
		case <-h.ctx.Done():
			h.Logger.Info().Msg("HealthRefreshService stopping gracefully")
			return
		}
	}
}

func (h *HealthRefreshService) refresh() {
	healthy := h.Monitor.Check(h.ctx, false, false)
	h.Logger.Debug().
		Bool("healthy", healthy).
		Str("state", h.Monitor.State().String()).
		Msg("Backend health refreshed")
}
