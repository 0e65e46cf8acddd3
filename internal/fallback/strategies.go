package fallback

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Fallback holds what the loading strategies share: the health monitor, the background
// sync budget and telemetry. Strategies are package functions because Go methods cannot
// take type parameters.
type Fallback struct {
	health      *HealthMonitor
	syncTimeout time.Duration
	logger      zerolog.Logger
	rec         Recorder

	wg sync.WaitGroup
}

// New returns a Fallback. syncTimeout bounds the remote call of ClientFirst.
func New(health *HealthMonitor, syncTimeout time.Duration, logger zerolog.Logger, rec Recorder) *Fallback {
	if rec == nil {
		rec = NopRecorder{}
	}
	return &Fallback{
		health:      health,
		syncTimeout: syncTimeout,
		logger:      logger,
		rec:         rec,
	}
}

// Health returns the monitor gating SmartLoad.
func (f *Fallback) Health() *HealthMonitor {
	return f.health
}

// Wait blocks until every background sync started by ClientFirst has finished.
func (f *Fallback) Wait() {
	f.wg.Wait()
}

// SmartLoad gates the remote tier on backend health. When the monitor reports the
// backend down, remote is never invoked. Otherwise remote runs under timeout; a failure
// marks the backend unhealthy for the cache window and local is returned instead.
func SmartLoad[T any](ctx context.Context, f *Fallback, remote, local FetchFunc[T], timeout time.Duration, forceHealthCheck bool) (Result[T], error) {
	start := time.Now()

	if !f.health.Check(ctx, !forceHealthCheck, false) {
		f.logger.Debug().Str("strategy", StrategySmart).Msg("Backend unhealthy, loading directly from local content")
		return loadLocal(ctx, f, StrategySmart, local, start)
	}

	data, err := callRemote(ctx, remote, timeout)
	if err == nil {
		f.rec.ObserveLoad(StrategySmart, SourceRemote, time.Since(start))
		return Result[T]{Data: data, Source: SourceRemote}, nil
	}
	if ctx.Err() != nil {
		return Result[T]{}, fmt.Errorf("load cancelled: %w", ctx.Err())
	}

	f.logger.Warn().Err(err).Str("strategy", StrategySmart).Msg("API call failed, falling back to local content")
	f.health.MarkUnhealthy()
	return loadLocal(ctx, f, StrategySmart, local, start)
}

// RaceWithFallback starts remote together with a timer of timeout, without consulting
// the health monitor. If remote answers first it wins; if it fails or the timer fires
// first, the remote call is cancelled and local is awaited instead.
func RaceWithFallback[T any](ctx context.Context, f *Fallback, remote, local FetchFunc[T], timeout time.Duration) (Result[T], error) {
	start := time.Now()

	data, err := callRemote(ctx, remote, timeout)
	if err == nil {
		f.rec.ObserveLoad(StrategyRace, SourceRemote, time.Since(start))
		return Result[T]{Data: data, Source: SourceRemote}, nil
	}
	if ctx.Err() != nil {
		return Result[T]{}, fmt.Errorf("load cancelled: %w", ctx.Err())
	}

	f.logger.Warn().Err(err).Str("strategy", StrategyRace).Msg("API call failed or timed out, using fallback")
	return loadLocal(ctx, f, StrategyRace, local, start)
}

// ClientFirst returns local immediately and never waits on the network unless local
// fails. Remote is fetched in a detached goroutine; when it differs from what was
// returned, onUpdate (optional) is called once with the remote value. Background
// failures are logged and dropped.
func ClientFirst[T any](ctx context.Context, f *Fallback, remote, local FetchFunc[T], onUpdate func(T)) (Result[T], error) {
	start := time.Now()

	data, localErr := local(ctx)
	if localErr != nil {
		f.logger.Warn().Err(localErr).Str("strategy", StrategyClientFirst).Msg("Local load failed, waiting for remote")
		remoteData, err := callRemote(ctx, remote, f.syncTimeout)
		if err != nil {
			return Result[T]{}, fmt.Errorf("%w: local: %w; remote: %w", ErrNoSource, localErr, err)
		}
		f.rec.ObserveLoad(StrategyClientFirst, SourceRemote, time.Since(start))
		return Result[T]{Data: remoteData, Source: SourceRemote}, nil
	}
	f.rec.ObserveLoad(StrategyClientFirst, SourceLocal, time.Since(start))

	f.wg.Add(1)
	go func(ctx context.Context) {
		defer f.wg.Done()
		syncOnce(ctx, f, remote, data, onUpdate)
	}(context.WithoutCancel(ctx))

	return Result[T]{Data: data, Source: SourceLocal}, nil
}

// syncOnce fetches remote for ClientFirst and reports a value that differs from returned.
func syncOnce[T any](ctx context.Context, f *Fallback, remote FetchFunc[T], returned T, onUpdate func(T)) {
	data, err := callRemote(ctx, remote, f.syncTimeout)
	if err != nil {
		f.rec.ObserveBackgroundSync(SyncFailed)
		f.logger.Warn().Err(err).Str("strategy", StrategyClientFirst).Msg("Background sync failed")
		return
	}

	if reflect.DeepEqual(data, returned) {
		f.rec.ObserveBackgroundSync(SyncUnchanged)
		f.logger.Debug().Str("strategy", StrategyClientFirst).Msg("Background sync found no changes")
		return
	}

	f.rec.ObserveBackgroundSync(SyncUpdated)
	f.logger.Info().Str("strategy", StrategyClientFirst).Msg("Background sync found newer remote content")
	if onUpdate != nil {
		onUpdate(data)
	}
}

// callRemote runs remote under timeout. Whichever of the call and the deadline settles
// first decides the outcome; the call's context is cancelled on return either way.
func callRemote[T any](ctx context.Context, remote FetchFunc[T], timeout time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		data T
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		data, err := remote(ctx)
		done <- outcome{data: data, err: err}
	}()

	select {
	case out := <-done:
		return out.data, out.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", ErrRemoteTimeout, timeout)
		}
		return zero, ctx.Err()
	}
}

// loadLocal serves the fallback tier. Its failure is fatal for the request.
func loadLocal[T any](ctx context.Context, f *Fallback, strategy string, local FetchFunc[T], start time.Time) (Result[T], error) {
	data, err := local(ctx)
	if err != nil {
		return Result[T]{}, fmt.Errorf("%w: local: %w", ErrNoSource, err)
	}
	f.rec.ObserveLoad(strategy, SourceLocal, time.Since(start))
	return Result[T]{Data: data, Source: SourceLocal}, nil
}
