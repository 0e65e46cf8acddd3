package fallback

import (
	"context"
	"errors"
	"time"
)

// Source tags which tier satisfied a load.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Strategy names, used for logging and metrics.
const (
	StrategySmart       = "smart"
	StrategyRace        = "race"
	StrategyClientFirst = "client_first"
)

// Background sync outcomes reported to the Recorder.
const (
	SyncUnchanged = "unchanged"
	SyncUpdated   = "updated"
	SyncFailed    = "failed"
)

var (
	// ErrRemoteTimeout is returned when the remote tier exceeds its budget.
	ErrRemoteTimeout = errors.New("remote call timed out")

	// ErrNoSource is returned when neither tier could satisfy a load.
	ErrNoSource = errors.New("no data source available")
)

// Result is a loaded value tagged with its provenance.
type Result[T any] struct {
	Data   T
	Source Source
}

// FetchFunc loads a value from one tier.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Recorder receives loading telemetry. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveLoad(strategy string, source Source, elapsed time.Duration)
	ObserveProbe(healthy bool, elapsed time.Duration)
	ObserveBackgroundSync(outcome string)
}

// NopRecorder discards all telemetry.
type NopRecorder struct{}

func (NopRecorder) ObserveLoad(string, Source, time.Duration) {}
func (NopRecorder) ObserveProbe(bool, time.Duration)          {}
func (NopRecorder) ObserveBackgroundSync(string)              {}
