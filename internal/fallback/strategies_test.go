package fallback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/portfolio/internal/mocks"
)

type blogList struct {
	Blogs []string
}

// spyRecorder counts telemetry events.
type spyRecorder struct {
	mu    sync.Mutex
	loads map[string]int
	syncs map[string]int
}

func newSpyRecorder() *spyRecorder {
	return &spyRecorder{loads: map[string]int{}, syncs: map[string]int{}}
}

func (r *spyRecorder) ObserveLoad(strategy string, source Source, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads[strategy+"/"+string(source)]++
}

func (r *spyRecorder) ObserveProbe(bool, time.Duration) {}

func (r *spyRecorder) ObserveBackgroundSync(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncs[outcome]++
}

func (r *spyRecorder) syncCount(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.syncs[outcome]
}

func newTestFallback(t *testing.T, healthErr error) (*Fallback, *mocks.HealthChecker, *spyRecorder) {
	t.Helper()
	checker := new(mocks.HealthChecker)
	checker.On("Health", mock.Anything).Return(healthErr)
	rec := newSpyRecorder()
	monitor := NewHealthMonitor(checker, 30*time.Second, zerolog.Nop(), rec)
	return New(monitor, time.Second, zerolog.Nop(), rec), checker, rec
}

func constant[T any](v T) FetchFunc[T] {
	return func(context.Context) (T, error) { return v, nil }
}

func failing[T any](err error) FetchFunc[T] {
	return func(context.Context) (T, error) {
		var zero T
		return zero, err
	}
}

// slow returns v after d unless ctx ends first. cancelled is closed when ctx ends early.
func slow[T any](v T, d time.Duration, cancelled chan struct{}) FetchFunc[T] {
	return func(ctx context.Context) (T, error) {
		select {
		case <-time.After(d):
			return v, nil
		case <-ctx.Done():
			if cancelled != nil {
				close(cancelled)
			}
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TestSmartLoad_RemoteWhenHealthy verifies a healthy backend serves the remote value.
func TestSmartLoad_RemoteWhenHealthy(t *testing.T) {
	f, _, rec := newTestFallback(t, nil)

	res, err := SmartLoad(context.Background(), f, constant("remote"), constant("local"), time.Second, false)

	require.NoError(t, err)
	assert.Equal(t, "remote", res.Data)
	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, 1, rec.loads["smart/remote"])
}

// TestSmartLoad_SkipsRemoteWhenUnhealthy verifies remote is never invoked once the
// monitor reports the backend down.
func TestSmartLoad_SkipsRemoteWhenUnhealthy(t *testing.T) {
	f, _, _ := newTestFallback(t, errors.New("connection refused"))

	var remoteCalls atomic.Int32
	remote := func(context.Context) (string, error) {
		remoteCalls.Add(1)
		return "remote", nil
	}

	res, err := SmartLoad(context.Background(), f, remote, constant("local"), time.Second, false)

	require.NoError(t, err)
	assert.Equal(t, "local", res.Data)
	assert.Equal(t, SourceLocal, res.Source)
	assert.Zero(t, remoteCalls.Load())
}

// TestSmartLoad_HealthProbeTimeout mirrors a probe that never answers inside its budget:
// the load falls back to local shortly after the probe gives up.
func TestSmartLoad_HealthProbeTimeout(t *testing.T) {
	checker := new(mocks.HealthChecker)
	checker.On("Health", mock.Anything).Return(errors.New("health probe timed out")).After(150 * time.Millisecond)
	f := New(NewHealthMonitor(checker, 30*time.Second, zerolog.Nop(), nil), time.Second, zerolog.Nop(), nil)

	start := time.Now()
	res, err := SmartLoad(context.Background(), f, constant(blogList{Blogs: []string{"r"}}), constant(blogList{Blogs: []string{}}), time.Second, false)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, SourceLocal, res.Source)
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

// TestSmartLoad_RemoteFailureMarksUnhealthy verifies a failed remote call poisons the
// cache so the next load inside the window skips remote without probing.
func TestSmartLoad_RemoteFailureMarksUnhealthy(t *testing.T) {
	f, checker, _ := newTestFallback(t, nil)

	var remoteCalls atomic.Int32
	remote := func(context.Context) ([]string, error) {
		remoteCalls.Add(1)
		return nil, errors.New("500 internal server error")
	}

	res, err := SmartLoad(context.Background(), f, remote, constant([]string{"a"}), time.Second, false)
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, res.Source)
	assert.Equal(t, Unhealthy, f.Health().State())

	res, err = SmartLoad(context.Background(), f, remote, constant([]string{"a"}), time.Second, false)
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, res.Source)

	assert.Equal(t, int32(1), remoteCalls.Load())
	checker.AssertNumberOfCalls(t, "Health", 1)
}

// TestSmartLoad_RemoteTimeout verifies a slow remote call is abandoned after the budget.
func TestSmartLoad_RemoteTimeout(t *testing.T) {
	f, _, _ := newTestFallback(t, nil)
	cancelled := make(chan struct{})

	start := time.Now()
	res, err := SmartLoad(context.Background(), f, slow("remote", time.Second, cancelled), constant("local"), 100*time.Millisecond, false)

	require.NoError(t, err)
	assert.Equal(t, "local", res.Data)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("remote call was not cancelled")
	}
}

// TestSmartLoad_ForcedHealthCheck verifies forceHealthCheck bypasses the cached state.
func TestSmartLoad_ForcedHealthCheck(t *testing.T) {
	f, checker, _ := newTestFallback(t, nil)

	_, err := SmartLoad(context.Background(), f, constant(1), constant(0), time.Second, false)
	require.NoError(t, err)
	_, err = SmartLoad(context.Background(), f, constant(1), constant(0), time.Second, true)
	require.NoError(t, err)

	checker.AssertNumberOfCalls(t, "Health", 2)
}

// TestSmartLoad_BothFail verifies the load fails when no tier can serve it.
func TestSmartLoad_BothFail(t *testing.T) {
	f, _, _ := newTestFallback(t, nil)
	localErr := errors.New("no such file")

	_, err := SmartLoad(context.Background(), f, failing[string](errors.New("boom")), failing[string](localErr), time.Second, false)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSource)
	assert.ErrorIs(t, err, localErr)
}

// TestRaceWithFallback_RemoteWins verifies a fast remote answer is returned as-is.
func TestRaceWithFallback_RemoteWins(t *testing.T) {
	f, checker, rec := newTestFallback(t, nil)
	remote := slow(blogList{Blogs: []string{"a", "b", "c"}}, 20*time.Millisecond, nil)

	res, err := RaceWithFallback(context.Background(), f, remote, constant(blogList{}), time.Second)

	require.NoError(t, err)
	assert.Len(t, res.Data.Blogs, 3)
	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, 1, rec.loads["race/remote"])
	checker.AssertNotCalled(t, "Health", mock.Anything)
}

// TestRaceWithFallback_TimeoutUsesLocal verifies a remote that never answers inside the
// budget loses to local, and is cancelled.
func TestRaceWithFallback_TimeoutUsesLocal(t *testing.T) {
	f, _, _ := newTestFallback(t, nil)
	cancelled := make(chan struct{})
	remote := slow(blogList{Blogs: []string{"late"}}, 5*time.Second, cancelled)

	start := time.Now()
	res, err := RaceWithFallback(context.Background(), f, remote, constant(blogList{Blogs: []string{}}), 300*time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, SourceLocal, res.Source)
	assert.Empty(t, res.Data.Blogs)
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, time.Second)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("remote call was not cancelled")
	}
}

// TestRaceWithFallback_RemoteErrorUsesLocal verifies an early remote failure does not wait
// for the timer.
func TestRaceWithFallback_RemoteErrorUsesLocal(t *testing.T) {
	f, _, _ := newTestFallback(t, nil)

	start := time.Now()
	res, err := RaceWithFallback(context.Background(), f, failing[string](errors.New("404")), constant("local"), time.Second)

	require.NoError(t, err)
	assert.Equal(t, "local", res.Data)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, Unknown, f.Health().State(), "race does not touch the health cache")
}

// TestRaceWithFallback_CallerCancelled verifies a cancelled request is reported as such
// instead of being served from local.
func TestRaceWithFallback_CallerCancelled(t *testing.T) {
	f, _, _ := newTestFallback(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var localCalls atomic.Int32
	local := func(context.Context) (string, error) {
		localCalls.Add(1)
		return "local", nil
	}

	_, err := RaceWithFallback(ctx, f, slow("remote", time.Second, nil), local, time.Second)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrNoSource)
	assert.Zero(t, localCalls.Load())
}

// TestClientFirst_ReturnsLocalThenUpdates loads five local posts immediately and reports
// the six remote posts once through the callback.
func TestClientFirst_ReturnsLocalThenUpdates(t *testing.T) {
	f, _, rec := newTestFallback(t, nil)

	localPosts := []string{"1", "2", "3", "4", "5"}
	remotePosts := []string{"1", "2", "3", "4", "5", "6"}

	var (
		mu      sync.Mutex
		updates [][]string
	)
	onUpdate := func(posts []string) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, posts)
	}

	start := time.Now()
	res, err := ClientFirst(context.Background(), f, slow(remotePosts, 200*time.Millisecond, nil), constant(localPosts), onUpdate)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, localPosts, res.Data)
	assert.Equal(t, SourceLocal, res.Source)
	assert.Less(t, elapsed, 100*time.Millisecond)

	f.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, updates, 1)
	assert.Len(t, updates[0], 6)
	assert.Len(t, res.Data, 5)
	assert.Equal(t, 1, rec.syncCount(SyncUpdated))
}

// TestClientFirst_NoUpdateWhenEqual verifies the callback stays silent when remote matches.
func TestClientFirst_NoUpdateWhenEqual(t *testing.T) {
	f, _, rec := newTestFallback(t, nil)

	called := false
	res, err := ClientFirst(context.Background(), f, constant([]string{"a"}), constant([]string{"a"}), func([]string) { called = true })
	f.Wait()

	require.NoError(t, err)
	assert.Equal(t, SourceLocal, res.Source)
	assert.False(t, called)
	assert.Equal(t, 1, rec.syncCount(SyncUnchanged))
}

// TestClientFirst_BackgroundFailureIsSwallowed verifies remote errors never reach the caller.
func TestClientFirst_BackgroundFailureIsSwallowed(t *testing.T) {
	f, _, rec := newTestFallback(t, nil)

	called := false
	res, err := ClientFirst(context.Background(), f, failing[string](errors.New("backend down")), constant("local"), func(string) { called = true })
	f.Wait()

	require.NoError(t, err)
	assert.Equal(t, "local", res.Data)
	assert.False(t, called)
	assert.Equal(t, 1, rec.syncCount(SyncFailed))
}

// TestClientFirst_SurvivesRequestCancellation verifies the background sync outlives the
// request that started it.
func TestClientFirst_SurvivesRequestCancellation(t *testing.T) {
	f, _, _ := newTestFallback(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	updated := make(chan string, 1)
	_, err := ClientFirst(ctx, f, slow("remote", 100*time.Millisecond, nil), constant("local"), func(v string) { updated <- v })
	require.NoError(t, err)
	cancel()

	f.Wait()
	select {
	case v := <-updated:
		assert.Equal(t, "remote", v)
	default:
		t.Fatal("expected background update after request cancellation")
	}
}

// TestClientFirst_NilCallback verifies the callback is optional.
func TestClientFirst_NilCallback(t *testing.T) {
	f, _, _ := newTestFallback(t, nil)

	res, err := ClientFirst[string](context.Background(), f, constant("remote"), constant("local"), nil)
	f.Wait()

	require.NoError(t, err)
	assert.Equal(t, "local", res.Data)
}

// TestClientFirst_LocalFailureWaitsForRemote verifies remote is awaited when local is missing.
func TestClientFirst_LocalFailureWaitsForRemote(t *testing.T) {
	f, _, _ := newTestFallback(t, nil)

	res, err := ClientFirst[string](context.Background(), f, constant("remote"), failing[string](errors.New("no such file")), nil)
	require.NoError(t, err)
	assert.Equal(t, "remote", res.Data)
	assert.Equal(t, SourceRemote, res.Source)

	_, err = ClientFirst[string](context.Background(), f, failing[string](errors.New("down")), failing[string](errors.New("no such file")), nil)
	assert.ErrorIs(t, err, ErrNoSource)
}

// TestStrategies_Idempotent verifies repeated loads with unchanged tiers agree.
func TestStrategies_Idempotent(t *testing.T) {
	f, _, _ := newTestFallback(t, nil)
	remote := constant(blogList{Blogs: []string{"a", "b"}})
	local := constant(blogList{Blogs: []string{"a"}})

	first, err := SmartLoad(context.Background(), f, remote, local, time.Second, false)
	require.NoError(t, err)
	second, err := SmartLoad(context.Background(), f, remote, local, time.Second, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	first, err = RaceWithFallback(context.Background(), f, remote, local, time.Second)
	require.NoError(t, err)
	second, err = RaceWithFallback(context.Background(), f, remote, local, time.Second)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
