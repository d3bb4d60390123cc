package spaceweather

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

// stubFetcher counts upstream calls and can be switched to fail or stall.
type stubFetcher struct {
	calls int64
	fail  atomic.Bool
	delay time.Duration
	snap  Snapshot
}

func (f *stubFetcher) Fetch(ctx context.Context) (Snapshot, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
	if f.fail.Load() {
		return Snapshot{}, errors.New("upstream down")
	}
	return f.snap, nil
}

func (f *stubFetcher) callCount() int64 {
	return atomic.LoadInt64(&f.calls)
}

func TestGetServesCachedWithinTTL(t *testing.T) {
	fetcher := &stubFetcher{snap: Snapshot{KpIndex: 4}}
	cache := NewCache(fetcher, time.Minute, time.Second)

	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceLive, first.Source)
	assert.False(t, first.FetchedAt.IsZero())

	second, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceCached, second.Source)
	assert.Equal(t, first.KpIndex, second.KpIndex)

	assert.EqualValues(t, 1, fetcher.callCount(), "second call within TTL must not hit upstream")
}

func TestGetCoalescesConcurrentRefreshes(t *testing.T) {
	fetcher := &stubFetcher{snap: Snapshot{KpIndex: 3}, delay: 50 * time.Millisecond}
	cache := NewCache(fetcher, time.Minute, time.Second)

	const callers = 16
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			snap, err := cache.Get(context.Background())
			assert.NoError(t, err)
			assert.InDelta(t, 3.0, snap.KpIndex, 0)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, fetcher.callCount(), "concurrent cold-start callers must share one upstream fetch")
}

func TestGetFallsBackToStaleSnapshotOnRefreshFailure(t *testing.T) {
	fetcher := &stubFetcher{snap: Snapshot{KpIndex: 5.33, GeomagneticStorm: true}}
	cache := NewCache(fetcher, time.Nanosecond, time.Second)

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	fetcher.fail.Store(true)
	time.Sleep(time.Millisecond) // let the snapshot age past the TTL

	snap, err := cache.Get(context.Background())
	require.NoError(t, err, "stale snapshot must shield the caller from upstream errors")
	assert.Equal(t, SourceFallback, snap.Source)
	assert.InDelta(t, 5.33, snap.KpIndex, 0)
	assert.True(t, snap.GeomagneticStorm)
}

func TestGetColdStartFailureSurfacesUpstreamUnavailable(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.fail.Store(true)
	cache := NewCache(fetcher, time.Minute, time.Second)

	_, err := cache.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestRefreshTimeoutBoundsTheUpstreamCall(t *testing.T) {
	fetcher := &stubFetcher{snap: Snapshot{KpIndex: 2}, delay: time.Second}
	cache := NewCache(fetcher, time.Minute, 20*time.Millisecond)

	start := time.Now()
	_, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
