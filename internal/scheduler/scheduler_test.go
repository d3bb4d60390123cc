package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auroracast/internal/spaceweather"
)

type countingFetcher struct {
	calls int64
}

func (f *countingFetcher) Fetch(ctx context.Context) (spaceweather.Snapshot, error) {
	atomic.AddInt64(&f.calls, 1)
	return spaceweather.Snapshot{KpIndex: 3}, nil
}

func TestPrewarmerRefreshesCache(t *testing.T) {
	fetcher := &countingFetcher{}
	cache := spaceweather.NewCache(fetcher, time.Minute, time.Second)

	p := New(cache, 50*time.Millisecond, time.Second)
	require.NoError(t, p.Start())
	defer p.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&fetcher.calls) >= 1
	}, 2*time.Second, 10*time.Millisecond, "prewarm job should hit upstream at least once")

	// A request arriving now finds the cache warm.
	snap, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, spaceweather.SourceCached, snap.Source)
}
