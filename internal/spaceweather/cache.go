package spaceweather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache wraps a Fetcher with a TTL cache, single-flight refresh, and
// serve-stale-on-error semantics. One instance is shared process-wide; the
// snapshot is global and identical for every location.
type Cache struct {
	fetcher        Fetcher
	ttl            time.Duration
	refreshTimeout time.Duration

	mu   sync.RWMutex
	snap *Snapshot

	group singleflight.Group
}

// NewCache builds a cache around fetcher. ttl is the freshness window
// (matching the upstream update cadence); refreshTimeout bounds one refresh
// attempt so a request is never blocked indefinitely.
func NewCache(fetcher Fetcher, ttl, refreshTimeout time.Duration) *Cache {
	return &Cache{
		fetcher:        fetcher,
		ttl:            ttl,
		refreshTimeout: refreshTimeout,
	}
}

// Get returns the current snapshot. A fresh cached snapshot is returned
// unchanged (source=cached). A stale cache triggers a coalesced refresh;
// if the refresh fails and a prior snapshot exists it is served regardless
// of age (source=fallback). Only a cold start with a failing upstream
// surfaces ErrUpstreamUnavailable.
func (c *Cache) Get(ctx context.Context) (Snapshot, error) {
	if snap, ok := c.cached(); ok {
		snap.Source = SourceCached
		return snap, nil
	}

	snap, err := c.Refresh(ctx)
	if err == nil {
		return snap, nil
	}

	// Serve stale: upstream errors never reach the caller while any older
	// snapshot exists.
	c.mu.RLock()
	prior := c.snap
	c.mu.RUnlock()
	if prior != nil {
		stale := *prior
		stale.Source = SourceFallback
		return stale, nil
	}

	return Snapshot{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
}

// Refresh forces a coalesced fetch from upstream. Concurrent callers share a
// single in-flight upstream request. Also used by the background prewarm job.
func (c *Cache) Refresh(ctx context.Context) (Snapshot, error) {
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		// A caller that queued behind a refresh finding the cache fresh
		// again must not trigger a second upstream call.
		if snap, ok := c.cached(); ok {
			snap.Source = SourceCached
			return snap, nil
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.refreshTimeout)
		defer cancel()

		snap, err := c.fetcher.Fetch(fetchCtx)
		if err != nil {
			return nil, err
		}

		snap.FetchedAt = time.Now().UTC()
		snap.Source = SourceLive

		c.mu.Lock()
		stored := snap
		c.snap = &stored
		c.mu.Unlock()

		return snap, nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

// cached returns a copy of the snapshot if it is within the TTL.
func (c *Cache) cached() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snap == nil || time.Since(c.snap.FetchedAt) >= c.ttl {
		return Snapshot{}, false
	}
	return *c.snap, true
}
