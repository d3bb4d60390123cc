package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"auroracast/internal/spaceweather"
)

// Prewarmer periodically refreshes the space weather cache so request paths
// mostly find a fresh snapshot instead of paying for the upstream fetch.
type Prewarmer struct {
	scheduler *gocron.Scheduler
	cache     *spaceweather.Cache
	interval  time.Duration
	timeout   time.Duration
}

// New creates a Prewarmer refreshing the cache every interval.
func New(cache *spaceweather.Cache, interval, timeout time.Duration) *Prewarmer {
	return &Prewarmer{
		scheduler: gocron.NewScheduler(time.UTC),
		cache:     cache,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
// Refresh failures are logged, never fatal: the cache's stale-fallback path
// covers the request side.
func (p *Prewarmer) Start() error {
	_, err := p.scheduler.Every(p.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if _, err := p.cache.Refresh(ctx); err != nil {
			log.Printf("scheduler: space weather prewarm failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	p.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (p *Prewarmer) Stop() {
	if p.scheduler != nil {
		p.scheduler.Stop()
	}
}
