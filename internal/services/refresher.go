package services

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// refreshJob re-runs one cache key through the normal GetOrFetch path.
type refreshJob struct {
	key string
	run func(ctx context.Context) error
}

// Refresher proactively warms registered cache keys so that user requests
// mostly land on fresh entries. It is an optimization only: skipping a tick
// costs latency, never correctness. One Refresher is started at process
// startup and runs for the process lifetime.
type Refresher struct {
	cache    *Cache
	interval time.Duration
	timeout  time.Duration

	mu   sync.Mutex
	jobs []refreshJob

	startOnce sync.Once
	now       func() time.Time
}

func NewRefresher(cache *Cache, interval, timeout time.Duration) *Refresher {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Refresher{cache: cache, interval: interval, timeout: timeout, now: time.Now}
}

// Register adds a key to the warm set. The run func must go through the
// cache's GetOrFetch so the coalescing guarantee holds; the refresher never
// touches cache entries directly.
func (r *Refresher) Register(key string, run func(ctx context.Context) error) {
	r.mu.Lock()
	r.jobs = append(r.jobs, refreshJob{key: key, run: run})
	r.mu.Unlock()
}

// Start launches the ticker goroutine. Subsequent calls are no-ops.
func (r *Refresher) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		go r.loop(ctx)
	})
}

func (r *Refresher) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick fires a background refresh for every job whose key has never been
// loaded or lapses within one tick period. Each refresh is independently
// timed out, so a slow provider cannot wedge the loop.
func (r *Refresher) tick(ctx context.Context) {
	r.mu.Lock()
	jobs := make([]refreshJob, len(r.jobs))
	copy(jobs, r.jobs)
	r.mu.Unlock()

	deadline := r.now().Add(r.interval)
	for _, j := range jobs {
		exp, ok := r.cache.ExpiresAt(j.key)
		if ok && exp.After(deadline) {
			continue
		}
		go func(j refreshJob) {
			runCtx := ctx
			var cancel context.CancelFunc
			if r.timeout > 0 {
				runCtx, cancel = context.WithTimeout(ctx, r.timeout)
				defer cancel()
			}
			if err := j.run(runCtx); err != nil {
				log.WithFields(log.Fields{"key": j.key, "err": err}).Warn("background refresh failed")
			}
		}(j)
	}
}
