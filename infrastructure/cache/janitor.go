package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
)

// DefaultSweepInterval is how often the janitor removes expired entries.
const DefaultSweepInterval = time.Minute

// Janitor periodically sweeps expired entries from a cache.
type Janitor struct {
	cache    *Cache
	interval time.Duration
	onSweep  func(removed int)

	startOnce sync.Once
	started   atomic.Bool
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewJanitor creates a janitor. onSweep, when non-nil, runs after every sweep.
func NewJanitor(c *Cache, interval time.Duration, onSweep func(removed int)) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{
		cache:    c,
		interval: interval,
		onSweep:  onSweep,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is done or Stop is called.
func (j *Janitor) Start(ctx context.Context) {
	j.startOnce.Do(func() {
		j.started.Store(true)
		go j.run(ctx)
	})
}

func (j *Janitor) run(ctx context.Context) {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stop:
			return
		case <-ticker.C:
			removed := j.cache.Sweep()
			if removed > 0 {
				logging.Debug().
					Add(logging.Component("janitor"), logging.Count("expired", removed)).
					Msg("swept expired entries")
			}
			if j.onSweep != nil {
				j.onSweep(removed)
			}
		}
	}
}

// Stop ends the loop and waits for it to exit. It is safe to call more than once.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
	if j.started.Load() {
		<-j.done
	}
}
