package http

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultWritesPerMinute = 60

	rateWindow       = time.Minute
	staleWindowAfter = 10 * time.Minute
	sweepInterval    = 5 * time.Minute
)

// rateLimiter counts writes per client IP in fixed one-minute windows.
// A window opens on the first write and closes rateWindow later, however
// many writes arrive in between.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	windows map[string]*writeWindow
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

type writeWindow struct {
	start  time.Time
	writes int
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		limit = defaultWritesPerMinute
	}
	rl := &rateLimiter{
		limit:   limit,
		windows: make(map[string]*writeWindow),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.done:
			return
		}
	}
}

// sweep forgets clients whose window opened more than staleWindowAfter ago.
func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-staleWindowAfter)
	for ip, w := range rl.windows {
		if w.start.Before(cutoff) {
			delete(rl.windows, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// allow records a write from clientIP and reports whether it fits in the
// client's current window.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[clientIP]
	if !ok || now.Sub(w.start) >= rateWindow {
		rl.windows[clientIP] = &writeWindow{start: now, writes: 1}
		return true
	}

	w.writes++
	if w.writes <= rl.limit {
		return true
	}
	if metrics != nil {
		atomic.AddInt64(&metrics.rateLimitHits, 1)
	}
	return false
}
