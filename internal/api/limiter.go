package api

import (
	"sync"
	"sync/atomic"
	"time"

	"tourdesk/internal/config"

	"golang.org/x/time/rate"
)

const (
	defaultBurst = 5
	// buckets untouched for this long are dropped on the next sweep
	limiterIdleTTL = 10 * time.Minute
)

type clientBucket struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64
}

// rateLimiter keeps one token bucket per client key, shared by the HTTP
// middleware and the gRPC interceptor.
type rateLimiter struct {
	buckets   sync.Map
	cfg       config.APIRateLimitConfig
	lastSweep atomic.Int64
	now       func() time.Time
}

func newRateLimiter(cfg config.APIRateLimitConfig) *rateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	l := &rateLimiter{cfg: cfg, now: time.Now}
	l.lastSweep.Store(l.now().UnixNano())
	return l
}

// Allow takes one token from key's bucket. A non-positive RPS disables
// limiting.
func (l *rateLimiter) Allow(key string) bool {
	if l.cfg.RPS <= 0 {
		return true
	}
	now := l.now()
	b := l.bucket(key)
	b.lastSeen.Store(now.UnixNano())
	l.sweep(now)
	return b.lim.AllowN(now, 1)
}

func (l *rateLimiter) bucket(key string) *clientBucket {
	if v, ok := l.buckets.Load(key); ok {
		return v.(*clientBucket)
	}
	b := &clientBucket{lim: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)}
	actual, _ := l.buckets.LoadOrStore(key, b)
	return actual.(*clientBucket)
}

// sweep drops idle buckets at most once per limiterIdleTTL.
func (l *rateLimiter) sweep(now time.Time) {
	last := l.lastSweep.Load()
	if now.UnixNano()-last < int64(limiterIdleTTL) || !l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	cutoff := now.Add(-limiterIdleTTL).UnixNano()
	l.buckets.Range(func(key, v any) bool {
		if v.(*clientBucket).lastSeen.Load() < cutoff {
			l.buckets.Delete(key)
		}
		return true
	})
}
