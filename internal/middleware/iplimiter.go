package middleware

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const defaultLimiterIdle = 10 * time.Minute

// IPRateLimiter stores a rate limiter per key.  It backs NewTokenBucket
// when Redis is unavailable, so limits then apply per process.  A key's
// limiter is dropped after it has gone unused for the idle period.
type IPRateLimiter struct {
	ips *gocache.Cache
	mu  *sync.Mutex
	r   rate.Limit
	b   int
}

// NewIPRateLimiter creates a limiter allowing r events per second with
// bursts of b.  idle <= 0 uses ten minutes.
func NewIPRateLimiter(r rate.Limit, b int, idle time.Duration) *IPRateLimiter {
	if idle <= 0 {
		idle = defaultLimiterIdle
	}
	return &IPRateLimiter{
		ips: gocache.New(idle, idle),
		mu:  &sync.Mutex{},
		r:   r,
		b:   b,
	}
}

// AddIP creates a new limiter for key.
func (i *IPRateLimiter) AddIP(key string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.touch(key)
}

// GetLimiter returns the limiter for key, creating it on first use.
// Every call restarts the key's idle period.
func (i *IPRateLimiter) GetLimiter(key string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.touch(key)
}

// Len reports how many keys currently hold a limiter.
func (i *IPRateLimiter) Len() int {
	return i.ips.ItemCount()
}

func (i *IPRateLimiter) touch(key string) *rate.Limiter {
	var limiter *rate.Limiter
	if v, ok := i.ips.Get(key); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(i.r, i.b)
	}
	i.ips.SetDefault(key, limiter)
	return limiter
}
