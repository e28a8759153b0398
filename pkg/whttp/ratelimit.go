package whttp

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiters keeps one token bucket per host key. Waiting on one
// host's bucket never blocks requests bound for another host, so
// parallel fan-out across retailers is only paced per retailer.
type HostLimiters struct {
	mu       sync.Mutex
	interval time.Duration
	buckets  map[string]*rate.Limiter
}

// NewHostLimiters creates a limiter set with the given minimum spacing
// between requests to the same host.
func NewHostLimiters(interval time.Duration) *HostLimiters {
	return &HostLimiters{
		interval: interval,
		buckets:  make(map[string]*rate.Limiter),
	}
}

func (h *HostLimiters) limiter(key string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.buckets[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(h.interval), 1)
		h.buckets[key] = l
	}
	return l
}

// Wait blocks until the host's bucket grants a token or ctx is done.
func (h *HostLimiters) Wait(ctx context.Context, key string) error {
	return h.limiter(key).Wait(ctx)
}
