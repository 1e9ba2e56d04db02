package router

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/go-i2p/logger"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a node refuses a message because its
// inbound budget is exhausted.
var ErrRateLimited = errors.New("rate limit exceeded")

// InboundLimiter bounds the rate at which a node accepts messages.
// It uses a token bucket: tokens replenish at perSecond, up to burst.
type InboundLimiter struct {
	limiter *rate.Limiter

	// Statistics
	allowed  atomic.Uint64
	rejected atomic.Uint64
}

// LimiterStats reports how many messages a limiter let through or refused.
type LimiterStats struct {
	Allowed  uint64 `json:"allowed"`
	Rejected uint64 `json:"rejected"`
}

// NewInboundLimiter creates a limiter. A non-positive perSecond disables limiting.
func NewInboundLimiter(perSecond float64, burst int) *InboundLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &InboundLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Allow consumes one token, returning ErrRateLimited when none is left.
func (l *InboundLimiter) Allow() error {
	if l == nil {
		return nil
	}
	if !l.limiter.Allow() {
		l.rejected.Add(1)
		return ErrRateLimited
	}
	l.allowed.Add(1)
	return nil
}

// Stats returns the counters accumulated so far.
func (l *InboundLimiter) Stats() LimiterStats {
	if l == nil {
		return LimiterStats{}
	}
	return LimiterStats{Allowed: l.allowed.Load(), Rejected: l.rejected.Load()}
}

// Middleware answers 429 to requests arriving over budget.
func (l *InboundLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := l.Allow(); err != nil {
			log.WithFields(logger.Fields{
				"at":     "(InboundLimiter) Middleware",
				"path":   r.URL.Path,
				"reason": "rate_limited",
			}).Warn("Dropping request over rate limit")
			http.Error(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
