package ratelimiting

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

type RateLimiter interface {
	Consume(key string) bool
}

type RefillPerSecond float64
type BurstSize int

// Token bucket per key
//
// Buckets idle for longer than 30 minutes are evicted.
type tokenBucketRateLimiter struct {
	limiters        *ttlcache.Cache[string, *rate.Limiter]
	refillPerSecond RefillPerSecond
	burstSize       BurstSize
}

func (l *tokenBucketRateLimiter) Consume(key string) bool {
	limiter, _ := l.limiters.GetOrSet(key, rate.NewLimiter(rate.Limit(l.refillPerSecond), int(l.burstSize)))
	return limiter.Value().Allow()
}

func NewTokenBucketRateLimiter(refillPerSecond RefillPerSecond, burstSize BurstSize) (RateLimiter, func()) {
	limiters := ttlcache.New[string, *rate.Limiter](
		ttlcache.WithTTL[string, *rate.Limiter](30 * time.Minute),
	)
	go limiters.Start()

	return &tokenBucketRateLimiter{
		limiters:        limiters,
		refillPerSecond: refillPerSecond,
		burstSize:       burstSize,
	}, limiters.Stop
}

type RequestRateLimiter interface {
	Consume(r *http.Request) bool
}

type requestBasedRateLimiter struct {
	limiter RateLimiter
	keyFunc func(r *http.Request) string
}

func (l *requestBasedRateLimiter) Consume(r *http.Request) bool {
	return l.limiter.Consume(l.keyFunc(r))
}

func NewRequestBasedRateLimiter(limiter RateLimiter, keyFunc func(r *http.Request) string) RequestRateLimiter {
	return &requestBasedRateLimiter{
		limiter: limiter,
		keyFunc: keyFunc,
	}
}

func IPKeyFunc(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// No port
		host = r.RemoteAddr
	}
	return fmt.Sprintf("ip: %s", host)
}

// Key on the subjectID path value
//
// NOTE: Rate limiting based on user controlled value
func SubjectIDKeyFunc(r *http.Request) string {
	subjectID := r.PathValue("subjectID")
	if subjectID == "" {
		subjectID = "<missing>"
	}
	return fmt.Sprintf("subject: %.128s", subjectID)
}
