package ports

import (
	"net/http"

	"github.com/Amund211/newsfeed/internal/ratelimiting"
)

func NewRateLimitMiddleware(rateLimiter ratelimiting.RequestRateLimiter, onLimitExceeded http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !rateLimiter.Consume(r) {
				onLimitExceeded(w, r)
				return
			}

			next(w, r)
		}
	}
}

// The first middleware is the outermost
func ComposeMiddlewares(middlewares ...func(http.HandlerFunc) http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	return func(h http.HandlerFunc) http.HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}
		return h
	}
}

// Token bucket limits shared by the newsfeed ports
func buildRateLimitMiddlewares(ipRefill ratelimiting.RefillPerSecond, ipBurst ratelimiting.BurstSize, subjectRefill ratelimiting.RefillPerSecond, subjectBurst ratelimiting.BurstSize) []func(http.HandlerFunc) http.HandlerFunc {
	ipLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(ipRefill, ipBurst)
	subjectLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(subjectRefill, subjectBurst)

	onLimitExceeded := func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusTooManyRequests, "rate limit exceeded")
	}

	return []func(http.HandlerFunc) http.HandlerFunc{
		NewRateLimitMiddleware(
			ratelimiting.NewRequestBasedRateLimiter(ipLimiter, ratelimiting.IPKeyFunc),
			onLimitExceeded,
		),
		NewRateLimitMiddleware(
			ratelimiting.NewRequestBasedRateLimiter(subjectLimiter, ratelimiting.SubjectIDKeyFunc),
			onLimitExceeded,
		),
	}
}
