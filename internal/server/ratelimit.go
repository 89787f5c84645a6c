package server

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"kidzone/internal/handler"
	"kidzone/internal/pkg/apperr"
)

// maxLimiters bounds the limiter map; past it the map is reset.
const maxLimiters = 10000

// RateLimiter throttles requests per caller, or per IP for anonymous callers.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a limiter allowing rps sustained requests with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxLimiters {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

// Allow reports whether a request for key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

// Handler must run after Authenticate so the caller is known.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := handler.Caller(c).String()
		if key == "" {
			key = "ip:" + c.IP()
		}

		if !rl.Allow(key) {
			log.Warn().
				Str("key", key).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Msg("Rate limit exceeded")
			return apperr.New(apperr.KindRateLimited, "Too many requests, slow down")
		}
		return c.Next()
	}
}
