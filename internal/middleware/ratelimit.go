package middleware

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the per-IP limiter map.
const maxTrackedClients = 10000

// RateLimiter throttles requests per client IP.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	log      logrus.FieldLogger
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(requestsPerSecond, burst int, log logrus.FieldLogger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		log:      log,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		if len(rl.limiters) >= maxTrackedClients {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Handler returns the rate limiting middleware. Only the methods listed are
// throttled; with none listed every request is.
func (rl *RateLimiter) Handler(methods ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if len(methods) > 0 && !containsMethod(methods, c.Method()) {
			return c.Next()
		}

		// Stored as a map key past the request.
		key := utils.CopyString(c.IP())
		if !rl.getLimiter(key).Allow() {
			rl.log.WithFields(logrus.Fields{
				"ip":     key,
				"path":   c.Path(),
				"method": c.Method(),
			}).Warn("Rate limit exceeded")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many attempts, please try again later.",
			})
		}
		return c.Next()
	}
}

func containsMethod(methods []string, m string) bool {
	for _, x := range methods {
		if x == m {
			return true
		}
	}
	return false
}
