package middleware

import (
	"github.com/gofiber/fiber/v2"
	fiberlimiter "github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/seu-repo/ai-waiter/pkg/config"
)

// RateLimit bounds requests per client IP. Voice turns are chatty but
// human paced, so the window is generous.
func RateLimit(cfg config.RateLimitingConfig) fiber.Handler {
	if !cfg.Enabled {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return fiberlimiter.New(fiberlimiter.Config{
		Max:        cfg.MaxRequests,
		Expiration: cfg.Window,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests",
			})
		},
	})
}
