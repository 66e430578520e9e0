package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		sessions := 0
		if deps.Sessions != nil {
			sessions = deps.Sessions.Len()
		}
		return c.JSON(fiber.Map{
			"status":   "healthy",
			"uptime":   time.Since(startedAt).String(),
			"sessions": sessions,
			"version":  "dev",
		})
	}
}

// ReadyHandler checks the configured backends. Absent optional backends are
// reported but do not fail the probe.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allOK := true

		check := func(name string, configured bool, ping func() error) {
			if !configured {
				checks[name] = "not configured"
				return
			}
			if err := ping(); err != nil {
				checks[name] = "error: " + err.Error()
				allOK = false
				return
			}
			checks[name] = "ok"
		}

		check("database", deps.DB != nil, func() error { return deps.DB.Pool.Ping(ctx) })
		check("cache", deps.Cache != nil, func() error { return deps.Cache.Ping(ctx) })
		check("nats", deps.NATS != nil, func() error {
			if !deps.NATS.IsConnected() {
				return errDisconnected
			}
			return nil
		})

		if deps.Sessions == nil {
			checks["sessions"] = "not configured"
			allOK = false
		} else {
			checks["sessions"] = "ok"
		}

		status := "ready"
		code := fiber.StatusOK
		if !allOK {
			status = "not ready"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}

var errDisconnected = errors.New("disconnected")
