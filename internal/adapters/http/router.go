package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/voltrip/internal/pkg/metrics"
)

// readTimeout bounds handlers that only read session state; routeTimeout
// covers a provider call followed by discovery.
const (
	readTimeout  = 5 * time.Second
	routeTimeout = 45 * time.Second
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Next: func(c *fiber.Ctx) bool {
			// WebSocket upgrades are long-lived and counted once.
			return c.Path() == "/ws"
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Post("/sessions", CreateSessionHandler(deps))
	v1.Get("/sessions/:id", timeout.NewWithContext(GetSessionHandler(deps), readTimeout))
	v1.Delete("/sessions/:id", DeleteSessionHandler(deps))
	v1.Put("/sessions/:id/origin", timeout.NewWithContext(SetEndpointHandler(deps, false), routeTimeout))
	v1.Put("/sessions/:id/destination", timeout.NewWithContext(SetEndpointHandler(deps, true), routeTimeout))
	v1.Post("/sessions/:id/route", timeout.NewWithContext(RouteHandler(deps), routeTimeout))
	v1.Post("/sessions/:id/toggle", timeout.NewWithContext(ToggleHandler(deps), routeTimeout))
	v1.Get("/sessions/:id/chargers", timeout.NewWithContext(ListChargersHandler(deps), readTimeout))
	v1.Get("/sessions/:id/notices", timeout.NewWithContext(NoticesHandler(deps), readTimeout))
	v1.Post("/surveys", timeout.NewWithContext(RequestSurveyHandler(deps), readTimeout))

	// GraphQL
	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), routeTimeout))

	// API documentation (Swagger UI)
	SetupDocs(app, deps.SpecPath)

	// WebSocket relay of session events
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		id := c.Query("session")
		if id == "" {
			return errBadRequest(c, "session query parameter is required")
		}
		if _, err := deps.Sessions.Get(id); err != nil {
			return errDomain(c, err)
		}
		if deps.NATS == nil {
			return errUnavailable(c, "event relay not configured")
		}
		c.Locals("session", id)
		return c.Next()
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS, deps.NATSPrefix)))
}
