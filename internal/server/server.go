// Package server assembles the fiber application serving the kidzone API.
package server

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"kidzone/internal/auth"
	"kidzone/internal/config"
	"kidzone/internal/handler"
	"kidzone/internal/metrics"
)

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server is the HTTP server.
type Server struct {
	app  *fiber.App
	addr string
}

// New builds the fiber app with middleware and routes. health may be nil.
func New(cfg config.ServerConfig, verifier *auth.Verifier, h *handler.Handlers, health HealthChecker) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "kidzone",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          handler.ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(metrics.Middleware())
	app.Use(RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:  "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		ExposeHeaders: "X-Request-ID",
		MaxAge:        86400,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if health != nil {
			if err := health.HealthCheck(c.UserContext()); err != nil {
				log.Warn().Err(err).Msg("Health check failed")
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	v1 := app.Group("/v1", Authenticate(verifier))
	if cfg.RateLimit > 0 {
		v1.Use(NewRateLimiter(cfg.RateLimit, cfg.RateBurst).Handler())
	}
	h.Register(v1)

	return &Server{app: app, addr: cfg.Addr}
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.addr).Msg("HTTP server listening")
	return s.app.Listen(s.addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
