package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"kidzone/internal/auth"
	"kidzone/internal/handler"
	"kidzone/internal/pkg/apperr"
)

// Authenticate resolves the bearer token into the caller's principal.
// Requests without a token proceed as anonymous; operations that need an
// identity reject them. A token that fails verification is rejected here.
func Authenticate(v *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if header == "" {
			handler.SetCaller(c, "")
			return c.Next()
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return apperr.New(apperr.KindUnauthenticated, "authorization must be a bearer token")
		}

		p, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			log.Debug().Err(err).Str("path", c.Path()).Msg("Rejected identity token")
			return apperr.New(apperr.KindUnauthenticated, "invalid identity token")
		}

		handler.SetCaller(c, p)
		return c.Next()
	}
}

// RequestLogger logs every request once its error, if any, has been
// written, so the logged status is the one the client sees.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		event := log.Debug()
		if status >= fiber.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Str("principal", handler.Caller(c).String()).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")

		return nil
	}
}
