// Package handler provides the HTTP handlers of the kidzone API.
package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"kidzone/internal/model"
	"kidzone/internal/pkg/apperr"
)

// CallerKey is the fiber local holding the authenticated principal.
const CallerKey = "principal"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// SetCaller stores the authenticated principal on the request.
func SetCaller(c *fiber.Ctx, p model.Principal) {
	c.Locals(CallerKey, p)
}

// Caller returns the authenticated principal, or the anonymous principal.
func Caller(c *fiber.Ctx) model.Principal {
	p, _ := c.Locals(CallerKey).(model.Principal)
	return p
}

// ErrorHandler writes err as an ErrorResponse. It is installed as the fiber
// app's error handler so handlers can simply return service errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(ErrorResponse{Error: fe.Message, Code: codeForStatus(fe.Code)})
	}

	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	msg := err.Error()
	if kind == apperr.KindTransient {
		log.Error().
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("principal", Caller(c).String()).
			Msg("Request failed")
		msg = "Something went wrong, please try again"
	}

	return c.Status(status).JSON(ErrorResponse{Error: msg, Code: string(kind)})
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusUnauthorized:
		return string(apperr.KindUnauthenticated)
	case fiber.StatusForbidden:
		return string(apperr.KindUnauthorized)
	case fiber.StatusTooManyRequests:
		return string(apperr.KindRateLimited)
	case fiber.StatusNotFound:
		return string(apperr.KindNotFound)
	}
	if status >= 400 && status < 500 {
		return string(apperr.KindInvalid)
	}
	return string(apperr.KindTransient)
}

// bind decodes the JSON body into v. An empty body leaves v untouched.
func bind(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(v); err != nil {
		return apperr.Wrap(apperr.KindInvalid, err, "invalid request body")
	}
	return nil
}
