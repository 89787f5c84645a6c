package handler

import (
	"github.com/gofiber/fiber/v2"

	"kidzone/internal/service"
)

// SpinHandler serves the reward wheel.
type SpinHandler struct {
	spins *service.SpinService
}

// NewSpinHandler creates a new SpinHandler.
func NewSpinHandler(spins *service.SpinService) *SpinHandler {
	return &SpinHandler{spins: spins}
}

// Spin handles POST /v1/spin.
func (h *SpinHandler) Spin(c *fiber.Ctx) error {
	res, err := h.spins.Spin(c.UserContext(), Caller(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// Status handles GET /v1/spin/status.
func (h *SpinHandler) Status(c *fiber.Ctx) error {
	status, err := h.spins.Status(c.UserContext(), Caller(c))
	if err != nil {
		return err
	}
	return c.JSON(status)
}

// History handles GET /v1/spin/history?limit=N.
func (h *SpinHandler) History(c *fiber.Ctx) error {
	recs, err := h.spins.History(c.UserContext(), Caller(c), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(recs)
}

// Segments handles GET /v1/spin/segments.
func (h *SpinHandler) Segments(c *fiber.Ctx) error {
	return c.JSON(h.spins.Segments())
}
