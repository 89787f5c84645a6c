package handler

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"kidzone/internal/service"
)

// GameHandler serves the game catalog, game plays, saved states and the
// admin activity feed.
type GameHandler struct {
	activity *service.ActivityService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(activity *service.ActivityService) *GameHandler {
	return &GameHandler{activity: activity}
}

// PlayRequest is the optional body of POST /v1/games/:gameId/play.
type PlayRequest struct {
	GameName string `json:"game_name"`
}

// SaveStateRequest is the body of PUT /v1/games/:gameId/state.
type SaveStateRequest struct {
	GameName string          `json:"game_name"`
	State    json.RawMessage `json:"state"`
}

// Catalog handles GET /v1/games.
func (h *GameHandler) Catalog(c *fiber.Ctx) error {
	return c.JSON(h.activity.Games())
}

// Play handles POST /v1/games/:gameId/play.
func (h *GameHandler) Play(c *fiber.Ctx) error {
	var req PlayRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	event, err := h.activity.RecordGamePlay(c.UserContext(), Caller(c), c.Params("gameId"), req.GameName)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// SaveState handles PUT /v1/games/:gameId/state.
func (h *GameHandler) SaveState(c *fiber.Ctx) error {
	var req SaveStateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	gs, err := h.activity.SaveGameState(c.UserContext(), Caller(c), c.Params("gameId"), req.GameName, req.State)
	if err != nil {
		return err
	}
	return c.JSON(gs)
}

// GetState handles GET /v1/games/:gameId/state.
func (h *GameHandler) GetState(c *fiber.Ctx) error {
	gs, err := h.activity.GetGameState(c.UserContext(), Caller(c), c.Params("gameId"))
	if err != nil {
		return err
	}
	return c.JSON(gs)
}

// Activity handles GET /v1/admin/activity?limit=N.
func (h *GameHandler) Activity(c *fiber.Ctx) error {
	events, err := h.activity.GetRecentActivityEvents(c.UserContext(), Caller(c), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(events)
}
