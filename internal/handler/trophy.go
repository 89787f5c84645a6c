package handler

import (
	"github.com/gofiber/fiber/v2"

	"kidzone/internal/service"
)

// TrophyHandler serves the trophy balance and the leaderboard.
type TrophyHandler struct {
	economy     *service.EconomyService
	leaderboard *service.LeaderboardService
}

// NewTrophyHandler creates a new TrophyHandler.
func NewTrophyHandler(economy *service.EconomyService, leaderboard *service.LeaderboardService) *TrophyHandler {
	return &TrophyHandler{economy: economy, leaderboard: leaderboard}
}

// BalanceResponse carries a trophy balance.
type BalanceResponse struct {
	Trophies int64 `json:"trophies"`
}

// Get handles GET /v1/trophies.
func (h *TrophyHandler) Get(c *fiber.Ctx) error {
	balance, err := h.economy.GetTrophies(c.UserContext(), Caller(c))
	if err != nil {
		return err
	}
	return c.JSON(BalanceResponse{Trophies: balance})
}

// Spend handles POST /v1/trophies/spend: one game session's cost.
func (h *TrophyHandler) Spend(c *fiber.Ctx) error {
	balance, err := h.economy.UpdateGamesTrophies(c.UserContext(), Caller(c))
	if err != nil {
		return err
	}
	return c.JSON(BalanceResponse{Trophies: balance})
}

// WelcomeBack handles POST /v1/trophies/welcome-back.
func (h *TrophyHandler) WelcomeBack(c *fiber.Ctx) error {
	res, err := h.economy.WelcomeBackReward(c.UserContext(), Caller(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// Leaderboard handles GET /v1/leaderboard?limit=N.
func (h *TrophyHandler) Leaderboard(c *fiber.Ctx) error {
	entries, err := h.leaderboard.Top(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(entries)
}
