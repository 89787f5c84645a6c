package handler

import "github.com/gofiber/fiber/v2"

// Handlers groups every API handler.
type Handlers struct {
	Approval *ApprovalHandler
	Trophy   *TrophyHandler
	Game     *GameHandler
	Spin     *SpinHandler
	Profile  *ProfileHandler
}

// Register mounts the API routes on r.
func (h *Handlers) Register(r fiber.Router) {
	r.Get("/bootstrap", h.Profile.Bootstrap)
	r.Get("/me/admin", h.Approval.IsAdmin)

	r.Post("/approval/request", h.Approval.Request)
	r.Get("/approval/me", h.Approval.Me)

	admin := r.Group("/admin")
	admin.Get("/approvals", h.Approval.List)
	admin.Put("/approvals/:principal", h.Approval.Set)
	admin.Get("/activity", h.Game.Activity)

	r.Get("/trophies", h.Trophy.Get)
	r.Post("/trophies/spend", h.Trophy.Spend)
	r.Post("/trophies/welcome-back", h.Trophy.WelcomeBack)
	r.Get("/leaderboard", h.Trophy.Leaderboard)

	r.Get("/games", h.Game.Catalog)
	r.Post("/games/:gameId/play", h.Game.Play)
	r.Put("/games/:gameId/state", h.Game.SaveState)
	r.Get("/games/:gameId/state", h.Game.GetState)

	r.Post("/spin", h.Spin.Spin)
	r.Get("/spin/status", h.Spin.Status)
	r.Get("/spin/history", h.Spin.History)
	r.Get("/spin/segments", h.Spin.Segments)

	r.Get("/profile", h.Profile.GetProfile)
	r.Post("/profile", h.Profile.CreateProfile)
	r.Patch("/profile", h.Profile.SaveProfile)

	r.Get("/pet", h.Profile.GetPet)
	r.Patch("/pet", h.Profile.SavePet)

	r.Get("/badges", h.Profile.Badges)
}
