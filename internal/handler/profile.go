package handler

import (
	"github.com/gofiber/fiber/v2"

	"kidzone/internal/model"
	"kidzone/internal/service"
)

// ProfileHandler serves the profile, the pet, badges and the bootstrap gate.
type ProfileHandler struct {
	profiles *service.ProfileService
	pets     *service.PetService
	badges   *service.BadgeService
	gate     *service.GateService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(
	profiles *service.ProfileService,
	pets *service.PetService,
	badges *service.BadgeService,
	gate *service.GateService,
) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, pets: pets, badges: badges, gate: gate}
}

// CreateProfileRequest is the body of POST /v1/profile.
type CreateProfileRequest struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// Bootstrap handles GET /v1/bootstrap.
func (h *ProfileHandler) Bootstrap(c *fiber.Ctx) error {
	state, err := h.gate.Resolve(c.UserContext(), Caller(c))
	if err != nil {
		return err
	}
	return c.JSON(state)
}

// GetProfile handles GET /v1/profile.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	pr, err := h.profiles.GetProfile(c.UserContext(), Caller(c))
	if err != nil {
		return err
	}
	return c.JSON(pr)
}

// CreateProfile handles POST /v1/profile.
func (h *ProfileHandler) CreateProfile(c *fiber.Ctx) error {
	var req CreateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pr, err := h.profiles.CreateProfile(c.UserContext(), Caller(c), req.Name, req.Age)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(pr)
}

// SaveProfile handles PATCH /v1/profile.
func (h *ProfileHandler) SaveProfile(c *fiber.Ctx) error {
	var patch model.ProfilePatch
	if err := bind(c, &patch); err != nil {
		return err
	}

	pr, err := h.profiles.SaveProfile(c.UserContext(), Caller(c), patch)
	if err != nil {
		return err
	}
	return c.JSON(pr)
}

// GetPet handles GET /v1/pet.
func (h *ProfileHandler) GetPet(c *fiber.Ctx) error {
	pet, err := h.pets.GetPet(c.UserContext(), Caller(c))
	if err != nil {
		return err
	}
	return c.JSON(pet)
}

// SavePet handles PATCH /v1/pet.
func (h *ProfileHandler) SavePet(c *fiber.Ctx) error {
	var patch model.PetPatch
	if err := bind(c, &patch); err != nil {
		return err
	}

	pet, err := h.pets.SavePet(c.UserContext(), Caller(c), patch)
	if err != nil {
		return err
	}
	return c.JSON(pet)
}

// Badges handles GET /v1/badges.
func (h *ProfileHandler) Badges(c *fiber.Ctx) error {
	badges, err := h.badges.ListBadges(c.UserContext(), Caller(c))
	if err != nil {
		return err
	}
	return c.JSON(badges)
}
