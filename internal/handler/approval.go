package handler

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"kidzone/internal/model"
	"kidzone/internal/pkg/apperr"
	"kidzone/internal/service"
)

// ApprovalHandler serves the approval workflow.
type ApprovalHandler struct {
	approvals *service.ApprovalService
}

// NewApprovalHandler creates a new ApprovalHandler.
func NewApprovalHandler(approvals *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals}
}

// SetApprovalRequest is the body of PUT /v1/admin/approvals/:principal.
type SetApprovalRequest struct {
	Status model.ApprovalStatus `json:"status"`
}

// Request handles POST /v1/approval/request.
func (h *ApprovalHandler) Request(c *fiber.Ctx) error {
	rec, err := h.approvals.RequestApproval(c.UserContext(), Caller(c))
	if err != nil {
		return err
	}
	return c.JSON(rec)
}

// Me handles GET /v1/approval/me.
func (h *ApprovalHandler) Me(c *fiber.Ctx) error {
	approved, err := h.approvals.IsCallerApproved(c.UserContext(), Caller(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"approved": approved})
}

// IsAdmin handles GET /v1/me/admin.
func (h *ApprovalHandler) IsAdmin(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"is_admin": h.approvals.IsCallerAdmin(Caller(c))})
}

// List handles GET /v1/admin/approvals.
func (h *ApprovalHandler) List(c *fiber.Ctx) error {
	recs, err := h.approvals.ListApprovals(c.UserContext(), Caller(c))
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []*model.UserApproval{}
	}
	return c.JSON(recs)
}

// Set handles PUT /v1/admin/approvals/:principal.
func (h *ApprovalHandler) Set(c *fiber.Ctx) error {
	var req SetApprovalRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	// Path params arrive escaped; principals such as "auth0|123" must match their records.
	raw, err := url.PathUnescape(c.Params("principal"))
	if err != nil {
		return apperr.New(apperr.KindInvalid, "malformed principal")
	}

	rec, err := h.approvals.SetApproval(c.UserContext(), Caller(c), model.ParsePrincipal(raw), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(rec)
}
