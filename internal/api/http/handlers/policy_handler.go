package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/travel-insurance-service/internal/api/dto"
	"github.com/spec-kit/travel-insurance-service/internal/auth"
	"github.com/spec-kit/travel-insurance-service/internal/service"
	apperrors "github.com/spec-kit/travel-insurance-service/pkg/util/errorutil"
)

// PolicyHandler exposes post-issuance policy endpoints.
type PolicyHandler struct {
	policies *service.PolicyService
}

// NewPolicyHandler constructs handler.
func NewPolicyHandler(policyService *service.PolicyService) *PolicyHandler {
	return &PolicyHandler{policies: policyService}
}

// List handles GET /policies.
func (h *PolicyHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	policies, err := h.policies.ListPolicies(c.Context(), principal.User.ID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPolicyResponses(policies)})
}

// Get handles GET /policies/:id.
func (h *PolicyHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	policy, err := h.policies.GetPolicy(c.Context(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPolicyResponse(*policy)})
}

// Cancel handles POST /policies/:id/cancel.
func (h *PolicyHandler) Cancel(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.CancelPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	policy, err := h.policies.CancelPolicy(c.Context(), principal.User.ID, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPolicyResponse(*policy)})
}

// Rectify handles POST /policies/:id/rectify-validity.
func (h *PolicyHandler) Rectify(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.RectifyPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	policy, err := h.policies.RectifyPolicyValidity(c.Context(), principal.User.ID, c.Params("id"), req.BeginDate, req.EndDate)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPolicyResponse(*policy)})
}
