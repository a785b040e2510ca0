package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/travel-insurance-service/internal/api/dto"
	"github.com/spec-kit/travel-insurance-service/internal/auth"
	"github.com/spec-kit/travel-insurance-service/internal/service"
	apperrors "github.com/spec-kit/travel-insurance-service/pkg/util/errorutil"
)

// IssuanceHandler exposes the policy issuance endpoint.
type IssuanceHandler struct {
	issuance *service.IssuanceService
}

// NewIssuanceHandler constructs handler.
func NewIssuanceHandler(issuanceService *service.IssuanceService) *IssuanceHandler {
	return &IssuanceHandler{issuance: issuanceService}
}

// Issue handles POST /policies/issue. Payload validation runs before
// anything else so that malformed or un-tokenized card data never reaches
// the provider.
func (h *IssuanceHandler) Issue(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.IssuePolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	result, err := h.issuance.IssuePolicy(c.Context(), principal.User.ID, toIssuanceInput(req))
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.IssuePolicyResponse{
			SnapshotID:   result.Snapshot.ID,
			VoucherGroup: result.Policies[0].VoucherGroup,
			Vouchers:     result.Vouchers,
			Policies:     dto.NewPolicyResponses(result.Policies),
		},
	})
}

func toIssuanceInput(req dto.IssuePolicyRequest) service.IssuanceInput {
	passengers := make([]service.IssuancePassengerInput, 0, len(req.Passengers))
	for _, p := range req.Passengers {
		passengers = append(passengers, service.IssuancePassengerInput{
			FirstName:          p.FirstName,
			LastName:           p.LastName,
			DocumentType:       p.DocumentType,
			DocumentNumber:     p.DocumentNumber,
			BirthDate:          p.BirthDate,
			CountryCode:        p.CountryCode,
			Email:              p.Email,
			Phone:              p.Phone,
			Street:             p.Street,
			Number:             p.Number,
			City:               p.City,
			State:              p.State,
			ZipCode:            p.ZipCode,
			PreferredFirstName: p.PreferredFirstName,
			PreferredLastName:  p.PreferredLastName,
			Addons:             dto.ToSelectedAddons(p.Addons),
		})
	}

	return service.IssuanceInput{
		OriginCode:  req.OriginCode,
		Destination: req.DestinationCode,
		BeginDate:   req.BeginDate,
		EndDate:     req.EndDate,
		ProductCode: req.ProductCode,
		RateCode:    req.RateCode,
		Total:       req.Total,
		Currency:    req.Currency,
		Passengers:  passengers,
		Payment:     req.Payment.ToPaymentBlock(),
	}
}
