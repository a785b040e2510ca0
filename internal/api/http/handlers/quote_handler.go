package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/travel-insurance-service/internal/api/dto"
	"github.com/spec-kit/travel-insurance-service/internal/assistcard"
	"github.com/spec-kit/travel-insurance-service/internal/auth"
	"github.com/spec-kit/travel-insurance-service/internal/service"
	apperrors "github.com/spec-kit/travel-insurance-service/pkg/util/errorutil"
)

// QuoteHandler exposes quoting and quote-snapshot endpoints.
type QuoteHandler struct {
	quotes *service.QuoteService
}

// NewQuoteHandler constructs handler.
func NewQuoteHandler(quoteService *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quoteService}
}

// QuoteProducts handles POST /quotes/products.
func (h *QuoteHandler) QuoteProducts(c *fiber.Ctx) error {
	var req dto.QuoteProductsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	resp, err := h.quotes.QuoteProducts(c.Context(), assistcard.QuoteProductRequest{
		OriginCode:  req.OriginCode,
		Destination: req.DestinationCode,
		BeginDate:   req.BeginDate,
		EndDate:     req.EndDate,
		Passengers:  toQuotePassengers(req.Passengers),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": resp})
}

// QuoteAddons handles POST /quotes/addons.
func (h *QuoteHandler) QuoteAddons(c *fiber.Ctx) error {
	var req dto.QuoteAddonsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	resp, err := h.quotes.QuoteAddons(c.Context(), assistcard.QuoteAddonsRequest{
		ProductCode: req.ProductCode,
		RateCode:    req.RateCode,
		BeginDate:   req.BeginDate,
		EndDate:     req.EndDate,
		Passengers:  toQuotePassengers(req.Passengers),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": resp})
}

// SaveQuote handles POST /quotes.
func (h *QuoteHandler) SaveQuote(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.SaveQuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	snapshot, err := h.quotes.SaveQuote(c.Context(), principal.User.ID, service.SaveQuoteInput{
		OriginCode:    req.OriginCode,
		Destination:   req.DestinationCode,
		BeginDate:     req.BeginDate,
		EndDate:       req.EndDate,
		TravelerCount: req.TravelerCount,
		Passengers:    dto.ToSnapshotPassengers(req.Passengers),
		ProductCode:   req.ProductCode,
		RateCode:      req.RateCode,
		Total:         req.Total,
		Currency:      req.Currency,
		Addons:        dto.ToSelectedAddons(req.Addons),
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.SaveQuoteResponse{ID: snapshot.ID, ExpiresAt: snapshot.ExpiresAt},
	})
}

// GetQuote handles GET /quotes/:id.
func (h *QuoteHandler) GetQuote(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	snapshot, err := h.quotes.GetQuote(c.Context(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.QuoteSnapshotResponse{
		ID:              snapshot.ID,
		OriginCode:      snapshot.OriginCode,
		DestinationCode: snapshot.Destination,
		BeginDate:       snapshot.BeginDate,
		EndDate:         snapshot.EndDate,
		TravelerCount:   snapshot.TravelerCount,
		Passengers:      snapshot.Passengers,
		ProductCode:     snapshot.ProductCode,
		RateCode:        snapshot.RateCode,
		Total:           snapshot.Total,
		Currency:        snapshot.Currency,
		Addons:          snapshot.Addons,
		Status:          snapshot.Status,
		ExpiresAt:       snapshot.ExpiresAt,
		CreatedAt:       snapshot.CreatedAt,
	}})
}

func toQuotePassengers(in []dto.QuotePassengerRequest) []assistcard.QuotePassenger {
	out := make([]assistcard.QuotePassenger, 0, len(in))
	for _, p := range in {
		out = append(out, assistcard.QuotePassenger{
			BirthDate:   p.BirthDate,
			CountryCode: p.CountryCode,
			Age:         p.Age,
		})
	}
	return out
}
