package dto

import (
	"time"

	"github.com/spec-kit/travel-insurance-service/internal/domain"
)

// PolicyResponse is the API shape of one issued policy.
type PolicyResponse struct {
	ID               string               `json:"id"`
	SnapshotID       string               `json:"snapshotId"`
	PassengerID      string               `json:"passengerId"`
	VoucherCode      string               `json:"voucherCode"`
	VoucherGroup     string               `json:"voucherGroup"`
	ProductCode      string               `json:"productCode"`
	RateCode         string               `json:"rateCode"`
	BeginDate        string               `json:"beginDate"`
	EndDate          string               `json:"endDate"`
	Total            float64              `json:"total"`
	Currency         string               `json:"currency"`
	PaymentMethod    string               `json:"paymentMethod,omitempty"`
	CardBrand        string               `json:"cardBrand,omitempty"`
	Installments     int                  `json:"installments,omitempty"`
	GatewayReference string               `json:"gatewayReference,omitempty"`
	Status           domain.PolicyStatus  `json:"status"`
	Addons           []domain.PolicyAddon `json:"addons,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// NewPolicyResponse maps a domain policy onto the API shape.
func NewPolicyResponse(p domain.Policy) PolicyResponse {
	return PolicyResponse{
		ID:               p.ID,
		SnapshotID:       p.SnapshotID,
		PassengerID:      p.PassengerID,
		VoucherCode:      p.VoucherCode,
		VoucherGroup:     p.VoucherGroup,
		ProductCode:      p.ProductCode,
		RateCode:         p.RateCode,
		BeginDate:        p.BeginDate,
		EndDate:          p.EndDate,
		Total:            p.Total,
		Currency:         p.Currency,
		PaymentMethod:    p.PaymentMethod,
		CardBrand:        p.CardBrand,
		Installments:     p.Installments,
		GatewayReference: p.GatewayReference,
		Status:           p.Status,
		Addons:           p.Addons,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// NewPolicyResponses maps a slice of domain policies.
func NewPolicyResponses(policies []domain.Policy) []PolicyResponse {
	out := make([]PolicyResponse, 0, len(policies))
	for _, p := range policies {
		out = append(out, NewPolicyResponse(p))
	}
	return out
}

// CancelPolicyRequest voids a policy.
type CancelPolicyRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// RectifyPolicyRequest moves a policy's coverage window.
type RectifyPolicyRequest struct {
	BeginDate string `json:"beginDate" validate:"required,acdate"`
	EndDate   string `json:"endDate" validate:"required,acdate"`
}
