package service

import (
	"context"
	"errors"

	"github.com/spec-kit/travel-insurance-service/internal/assistcard"
	apperrors "github.com/spec-kit/travel-insurance-service/pkg/util/errorutil"
)

// QuoteAPI is the read-only pricing surface of the insurer API.
type QuoteAPI interface {
	QuoteProducts(ctx context.Context, req assistcard.QuoteProductRequest) (*assistcard.QuoteProductResponse, error)
	QuoteAddons(ctx context.Context, req assistcard.QuoteAddonsRequest) (*assistcard.QuoteAddonsResponse, error)
}

// IssuanceAPI is the money-moving surface of the insurer API.
type IssuanceAPI interface {
	IssueVouchers(ctx context.Context, req assistcard.IssuanceRequest) (*assistcard.IssuanceResponse, error)
}

// VoucherAPI covers the secondary voucher flows.
type VoucherAPI interface {
	CancelVoucher(ctx context.Context, req assistcard.CancelVoucherRequest) (*assistcard.CancelVoucherResponse, error)
	RectifyValidity(ctx context.Context, req assistcard.RectifyValidityRequest) (*assistcard.RectifyValidityResponse, error)
}

// mapExternalError translates typed client errors into DomainErrors with the
// status class already chosen by the client's mapping table.
func mapExternalError(err error) error {
	var apiErr *assistcard.APIError
	if errors.As(err, &apiErr) {
		details := map[string]any{}
		if apiErr.TraceID != "" {
			details["traceId"] = apiErr.TraceID
		}
		if apiErr.ProviderCode != "" {
			details["providerCode"] = apiErr.ProviderCode
		}
		switch apiErr.Status {
		case 400:
			return apperrors.NewDomainError("PROVIDER_REJECTED", apiErr.Message, apiErr.Status, details)
		case 409:
			return apperrors.NewConflict(apiErr.Message, details)
		case 503:
			return apperrors.NewServiceUnavailable(apiErr.Message, details)
		default:
			return apperrors.NewBadGateway(apiErr.Message, details)
		}
	}

	var authErr *assistcard.AuthenticationError
	if errors.As(err, &authErr) {
		return apperrors.NewBadGateway("provider authentication failed", nil)
	}

	return err
}
