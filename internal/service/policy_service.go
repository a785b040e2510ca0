package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/travel-insurance-service/internal/assistcard"
	"github.com/spec-kit/travel-insurance-service/internal/domain"
	"github.com/spec-kit/travel-insurance-service/internal/events"
	"github.com/spec-kit/travel-insurance-service/internal/repository"
	apperrors "github.com/spec-kit/travel-insurance-service/pkg/util/errorutil"
)

// PolicyService covers the post-issuance flows: listing, cancellation and
// validity rectification. Provider confirmation always precedes the local
// mutation; a provider failure leaves the local row untouched.
type PolicyService struct {
	api        VoucherAPI
	policies   repository.PolicyRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewPolicyService constructs the service.
func NewPolicyService(api VoucherAPI, policies repository.PolicyRepository, dispatcher events.Dispatcher, logger *zap.Logger) *PolicyService {
	return &PolicyService{api: api, policies: policies, dispatcher: dispatcher, logger: logger}
}

// ListPolicies returns the caller's policies, newest first.
func (s *PolicyService) ListPolicies(ctx context.Context, userID string, limit, offset int) ([]domain.Policy, error) {
	return s.policies.ListByUser(ctx, userID, limit, offset)
}

// GetPolicy fetches one policy with a strict ownership check.
func (s *PolicyService) GetPolicy(ctx context.Context, userID, id string) (*domain.Policy, error) {
	policy, err := s.policies.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("policy", map[string]any{"id": id})
		}
		return nil, err
	}
	if policy.UserID != userID {
		return nil, apperrors.NewForbidden("policy belongs to another user")
	}
	return policy, nil
}

// CancelPolicy voids the voucher at the provider, then flips the local
// status flag. Rows are never deleted; the audit trail stays.
func (s *PolicyService) CancelPolicy(ctx context.Context, userID, id, reason string) (*domain.Policy, error) {
	policy, err := s.GetPolicy(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if policy.Status == domain.PolicyStatusCancelled {
		return nil, apperrors.NewConflict("policy already cancelled", nil)
	}

	resp, err := s.api.CancelVoucher(ctx, assistcard.CancelVoucherRequest{
		VoucherCode: policy.VoucherCode,
		Reason:      reason,
	})
	if err != nil {
		return nil, mapExternalError(err)
	}

	if err := s.policies.UpdateStatus(ctx, policy.ID, domain.PolicyStatusCancelled); err != nil {
		// Provider already cancelled; the local flag is now behind.
		s.logger.Error("voucher cancelled at provider but local status update failed",
			zap.String("policy_id", policy.ID),
			zap.String("voucher_code", policy.VoucherCode),
			zap.String("trace_id", resp.TraceID),
			zap.Error(err),
		)
		return nil, err
	}
	policy.Status = domain.PolicyStatusCancelled

	s.publish(ctx, events.Event{
		Type:   events.EventPolicyCancelled,
		UserID: userID,
		Payload: events.PolicyCancelledPayload{
			PolicyID:    policy.ID,
			VoucherCode: policy.VoucherCode,
		},
	})
	return policy, nil
}

// RectifyPolicyValidity moves the coverage window at the provider, then
// mirrors the new dates locally.
func (s *PolicyService) RectifyPolicyValidity(ctx context.Context, userID, id, beginDate, endDate string) (*domain.Policy, error) {
	policy, err := s.GetPolicy(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if policy.Status != domain.PolicyStatusActive {
		return nil, apperrors.NewConflict("only active policies can be rectified", nil)
	}

	resp, err := s.api.RectifyValidity(ctx, assistcard.RectifyValidityRequest{
		VoucherCode: policy.VoucherCode,
		BeginDate:   beginDate,
		EndDate:     endDate,
	})
	if err != nil {
		return nil, mapExternalError(err)
	}

	if err := s.policies.UpdateValidity(ctx, policy.ID, beginDate, endDate); err != nil {
		s.logger.Error("validity rectified at provider but local date update failed",
			zap.String("policy_id", policy.ID),
			zap.String("voucher_code", policy.VoucherCode),
			zap.String("trace_id", resp.TraceID),
			zap.Error(err),
		)
		return nil, err
	}
	policy.BeginDate = beginDate
	policy.EndDate = endDate
	return policy, nil
}

func (s *PolicyService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
