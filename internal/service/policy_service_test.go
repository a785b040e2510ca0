package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/travel-insurance-service/internal/assistcard"
	"github.com/spec-kit/travel-insurance-service/internal/domain"
	"github.com/spec-kit/travel-insurance-service/internal/events"
	apperrors "github.com/spec-kit/travel-insurance-service/pkg/util/errorutil"
)

type fakeVoucherAPI struct {
	cancelErr  error
	rectifyErr error

	cancelled []string
	rectified []string
}

func (f *fakeVoucherAPI) CancelVoucher(_ context.Context, req assistcard.CancelVoucherRequest) (*assistcard.CancelVoucherResponse, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	f.cancelled = append(f.cancelled, req.VoucherCode)
	return &assistcard.CancelVoucherResponse{TraceID: "trc-cancel", VoucherCode: req.VoucherCode, Cancelled: true}, nil
}

func (f *fakeVoucherAPI) RectifyValidity(_ context.Context, req assistcard.RectifyValidityRequest) (*assistcard.RectifyValidityResponse, error) {
	if f.rectifyErr != nil {
		return nil, f.rectifyErr
	}
	f.rectified = append(f.rectified, req.VoucherCode)
	return &assistcard.RectifyValidityResponse{
		TraceID:     "trc-rectify",
		VoucherCode: req.VoucherCode,
		BeginDate:   req.BeginDate,
		EndDate:     req.EndDate,
	}, nil
}

func activePolicy() *domain.Policy {
	return &domain.Policy{
		ID:          "pol-1",
		UserID:      "user-1",
		VoucherCode: "V-1",
		BeginDate:   "2026/10/01",
		EndDate:     "2026/10/15",
		Status:      domain.PolicyStatusActive,
	}
}

func TestCancelPolicy_Success(t *testing.T) {
	api := &fakeVoucherAPI{}
	repo := &fakePolicyRepo{byID: map[string]*domain.Policy{"pol-1": activePolicy()}}
	dispatcher := &fakeDispatcher{}
	s := NewPolicyService(api, repo, dispatcher, zap.NewNop())

	policy, err := s.CancelPolicy(context.Background(), "user-1", "pol-1", "trip cancelled")
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyStatusCancelled, policy.Status)
	assert.Equal(t, []string{"V-1"}, api.cancelled)
	assert.Equal(t, domain.PolicyStatusCancelled, repo.statusUpdates["pol-1"])
	require.Len(t, dispatcher.byType(events.EventPolicyCancelled), 1)
}

func TestCancelPolicy_AlreadyCancelled(t *testing.T) {
	cancelled := activePolicy()
	cancelled.Status = domain.PolicyStatusCancelled
	repo := &fakePolicyRepo{byID: map[string]*domain.Policy{"pol-1": cancelled}}
	api := &fakeVoucherAPI{}
	s := NewPolicyService(api, repo, &fakeDispatcher{}, zap.NewNop())

	_, err := s.CancelPolicy(context.Background(), "user-1", "pol-1", "again")
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "CONFLICT", domainErr.Code)
	assert.Empty(t, api.cancelled, "provider must not be called twice")
}

func TestCancelPolicy_ProviderFailureLeavesLocalRowUntouched(t *testing.T) {
	api := &fakeVoucherAPI{cancelErr: &assistcard.APIError{
		Message:        "voucher locked",
		ProviderStatus: http.StatusConflict,
		Status:         http.StatusConflict,
	}}
	repo := &fakePolicyRepo{byID: map[string]*domain.Policy{"pol-1": activePolicy()}}
	s := NewPolicyService(api, repo, &fakeDispatcher{}, zap.NewNop())

	_, err := s.CancelPolicy(context.Background(), "user-1", "pol-1", "reason")
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "CONFLICT", domainErr.Code)
	assert.Empty(t, repo.statusUpdates)
}

func TestCancelPolicy_LocalUpdateFailureAfterProviderCancel(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	api := &fakeVoucherAPI{}
	repo := &fakePolicyRepo{
		byID:            map[string]*domain.Policy{"pol-1": activePolicy()},
		updateStatusErr: errors.New("write timeout"),
	}
	s := NewPolicyService(api, repo, &fakeDispatcher{}, zap.New(core))

	_, err := s.CancelPolicy(context.Background(), "user-1", "pol-1", "reason")
	require.Error(t, err)
	assert.Equal(t, []string{"V-1"}, api.cancelled)

	entries := logs.FilterMessageSnippet("local status update failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "V-1", entries[0].ContextMap()["voucher_code"])
}

func TestCancelPolicy_OwnershipAndExistence(t *testing.T) {
	repo := &fakePolicyRepo{byID: map[string]*domain.Policy{"pol-1": activePolicy()}}
	s := NewPolicyService(&fakeVoucherAPI{}, repo, &fakeDispatcher{}, zap.NewNop())

	_, err := s.CancelPolicy(context.Background(), "intruder", "pol-1", "r")
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "FORBIDDEN", domainErr.Code)

	_, err = s.GetPolicy(context.Background(), "user-1", "missing")
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestRectifyPolicyValidity_Success(t *testing.T) {
	api := &fakeVoucherAPI{}
	repo := &fakePolicyRepo{byID: map[string]*domain.Policy{"pol-1": activePolicy()}}
	s := NewPolicyService(api, repo, &fakeDispatcher{}, zap.NewNop())

	policy, err := s.RectifyPolicyValidity(context.Background(), "user-1", "pol-1", "2026/11/01", "2026/11/20")
	require.NoError(t, err)
	assert.Equal(t, "2026/11/01", policy.BeginDate)
	assert.Equal(t, "2026/11/20", policy.EndDate)
	assert.Equal(t, [2]string{"2026/11/01", "2026/11/20"}, repo.validityUpdates["pol-1"])
	assert.Equal(t, []string{"V-1"}, api.rectified)
}

func TestRectifyPolicyValidity_OnlyActivePolicies(t *testing.T) {
	cancelled := activePolicy()
	cancelled.Status = domain.PolicyStatusCancelled
	repo := &fakePolicyRepo{byID: map[string]*domain.Policy{"pol-1": cancelled}}
	api := &fakeVoucherAPI{}
	s := NewPolicyService(api, repo, &fakeDispatcher{}, zap.NewNop())

	_, err := s.RectifyPolicyValidity(context.Background(), "user-1", "pol-1", "2026/11/01", "2026/11/20")
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "CONFLICT", domainErr.Code)
	assert.Empty(t, api.rectified)
}
