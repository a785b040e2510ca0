package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/travel-insurance-service/internal/assistcard"
	"github.com/spec-kit/travel-insurance-service/internal/config"
	"github.com/spec-kit/travel-insurance-service/internal/domain"
	apperrors "github.com/spec-kit/travel-insurance-service/pkg/util/errorutil"
)

type fakeQuoteAPI struct {
	products    *assistcard.QuoteProductResponse
	productsErr error

	addons    *assistcard.QuoteAddonsResponse
	addonsErr error

	calls int
}

func (f *fakeQuoteAPI) QuoteProducts(context.Context, assistcard.QuoteProductRequest) (*assistcard.QuoteProductResponse, error) {
	f.calls++
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	return f.products, nil
}

func (f *fakeQuoteAPI) QuoteAddons(context.Context, assistcard.QuoteAddonsRequest) (*assistcard.QuoteAddonsResponse, error) {
	f.calls++
	if f.addonsErr != nil {
		return nil, f.addonsErr
	}
	return f.addons, nil
}

func newQuoteService(api *fakeQuoteAPI, snapshots *fakeSnapshotRepo, logger *zap.Logger) *QuoteService {
	return NewQuoteService(config.AssistcardConfig{}, QuoteDependencies{
		API:          api,
		SnapshotRepo: snapshots,
	}, logger)
}

func saveInput() SaveQuoteInput {
	return SaveQuoteInput{
		OriginCode:    "EZE",
		Destination:   "MAD",
		BeginDate:     "2026/10/01",
		EndDate:       "2026/10/15",
		TravelerCount: 1,
		Passengers: []domain.SnapshotPassenger{
			{Kind: domain.SnapshotPassengerMinimal, CountryCode: "AR", BirthDate: "1990/05/04"},
		},
		ProductCode: "AC150",
		RateCode:    "PROMO",
		Total:       90,
		Currency:    "USD",
	}
}

func TestQuoteProducts_MapsProviderRejection(t *testing.T) {
	api := &fakeQuoteAPI{productsErr: &assistcard.APIError{
		TraceID:        "trc-q",
		ProviderCode:   "INVALID_DESTINATION",
		Message:        "unknown destination",
		ProviderStatus: http.StatusBadRequest,
		Status:         http.StatusBadRequest,
	}}
	s := newQuoteService(api, &fakeSnapshotRepo{}, zap.NewNop())

	_, err := s.QuoteProducts(context.Background(), assistcard.QuoteProductRequest{})
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "PROVIDER_REJECTED", domainErr.Code)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus)
	assert.Equal(t, "INVALID_DESTINATION", domainErr.Details["providerCode"])
}

func TestQuoteAddons_MapsNetworkFailure(t *testing.T) {
	api := &fakeQuoteAPI{addonsErr: &assistcard.APIError{
		Message: "connection refused",
		Status:  http.StatusServiceUnavailable,
	}}
	s := newQuoteService(api, &fakeSnapshotRepo{}, zap.NewNop())

	_, err := s.QuoteAddons(context.Background(), assistcard.QuoteAddonsRequest{})
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", domainErr.Code)
	assert.Equal(t, http.StatusServiceUnavailable, domainErr.HTTPStatus)
}

func TestSaveQuote_RequiresProductSelection(t *testing.T) {
	s := newQuoteService(&fakeQuoteAPI{}, &fakeSnapshotRepo{}, zap.NewNop())

	input := saveInput()
	input.ProductCode = ""

	_, err := s.SaveQuote(context.Background(), "user-1", input)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestSaveQuote_CreatesSavedSnapshot(t *testing.T) {
	snapshots := &fakeSnapshotRepo{}
	s := newQuoteService(&fakeQuoteAPI{}, snapshots, zap.NewNop())

	snapshot, err := s.SaveQuote(context.Background(), "user-1", saveInput())
	require.NoError(t, err)
	assert.Equal(t, "snap-1", snapshot.ID)
	assert.Equal(t, domain.QuoteStatusSaved, snapshot.Status)
	assert.Equal(t, "user-1", snapshot.UserID)
	assert.WithinDuration(t, time.Now().Add(domain.QuoteSnapshotTTL), snapshot.ExpiresAt, time.Minute)
}

func TestGetQuote_NotFound(t *testing.T) {
	s := newQuoteService(&fakeQuoteAPI{}, &fakeSnapshotRepo{byID: map[string]*domain.QuoteSnapshot{}}, zap.NewNop())

	_, err := s.GetQuote(context.Background(), "user-1", "missing")
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestGetQuote_OwnershipIsStrict(t *testing.T) {
	snapshots := &fakeSnapshotRepo{byID: map[string]*domain.QuoteSnapshot{
		"snap-1": {ID: "snap-1", UserID: "owner", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	s := newQuoteService(&fakeQuoteAPI{}, snapshots, zap.NewNop())

	_, err := s.GetQuote(context.Background(), "intruder", "snap-1")
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestGetQuote_ExpiredSnapshotIsReturnedWithWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	snapshots := &fakeSnapshotRepo{byID: map[string]*domain.QuoteSnapshot{
		"snap-1": {
			ID:        "snap-1",
			UserID:    "user-1",
			Status:    domain.QuoteStatusSaved,
			ExpiresAt: time.Now().Add(-time.Hour),
		},
	}}
	s := newQuoteService(&fakeQuoteAPI{}, snapshots, zap.New(core))

	snapshot, err := s.GetQuote(context.Background(), "user-1", "snap-1")
	require.NoError(t, err, "expiry is advisory, not an access error")
	assert.Equal(t, "snap-1", snapshot.ID)
	assert.Len(t, logs.FilterMessageSnippet("expired quote snapshot").All(), 1)
}

func TestGetQuote_IssuedSnapshotIsReturnedWithWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	snapshots := &fakeSnapshotRepo{byID: map[string]*domain.QuoteSnapshot{
		"snap-1": {
			ID:        "snap-1",
			UserID:    "user-1",
			Status:    domain.QuoteStatusIssued,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}}
	s := newQuoteService(&fakeQuoteAPI{}, snapshots, zap.New(core))

	_, err := s.GetQuote(context.Background(), "user-1", "snap-1")
	require.NoError(t, err)
	assert.Len(t, logs.FilterMessageSnippet("already-issued quote snapshot").All(), 1)
}
