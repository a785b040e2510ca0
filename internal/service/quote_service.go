package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/travel-insurance-service/internal/assistcard"
	"github.com/spec-kit/travel-insurance-service/internal/config"
	"github.com/spec-kit/travel-insurance-service/internal/domain"
	"github.com/spec-kit/travel-insurance-service/internal/persistence"
	"github.com/spec-kit/travel-insurance-service/internal/repository"
	apperrors "github.com/spec-kit/travel-insurance-service/pkg/util/errorutil"
)

// QuoteService proxies the provider's pricing endpoints and persists quote
// snapshots.
type QuoteService struct {
	api       QuoteAPI
	snapshots repository.QuoteSnapshotRepository
	cache     *persistence.Redis
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// QuoteDependencies bundles collaborators for the quote service.
type QuoteDependencies struct {
	API          QuoteAPI
	SnapshotRepo repository.QuoteSnapshotRepository
	Cache        *persistence.Redis
}

// NewQuoteService constructs the service.
func NewQuoteService(cfg config.AssistcardConfig, deps QuoteDependencies, logger *zap.Logger) *QuoteService {
	return &QuoteService{
		api:       deps.API,
		snapshots: deps.SnapshotRepo,
		cache:     deps.Cache,
		cacheTTL:  cfg.QuoteCacheTTL(),
		logger:    logger,
	}
}

// QuoteProducts prices products for an itinerary, read-through-cached:
// identical requests within the TTL are served without a provider call.
func (s *QuoteService) QuoteProducts(ctx context.Context, req assistcard.QuoteProductRequest) (*assistcard.QuoteProductResponse, error) {
	key := cacheKey("quote:product", req)

	var cached assistcard.QuoteProductResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	resp, err := s.api.QuoteProducts(ctx, req)
	if err != nil {
		return nil, mapExternalError(err)
	}
	s.cacheSet(ctx, key, resp)
	return resp, nil
}

// QuoteAddons prices addons for a selected product/rate.
func (s *QuoteService) QuoteAddons(ctx context.Context, req assistcard.QuoteAddonsRequest) (*assistcard.QuoteAddonsResponse, error) {
	key := cacheKey("quote:addons", req)

	var cached assistcard.QuoteAddonsResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	resp, err := s.api.QuoteAddons(ctx, req)
	if err != nil {
		return nil, mapExternalError(err)
	}
	s.cacheSet(ctx, key, resp)
	return resp, nil
}

// SaveQuoteInput captures a quoting session to persist.
type SaveQuoteInput struct {
	OriginCode    string
	Destination   string
	BeginDate     string
	EndDate       string
	TravelerCount int
	Passengers    []domain.SnapshotPassenger
	ProductCode   string
	RateCode      string
	Total         float64
	Currency      string
	Addons        []domain.SelectedAddon
}

// SaveQuote writes one snapshot row. A product and rate must already be
// selected; there are no external calls.
func (s *QuoteService) SaveQuote(ctx context.Context, userID string, input SaveQuoteInput) (*domain.QuoteSnapshot, error) {
	if input.ProductCode == "" || input.RateCode == "" {
		return nil, apperrors.NewValidationError("a product and rate must be selected before saving", nil)
	}

	snapshot := &domain.QuoteSnapshot{
		UserID:        userID,
		OriginCode:    input.OriginCode,
		Destination:   input.Destination,
		BeginDate:     input.BeginDate,
		EndDate:       input.EndDate,
		TravelerCount: input.TravelerCount,
		Passengers:    input.Passengers,
		ProductCode:   input.ProductCode,
		RateCode:      input.RateCode,
		Total:         input.Total,
		Currency:      input.Currency,
		Addons:        input.Addons,
		Status:        domain.QuoteStatusSaved,
		ExpiresAt:     time.Now().Add(domain.QuoteSnapshotTTL),
	}
	if err := s.snapshots.Create(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// GetQuote loads a snapshot with a strict ownership check. Expired or
// already-issued snapshots are returned as-is with an advisory warning;
// resumption policy is the caller's.
func (s *QuoteService) GetQuote(ctx context.Context, userID, id string) (*domain.QuoteSnapshot, error) {
	snapshot, err := s.snapshots.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("quote snapshot", map[string]any{"id": id})
		}
		return nil, err
	}
	if snapshot.UserID != userID {
		return nil, apperrors.NewForbidden("quote snapshot belongs to another user")
	}

	if snapshot.Expired(time.Now()) {
		s.logger.Warn("expired quote snapshot accessed",
			zap.String("snapshot_id", snapshot.ID), zap.Time("expired_at", snapshot.ExpiresAt))
	}
	if snapshot.Status == domain.QuoteStatusIssued {
		s.logger.Warn("already-issued quote snapshot accessed", zap.String("snapshot_id", snapshot.ID))
	}
	return snapshot, nil
}

func cacheKey(prefix string, req any) string {
	raw, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return prefix + ":" + hex.EncodeToString(sum[:])
}

func (s *QuoteService) cacheGet(ctx context.Context, key string, out any) bool {
	if s.cache == nil || s.cache.Client == nil || s.cacheTTL <= 0 || key == "" {
		return false
	}
	raw, err := s.cache.Client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	return true
}

func (s *QuoteService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil || s.cache.Client == nil || s.cacheTTL <= 0 || key == "" {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Client.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("quote cache write failed", zap.Error(err))
	}
}
