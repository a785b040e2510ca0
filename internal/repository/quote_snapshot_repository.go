package repository

import (
	"context"
	"encoding/json"

	"github.com/spec-kit/travel-insurance-service/internal/domain"
)

// QuoteSnapshotRepository persists quoting-session audit records. Snapshots
// are append-only: there is no update, every save is a new row.
type QuoteSnapshotRepository interface {
	Create(ctx context.Context, snapshot *domain.QuoteSnapshot) error
	GetByID(ctx context.Context, id string) (*domain.QuoteSnapshot, error)
	WithTx(q Querier) QuoteSnapshotRepository
}

type quoteSnapshotRepository struct {
	db Querier
}

// NewQuoteSnapshotRepository instantiates repository.
func NewQuoteSnapshotRepository(db Querier) QuoteSnapshotRepository {
	return &quoteSnapshotRepository{db: db}
}

func (r *quoteSnapshotRepository) WithTx(q Querier) QuoteSnapshotRepository {
	return &quoteSnapshotRepository{db: q}
}

func (r *quoteSnapshotRepository) Create(ctx context.Context, snapshot *domain.QuoteSnapshot) error {
	passengers, err := json.Marshal(snapshot.Passengers)
	if err != nil {
		return err
	}
	addons, err := json.Marshal(snapshot.Addons)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO quote_snapshots (user_id, origin_code, destination_code, begin_date, end_date,
            traveler_count, passengers, product_code, rate_code, total, currency, addons, status, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		snapshot.UserID,
		snapshot.OriginCode,
		snapshot.Destination,
		snapshot.BeginDate,
		snapshot.EndDate,
		snapshot.TravelerCount,
		passengers,
		snapshot.ProductCode,
		snapshot.RateCode,
		snapshot.Total,
		snapshot.Currency,
		addons,
		snapshot.Status,
		snapshot.ExpiresAt,
	).Scan(&snapshot.ID, &snapshot.CreatedAt)
}

func (r *quoteSnapshotRepository) GetByID(ctx context.Context, id string) (*domain.QuoteSnapshot, error) {
	const query = `
        SELECT id, user_id, origin_code, destination_code, begin_date, end_date,
               traveler_count, passengers, product_code, rate_code, total, currency, addons,
               status, expires_at, created_at
        FROM quote_snapshots WHERE id=$1`

	var (
		snapshot       domain.QuoteSnapshot
		passengersJSON []byte
		addonsJSON     []byte
	)
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&snapshot.ID,
		&snapshot.UserID,
		&snapshot.OriginCode,
		&snapshot.Destination,
		&snapshot.BeginDate,
		&snapshot.EndDate,
		&snapshot.TravelerCount,
		&passengersJSON,
		&snapshot.ProductCode,
		&snapshot.RateCode,
		&snapshot.Total,
		&snapshot.Currency,
		&addonsJSON,
		&snapshot.Status,
		&snapshot.ExpiresAt,
		&snapshot.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(passengersJSON, &snapshot.Passengers); err != nil {
		return nil, err
	}
	if len(addonsJSON) > 0 {
		if err := json.Unmarshal(addonsJSON, &snapshot.Addons); err != nil {
			return nil, err
		}
	}
	return &snapshot, nil
}
