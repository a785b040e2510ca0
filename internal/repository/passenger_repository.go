package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/travel-insurance-service/internal/domain"
)

// PassengerRepository maintains the "latest known state" record per insured
// person, keyed by (email, document_number).
type PassengerRepository interface {
	// Upsert creates the passenger on first sight, or overwrites
	// contact/address fields of the existing row on a key match. The
	// original creator is preserved; ID, CreatedByID and timestamps are
	// populated from the row.
	Upsert(ctx context.Context, passenger *domain.Passenger) error
	GetByEmailAndDocument(ctx context.Context, email, documentNumber string) (*domain.Passenger, error)
	SoftDelete(ctx context.Context, id string) error
	WithTx(q Querier) PassengerRepository
}

type passengerRepository struct {
	db Querier
}

// NewPassengerRepository instantiates repository.
func NewPassengerRepository(db Querier) PassengerRepository {
	return &passengerRepository{db: db}
}

func (r *passengerRepository) WithTx(q Querier) PassengerRepository {
	return &passengerRepository{db: q}
}

func (r *passengerRepository) Upsert(ctx context.Context, p *domain.Passenger) error {
	const query = `
        INSERT INTO passengers (first_name, last_name, document_type, document_number, birth_date,
            country_code, email, phone, street, number, city, state, zip_code,
            preferred_first_name, preferred_last_name, created_by_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        ON CONFLICT (email, document_number) DO UPDATE SET
            first_name=EXCLUDED.first_name,
            last_name=EXCLUDED.last_name,
            birth_date=EXCLUDED.birth_date,
            country_code=EXCLUDED.country_code,
            phone=EXCLUDED.phone,
            street=EXCLUDED.street,
            number=EXCLUDED.number,
            city=EXCLUDED.city,
            state=EXCLUDED.state,
            zip_code=EXCLUDED.zip_code,
            preferred_first_name=EXCLUDED.preferred_first_name,
            preferred_last_name=EXCLUDED.preferred_last_name,
            updated_at=NOW()
        RETURNING id, created_by_id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		p.FirstName,
		p.LastName,
		p.DocumentType,
		p.DocumentNumber,
		p.BirthDate,
		p.CountryCode,
		p.Email,
		p.Phone,
		p.Street,
		p.Number,
		p.City,
		p.State,
		p.ZipCode,
		p.PreferredFirstName,
		p.PreferredLastName,
		p.CreatedByID,
	).Scan(&p.ID, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *passengerRepository) GetByEmailAndDocument(ctx context.Context, email, documentNumber string) (*domain.Passenger, error) {
	const query = `
        SELECT id, first_name, last_name, document_type, document_number, birth_date,
               country_code, email, phone, street, number, city, state, zip_code,
               preferred_first_name, preferred_last_name, created_by_id, created_at, updated_at, deleted_at
        FROM passengers WHERE email=$1 AND document_number=$2 AND deleted_at IS NULL`

	var p domain.Passenger
	if err := r.db.QueryRow(ctx, query, email, documentNumber).Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.DocumentType,
		&p.DocumentNumber,
		&p.BirthDate,
		&p.CountryCode,
		&p.Email,
		&p.Phone,
		&p.Street,
		&p.Number,
		&p.City,
		&p.State,
		&p.ZipCode,
		&p.PreferredFirstName,
		&p.PreferredLastName,
		&p.CreatedByID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *passengerRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE passengers SET deleted_at=NOW() WHERE id=$1 AND deleted_at IS NULL`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
