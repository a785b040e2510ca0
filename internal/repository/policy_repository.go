package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/travel-insurance-service/internal/domain"
)

// PolicyRepository persists issued vouchers. Policy rows are created only by
// the issuance pipeline and are never deleted.
type PolicyRepository interface {
	Create(ctx context.Context, policy *domain.Policy) error
	GetByID(ctx context.Context, id string) (*domain.Policy, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Policy, error)
	ListByVoucherGroup(ctx context.Context, voucherGroup string) ([]domain.Policy, error)
	UpdateStatus(ctx context.Context, id string, status domain.PolicyStatus) error
	UpdateValidity(ctx context.Context, id, beginDate, endDate string) error
	WithTx(q Querier) PolicyRepository
}

type policyRepository struct {
	db Querier
}

// NewPolicyRepository instantiates repository.
func NewPolicyRepository(db Querier) PolicyRepository {
	return &policyRepository{db: db}
}

func (r *policyRepository) WithTx(q Querier) PolicyRepository {
	return &policyRepository{db: q}
}

const policyColumns = `id, snapshot_id, passenger_id, user_id, voucher_code, voucher_group,
        product_code, rate_code, begin_date, end_date, total, currency,
        payment_method, card_brand, installments, gateway_reference, local_total, local_currency,
        status, addons, created_at, updated_at`

func (r *policyRepository) Create(ctx context.Context, policy *domain.Policy) error {
	addons, err := json.Marshal(policy.Addons)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO policies (snapshot_id, passenger_id, user_id, voucher_code, voucher_group,
            product_code, rate_code, begin_date, end_date, total, currency,
            payment_method, card_brand, installments, gateway_reference, local_total, local_currency,
            status, addons)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		policy.SnapshotID,
		policy.PassengerID,
		policy.UserID,
		policy.VoucherCode,
		policy.VoucherGroup,
		policy.ProductCode,
		policy.RateCode,
		policy.BeginDate,
		policy.EndDate,
		policy.Total,
		policy.Currency,
		policy.PaymentMethod,
		policy.CardBrand,
		policy.Installments,
		policy.GatewayReference,
		policy.LocalTotal,
		policy.LocalCurrency,
		policy.Status,
		addons,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
}

func (r *policyRepository) GetByID(ctx context.Context, id string) (*domain.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE id=$1`
	row := r.db.QueryRow(ctx, query, id)
	return scanPolicyRow(row)
}

func (r *policyRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Policy, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + policyColumns + ` FROM policies WHERE user_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPolicies(rows)
}

func (r *policyRepository) ListByVoucherGroup(ctx context.Context, voucherGroup string) ([]domain.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE voucher_group=$1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, voucherGroup)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPolicies(rows)
}

func (r *policyRepository) UpdateStatus(ctx context.Context, id string, status domain.PolicyStatus) error {
	const query = `UPDATE policies SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *policyRepository) UpdateValidity(ctx context.Context, id, beginDate, endDate string) error {
	const query = `UPDATE policies SET begin_date=$1, end_date=$2, updated_at=NOW() WHERE id=$3`
	cmd, err := r.db.Exec(ctx, query, beginDate, endDate, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanPolicies(rows pgx.Rows) ([]domain.Policy, error) {
	var result []domain.Policy
	for rows.Next() {
		policy, err := scanPolicyRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *policy)
	}
	return result, rows.Err()
}

func scanPolicyRow(row pgx.Row) (*domain.Policy, error) {
	var (
		policy     domain.Policy
		addonsJSON []byte
	)
	if err := row.Scan(
		&policy.ID,
		&policy.SnapshotID,
		&policy.PassengerID,
		&policy.UserID,
		&policy.VoucherCode,
		&policy.VoucherGroup,
		&policy.ProductCode,
		&policy.RateCode,
		&policy.BeginDate,
		&policy.EndDate,
		&policy.Total,
		&policy.Currency,
		&policy.PaymentMethod,
		&policy.CardBrand,
		&policy.Installments,
		&policy.GatewayReference,
		&policy.LocalTotal,
		&policy.LocalCurrency,
		&policy.Status,
		&addonsJSON,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(addonsJSON) > 0 {
		if err := json.Unmarshal(addonsJSON, &policy.Addons); err != nil {
			return nil, err
		}
	}
	return &policy, nil
}
