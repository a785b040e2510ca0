package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/travel-insurance-service/internal/assistcard"
	"github.com/spec-kit/travel-insurance-service/internal/domain"
	"github.com/spec-kit/travel-insurance-service/internal/events"
	"github.com/spec-kit/travel-insurance-service/internal/repository"
	apperrors "github.com/spec-kit/travel-insurance-service/pkg/util/errorutil"
)

// IssuanceService runs the policy issuance pipeline: one local transaction
// wrapping an irreversible external charge. The charge cannot be rolled
// back, so a local failure after it succeeds is a distinguished,
// non-retryable error carrying everything an operator needs to reconcile.
type IssuanceService struct {
	api        IssuanceAPI
	txm        repository.TxManager
	snapshots  repository.QuoteSnapshotRepository
	passengers repository.PassengerRepository
	policies   repository.PolicyRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// IssuanceDependencies bundles collaborators for the issuance service.
type IssuanceDependencies struct {
	API           IssuanceAPI
	TxManager     repository.TxManager
	SnapshotRepo  repository.QuoteSnapshotRepository
	PassengerRepo repository.PassengerRepository
	PolicyRepo    repository.PolicyRepository
	Dispatcher    events.Dispatcher
}

// NewIssuanceService constructs the service.
func NewIssuanceService(deps IssuanceDependencies, logger *zap.Logger) *IssuanceService {
	return &IssuanceService{
		api:        deps.API,
		txm:        deps.TxManager,
		snapshots:  deps.SnapshotRepo,
		passengers: deps.PassengerRepo,
		policies:   deps.PolicyRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// IssuancePassengerInput is one traveler to insure, with full identity.
type IssuancePassengerInput struct {
	FirstName          string
	LastName           string
	DocumentType       string
	DocumentNumber     string
	BirthDate          string
	CountryCode        string
	Email              string
	Phone              string
	Street             string
	Number             string
	City               string
	State              string
	ZipCode            string
	PreferredFirstName string
	PreferredLastName  string
	Addons             []domain.SelectedAddon
}

// IssuanceInput is the full issuance request: quote selection, travelers and
// tokenized payment data.
type IssuanceInput struct {
	OriginCode  string
	Destination string
	BeginDate   string
	EndDate     string
	ProductCode string
	RateCode    string
	Total       float64
	Currency    string
	Passengers  []IssuancePassengerInput
	Payment     assistcard.PaymentBlock
}

// IssuanceResult is everything produced by one successful issuance.
type IssuanceResult struct {
	Snapshot   *domain.QuoteSnapshot
	Passengers []domain.Passenger
	Policies   []domain.Policy
	Vouchers   []assistcard.Voucher
}

// IssuePolicy executes the issuance pipeline:
//
//  1. write a QuoteSnapshot (status issued), outside the transaction: every
//     attempt leaves an audit trail of intent, even ones that fail later;
//  2. upsert each passenger by (email, documentNumber), order-preserving;
//  3. acquire a provider token (inside the client call);
//  4. charge the card / issue vouchers — the irreversible step;
//  5. write one Policy row per returned voucher;
//  6. commit.
//
// Steps 2 and 5-6 share one transaction. Any failure before step 4 rolls
// that back; the snapshot row stays. Any failure after step 4 succeeded
// cannot be rolled back externally: it is logged with the full recovery
// payload and surfaced as the non-retryable ISSUED_NOT_PERSISTED error.
func (s *IssuanceService) IssuePolicy(ctx context.Context, userID string, input IssuanceInput) (*IssuanceResult, error) {
	if len(input.Passengers) == 0 {
		return nil, apperrors.NewValidationError("at least one passenger required", nil)
	}
	if len(input.Passengers) > assistcard.MaxPassengersPerIssuance {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("at most %d passengers per issuance", assistcard.MaxPassengersPerIssuance), nil)
	}
	if input.ProductCode == "" || input.RateCode == "" {
		return nil, apperrors.NewValidationError("a product and rate must be selected", nil)
	}

	// Audit trail first: the snapshot row survives any later rollback.
	snapshot := s.buildSnapshot(userID, input)
	if err := s.snapshots.Create(ctx, snapshot); err != nil {
		return nil, err
	}

	tx, err := s.txm.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	passengerRepo := s.passengers.WithTx(tx)
	policyRepo := s.policies.WithTx(tx)

	upserted := make([]domain.Passenger, 0, len(input.Passengers))
	for _, in := range input.Passengers {
		passenger := buildPassenger(userID, in)
		if err := passengerRepo.Upsert(ctx, passenger); err != nil {
			return nil, err
		}
		upserted = append(upserted, *passenger)
	}

	// The irreversible step. Every failure class here means nothing was
	// charged, so rolling back the local transaction is safe.
	resp, err := s.api.IssueVouchers(ctx, buildIssuanceRequest(input))
	if err != nil {
		return nil, mapExternalError(err)
	}

	if len(resp.Vouchers) != len(upserted) {
		// Money moved but we cannot attribute vouchers to passengers.
		return nil, s.failPostCharge(ctx, userID, input, resp,
			fmt.Errorf("provider returned %d vouchers for %d passengers", len(resp.Vouchers), len(upserted)))
	}

	policies := make([]domain.Policy, 0, len(resp.Vouchers))
	for i, voucher := range resp.Vouchers {
		policy := buildPolicy(userID, snapshot, &upserted[i], input, resp, voucher)
		if err := policyRepo.Create(ctx, policy); err != nil {
			return nil, s.failPostCharge(ctx, userID, input, resp, err)
		}
		policies = append(policies, *policy)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, s.failPostCharge(ctx, userID, input, resp, err)
	}
	committed = true

	s.publishIssued(ctx, userID, snapshot, input, resp, policies)

	return &IssuanceResult{
		Snapshot:   snapshot,
		Passengers: upserted,
		Policies:   policies,
		Vouchers:   resp.Vouchers,
	}, nil
}

// failPostCharge handles the charged-but-not-persisted case: the provider
// believes money moved, the local store disagrees. Never retried, never a
// generic 500.
func (s *IssuanceService) failPostCharge(ctx context.Context, userID string, input IssuanceInput, resp *assistcard.IssuanceResponse, cause error) error {
	codes := voucherCodes(resp.Vouchers)

	s.logger.Error("external charge succeeded but local persistence failed; manual reconciliation required",
		zap.String("trace_id", resp.TraceID),
		zap.String("voucher_group", resp.VoucherGroup),
		zap.Strings("voucher_codes", codes),
		zap.Float64("amount", input.Total),
		zap.String("currency", input.Currency),
		zap.String("user_id", userID),
		zap.Error(cause),
	)

	s.publish(ctx, events.Event{
		Type:   events.EventIssuanceReconciliationRequired,
		UserID: userID,
		Payload: events.IssuanceReconciliationPayload{
			TraceID:      resp.TraceID,
			VoucherGroup: resp.VoucherGroup,
			VoucherCodes: codes,
			Total:        input.Total,
			Currency:     input.Currency,
			Cause:        cause.Error(),
		},
	})

	return apperrors.NewIssuedNotPersisted(map[string]any{
		"voucherGroup": resp.VoucherGroup,
		"voucherCodes": codes,
	}, cause)
}

func (s *IssuanceService) buildSnapshot(userID string, input IssuanceInput) *domain.QuoteSnapshot {
	passengers := make([]domain.SnapshotPassenger, 0, len(input.Passengers))
	for _, p := range input.Passengers {
		passengers = append(passengers, domain.SnapshotPassenger{
			Kind:        domain.SnapshotPassengerMinimal,
			CountryCode: p.CountryCode,
			BirthDate:   p.BirthDate,
		})
	}

	addons := make([]domain.SelectedAddon, 0)
	for _, p := range input.Passengers {
		addons = append(addons, p.Addons...)
	}

	return &domain.QuoteSnapshot{
		UserID:        userID,
		OriginCode:    input.OriginCode,
		Destination:   input.Destination,
		BeginDate:     input.BeginDate,
		EndDate:       input.EndDate,
		TravelerCount: len(input.Passengers),
		Passengers:    passengers,
		ProductCode:   input.ProductCode,
		RateCode:      input.RateCode,
		Total:         input.Total,
		Currency:      input.Currency,
		Addons:        addons,
		Status:        domain.QuoteStatusIssued,
		ExpiresAt:     time.Now().Add(domain.QuoteSnapshotTTL),
	}
}

func buildPassenger(userID string, in IssuancePassengerInput) *domain.Passenger {
	return &domain.Passenger{
		FirstName:          in.FirstName,
		LastName:           in.LastName,
		DocumentType:       in.DocumentType,
		DocumentNumber:     in.DocumentNumber,
		BirthDate:          in.BirthDate,
		CountryCode:        in.CountryCode,
		Email:              in.Email,
		Phone:              in.Phone,
		Street:             in.Street,
		Number:             in.Number,
		City:               in.City,
		State:              in.State,
		ZipCode:            in.ZipCode,
		PreferredFirstName: in.PreferredFirstName,
		PreferredLastName:  in.PreferredLastName,
		CreatedByID:        userID,
	}
}

func buildIssuanceRequest(input IssuanceInput) assistcard.IssuanceRequest {
	passengers := make([]assistcard.IssuancePassenger, 0, len(input.Passengers))
	for _, p := range input.Passengers {
		addons := make([]assistcard.Addon, 0, len(p.Addons))
		for _, a := range p.Addons {
			addons = append(addons, assistcard.Addon{
				Code:        a.Code,
				Description: a.Description,
				Amount:      a.Amount,
			})
		}
		passengers = append(passengers, assistcard.IssuancePassenger{
			FirstName:          p.FirstName,
			LastName:           p.LastName,
			DocumentType:       p.DocumentType,
			DocumentNumber:     p.DocumentNumber,
			BirthDate:          p.BirthDate,
			CountryCode:        p.CountryCode,
			Email:              p.Email,
			Phone:              p.Phone,
			Street:             p.Street,
			Number:             p.Number,
			City:               p.City,
			State:              p.State,
			ZipCode:            p.ZipCode,
			PreferredFirstName: p.PreferredFirstName,
			PreferredLastName:  p.PreferredLastName,
			Addons:             addons,
		})
	}

	return assistcard.IssuanceRequest{
		ProductCode: input.ProductCode,
		RateCode:    input.RateCode,
		OriginCode:  input.OriginCode,
		Destination: input.Destination,
		BeginDate:   input.BeginDate,
		EndDate:     input.EndDate,
		Passengers:  passengers,
		Payment:     input.Payment,
	}
}

func buildPolicy(userID string, snapshot *domain.QuoteSnapshot, passenger *domain.Passenger, input IssuanceInput, resp *assistcard.IssuanceResponse, voucher assistcard.Voucher) *domain.Policy {
	addons := make([]domain.PolicyAddon, 0, len(voucher.Addons))
	for _, a := range voucher.Addons {
		addons = append(addons, domain.PolicyAddon{
			Code:        a.Code,
			Description: a.Description,
			Amount:      a.Amount,
		})
	}

	total := voucher.Total
	currency := voucher.Currency
	if currency == "" {
		total = input.Total
		currency = input.Currency
	}

	return &domain.Policy{
		SnapshotID:       snapshot.ID,
		PassengerID:      passenger.ID,
		UserID:           userID,
		VoucherCode:      voucher.VoucherCode,
		VoucherGroup:     resp.VoucherGroup,
		ProductCode:      input.ProductCode,
		RateCode:         input.RateCode,
		BeginDate:        input.BeginDate,
		EndDate:          input.EndDate,
		Total:            total,
		Currency:         currency,
		PaymentMethod:    resp.Payment.Method,
		CardBrand:        resp.Payment.Brand,
		Installments:     resp.Payment.Installments,
		GatewayReference: resp.Payment.GatewayReference,
		LocalTotal:       resp.Payment.LocalTotal,
		LocalCurrency:    resp.Payment.LocalCurrency,
		Status:           domain.PolicyStatusActive,
		Addons:           addons,
	}
}

func (s *IssuanceService) publishIssued(ctx context.Context, userID string, snapshot *domain.QuoteSnapshot, input IssuanceInput, resp *assistcard.IssuanceResponse, policies []domain.Policy) {
	email := ""
	if len(input.Passengers) > 0 {
		email = input.Passengers[0].Email
	}
	s.publish(ctx, events.Event{
		Type:   events.EventPolicyIssued,
		UserID: userID,
		Payload: events.PolicyIssuedPayload{
			SnapshotID:    snapshot.ID,
			VoucherGroup:  resp.VoucherGroup,
			VoucherCodes:  voucherCodes(resp.Vouchers),
			PolicyCount:   len(policies),
			Total:         input.Total,
			Currency:      input.Currency,
			CustomerEmail: email,
		},
	})
}

func (s *IssuanceService) publish(ctx context.Context, event events.Event) {
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

func voucherCodes(vouchers []assistcard.Voucher) []string {
	codes := make([]string, 0, len(vouchers))
	for _, v := range vouchers {
		codes = append(codes, v.VoucherCode)
	}
	return codes
}
