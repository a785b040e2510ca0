package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/travel-insurance-service/internal/assistcard"
	"github.com/spec-kit/travel-insurance-service/internal/domain"
	"github.com/spec-kit/travel-insurance-service/internal/events"
	"github.com/spec-kit/travel-insurance-service/internal/repository"
	apperrors "github.com/spec-kit/travel-insurance-service/pkg/util/errorutil"
)

// --- shared fakes ---

type fakeTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}
func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeTxManager struct {
	tx       *fakeTx
	beginErr error
}

func (m *fakeTxManager) Begin(context.Context) (repository.Tx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return m.tx, nil
}

type fakeSnapshotRepo struct {
	created   []*domain.QuoteSnapshot
	createErr error

	byID   map[string]*domain.QuoteSnapshot
	getErr error
}

func (f *fakeSnapshotRepo) Create(_ context.Context, s *domain.QuoteSnapshot) error {
	if f.createErr != nil {
		return f.createErr
	}
	s.ID = fmt.Sprintf("snap-%d", len(f.created)+1)
	s.CreatedAt = time.Now()
	f.created = append(f.created, s)
	return nil
}

func (f *fakeSnapshotRepo) GetByID(_ context.Context, id string) (*domain.QuoteSnapshot, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeSnapshotRepo) WithTx(repository.Querier) repository.QuoteSnapshotRepository { return f }

type fakePassengerRepo struct {
	upserted  []domain.Passenger
	ids       map[string]string
	upsertErr error
}

// Upsert mirrors the ON CONFLICT (email, document_number) contract: a known
// identity reuses its row id, a new one gets the next id.
func (f *fakePassengerRepo) Upsert(_ context.Context, p *domain.Passenger) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if f.ids == nil {
		f.ids = map[string]string{}
	}
	key := p.Email + "|" + p.DocumentNumber
	id, ok := f.ids[key]
	if !ok {
		id = fmt.Sprintf("pax-%d", len(f.ids)+1)
		f.ids[key] = id
	}
	p.ID = id
	f.upserted = append(f.upserted, *p)
	return nil
}

func (f *fakePassengerRepo) GetByEmailAndDocument(context.Context, string, string) (*domain.Passenger, error) {
	return nil, pgx.ErrNoRows
}
func (f *fakePassengerRepo) SoftDelete(context.Context, string) error                 { return nil }
func (f *fakePassengerRepo) WithTx(repository.Querier) repository.PassengerRepository { return f }

type fakePolicyRepo struct {
	created   []*domain.Policy
	createErr error

	byID   map[string]*domain.Policy
	getErr error

	statusUpdates   map[string]domain.PolicyStatus
	updateStatusErr error

	validityUpdates   map[string][2]string
	updateValidityErr error
}

func (f *fakePolicyRepo) Create(_ context.Context, p *domain.Policy) error {
	if f.createErr != nil {
		return f.createErr
	}
	p.ID = fmt.Sprintf("pol-%d", len(f.created)+1)
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	f.created = append(f.created, p)
	return nil
}

func (f *fakePolicyRepo) GetByID(_ context.Context, id string) (*domain.Policy, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakePolicyRepo) ListByUser(context.Context, string, int, int) ([]domain.Policy, error) {
	out := make([]domain.Policy, 0, len(f.created))
	for _, p := range f.created {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePolicyRepo) ListByVoucherGroup(context.Context, string) ([]domain.Policy, error) {
	return nil, nil
}

func (f *fakePolicyRepo) UpdateStatus(_ context.Context, id string, status domain.PolicyStatus) error {
	if f.updateStatusErr != nil {
		return f.updateStatusErr
	}
	if f.statusUpdates == nil {
		f.statusUpdates = map[string]domain.PolicyStatus{}
	}
	f.statusUpdates[id] = status
	return nil
}

func (f *fakePolicyRepo) UpdateValidity(_ context.Context, id, begin, end string) error {
	if f.updateValidityErr != nil {
		return f.updateValidityErr
	}
	if f.validityUpdates == nil {
		f.validityUpdates = map[string][2]string{}
	}
	f.validityUpdates[id] = [2]string{begin, end}
	return nil
}

func (f *fakePolicyRepo) WithTx(repository.Querier) repository.PolicyRepository { return f }

type fakeIssuanceAPI struct {
	resp   *assistcard.IssuanceResponse
	err    error
	gotReq *assistcard.IssuanceRequest
}

func (f *fakeIssuanceAPI) IssueVouchers(_ context.Context, req assistcard.IssuanceRequest) (*assistcard.IssuanceResponse, error) {
	f.gotReq = &req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeDispatcher struct {
	published []events.Event
}

func (f *fakeDispatcher) Publish(_ context.Context, event events.Event) error {
	f.published = append(f.published, event)
	return nil
}

func (f *fakeDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (f *fakeDispatcher) byType(t events.EventType) []events.Event {
	var out []events.Event
	for _, e := range f.published {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// --- fixtures ---

type issuanceHarness struct {
	svc        *IssuanceService
	api        *fakeIssuanceAPI
	tx         *fakeTx
	snapshots  *fakeSnapshotRepo
	passengers *fakePassengerRepo
	policies   *fakePolicyRepo
	dispatcher *fakeDispatcher
	logs       *observer.ObservedLogs
}

func newIssuanceHarness(t *testing.T, api *fakeIssuanceAPI) *issuanceHarness {
	t.Helper()
	core, logs := observer.New(zap.WarnLevel)

	h := &issuanceHarness{
		api:        api,
		tx:         &fakeTx{},
		snapshots:  &fakeSnapshotRepo{},
		passengers: &fakePassengerRepo{},
		policies:   &fakePolicyRepo{},
		dispatcher: &fakeDispatcher{},
		logs:       logs,
	}
	h.svc = NewIssuanceService(IssuanceDependencies{
		API:           api,
		TxManager:     &fakeTxManager{tx: h.tx},
		SnapshotRepo:  h.snapshots,
		PassengerRepo: h.passengers,
		PolicyRepo:    h.policies,
		Dispatcher:    h.dispatcher,
	}, zap.New(core))
	return h
}

func issuanceInput(passengerCount int) IssuanceInput {
	passengers := make([]IssuancePassengerInput, 0, passengerCount)
	for i := 0; i < passengerCount; i++ {
		passengers = append(passengers, IssuancePassengerInput{
			FirstName:      fmt.Sprintf("Traveler%d", i+1),
			LastName:       "Perez",
			DocumentType:   "DNI",
			DocumentNumber: fmt.Sprintf("3011122%d", i),
			BirthDate:      "1990/05/04",
			CountryCode:    "AR",
			Email:          fmt.Sprintf("traveler%d@example.com", i+1),
			Phone:          "+5491144445555",
			Street:         "Av. Corrientes",
			City:           "Buenos Aires",
		})
	}
	return IssuanceInput{
		OriginCode:  "EZE",
		Destination: "MAD",
		BeginDate:   "2026/10/01",
		EndDate:     "2026/10/15",
		ProductCode: "AC150",
		RateCode:    "PROMO",
		Total:       180,
		Currency:    "USD",
		Passengers:  passengers,
		Payment: assistcard.PaymentBlock{
			CardNumber:     "{{{card-token}}}",
			CVV:            "{{{cvv-token}}}",
			CardHolder:     "TRAVELER PEREZ",
			Brand:          "VISA",
			ExpirationDate: "2028/11/01",
			Installments:   1,
		},
	}
}

func issuanceResponse(voucherCount int) *assistcard.IssuanceResponse {
	vouchers := make([]assistcard.Voucher, 0, voucherCount)
	for i := 0; i < voucherCount; i++ {
		vouchers = append(vouchers, assistcard.Voucher{
			VoucherCode: fmt.Sprintf("V-%d", i+1),
			Total:       90,
			Currency:    "USD",
		})
	}
	return &assistcard.IssuanceResponse{
		TraceID:      "trc-issue",
		VoucherGroup: "VG-77",
		Vouchers:     vouchers,
		Payment: assistcard.PaymentConfirmation{
			Method:           "credit-card",
			Brand:            "VISA",
			Installments:     1,
			GatewayReference: "gw-123",
			LocalTotal:       162000,
			LocalCurrency:    "ARS",
		},
	}
}

// --- tests ---

func TestIssuePolicy_Success(t *testing.T) {
	h := newIssuanceHarness(t, &fakeIssuanceAPI{resp: issuanceResponse(2)})

	result, err := h.svc.IssuePolicy(context.Background(), "user-1", issuanceInput(2))
	require.NoError(t, err)

	assert.True(t, h.tx.committed)
	assert.False(t, h.tx.rolledBack)

	require.Len(t, h.snapshots.created, 1)
	snapshot := h.snapshots.created[0]
	assert.Equal(t, domain.QuoteStatusIssued, snapshot.Status)
	assert.Equal(t, 2, snapshot.TravelerCount)
	assert.Equal(t, "user-1", snapshot.UserID)

	require.Len(t, result.Policies, 2)
	for i, policy := range result.Policies {
		assert.Equal(t, "VG-77", policy.VoucherGroup)
		assert.Equal(t, snapshot.ID, policy.SnapshotID)
		assert.Equal(t, fmt.Sprintf("pax-%d", i+1), policy.PassengerID, "voucher order must match passenger order")
		assert.Equal(t, fmt.Sprintf("V-%d", i+1), policy.VoucherCode)
		assert.Equal(t, "gw-123", policy.GatewayReference)
		assert.Equal(t, domain.PolicyStatusActive, policy.Status)
	}

	require.Len(t, h.passengers.upserted, 2)
	assert.Equal(t, "user-1", h.passengers.upserted[0].CreatedByID)

	issued := h.dispatcher.byType(events.EventPolicyIssued)
	require.Len(t, issued, 1)
	payload, ok := issued[0].Payload.(events.PolicyIssuedPayload)
	require.True(t, ok)
	assert.Equal(t, "VG-77", payload.VoucherGroup)
	assert.Equal(t, []string{"V-1", "V-2"}, payload.VoucherCodes)
}

func TestIssuePolicy_ChargeFailureRollsBackSafely(t *testing.T) {
	h := newIssuanceHarness(t, &fakeIssuanceAPI{err: &assistcard.APIError{
		TraceID:        "trc-fail",
		Message:        "card declined",
		ProviderStatus: http.StatusBadRequest,
		Status:         http.StatusBadRequest,
	}})

	_, err := h.svc.IssuePolicy(context.Background(), "user-1", issuanceInput(2))
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "PROVIDER_REJECTED", domainErr.Code)
	assert.Equal(t, "trc-fail", domainErr.Details["traceId"])

	assert.True(t, h.tx.rolledBack, "nothing was charged, rollback must be safe")
	assert.False(t, h.tx.committed)
	assert.Empty(t, h.policies.created)
	assert.Empty(t, h.dispatcher.published)

	// The snapshot is written outside the transaction: even a failed attempt
	// leaves an audit trail of intent.
	require.Len(t, h.snapshots.created, 1)
	assert.Equal(t, domain.QuoteStatusIssued, h.snapshots.created[0].Status)
}

func TestIssuePolicy_PassengerUpsertIsIdempotent(t *testing.T) {
	h := newIssuanceHarness(t, &fakeIssuanceAPI{resp: issuanceResponse(1)})

	first, err := h.svc.IssuePolicy(context.Background(), "user-1", issuanceInput(1))
	require.NoError(t, err)

	h.tx.committed = false
	second, err := h.svc.IssuePolicy(context.Background(), "user-1", issuanceInput(1))
	require.NoError(t, err)

	assert.Equal(t, first.Passengers[0].ID, second.Passengers[0].ID,
		"re-issuing for the same (email, document) must reuse the passenger row")
	require.Len(t, h.snapshots.created, 2, "every save is a new snapshot row")
}

func TestIssuePolicy_PostChargePersistenceFailure(t *testing.T) {
	h := newIssuanceHarness(t, &fakeIssuanceAPI{resp: issuanceResponse(2)})
	h.policies.createErr = errors.New("disk full")

	_, err := h.svc.IssuePolicy(context.Background(), "user-1", issuanceInput(2))
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, apperrors.IssuedNotPersistedCode, domainErr.Code)
	assert.Equal(t, "VG-77", domainErr.Details["voucherGroup"])
	assert.Equal(t, []string{"V-1", "V-2"}, domainErr.Details["voucherCodes"])
	assert.Contains(t, domainErr.Message, "do not retry payment")

	recovery := h.logs.FilterMessageSnippet("manual reconciliation required").All()
	require.Len(t, recovery, 1)
	fields := recovery[0].ContextMap()
	assert.Equal(t, "VG-77", fields["voucher_group"])
	assert.Equal(t, "trc-issue", fields["trace_id"])
	assert.Equal(t, []interface{}{"V-1", "V-2"}, fields["voucher_codes"])

	reconcile := h.dispatcher.byType(events.EventIssuanceReconciliationRequired)
	require.Len(t, reconcile, 1)
	payload, ok := reconcile[0].Payload.(events.IssuanceReconciliationPayload)
	require.True(t, ok)
	assert.Equal(t, "VG-77", payload.VoucherGroup)
	assert.Equal(t, "disk full", payload.Cause)

	assert.False(t, h.tx.committed)
}

func TestIssuePolicy_CommitFailureIsPostCharge(t *testing.T) {
	h := newIssuanceHarness(t, &fakeIssuanceAPI{resp: issuanceResponse(1)})
	h.tx.commitErr = errors.New("connection reset")

	_, err := h.svc.IssuePolicy(context.Background(), "user-1", issuanceInput(1))
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, apperrors.IssuedNotPersistedCode, domainErr.Code)
}

func TestIssuePolicy_VoucherCountMismatchIsPostCharge(t *testing.T) {
	h := newIssuanceHarness(t, &fakeIssuanceAPI{resp: issuanceResponse(1)})

	_, err := h.svc.IssuePolicy(context.Background(), "user-1", issuanceInput(2))
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, apperrors.IssuedNotPersistedCode, domainErr.Code)
	assert.Empty(t, h.policies.created)
}

func TestIssuePolicy_InputValidation(t *testing.T) {
	tests := []struct {
		name  string
		input IssuanceInput
	}{
		{"no passengers", issuanceInput(0)},
		{"too many passengers", issuanceInput(assistcard.MaxPassengersPerIssuance + 1)},
		{"missing product selection", func() IssuanceInput {
			in := issuanceInput(1)
			in.ProductCode = ""
			return in
		}()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeIssuanceAPI{resp: issuanceResponse(1)}
			h := newIssuanceHarness(t, api)

			_, err := h.svc.IssuePolicy(context.Background(), "user-1", tc.input)
			var domainErr *apperrors.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
			assert.Nil(t, api.gotReq, "provider must not be called for invalid input")
		})
	}
}
