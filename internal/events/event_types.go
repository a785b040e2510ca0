package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPolicyIssued                   EventType = "policy_issued"
	EventPolicyCancelled                EventType = "policy_cancelled"
	EventIssuanceReconciliationRequired EventType = "issuance_reconciliation_required"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// PolicyIssuedPayload describes a completed issuance.
type PolicyIssuedPayload struct {
	SnapshotID    string   `json:"snapshot_id"`
	VoucherGroup  string   `json:"voucher_group"`
	VoucherCodes  []string `json:"voucher_codes"`
	PolicyCount   int      `json:"policy_count"`
	Total         float64  `json:"total"`
	Currency      string   `json:"currency"`
	CustomerEmail string   `json:"customer_email"`
}

// PolicyCancelledPayload describes a voided policy.
type PolicyCancelledPayload struct {
	PolicyID    string `json:"policy_id"`
	VoucherCode string `json:"voucher_code"`
}

// IssuanceReconciliationPayload is the full recovery payload for the
// charged-but-not-persisted case: everything an operator needs to reconcile
// manually against the provider.
type IssuanceReconciliationPayload struct {
	TraceID      string   `json:"trace_id"`
	VoucherGroup string   `json:"voucher_group"`
	VoucherCodes []string `json:"voucher_codes"`
	Total        float64  `json:"total"`
	Currency     string   `json:"currency"`
	Cause        string   `json:"cause"`
}
