package domain

import "time"

// PolicyStatus enumerates lifecycle states for issued policies.
type PolicyStatus string

const (
	PolicyStatusActive    PolicyStatus = "active"
	PolicyStatusCancelled PolicyStatus = "cancelled"
)

// PolicyAddon is one addon actually billed for this passenger.
type PolicyAddon struct {
	Code        string  `json:"code"`
	Description string  `json:"description,omitempty"`
	Amount      float64 `json:"amount"`
}

// Policy is one issued insurance voucher: one row per passenger per issuance
// event. All policies of one issuance share a VoucherGroup. Rows are never
// deleted; cancellation flips Status and keeps the audit trail.
type Policy struct {
	ID           string
	SnapshotID   string
	PassengerID  string
	UserID       string
	VoucherCode  string
	VoucherGroup string
	ProductCode  string
	RateCode     string
	BeginDate    string
	EndDate      string
	Total        float64
	Currency     string
	// Payment confirmation metadata, duplicated onto every policy of the
	// group for independent queryability.
	PaymentMethod    string
	CardBrand        string
	Installments     int
	GatewayReference string
	LocalTotal       float64
	LocalCurrency    string
	Status           PolicyStatus
	Addons           []PolicyAddon
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
