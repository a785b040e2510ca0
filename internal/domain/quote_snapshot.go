package domain

import "time"

// QuoteStatus enumerates snapshot lifecycle states.
type QuoteStatus string

const (
	QuoteStatusSaved  QuoteStatus = "saved"
	QuoteStatusIssued QuoteStatus = "issued"
)

// QuoteSnapshotTTL is how long a saved snapshot stays fresh. Expiry is
// advisory: expired snapshots remain readable.
const QuoteSnapshotTTL = 24 * time.Hour

// SnapshotPassengerKind distinguishes the two passenger payload shapes a
// quoting session goes through: age/country tuples while pricing, full
// identity once the traveler data is finalized.
type SnapshotPassengerKind string

const (
	SnapshotPassengerMinimal SnapshotPassengerKind = "minimal"
	SnapshotPassengerFull    SnapshotPassengerKind = "full"
)

// SnapshotPassenger is one traveler entry inside a snapshot. Details is nil
// for the minimal shape.
type SnapshotPassenger struct {
	Kind        SnapshotPassengerKind `json:"kind"`
	CountryCode string                `json:"countryCode"`
	BirthDate   string                `json:"birthDate"`
	Age         int                   `json:"age,omitempty"`
	Details     *PassengerDetails     `json:"details,omitempty"`
}

// PassengerDetails carries the full identity/contact/address block.
type PassengerDetails struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	DocumentType   string `json:"documentType"`
	DocumentNumber string `json:"documentNumber"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Street         string `json:"street"`
	Number         string `json:"number"`
	City           string `json:"city"`
	State          string `json:"state"`
	ZipCode        string `json:"zipCode"`
	// Brazil-specific preferred-name fields.
	PreferredFirstName string `json:"preferredFirstName,omitempty"`
	PreferredLastName  string `json:"preferredLastName,omitempty"`
}

// SelectedAddon records one addon chosen during quoting.
type SelectedAddon struct {
	Code        string  `json:"code"`
	Description string  `json:"description,omitempty"`
	Amount      float64 `json:"amount"`
}

// QuoteSnapshot is the persisted record of a quoting/selection session.
// Rows are append-only: every save creates a new snapshot.
type QuoteSnapshot struct {
	ID            string
	UserID        string
	OriginCode    string
	Destination   string
	BeginDate     string
	EndDate       string
	TravelerCount int
	Passengers    []SnapshotPassenger
	ProductCode   string
	RateCode      string
	Total         float64
	Currency      string
	Addons        []SelectedAddon
	Status        QuoteStatus
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// Expired reports whether the snapshot is past its advisory expiry.
func (q *QuoteSnapshot) Expired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}
