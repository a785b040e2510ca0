package domain

import "time"

// Passenger is the latest known state of an insured person. Records are
// deduplicated by (email, document number): re-issuing for the same identity
// overwrites contact and address fields instead of creating a sibling row.
type Passenger struct {
	ID             string
	FirstName      string
	LastName       string
	DocumentType   string
	DocumentNumber string
	BirthDate      string
	CountryCode    string
	Email          string
	Phone          string
	Street         string
	Number         string
	City           string
	State          string
	ZipCode        string
	// Brazil-specific preferred-name fields.
	PreferredFirstName string
	PreferredLastName  string
	CreatedByID        string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time
}
