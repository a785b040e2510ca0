package dto

import (
	"time"

	"github.com/spec-kit/travel-insurance-service/internal/domain"
)

// QuotePassengerRequest is the minimal traveler tuple used while pricing.
type QuotePassengerRequest struct {
	BirthDate   string `json:"birthDate" validate:"required,acdate"`
	CountryCode string `json:"countryCode" validate:"required,iso3166_1_alpha2"`
	Age         int    `json:"age,omitempty" validate:"omitempty,gte=0,lte=120"`
}

// QuoteProductsRequest prices products for an itinerary.
type QuoteProductsRequest struct {
	OriginCode      string                  `json:"originCode" validate:"required,len=3,alpha"`
	DestinationCode string                  `json:"destinationCode" validate:"required,len=3,alpha"`
	BeginDate       string                  `json:"beginDate" validate:"required,acdate"`
	EndDate         string                  `json:"endDate" validate:"required,acdate"`
	Passengers      []QuotePassengerRequest `json:"passengers" validate:"required,min=1,dive"`
}

// QuoteAddonsRequest prices addons for a selected product/rate.
type QuoteAddonsRequest struct {
	ProductCode string                  `json:"productCode" validate:"required"`
	RateCode    string                  `json:"rateCode" validate:"required"`
	BeginDate   string                  `json:"beginDate" validate:"required,acdate"`
	EndDate     string                  `json:"endDate" validate:"required,acdate"`
	Passengers  []QuotePassengerRequest `json:"passengers" validate:"required,min=1,dive"`
}

// SnapshotPassengerRequest is one traveler in a snapshot save; details is
// present only for the full shape.
type SnapshotPassengerRequest struct {
	Kind        string                    `json:"kind" validate:"required,oneof=minimal full"`
	CountryCode string                    `json:"countryCode" validate:"required,iso3166_1_alpha2"`
	BirthDate   string                    `json:"birthDate" validate:"required,acdate"`
	Age         int                       `json:"age,omitempty"`
	Details     *PassengerDetailsRequest  `json:"details,omitempty" validate:"omitempty"`
}

// PassengerDetailsRequest carries the full identity/contact/address block.
type PassengerDetailsRequest struct {
	FirstName          string `json:"firstName" validate:"required"`
	LastName           string `json:"lastName" validate:"required"`
	DocumentType       string `json:"documentType" validate:"required"`
	DocumentNumber     string `json:"documentNumber" validate:"required"`
	Email              string `json:"email" validate:"required,email"`
	Phone              string `json:"phone" validate:"required"`
	Street             string `json:"street"`
	Number             string `json:"number"`
	City               string `json:"city"`
	State              string `json:"state"`
	ZipCode            string `json:"zipCode"`
	PreferredFirstName string `json:"preferredFirstName,omitempty"`
	PreferredLastName  string `json:"preferredLastName,omitempty"`
}

// AddonRequest is one selected addon.
type AddonRequest struct {
	Code        string  `json:"code" validate:"required"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// SaveQuoteRequest persists a quoting session.
type SaveQuoteRequest struct {
	OriginCode      string                     `json:"originCode" validate:"required,len=3,alpha"`
	DestinationCode string                     `json:"destinationCode" validate:"required,len=3,alpha"`
	BeginDate       string                     `json:"beginDate" validate:"required,acdate"`
	EndDate         string                     `json:"endDate" validate:"required,acdate"`
	TravelerCount   int                        `json:"travelerCount" validate:"required,gte=1"`
	Passengers      []SnapshotPassengerRequest `json:"passengers" validate:"required,min=1,dive"`
	ProductCode     string                     `json:"productCode"`
	RateCode        string                     `json:"rateCode"`
	Total           float64                    `json:"total"`
	Currency        string                     `json:"currency" validate:"omitempty,iso4217"`
	Addons          []AddonRequest             `json:"addons" validate:"omitempty,dive"`
}

// ToSnapshotPassengers maps the inbound traveler shapes onto domain entries.
func ToSnapshotPassengers(in []SnapshotPassengerRequest) []domain.SnapshotPassenger {
	out := make([]domain.SnapshotPassenger, 0, len(in))
	for _, p := range in {
		entry := domain.SnapshotPassenger{
			Kind:        domain.SnapshotPassengerKind(p.Kind),
			CountryCode: p.CountryCode,
			BirthDate:   p.BirthDate,
			Age:         p.Age,
		}
		if p.Details != nil {
			entry.Details = &domain.PassengerDetails{
				FirstName:          p.Details.FirstName,
				LastName:           p.Details.LastName,
				DocumentType:       p.Details.DocumentType,
				DocumentNumber:     p.Details.DocumentNumber,
				Email:              p.Details.Email,
				Phone:              p.Details.Phone,
				Street:             p.Details.Street,
				Number:             p.Details.Number,
				City:               p.Details.City,
				State:              p.Details.State,
				ZipCode:            p.Details.ZipCode,
				PreferredFirstName: p.Details.PreferredFirstName,
				PreferredLastName:  p.Details.PreferredLastName,
			}
		}
		out = append(out, entry)
	}
	return out
}

// SaveQuoteResponse acknowledges a saved snapshot.
type SaveQuoteResponse struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// QuoteSnapshotResponse is the full snapshot payload.
type QuoteSnapshotResponse struct {
	ID              string                     `json:"id"`
	OriginCode      string                     `json:"originCode"`
	DestinationCode string                     `json:"destinationCode"`
	BeginDate       string                     `json:"beginDate"`
	EndDate         string                     `json:"endDate"`
	TravelerCount   int                        `json:"travelerCount"`
	Passengers      []domain.SnapshotPassenger `json:"passengers"`
	ProductCode     string                     `json:"productCode"`
	RateCode        string                     `json:"rateCode"`
	Total           float64                    `json:"total"`
	Currency        string                     `json:"currency"`
	Addons          []domain.SelectedAddon     `json:"addons"`
	Status          domain.QuoteStatus         `json:"status"`
	ExpiresAt       time.Time                  `json:"expires_at"`
	CreatedAt       time.Time                  `json:"created_at"`
}
