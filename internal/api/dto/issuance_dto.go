package dto

import (
	"github.com/spec-kit/travel-insurance-service/internal/assistcard"
	"github.com/spec-kit/travel-insurance-service/internal/domain"
)

// IssuancePassengerRequest is one traveler to insure, with full identity.
type IssuancePassengerRequest struct {
	FirstName          string         `json:"firstName" validate:"required"`
	LastName           string         `json:"lastName" validate:"required"`
	DocumentType       string         `json:"documentType" validate:"required"`
	DocumentNumber     string         `json:"documentNumber" validate:"required"`
	BirthDate          string         `json:"birthDate" validate:"required,acdate"`
	CountryCode        string         `json:"countryCode" validate:"required,iso3166_1_alpha2"`
	Email              string         `json:"email" validate:"required,email"`
	Phone              string         `json:"phone" validate:"required"`
	Street             string         `json:"street" validate:"required"`
	Number             string         `json:"number"`
	City               string         `json:"city" validate:"required"`
	State              string         `json:"state"`
	ZipCode            string         `json:"zipCode"`
	PreferredFirstName string         `json:"preferredFirstName,omitempty"`
	PreferredLastName  string         `json:"preferredLastName,omitempty"`
	Addons             []AddonRequest `json:"addons,omitempty" validate:"omitempty,dive"`
}

// PaymentRequest carries pre-tokenized card data. CardNumber and CVV must
// arrive as gateway tokens wrapped in triple braces; raw card numbers are
// rejected before anything leaves the process.
type PaymentRequest struct {
	CardNumber     string `json:"cardNumber" validate:"required,tokenized"`
	CVV            string `json:"cvv" validate:"required,tokenized"`
	CardHolder     string `json:"cardHolder" validate:"required"`
	Brand          string `json:"brand" validate:"required"`
	ExpirationDate string `json:"expirationDate" validate:"required"`
	Installments   int    `json:"installments" validate:"required,gte=1"`
	DocumentNumber string `json:"documentNumber"`
}

// IssuePolicyRequest is the full issuance payload.
type IssuePolicyRequest struct {
	OriginCode      string                     `json:"originCode" validate:"required,len=3,alpha"`
	DestinationCode string                     `json:"destinationCode" validate:"required,len=3,alpha"`
	BeginDate       string                     `json:"beginDate" validate:"required,acdate"`
	EndDate         string                     `json:"endDate" validate:"required,acdate"`
	ProductCode     string                     `json:"productCode" validate:"required"`
	RateCode        string                     `json:"rateCode" validate:"required"`
	Total           float64                    `json:"total" validate:"required,gt=0"`
	Currency        string                     `json:"currency" validate:"required,iso4217"`
	Passengers      []IssuancePassengerRequest `json:"passengers" validate:"required,min=1,max=16,dive"`
	Payment         PaymentRequest             `json:"payment" validate:"required"`
}

// IssuePolicyResponse reports a completed issuance.
type IssuePolicyResponse struct {
	SnapshotID   string              `json:"snapshotId"`
	VoucherGroup string              `json:"voucherGroup"`
	Vouchers     []assistcard.Voucher `json:"vouchers"`
	Policies     []PolicyResponse    `json:"policies"`
}

// ToPaymentBlock maps the inbound payment shape onto the provider wire type.
func (r PaymentRequest) ToPaymentBlock() assistcard.PaymentBlock {
	return assistcard.PaymentBlock{
		CardNumber:     r.CardNumber,
		CVV:            r.CVV,
		CardHolder:     r.CardHolder,
		Brand:          r.Brand,
		ExpirationDate: r.ExpirationDate,
		Installments:   r.Installments,
		DocumentNumber: r.DocumentNumber,
	}
}

// ToSelectedAddons maps inbound addon selections onto domain entries.
func ToSelectedAddons(in []AddonRequest) []domain.SelectedAddon {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.SelectedAddon, 0, len(in))
	for _, a := range in {
		out = append(out, domain.SelectedAddon{Code: a.Code, Description: a.Description, Amount: a.Amount})
	}
	return out
}
