package assistcard

import "time"

// Endpoint paths on the provider API.
const (
	pathLogin        = "/api/Authentication/login"
	pathTokenRefresh = "/api/Authentication/token/refresh"
	pathQuoteProduct = "/api/v1/Quote/product"
	pathQuoteAddons  = "/api/v1/Quote/addons"
	pathIssuance     = "/api/v1/Issuance/credit-card/vouchers"
	pathCancel       = "/api/v1/Voucher/cancelVoucher"
	pathRectify      = "/api/v1/Voucher/rectifyValidity"
)

// MaxPassengersPerIssuance is the provider's hard limit per issuance call.
const MaxPassengersPerIssuance = 16

type loginRequest struct {
	UserName string `json:"userName" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token      string    `json:"token" validate:"required"`
	Expiration time.Time `json:"expiration" validate:"required"`
}

// IssuingPoint identifies who is selling the policy. Injected from
// configuration into every quote and issuance request.
type IssuingPoint struct {
	CountryCode int `json:"countryCode" validate:"required"`
	AgencyCode  int `json:"agencyCode" validate:"required"`
	BranchCode  int `json:"branchCode"`
}

// QuotePassenger is the minimal traveler tuple used while pricing.
type QuotePassenger struct {
	BirthDate   string `json:"birthDate" validate:"required,acdate"`
	CountryCode string `json:"countryCode" validate:"required,iso3166_1_alpha2"`
	Age         int    `json:"age,omitempty" validate:"omitempty,gte=0,lte=120"`
}

// QuoteProductRequest prices available products for an itinerary.
type QuoteProductRequest struct {
	IssuingPoint
	OriginCode  string           `json:"originCode" validate:"required,len=3,alpha"`
	Destination string           `json:"destinationCode" validate:"required,len=3,alpha"`
	BeginDate   string           `json:"beginDate" validate:"required,acdate"`
	EndDate     string           `json:"endDate" validate:"required,acdate"`
	Passengers  []QuotePassenger `json:"passengers" validate:"required,min=1,dive"`
}

// Amount is a quoted price. Total carries any promotional discount already
// applied; TotalOriginal is the undiscounted price.
type Amount struct {
	Total         float64 `json:"total" validate:"required"`
	TotalOriginal float64 `json:"totalOriginal"`
	Currency      string  `json:"currency" validate:"required,iso4217"`
}

// Product is one quotable product/rate combination.
type Product struct {
	ProductCode string `json:"productCode" validate:"required"`
	RateCode    string `json:"rateCode" validate:"required"`
	Name        string `json:"name"`
	Days        int    `json:"days"`
	Amount      Amount `json:"amount" validate:"required"`
}

// QuoteProductResponse is the product pricing payload.
type QuoteProductResponse struct {
	TraceID  string    `json:"traceId"`
	Products []Product `json:"products" validate:"required,dive"`
}

// QuoteAddonsRequest prices addons for a selected product/rate.
type QuoteAddonsRequest struct {
	IssuingPoint
	ProductCode string           `json:"productCode" validate:"required"`
	RateCode    string           `json:"rateCode" validate:"required"`
	BeginDate   string           `json:"beginDate" validate:"required,acdate"`
	EndDate     string           `json:"endDate" validate:"required,acdate"`
	Passengers  []QuotePassenger `json:"passengers" validate:"required,min=1,dive"`
}

// Addon is one purchasable extra.
type Addon struct {
	Code        string  `json:"code" validate:"required"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
}

// QuoteAddonsResponse lists addons available for the selection.
type QuoteAddonsResponse struct {
	TraceID string  `json:"traceId"`
	Addons  []Addon `json:"addons" validate:"dive"`
}

// IssuancePassenger is the full traveler block required to issue.
type IssuancePassenger struct {
	FirstName      string `json:"firstName" validate:"required"`
	LastName       string `json:"lastName" validate:"required"`
	DocumentType   string `json:"documentType" validate:"required"`
	DocumentNumber string `json:"documentNumber" validate:"required"`
	BirthDate      string `json:"birthDate" validate:"required,acdate"`
	CountryCode    string `json:"countryCode" validate:"required,iso3166_1_alpha2"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required"`
	Street         string `json:"street" validate:"required"`
	Number         string `json:"number"`
	City           string `json:"city" validate:"required"`
	State          string `json:"state"`
	ZipCode        string `json:"zipCode"`
	// Brazil-specific preferred-name fields.
	PreferredFirstName string  `json:"preferredFirstName,omitempty"`
	PreferredLastName  string  `json:"preferredLastName,omitempty"`
	Addons             []Addon `json:"addons,omitempty" validate:"omitempty,dive"`
}

// PaymentBlock carries the pre-tokenized card data. CardNumber and CVV must
// arrive wrapped in triple braces ({{{token}}}): the literal wrapping is a
// provider contract requirement, checked before any network call.
type PaymentBlock struct {
	CardNumber     string `json:"cardNumber" validate:"required,tokenized"`
	CVV            string `json:"cvv" validate:"required,tokenized"`
	CardHolder     string `json:"cardHolder" validate:"required"`
	Brand          string `json:"brand" validate:"required"`
	ExpirationDate string `json:"expirationDate" validate:"required"`
	Installments   int    `json:"installments" validate:"required,gte=1"`
	DocumentNumber string `json:"documentNumber"`
}

// IssuanceRequest is the charge/issue payload: the money-moving call.
type IssuanceRequest struct {
	IssuingPoint
	ProductCode string              `json:"productCode" validate:"required"`
	RateCode    string              `json:"rateCode" validate:"required"`
	OriginCode  string              `json:"originCode" validate:"required,len=3,alpha"`
	Destination string              `json:"destinationCode" validate:"required,len=3,alpha"`
	BeginDate   string              `json:"beginDate" validate:"required,acdate"`
	EndDate     string              `json:"endDate" validate:"required,acdate"`
	Passengers  []IssuancePassenger `json:"passengers" validate:"required,min=1,max=16,dive"`
	Payment     PaymentBlock        `json:"payment" validate:"required"`
}

// Voucher is one issued certificate, index-aligned with the request
// passenger order.
type Voucher struct {
	VoucherCode string  `json:"voucherCode" validate:"required"`
	Total       float64 `json:"total"`
	Currency    string  `json:"currency"`
	Addons      []Addon `json:"addons,omitempty"`
}

// PaymentConfirmation is the gateway's charge confirmation, shared by the
// whole voucher group.
type PaymentConfirmation struct {
	Method           string  `json:"method"`
	Brand            string  `json:"brand"`
	Installments     int     `json:"installments"`
	GatewayReference string  `json:"gatewayReference" validate:"required"`
	LocalTotal       float64 `json:"localTotal"`
	LocalCurrency    string  `json:"localCurrency"`
}

// IssuanceResponse confirms the charge: one voucher per passenger plus the
// shared group id and payment confirmation.
type IssuanceResponse struct {
	TraceID      string              `json:"traceId"`
	VoucherGroup string              `json:"voucherGroup" validate:"required"`
	Vouchers     []Voucher           `json:"vouchers" validate:"required,min=1,dive"`
	Payment      PaymentConfirmation `json:"payment" validate:"required"`
}

// CancelVoucherRequest voids a single voucher.
type CancelVoucherRequest struct {
	IssuingPoint
	VoucherCode string `json:"voucherCode" validate:"required"`
	Reason      string `json:"reason"`
}

// CancelVoucherResponse acknowledges a cancellation.
type CancelVoucherResponse struct {
	TraceID     string `json:"traceId"`
	VoucherCode string `json:"voucherCode" validate:"required"`
	Cancelled   bool   `json:"cancelled"`
}

// RectifyValidityRequest moves a voucher's coverage window.
type RectifyValidityRequest struct {
	IssuingPoint
	VoucherCode string `json:"voucherCode" validate:"required"`
	BeginDate   string `json:"beginDate" validate:"required,acdate"`
	EndDate     string `json:"endDate" validate:"required,acdate"`
}

// RectifyValidityResponse acknowledges a validity change.
type RectifyValidityResponse struct {
	TraceID     string `json:"traceId"`
	VoucherCode string `json:"voucherCode" validate:"required"`
	BeginDate   string `json:"beginDate"`
	EndDate     string `json:"endDate"`
}
