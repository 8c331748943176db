package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CalculateTaxRequest takes either an explicit Rate or a Country/Kind pair
// resolved on Date. Inclusive means Amount already contains VAT.
type CalculateTaxRequest struct {
	Amount    decimal.Decimal  `json:"amount"`
	Rate      *decimal.Decimal `json:"rate"`
	Country   string           `json:"country"   validate:"omitempty,len=2,alpha"`
	Kind      string           `json:"kind"      validate:"omitempty,oneof=standard reduced reduced_2 super_reduced parking zero"`
	Date      string           `json:"date"      validate:"omitempty,datetime=2006-01-02"`
	Inclusive bool             `json:"inclusive"`
}

type TreatmentRequest struct {
	SupplierCountry string `json:"supplier_country" validate:"required,len=2,alpha"`
	CustomerCountry string `json:"customer_country" validate:"omitempty,len=2,alpha"`
	SupplierVATID   string `json:"supplier_vat_id"  validate:"max=20"`
	CustomerVATID   string `json:"customer_vat_id"  validate:"max=20"`
	SupplyType      string `json:"supply_type"      validate:"omitempty,oneof=goods services digital telecom broadcast"`
	OSSRegistered   bool   `json:"oss_registered"`
	Date            string `json:"date"             validate:"omitempty,datetime=2006-01-02"`
}

type RatesQuery struct {
	Date string `form:"date" validate:"omitempty,datetime=2006-01-02"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CalculateTaxResponse struct {
	Net   decimal.Decimal `json:"net"`
	VAT   decimal.Decimal `json:"vat"`
	Gross decimal.Decimal `json:"gross"`
	Rate  decimal.Decimal `json:"rate"`
}

type CountryRatesResponse struct {
	Code         string            `json:"code"`
	Name         string            `json:"name"`
	Currency     string            `json:"currency"`
	EffectiveOn  string            `json:"effective_on"`
	Standard     decimal.Decimal   `json:"standard"`
	Reduced      []decimal.Decimal `json:"reduced"`
	SuperReduced *decimal.Decimal  `json:"super_reduced,omitempty"`
	Parking      *decimal.Decimal  `json:"parking,omitempty"`
}
