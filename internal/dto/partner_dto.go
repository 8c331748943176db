package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CUI is free-form here: the service checksums Romanian codes and accepts
// foreign VAT ids as-is.
type CreatePartnerRequest struct {
	Type       string `json:"type"         validate:"required,oneof=client supplier both"`
	Name       string `json:"name"         validate:"required,min=2,max=200"`
	CUI        string `json:"cui"          validate:"max=20"`
	RegCom     string `json:"reg_com"      validate:"max=30"`
	Address    string `json:"address"      validate:"max=300"`
	City       string `json:"city"         validate:"max=100"`
	County     string `json:"county"       validate:"max=30"`
	PostalCode string `json:"postal_code"  validate:"max=10"`
	Country    string `json:"country"      validate:"omitempty,len=2,alpha"`
	Email      string `json:"email"        validate:"omitempty,email"`
	Phone      string `json:"phone"        validate:"max=30"`
	IBAN       string `json:"iban"         validate:"max=34"`
	IsVATPayer bool   `json:"is_vat_payer"`
}

type UpdatePartnerRequest struct {
	Type       *string `json:"type"         validate:"omitempty,oneof=client supplier both"`
	Name       *string `json:"name"         validate:"omitempty,min=2,max=200"`
	CUI        *string `json:"cui"          validate:"omitempty,max=20"`
	RegCom     *string `json:"reg_com"      validate:"omitempty,max=30"`
	Address    *string `json:"address"      validate:"omitempty,max=300"`
	City       *string `json:"city"         validate:"omitempty,max=100"`
	County     *string `json:"county"       validate:"omitempty,max=30"`
	PostalCode *string `json:"postal_code"  validate:"omitempty,max=10"`
	Country    *string `json:"country"      validate:"omitempty,len=2,alpha"`
	Email      *string `json:"email"        validate:"omitempty,email"`
	Phone      *string `json:"phone"        validate:"omitempty,max=30"`
	IBAN       *string `json:"iban"         validate:"omitempty,max=34"`
	IsVATPayer *bool   `json:"is_vat_payer"`
	Active     *bool   `json:"active"`
}

// ─── Filter ──────────────────────────────────────────────────────────────────

type PartnerFilter struct {
	Type   string `form:"type"   validate:"omitempty,oneof=client supplier both"`
	Search string `form:"search"`
	// Active: "false" = inactive, "all" = every partner, anything else = active
	Active string `form:"active"`
	Pagination
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PartnerResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Name       string `json:"name"`
	CUI        string `json:"cui"`
	RegCom     string `json:"reg_com"`
	Address    string `json:"address"`
	City       string `json:"city"`
	County     string `json:"county"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	IBAN       string `json:"iban"`
	IsVATPayer bool   `json:"is_vat_payer"`
	Active     bool   `json:"active"`
}
