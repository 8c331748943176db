package dto

import "time"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateCompanyRequest struct {
	Name       string `json:"name"        validate:"required,min=2,max=200"`
	CUI        string `json:"cui"         validate:"required,cui"`
	RegCom     string `json:"reg_com"     validate:"max=30"`
	Address    string `json:"address"     validate:"max=300"`
	City       string `json:"city"        validate:"max=100"`
	County     string `json:"county"      validate:"max=30"`
	PostalCode string `json:"postal_code" validate:"max=10"`
	Country    string `json:"country"     validate:"omitempty,len=2,alpha"`
	Email      string `json:"email"       validate:"omitempty,email"`
	Phone      string `json:"phone"       validate:"max=30"`
	IBAN       string `json:"iban"        validate:"max=34"`
	BankName   string `json:"bank_name"   validate:"max=100"`
	VATPayer   bool   `json:"vat_payer"`
}

// UpdateCompanyRequest leaves the CUI alone: it identifies the tenant at ANAF.
type UpdateCompanyRequest struct {
	Name       *string `json:"name"        validate:"omitempty,min=2,max=200"`
	RegCom     *string `json:"reg_com"     validate:"omitempty,max=30"`
	Address    *string `json:"address"     validate:"omitempty,max=300"`
	City       *string `json:"city"        validate:"omitempty,max=100"`
	County     *string `json:"county"      validate:"omitempty,max=30"`
	PostalCode *string `json:"postal_code" validate:"omitempty,max=10"`
	Email      *string `json:"email"       validate:"omitempty,email"`
	Phone      *string `json:"phone"       validate:"omitempty,max=30"`
	IBAN       *string `json:"iban"        validate:"omitempty,max=34"`
	BankName   *string `json:"bank_name"   validate:"omitempty,max=100"`
	VATPayer   *bool   `json:"vat_payer"`
}

type AddMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role"  validate:"required,oneof=owner admin accountant viewer"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CompanyResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CUI        string    `json:"cui"`
	RegCom     string    `json:"reg_com"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	County     string    `json:"county"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	IBAN       string    `json:"iban"`
	BankName   string    `json:"bank_name"`
	VATPayer   bool      `json:"vat_payer"`
	Role       string    `json:"role,omitempty"` // caller's membership role
	CreatedAt  time.Time `json:"created_at"`
}

type MemberResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}
