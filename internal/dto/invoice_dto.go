package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// InvoiceLineRequest leaves VATRate empty to take the Romanian standard rate
// effective on the issue date.
type InvoiceLineRequest struct {
	Description string           `json:"description"  validate:"required,min=1,max=500"`
	Quantity    decimal.Decimal  `json:"quantity"     validate:"required"`
	Unit        string           `json:"unit"         validate:"omitempty,max=10"`
	UnitPrice   decimal.Decimal  `json:"unit_price"   validate:"min=0"`
	VATRate     *decimal.Decimal `json:"vat_rate"`
	VATCategory string           `json:"vat_category" validate:"omitempty,oneof=S Z E AE K G O"`
}

type CreateInvoiceRequest struct {
	Number        string               `json:"number"         validate:"required,max=40"`
	Series        string               `json:"series"         validate:"max=10"`
	Direction     string               `json:"direction"      validate:"required,oneof=issued received"`
	Type          string               `json:"type"           validate:"omitempty,oneof=standard credit_note debit_note corrective self_billing"`
	PartnerID     string               `json:"partner_id"     validate:"required,uuid"`
	IssueDate     string               `json:"issue_date"     validate:"required,datetime=2006-01-02"`
	DueDate       string               `json:"due_date"       validate:"omitempty,datetime=2006-01-02"`
	Currency      string               `json:"currency"       validate:"omitempty,len=3,alpha"`
	PaymentMethod string               `json:"payment_method" validate:"omitempty,oneof=cash transfer debit_transfer card direct_debit"`
	Notes         string               `json:"notes"          validate:"max=2000"`
	Lines         []InvoiceLineRequest `json:"lines"          validate:"required,min=1,dive"`
}

// UpdateInvoiceRequest applies to drafts only. A non-nil Lines replaces every
// line.
type UpdateInvoiceRequest struct {
	Number        *string              `json:"number"         validate:"omitempty,max=40"`
	Series        *string              `json:"series"         validate:"omitempty,max=10"`
	Type          *string              `json:"type"           validate:"omitempty,oneof=standard credit_note debit_note corrective self_billing"`
	PartnerID     *string              `json:"partner_id"     validate:"omitempty,uuid"`
	IssueDate     *string              `json:"issue_date"     validate:"omitempty,datetime=2006-01-02"`
	DueDate       *string              `json:"due_date"       validate:"omitempty,datetime=2006-01-02"`
	Currency      *string              `json:"currency"       validate:"omitempty,len=3,alpha"`
	PaymentMethod *string              `json:"payment_method" validate:"omitempty,oneof=cash transfer debit_transfer card direct_debit"`
	Notes         *string              `json:"notes"          validate:"omitempty,max=2000"`
	Lines         []InvoiceLineRequest `json:"lines"          validate:"omitempty,min=1,dive"`
}

type SendInvoiceRequest struct {
	// To defaults to the partner's email
	To      string `json:"to"      validate:"omitempty,email"`
	Message string `json:"message" validate:"max=2000"`
}

// ─── Filter ──────────────────────────────────────────────────────────────────

type InvoiceFilter struct {
	Direction string `form:"direction"  validate:"omitempty,oneof=issued received"`
	Status    string `form:"status"     validate:"omitempty,oneof=draft issued paid cancelled"`
	PartnerID string `form:"partner_id" validate:"omitempty,uuid"`
	From      string `form:"from"       validate:"omitempty,datetime=2006-01-02"`
	To        string `form:"to"         validate:"omitempty,datetime=2006-01-02"`
	Search    string `form:"search"`
	Pagination
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type InvoiceLineResponse struct {
	ID          string          `json:"id"`
	Position    int             `json:"position"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	VATCategory string          `json:"vat_category"`
	Net         decimal.Decimal `json:"net"`
	VAT         decimal.Decimal `json:"vat"`
	Gross       decimal.Decimal `json:"gross"`
}

type InvoiceResponse struct {
	ID            string                `json:"id"`
	Number        string                `json:"number"`
	Series        string                `json:"series"`
	Direction     string                `json:"direction"`
	Type          string                `json:"type"`
	PartnerID     *string               `json:"partner_id"`
	PartnerName   string                `json:"partner_name,omitempty"`
	IssueDate     string                `json:"issue_date"`
	DueDate       *string               `json:"due_date"`
	Currency      string                `json:"currency"`
	Status        string                `json:"status"`
	PaymentMethod string                `json:"payment_method"`
	Notes         string                `json:"notes"`
	Subtotal      decimal.Decimal       `json:"subtotal"`
	VATAmount     decimal.Decimal       `json:"vat_amount"`
	Total         decimal.Decimal       `json:"total"`
	PaidAt        *time.Time            `json:"paid_at"`
	CreatedAt     time.Time             `json:"created_at"`
	Lines         []InvoiceLineResponse `json:"lines,omitempty"`
}
