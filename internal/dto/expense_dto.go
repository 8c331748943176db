package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CreateExpenseRequest carries the net Amount; Total is computed.
type CreateExpenseRequest struct {
	VendorName    string          `json:"vendor_name"    validate:"required,min=1,max=200"`
	VendorCUI     string          `json:"vendor_cui"     validate:"max=20"`
	Category      string          `json:"category"       validate:"required,max=40"`
	Description   string          `json:"description"    validate:"max=1000"`
	Amount        decimal.Decimal `json:"amount"         validate:"min=0"`
	VATAmount     decimal.Decimal `json:"vat_amount"     validate:"min=0"`
	Currency      string          `json:"currency"       validate:"omitempty,len=3,alpha"`
	ExpenseDate   string          `json:"expense_date"   validate:"required,datetime=2006-01-02"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=cash transfer debit_transfer card direct_debit"`
	ReceiptNumber string          `json:"receipt_number" validate:"max=40"`
}

type UpdateExpenseRequest struct {
	VendorName    *string          `json:"vendor_name"    validate:"omitempty,min=1,max=200"`
	VendorCUI     *string          `json:"vendor_cui"     validate:"omitempty,max=20"`
	Category      *string          `json:"category"       validate:"omitempty,max=40"`
	Description   *string          `json:"description"    validate:"omitempty,max=1000"`
	Amount        *decimal.Decimal `json:"amount"`
	VATAmount     *decimal.Decimal `json:"vat_amount"`
	Currency      *string          `json:"currency"       validate:"omitempty,len=3,alpha"`
	ExpenseDate   *string          `json:"expense_date"   validate:"omitempty,datetime=2006-01-02"`
	PaymentMethod *string          `json:"payment_method" validate:"omitempty,oneof=cash transfer debit_transfer card direct_debit"`
	ReceiptNumber *string          `json:"receipt_number" validate:"omitempty,max=40"`
}

// ─── Filter ──────────────────────────────────────────────────────────────────

type ExpenseFilter struct {
	Category string `form:"category"`
	Status   string `form:"status" validate:"omitempty,oneof=pending approved rejected"`
	Source   string `form:"source" validate:"omitempty,oneof=manual ocr"`
	From     string `form:"from"   validate:"omitempty,datetime=2006-01-02"`
	To       string `form:"to"     validate:"omitempty,datetime=2006-01-02"`
	Pagination
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ExpenseResponse struct {
	ID            string          `json:"id"`
	VendorName    string          `json:"vendor_name"`
	VendorCUI     string          `json:"vendor_cui"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	VATAmount     decimal.Decimal `json:"vat_amount"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	ExpenseDate   string          `json:"expense_date"`
	PaymentMethod string          `json:"payment_method"`
	ReceiptNumber string          `json:"receipt_number"`
	HasDocument   bool            `json:"has_document"`
	Status        string          `json:"status"`
	Source        string          `json:"source"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ExpenseDocument is a stored receipt file.
type ExpenseDocument struct {
	Data        []byte
	ContentType string
	Filename    string
}
