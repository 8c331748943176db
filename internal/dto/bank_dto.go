package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateBankAccountRequest struct {
	Name           string          `json:"name"            validate:"required,min=1,max=100"`
	IBAN           string          `json:"iban"            validate:"required,min=15,max=34"`
	BankName       string          `json:"bank_name"       validate:"max=100"`
	Currency       string          `json:"currency"        validate:"omitempty,len=3,alpha"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type UpdateBankAccountRequest struct {
	Name           *string          `json:"name"            validate:"omitempty,min=1,max=100"`
	BankName       *string          `json:"bank_name"       validate:"omitempty,max=100"`
	OpeningBalance *decimal.Decimal `json:"opening_balance"`
	Active         *bool            `json:"active"`
}

type MatchTransactionRequest struct {
	InvoiceID string `json:"invoice_id" validate:"required,uuid"`
}

// ─── Filter ──────────────────────────────────────────────────────────────────

type TransactionFilter struct {
	AccountID string `form:"account_id" validate:"omitempty,uuid"`
	From      string `form:"from"       validate:"omitempty,datetime=2006-01-02"`
	To        string `form:"to"         validate:"omitempty,datetime=2006-01-02"`
	// Matched: "true" = linked to an invoice, "false" = unlinked, empty = all
	Matched string `form:"matched" validate:"omitempty,oneof=true false"`
	Pagination
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type BankAccountResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	IBAN           string          `json:"iban"`
	BankName       string          `json:"bank_name"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Active         bool            `json:"active"`
}

type BankTransactionResponse struct {
	ID               string          `json:"id"`
	AccountID        string          `json:"account_id"`
	BookingDate      string          `json:"booking_date"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description"`
	Counterparty     string          `json:"counterparty"`
	Reference        string          `json:"reference"`
	MatchedInvoiceID *string         `json:"matched_invoice_id"`
	CreatedAt        time.Time       `json:"created_at"`
}

type ImportResponse struct {
	Format   string `json:"format"`
	Total    int    `json:"total"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

type BalanceResponse struct {
	AccountID        string          `json:"account_id"`
	Currency         string          `json:"currency"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	Movements        decimal.Decimal `json:"movements"`
	Balance          decimal.Decimal `json:"balance"`
	TransactionCount int64           `json:"transaction_count"`
}

type MatchResponse struct {
	Transaction   BankTransactionResponse `json:"transaction"`
	InvoiceStatus string                  `json:"invoice_status"`
}
