package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type SAFTExportResponse struct {
	ID            string          `json:"id"`
	Period        string          `json:"period"`
	Status        string          `json:"status"`
	Hash          string          `json:"hash"`
	Size          int             `json:"size"`
	InvoiceCount  int             `json:"invoice_count"`
	TotalSales    decimal.Decimal `json:"total_sales"`
	TotalPurchase decimal.Decimal `json:"total_purchases"`
	VATCollected  decimal.Decimal `json:"vat_collected"`
	VATDeductible decimal.Decimal `json:"vat_deductible"`
	VATBalance    decimal.Decimal `json:"vat_balance"`
	Errors        []string        `json:"errors"`
	Warnings      []string        `json:"warnings"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SAFTFile is a stored D406 XML ready for download.
type SAFTFile struct {
	Filename string
	Data     []byte
}
