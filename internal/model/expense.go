package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ExpensePending  = "pending"
	ExpenseApproved = "approved"
	ExpenseRejected = "rejected"

	SourceManual = "manual"
	SourceOCR    = "ocr"
)

// Expense is a cost document (receipt, bill) recorded by a company.
type Expense struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID     uuid.UUID `gorm:"type:uuid;index;not null"`
	VendorName    string    `gorm:"not null"`
	VendorCUI     string    `gorm:"column:vendor_cui;type:varchar(20)"`
	Category      string    `gorm:"type:varchar(40);not null"`
	Description   string
	Amount        decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	VATAmount     decimal.Decimal `gorm:"column:vat_amount;type:decimal(14,2);not null"`
	Total         decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Currency      string          `gorm:"type:varchar(3);not null"`
	ExpenseDate   time.Time       `gorm:"type:date;not null;index"`
	PaymentMethod string          `gorm:"type:varchar(20)"`
	ReceiptNumber string          `gorm:"type:varchar(40)"`
	// DocumentKey is the object storage key of the scanned receipt
	DocumentKey         *string
	DocumentContentType *string
	Status              string `gorm:"type:varchar(20);not null"`
	Source              string `gorm:"type:varchar(10);not null"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (e *Expense) BeforeCreate(*gorm.DB) error { ensureID(&e.ID); return nil }
