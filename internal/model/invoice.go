package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DirectionIssued   = "issued"
	DirectionReceived = "received"

	InvoiceDraft     = "draft"
	InvoiceIssued    = "issued"
	InvoicePaid      = "paid"
	InvoiceCancelled = "cancelled"
)

// Invoice is an issued or received invoice.
// Type: "standard" | "credit_note" | "debit_note" | "corrective" | "self_billing"
type Invoice struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_invoices_company_number"`
	PartnerID     *uuid.UUID `gorm:"type:uuid;index"`
	Number        string     `gorm:"type:varchar(40);not null;index:idx_invoices_company_number"`
	Series        string     `gorm:"type:varchar(10)"`
	Direction     string     `gorm:"type:varchar(10);not null"`
	Type          string     `gorm:"type:varchar(20);not null"`
	IssueDate     time.Time  `gorm:"type:date;not null;index"`
	DueDate       *time.Time `gorm:"type:date"`
	Currency      string     `gorm:"type:varchar(3);not null"`
	Status        string     `gorm:"type:varchar(20);not null"`
	PaymentMethod string     `gorm:"type:varchar(20);not null"`
	Notes         string
	// Totals are always recomputed from the lines by the invoice service
	Subtotal  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	VATAmount decimal.Decimal `gorm:"column:vat_amount;type:decimal(14,2);not null"`
	Total     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time

	Partner *Partner      `gorm:"foreignKey:PartnerID"`
	Lines   []InvoiceLine `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error { ensureID(&i.ID); return nil }

// InvoiceLine is one priced line. Net, VAT and Gross are stored rounded.
type InvoiceLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;index;not null"`
	Position    int             `gorm:"not null"`
	Description string          `gorm:"not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	Unit        string          `gorm:"type:varchar(10);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	VATRate     decimal.Decimal `gorm:"column:vat_rate;type:decimal(5,2);not null"`
	VATCategory string          `gorm:"column:vat_category;type:varchar(2);not null"`
	Net         decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	VAT         decimal.Decimal `gorm:"column:vat;type:decimal(14,2);not null"`
	Gross       decimal.Decimal `gorm:"type:decimal(14,2);not null"`
}

func (l *InvoiceLine) BeforeCreate(*gorm.DB) error { ensureID(&l.ID); return nil }
