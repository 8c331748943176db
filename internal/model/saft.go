package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SAFTExport is a generated D406 file. Failed generations are stored too so
// the error codes stay visible.
// Status: "generated" | "failed"
type SAFTExport struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID     uuid.UUID       `gorm:"type:uuid;index;not null"`
	Period        string          `gorm:"type:varchar(7);not null"`
	Status        string          `gorm:"type:varchar(20);not null"`
	XMLKey        *string         `gorm:"column:xml_key"`
	Hash          string          `gorm:"type:varchar(64)"`
	Size          int             `gorm:"not null"`
	InvoiceCount  int             `gorm:"not null"`
	TotalSales    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	TotalPurchase decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	VATCollected  decimal.Decimal `gorm:"column:vat_collected;type:decimal(14,2);not null"`
	VATDeductible decimal.Decimal `gorm:"column:vat_deductible;type:decimal(14,2);not null"`
	Errors        []string        `gorm:"serializer:json;type:text"`
	Warnings      []string        `gorm:"serializer:json;type:text"`
	CreatedBy     uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt     time.Time
}

func (SAFTExport) TableName() string { return "saft_exports" }

func (e *SAFTExport) BeforeCreate(*gorm.DB) error { ensureID(&e.ID); return nil }
