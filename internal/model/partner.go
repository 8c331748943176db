package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Partner is a client or supplier of a company.
// Type: "client" | "supplier" | "both"
type Partner struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Type       string    `gorm:"type:varchar(10);not null"`
	Name       string    `gorm:"not null"`
	CUI        string    `gorm:"column:cui;type:varchar(20);index"`
	RegCom     string    `gorm:"type:varchar(30)"`
	Address    string
	City       string
	County     string `gorm:"type:varchar(30)"`
	PostalCode string `gorm:"type:varchar(10)"`
	Country    string `gorm:"type:varchar(2);not null"`
	Email      string
	Phone      string
	IBAN       string `gorm:"column:iban;type:varchar(34)"`
	IsVATPayer bool   `gorm:"column:is_vat_payer;not null"`
	// Active=false is the soft-deleted state; inactive partners stay
	// referenced by historical invoices
	Active    bool `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Partner) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }
