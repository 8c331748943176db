package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BankAccount is a company's current account.
type BankAccount struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID      uuid.UUID `gorm:"type:uuid;index;not null"`
	Name           string    `gorm:"not null"`
	IBAN           string    `gorm:"column:iban;type:varchar(34);not null"`
	BankName       string
	Currency       string          `gorm:"type:varchar(3);not null"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Active         bool            `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a *BankAccount) BeforeCreate(*gorm.DB) error { ensureID(&a.ID); return nil }

// BankTransaction is an immutable statement line. Amount is signed: credits
// are positive. Only MatchedInvoiceID changes after import.
type BankTransaction struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	AccountID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_bank_tx_account_reference"`
	BookingDate  time.Time       `gorm:"type:date;not null;index"`
	Amount       decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Description  string
	Counterparty string
	// Reference is the bank's transaction id, used to skip re-imported lines
	Reference        string     `gorm:"type:varchar(80);not null;uniqueIndex:idx_bank_tx_account_reference"`
	MatchedInvoiceID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt        time.Time
}

func (t *BankTransaction) BeforeCreate(*gorm.DB) error { ensureID(&t.ID); return nil }
