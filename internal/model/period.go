package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PeriodOpen   = "open"
	PeriodClosed = "closed"
)

// AccountingPeriod records the close state of one YYYY-MM month. A month
// without a row is open.
type AccountingPeriod struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_period_company_period"`
	Period    string    `gorm:"type:varchar(7);not null;uniqueIndex:idx_period_company_period"`
	Status    string    `gorm:"type:varchar(10);not null"`
	ClosedAt  *time.Time
	ClosedBy  *uuid.UUID `gorm:"type:uuid"`
	UpdatedAt time.Time
}

func (p *AccountingPeriod) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }
