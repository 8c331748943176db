package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a platform account.
// Role: "admin" | "accountant" | "user"
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	Name         string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"type:varchar(20);not null"`
	Active       bool      `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) BeforeCreate(*gorm.DB) error { ensureID(&u.ID); return nil }

// Company is a tenant. Every business record hangs off a company.
type Company struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name       string    `gorm:"not null"`
	CUI        string    `gorm:"column:cui;type:varchar(12);uniqueIndex;not null"`
	RegCom     string    `gorm:"type:varchar(30)"`
	Address    string
	City       string
	County     string `gorm:"type:varchar(30)"`
	PostalCode string `gorm:"type:varchar(10)"`
	Country    string `gorm:"type:varchar(2);not null"`
	Email      string
	Phone      string
	IBAN       string `gorm:"column:iban;type:varchar(34)"`
	BankName   string
	VATPayer   bool `gorm:"column:vat_payer;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (c *Company) BeforeCreate(*gorm.DB) error { ensureID(&c.ID); return nil }

// Member roles, strongest first.
const (
	MemberOwner      = "owner"
	MemberAdmin      = "admin"
	MemberAccountant = "accountant"
	MemberViewer     = "viewer"
)

// CompanyMember grants a user access to a company.
type CompanyMember struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_member_company_user"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_member_company_user;index"`
	Role      string    `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time

	User *User `gorm:"foreignKey:UserID"`
}

func (m *CompanyMember) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }
