package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EFacturaConfig holds a company's ANAF SPV settings and OAuth tokens.
type EFacturaConfig struct {
	CompanyID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Enabled            bool      `gorm:"not null"`
	AutoSubmit         bool      `gorm:"not null"`
	UseTestEnvironment bool      `gorm:"not null"`
	ClientID           string
	ClientSecret       string
	AccessToken        string
	RefreshToken       string
	TokenExpiresAt     *time.Time
	NotificationEmail  string
	UpdatedAt          time.Time
}

func (EFacturaConfig) TableName() string { return "efactura_configs" }

// Submission states.
const (
	SubmissionPending    = "pending"
	SubmissionUploaded   = "uploaded"
	SubmissionProcessing = "processing"
	SubmissionAccepted   = "accepted"
	SubmissionRejected   = "rejected"
	SubmissionError      = "error"
)

// EFacturaSubmission tracks one upload of an invoice XML to ANAF.
type EFacturaSubmission struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;index;not null"`
	InvoiceID uuid.UUID `gorm:"type:uuid;index;not null"`
	Status    string    `gorm:"type:varchar(20);not null;index"`
	// UploadIndex is ANAF's index_incarcare, used to poll stareMesaj
	UploadIndex *string `gorm:"type:varchar(40)"`
	DownloadID  *string `gorm:"type:varchar(40)"`
	XMLKey      string  `gorm:"column:xml_key;not null"`
	XMLHash     string  `gorm:"column:xml_hash;type:varchar(64);not null"`
	TestMode    bool    `gorm:"not null"`
	// Attempts counts upload tries; the poller retries errors while below
	// the limit
	Attempts      int `gorm:"not null"`
	LastError     *string
	SubmittedAt   *time.Time
	LastCheckedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (EFacturaSubmission) TableName() string { return "efactura_submissions" }

func (s *EFacturaSubmission) BeforeCreate(*gorm.DB) error { ensureID(&s.ID); return nil }

// EFacturaLog is an append-only audit trail of ANAF interactions.
type EFacturaLog struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID  `gorm:"type:uuid;index;not null"`
	SubmissionID *uuid.UUID `gorm:"type:uuid;index"`
	Action       string     `gorm:"type:varchar(20);not null"`
	Status       string     `gorm:"type:varchar(20);not null"`
	Message      string
	CreatedAt    time.Time
}

func (EFacturaLog) TableName() string { return "efactura_logs" }

func (l *EFacturaLog) BeforeCreate(*gorm.DB) error { ensureID(&l.ID); return nil }
