package dto

import "time"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// EFacturaConfigRequest updates only the fields that are set. Secrets are
// write-only.
type EFacturaConfigRequest struct {
	Enabled            *bool      `json:"enabled"`
	AutoSubmit         *bool      `json:"auto_submit"`
	UseTestEnvironment *bool      `json:"use_test_environment"`
	ClientID           *string    `json:"client_id"          validate:"omitempty,max=200"`
	ClientSecret       *string    `json:"client_secret"      validate:"omitempty,max=200"`
	AccessToken        *string    `json:"access_token"       validate:"omitempty,max=4096"`
	RefreshToken       *string    `json:"refresh_token"      validate:"omitempty,max=4096"`
	TokenExpiresAt     *time.Time `json:"token_expires_at"`
	NotificationEmail  *string    `json:"notification_email" validate:"omitempty,email"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type EFacturaConfigResponse struct {
	Enabled            bool       `json:"enabled"`
	AutoSubmit         bool       `json:"auto_submit"`
	UseTestEnvironment bool       `json:"use_test_environment"`
	ClientID           string     `json:"client_id"`
	HasClientSecret    bool       `json:"has_client_secret"`
	HasAccessToken     bool       `json:"has_access_token"`
	TokenExpiresAt     *time.Time `json:"token_expires_at"`
	NotificationEmail  string     `json:"notification_email"`
}

type SubmissionResponse struct {
	ID            string     `json:"id"`
	InvoiceID     string     `json:"invoice_id"`
	Status        string     `json:"status"`
	UploadIndex   *string    `json:"upload_index"`
	DownloadID    *string    `json:"download_id"`
	XMLHash       string     `json:"xml_hash"`
	TestMode      bool       `json:"test_mode"`
	Attempts      int        `json:"attempts"`
	LastError     *string    `json:"last_error"`
	SubmittedAt   *time.Time `json:"submitted_at"`
	LastCheckedAt *time.Time `json:"last_checked_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

type EFacturaLogResponse struct {
	ID           string    `json:"id"`
	SubmissionID *string   `json:"submission_id"`
	Action       string    `json:"action"`
	Status       string    `json:"status"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
}

type SubmissionFilter struct {
	Status string `form:"status" validate:"omitempty,oneof=pending uploaded processing accepted rejected error"`
	Pagination
}

type LogFilter struct {
	SubmissionID string `form:"submission_id" validate:"omitempty,uuid"`
	Pagination
}
