package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationTokenStatus represents the status of a QR registration token
// Matches PostgreSQL ENUM: qr_token_status
type RegistrationTokenStatus string

const (
	TokenStatusPending   RegistrationTokenStatus = "pending"   // Issued, waiting for the worker to register
	TokenStatusCompleted RegistrationTokenStatus = "completed" // Worker record created
	TokenStatusExpired   RegistrationTokenStatus = "expired"   // Passed expires_at before completion
	TokenStatusFailed    RegistrationTokenStatus = "failed"    // Worker creation failed
	TokenStatusCancelled RegistrationTokenStatus = "cancelled" // Withdrawn by an administrator
)

// WorkerDraft holds the unvalidated worker attributes captured at issuance.
// It only becomes an authoritative Worker record on completion.
type WorkerDraft struct {
	Name       string `json:"name" db:"worker_name"`
	EmployeeID string `json:"employee_id" db:"employee_id"`
	Department string `json:"department" db:"department"`
	Position   string `json:"position" db:"position"`
	Phone      string `json:"phone,omitempty" db:"phone"`
	Email      string `json:"email,omitempty" db:"email"`
}

// RegistrationToken represents one row of qr_registration_tokens
type RegistrationToken struct {
	ID           uuid.UUID               `json:"id" db:"id"`
	Token        string                  `json:"token" db:"token"`
	QRCodeData   string                  `json:"qr_code_data" db:"qr_code_data"`
	Draft        WorkerDraft             `json:"worker_draft"`
	Status       RegistrationTokenStatus `json:"status" db:"status"`
	ExpiresAt    time.Time               `json:"expires_at" db:"expires_at"`
	WorkerID     *uuid.UUID              `json:"worker_id,omitempty" db:"worker_id"`
	CompletedAt  *time.Time              `json:"completed_at,omitempty" db:"completed_at"`
	ErrorMessage *string                 `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time               `json:"created_at" db:"created_at"`
	CreatedBy    uuid.UUID               `json:"created_by" db:"created_by"`
}

// IsExpired reports whether the token is past its expiry, regardless of the
// stored status. Expiry is a computed property; the stored status only
// catches up when a mutation is already in flight.
func (t *RegistrationToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsTerminal reports whether the stored status permits no further transitions
func (t *RegistrationToken) IsTerminal() bool {
	return t.Status != TokenStatusPending
}

// EffectiveStatus returns the status a reader should act on: a stored
// 'pending' past its expiry reads as 'expired'.
func (t *RegistrationToken) EffectiveStatus() RegistrationTokenStatus {
	if t.Status == TokenStatusPending && t.IsExpired() {
		return TokenStatusExpired
	}
	return t.Status
}

// IssueTokenRequest is the admin request to issue a registration token
type IssueTokenRequest struct {
	Name           string `json:"name" binding:"required"`
	EmployeeID     string `json:"employee_id" binding:"required"`
	Department     string `json:"department" binding:"required"`
	Position       string `json:"position"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	ExpiresInHours int    `json:"expires_in_hours"` // defaults to 24 when zero
}

// IssueTokenResponse is returned after issuing a token
type IssueTokenResponse struct {
	Token           string      `json:"token"`
	RegistrationURL string      `json:"registration_url"`
	QRCodeData      string      `json:"qr_code_data"`
	Draft           WorkerDraft `json:"worker_draft"`
	ExpiresAt       time.Time   `json:"expires_at"`
}

// ValidateTokenResponse is returned to the kiosk after a successful lookup
type ValidateTokenResponse struct {
	Valid     bool        `json:"valid"`
	Draft     WorkerDraft `json:"worker_draft"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// CompleteRegistrationRequest carries the fields a worker may fill in or
// correct at the kiosk before the Worker record is created
type CompleteRegistrationRequest struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// TokenStatusCounts aggregates token counts per status for the admin dashboard
type TokenStatusCounts struct {
	Pending   int64 `json:"pending" db:"pending"`
	Completed int64 `json:"completed" db:"completed"`
	Expired   int64 `json:"expired" db:"expired"`
	Failed    int64 `json:"failed" db:"failed"`
	Cancelled int64 `json:"cancelled" db:"cancelled"`
}
