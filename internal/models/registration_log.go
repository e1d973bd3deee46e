package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit log actions for the token lifecycle
const (
	LogActionGenerated = "generated"
	LogActionValidated = "validated"
	LogActionCompleted = "completed"
	LogActionFailed    = "failed"
	LogActionExpired   = "expired"
	LogActionCancelled = "cancelled"
	LogActionReissued  = "reissued"
	LogActionRateLimit = "rate_limit_violation"
)

// RegistrationLog is one row of the append-only qr_registration_logs table.
// Rows are never updated or deleted; they exist for audit and troubleshooting.
type RegistrationLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TokenID   uuid.UUID `json:"token_id" db:"token_id"`
	Action    string    `json:"action" db:"action"`
	Status    string    `json:"status" db:"status"`
	Message   string    `json:"message,omitempty" db:"message"`
	IPAddress string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent string    `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
