package models

import (
	"time"

	"github.com/google/uuid"
)

// Worker is the authoritative worker record created on successful completion.
// Downstream subsystems (health exams, education, accident reporting) consume
// it by id; this service only creates and reads it.
type Worker struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	EmployeeID    string    `json:"employee_id" db:"employee_id"`
	Department    string    `json:"department" db:"department"`
	Position      string    `json:"position" db:"position"`
	Phone         string    `json:"phone,omitempty" db:"phone"`
	Email         string    `json:"email,omitempty" db:"email"`
	RegisteredVia string    `json:"registered_via" db:"registered_via"` // "qr" for this flow
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	CreatedBy     uuid.UUID `json:"created_by" db:"created_by"`
}
