package database

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/safework-pro/qr-registration-backend/internal/models"
)

// RegistrationLogRepository handles the append-only qr_registration_logs table
type RegistrationLogRepository struct {
	db DB
}

// NewRegistrationLogRepository creates a new registration log repository
func NewRegistrationLogRepository(db DB) *RegistrationLogRepository {
	return &RegistrationLogRepository{
		db: db,
	}
}

// Insert appends one audit row. Rows are never updated or deleted.
func (r *RegistrationLogRepository) Insert(entry *models.RegistrationLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	query := `
		INSERT INTO qr_registration_logs (
			id, token_id, action, status, message, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err := r.db.Exec(query,
		entry.ID, entry.TokenID, entry.Action, entry.Status,
		entry.Message, entry.IPAddress, entry.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("failed to insert registration log: %w", err)
	}

	return nil
}

// ListByToken returns the audit trail for a token, oldest first
func (r *RegistrationLogRepository) ListByToken(tokenID uuid.UUID, limit int) ([]*models.RegistrationLog, error) {
	query := `
		SELECT id, token_id, action, status, message, ip_address, user_agent, created_at
		FROM qr_registration_logs
		WHERE token_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.db.Query(query, tokenID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list registration logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.RegistrationLog{}
	for rows.Next() {
		var entry models.RegistrationLog
		err := rows.Scan(
			&entry.ID, &entry.TokenID, &entry.Action, &entry.Status,
			&entry.Message, &entry.IPAddress, &entry.UserAgent, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration log: %w", err)
		}
		logs = append(logs, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registration logs: %w", err)
	}

	return logs, nil
}
