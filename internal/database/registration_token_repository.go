package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/safework-pro/qr-registration-backend/internal/models"
)

var (
	// ErrTokenNotPending indicates a conditional transition found the token
	// in a state other than 'pending'
	ErrTokenNotPending = errors.New("token is not in pending status")
)

// RegistrationTokenRepository handles qr_registration_tokens database operations
type RegistrationTokenRepository struct {
	db *sqlx.DB
}

// NewRegistrationTokenRepository creates a new RegistrationTokenRepository
func NewRegistrationTokenRepository(db *sqlx.DB) *RegistrationTokenRepository {
	return &RegistrationTokenRepository{db: db}
}

const tokenColumns = `
	id, token, qr_code_data,
	worker_name, employee_id, department, position, phone, email,
	status, expires_at, worker_id, completed_at, error_message,
	created_at, created_by
`

// CreateToken persists a freshly issued pending token
func (r *RegistrationTokenRepository) CreateToken(t *models.RegistrationToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	t.Status = models.TokenStatusPending

	query := `
		INSERT INTO qr_registration_tokens (
			id, token, qr_code_data,
			worker_name, employee_id, department, position, phone, email,
			status, expires_at, created_at, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(query,
		t.ID, t.Token, t.QRCodeData,
		t.Draft.Name, t.Draft.EmployeeID, t.Draft.Department, t.Draft.Position,
		t.Draft.Phone, t.Draft.Email,
		t.Status, t.ExpiresAt, t.CreatedAt, t.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create registration token: %w", err)
	}

	return nil
}

// GetByToken retrieves a token record by its exact token string.
// Returns (nil, nil) when no record exists.
func (r *RegistrationTokenRepository) GetByToken(token string) (*models.RegistrationToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM qr_registration_tokens
		WHERE token = $1
	`

	t, err := r.scanToken(r.db.QueryRow(query, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration token: %w", err)
	}

	return t, nil
}

// MarkExpired transitions a still-pending token to 'expired'.
// Returns true when this call performed the transition; false when another
// caller already moved the token out of 'pending'.
func (r *RegistrationTokenRepository) MarkExpired(token string) (bool, error) {
	query := `
		UPDATE qr_registration_tokens
		SET status = 'expired'
		WHERE token = $1 AND status = 'pending'
	`

	result, err := r.db.Exec(query, token)
	if err != nil {
		return false, fmt.Errorf("failed to mark token expired: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// CompleteToken atomically claims a pending token and creates the worker
// record inside one transaction. The conditional update is the only path
// from 'pending' to 'completed': of N concurrent callers exactly one sees
// RowsAffected == 1, the rest get ErrTokenNotPending.
func (r *RegistrationTokenRepository) CompleteToken(token string, worker *models.Worker) error {
	if worker.ID == uuid.Nil {
		worker.ID = uuid.New()
	}
	worker.CreatedAt = time.Now()

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE qr_registration_tokens
		SET status = 'completed',
		    worker_id = $2,
		    completed_at = NOW()
		WHERE token = $1 AND status = 'pending'
	`, token, worker.ID)
	if err != nil {
		return fmt.Errorf("failed to claim token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTokenNotPending
	}

	_, err = tx.Exec(`
		INSERT INTO workers (
			id, name, employee_id, department, position, phone, email,
			registered_via, created_at, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		worker.ID, worker.Name, worker.EmployeeID, worker.Department,
		worker.Position, worker.Phone, worker.Email,
		worker.RegisteredVia, worker.CreatedAt, worker.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}

	return nil
}

// MarkFailed transitions a pending token to 'failed' and records the reason
func (r *RegistrationTokenRepository) MarkFailed(token, reason string) error {
	query := `
		UPDATE qr_registration_tokens
		SET status = 'failed',
		    error_message = $2
		WHERE token = $1 AND status = 'pending'
	`

	result, err := r.db.Exec(query, token, reason)
	if err != nil {
		return fmt.Errorf("failed to mark token failed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTokenNotPending
	}

	return nil
}

// MarkCancelled transitions a pending token to 'cancelled'
func (r *RegistrationTokenRepository) MarkCancelled(token string) error {
	query := `
		UPDATE qr_registration_tokens
		SET status = 'cancelled'
		WHERE token = $1 AND status = 'pending'
	`

	result, err := r.db.Exec(query, token)
	if err != nil {
		return fmt.Errorf("failed to cancel token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTokenNotPending
	}

	return nil
}

// ListTokens returns tokens newest first, optionally filtered by status
func (r *RegistrationTokenRepository) ListTokens(status string, limit, offset int) ([]*models.RegistrationToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM qr_registration_tokens
	`
	args := []interface{}{}

	if status != "" {
		query += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, status, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registration tokens: %w", err)
	}
	defer rows.Close()

	tokens := []*models.RegistrationToken{}
	for rows.Next() {
		t, err := r.scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registration tokens: %w", err)
	}

	return tokens, nil
}

// CountByStatus returns token counts aggregated per status
func (r *RegistrationTokenRepository) CountByStatus() (*models.TokenStatusCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending')   AS pending,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'expired')   AS expired,
			COUNT(*) FILTER (WHERE status = 'failed')    AS failed,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled
		FROM qr_registration_tokens
	`

	var counts models.TokenStatusCounts
	err := r.db.QueryRow(query).Scan(
		&counts.Pending, &counts.Completed, &counts.Expired,
		&counts.Failed, &counts.Cancelled,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count tokens by status: %w", err)
	}

	return &counts, nil
}

// ExpireOverdueTokens transitions every pending token past its expiry to
// 'expired' and returns the affected ids. Used by the maintenance sweep;
// the request path relies on lazy expiry instead.
func (r *RegistrationTokenRepository) ExpireOverdueTokens() ([]uuid.UUID, error) {
	query := `
		UPDATE qr_registration_tokens
		SET status = 'expired'
		WHERE status = 'pending' AND expires_at < NOW()
		RETURNING id
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to expire overdue tokens: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expired token id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expired token ids: %w", err)
	}

	return ids, nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *RegistrationTokenRepository) scanToken(row rowScanner) (*models.RegistrationToken, error) {
	var t models.RegistrationToken
	err := row.Scan(
		&t.ID, &t.Token, &t.QRCodeData,
		&t.Draft.Name, &t.Draft.EmployeeID, &t.Draft.Department, &t.Draft.Position,
		&t.Draft.Phone, &t.Draft.Email,
		&t.Status, &t.ExpiresAt, &t.WorkerID, &t.CompletedAt, &t.ErrorMessage,
		&t.CreatedAt, &t.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
