package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/safework-pro/qr-registration-backend/internal/models"
)

// WorkerRepository handles worker database operations
type WorkerRepository struct {
	db DB
}

// NewWorkerRepository creates a new worker repository
func NewWorkerRepository(db DB) *WorkerRepository {
	return &WorkerRepository{
		db: db,
	}
}

// GetWorkerByID retrieves a worker by id
func (r *WorkerRepository) GetWorkerByID(id uuid.UUID) (*models.Worker, error) {
	query := `
		SELECT id, name, employee_id, department, position, phone, email,
		       registered_via, created_at, created_by
		FROM workers
		WHERE id = $1
	`

	var worker models.Worker
	err := r.db.Get(&worker, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("worker not found")
		}
		return nil, fmt.Errorf("failed to fetch worker: %w", err)
	}

	return &worker, nil
}

// EmployeeIDExists reports whether a worker with the employee id is already registered
func (r *WorkerRepository) EmployeeIDExists(employeeID string) (bool, error) {
	query := `SELECT COUNT(*) FROM workers WHERE employee_id = $1`

	var count int
	err := r.db.QueryRow(query, employeeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check employee id: %w", err)
	}

	return count > 0, nil
}

// ListWorkers returns workers newest first
func (r *WorkerRepository) ListWorkers(limit, offset int) ([]*models.Worker, error) {
	query := `
		SELECT id, name, employee_id, department, position, phone, email,
		       registered_via, created_at, created_by
		FROM workers
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	var workers []*models.Worker
	err := r.db.Select(&workers, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}

	return workers, nil
}

// IsUniqueViolation reports whether the error is a Postgres unique-constraint
// violation (duplicate employee_id on the workers table)
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}
