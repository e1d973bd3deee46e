package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safework-pro/qr-registration-backend/internal/models"
)

// AdminUserRepository handles admin user database operations
type AdminUserRepository struct {
	db DB
}

// NewAdminUserRepository creates a new admin user repository
func NewAdminUserRepository(db DB) *AdminUserRepository {
	return &AdminUserRepository{
		db: db,
	}
}

// GetByUsername retrieves an active admin user by username.
// Returns (nil, nil) when no active user matches.
func (r *AdminUserRepository) GetByUsername(username string) (*models.AdminUser, error) {
	query := `
		SELECT id, username, password_hash, name, role, is_active, created_at, updated_at
		FROM admin_users
		WHERE username = $1 AND is_active = TRUE
	`

	var user models.AdminUser
	err := r.db.Get(&user, query, username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch admin user: %w", err)
	}

	return &user, nil
}

// GetByID retrieves an admin user by id
func (r *AdminUserRepository) GetByID(id uuid.UUID) (*models.AdminUser, error) {
	query := `
		SELECT id, username, password_hash, name, role, is_active, created_at, updated_at
		FROM admin_users
		WHERE id = $1
	`

	var user models.AdminUser
	err := r.db.Get(&user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("admin user not found")
		}
		return nil, fmt.Errorf("failed to fetch admin user: %w", err)
	}

	return &user, nil
}

// UpdateLastLogin bumps updated_at on a successful login
func (r *AdminUserRepository) UpdateLastLogin(id uuid.UUID) error {
	query := `
		UPDATE admin_users
		SET updated_at = $1
		WHERE id = $2
	`

	_, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}
