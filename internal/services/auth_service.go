package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safework-pro/qr-registration-backend/internal/database"
	"github.com/safework-pro/qr-registration-backend/internal/models"
	"github.com/safework-pro/qr-registration-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any login failure. Username lookup
// and password mismatch are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid username or password")

// AuthService handles admin authentication
type AuthService struct {
	admins     *database.AdminUserRepository
	jwtService *jwt.Service
}

// NewAuthService creates a new auth service
func NewAuthService(admins *database.AdminUserRepository, jwtService *jwt.Service) *AuthService {
	return &AuthService{
		admins:     admins,
		jwtService: jwtService,
	}
}

// Login authenticates an admin and returns a signed access token
func (s *AuthService) Login(username, password string) (*models.LoginResponse, error) {
	admin, err := s.admins.GetByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}
	if admin == nil {
		// Burn a comparison anyway so the two failure paths take similar time
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$12$0000000000000000000000000000000000000000000000000000"), []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, expiresAt, err := s.jwtService.GenerateAccessToken(admin.ID, admin.Username, admin.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	// Last login is informational; a failed update must not block the login
	_ = s.admins.UpdateLastLogin(admin.ID)

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		Name:        admin.Name,
		Role:        admin.Role,
	}, nil
}

// GetProfile returns the admin record for the authenticated principal
func (s *AuthService) GetProfile(adminID uuid.UUID) (*models.AdminUser, error) {
	admin, err := s.admins.GetByID(adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	if admin == nil {
		return nil, errors.New("admin not found")
	}
	return admin, nil
}
