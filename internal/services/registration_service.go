package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safework-pro/qr-registration-backend/internal/config"
	"github.com/safework-pro/qr-registration-backend/internal/database"
	"github.com/safework-pro/qr-registration-backend/internal/models"
	"github.com/safework-pro/qr-registration-backend/pkg/qrcode"
	"github.com/safework-pro/qr-registration-backend/pkg/validator"
)

var (
	// ErrTokenNotFound indicates no token row matches the presented string
	ErrTokenNotFound = errors.New("registration token not found")

	// ErrTokenExpired indicates the token passed its expiry before completion
	ErrTokenExpired = errors.New("registration token has expired")

	// ErrAlreadyCompleted indicates the token was already used to register a worker
	ErrAlreadyCompleted = errors.New("registration token was already completed")

	// ErrInvalidStatus indicates the token is cancelled or failed
	ErrInvalidStatus = errors.New("registration token is no longer usable")

	// ErrDuplicateEmployeeID indicates a worker with the draft's employee id
	// is already registered
	ErrDuplicateEmployeeID = errors.New("a worker with this employee id is already registered")
)

// WorkerCreator claims a pending token and creates the worker record in a
// single atomic step. *database.RegistrationTokenRepository is the production
// implementation; tests substitute their own.
type WorkerCreator interface {
	CompleteToken(token string, worker *models.Worker) error
}

// RegistrationService implements the QR registration token lifecycle:
// issuance, kiosk validation, completion, cancellation and reissue
type RegistrationService struct {
	tokens    *database.RegistrationTokenRepository
	workers   *database.WorkerRepository
	creator   WorkerCreator
	audit     *AuditService
	encoder   qrcode.Encoder
	validator *validator.DraftValidator
	baseURL   string
	expiry    time.Duration
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(
	tokens *database.RegistrationTokenRepository,
	workers *database.WorkerRepository,
	audit *AuditService,
	encoder qrcode.Encoder,
	cfg config.RegistrationConfig,
) *RegistrationService {
	return &RegistrationService{
		tokens:    tokens,
		workers:   workers,
		creator:   tokens,
		audit:     audit,
		encoder:   encoder,
		validator: validator.NewDraftValidator(),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		expiry:    time.Duration(cfg.DefaultExpiryHours) * time.Hour,
	}
}

// IssueToken validates the draft, generates a token and QR image and persists
// the pending record
func (s *RegistrationService) IssueToken(req *models.IssueTokenRequest, adminID uuid.UUID, ipAddress, userAgent string) (*models.IssueTokenResponse, error) {
	draft, err := s.validateDraft(req.Name, req.EmployeeID, req.Department, req.Position, req.Phone, req.Email)
	if err != nil {
		return nil, err
	}

	if req.ExpiresInHours < 0 {
		return nil, validator.ErrInvalidExpiry
	}

	exists, err := s.workers.EmployeeIDExists(draft.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check employee id: %w", err)
	}
	if exists {
		return nil, ErrDuplicateEmployeeID
	}

	expiry := s.expiry
	if req.ExpiresInHours > 0 {
		expiry = time.Duration(req.ExpiresInHours) * time.Hour
	}

	record, err := s.createToken(*draft, expiry, adminID)
	if err != nil {
		return nil, err
	}

	if err := s.audit.LogTokenGenerated(record.ID, ipAddress, userAgent); err != nil {
		return nil, err
	}

	return &models.IssueTokenResponse{
		Token:           record.Token,
		RegistrationURL: s.registrationURL(record.Token),
		QRCodeData:      record.QRCodeData,
		Draft:           record.Draft,
		ExpiresAt:       record.ExpiresAt,
	}, nil
}

// ValidateToken looks up a token for the kiosk and returns the draft when the
// token is still usable. Expiry is enforced here even when the stored status
// has not caught up yet.
func (s *RegistrationService) ValidateToken(token, ipAddress, userAgent string) (*models.ValidateTokenResponse, error) {
	record, err := s.getUsableToken(token, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	if err := s.audit.LogTokenValidated(record.ID, models.TokenStatusPending, true, ipAddress, userAgent); err != nil {
		return nil, err
	}

	return &models.ValidateTokenResponse{
		Valid:     true,
		Draft:     record.Draft,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// CompleteRegistration claims the token and creates the worker record. The
// worker may supply or correct phone and email; everything else comes from
// the draft captured at issuance.
func (s *RegistrationService) CompleteRegistration(token string, req *models.CompleteRegistrationRequest, ipAddress, userAgent string) (*models.Worker, error) {
	record, err := s.getUsableToken(token, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	phone := record.Draft.Phone
	if req.Phone != "" {
		phone = req.Phone
	}
	sanitizedPhone, err := s.validator.ValidatePhone(phone)
	if err != nil {
		return nil, err
	}

	email := record.Draft.Email
	if req.Email != "" {
		email = req.Email
	}
	if err := s.validator.ValidateEmail(email); err != nil {
		return nil, err
	}

	worker := &models.Worker{
		Name:          record.Draft.Name,
		EmployeeID:    record.Draft.EmployeeID,
		Department:    record.Draft.Department,
		Position:      record.Draft.Position,
		Phone:         sanitizedPhone,
		Email:         email,
		RegisteredVia: "qr",
		CreatedBy:     record.CreatedBy,
	}

	err = s.creator.CompleteToken(token, worker)
	if err == database.ErrTokenNotPending {
		// Lost the race. Re-read to tell the caller what actually happened.
		return nil, s.classifyTerminal(token)
	}
	if err != nil {
		reason := "worker creation failed"
		mapped := fmt.Errorf("failed to complete registration: %w", err)
		if database.IsUniqueViolation(err) {
			reason = "duplicate employee id"
			mapped = ErrDuplicateEmployeeID
		}

		if failErr := s.tokens.MarkFailed(token, reason); failErr != nil && failErr != database.ErrTokenNotPending {
			return nil, fmt.Errorf("failed to mark token failed: %w", failErr)
		}
		if auditErr := s.audit.LogTokenFailed(record.ID, reason, ipAddress, userAgent); auditErr != nil {
			return nil, auditErr
		}
		return nil, mapped
	}

	if err := s.audit.LogTokenCompleted(record.ID, worker.ID, ipAddress, userAgent); err != nil {
		return nil, err
	}

	return worker, nil
}

// CancelToken withdraws a pending token so its QR code can no longer be used
func (s *RegistrationService) CancelToken(token string, adminID uuid.UUID, ipAddress, userAgent string) error {
	record, err := s.getUsableToken(token, ipAddress, userAgent)
	if err != nil {
		return err
	}

	if err := s.tokens.MarkCancelled(token); err != nil {
		if err == database.ErrTokenNotPending {
			return s.classifyTerminal(token)
		}
		return fmt.Errorf("failed to cancel token: %w", err)
	}

	return s.audit.LogTokenCancelled(record.ID, adminID, ipAddress, userAgent)
}

// ReissueToken cancels a still-pending token and issues a replacement with
// the same draft and a fresh expiry window. Expired and cancelled tokens can
// be reissued directly.
func (s *RegistrationService) ReissueToken(token string, adminID uuid.UUID, ipAddress, userAgent string) (*models.IssueTokenResponse, error) {
	record, err := s.tokens.GetByToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration token: %w", err)
	}
	if record == nil {
		return nil, ErrTokenNotFound
	}

	switch record.EffectiveStatus() {
	case models.TokenStatusCompleted:
		return nil, ErrAlreadyCompleted
	case models.TokenStatusPending:
		if err := s.tokens.MarkCancelled(token); err != nil && err != database.ErrTokenNotPending {
			return nil, fmt.Errorf("failed to cancel token: %w", err)
		}
	case models.TokenStatusExpired:
		s.persistExpiry(record, ipAddress, userAgent)
	}

	replacement, err := s.createToken(record.Draft, s.expiry, adminID)
	if err != nil {
		return nil, err
	}

	if err := s.audit.LogTokenReissued(record.ID, replacement.ID, ipAddress, userAgent); err != nil {
		return nil, err
	}
	if err := s.audit.LogTokenGenerated(replacement.ID, ipAddress, userAgent); err != nil {
		return nil, err
	}

	return &models.IssueTokenResponse{
		Token:           replacement.Token,
		RegistrationURL: s.registrationURL(replacement.Token),
		QRCodeData:      replacement.QRCodeData,
		Draft:           replacement.Draft,
		ExpiresAt:       replacement.ExpiresAt,
	}, nil
}

// GetToken returns the stored record for the admin detail view.
// Returns ErrTokenNotFound when no row matches.
func (s *RegistrationService) GetToken(token string) (*models.RegistrationToken, error) {
	record, err := s.tokens.GetByToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration token: %w", err)
	}
	if record == nil {
		return nil, ErrTokenNotFound
	}
	return record, nil
}

// ListTokens returns tokens for the admin dashboard, newest first
func (s *RegistrationService) ListTokens(status string, limit, offset int) ([]*models.RegistrationToken, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.tokens.ListTokens(status, limit, offset)
}

// GetStats returns token counts per status
func (s *RegistrationService) GetStats() (*models.TokenStatusCounts, error) {
	return s.tokens.CountByStatus()
}

// getUsableToken loads a token and rejects it unless its effective status is
// pending. A stored 'pending' past its expiry is persisted as 'expired' on
// the way out.
func (s *RegistrationService) getUsableToken(token, ipAddress, userAgent string) (*models.RegistrationToken, error) {
	record, err := s.tokens.GetByToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration token: %w", err)
	}
	if record == nil {
		return nil, ErrTokenNotFound
	}

	switch record.EffectiveStatus() {
	case models.TokenStatusPending:
		return record, nil
	case models.TokenStatusExpired:
		s.persistExpiry(record, ipAddress, userAgent)
		return nil, ErrTokenExpired
	case models.TokenStatusCompleted:
		return nil, ErrAlreadyCompleted
	default:
		return nil, ErrInvalidStatus
	}
}

// persistExpiry writes the lazy expiry transition. Best effort: a concurrent
// caller may have already moved the token, which is fine.
func (s *RegistrationService) persistExpiry(record *models.RegistrationToken, ipAddress, userAgent string) {
	if record.Status != models.TokenStatusPending {
		return
	}
	transitioned, err := s.tokens.MarkExpired(record.Token)
	if err != nil || !transitioned {
		return
	}
	_ = s.audit.LogTokenExpired(record.ID, ipAddress, userAgent)
}

// classifyTerminal re-reads a token that refused a pending-only transition
// and maps its state to the matching sentinel error
func (s *RegistrationService) classifyTerminal(token string) error {
	record, err := s.tokens.GetByToken(token)
	if err != nil || record == nil {
		return ErrInvalidStatus
	}
	switch record.EffectiveStatus() {
	case models.TokenStatusCompleted:
		return ErrAlreadyCompleted
	case models.TokenStatusExpired:
		return ErrTokenExpired
	default:
		return ErrInvalidStatus
	}
}

func (s *RegistrationService) validateDraft(name, employeeID, department, position, phone, email string) (*models.WorkerDraft, error) {
	if err := s.validator.ValidateName(name); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateEmployeeID(employeeID); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateDepartment(department); err != nil {
		return nil, err
	}

	sanitizedPhone, err := s.validator.ValidatePhone(phone)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateEmail(email); err != nil {
		return nil, err
	}

	return &models.WorkerDraft{
		Name:       strings.TrimSpace(name),
		EmployeeID: strings.TrimSpace(employeeID),
		Department: strings.TrimSpace(department),
		Position:   strings.TrimSpace(position),
		Phone:      sanitizedPhone,
		Email:      email,
	}, nil
}

func (s *RegistrationService) createToken(draft models.WorkerDraft, expiry time.Duration, adminID uuid.UUID) (*models.RegistrationToken, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	qrData, err := s.encoder.EncodeURL(s.registrationURL(token))
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}

	record := &models.RegistrationToken{
		Token:      token,
		QRCodeData: qrData,
		Draft:      draft,
		ExpiresAt:  time.Now().Add(expiry),
		CreatedBy:  adminID,
	}

	if err := s.tokens.CreateToken(record); err != nil {
		return nil, err
	}

	return record, nil
}

func (s *RegistrationService) registrationURL(token string) string {
	return fmt.Sprintf("%s/qr-register/%s", s.baseURL, token)
}

// generateToken produces a 192-bit URL-safe random token
func generateToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
