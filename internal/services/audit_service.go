package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/safework-pro/qr-registration-backend/internal/database"
	"github.com/safework-pro/qr-registration-backend/internal/models"
	"github.com/safework-pro/qr-registration-backend/internal/utils"
)

// AuditService writes the append-only registration audit trail
type AuditService struct {
	logs    *database.RegistrationLogRepository
	enabled bool
}

// NewAuditService creates a new audit service. When disabled every Log call
// becomes a no-op, which keeps call sites unconditional.
func NewAuditService(logs *database.RegistrationLogRepository, enabled bool) *AuditService {
	return &AuditService{
		logs:    logs,
		enabled: enabled,
	}
}

// LogTokenGenerated records the issuance of a new token
func (s *AuditService) LogTokenGenerated(tokenID uuid.UUID, ipAddress, userAgent string) error {
	return s.logEvent(tokenID, models.LogActionGenerated, string(models.TokenStatusPending), "token issued", ipAddress, userAgent)
}

// LogTokenValidated records a kiosk lookup of a token
func (s *AuditService) LogTokenValidated(tokenID uuid.UUID, status models.RegistrationTokenStatus, valid bool, ipAddress, userAgent string) error {
	message := "token validated"
	if !valid {
		message = fmt.Sprintf("validation rejected, status %s", status)
	}
	return s.logEvent(tokenID, models.LogActionValidated, string(status), message, ipAddress, userAgent)
}

// LogTokenCompleted records a successful registration completion
func (s *AuditService) LogTokenCompleted(tokenID, workerID uuid.UUID, ipAddress, userAgent string) error {
	message := fmt.Sprintf("worker %s registered", workerID)
	return s.logEvent(tokenID, models.LogActionCompleted, string(models.TokenStatusCompleted), message, ipAddress, userAgent)
}

// LogTokenFailed records a completion attempt that failed worker creation
func (s *AuditService) LogTokenFailed(tokenID uuid.UUID, reason, ipAddress, userAgent string) error {
	return s.logEvent(tokenID, models.LogActionFailed, string(models.TokenStatusFailed), reason, ipAddress, userAgent)
}

// LogTokenExpired records an expiry transition, lazy or swept
func (s *AuditService) LogTokenExpired(tokenID uuid.UUID, ipAddress, userAgent string) error {
	return s.logEvent(tokenID, models.LogActionExpired, string(models.TokenStatusExpired), "token expired before completion", ipAddress, userAgent)
}

// LogTokenCancelled records an administrative cancellation
func (s *AuditService) LogTokenCancelled(tokenID, adminID uuid.UUID, ipAddress, userAgent string) error {
	message := fmt.Sprintf("cancelled by admin %s", adminID)
	return s.logEvent(tokenID, models.LogActionCancelled, string(models.TokenStatusCancelled), message, ipAddress, userAgent)
}

// LogTokenReissued records a replacement token issued for a cancelled one
func (s *AuditService) LogTokenReissued(oldTokenID, newTokenID uuid.UUID, ipAddress, userAgent string) error {
	message := fmt.Sprintf("replaced by token %s", newTokenID)
	return s.logEvent(oldTokenID, models.LogActionReissued, string(models.TokenStatusCancelled), message, ipAddress, userAgent)
}

// LogRateLimitViolation records a blocked public request. The token id can be
// uuid.Nil when the limiter fires before any token lookup.
func (s *AuditService) LogRateLimitViolation(tokenID uuid.UUID, ipAddress, userAgent string) error {
	return s.logEvent(tokenID, models.LogActionRateLimit, "", "request blocked by rate limiter", ipAddress, userAgent)
}

// GetTokenTrail returns the audit trail for a token, oldest first
func (s *AuditService) GetTokenTrail(tokenID uuid.UUID, limit int) ([]*models.RegistrationLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.logs.ListByToken(tokenID, limit)
}

func (s *AuditService) logEvent(tokenID uuid.UUID, action, status, message, ipAddress, userAgent string) error {
	if !s.enabled {
		return nil
	}

	if userAgent != "" {
		device := utils.ParseUserAgent(userAgent)
		message = fmt.Sprintf("%s [%s]", message, device.String())
	}

	entry := &models.RegistrationLog{
		TokenID:   tokenID,
		Action:    action,
		Status:    status,
		Message:   message,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	if err := s.logs.Insert(entry); err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}
