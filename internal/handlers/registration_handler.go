package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safework-pro/qr-registration-backend/internal/models"
	"github.com/safework-pro/qr-registration-backend/internal/services"
	"github.com/safework-pro/qr-registration-backend/internal/utils"
	"github.com/safework-pro/qr-registration-backend/pkg/validator"
	"github.com/sirupsen/logrus"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// RegistrationHandler handles the public kiosk-facing registration endpoints.
// These routes are unauthenticated; the token string itself is the credential.
type RegistrationHandler struct {
	registrationService *services.RegistrationService
	rateLimitService    *services.RateLimitService
	auditService        *services.AuditService
	logger              *logrus.Logger
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(
	registrationService *services.RegistrationService,
	rateLimitService *services.RateLimitService,
	auditService *services.AuditService,
	logger *logrus.Logger,
) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
		rateLimitService:    rateLimitService,
		auditService:        auditService,
		logger:              logger,
	}
}

// CompleteRegistrationResponse is returned after a successful registration
type CompleteRegistrationResponse struct {
	Message  string         `json:"message"`
	WorkerID uuid.UUID      `json:"worker_id"`
	Worker   *models.Worker `json:"worker"`
}

// ValidateToken handles GET /api/v1/qr-register/:token
func (h *RegistrationHandler) ValidateToken(c *gin.Context) {
	token := c.Param("token")
	clientIP := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)

	if !h.allowRequest(c, clientIP, userAgent) {
		return
	}

	response, err := h.registrationService.ValidateToken(token, clientIP, userAgent)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"ip":    clientIP,
			"error": err.Error(),
		}).Info("Token validation rejected")
		respondTokenError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// CompleteRegistration handles POST /api/v1/qr-register/:token/complete
func (h *RegistrationHandler) CompleteRegistration(c *gin.Context) {
	token := c.Param("token")
	clientIP := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)

	if !h.allowRequest(c, clientIP, userAgent) {
		return
	}

	var req models.CompleteRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	worker, err := h.registrationService.CompleteRegistration(token, &req, clientIP, userAgent)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"ip":    clientIP,
			"error": err.Error(),
		}).Warn("Registration completion failed")
		respondTokenError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"worker_id":   worker.ID,
		"employee_id": worker.EmployeeID,
		"ip":          clientIP,
	}).Info("Worker registration completed")

	c.JSON(http.StatusCreated, CompleteRegistrationResponse{
		Message:  "Registration completed successfully",
		WorkerID: worker.ID,
		Worker:   worker,
	})
}

// allowRequest applies the per-IP rate limit and records the request.
// Writes the response and returns false when the request is blocked.
func (h *RegistrationHandler) allowRequest(c *gin.Context, clientIP, userAgent string) bool {
	if err := h.rateLimitService.CheckRateLimit(clientIP); err != nil {
		var rateLimitErr *services.RateLimitError
		if errors.As(err, &rateLimitErr) {
			h.auditService.LogRateLimitViolation(uuid.Nil, clientIP, userAgent)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"message":     rateLimitErr.Message,
				"retry_after": rateLimitErr.RetryAfter,
			})
			return false
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "rate_limit_check_failed",
			Message: "Failed to check rate limit",
		})
		return false
	}

	if err := h.rateLimitService.RecordRequest(clientIP); err != nil {
		c.Error(err)
	}

	return true
}

// respondTokenError maps service errors to HTTP responses. Unknown errors
// become an opaque 500.
func respondTokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "token_not_found",
			Message: "Registration token not found",
		})
	case errors.Is(err, services.ErrTokenExpired):
		c.JSON(http.StatusGone, ErrorResponse{
			Error:   "token_expired",
			Message: "This registration link has expired. Please ask your site manager for a new QR code.",
		})
	case errors.Is(err, services.ErrAlreadyCompleted):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "already_completed",
			Message: "This registration was already completed",
		})
	case errors.Is(err, services.ErrInvalidStatus):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "token_unusable",
			Message: "This registration link is no longer usable",
		})
	case errors.Is(err, services.ErrDuplicateEmployeeID):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "duplicate_employee_id",
			Message: err.Error(),
		})
	case isValidationError(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Something went wrong. Please try again.",
		})
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, validator.ErrEmptyName) ||
		errors.Is(err, validator.ErrEmptyEmployeeID) ||
		errors.Is(err, validator.ErrEmptyDepartment) ||
		errors.Is(err, validator.ErrInvalidEmployeeID) ||
		errors.Is(err, validator.ErrInvalidPhone) ||
		errors.Is(err, validator.ErrInvalidEmail) ||
		errors.Is(err, validator.ErrInvalidExpiry)
}
