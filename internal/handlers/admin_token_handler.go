package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safework-pro/qr-registration-backend/internal/middleware"
	"github.com/safework-pro/qr-registration-backend/internal/models"
	"github.com/safework-pro/qr-registration-backend/internal/services"
	"github.com/safework-pro/qr-registration-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// AdminTokenHandler handles the authenticated token management endpoints
type AdminTokenHandler struct {
	registrationService *services.RegistrationService
	auditService        *services.AuditService
	logger              *logrus.Logger
}

// NewAdminTokenHandler creates a new admin token handler
func NewAdminTokenHandler(
	registrationService *services.RegistrationService,
	auditService *services.AuditService,
	logger *logrus.Logger,
) *AdminTokenHandler {
	return &AdminTokenHandler{
		registrationService: registrationService,
		auditService:        auditService,
		logger:              logger,
	}
}

// TokenListResponse wraps the paginated token list
type TokenListResponse struct {
	Tokens []TokenDetail `json:"tokens"`
	Count  int           `json:"count"`
}

// TokenDetail is the admin view of a token. Status reflects expiry even when
// the stored row has not been swept yet.
type TokenDetail struct {
	*models.RegistrationToken
	EffectiveStatus models.RegistrationTokenStatus `json:"effective_status"`
}

// IssueToken handles POST /api/v1/admin/qr-tokens
func (h *AdminTokenHandler) IssueToken(c *gin.Context) {
	adminCtx, exists := middleware.GetAdminContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Admin context not found",
		})
		return
	}

	var req models.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	clientIP := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)

	response, err := h.registrationService.IssueToken(&req, adminCtx.AdminID, clientIP, userAgent)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"admin_id":    adminCtx.AdminID,
			"employee_id": req.EmployeeID,
			"error":       err.Error(),
		}).Warn("Token issuance failed")
		respondTokenError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"admin_id":    adminCtx.AdminID,
		"employee_id": req.EmployeeID,
		"expires_at":  response.ExpiresAt,
	}).Info("Registration token issued")

	c.JSON(http.StatusCreated, response)
}

// ListTokens handles GET /api/v1/admin/qr-tokens
func (h *AdminTokenHandler) ListTokens(c *gin.Context) {
	status := c.Query("status")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	if status != "" && !isKnownStatus(status) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Unknown status filter",
		})
		return
	}

	tokens, err := h.registrationService.ListTokens(status, limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list tokens")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list tokens",
		})
		return
	}

	details := make([]TokenDetail, 0, len(tokens))
	for _, t := range tokens {
		details = append(details, TokenDetail{
			RegistrationToken: t,
			EffectiveStatus:   t.EffectiveStatus(),
		})
	}

	c.JSON(http.StatusOK, TokenListResponse{
		Tokens: details,
		Count:  len(details),
	})
}

// GetToken handles GET /api/v1/admin/qr-tokens/:token
func (h *AdminTokenHandler) GetToken(c *gin.Context) {
	record, err := h.registrationService.GetToken(c.Param("token"))
	if err != nil {
		respondTokenError(c, err)
		return
	}

	c.JSON(http.StatusOK, TokenDetail{
		RegistrationToken: record,
		EffectiveStatus:   record.EffectiveStatus(),
	})
}

// CancelToken handles POST /api/v1/admin/qr-tokens/:token/cancel
func (h *AdminTokenHandler) CancelToken(c *gin.Context) {
	adminCtx, exists := middleware.GetAdminContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Admin context not found",
		})
		return
	}

	token := c.Param("token")
	clientIP := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)

	if err := h.registrationService.CancelToken(token, adminCtx.AdminID, clientIP, userAgent); err != nil {
		respondTokenError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"admin_id": adminCtx.AdminID,
		"token":    token,
	}).Info("Registration token cancelled")

	c.JSON(http.StatusOK, gin.H{"message": "Token cancelled successfully"})
}

// ReissueToken handles POST /api/v1/admin/qr-tokens/:token/reissue
func (h *AdminTokenHandler) ReissueToken(c *gin.Context) {
	adminCtx, exists := middleware.GetAdminContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Admin context not found",
		})
		return
	}

	token := c.Param("token")
	clientIP := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)

	response, err := h.registrationService.ReissueToken(token, adminCtx.AdminID, clientIP, userAgent)
	if err != nil {
		respondTokenError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"admin_id":  adminCtx.AdminID,
		"old_token": token,
	}).Info("Registration token reissued")

	c.JSON(http.StatusCreated, response)
}

// GetTokenLogs handles GET /api/v1/admin/qr-tokens/:token/logs
func (h *AdminTokenHandler) GetTokenLogs(c *gin.Context) {
	record, err := h.registrationService.GetToken(c.Param("token"))
	if err != nil {
		respondTokenError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	logs, err := h.auditService.GetTokenTrail(record.ID, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load token audit trail")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load audit trail",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token_id": record.ID,
		"logs":     logs,
		"count":    len(logs),
	})
}

// GetStats handles GET /api/v1/admin/qr-tokens/stats
func (h *AdminTokenHandler) GetStats(c *gin.Context) {
	counts, err := h.registrationService.GetStats()
	if err != nil {
		h.logger.WithError(err).Error("Failed to load token stats")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load stats",
		})
		return
	}

	c.JSON(http.StatusOK, counts)
}

func isKnownStatus(status string) bool {
	switch models.RegistrationTokenStatus(status) {
	case models.TokenStatusPending, models.TokenStatusCompleted, models.TokenStatusExpired,
		models.TokenStatusFailed, models.TokenStatusCancelled:
		return true
	}
	return false
}
