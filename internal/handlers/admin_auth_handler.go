package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safework-pro/qr-registration-backend/internal/middleware"
	"github.com/safework-pro/qr-registration-backend/internal/models"
	"github.com/safework-pro/qr-registration-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// AdminAuthHandler handles admin authentication HTTP requests
type AdminAuthHandler struct {
	authService *services.AuthService
	logger      *logrus.Logger
}

// NewAdminAuthHandler creates a new admin auth handler
func NewAdminAuthHandler(authService *services.AuthService, logger *logrus.Logger) *AdminAuthHandler {
	return &AdminAuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login handles POST /api/v1/admin/auth/login
func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	response, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.logger.WithField("username", req.Username).Warn("Admin login failed")
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_credentials",
				Message: err.Error(),
			})
			return
		}
		h.logger.WithError(err).Error("Admin login error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Login failed. Please try again.",
		})
		return
	}

	h.logger.WithField("username", req.Username).Info("Admin login successful")
	c.JSON(http.StatusOK, response)
}

// GetProfile handles GET /api/v1/admin/auth/profile
func (h *AdminAuthHandler) GetProfile(c *gin.Context) {
	adminCtx, exists := middleware.GetAdminContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Admin context not found",
		})
		return
	}

	admin, err := h.authService.GetProfile(adminCtx.AdminID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Admin not found",
		})
		return
	}

	c.JSON(http.StatusOK, admin)
}
