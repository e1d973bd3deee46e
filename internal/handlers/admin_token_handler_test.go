package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safework-pro/qr-registration-backend/internal/config"
	"github.com/safework-pro/qr-registration-backend/internal/database"
	"github.com/safework-pro/qr-registration-backend/internal/middleware"
	"github.com/safework-pro/qr-registration-backend/internal/services"
	"github.com/safework-pro/qr-registration-backend/pkg/jwt"
)

func setupAdminTokenTest(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	wrapped := &database.PostgresDB{DB: sqlxDB}

	tokenRepo := database.NewRegistrationTokenRepository(sqlxDB)
	workerRepo := database.NewWorkerRepository(wrapped)
	logRepo := database.NewRegistrationLogRepository(wrapped)

	audit := services.NewAuditService(logRepo, true)
	registration := services.NewRegistrationService(tokenRepo, workerRepo, audit, testEncoder{}, config.RegistrationConfig{
		BaseURL:            "https://safework.example.com",
		DefaultExpiryHours: 24,
	})

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	handler := NewAdminTokenHandler(registration, audit, logger)

	jwtService := jwt.NewService("test-secret-key-1234567890", time.Hour)
	accessToken, _, err := jwtService.GenerateAccessToken(uuid.New(), "manager", "admin")
	require.NoError(t, err)

	router := gin.New()
	tokens := router.Group("/api/v1/admin/qr-tokens")
	tokens.Use(middleware.AuthMiddleware(jwtService))
	{
		tokens.POST("", handler.IssueToken)
		tokens.GET("", handler.ListTokens)
		tokens.GET("/stats", handler.GetStats)
		tokens.GET("/:token", handler.GetToken)
		tokens.POST("/:token/cancel", handler.CancelToken)
		tokens.GET("/:token/logs", handler.GetTokenLogs)
	}

	return router, mock, accessToken
}

func TestIssueTokenEndpoint(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mock, accessToken := setupAdminTokenTest(t)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM workers`).
			WithArgs("EMP001").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`INSERT INTO qr_registration_tokens`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO qr_registration_logs`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		body, _ := json.Marshal(map[string]interface{}{
			"name":        "Hong Gildong",
			"employee_id": "EMP001",
			"department":  "Construction",
			"position":    "Foreman",
		})
		req := httptest.NewRequest("POST", "/api/v1/admin/qr-tokens", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+accessToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "registration_url")
		assert.Contains(t, w.Body.String(), "qr_code_data")

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unauthorized Without Token", func(t *testing.T) {
		router, mock, _ := setupAdminTokenTest(t)

		body, _ := json.Marshal(map[string]interface{}{
			"name": "Hong Gildong", "employee_id": "EMP001", "department": "Construction",
		})
		req := httptest.NewRequest("POST", "/api/v1/admin/qr-tokens", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing Required Fields", func(t *testing.T) {
		router, mock, accessToken := setupAdminTokenTest(t)

		body, _ := json.Marshal(map[string]interface{}{"name": "Hong Gildong"})
		req := httptest.NewRequest("POST", "/api/v1/admin/qr-tokens", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+accessToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListTokensEndpoint(t *testing.T) {
	router, mock, accessToken := setupAdminTokenTest(t)

	mock.ExpectQuery(`SELECT (.+) FROM qr_registration_tokens`).
		WithArgs("pending", 50, 0).
		WillReturnRows(pendingTokenRow("tok-abc", time.Now().Add(time.Hour)))

	req := httptest.NewRequest("GET", "/api/v1/admin/qr-tokens?status=pending", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tok-abc")
	assert.Contains(t, w.Body.String(), `"effective_status":"pending"`)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTokensRejectsUnknownStatus(t *testing.T) {
	router, mock, accessToken := setupAdminTokenTest(t)

	req := httptest.NewRequest("GET", "/api/v1/admin/qr-tokens?status=bogus", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTokenEndpointReportsEffectiveStatus(t *testing.T) {
	router, mock, accessToken := setupAdminTokenTest(t)

	// Stored status is still pending but the expiry already passed
	mock.ExpectQuery(`SELECT (.+) FROM qr_registration_tokens WHERE token`).
		WithArgs("tok-old").
		WillReturnRows(pendingTokenRow("tok-old", time.Now().Add(-time.Hour)))

	req := httptest.NewRequest("GET", "/api/v1/admin/qr-tokens/tok-old", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"effective_status":"expired"`)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelTokenEndpoint(t *testing.T) {
	router, mock, accessToken := setupAdminTokenTest(t)

	mock.ExpectQuery(`SELECT (.+) FROM qr_registration_tokens WHERE token`).
		WithArgs("tok-abc").
		WillReturnRows(pendingTokenRow("tok-abc", time.Now().Add(time.Hour)))
	mock.ExpectExec(`UPDATE qr_registration_tokens`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO qr_registration_logs`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := httptest.NewRequest("POST", "/api/v1/admin/qr-tokens/tok-abc/cancel", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cancelled successfully")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatsEndpoint(t *testing.T) {
	router, mock, accessToken := setupAdminTokenTest(t)

	mock.ExpectQuery(`SELECT`).
		WillReturnRows(sqlmock.NewRows([]string{"pending", "completed", "expired", "failed", "cancelled"}).
			AddRow(4, 20, 3, 1, 2))

	req := httptest.NewRequest("GET", "/api/v1/admin/qr-tokens/stats", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"completed":20`)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTokenLogsEndpoint(t *testing.T) {
	router, mock, accessToken := setupAdminTokenTest(t)

	tokenID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM qr_registration_tokens WHERE token`).
		WithArgs("tok-abc").
		WillReturnRows(sqlmock.NewRows(tokenTestColumns).AddRow(
			tokenID.String(), "tok-abc", "data:image/png;base64,stub",
			"Hong Gildong", "EMP001", "Construction", "", "", "",
			"completed", time.Now().Add(time.Hour), uuid.New().String(), time.Now(), nil,
			time.Now().Add(-time.Hour), uuid.New().String(),
		))
	mock.ExpectQuery(`SELECT (.+) FROM qr_registration_logs`).
		WithArgs(tokenID, 100).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "token_id", "action", "status", "message", "ip_address", "user_agent", "created_at",
		}).AddRow(
			uuid.New().String(), tokenID.String(), "generated", "pending", "token issued", "203.0.113.9", "Mozilla/5.0", time.Now(),
		))

	req := httptest.NewRequest("GET", "/api/v1/admin/qr-tokens/tok-abc/logs", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
	assert.Contains(t, w.Body.String(), "generated")

	assert.NoError(t, mock.ExpectationsWereMet())
}
