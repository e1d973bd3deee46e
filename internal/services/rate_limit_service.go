package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/safework-pro/qr-registration-backend/internal/database"
)

// RateLimitService throttles public registration endpoints per client IP
// using a fixed window backed by the qr_rate_limits table
type RateLimitService struct {
	db          database.DB
	maxRequests int
	window      time.Duration
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(db database.DB, maxRequests int, window time.Duration) *RateLimitService {
	return &RateLimitService{
		db:          db,
		maxRequests: maxRequests,
		window:      window,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// CheckRateLimit returns a RateLimitError when the IP has exhausted its
// window. Callers record the request separately so blocked requests do not
// extend the window.
func (s *RateLimitService) CheckRateLimit(ip string) error {
	if ip == "" {
		return nil
	}

	count, lastRequest, err := s.getRequestCount(ip)
	if err != nil {
		return fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count >= s.maxRequests {
		retryAfter := lastRequest.Add(s.window)
		return &RateLimitError{
			Message:    fmt.Sprintf("Too many registration requests from this address. Please try again after %s", retryAfter.Format("15:04:05")),
			RetryAfter: retryAfter,
		}
	}

	return nil
}

// RecordRequest records one public request against the IP's window
func (s *RateLimitService) RecordRequest(ip string) error {
	if ip == "" {
		return nil
	}

	query := `
		INSERT INTO qr_rate_limits (identifier, identifier_type, created_at)
		VALUES ($1, 'ip', NOW())
	`

	if _, err := s.db.Exec(query, ip); err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}

	return nil
}

// getRequestCount counts requests within the current window
func (s *RateLimitService) getRequestCount(ip string) (int, time.Time, error) {
	windowStart := time.Now().Add(-s.window)

	query := `
		SELECT COUNT(*), COALESCE(MAX(created_at), NOW())
		FROM qr_rate_limits
		WHERE identifier = $1
		  AND identifier_type = 'ip'
		  AND created_at > $2
	`

	var count int
	var lastRequest time.Time

	err := s.db.QueryRow(query, ip, windowStart).Scan(&count, &lastRequest)
	if err != nil && err != sql.ErrNoRows {
		return 0, time.Time{}, err
	}

	return count, lastRequest, nil
}

// CleanupExpiredRateLimits removes records older than the window. Run from
// the maintenance sweep alongside token expiry.
func (s *RateLimitService) CleanupExpiredRateLimits() (int64, error) {
	cutoffTime := time.Now().Add(-s.window)

	query := `
		DELETE FROM qr_rate_limits
		WHERE created_at < $1
	`

	result, err := s.db.Exec(query, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup rate limits: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
