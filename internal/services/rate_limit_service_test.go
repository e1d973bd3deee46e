package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safework-pro/qr-registration-backend/internal/database"
)

func newTestRateLimitService(t *testing.T) (*RateLimitService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	wrapped := &database.PostgresDB{DB: sqlx.NewDb(db, "sqlmock")}
	return NewRateLimitService(wrapped, 30, 10*time.Minute), mock
}

func TestCheckRateLimit(t *testing.T) {
	t.Run("Under Limit", func(t *testing.T) {
		svc, mock := newTestRateLimitService(t)

		mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE`).
			WithArgs("203.0.113.9", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count", "coalesce"}).AddRow(5, time.Now()))

		err := svc.CheckRateLimit("203.0.113.9")
		assert.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Over Limit", func(t *testing.T) {
		svc, mock := newTestRateLimitService(t)

		lastRequest := time.Now()
		mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE`).
			WithArgs("203.0.113.9", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count", "coalesce"}).AddRow(30, lastRequest))

		err := svc.CheckRateLimit("203.0.113.9")
		require.Error(t, err)

		rateLimitErr, ok := err.(*RateLimitError)
		require.True(t, ok)
		assert.WithinDuration(t, lastRequest.Add(10*time.Minute), rateLimitErr.RetryAfter, time.Second)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty IP Skipped", func(t *testing.T) {
		svc, mock := newTestRateLimitService(t)

		err := svc.CheckRateLimit("")
		assert.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		svc, mock := newTestRateLimitService(t)

		mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE`).
			WillReturnError(fmt.Errorf("database error"))

		err := svc.CheckRateLimit("203.0.113.9")
		assert.Error(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRequest(t *testing.T) {
	svc, mock := newTestRateLimitService(t)

	mock.ExpectExec(`INSERT INTO qr_rate_limits`).
		WithArgs("203.0.113.9").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := svc.RecordRequest("203.0.113.9")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupExpiredRateLimits(t *testing.T) {
	svc, mock := newTestRateLimitService(t)

	mock.ExpectExec(`DELETE FROM qr_rate_limits`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 12))

	pruned, err := svc.CleanupExpiredRateLimits()
	require.NoError(t, err)
	assert.Equal(t, int64(12), pruned)

	assert.NoError(t, mock.ExpectationsWereMet())
}
