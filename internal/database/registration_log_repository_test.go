package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safework-pro/qr-registration-backend/internal/models"
)

func TestInsertRegistrationLog(t *testing.T) {
	mockDB, mock := newMockDatabase(t)
	repo := NewRegistrationLogRepository(mockDB)

	t.Run("Success", func(t *testing.T) {
		tokenID := uuid.New()
		entry := &models.RegistrationLog{
			TokenID:   tokenID,
			Action:    models.LogActionGenerated,
			Status:    "pending",
			Message:   "token issued",
			IPAddress: "203.0.113.9",
			UserAgent: "Mozilla/5.0",
		}

		mock.ExpectExec(`INSERT INTO qr_registration_logs`).
			WithArgs(sqlmock.AnyArg(), tokenID, models.LogActionGenerated, "pending",
				"token issued", "203.0.113.9", "Mozilla/5.0").
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.Insert(entry)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, entry.ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO qr_registration_logs`).
			WillReturnError(fmt.Errorf("database error"))

		err := repo.Insert(&models.RegistrationLog{TokenID: uuid.New(), Action: models.LogActionValidated})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert registration log")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListByToken(t *testing.T) {
	mockDB, mock := newMockDatabase(t)
	repo := NewRegistrationLogRepository(mockDB)

	tokenID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM qr_registration_logs`).
		WithArgs(tokenID, 100).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "token_id", "action", "status", "message", "ip_address", "user_agent", "created_at",
		}).
			AddRow(uuid.New().String(), tokenID.String(), models.LogActionGenerated, "pending", "token issued", "203.0.113.9", "Mozilla/5.0", time.Now().Add(-time.Hour)).
			AddRow(uuid.New().String(), tokenID.String(), models.LogActionCompleted, "completed", "worker registered", "203.0.113.10", "Mozilla/5.0", time.Now()))

	logs, err := repo.ListByToken(tokenID, 100)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.LogActionGenerated, logs[0].Action)
	assert.Equal(t, models.LogActionCompleted, logs[1].Action)

	assert.NoError(t, mock.ExpectationsWereMet())
}
