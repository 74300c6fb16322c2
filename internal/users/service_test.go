package users

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dshubenok/backender-challenge/pkg/db/models"
	apperrors "github.com/dshubenok/backender-challenge/pkg/errors"
	"github.com/dshubenok/backender-challenge/pkg/logger"
	"github.com/dshubenok/backender-challenge/pkg/outbox"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	require.NoError(t, db.Exec(`
CREATE TABLE IF NOT EXISTS event_outbox (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  event_type TEXT NOT NULL,
  event_date_time DATETIME NOT NULL,
  environment TEXT NOT NULL,
  event_context TEXT NOT NULL,
  metadata_version INTEGER NOT NULL DEFAULT 1
);`).Error)
	require.NoError(t, db.Exec(`DELETE FROM users`).Error)
	require.NoError(t, db.Exec(`DELETE FROM event_outbox`).Error)

	return db
}

// gormTxRunner mirrors the transaction helper the service sees in
// production, backed by the test database.
type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func newUsersService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "users-test"})
	outboxSvc := outbox.NewService(outbox.NewRepository(db), "test", logg)
	return NewService(&gormTxRunner{db: db}, NewRepository(db), outboxSvc, logg)
}

func TestCreateCommitsUserAndOutboxTogether(t *testing.T) {
	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)

	dto, err := svc.Create(context.Background(), CreateUserDTO{
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Smith",
	})
	require.NoError(t, err)
	require.NotNil(t, dto)
	assert.NotEmpty(t, dto.ID)
	assert.Equal(t, "alice@example.com", dto.Email)

	var userCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	assert.Equal(t, int64(1), userCount)

	var records []models.OutboxRecord
	require.NoError(t, db.Find(&records).Error)
	require.Len(t, records, 1)
	assert.Equal(t, "user_created", records[0].EventType)
	assert.Equal(t, "test", records[0].Environment)
	assert.Equal(t, int64(1), records[0].MetadataVersion)

	var payload userCreatedContext
	require.NoError(t, json.Unmarshal(records[0].EventContext, &payload))
	assert.Equal(t, "alice@example.com", payload.Email)
	assert.Equal(t, "Alice", payload.FirstName)
	assert.Equal(t, "Smith", payload.LastName)
}

func TestCreateDuplicateEmailLeavesNoOutboxRow(t *testing.T) {
	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)

	_, err := svc.Create(context.Background(), CreateUserDTO{
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Smith",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserDTO{
		Email:     "alice@example.com",
		FirstName: "Another",
		LastName:  "Alice",
	})
	require.Error(t, err)
	appErr := apperrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code())

	var userCount, outboxCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	require.NoError(t, db.Model(&models.OutboxRecord{}).Count(&outboxCount).Error)
	assert.Equal(t, int64(1), userCount, "duplicate insert rolled back")
	assert.Equal(t, int64(1), outboxCount, "no second event enqueued")
}

type failingTxRunner struct{}

func (failingTxRunner) WithTx(context.Context, func(tx *gorm.DB) error) error {
	return errors.New("begin: connection refused")
}

func TestCreateWrapsTransactionFailure(t *testing.T) {
	db := setupUsersTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "users-test"})
	outboxSvc := outbox.NewService(outbox.NewRepository(db), "test", logg)
	svc := NewService(failingTxRunner{}, NewRepository(db), outboxSvc, logg)

	_, err := svc.Create(context.Background(), CreateUserDTO{
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Smith",
	})
	require.Error(t, err)
	appErr := apperrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeInternal, appErr.Code())
}

func TestGetByID(t *testing.T) {
	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)

	created, err := svc.Create(context.Background(), CreateUserDTO{
		Email:     "bob@example.com",
		FirstName: "Bob",
		LastName:  "Stone",
	})
	require.NoError(t, err)

	found, err := svc.GetByID(context.Background(), created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "bob@example.com", found.Email)
}

func TestGetByIDNotFound(t *testing.T) {
	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)

	_, err := svc.GetByID(context.Background(), "7d0c5f7e-93c4-4b5f-8f2f-7a2f6f1f0a11")
	require.Error(t, err)
	appErr := apperrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code())
}

func TestGetByIDInvalidID(t *testing.T) {
	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)

	_, err := svc.GetByID(context.Background(), "not-a-uuid")
	require.Error(t, err)
	appErr := apperrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code())
}
