package outbox

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dshubenok/backender-challenge/pkg/db/models"
)

// Repository is the relay's and producers' only surface over the event_outbox
// table: append inside a producer transaction, fetch a bounded batch, delete
// by id after confirmed delivery. No updates are exposed.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends a record inside the caller's transaction so it co-commits
// and co-rolls-back with the domain write.
func (r *Repository) Insert(tx *gorm.DB, record *models.OutboxRecord) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(record).Error
}

// FetchPending returns up to limit of the oldest pending records. Primary key
// order makes repeated calls without intervening writes deterministic.
func (r *Repository) FetchPending(ctx context.Context, limit int) ([]models.OutboxRecord, error) {
	var rows []models.OutboxRecord
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// DeleteByIDs removes exactly the given ids and reports how many existed.
// Absent ids are not an error, which keeps overlapping relay passes safe.
func (r *Repository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&models.OutboxRecord{})
	return result.RowsAffected, result.Error
}

// CountPending reports the backlog size, used by tests and health reporting.
func (r *Repository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OutboxRecord{}).Count(&count).Error
	return count, err
}
