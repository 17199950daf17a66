package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sjperalta/finops-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceRepository is the durable key→counter registry behind transaction codes.
// NextValue must be atomic across processes: concurrent callers on one key never
// observe the same value, and the first call on a new key returns 1.
type SequenceRepository interface {
	NextValue(ctx context.Context, key string) (int64, error)
	// Reset stores 0 for key so the next NextValue returns 1. Administrative use only.
	Reset(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (*models.SequenceCounter, error)
}

// Both statements are single upserts; the row lock taken by ON CONFLICT serializes
// concurrent increments of the same key.
const (
	sequenceNextSQL = `INSERT INTO sequence_counters ("key", value, created_at, updated_at) ` +
		`VALUES (?, 1, ?, ?) ` +
		`ON CONFLICT ("key") DO UPDATE SET value = sequence_counters.value + 1, updated_at = excluded.updated_at ` +
		`RETURNING value`

	sequenceResetSQL = `INSERT INTO sequence_counters ("key", value, created_at, updated_at) ` +
		`VALUES (?, 0, ?, ?) ` +
		`ON CONFLICT ("key") DO UPDATE SET value = 0, updated_at = excluded.updated_at`
)

type sequenceRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSequenceRepository creates a database-backed sequence repository
func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db, now: time.Now}
}

func (r *sequenceRepository) NextValue(ctx context.Context, key string) (int64, error) {
	now := r.now().UTC()
	var value int64
	result := r.db.WithContext(ctx).Raw(sequenceNextSQL, key, now, now).Scan(&value)
	if result.Error != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", key, result.Error)
	}
	if value < 1 {
		return 0, fmt.Errorf("increment sequence %s: no value returned", key)
	}
	return value, nil
}

func (r *sequenceRepository) Reset(ctx context.Context, key string) error {
	now := r.now().UTC()
	if err := r.db.WithContext(ctx).Exec(sequenceResetSQL, key, now, now).Error; err != nil {
		return fmt.Errorf("reset sequence %s: %w", key, err)
	}
	return nil
}

func (r *sequenceRepository) Get(ctx context.Context, key string) (*models.SequenceCounter, error) {
	var counter models.SequenceCounter
	err := r.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).
		First(&counter).Error
	if err != nil {
		return nil, err
	}
	return &counter, nil
}
