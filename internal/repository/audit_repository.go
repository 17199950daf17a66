package repository

import (
	"context"
	"time"

	"github.com/sjperalta/finops-api/internal/models"
	"gorm.io/gorm"
)

// AuditRepository persists audit log entries. Entries are append-only.
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, query *AuditQuery) ([]models.AuditLog, int64, error)
}

// AuditQuery filters the audit trail. A BusinessUnitID also drops unscoped entries.
type AuditQuery struct {
	*ListQuery
	Entity         string
	RecordID       string
	Action         models.AuditAction
	UserID         uint
	BusinessUnitID uint
	From           *time.Time
	To             *time.Time
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Omit("User").Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, query *AuditQuery) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query.Normalize()
	db := r.db.WithContext(ctx).Model(&models.AuditLog{})

	if query.Entity != "" {
		db = db.Where("table_name = ?", query.Entity)
	}
	if query.RecordID != "" {
		db = db.Where("record_id = ?", query.RecordID)
	}
	if query.Action != "" {
		db = db.Where("action = ?", query.Action)
	}
	if query.UserID > 0 {
		db = db.Where("user_id = ?", query.UserID)
	}
	if query.BusinessUnitID > 0 {
		db = db.Where("business_unit_id = ?", query.BusinessUnitID)
	}
	if query.From != nil {
		db = db.Where("created_at >= ?", *query.From)
	}
	if query.To != nil {
		db = db.Where("created_at <= ?", *query.To)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("User").
		Order("created_at DESC, id DESC").
		Offset((query.Page - 1) * query.PerPage).
		Limit(query.PerPage).
		Find(&logs).Error
	return logs, total, err
}
