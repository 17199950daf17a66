package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sjperalta/finops-api/internal/models"
	"gorm.io/gorm"
)

// TransactionRepository defines the interface for transaction data access
type TransactionRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Transaction, error)
	Create(ctx context.Context, tx *models.Transaction) error
	Update(ctx context.Context, tx *models.Transaction) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, query *TransactionQuery) ([]models.Transaction, int64, error)
}

// TransactionQuery extends ListQuery with transaction-specific filters
type TransactionQuery struct {
	*ListQuery
	// BusinessUnitID restricts results when non-zero
	BusinessUnitID  uint
	TransactionType models.TransactionType
	ApprovalStatus  models.ApprovalStatus
	From            *time.Time
	To              *time.Time
}

var transactionSortable = map[string]string{
	"transaction_date": "transaction_date",
	"transaction_code": "transaction_code",
	"amount":           "amount",
	"created_at":       "created_at",
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) FindByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).First(&tx, id).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		if isDuplicateKeyError(err, "") {
			return fmt.Errorf("%w: transaction code %s", ErrDuplicate, tx.TransactionCode)
		}
		return err
	}
	return nil
}

func (r *transactionRepository) Update(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Save(tx).Error
}

func (r *transactionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Transaction{}, id).Error
}

func (r *transactionRepository) List(ctx context.Context, query *TransactionQuery) ([]models.Transaction, int64, error) {
	var txs []models.Transaction
	var total int64

	query.Normalize()
	db := r.db.WithContext(ctx).Model(&models.Transaction{})

	if query.BusinessUnitID > 0 {
		db = db.Where("business_unit_id = ?", query.BusinessUnitID)
	}
	if query.TransactionType != "" {
		db = db.Where("transaction_type = ?", query.TransactionType)
	}
	if query.ApprovalStatus != "" {
		db = db.Where("approval_status = ?", query.ApprovalStatus)
	}
	if query.From != nil {
		db = db.Where("transaction_date >= ?", *query.From)
	}
	if query.To != nil {
		db = db.Where("transaction_date <= ?", *query.To)
	}
	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("transaction_code ILIKE ? OR description ILIKE ?", search, search)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = applySortAndPage(db, query.ListQuery, transactionSortable, "transaction_date DESC, id DESC")
	err := db.Find(&txs).Error
	return txs, total, err
}
