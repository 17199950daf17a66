package repository

import (
	"context"

	"github.com/sjperalta/finops-api/internal/models"
	"gorm.io/gorm"
)

// BusinessUnitRepository defines the interface for business unit lookups
type BusinessUnitRepository interface {
	FindByID(ctx context.Context, id uint) (*models.BusinessUnit, error)
}

type businessUnitRepository struct {
	db *gorm.DB
}

// NewBusinessUnitRepository creates a new business unit repository
func NewBusinessUnitRepository(db *gorm.DB) BusinessUnitRepository {
	return &businessUnitRepository{db: db}
}

func (r *businessUnitRepository) FindByID(ctx context.Context, id uint) (*models.BusinessUnit, error) {
	var bu models.BusinessUnit
	if err := r.db.WithContext(ctx).First(&bu, id).Error; err != nil {
		return nil, err
	}
	return &bu, nil
}
