package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sjperalta/finops-api/internal/metrics"
	"github.com/sjperalta/finops-api/internal/models"
	"github.com/sjperalta/finops-api/internal/repository"
	"github.com/sjperalta/finops-api/pkg/logger"
	"gorm.io/gorm"
)

// transactionDateLayouts are tried in order by ParseTransactionDate
var transactionDateLayouts = []string{time.RFC3339, "2006-01-02", "02/01/2006"}

// CodeGenerator issues transaction codes of the form {buCode}_{prefix}{MM}{YY}_{seq}.
// Uniqueness comes from the sequence store; a value once taken is never reused,
// even when the caller later fails to persist its transaction.
type CodeGenerator struct {
	buRepo   repository.BusinessUnitRepository
	sequence repository.SequenceRepository
	now      func() time.Time
}

// NewCodeGenerator creates a code generator over the given sequence store
func NewCodeGenerator(buRepo repository.BusinessUnitRepository, sequence repository.SequenceRepository) *CodeGenerator {
	return &CodeGenerator{buRepo: buRepo, sequence: sequence, now: time.Now}
}

// SequenceKey returns the counter key for a business unit, prefix and month
func SequenceKey(businessUnitID uint, prefix string, date time.Time) string {
	return fmt.Sprintf("%d_%s_%02d%02d", businessUnitID, prefix, int(date.Month()), date.Year()%100)
}

// Generate returns the next code for the business unit, type and month of txDate.
// A zero txDate means today.
func (g *CodeGenerator) Generate(ctx context.Context, businessUnitID uint, txType models.TransactionType, txDate time.Time) (string, error) {
	bu, err := g.buRepo.FindByID(ctx, businessUnitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: id %d", ErrBusinessUnitNotFound, businessUnitID)
		}
		return "", fmt.Errorf("%w: business unit lookup: %v", ErrStorage, err)
	}

	prefix, ok := txType.CodePrefix()
	if !ok {
		return "", fmt.Errorf("%w: unknown transaction type %q", ErrValidation, txType)
	}

	if txDate.IsZero() {
		txDate = g.now()
	}

	key := SequenceKey(bu.ID, prefix, txDate)
	seq, err := g.sequence.NextValue(ctx, key)
	if err != nil {
		metrics.SequenceErrors.Inc()
		logger.FromContext(ctx).Error("sequence increment failed", "key", key, "error", err)
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	metrics.CodesGenerated.WithLabelValues(prefix).Inc()
	return fmt.Sprintf("%s_%s%02d%02d_%03d", bu.Code, prefix, int(txDate.Month()), txDate.Year()%100, seq), nil
}

// ParseTransactionDate reads a client-supplied date. Blank or unparseable input yields
// the zero time, which Generate replaces with the current date.
func ParseTransactionDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range transactionDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
