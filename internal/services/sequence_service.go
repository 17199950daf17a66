package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/sjperalta/finops-api/internal/models"
	"github.com/sjperalta/finops-api/internal/repository"
	"github.com/sjperalta/finops-api/pkg/changes"
	"gorm.io/gorm"
)

const sequencesTable = "sequence_counters"

// {businessUnitId}_{prefix}_{MMYY}
var sequenceKeyPattern = regexp.MustCompile(`^[0-9]+_[TCV]_(0[1-9]|1[0-2])[0-9]{2}$`)

// SequenceService exposes the code counters for administration
type SequenceService struct {
	repo  repository.SequenceRepository
	audit *AuditService
}

func NewSequenceService(repo repository.SequenceRepository, audit *AuditService) *SequenceService {
	return &SequenceService{repo: repo, audit: audit}
}

// Get returns the current counter for key
func (s *SequenceService) Get(ctx context.Context, key string, actor models.Actor) (*models.SequenceCounter, error) {
	if err := s.authorize(key, actor); err != nil {
		return nil, err
	}
	counter, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, translateRepoError(err, "sequence "+key)
	}
	return counter, nil
}

// Reset sets the counter for key to zero so the next code issued for it ends in _001.
// Codes already issued stay valid; reusing a month key can therefore collide with
// existing codes, which the unique index on transaction_code rejects.
func (s *SequenceService) Reset(ctx context.Context, key string, actor models.Actor) error {
	if err := s.authorize(key, actor); err != nil {
		return err
	}

	var oldValues changes.Snapshot
	current, err := s.repo.Get(ctx, key)
	switch {
	case err == nil:
		oldValues = changes.Snapshot{"key": key, "value": current.Value}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return translateRepoError(err, "sequence "+key)
	}

	if err := s.repo.Reset(ctx, key); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	newValues := changes.Snapshot{"key": key, "value": int64(0)}
	s.audit.Log(ctx, AuditEntry{
		Entity:    sequencesTable,
		RecordID:  key,
		Action:    models.AuditActionUpdate,
		Actor:     actor,
		OldValues: oldValues,
		NewValues: newValues,
		Changes:   changes.Diff(oldValues, newValues),
	})
	return nil
}

func (s *SequenceService) authorize(key string, actor models.Actor) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	if !actor.Role.CanResetSequences() {
		return fmt.Errorf("%w: sequence administration requires ADMIN", ErrPermissionDenied)
	}
	if !sequenceKeyPattern.MatchString(key) {
		return fmt.Errorf("%w: malformed sequence key %q", ErrValidation, key)
	}
	return nil
}
