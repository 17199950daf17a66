package services

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sjperalta/finops-api/internal/jobs"
	"github.com/sjperalta/finops-api/internal/metrics"
	"github.com/sjperalta/finops-api/internal/models"
	"github.com/sjperalta/finops-api/internal/repository"
	"github.com/sjperalta/finops-api/pkg/changes"
	"github.com/sjperalta/finops-api/pkg/logger"
)

// AuditEntry describes one mutation to be recorded
type AuditEntry struct {
	Entity         string
	RecordID       string
	Action         models.AuditAction
	Actor          models.Actor
	BusinessUnitID *uint
	OldValues      changes.Snapshot
	NewValues      changes.Snapshot
	Changes        changes.Set
	Reason         *string
}

// scope picks the business unit an entry is filed under, falling back to the actor's
func (e AuditEntry) scope() *uint {
	if e.BusinessUnitID != nil {
		return e.BusinessUnitID
	}
	if e.Actor.BusinessUnitID != 0 {
		buID := e.Actor.BusinessUnitID
		return &buID
	}
	return nil
}

// AuditService writes the audit trail. Writing is best effort: a failed write is
// logged and reported but never returned to the business operation.
type AuditService struct {
	repo   repository.AuditRepository
	worker *jobs.Worker
	async  bool
	now    func() time.Time
}

// NewAuditService creates an audit service. With async set and a worker present,
// writes are dispatched on the worker instead of the caller's goroutine.
func NewAuditService(repo repository.AuditRepository, worker *jobs.Worker, async bool) *AuditService {
	return &AuditService{repo: repo, worker: worker, async: async && worker != nil, now: time.Now}
}

// Log records entry. It never fails from the caller's point of view.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) {
	record := &models.AuditLog{
		Entity:         entry.Entity,
		RecordID:       entry.RecordID,
		Action:         entry.Action,
		UserID:         entry.Actor.ID,
		BusinessUnitID: entry.scope(),
		OldValues:      entry.OldValues,
		NewValues:      entry.NewValues,
		Changes:        entry.Changes,
		Reason:         entry.Reason,
		IPAddress:      entry.Actor.IPAddress,
		UserAgent:      entry.Actor.UserAgent,
		CreatedAt:      s.now(),
	}

	if s.async {
		log := logger.FromContext(ctx)
		s.worker.EnqueueAsync(func(workerCtx context.Context) error {
			s.write(logger.WithContext(workerCtx, log), record)
			return nil
		})
		return
	}
	s.write(ctx, record)
}

func (s *AuditService) write(ctx context.Context, record *models.AuditLog) {
	defer func() {
		if r := recover(); r != nil {
			s.reportFailure(ctx, record, nil, r)
		}
	}()

	if err := s.repo.Create(ctx, record); err != nil {
		s.reportFailure(ctx, record, err, nil)
		return
	}
	metrics.AuditWrites.WithLabelValues(string(record.Action)).Inc()
}

func (s *AuditService) reportFailure(ctx context.Context, record *models.AuditLog, err error, panicValue any) {
	metrics.AuditWriteFailures.Inc()
	logger.FromContext(ctx).Error("audit write failed",
		"table_name", record.Entity,
		"record_id", record.RecordID,
		"action", record.Action,
		"user_id", record.UserID,
		"error", err,
		"panic", panicValue,
	)

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", "audit")
		scope.SetTag("table_name", record.Entity)
		scope.SetExtra("record_id", record.RecordID)
		scope.SetExtra("action", string(record.Action))
		if err != nil {
			hub.CaptureException(err)
		} else {
			hub.RecoverWithContext(ctx, panicValue)
		}
	})
}

// List returns a page of the audit trail, newest first. Users without cross-unit
// visibility only see entries filed under their own business unit.
func (s *AuditService) List(ctx context.Context, query *repository.AuditQuery, actor models.Actor) ([]models.AuditLog, int64, error) {
	if !actor.Authenticated() {
		return nil, 0, ErrUnauthenticated
	}
	if !actor.Role.CanViewAudit() {
		return nil, 0, ErrPermissionDenied
	}
	if query.ListQuery == nil {
		query.ListQuery = repository.NewListQuery()
	}
	if !actor.Role.SeesAllBusinessUnits() {
		if actor.BusinessUnitID == 0 {
			return nil, 0, fmt.Errorf("%w: no business unit assigned", ErrPermissionDenied)
		}
		if query.BusinessUnitID != 0 && query.BusinessUnitID != actor.BusinessUnitID {
			return nil, 0, fmt.Errorf("%w: audit trail of another business unit", ErrPermissionDenied)
		}
		query.BusinessUnitID = actor.BusinessUnitID
	}
	logs, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, 0, translateRepoError(err, "audit logs")
	}
	return logs, total, nil
}
