package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/finops-api/internal/models"
	"github.com/sjperalta/finops-api/internal/repository"
	"github.com/sjperalta/finops-api/internal/statemachine"
	"github.com/sjperalta/finops-api/pkg/changes"
	"github.com/sjperalta/finops-api/pkg/logger"
)

const transactionsTable = "transactions"

// CreateTransactionInput lists every field a client may set on create
type CreateTransactionInput struct {
	TransactionType models.TransactionType `json:"transaction_type" validate:"required"`
	TransactionDate string                 `json:"transaction_date"`
	Amount          decimal.Decimal        `json:"amount" validate:"gt=0"`
	Description     *string                `json:"description" validate:"omitempty,max=2000"`
	BusinessUnitID  uint                   `json:"business_unit_id"`
	CostAllocation  models.CostAllocation  `json:"cost_allocation" validate:"omitempty,oneof=DIRECT INDIRECT"`
	ProjectID       *uint                  `json:"project_id"`
	CategoryID      *uint                  `json:"category_id"`
	PartnerID       *uint                  `json:"partner_id"`
}

// UpdateTransactionInput lists the editable fields. Nil means unchanged.
// Type, business unit, code and workflow fields are not editable.
type UpdateTransactionInput struct {
	TransactionDate *string                `json:"transaction_date"`
	Amount          *decimal.Decimal       `json:"amount" validate:"omitempty,gt=0"`
	Description     *string                `json:"description" validate:"omitempty,max=2000"`
	CostAllocation  *models.CostAllocation `json:"cost_allocation" validate:"omitempty,oneof=DIRECT INDIRECT"`
	ProjectID       *uint                  `json:"project_id"`
	CategoryID      *uint                  `json:"category_id"`
	PartnerID       *uint                  `json:"partner_id"`
}

// TransactionService runs the transaction workflow: permission gates, code
// generation, persistence, audit and notification.
type TransactionService struct {
	repo        repository.TransactionRepository
	codes       *CodeGenerator
	audit       *AuditService
	notifier    *NotificationService
	validate    *validator.Validate
	autoApprove bool
	now         func() time.Time
}

// NewTransactionService creates the workflow service. With autoApprove set, new
// transactions start APPROVED and PAID; otherwise PENDING and UNPAID.
func NewTransactionService(
	repo repository.TransactionRepository,
	codes *CodeGenerator,
	audit *AuditService,
	notifier *NotificationService,
	autoApprove bool,
) *TransactionService {
	return &TransactionService{
		repo:        repo,
		codes:       codes,
		audit:       audit,
		notifier:    notifier,
		validate:    newValidator(),
		autoApprove: autoApprove,
		now:         time.Now,
	}
}

// Create validates input, issues a transaction code and stores the transaction
func (s *TransactionService) Create(ctx context.Context, input CreateTransactionInput, actor models.Actor) (*models.Transaction, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	// amounts are stored to the cent, so validate what will be stored
	input.Amount = input.Amount.Round(2)
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	txType, ok := models.ParseTransactionType(string(input.TransactionType))
	if !ok {
		return nil, fmt.Errorf("%w: unknown transaction type %q", ErrValidation, input.TransactionType)
	}

	buID := input.BusinessUnitID
	if buID == 0 {
		buID = actor.BusinessUnitID
	}
	if buID == 0 {
		return nil, fmt.Errorf("%w: business_unit_id is required", ErrValidation)
	}
	if !actor.CanAccessBusinessUnit(buID) {
		return nil, fmt.Errorf("%w: cannot create transactions for business unit %d", ErrPermissionDenied, buID)
	}

	now := s.now()
	txDate := ParseTransactionDate(input.TransactionDate)
	if txDate.IsZero() {
		txDate = now
	}
	txDate = dateOnly(txDate)

	code, err := s.codes.Generate(ctx, buID, txType, txDate)
	if err != nil {
		return nil, err
	}

	allocation := input.CostAllocation
	if allocation == "" {
		allocation = models.CostAllocationDirect
	}

	tx := &models.Transaction{
		TransactionCode: code,
		TransactionType: txType,
		TransactionDate: txDate,
		Amount:          input.Amount,
		Description:     input.Description,
		BusinessUnitID:  buID,
		CostAllocation:  allocation,
		ProjectID:       input.ProjectID,
		CategoryID:      input.CategoryID,
		PartnerID:       input.PartnerID,
		CreatedBy:       actor.ID,
	}
	if s.autoApprove {
		tx.ApprovalStatus = models.ApprovalStatusApproved
		tx.PaymentStatus = models.PaymentStatusPaid
		approvedBy := actor.ID
		tx.ApprovedBy = &approvedBy
		tx.ApprovedAt = &now
	} else {
		tx.ApprovalStatus = models.ApprovalStatusPending
		tx.PaymentStatus = models.PaymentStatusUnpaid
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, translateRepoError(err, "transaction")
	}

	s.audit.Log(ctx, AuditEntry{
		Entity:         transactionsTable,
		RecordID:       recordID(tx.ID),
		Action:         models.AuditActionCreate,
		Actor:          actor,
		BusinessUnitID: &tx.BusinessUnitID,
		NewValues:      snapshot(ctx, tx),
	})

	logger.FromContext(ctx).Info("transaction created", "id", tx.ID, "code", tx.TransactionCode, "user_id", actor.ID)
	return tx, nil
}

// Update applies the editable fields of input to transaction id
func (s *TransactionService) Update(ctx context.Context, id uint, input UpdateTransactionInput, actor models.Actor) (*models.Transaction, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if input.Amount != nil {
		rounded := input.Amount.Round(2)
		input.Amount = &rounded
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	tx, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeEdit(tx, actor); err != nil {
		return nil, err
	}
	if tx.ApprovalStatus == models.ApprovalStatusCancelled {
		return nil, fmt.Errorf("%w: transaction %s is cancelled", ErrInvalidState, tx.TransactionCode)
	}

	before := tx.Clone()

	if input.TransactionDate != nil {
		date := ParseTransactionDate(*input.TransactionDate)
		if date.IsZero() {
			return nil, fmt.Errorf("%w: transaction_date %q is not a valid date", ErrValidation, *input.TransactionDate)
		}
		tx.TransactionDate = dateOnly(date)
	}
	if input.Amount != nil {
		tx.Amount = *input.Amount
	}
	if input.Description != nil {
		tx.Description = input.Description
	}
	if input.CostAllocation != nil {
		tx.CostAllocation = *input.CostAllocation
	}
	if input.ProjectID != nil {
		tx.ProjectID = input.ProjectID
	}
	if input.CategoryID != nil {
		tx.CategoryID = input.CategoryID
	}
	if input.PartnerID != nil {
		tx.PartnerID = input.PartnerID
	}

	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, translateRepoError(err, "transaction")
	}

	s.logChange(ctx, models.AuditActionUpdate, actor, before, tx, nil)
	return tx, nil
}

// Delete removes transaction id. The audit entry keeps its last state.
func (s *TransactionService) Delete(ctx context.Context, id uint, actor models.Actor) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}

	tx, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeEdit(tx, actor); err != nil {
		return err
	}

	s.audit.Log(ctx, AuditEntry{
		Entity:         transactionsTable,
		RecordID:       recordID(tx.ID),
		Action:         models.AuditActionDelete,
		Actor:          actor,
		BusinessUnitID: &tx.BusinessUnitID,
		OldValues:      snapshot(ctx, tx),
	})

	if err := s.repo.Delete(ctx, tx.ID); err != nil {
		return translateRepoError(err, "transaction")
	}
	return nil
}

// Approve marks transaction id as approved and paid
func (s *TransactionService) Approve(ctx context.Context, id uint, actor models.Actor) (*models.Transaction, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !actor.Role.CanApprove() {
		return nil, fmt.Errorf("%w: role %s cannot approve transactions", ErrPermissionDenied, actor.Role)
	}

	tx, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessBusinessUnit(tx.BusinessUnitID) {
		return nil, fmt.Errorf("%w: transaction belongs to another business unit", ErrPermissionDenied)
	}

	before := tx.Clone()
	if err := statemachine.NewTransactionFSM(tx).Approve(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	now := s.now()
	approvedBy := actor.ID
	tx.PaymentStatus = models.PaymentStatusPaid
	tx.RejectionReason = nil
	tx.ApprovedBy = &approvedBy
	tx.ApprovedAt = &now

	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, translateRepoError(err, "transaction")
	}

	s.logChange(ctx, models.AuditActionApprove, actor, before, tx, nil)
	s.notifier.NotifyTransactionDecision(tx, models.NotificationTypeTransactionApproved)
	return tx, nil
}

// Reject marks transaction id as rejected and unpaid. A reason is mandatory.
func (s *TransactionService) Reject(ctx context.Context, id uint, actor models.Actor, reason string) (*models.Transaction, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required to reject a transaction", ErrValidation)
	}
	if !actor.Role.CanApprove() {
		return nil, fmt.Errorf("%w: role %s cannot reject transactions", ErrPermissionDenied, actor.Role)
	}

	tx, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessBusinessUnit(tx.BusinessUnitID) {
		return nil, fmt.Errorf("%w: transaction belongs to another business unit", ErrPermissionDenied)
	}
	if tx.IsApproved() && !actor.Role.CanEditApproved() {
		return nil, fmt.Errorf("%w: only CEO or ADMIN can reject an approved transaction", ErrPermissionDenied)
	}

	before := tx.Clone()
	if err := statemachine.NewTransactionFSM(tx).Reject(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	tx.PaymentStatus = models.PaymentStatusUnpaid
	tx.RejectionReason = &reason

	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, translateRepoError(err, "transaction")
	}

	s.logChange(ctx, models.AuditActionReject, actor, before, tx, &reason)
	s.notifier.NotifyTransactionDecision(tx, models.NotificationTypeTransactionRejected)
	return tx, nil
}

// Cancel withdraws transaction id. Creators may cancel their own transactions;
// approvers may cancel any in their business unit.
func (s *TransactionService) Cancel(ctx context.Context, id uint, actor models.Actor, reason string) (*models.Transaction, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}

	tx, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessBusinessUnit(tx.BusinessUnitID) {
		return nil, fmt.Errorf("%w: transaction belongs to another business unit", ErrPermissionDenied)
	}
	if tx.CreatedBy != actor.ID && !actor.Role.CanApprove() {
		return nil, fmt.Errorf("%w: only the creator or an approver can cancel", ErrPermissionDenied)
	}
	if tx.IsApproved() && !actor.Role.CanEditApproved() {
		return nil, fmt.Errorf("%w: only CEO or ADMIN can cancel an approved transaction", ErrPermissionDenied)
	}

	before := tx.Clone()
	if err := statemachine.NewTransactionFSM(tx).Cancel(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, translateRepoError(err, "transaction")
	}

	var auditReason *string
	if reason = strings.TrimSpace(reason); reason != "" {
		auditReason = &reason
	}
	s.logChange(ctx, models.AuditActionCancel, actor, before, tx, auditReason)
	if tx.CreatedBy != actor.ID {
		s.notifier.NotifyTransactionDecision(tx, models.NotificationTypeTransactionCancelled)
	}
	return tx, nil
}

// Submit sends a draft for approval
func (s *TransactionService) Submit(ctx context.Context, id uint, actor models.Actor) (*models.Transaction, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}

	tx, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeEdit(tx, actor); err != nil {
		return nil, err
	}

	before := tx.Clone()
	if err := statemachine.NewTransactionFSM(tx).Submit(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, translateRepoError(err, "transaction")
	}

	s.logChange(ctx, models.AuditActionUpdate, actor, before, tx, nil)
	return tx, nil
}

// FindByID returns transaction id if the actor may see its business unit
func (s *TransactionService) FindByID(ctx context.Context, id uint, actor models.Actor) (*models.Transaction, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	tx, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessBusinessUnit(tx.BusinessUnitID) {
		return nil, fmt.Errorf("%w: transaction belongs to another business unit", ErrPermissionDenied)
	}
	return tx, nil
}

// List returns transactions visible to the actor. Users without cross-unit
// visibility are pinned to their own business unit.
func (s *TransactionService) List(ctx context.Context, query *repository.TransactionQuery, actor models.Actor) ([]models.Transaction, int64, error) {
	if !actor.Authenticated() {
		return nil, 0, ErrUnauthenticated
	}
	if query.ListQuery == nil {
		query.ListQuery = repository.NewListQuery()
	}
	if !actor.Role.SeesAllBusinessUnits() {
		if actor.BusinessUnitID == 0 {
			return nil, 0, fmt.Errorf("%w: no business unit assigned", ErrPermissionDenied)
		}
		if query.BusinessUnitID != 0 && query.BusinessUnitID != actor.BusinessUnitID {
			return nil, 0, fmt.Errorf("%w: transaction list of another business unit", ErrPermissionDenied)
		}
		query.BusinessUnitID = actor.BusinessUnitID
	}

	txs, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, 0, translateRepoError(err, "transactions")
	}
	return txs, total, nil
}

func (s *TransactionService) load(ctx context.Context, id uint) (*models.Transaction, error) {
	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, fmt.Sprintf("transaction %d", id))
	}
	return tx, nil
}

// authorizeEdit gates edit, delete and submit. The approved gate comes first so a
// non-elevated caller learns nothing else about an approved transaction.
func (s *TransactionService) authorizeEdit(tx *models.Transaction, actor models.Actor) error {
	if tx.IsApproved() && !actor.Role.CanEditApproved() {
		return fmt.Errorf("%w: only CEO or ADMIN can modify an approved transaction", ErrPermissionDenied)
	}
	if !actor.CanAccessBusinessUnit(tx.BusinessUnitID) {
		return fmt.Errorf("%w: transaction belongs to another business unit", ErrPermissionDenied)
	}
	if tx.CreatedBy != actor.ID && !actor.Role.CanManageTransactions() {
		return fmt.Errorf("%w: only the creator can modify this transaction", ErrPermissionDenied)
	}
	return nil
}

func (s *TransactionService) logChange(ctx context.Context, action models.AuditAction, actor models.Actor, before, after *models.Transaction, reason *string) {
	oldValues := snapshot(ctx, before)
	newValues := snapshot(ctx, after)
	s.audit.Log(ctx, AuditEntry{
		Entity:         transactionsTable,
		RecordID:       recordID(after.ID),
		Action:         action,
		Actor:          actor,
		BusinessUnitID: &after.BusinessUnitID,
		OldValues:      oldValues,
		NewValues:      newValues,
		Changes:        changes.Diff(oldValues, newValues),
		Reason:         reason,
	})
}

// snapshot never fails the caller; an unserializable entity is audited without values
func snapshot(ctx context.Context, v any) changes.Snapshot {
	snap, err := changes.Of(v)
	if err != nil {
		logger.FromContext(ctx).Warn("audit snapshot failed", "error", err)
		return nil
	}
	return snap
}

func recordID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
