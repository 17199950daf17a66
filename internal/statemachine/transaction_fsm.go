package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/sjperalta/finops-api/internal/models"
)

// ErrTransitionNotAllowed is returned when an event is not valid from the current state
var ErrTransitionNotAllowed = errors.New("transition not allowed")

// Transaction approval events
const (
	EventSubmit  = "submit"
	EventApprove = "approve"
	EventReject  = "reject"
	EventCancel  = "cancel"
)

// TransactionFSM wraps a transaction with its approval state machine.
// Only the approval status moves here; side fields are set by the caller.
type TransactionFSM struct {
	tx  *models.Transaction
	fsm *fsm.FSM
}

// NewTransactionFSM creates a state machine positioned at the transaction's current status
func NewTransactionFSM(tx *models.Transaction) *TransactionFSM {
	draft := string(models.ApprovalStatusDraft)
	pending := string(models.ApprovalStatusPending)
	approved := string(models.ApprovalStatusApproved)
	rejected := string(models.ApprovalStatusRejected)
	cancelled := string(models.ApprovalStatusCancelled)

	t := &TransactionFSM{tx: tx}
	t.fsm = fsm.NewFSM(
		string(tx.ApprovalStatus),
		fsm.Events{
			// draft → pending
			{Name: EventSubmit, Src: []string{draft}, Dst: pending},

			// draft/pending/rejected → approved
			{Name: EventApprove, Src: []string{draft, pending, rejected}, Dst: approved},

			// draft/pending/approved → rejected
			{Name: EventReject, Src: []string{draft, pending, approved}, Dst: rejected},

			// anything but cancelled → cancelled
			{Name: EventCancel, Src: []string{draft, pending, rejected, approved}, Dst: cancelled},
		},
		fsm.Callbacks{},
	)
	return t
}

// Submit moves a draft to pending
func (t *TransactionFSM) Submit(ctx context.Context) error {
	if !t.tx.MaySubmit() {
		return t.notAllowed(EventSubmit)
	}
	return t.fire(ctx, EventSubmit)
}

// Approve moves the transaction to approved
func (t *TransactionFSM) Approve(ctx context.Context) error {
	if !t.tx.MayApprove() {
		return t.notAllowed(EventApprove)
	}
	return t.fire(ctx, EventApprove)
}

// Reject moves the transaction to rejected
func (t *TransactionFSM) Reject(ctx context.Context) error {
	if !t.tx.MayReject() {
		return t.notAllowed(EventReject)
	}
	return t.fire(ctx, EventReject)
}

// Cancel moves the transaction to cancelled
func (t *TransactionFSM) Cancel(ctx context.Context) error {
	if !t.tx.MayCancel() {
		return t.notAllowed(EventCancel)
	}
	return t.fire(ctx, EventCancel)
}

func (t *TransactionFSM) fire(ctx context.Context, event string) error {
	if err := t.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("%w: %s from %s: %v", ErrTransitionNotAllowed, event, t.tx.ApprovalStatus, err)
	}
	t.tx.ApprovalStatus = models.ApprovalStatus(t.fsm.Current())
	return nil
}

func (t *TransactionFSM) notAllowed(event string) error {
	return fmt.Errorf("%w: cannot %s a transaction in state %s", ErrTransitionNotAllowed, event, t.tx.ApprovalStatus)
}

// Current returns the current state
func (t *TransactionFSM) Current() models.ApprovalStatus {
	return models.ApprovalStatus(t.fsm.Current())
}

// Can checks if a transition is possible
func (t *TransactionFSM) Can(event string) bool {
	return t.fsm.Can(event)
}
