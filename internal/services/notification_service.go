package services

import (
	"context"
	"fmt"

	"github.com/sjperalta/finops-api/internal/jobs"
	"github.com/sjperalta/finops-api/internal/models"
	"github.com/sjperalta/finops-api/internal/repository"
	"github.com/sjperalta/finops-api/pkg/logger"
)

type NotificationService struct {
	repo   repository.NotificationRepository
	worker *jobs.Worker
}

func NewNotificationService(repo repository.NotificationRepository, worker *jobs.Worker) *NotificationService {
	return &NotificationService{repo: repo, worker: worker}
}

func (s *NotificationService) NotifyUser(ctx context.Context, userID uint, title, message, notifType string) error {
	notification := &models.Notification{
		UserID:           userID,
		Title:            title,
		Message:          message,
		NotificationType: &notifType,
	}
	return s.repo.Create(ctx, notification)
}

// NotifyTransactionDecision tells the creator of tx about an approval decision.
// Delivery runs on the worker; failures are logged there and never reach the caller.
func (s *NotificationService) NotifyTransactionDecision(tx *models.Transaction, notifType string) {
	if s == nil || tx.CreatedBy == 0 {
		return
	}

	var title, message string
	switch notifType {
	case models.NotificationTypeTransactionApproved:
		title = "Transaction approved"
		message = fmt.Sprintf("Transaction %s has been approved.", tx.TransactionCode)
	case models.NotificationTypeTransactionRejected:
		title = "Transaction rejected"
		message = fmt.Sprintf("Transaction %s has been rejected.", tx.TransactionCode)
		if tx.RejectionReason != nil {
			message = fmt.Sprintf("Transaction %s has been rejected: %s", tx.TransactionCode, *tx.RejectionReason)
		}
	case models.NotificationTypeTransactionCancelled:
		title = "Transaction cancelled"
		message = fmt.Sprintf("Transaction %s has been cancelled.", tx.TransactionCode)
	default:
		title = "Transaction updated"
		message = fmt.Sprintf("Transaction %s is now %s.", tx.TransactionCode, tx.ApprovalStatus)
	}

	userID := tx.CreatedBy
	job := func(ctx context.Context) error {
		return s.NotifyUser(ctx, userID, title, message, notifType)
	}
	if s.worker == nil {
		if err := job(context.Background()); err != nil {
			logger.Warn("notification delivery failed", "user_id", userID, "type", notifType, "error", err)
		}
		return
	}
	s.worker.Enqueue(job)
}
