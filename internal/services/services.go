package services

import (
	"github.com/sjperalta/finops-api/internal/config"
	"github.com/sjperalta/finops-api/internal/jobs"
	"github.com/sjperalta/finops-api/internal/repository"
)

// Services holds all service instances
type Services struct {
	Auth         *AuthService
	Audit        *AuditService
	Codes        *CodeGenerator
	Transaction  *TransactionService
	Sequence     *SequenceService
	Notification *NotificationService
	Export       *ExportService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, cfg *config.Config) *Services {
	auditSvc := NewAuditService(repos.Audit, worker, cfg.AuditAsync)
	notificationSvc := NewNotificationService(repos.Notification, worker)
	codes := NewCodeGenerator(repos.BusinessUnit, repos.Sequence)
	transactionSvc := NewTransactionService(repos.Transaction, codes, auditSvc, notificationSvc, cfg.TransactionAutoApprove)

	return &Services{
		Auth:         NewAuthService(repos.User, auditSvc, cfg),
		Audit:        auditSvc,
		Codes:        codes,
		Transaction:  transactionSvc,
		Sequence:     NewSequenceService(repos.Sequence, auditSvc),
		Notification: notificationSvc,
		Export:       NewExportService(auditSvc, transactionSvc),
	}
}
