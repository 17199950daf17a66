package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/sjperalta/finops-api/internal/models"
	"github.com/sjperalta/finops-api/internal/repository"
	"github.com/sjperalta/finops-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingNotificationRepo struct {
	repository.NotificationRepository
}

func (failingNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return errors.New("notifications: connection reset")
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	previous := logger.Log
	logger.Log = slog.New(slog.NewTextHandler(buf, nil))
	t.Cleanup(func() { logger.Log = previous })
	return buf
}

func TestNotificationService_NotifyTransactionDecision(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, nil)
	reason := "Falta factura"

	svc.NotifyTransactionDecision(&models.Transaction{
		TransactionCode: "HQ_T0124_001",
		CreatedBy:       5,
		RejectionReason: &reason,
	}, models.NotificationTypeTransactionRejected)

	require.Len(t, repo.created, 1)
	assert.Equal(t, uint(5), repo.created[0].UserID)
	assert.Equal(t, "Transaction HQ_T0124_001 has been rejected: Falta factura", repo.created[0].Message)
}

func TestNotificationService_NotifyTransactionDecision_LogsFailure(t *testing.T) {
	logs := captureLogs(t)
	svc := NewNotificationService(failingNotificationRepo{}, nil)

	assert.NotPanics(t, func() {
		svc.NotifyTransactionDecision(&models.Transaction{TransactionCode: "HQ_T0124_001", CreatedBy: 5},
			models.NotificationTypeTransactionApproved)
	})

	out := logs.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "notification delivery failed")
	assert.Contains(t, out, "connection reset")
	assert.Contains(t, out, "user_id=5")
}
