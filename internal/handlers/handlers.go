package handlers

import (
	"github.com/sjperalta/finops-api/internal/jobs"
	"github.com/sjperalta/finops-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health      *HealthHandler
	Auth        *AuthHandler
	Transaction *TransactionHandler
	Audit       *AuditHandler
	Sequence    *SequenceHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, worker *jobs.Worker) *Handlers {
	return &Handlers{
		Health:      NewHealthHandler(worker),
		Auth:        NewAuthHandler(svcs.Auth),
		Transaction: NewTransactionHandler(svcs.Transaction, svcs.Export),
		Audit:       NewAuditHandler(svcs.Audit, svcs.Export),
		Sequence:    NewSequenceHandler(svcs.Sequence),
	}
}
