package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/finops-api/internal/middleware"
	"github.com/sjperalta/finops-api/internal/models"
	"github.com/sjperalta/finops-api/internal/repository"
	"github.com/sjperalta/finops-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memTransactionRepo struct {
	repository.TransactionRepository
	mu     sync.Mutex
	rows   map[uint]*models.Transaction
	nextID uint
}

func (r *memTransactionRepo) FindByID(ctx context.Context, id uint) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return tx.Clone(), nil
}

func (r *memTransactionRepo) Create(ctx context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	tx.ID = r.nextID
	r.rows[tx.ID] = tx.Clone()
	return nil
}

func (r *memTransactionRepo) Update(ctx context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[tx.ID] = tx.Clone()
	return nil
}

func (r *memTransactionRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *memTransactionRepo) List(ctx context.Context, query *repository.TransactionQuery) ([]models.Transaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Transaction
	for _, tx := range r.rows {
		if query.BusinessUnitID != 0 && tx.BusinessUnitID != query.BusinessUnitID {
			continue
		}
		out = append(out, *tx.Clone())
	}
	return out, int64(len(out)), nil
}

type memAuditRepo struct {
	repository.AuditRepository
	mu      sync.Mutex
	entries []models.AuditLog
}

func (r *memAuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uint(len(r.entries) + 1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memAuditRepo) List(ctx context.Context, query *repository.AuditQuery) ([]models.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AuditLog
	for _, e := range r.entries {
		if query.Entity != "" && e.Entity != query.Entity {
			continue
		}
		if query.Action != "" && e.Action != query.Action {
			continue
		}
		if query.BusinessUnitID != 0 && (e.BusinessUnitID == nil || *e.BusinessUnitID != query.BusinessUnitID) {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (r *memAuditRepo) actions() []models.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AuditAction
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type memBusinessUnits map[uint]*models.BusinessUnit

func (m memBusinessUnits) FindByID(ctx context.Context, id uint) (*models.BusinessUnit, error) {
	if bu, ok := m[id]; ok {
		return bu, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type memSequence struct {
	mu     sync.Mutex
	values map[string]int64
}

func (s *memSequence) NextValue(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key]++
	return s.values[key], nil
}

func (s *memSequence) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = 0
	return nil
}

func (s *memSequence) Get(ctx context.Context, key string) (*models.SequenceCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.SequenceCounter{Key: key, Value: v}, nil
}

type memNotifications struct {
	repository.NotificationRepository
}

func (memNotifications) Create(ctx context.Context, n *models.Notification) error { return nil }

var (
	adminActor   = models.Actor{ID: 2, Role: models.RoleAdmin, IPAddress: "10.0.0.2"}
	managerActor = models.Actor{ID: 3, Role: models.RoleBUManager, BusinessUnitID: 1}
	staffActor   = models.Actor{ID: 5, Role: models.RoleStaff, BusinessUnitID: 1}
)

type testEnv struct {
	transactions *memTransactionRepo
	audits       *memAuditRepo
	sequence     *memSequence
	handlers     *Handlers
}

func newTestEnv(autoApprove bool) *testEnv {
	env := &testEnv{
		transactions: &memTransactionRepo{rows: map[uint]*models.Transaction{}},
		audits:       &memAuditRepo{},
		sequence:     &memSequence{values: map[string]int64{}},
	}
	units := memBusinessUnits{1: {ID: 1, Code: "HQ"}, 2: {ID: 2, Code: "BR"}}

	audit := services.NewAuditService(env.audits, nil, false)
	codes := services.NewCodeGenerator(units, env.sequence)
	txSvc := services.NewTransactionService(env.transactions, codes, audit, services.NewNotificationService(memNotifications{}, nil), autoApprove)
	svcs := &services.Services{
		Audit:       audit,
		Codes:       codes,
		Transaction: txSvc,
		Sequence:    services.NewSequenceService(env.sequence, audit),
		Export:      services.NewExportService(audit, txSvc),
	}
	env.handlers = NewHandlers(svcs, nil)
	return env
}

func (env *testEnv) router(actor models.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { middleware.SetActor(c, actor) })
	h := env.handlers
	r.GET("/transactions", h.Transaction.Index)
	r.POST("/transactions", h.Transaction.Create)
	r.GET("/transactions/:transaction_id", h.Transaction.Show)
	r.PUT("/transactions/:transaction_id", h.Transaction.Update)
	r.DELETE("/transactions/:transaction_id", h.Transaction.Delete)
	r.GET("/transactions/:transaction_id/voucher", h.Transaction.Voucher)
	r.POST("/transactions/:transaction_id/approve", h.Transaction.Approve)
	r.POST("/transactions/:transaction_id/reject", h.Transaction.Reject)
	r.POST("/transactions/:transaction_id/cancel", h.Transaction.Cancel)
	r.GET("/audits", h.Audit.Index)
	r.GET("/audits/export", h.Audit.Export)
	r.GET("/sequences/:key", h.Sequence.Show)
	r.POST("/sequences/:key/reset", h.Sequence.Reset)
	return r
}

func (env *testEnv) do(t *testing.T, actor models.Actor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = new(bytes.Buffer)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	env.router(actor).ServeHTTP(w, req)
	return w
}

func decodeTransaction(t *testing.T, w *httptest.ResponseRecorder) models.Transaction {
	t.Helper()
	var body struct {
		Transaction models.Transaction `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Transaction
}

func TestTransactionHandler_CreateAssignsCode(t *testing.T) {
	env := newTestEnv(true)

	w := env.do(t, staffActor, http.MethodPost, "/transactions",
		`{"transaction": {"transaction_type": "INCOME", "transaction_date": "2024-01-15", "amount": "1500.50"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decodeTransaction(t, w)
	assert.Equal(t, "HQ_T0124_001", first.TransactionCode)
	assert.Equal(t, models.ApprovalStatusApproved, first.ApprovalStatus)

	w = env.do(t, staffActor, http.MethodPost, "/transactions",
		`{"transaction_type": "income", "transaction_date": "2024-01-28", "amount": 20}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "HQ_T0124_002", decodeTransaction(t, w).TransactionCode)

	assert.Equal(t, []models.AuditAction{models.AuditActionCreate, models.AuditActionCreate}, env.audits.actions())
}

func TestTransactionHandler_CreateErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"transaction_type": `, http.StatusBadRequest},
		{"unknown type", `{"transaction_type": "GIFT", "amount": 10}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"transaction_type": "EXPENSE", "amount": 0}`, http.StatusUnprocessableEntity},
		{"other business unit", `{"transaction_type": "EXPENSE", "amount": 5, "business_unit_id": 2}`, http.StatusForbidden},
		{"missing business unit", `{"transaction_type": "EXPENSE", "amount": 5, "business_unit_id": 9}`, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(true)
			w := env.do(t, staffActor, http.MethodPost, "/transactions", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Empty(t, env.audits.actions())
		})
	}
}

func TestTransactionHandler_ApprovalFlow(t *testing.T) {
	env := newTestEnv(false)

	w := env.do(t, staffActor, http.MethodPost, "/transactions",
		`{"transaction_type": "EXPENSE", "transaction_date": "2024-03-02", "amount": 99.99, "description": "Papelería"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeTransaction(t, w)
	assert.Equal(t, "HQ_C0324_001", created.TransactionCode)
	assert.Equal(t, models.ApprovalStatusPending, created.ApprovalStatus)
	path := fmt.Sprintf("/transactions/%d", created.ID)

	w = env.do(t, staffActor, http.MethodPost, path+"/approve", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, managerActor, http.MethodPost, path+"/reject", `{"reason": "   "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, managerActor, http.MethodPost, path+"/reject", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "reason is required")

	w = env.do(t, managerActor, http.MethodPost, path+"/reject", `{"reason": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, managerActor, http.MethodPost, path+"/reject", `{"reason": "Falta factura"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rejected := decodeTransaction(t, w)
	assert.Equal(t, models.ApprovalStatusRejected, rejected.ApprovalStatus)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "Falta factura", *rejected.RejectionReason)

	w = env.do(t, managerActor, http.MethodPost, path+"/approve", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	approved := decodeTransaction(t, w)
	assert.Equal(t, models.ApprovalStatusApproved, approved.ApprovalStatus)
	assert.Equal(t, models.PaymentStatusPaid, approved.PaymentStatus)
	assert.Nil(t, approved.RejectionReason)

	w = env.do(t, managerActor, http.MethodPost, path+"/approve", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, staffActor, http.MethodPut, path, `{"amount": 120}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, adminActor, http.MethodPost, path+"/cancel", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.ApprovalStatusCancelled, decodeTransaction(t, w).ApprovalStatus)

	assert.Equal(t, []models.AuditAction{
		models.AuditActionCreate,
		models.AuditActionReject,
		models.AuditActionApprove,
		models.AuditActionCancel,
	}, env.audits.actions())
}

func TestTransactionHandler_ShowAndDelete(t *testing.T) {
	env := newTestEnv(false)
	w := env.do(t, staffActor, http.MethodPost, "/transactions", `{"transaction_type": "LOAN", "amount": 300}`)
	require.Equal(t, http.StatusCreated, w.Code)
	path := fmt.Sprintf("/transactions/%d", decodeTransaction(t, w).ID)

	assert.Equal(t, http.StatusOK, env.do(t, staffActor, http.MethodGet, path, "").Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, models.Actor{ID: 9, Role: models.RoleStaff, BusinessUnitID: 2}, http.MethodGet, path, "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, staffActor, http.MethodGet, "/transactions/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, staffActor, http.MethodGet, "/transactions/999", "").Code)

	w = env.do(t, staffActor, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusNotFound, env.do(t, staffActor, http.MethodGet, path, "").Code)
	assert.Equal(t, []models.AuditAction{models.AuditActionCreate, models.AuditActionDelete}, env.audits.actions())
}

func TestTransactionHandler_IndexScopesToBusinessUnit(t *testing.T) {
	env := newTestEnv(true)
	require.Equal(t, http.StatusCreated, env.do(t, staffActor, http.MethodPost, "/transactions", `{"transaction_type": "INCOME", "amount": 1}`).Code)
	require.Equal(t, http.StatusCreated, env.do(t, adminActor, http.MethodPost, "/transactions", `{"transaction_type": "INCOME", "amount": 1, "business_unit_id": 2}`).Code)

	var body struct {
		Transactions []models.Transaction `json:"transactions"`
		Pagination   map[string]any       `json:"pagination"`
	}

	w := env.do(t, staffActor, http.MethodGet, "/transactions", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Transactions, 1)
	assert.Equal(t, float64(1), body.Pagination["total"])

	w = env.do(t, adminActor, http.MethodGet, "/transactions", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Transactions, 2)

	assert.Equal(t, http.StatusForbidden, env.do(t, staffActor, http.MethodGet, "/transactions?business_unit_id=2", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(t, staffActor, http.MethodGet, "/transactions?transaction_type=GIFT", "").Code)
}

func TestTransactionHandler_Voucher(t *testing.T) {
	env := newTestEnv(true)
	w := env.do(t, staffActor, http.MethodPost, "/transactions", `{"transaction_type": "INCOME", "transaction_date": "2024-01-15", "amount": 10}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeTransaction(t, w).ID

	w = env.do(t, staffActor, http.MethodGet, fmt.Sprintf("/transactions/%d/voucher", id), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "voucher_HQ_T0124_001.pdf")
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
}
