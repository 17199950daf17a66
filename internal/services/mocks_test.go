package services

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/finops-api/internal/models"
	"github.com/sjperalta/finops-api/internal/repository"
	"gorm.io/gorm"
)

type mockUserRepo struct {
	repository.UserRepository
	mockFindByEmail func(ctx context.Context, email string) (*models.User, error)
	mockFindByID    func(ctx context.Context, id uint) (*models.User, error)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.mockFindByEmail(ctx, email)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return m.mockFindByID(ctx, id)
}

type mockBusinessUnitRepo struct {
	repository.BusinessUnitRepository
	mockFindByID func(ctx context.Context, id uint) (*models.BusinessUnit, error)
}

func (m *mockBusinessUnitRepo) FindByID(ctx context.Context, id uint) (*models.BusinessUnit, error) {
	return m.mockFindByID(ctx, id)
}

// businessUnits answers lookups from a fixed set of units
func businessUnits(units ...models.BusinessUnit) *mockBusinessUnitRepo {
	return &mockBusinessUnitRepo{
		mockFindByID: func(ctx context.Context, id uint) (*models.BusinessUnit, error) {
			for _, bu := range units {
				if bu.ID == id {
					bu := bu
					return &bu, nil
				}
			}
			return nil, gorm.ErrRecordNotFound
		},
	}
}

// memSequence is an in-memory counter store that records the keys it was asked for
type memSequence struct {
	repository.SequenceRepository
	mu     sync.Mutex
	values map[string]int64
	keys   []string
	err    error
}

func newMemSequence() *memSequence {
	return &memSequence{values: make(map[string]int64)}
}

func (m *memSequence) NextValue(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	if m.err != nil {
		return 0, m.err
	}
	m.values[key]++
	return m.values[key], nil
}

func (m *memSequence) Reset(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values[key] = 0
	return nil
}

func (m *memSequence) Get(ctx context.Context, key string) (*models.SequenceCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.SequenceCounter{Key: key, Value: v}, nil
}

type mockTransactionRepo struct {
	repository.TransactionRepository
	mockFindByID func(ctx context.Context, id uint) (*models.Transaction, error)
	mockCreate   func(ctx context.Context, tx *models.Transaction) error
	mockUpdate   func(ctx context.Context, tx *models.Transaction) error
	mockDelete   func(ctx context.Context, id uint) error
	mockList     func(ctx context.Context, query *repository.TransactionQuery) ([]models.Transaction, int64, error)

	findCalls   int
	createCalls int
	updateCalls int
	deleteCalls int
	saved       *models.Transaction
}

// storedTransaction serves fresh copies of tx from FindByID
func storedTransaction(tx *models.Transaction) *mockTransactionRepo {
	return &mockTransactionRepo{
		mockFindByID: func(ctx context.Context, id uint) (*models.Transaction, error) {
			if id != tx.ID {
				return nil, gorm.ErrRecordNotFound
			}
			return tx.Clone(), nil
		},
	}
}

func (m *mockTransactionRepo) FindByID(ctx context.Context, id uint) (*models.Transaction, error) {
	m.findCalls++
	if m.mockFindByID == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return m.mockFindByID(ctx, id)
}

func (m *mockTransactionRepo) Create(ctx context.Context, tx *models.Transaction) error {
	m.createCalls++
	if m.mockCreate != nil {
		return m.mockCreate(ctx, tx)
	}
	tx.ID = 42
	m.saved = tx.Clone()
	return nil
}

func (m *mockTransactionRepo) Update(ctx context.Context, tx *models.Transaction) error {
	m.updateCalls++
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, tx)
	}
	m.saved = tx.Clone()
	return nil
}

func (m *mockTransactionRepo) Delete(ctx context.Context, id uint) error {
	m.deleteCalls++
	if m.mockDelete != nil {
		return m.mockDelete(ctx, id)
	}
	return nil
}

func (m *mockTransactionRepo) List(ctx context.Context, query *repository.TransactionQuery) ([]models.Transaction, int64, error) {
	return m.mockList(ctx, query)
}

type mockAuditRepo struct {
	repository.AuditRepository
	mu         sync.Mutex
	entries    []*models.AuditLog
	mockCreate func(ctx context.Context, entry *models.AuditLog) error
	mockList   func(ctx context.Context, query *repository.AuditQuery) ([]models.AuditLog, int64, error)
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) List(ctx context.Context, query *repository.AuditQuery) ([]models.AuditLog, int64, error) {
	return m.mockList(ctx, query)
}

func (m *mockAuditRepo) Entries() []*models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.AuditLog(nil), m.entries...)
}

type mockNotificationRepo struct {
	repository.NotificationRepository
	mu      sync.Mutex
	created []*models.Notification
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, n)
	return nil
}

var (
	ceo        = models.Actor{ID: 1, Role: models.RoleCEO, IPAddress: "10.0.0.1", UserAgent: "test"}
	admin      = models.Actor{ID: 2, Role: models.RoleAdmin}
	buManager  = models.Actor{ID: 3, Role: models.RoleBUManager, BusinessUnitID: 1}
	accountant = models.Actor{ID: 4, Role: models.RoleAccountant, BusinessUnitID: 1}
	staff      = models.Actor{ID: 5, Role: models.RoleStaff, BusinessUnitID: 1}
	outsider   = models.Actor{ID: 6, Role: models.RoleBUManager, BusinessUnitID: 2}

	headquarters = models.BusinessUnit{ID: 1, Code: "HQ", Name: "Headquarters"}
	branch       = models.BusinessUnit{ID: 2, Code: "BR", Name: "Branch"}

	fixedNow = time.Date(2024, 1, 20, 9, 30, 0, 0, time.UTC)
)

func transactionIn(status models.ApprovalStatus) *models.Transaction {
	tx := &models.Transaction{
		ID:              10,
		TransactionCode: "HQ_T0124_001",
		TransactionType: models.TransactionTypeIncome,
		TransactionDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Amount:          decimal.NewFromInt(100),
		ApprovalStatus:  status,
		PaymentStatus:   models.PaymentStatusUnpaid,
		BusinessUnitID:  1,
		CostAllocation:  models.CostAllocationDirect,
		CreatedBy:       staff.ID,
	}
	if status == models.ApprovalStatusApproved {
		tx.PaymentStatus = models.PaymentStatusPaid
	}
	return tx
}

type workflowFixture struct {
	svc           *TransactionService
	repo          *mockTransactionRepo
	audits        *mockAuditRepo
	notifications *mockNotificationRepo
	sequence      *memSequence
}

func newWorkflow(repo *mockTransactionRepo, autoApprove bool) *workflowFixture {
	if repo == nil {
		repo = &mockTransactionRepo{}
	}
	audits := &mockAuditRepo{}
	notifications := &mockNotificationRepo{}
	seq := newMemSequence()

	auditSvc := NewAuditService(audits, nil, false)
	auditSvc.now = func() time.Time { return fixedNow }
	codes := NewCodeGenerator(businessUnits(headquarters, branch), seq)
	codes.now = func() time.Time { return fixedNow }

	svc := NewTransactionService(repo, codes, auditSvc, NewNotificationService(notifications, nil), autoApprove)
	svc.now = func() time.Time { return fixedNow }

	return &workflowFixture{
		svc:           svc,
		repo:          repo,
		audits:        audits,
		notifications: notifications,
		sequence:      seq,
	}
}
