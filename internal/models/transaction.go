package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a transaction
type TransactionType string

// Transaction type constants
const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
	TransactionTypeLoan    TransactionType = "LOAN"
)

// ParseTransactionType normalizes a type name; ok is false for unknown types
func ParseTransactionType(s string) (TransactionType, bool) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := t.CodePrefix()
	return t, ok
}

// CodePrefix returns the letter used in transaction codes for t
func (t TransactionType) CodePrefix() (string, bool) {
	switch t {
	case TransactionTypeIncome:
		return "T", true
	case TransactionTypeExpense:
		return "C", true
	case TransactionTypeLoan:
		return "V", true
	}
	return "", false
}

// ApprovalStatus is the approval workflow state of a transaction
type ApprovalStatus string

// Approval status constants
const (
	ApprovalStatusDraft     ApprovalStatus = "DRAFT"
	ApprovalStatusPending   ApprovalStatus = "PENDING"
	ApprovalStatusApproved  ApprovalStatus = "APPROVED"
	ApprovalStatusRejected  ApprovalStatus = "REJECTED"
	ApprovalStatusCancelled ApprovalStatus = "CANCELLED"
)

// PaymentStatus tracks settlement of a transaction
type PaymentStatus string

// Payment status constants
const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

// CostAllocation tells whether the amount belongs to one business unit or is split
type CostAllocation string

// Cost allocation constants
const (
	CostAllocationDirect   CostAllocation = "DIRECT"
	CostAllocationIndirect CostAllocation = "INDIRECT"
)

// Transaction is an income, expense or loan entry of a business unit
type Transaction struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	TransactionCode string          `gorm:"size:32;uniqueIndex;not null" json:"transaction_code"`
	TransactionType TransactionType `gorm:"size:16;not null;index" json:"transaction_type"`
	TransactionDate time.Time       `gorm:"type:date;not null;index" json:"transaction_date"`
	Amount          decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	Description     *string         `gorm:"type:text" json:"description"`
	ApprovalStatus  ApprovalStatus  `gorm:"size:16;not null;index" json:"approval_status"`
	PaymentStatus   PaymentStatus   `gorm:"size:16;not null;index" json:"payment_status"`
	BusinessUnitID  uint            `gorm:"not null;index" json:"business_unit_id"`
	CostAllocation  CostAllocation  `gorm:"size:16;not null;default:DIRECT" json:"cost_allocation"`
	ProjectID       *uint           `gorm:"index" json:"project_id"`
	CategoryID      *uint           `gorm:"index" json:"category_id"`
	PartnerID       *uint           `gorm:"index" json:"partner_id"`
	RejectionReason *string         `gorm:"type:text" json:"rejection_reason"`
	ApprovedBy      *uint           `json:"approved_by"`
	ApprovedAt      *time.Time      `json:"approved_at"`
	CreatedBy       uint            `gorm:"not null;index" json:"created_by"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Transaction
func (Transaction) TableName() string {
	return "transactions"
}

// IsApproved returns true if the transaction has been approved
func (t *Transaction) IsApproved() bool {
	return t.ApprovalStatus == ApprovalStatusApproved
}

// MaySubmit returns true if the transaction can be sent for approval
func (t *Transaction) MaySubmit() bool {
	return t.ApprovalStatus == ApprovalStatusDraft
}

// MayApprove returns true if the transaction can be approved
func (t *Transaction) MayApprove() bool {
	switch t.ApprovalStatus {
	case ApprovalStatusDraft, ApprovalStatusPending, ApprovalStatusRejected:
		return true
	}
	return false
}

// MayReject returns true if the transaction can be rejected
func (t *Transaction) MayReject() bool {
	switch t.ApprovalStatus {
	case ApprovalStatusDraft, ApprovalStatusPending, ApprovalStatusApproved:
		return true
	}
	return false
}

// MayCancel returns true if the transaction can be cancelled
func (t *Transaction) MayCancel() bool {
	return t.ApprovalStatus != ApprovalStatusCancelled
}

// Clone returns a copy that shares no pointers with t
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.Description = cloneString(t.Description)
	c.RejectionReason = cloneString(t.RejectionReason)
	c.ProjectID = cloneUint(t.ProjectID)
	c.CategoryID = cloneUint(t.CategoryID)
	c.PartnerID = cloneUint(t.PartnerID)
	c.ApprovedBy = cloneUint(t.ApprovedBy)
	if t.ApprovedAt != nil {
		at := *t.ApprovedAt
		c.ApprovedAt = &at
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneUint(u *uint) *uint {
	if u == nil {
		return nil
	}
	v := *u
	return &v
}
