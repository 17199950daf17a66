package models

import (
	"time"

	"github.com/sjperalta/finops-api/pkg/changes"
)

// AuditAction enumerates audited mutations
type AuditAction string

// Audit action constants
const (
	AuditActionCreate  AuditAction = "CREATE"
	AuditActionUpdate  AuditAction = "UPDATE"
	AuditActionDelete  AuditAction = "DELETE"
	AuditActionApprove AuditAction = "APPROVE"
	AuditActionReject  AuditAction = "REJECT"
	AuditActionCancel  AuditAction = "CANCEL"
	AuditActionLogin   AuditAction = "LOGIN"
	AuditActionLogout  AuditAction = "LOGOUT"
)

// Valid reports whether a is a known action
func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionCreate, AuditActionUpdate, AuditActionDelete, AuditActionApprove,
		AuditActionReject, AuditActionCancel, AuditActionLogin, AuditActionLogout:
		return true
	}
	return false
}

// AuditLog is an immutable record of one mutation. RecordID is a loose reference,
// not a foreign key, so entries outlive deleted records. Entries without a
// BusinessUnitID are visible to roles that see all units only.
type AuditLog struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	Entity         string           `gorm:"column:table_name;size:64;not null;index:idx_audit_logs_record" json:"table_name"`
	RecordID       string           `gorm:"size:64;not null;index:idx_audit_logs_record" json:"record_id"`
	Action         AuditAction      `gorm:"size:16;not null;index" json:"action"`
	UserID         uint             `gorm:"not null;index" json:"user_id"`
	BusinessUnitID *uint            `gorm:"index" json:"business_unit_id"`
	OldValues      changes.Snapshot `gorm:"type:jsonb" json:"old_values"`
	NewValues      changes.Snapshot `gorm:"type:jsonb" json:"new_values"`
	Changes        changes.Set      `gorm:"type:jsonb" json:"changes"`
	Reason         *string          `gorm:"type:text" json:"reason"`
	IPAddress      string           `gorm:"size:45" json:"ip_address"`
	UserAgent      string           `gorm:"size:255" json:"user_agent"`
	CreatedAt      time.Time        `gorm:"index" json:"created_at"`

	// Associations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}
