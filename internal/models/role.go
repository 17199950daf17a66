package models

import "strings"

// Role is a user's authorization role. Permission questions are asked through its
// capability methods instead of comparing role strings at call sites.
type Role string

// Role constants
const (
	RoleCEO        Role = "CEO"
	RoleAdmin      Role = "ADMIN"
	RoleBUManager  Role = "BU_MANAGER"
	RoleAccountant Role = "ACCOUNTANT"
	RoleStaff      Role = "STAFF"
)

// ParseRole normalizes a role name ("bu manager", "Bu-Manager", "BU_MANAGER").
// Unknown names yield the empty role, which has no capabilities.
func ParseRole(s string) Role {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	r := Role(normalized)
	if r.Valid() {
		return r
	}
	return ""
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleCEO, RoleAdmin, RoleBUManager, RoleAccountant, RoleStaff:
		return true
	}
	return false
}

// IsElevated reports whether r is CEO or Admin
func (r Role) IsElevated() bool {
	return r == RoleCEO || r == RoleAdmin
}

// CanEditApproved reports whether r may edit, delete, reject or cancel an approved transaction
func (r Role) CanEditApproved() bool {
	return r.IsElevated()
}

// CanApprove reports whether r may approve or reject transactions
func (r Role) CanApprove() bool {
	return r.IsElevated() || r == RoleBUManager
}

// CanManageTransactions reports whether r may edit transactions created by someone else
func (r Role) CanManageTransactions() bool {
	return r.IsElevated() || r == RoleBUManager || r == RoleAccountant
}

// SeesAllBusinessUnits reports whether r is exempt from business-unit scoping
func (r Role) SeesAllBusinessUnits() bool {
	return r.IsElevated()
}

// CanResetSequences reports whether r may reset transaction code counters
func (r Role) CanResetSequences() bool {
	return r == RoleAdmin
}

// CanViewAudit reports whether r may read the audit trail
func (r Role) CanViewAudit() bool {
	return r.IsElevated() || r == RoleBUManager || r == RoleAccountant
}

// Actor is the authenticated caller of a workflow operation, as verified by the auth middleware.
type Actor struct {
	ID             uint
	Role           Role
	BusinessUnitID uint
	IPAddress      string
	UserAgent      string
}

// Authenticated reports whether the actor carries an identity and a known role
func (a Actor) Authenticated() bool {
	return a.ID != 0 && a.Role.Valid()
}

// CanAccessBusinessUnit reports whether the actor may see data of the given business unit
func (a Actor) CanAccessBusinessUnit(businessUnitID uint) bool {
	if a.Role.SeesAllBusinessUnits() {
		return true
	}
	return a.BusinessUnitID != 0 && a.BusinessUnitID == businessUnitID
}
