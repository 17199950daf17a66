package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	User         UserRepository
	BusinessUnit BusinessUnitRepository
	Transaction  TransactionRepository
	Audit        AuditRepository
	Sequence     SequenceRepository
	Notification NotificationRepository
}

// NewRepositories creates all repository instances. Sequence defaults to the database
// store; callers may swap in the Redis store.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		BusinessUnit: NewBusinessUnitRepository(db),
		Transaction:  NewTransactionRepository(db),
		Audit:        NewAuditRepository(db),
		Sequence:     NewSequenceRepository(db),
		Notification: NewNotificationRepository(db),
	}
}
