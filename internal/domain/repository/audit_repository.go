package repository

import "github.com/lottosix/lottery-api/internal/domain/entity"

// AuditRepository persists security audit events and serves the admin
// log view.
type AuditRepository interface {
	Insert(e *entity.AuditEntry) error
	// Latest returns the most recent n entries, newest first.
	Latest(n int) ([]*entity.AuditEntry, error)
}
