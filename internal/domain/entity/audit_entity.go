package entity

import "time"

// AuditEntry is one security-relevant event: registration, login
// success/failure, logout, forbidden access. The admin log view reads
// these back newest-first.
type AuditEntry struct {
	ID        string
	UserID    string // empty when the actor is unknown (failed login)
	Email     string
	Role      string
	Action    string
	RemoteIP  string
	Detail    string
	CreatedAt time.Time
}
