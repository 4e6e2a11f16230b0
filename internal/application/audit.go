package application

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lottosix/lottery-api/internal/domain/entity"
	repo "github.com/lottosix/lottery-api/internal/domain/repository"
)

// Audit actions recorded for the admin log view.
const (
	AuditRegistered      = "registered"
	AuditLoginFailed     = "login_failed"
	AuditLoginLocked     = "login_locked"
	AuditLoggedIn        = "logged_in"
	AuditLoggedOut       = "logged_out"
	AuditPasswordChanged = "password_changed"
	AuditForbidden       = "forbidden_access"
)

// Auditor emits warning-level security events to the structured log and
// persists them so the admin can read the most recent entries back.
type Auditor struct {
	Logger *logrus.Logger
	Repo   repo.AuditRepository
}

func NewAuditor(logger *logrus.Logger, repo repo.AuditRepository) *Auditor {
	return &Auditor{Logger: logger, Repo: repo}
}

// Record logs and stores one event. actor may be nil when the subject
// is unknown (failed login for a non-existent email).
func (a *Auditor) Record(action string, actor *entity.User, email, remoteIP, detail string) {
	if a == nil {
		return
	}
	entry := &entity.AuditEntry{
		Email:    email,
		Action:   action,
		RemoteIP: remoteIP,
		Detail:   detail,
	}
	if actor != nil {
		entry.UserID = actor.ID
		entry.Email = actor.Email
		entry.Role = actor.Role
	}

	if a.Logger != nil {
		a.Logger.WithFields(logrus.Fields{
			"action":    action,
			"email":     entry.Email,
			"user_id":   entry.UserID,
			"role":      entry.Role,
			"remote_ip": remoteIP,
			"detail":    detail,
			"time":      time.Now().Format(time.RFC3339),
		}).Warn("audit")
	}
	if a.Repo != nil {
		if err := a.Repo.Insert(entry); err != nil && a.Logger != nil {
			a.Logger.WithError(err).Warn("audit insert failed")
		}
	}
}
