package application

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lottosix/lottery-api/internal/domain/entity"
	repo "github.com/lottosix/lottery-api/internal/domain/repository"
)

// AdminService backs the admin dashboard: registered users, login
// activity and the recent security log.
type AdminService struct {
	Users  repo.UserRepository
	Audit  repo.AuditRepository
	Logger *logrus.Logger
}

// AdminUserView is one row of the registered-users table.
type AdminUserView struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Firstname    string    `json:"firstname"`
	Lastname     string    `json:"lastname"`
	Phone        string    `json:"phone"`
	Role         string    `json:"role"`
	RegisteredOn time.Time `json:"registered_on"`
}

// UserActivityView is one row of the user-activity table: who is
// logged in now and when they were last seen.
type UserActivityView struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	CurrentLogin *time.Time `json:"current_login,omitempty"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// ListUsers returns all non-admin accounts.
func (s *AdminService) ListUsers() ([]AdminUserView, error) {
	users, err := s.Users.ListByRole(entity.RoleUser)
	if err != nil {
		return nil, err
	}
	out := make([]AdminUserView, 0, len(users))
	for _, u := range users {
		out = append(out, AdminUserView{
			ID:           u.ID,
			Email:        u.Email,
			Firstname:    u.Firstname,
			Lastname:     u.Lastname,
			Phone:        u.Phone,
			Role:         u.Role,
			RegisteredOn: u.RegisteredOn,
		})
	}
	return out, nil
}

// UserActivity returns login timestamps for every account, admins
// included.
func (s *AdminService) UserActivity() ([]UserActivityView, error) {
	users, err := s.Users.ListAll()
	if err != nil {
		return nil, err
	}
	out := make([]UserActivityView, 0, len(users))
	for _, u := range users {
		out = append(out, UserActivityView{
			ID:           u.ID,
			Email:        u.Email,
			Role:         u.Role,
			CurrentLogin: u.CurrentLogin,
			LastLogin:    u.LastLogin,
		})
	}
	return out, nil
}

// LogView is one security log line for the admin page.
type LogView struct {
	Action    string    `json:"action"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	RemoteIP  string    `json:"remote_ip"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RecentLogs returns the n most recent security events, newest first.
func (s *AdminService) RecentLogs(n int) ([]LogView, error) {
	if n <= 0 {
		n = 10
	}
	entries, err := s.Audit.Latest(n)
	if err != nil {
		return nil, err
	}
	out := make([]LogView, 0, len(entries))
	for _, e := range entries {
		out = append(out, LogView{
			Action:    e.Action,
			Email:     e.Email,
			Role:      e.Role,
			RemoteIP:  e.RemoteIP,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}
	return out, nil
}
