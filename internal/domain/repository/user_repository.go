package repository

import "github.com/lottosix/lottery-api/internal/domain/entity"

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(u *entity.User) error
	GetByID(id string) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	Update(u *entity.User) error
	// UpdateLogins persists the login timestamp rotation done on a
	// successful login.
	UpdateLogins(u *entity.User) error
	UpdatePassword(id, hash string) error
	// ListByRole returns users with the given role; ListAll returns
	// everyone including admins (user-activity view).
	ListByRole(role string) ([]*entity.User, error)
	ListAll() ([]*entity.User, error)
}
