package entity

import (
	"time"
)

// Role values are stored directly on the user row.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the aggregate root for the user domain.
// Password holds a bcrypt hash. TOTPSecret and EncryptionKey are
// generated once at registration and never rotated by normal flows;
// EncryptionKey seals the user's draw numbers at rest.
type User struct {
	ID            string
	Email         string
	Password      string
	Firstname     string
	Lastname      string
	Phone         string
	Role          string
	TOTPSecret    string
	EncryptionKey []byte
	AvatarURL     string
	RegisteredOn  time.Time
	CurrentLogin  *time.Time
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
