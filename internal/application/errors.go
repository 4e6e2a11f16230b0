package application

import "errors"

// Credential and authorization failures are unified on purpose: the
// caller can never tell whether the email, password or PIN was wrong.
// The specific cause is audit-logged server side.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLocked             = errors.New("login attempts exceeded")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email address already exists")
	ErrInvalidDraw        = errors.New("invalid draw submission")
	ErrSamePassword       = errors.New("new password cannot be same as previous")
	ErrNotFound           = errors.New("not found")
)
