package application

import (
	"context"
	"time"
)

// AuthStateStore holds the short-lived login state: failed-attempt
// counters keyed by login session id, one-time 2FA setup tokens, and
// the server-side session hash a token pair is bound to. Backed by
// Redis in production.
type AuthStateStore interface {
	Attempts(ctx context.Context, sid string) (int, error)
	// IncrAttempts bumps the counter and refreshes its TTL, returning
	// the new count.
	IncrAttempts(ctx context.Context, sid string, ttl time.Duration) (int, error)
	ResetAttempts(ctx context.Context, sid string) error

	PutSetupToken(ctx context.Context, token, email string, ttl time.Duration) error
	// TakeSetupToken returns the email bound to the token and deletes
	// it in the same call; a second take returns "".
	TakeSetupToken(ctx context.Context, token string) (string, error)

	SaveSession(ctx context.Context, userID string, fields map[string]any, ttl time.Duration) error
	GetSession(ctx context.Context, userID string) (map[string]string, error)
	DropSession(ctx context.Context, userID string) error
}
