package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lottosix/lottery-api/internal/application"
)

func attemptsKey(sid string) string   { return "login:attempts:" + sid }
func setupKey(token string) string    { return "2fa:setup:" + token }
func sessionKey(userID string) string { return "user:session:" + userID }

// AuthState is the Redis-backed login state store.
type AuthState struct {
	rdb *redis.Client
}

func NewAuthState(rdb *redis.Client) *AuthState {
	return &AuthState{rdb: rdb}
}

func (s *AuthState) Attempts(ctx context.Context, sid string) (int, error) {
	n, err := s.rdb.Get(ctx, attemptsKey(sid)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (s *AuthState) IncrAttempts(ctx context.Context, sid string, ttl time.Duration) (int, error) {
	n, err := s.rdb.Incr(ctx, attemptsKey(sid)).Result()
	if err != nil {
		return 0, err
	}
	s.rdb.Expire(ctx, attemptsKey(sid), ttl)
	return int(n), nil
}

func (s *AuthState) ResetAttempts(ctx context.Context, sid string) error {
	return s.rdb.Del(ctx, attemptsKey(sid)).Err()
}

func (s *AuthState) PutSetupToken(ctx context.Context, token, email string, ttl time.Duration) error {
	return s.rdb.Set(ctx, setupKey(token), email, ttl).Err()
}

func (s *AuthState) TakeSetupToken(ctx context.Context, token string) (string, error) {
	// GETDEL makes the token single-use even under concurrent requests.
	email, err := s.rdb.GetDel(ctx, setupKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return email, err
}

func (s *AuthState) SaveSession(ctx context.Context, userID string, fields map[string]any, ttl time.Duration) error {
	key := sessionKey(userID)
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *AuthState) GetSession(ctx context.Context, userID string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, sessionKey(userID)).Result()
}

func (s *AuthState) DropSession(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, sessionKey(userID)).Err()
}

var _ application.AuthStateStore = (*AuthState)(nil)
