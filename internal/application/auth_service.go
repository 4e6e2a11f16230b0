package application

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lottosix/lottery-api/internal/domain/entity"
	repo "github.com/lottosix/lottery-api/internal/domain/repository"
	"github.com/lottosix/lottery-api/pkg/cryptobox"
	"github.com/lottosix/lottery-api/pkg/helpers"
	"github.com/lottosix/lottery-api/pkg/mailer"
)

// AuthService owns the login state machine: registration with one-time
// 2FA enrollment, the three-factor login check, per-session failed
// attempt counting with lockout, logout and password changes.
type AuthService struct {
	Users  repo.UserRepository
	JWT    *helpers.JWTManager
	State  AuthStateStore
	Logger *logrus.Logger
	Audit  *Auditor
	Index  *UserService // ES indexing on registration; optional

	Pub         *helpers.RabbitPublisher
	MailEnabled bool

	AppName       string
	TOTPIssuer    string
	SetupTokenTTL time.Duration
	MaxAttempts   int
	AttemptsTTL   time.Duration
	SessionTTL    time.Duration
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func genToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

type RegisterInput struct {
	Email     string
	Password  string
	Firstname string
	Lastname  string
	Phone     string
}

// Register creates a user with a fresh TOTP secret and encryption key,
// both generated exactly once. It returns a one-time setup token the
// enrollment page exchanges for the provisioning URI.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, remoteIP string) (string, error) {
	if existing, err := s.Users.GetByEmail(in.Email); err == nil && existing != nil {
		return "", ErrEmailTaken
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return "", err
	}
	secret, err := helpers.NewTOTPSecret()
	if err != nil {
		return "", err
	}
	key, err := cryptobox.GenerateKey()
	if err != nil {
		return "", err
	}

	u := &entity.User{
		Email:         in.Email,
		Password:      hash,
		Firstname:     in.Firstname,
		Lastname:      in.Lastname,
		Phone:         in.Phone,
		Role:          entity.RoleUser,
		TOTPSecret:    secret,
		EncryptionKey: key,
		RegisteredOn:  time.Now(),
	}
	if err := s.Users.Create(u); err != nil {
		return "", err
	}
	s.Audit.Record(AuditRegistered, u, "", remoteIP, "")

	if s.Index != nil {
		_ = s.Index.IndexUser(ctx, u)
	}
	if s.Pub != nil && s.MailEnabled {
		job := mailer.EmailJob{To: u.Email, Template: mailer.TemplateWelcome, Data: map[string]any{
			"AppName":   s.AppName,
			"Firstname": u.Firstname,
			"Email":     u.Email,
		}}
		_ = s.Pub.PublishJSON(ctx, job)
	}

	token, err := genToken(32)
	if err != nil {
		return "", err
	}
	if err := s.State.PutSetupToken(ctx, token, u.Email, s.SetupTokenTTL); err != nil {
		return "", err
	}
	return token, nil
}

// EnrollmentData is what the 2FA setup page renders once: the account
// email and the otpauth URI for the QR code.
type EnrollmentData struct {
	Email string
	URI   string
}

// ConsumeSetupToken exchanges a one-time setup token for the enrollment
// data. The token is deleted in the same operation, so a second request
// can never see the secret again.
func (s *AuthService) ConsumeSetupToken(ctx context.Context, token string) (*EnrollmentData, error) {
	email, err := s.State.TakeSetupToken(ctx, token)
	if err != nil || email == "" {
		return nil, ErrNotFound
	}
	u, err := s.Users.GetByEmail(email)
	if err != nil || u == nil {
		return nil, ErrNotFound
	}
	return &EnrollmentData{
		Email: u.Email,
		URI:   helpers.ProvisioningURI(u.Email, u.TOTPSecret, s.TOTPIssuer),
	}, nil
}

// LoginResult carries the authenticated user and the remaining-attempt
// count when the login failed.
type LoginResult struct {
	User              *entity.User
	Pair              TokenPair
	AttemptsRemaining int
}

// Login runs the full check: email lookup, password, TOTP PIN. Any
// single failure is indistinguishable to the caller (uniform
// ErrInvalidCredentials) but audit-logged with the attempted email and
// origin. Failures are counted per login session id; at the threshold
// the session locks and credentials are no longer even examined until
// ResetAttempts.
func (s *AuthService) Login(ctx context.Context, sid, email, password, pin, remoteIP string) (*LoginResult, error) {
	count, _ := s.State.Attempts(ctx, sid)
	if count >= s.MaxAttempts {
		s.Audit.Record(AuditLoginLocked, nil, email, remoteIP, "submission while locked")
		return nil, ErrLocked
	}

	u, err := s.Users.GetByEmail(email)
	ok := err == nil && u != nil &&
		helpers.CompareHashAndPassword(u.Password, password) &&
		helpers.VerifyTOTP(u.TOTPSecret, pin, time.Now())

	if !ok {
		s.Audit.Record(AuditLoginFailed, nil, email, remoteIP, "")
		n, rErr := s.State.IncrAttempts(ctx, sid, s.AttemptsTTL)
		if rErr != nil {
			n = count + 1
		}
		if n >= s.MaxAttempts {
			return nil, ErrLocked
		}
		return &LoginResult{AttemptsRemaining: s.MaxAttempts - n}, ErrInvalidCredentials
	}

	_ = s.State.ResetAttempts(ctx, sid)

	u.LastLogin = u.CurrentLogin
	now := time.Now()
	u.CurrentLogin = &now
	if err := s.Users.UpdateLogins(u); err != nil {
		return nil, err
	}
	s.Audit.Record(AuditLoggedIn, u, "", remoteIP,
		fmt.Sprintf("current login %s, previous login %s", fmtLogin(u.CurrentLogin), fmtLogin(u.LastLogin)))

	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, Pair: pair}, nil
}

func fmtLogin(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(time.RFC3339)
}

// IssueTokens generates the cookie token pair and records the session
// server side.
func (s *AuthService) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, u.Role, sid)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		}
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID, u.Role, sid)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate refresh token failed")
		}
		return TokenPair{}, err
	}

	fields := map[string]any{
		"user_id":    u.ID,
		"email":      u.Email,
		"firstname":  u.Firstname,
		"role":       u.Role,
		"sid":        sid,
		"logged_in":  true,
		"created_at": nowRFC3339(),
	}
	if err := s.State.SaveSession(ctx, u.ID, fields, s.SessionTTL); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("session save failed")
	}

	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// ResetAttempts zeroes the failed-login counter for a login session,
// unlocking it.
func (s *AuthService) ResetAttempts(ctx context.Context, sid string) error {
	return s.State.ResetAttempts(ctx, sid)
}

// Logout drops the server-side session and audit-logs the event.
func (s *AuthService) Logout(ctx context.Context, userID, remoteIP string) {
	u, err := s.Users.GetByID(userID)
	if err == nil && u != nil {
		s.Audit.Record(AuditLoggedOut, u, "", remoteIP, "")
	}
	_ = s.State.DropSession(ctx, userID)
}

// Refresh rotates the token pair when the refresh token and server-side
// session still agree.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	u, err := s.Users.GetByID(claims.UserID)
	if err != nil || u == nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	data, sErr := s.State.GetSession(ctx, u.ID)
	if sErr != nil || len(data) == 0 || data["sid"] != claims.SessionID {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.IssueTokens(ctx, u)
}

// ChangePassword verifies the current password against the stored hash
// (never raw equality) and rejects a new password identical to the old
// one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, newPassword, remoteIP string) error {
	u, err := s.Users.GetByID(userID)
	if err != nil || u == nil {
		return ErrUserNotFound
	}
	if !helpers.CompareHashAndPassword(u.Password, current) {
		return ErrInvalidCredentials
	}
	if helpers.CompareHashAndPassword(u.Password, newPassword) {
		return ErrSamePassword
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Users.UpdatePassword(u.ID, hash); err != nil {
		return err
	}
	s.Audit.Record(AuditPasswordChanged, u, "", remoteIP, "")
	return nil
}
