package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lottosix/lottery-api/pkg/helpers"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(nullWriter{})
	return l
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

func newAuthFixture(t *testing.T) (*AuthService, *fakeUserRepo, *fakeAuthState, *fakeAuditRepo) {
	t.Helper()
	users := newFakeUserRepo()
	state := newFakeAuthState()
	audit := &fakeAuditRepo{}
	logger := testLogger()
	svc := &AuthService{
		Users:         users,
		JWT:           helpers.NewJWTManager("test-access", "test-refresh", time.Hour, 24*time.Hour),
		State:         state,
		Logger:        logger,
		Audit:         NewAuditor(logger, audit),
		AppName:       "LotteryWebApp",
		TOTPIssuer:    "LotteryWebApp",
		SetupTokenTTL: 10 * time.Minute,
		MaxAttempts:   3,
		AttemptsTTL:   time.Hour,
		SessionTTL:    24 * time.Hour,
	}
	return svc, users, state, audit
}

func register(t *testing.T, svc *AuthService, email, password string) string {
	t.Helper()
	token, err := svc.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  password,
		Firstname: "Ada",
		Lastname:  "Lovelace",
		Phone:     "0161-123-4567",
	}, "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	return token
}

func currentPIN(t *testing.T, svc *AuthService, email string) string {
	t.Helper()
	u, err := svc.Users.GetByEmail(email)
	require.NoError(t, err)
	require.NotNil(t, u)
	code, err := helpers.GenerateTOTP(u.TOTPSecret, time.Now())
	require.NoError(t, err)
	return code
}

func TestRegisterGeneratesSecretsOnce(t *testing.T) {
	svc, users, _, _ := newAuthFixture(t)
	register(t, svc, "ada@example.com", "correct horse battery")

	u, err := users.GetByEmail("ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)

	assert.NotEqual(t, "correct horse battery", u.Password, "password must be stored hashed")
	assert.True(t, helpers.CompareHashAndPassword(u.Password, "correct horse battery"))
	assert.Len(t, u.TOTPSecret, 32)
	assert.Len(t, u.EncryptionKey, 32)
	assert.Equal(t, "user", u.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	register(t, svc, "ada@example.com", "correct horse battery")

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "ada@example.com",
		Password: "something else entirely",
	}, "10.0.0.1")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSetupTokenIsSingleUse(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	token := register(t, svc, "ada@example.com", "correct horse battery")

	data, err := svc.ConsumeSetupToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", data.Email)
	assert.True(t, strings.HasPrefix(data.URI, "otpauth://totp/"))
	assert.Contains(t, data.URI, "issuer=LotteryWebApp")

	_, err = svc.ConsumeSetupToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConsumeSetupTokenUnknown(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	_, err := svc.ConsumeSetupToken(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoginSuccess(t *testing.T) {
	svc, users, _, audit := newAuthFixture(t)
	register(t, svc, "ada@example.com", "correct horse battery")

	res, err := svc.Login(context.Background(), "sid-1", "ada@example.com",
		"correct horse battery", currentPIN(t, svc, "ada@example.com"), "10.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, res.User)
	assert.NotEmpty(t, res.Pair.AccessToken)
	assert.NotEmpty(t, res.Pair.RefreshToken)

	u, _ := users.GetByEmail("ada@example.com")
	assert.NotNil(t, u.CurrentLogin)
	assert.Nil(t, u.LastLogin, "first login has no previous login")
	assert.Contains(t, audit.actions(), AuditLoggedIn)
}

func TestLoginRotatesLoginTimestamps(t *testing.T) {
	svc, users, _, _ := newAuthFixture(t)
	register(t, svc, "ada@example.com", "correct horse battery")

	_, err := svc.Login(context.Background(), "sid-1", "ada@example.com",
		"correct horse battery", currentPIN(t, svc, "ada@example.com"), "10.0.0.1")
	require.NoError(t, err)
	first, _ := users.GetByEmail("ada@example.com")

	_, err = svc.Login(context.Background(), "sid-1", "ada@example.com",
		"correct horse battery", currentPIN(t, svc, "ada@example.com"), "10.0.0.1")
	require.NoError(t, err)
	second, _ := users.GetByEmail("ada@example.com")

	require.NotNil(t, second.LastLogin)
	assert.Equal(t, first.CurrentLogin.Unix(), second.LastLogin.Unix())
}

func TestLoginUniformFailures(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	register(t, svc, "ada@example.com", "correct horse battery")
	pin := currentPIN(t, svc, "ada@example.com")

	cases := []struct {
		name                 string
		email, password, otp string
	}{
		{"unknown email", "nobody@example.com", "correct horse battery", pin},
		{"wrong password", "ada@example.com", "wrong password here!", pin},
		{"wrong pin", "ada@example.com", "correct horse battery", "000000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Fresh login session per case so the counter never locks.
			res, err := svc.Login(context.Background(), "sid-"+tc.name, tc.email, tc.password, tc.otp, "10.0.0.1")
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Equal(t, 2, res.AttemptsRemaining)
		})
	}
}

func TestLoginLockoutStateMachine(t *testing.T) {
	svc, _, _, audit := newAuthFixture(t)
	register(t, svc, "ada@example.com", "correct horse battery")
	ctx := context.Background()

	// Two failures leave the session open with attempts remaining.
	for i := 0; i < 2; i++ {
		res, err := svc.Login(ctx, "sid-lock", "ada@example.com", "bad", "000000", "10.0.0.1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, 2-i, res.AttemptsRemaining)
	}

	// Third failure hits the threshold.
	_, err := svc.Login(ctx, "sid-lock", "ada@example.com", "bad", "000000", "10.0.0.1")
	assert.ErrorIs(t, err, ErrLocked)

	// Locked: correct credentials no longer help.
	_, err = svc.Login(ctx, "sid-lock", "ada@example.com",
		"correct horse battery", currentPIN(t, svc, "ada@example.com"), "10.0.0.1")
	assert.ErrorIs(t, err, ErrLocked)
	assert.Contains(t, audit.actions(), AuditLoginLocked)

	// A different login session is unaffected.
	_, err = svc.Login(ctx, "sid-other", "ada@example.com",
		"correct horse battery", currentPIN(t, svc, "ada@example.com"), "10.0.0.1")
	assert.NoError(t, err)

	// Reset unlocks the locked session.
	require.NoError(t, svc.ResetAttempts(ctx, "sid-lock"))
	_, err = svc.Login(ctx, "sid-lock", "ada@example.com",
		"correct horse battery", currentPIN(t, svc, "ada@example.com"), "10.0.0.1")
	assert.NoError(t, err)
}

func TestLoginSuccessResetsCounter(t *testing.T) {
	svc, _, state, _ := newAuthFixture(t)
	register(t, svc, "ada@example.com", "correct horse battery")
	ctx := context.Background()

	_, err := svc.Login(ctx, "sid-1", "ada@example.com", "bad", "000000", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "sid-1", "ada@example.com",
		"correct horse battery", currentPIN(t, svc, "ada@example.com"), "10.0.0.1")
	require.NoError(t, err)

	n, _ := state.Attempts(ctx, "sid-1")
	assert.Zero(t, n)
}

func TestRefreshRejectsStaleSession(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	register(t, svc, "ada@example.com", "correct horse battery")
	ctx := context.Background()

	res, err := svc.Login(ctx, "sid-1", "ada@example.com",
		"correct horse battery", currentPIN(t, svc, "ada@example.com"), "10.0.0.1")
	require.NoError(t, err)
	oldRefresh := res.Pair.RefreshToken

	// A second login rotates the server-side session id.
	_, err = svc.Login(ctx, "sid-1", "ada@example.com",
		"correct horse battery", currentPIN(t, svc, "ada@example.com"), "10.0.0.1")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, oldRefresh)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesPair(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	register(t, svc, "ada@example.com", "correct horse battery")
	ctx := context.Background()

	res, err := svc.Login(ctx, "sid-1", "ada@example.com",
		"correct horse battery", currentPIN(t, svc, "ada@example.com"), "10.0.0.1")
	require.NoError(t, err)

	pair, err := svc.Refresh(ctx, res.Pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestLogoutDropsSession(t *testing.T) {
	svc, users, state, audit := newAuthFixture(t)
	register(t, svc, "ada@example.com", "correct horse battery")
	ctx := context.Background()

	_, err := svc.Login(ctx, "sid-1", "ada@example.com",
		"correct horse battery", currentPIN(t, svc, "ada@example.com"), "10.0.0.1")
	require.NoError(t, err)

	u, _ := users.GetByEmail("ada@example.com")
	svc.Logout(ctx, u.ID, "10.0.0.1")

	sess, _ := state.GetSession(ctx, u.ID)
	assert.Empty(t, sess)
	assert.Contains(t, audit.actions(), AuditLoggedOut)
}

func TestChangePassword(t *testing.T) {
	svc, users, _, _ := newAuthFixture(t)
	register(t, svc, "ada@example.com", "correct horse battery")
	ctx := context.Background()
	u, _ := users.GetByEmail("ada@example.com")

	t.Run("wrong current password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, u.ID, "not the password", "a whole new password", "10.0.0.1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("new equals old", func(t *testing.T) {
		err := svc.ChangePassword(ctx, u.ID, "correct horse battery", "correct horse battery", "10.0.0.1")
		assert.ErrorIs(t, err, ErrSamePassword)
	})

	t.Run("success", func(t *testing.T) {
		err := svc.ChangePassword(ctx, u.ID, "correct horse battery", "a whole new password", "10.0.0.1")
		require.NoError(t, err)
		after, _ := users.GetByID(u.ID)
		assert.True(t, helpers.CompareHashAndPassword(after.Password, "a whole new password"))
		assert.False(t, helpers.CompareHashAndPassword(after.Password, "correct horse battery"))
	})
}
