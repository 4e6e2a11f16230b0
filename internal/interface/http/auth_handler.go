package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lottosix/lottery-api/config"
	"github.com/lottosix/lottery-api/internal/application"
	"github.com/lottosix/lottery-api/internal/interface/middleware"
	"github.com/lottosix/lottery-api/pkg/helpers"
	"github.com/lottosix/lottery-api/pkg/response"
	"github.com/lottosix/lottery-api/pkg/validation"
)

type AuthHandler struct {
	Svc     *application.AuthService
	Logger  *logrus.Logger
	Cfg     *config.Config
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		Svc:     svc,
		Logger:  logger,
		Cfg:     cfg,
		Cookies: helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
	}
}

// loginSID returns the pre-auth login session id, minting one on first
// contact. The failed-attempt counter is keyed by it.
func (h *AuthHandler) loginSID(c *gin.Context) string {
	if sid, err := c.Cookie("login_sid"); err == nil && sid != "" {
		return sid
	}
	sid := uuid.NewString()
	h.Cookies.SetLoginSession(c, sid, h.Cfg.AttemptsTTL)
	return sid
}

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,strongpwd"`
	Firstname string `json:"firstname" binding:"required"`
	Lastname  string `json:"lastname" binding:"required"`
	Phone     string `json:"phone" binding:"omitempty,phone"`
}

// Register POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	token, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Phone:     req.Phone,
	}, middleware.IPFromCtx(c))
	if err != nil {
		if errors.Is(err, application.ErrEmailTaken) {
			response.Error[any](c, http.StatusConflict, "email address already exists", nil)
			return
		}
		h.Logger.WithError(err).Error("register failed")
		response.Error[any](c, http.StatusInternalServerError, "registration failed", nil)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"setup_token": token},
		"account created, finish two-factor setup", nil)
}

// Setup2FA GET /api/setup-2fa?token=
// One shot: the token dies with this request whether or not the client
// ever renders the QR code.
func (h *AuthHandler) Setup2FA(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error[any](c, http.StatusBadRequest, "missing setup token", nil)
		return
	}
	data, err := h.Svc.ConsumeSetupToken(c.Request.Context(), token)
	if err != nil {
		response.Error[any](c, http.StatusNotFound, "setup token expired or already used", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"email":            data.Email,
		"provisioning_uri": data.URI,
	}, "scan the code with an authenticator app", nil)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Pin      string `json:"pin" binding:"required,len=6,numeric"`
}

// Login POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	sid := h.loginSID(c)
	res, err := h.Svc.Login(c.Request.Context(), sid, req.Email, req.Password, req.Pin, middleware.IPFromCtx(c))
	if err != nil {
		switch {
		case errors.Is(err, application.ErrLocked):
			response.Error[any](c, http.StatusLocked,
				"maximum login attempts exceeded, reset to try again", nil)
		case errors.Is(err, application.ErrInvalidCredentials):
			var meta any
			if res != nil {
				meta = gin.H{"attempts_remaining": res.AttemptsRemaining}
			}
			response.Error[any](c, http.StatusUnauthorized, "invalid credentials", meta)
		default:
			h.Logger.WithError(err).Error("login failed")
			response.Error[any](c, http.StatusInternalServerError, "login failed", nil)
		}
		return
	}

	h.Cookies.SetPair(c, res.Pair.AccessToken, res.Pair.AccessTokenExpiry,
		res.Pair.RefreshToken, res.Pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, gin.H{
		"id":        res.User.ID,
		"email":     res.User.Email,
		"firstname": res.User.Firstname,
		"role":      res.User.Role,
	}, "login successful", gin.H{
		"access_expires_at":  res.Pair.AccessTokenExpiry,
		"refresh_expires_at": res.Pair.RefreshTokenExpiry,
	})
}

// Reset POST /api/reset
// Zeroes the failed-attempt counter for this login session.
func (h *AuthHandler) Reset(c *gin.Context) {
	sid := h.loginSID(c)
	if err := h.Svc.ResetAttempts(c.Request.Context(), sid); err != nil {
		h.Logger.WithError(err).Warn("attempt reset failed")
		response.Error[any](c, http.StatusInternalServerError, "reset failed", nil)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"reset": true}, "login attempts reset", nil)
}

// Refresh POST /api/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie("refresh_token")
	if err != nil || refresh == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, err := h.Svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		response.Error[any](c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success[any](c, http.StatusOK, gin.H{"refreshed": true}, "token refreshed", gin.H{
		"access_expires_at":  pair.AccessTokenExpiry,
		"refresh_expires_at": pair.RefreshTokenExpiry,
	})
}

// Logout POST /api/logout (auth required)
func (h *AuthHandler) Logout(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserID)
	h.Svc.Logout(c.Request.Context(), uid, middleware.IPFromCtx(c))
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}
