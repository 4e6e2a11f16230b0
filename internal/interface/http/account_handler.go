package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lottosix/lottery-api/internal/application"
	"github.com/lottosix/lottery-api/internal/interface/middleware"
	"github.com/lottosix/lottery-api/pkg/response"
	"github.com/lottosix/lottery-api/pkg/validation"
)

const maxAvatarBytes = 5 << 20

type AccountHandler struct {
	Users  *application.UserService
	Auth   *application.AuthService
	Logger *logrus.Logger
}

func NewAccountHandler(users *application.UserService, auth *application.AuthService, logger *logrus.Logger) *AccountHandler {
	return &AccountHandler{Users: users, Auth: auth, Logger: logger}
}

// GetAccount GET /api/account
func (h *AccountHandler) GetAccount(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserID)
	profile, err := h.Users.GetProfile(uid)
	if err != nil {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, profile, "account", nil)
}

type updateAccountRequest struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Phone     string `json:"phone" binding:"omitempty,phone"`
}

// UpdateAccount PUT /api/account
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	uid := c.GetString(middleware.CtxUserID)
	profile, err := h.Users.UpdateProfile(c.Request.Context(), uid, application.UpdateProfileInput{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Phone:     req.Phone,
	})
	if err != nil {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, profile, "account updated", nil)
}

// UploadAvatar POST /api/account/avatar (multipart form, field "avatar")
func (h *AccountHandler) UploadAvatar(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserID)

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "missing avatar file", nil)
		return
	}
	if fileHeader.Size > maxAvatarBytes {
		response.Error[any](c, http.StatusRequestEntityTooLarge, "avatar too large", nil)
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.Error[any](c, http.StatusBadRequest, "avatar must be an image", nil)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "unreadable avatar file", nil)
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.Users.UploadAvatar(c.Request.Context(), uid, f, fileHeader.Filename, contentType)
	if err != nil {
		h.Logger.WithError(err).WithField("user_id", uid).Error("avatar upload failed")
		response.Error[any](c, http.StatusInternalServerError, "avatar upload failed", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"avatar_url": url}, "avatar updated", nil)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,strongpwd"`
}

// ChangePassword PUT /api/password
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	uid := c.GetString(middleware.CtxUserID)
	err := h.Auth.ChangePassword(c.Request.Context(), uid, req.CurrentPassword, req.NewPassword, middleware.IPFromCtx(c))
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidCredentials):
			response.Error[any](c, http.StatusUnauthorized, "current password is incorrect", nil)
		case errors.Is(err, application.ErrSamePassword):
			response.Error[any](c, http.StatusBadRequest, "new password cannot be same as previous", nil)
		default:
			h.Logger.WithError(err).Error("password change failed")
			response.Error[any](c, http.StatusInternalServerError, "password change failed", nil)
		}
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"changed": true}, "password changed", nil)
}
