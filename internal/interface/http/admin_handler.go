package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lottosix/lottery-api/internal/application"
	"github.com/lottosix/lottery-api/internal/interface/middleware"
	"github.com/lottosix/lottery-api/pkg/cryptobox"
	"github.com/lottosix/lottery-api/pkg/response"
)

type AdminHandler struct {
	Admin   *application.AdminService
	Lottery *application.LotteryService
	Users   *application.UserService
	Logger  *logrus.Logger
}

func NewAdminHandler(admin *application.AdminService, lottery *application.LotteryService, users *application.UserService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{Admin: admin, Lottery: lottery, Users: users, Logger: logger}
}

// PublishWinningDraw POST /api/admin/winning-draw
// Generates the winning draw for the next round, replacing any unplayed one.
func (h *AdminHandler) PublishWinningDraw(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserID)
	view, err := h.Lottery.PublishMasterDraw(c.Request.Context(), uid)
	if err != nil {
		h.Logger.WithError(err).Error("winning draw publish failed")
		response.Error[any](c, http.StatusInternalServerError, "could not publish winning draw", nil)
		return
	}
	response.Success(c, http.StatusCreated, view, "winning draw published", nil)
}

// GetWinningDraw GET /api/admin/winning-draw
func (h *AdminHandler) GetWinningDraw(c *gin.Context) {
	view, err := h.Lottery.ActiveMasterDraw(c.Request.Context())
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			response.Error[any](c, http.StatusNotFound, "no winning draw published", nil)
			return
		}
		if errors.Is(err, cryptobox.ErrIntegrity) {
			h.Logger.WithError(err).Error("winning draw decryption failed")
			response.Error[any](c, http.StatusInternalServerError, "winning draw failed integrity check", nil)
			return
		}
		response.Error[any](c, http.StatusInternalServerError, "could not read winning draw", nil)
		return
	}
	response.Success(c, http.StatusOK, view, "winning draw", nil)
}

// RunLottery POST /api/admin/run-lottery
func (h *AdminHandler) RunLottery(c *gin.Context) {
	result, err := h.Lottery.RunLottery(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Error("lottery run failed")
		status := http.StatusInternalServerError
		msg := "lottery run failed"
		if errors.Is(err, cryptobox.ErrIntegrity) {
			msg = "a stored draw failed integrity check, run aborted"
		}
		response.Error[any](c, status, msg, gin.H{"partial": result})
		return
	}

	msg := "lottery round complete"
	switch result.Outcome {
	case application.OutcomeNoActiveDraw:
		msg = "no winning draw has been published"
	case application.OutcomeNoEntries:
		msg = "no draws have been submitted"
	}
	response.Success(c, http.StatusOK, result, msg, nil)
}

// ListUsers GET /api/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.Admin.ListUsers()
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "could not list users", nil)
		return
	}
	response.Success(c, http.StatusOK, users, "registered users", nil)
}

// UserActivity GET /api/admin/users/activity
func (h *AdminHandler) UserActivity(c *gin.Context) {
	activity, err := h.Admin.UserActivity()
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "could not list user activity", nil)
		return
	}
	response.Success(c, http.StatusOK, activity, "user activity", nil)
}

// SearchUsers GET /api/admin/users/search?q=&size=
func (h *AdminHandler) SearchUsers(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "missing search query", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Users.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		h.Logger.WithError(err).Warn("user search failed")
		response.Error[any](c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", gin.H{"query": q})
}

// Logs GET /api/admin/logs
// The ten most recent security events, newest first.
func (h *AdminHandler) Logs(c *gin.Context) {
	n, _ := strconv.Atoi(c.DefaultQuery("n", "10"))
	logs, err := h.Admin.RecentLogs(n)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "could not read logs", nil)
		return
	}
	response.Success(c, http.StatusOK, logs, "recent security events", nil)
}
