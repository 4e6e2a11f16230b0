package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lottosix/lottery-api/internal/application"
	"github.com/lottosix/lottery-api/internal/interface/middleware"
	"github.com/lottosix/lottery-api/pkg/cryptobox"
	"github.com/lottosix/lottery-api/pkg/response"
	"github.com/lottosix/lottery-api/pkg/validation"
)

type LotteryHandler struct {
	Svc    *application.LotteryService
	Logger *logrus.Logger
}

func NewLotteryHandler(svc *application.LotteryService, logger *logrus.Logger) *LotteryHandler {
	return &LotteryHandler{Svc: svc, Logger: logger}
}

type submitDrawRequest struct {
	Numbers []int `json:"numbers" binding:"required,len=6"`
}

// SubmitDraw POST /api/lottery/draws
func (h *LotteryHandler) SubmitDraw(c *gin.Context) {
	var req submitDrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	uid := c.GetString(middleware.CtxUserID)
	canonical, err := h.Svc.SubmitDraw(c.Request.Context(), uid, req.Numbers)
	if err != nil {
		if errors.Is(err, application.ErrInvalidDraw) {
			response.Error[any](c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		h.Logger.WithError(err).Error("draw submission failed")
		response.Error[any](c, http.StatusInternalServerError, "draw submission failed", nil)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"numbers": canonical}, "draw submitted", nil)
}

// ListDraws GET /api/lottery/draws?played=true|false
func (h *LotteryHandler) ListDraws(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserID)
	played := c.Query("played") == "true"

	var (
		views []application.DrawView
		err   error
	)
	if played {
		views, err = h.Svc.PlayedDraws(c.Request.Context(), uid)
	} else {
		views, err = h.Svc.PlayableDraws(c.Request.Context(), uid)
	}
	if err != nil {
		if errors.Is(err, cryptobox.ErrIntegrity) {
			h.Logger.WithError(err).WithField("user_id", uid).Error("draw decryption failed")
			response.Error[any](c, http.StatusInternalServerError, "stored draw failed integrity check", nil)
			return
		}
		response.Error[any](c, http.StatusInternalServerError, "could not list draws", nil)
		return
	}
	response.Success(c, http.StatusOK, views, "draws", gin.H{"played": played})
}

// DeletePlayed DELETE /api/lottery/draws/played
// "Play again": clears the user's results so new entries can go in.
func (h *LotteryHandler) DeletePlayed(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserID)
	n, err := h.Svc.PlayAgain(c.Request.Context(), uid)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "could not clear played draws", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": n}, "played draws cleared", nil)
}
