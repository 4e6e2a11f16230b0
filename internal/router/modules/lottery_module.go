package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lottosix/lottery-api/internal/container"
	handlers "github.com/lottosix/lottery-api/internal/interface/http"
	"github.com/lottosix/lottery-api/internal/interface/middleware"
	"github.com/lottosix/lottery-api/pkg/helpers"
)

type LotteryModule struct {
	Handler *handlers.LotteryHandler
	JWT     *helpers.JWTManager
}

func NewLotteryModule(h *handlers.LotteryHandler, jwt *helpers.JWTManager) *LotteryModule {
	return &LotteryModule{Handler: h, JWT: jwt}
}

func (m *LotteryModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetAuthState(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/lottery/draws", m.Handler.SubmitDraw)
		auth.GET("/lottery/draws", m.Handler.ListDraws)
		auth.DELETE("/lottery/draws/played", m.Handler.DeletePlayed)
	}
}
