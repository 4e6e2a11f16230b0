package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lottosix/lottery-api/internal/container"
	handlers "github.com/lottosix/lottery-api/internal/interface/http"
	"github.com/lottosix/lottery-api/internal/interface/middleware"
	"github.com/lottosix/lottery-api/pkg/helpers"
)

type AccountModule struct {
	Handler *handlers.AccountHandler
	JWT     *helpers.JWTManager
}

func NewAccountModule(h *handlers.AccountHandler, jwt *helpers.JWTManager) *AccountModule {
	return &AccountModule{Handler: h, JWT: jwt}
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetAuthState(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("/account", m.Handler.GetAccount)
		auth.PUT("/account", m.Handler.UpdateAccount)
		auth.POST("/account/avatar", m.Handler.UploadAvatar)
		auth.PUT("/password", m.Handler.ChangePassword)
	}
}
