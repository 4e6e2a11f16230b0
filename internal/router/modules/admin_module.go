package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lottosix/lottery-api/internal/container"
	"github.com/lottosix/lottery-api/internal/domain/entity"
	handlers "github.com/lottosix/lottery-api/internal/interface/http"
	"github.com/lottosix/lottery-api/internal/interface/middleware"
	"github.com/lottosix/lottery-api/pkg/helpers"
)

type AdminModule struct {
	Handler *handlers.AdminHandler
	JWT     *helpers.JWTManager
}

func NewAdminModule(h *handlers.AdminHandler, jwt *helpers.JWTManager) *AdminModule {
	return &AdminModule{Handler: h, JWT: jwt}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(middleware.Auth(container.GetAuthState(), m.JWT))
	admin.Use(middleware.RequireRole(entity.RoleAdmin, container.GetAuditor()))
	admin.Use(middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByUserID(), middleware.AllowPrivateIP()))
	{
		admin.POST("/winning-draw", m.Handler.PublishWinningDraw)
		admin.GET("/winning-draw", m.Handler.GetWinningDraw)
		admin.POST("/run-lottery", m.Handler.RunLottery)
		admin.GET("/users", m.Handler.ListUsers)
		admin.GET("/users/activity", m.Handler.UserActivity)
		admin.GET("/users/search", m.Handler.SearchUsers)
		admin.GET("/logs", m.Handler.Logs)
	}
}
