package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lottosix/lottery-api/internal/container"
	handlers "github.com/lottosix/lottery-api/internal/interface/http"
	"github.com/lottosix/lottery-api/internal/interface/middleware"
	"github.com/lottosix/lottery-api/pkg/helpers"
)

type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Pre-auth surface: tight IP+path rate limits, and an
	// authenticated user has no business here.
	registerLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	setupLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	refreshLimiter := middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByIP(), nil)

	anon := rg.Group("/")
	anon.Use(middleware.RequireAnonymous(container.GetAuthState(), m.JWT, container.GetAuditor()))
	{
		anon.POST("/register", registerLimiter, m.Handler.Register)
		anon.GET("/setup-2fa", setupLimiter, m.Handler.Setup2FA)
		anon.POST("/login", loginLimiter, m.Handler.Login)
		anon.POST("/reset", loginLimiter, m.Handler.Reset)
	}

	rg.POST("/refresh", refreshLimiter, m.Handler.Refresh)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetAuthState(), m.JWT))
	{
		auth.POST("/logout", m.Handler.Logout)
	}
}
