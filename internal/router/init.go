package router

import (
	"github.com/lottosix/lottery-api/internal/application"
	"github.com/lottosix/lottery-api/internal/container"
	pginfra "github.com/lottosix/lottery-api/internal/infrastructure/postgres"
	handlers "github.com/lottosix/lottery-api/internal/interface/http"
	"github.com/lottosix/lottery-api/internal/router/modules"
)

// InitModules constructs the repositories, services and handlers from
// the container singletons and registers every feature module.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()

	userRepo := pginfra.NewUserRepository(pool)
	drawRepo := pginfra.NewDrawRepository(pool)
	auditRepo := pginfra.NewAuditRepository(pool)

	auditor := application.NewAuditor(logger, auditRepo)
	container.SetAuditor(auditor)

	userSvc := &application.UserService{
		Users:        userRepo,
		GCS:          container.GetGCS(),
		GCSBucket:    cfg.GCSBucket,
		Logger:       logger,
		ES:           container.GetES(),
		ESUsersIndex: cfg.ESUsersIndex,
	}

	authSvc := &application.AuthService{
		Users:         userRepo,
		JWT:           container.GetJWT(),
		State:         container.GetAuthState(),
		Logger:        logger,
		Audit:         auditor,
		Index:         userSvc,
		Pub:           container.GetRabbitPub(),
		MailEnabled:   cfg.MailSendEnabled,
		AppName:       cfg.AppName,
		TOTPIssuer:    cfg.TOTPIssuer,
		SetupTokenTTL: cfg.SetupTokenTTL,
		MaxAttempts:   cfg.LoginAttempts,
		AttemptsTTL:   cfg.AttemptsTTL,
		SessionTTL:    cfg.SessionTTL,
	}

	lotterySvc := &application.LotteryService{
		Draws:       drawRepo,
		Users:       userRepo,
		Logger:      logger,
		Pub:         container.GetRabbitPub(),
		MailEnabled: cfg.MailSendEnabled,
	}

	adminSvc := &application.AdminService{
		Users:  userRepo,
		Audit:  auditRepo,
		Logger: logger,
	}

	authHandler := handlers.NewAuthHandler(authSvc, logger, cfg)
	accountHandler := handlers.NewAccountHandler(userSvc, authSvc, logger)
	lotteryHandler := handlers.NewLotteryHandler(lotterySvc, logger)
	adminHandler := handlers.NewAdminHandler(adminSvc, lotterySvc, userSvc, logger)

	r.Add(modules.NewAuthModule(authHandler, container.GetJWT()))
	r.Add(modules.NewAccountModule(accountHandler, container.GetJWT()))
	r.Add(modules.NewLotteryModule(lotteryHandler, container.GetJWT()))
	r.Add(modules.NewAdminModule(adminHandler, container.GetJWT()))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
