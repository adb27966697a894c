package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/wellness-auth/internal/application"
	"github.com/oksasatya/wellness-auth/internal/container"
	handlers "github.com/oksasatya/wellness-auth/internal/interface/http"
	"github.com/oksasatya/wellness-auth/internal/router/modules"
	tpl "github.com/oksasatya/wellness-auth/pkg/mailer/templates"
)

type UserModuleDeps struct {
	Auth     *application.Service
	Recovery *application.RecoveryService
}

func buildUserDeps() UserModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	repo := container.GetUserRepo()
	hasher := container.GetHasher()
	clock := application.SystemClock{}
	audit := container.GetAuditor()

	auth := application.NewService(repo, hasher, container.GetJWT(), clock, logger, audit, cfg.StoreTimeout)

	otp := application.NewOTPManager(repo, clock, cfg.OTPTTL, cfg.StoreTimeout)
	tokens := application.NewResetTokenManager(repo, hasher, clock, cfg.ResetTokenTTL, cfg.StoreTimeout)
	recovery := application.NewRecoveryService(repo, otp, tokens, container.GetNotifier(), clock, logger, audit,
		tpl.Brand{AppName: cfg.AppName, CompanyName: cfg.CompanyName, SupportURL: cfg.SupportURL},
		cfg.StoreTimeout, cfg.DeliveryTimeout)

	return UserModuleDeps{Auth: auth, Recovery: recovery}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	deps := buildUserDeps()

	limit := modules.LimitConfig{Max: cfg.RateLimitMax, Window: cfg.RateLimitWindow, Logger: logger}
	if cfg.RateLimitEnabled {
		limit.RDB = container.GetRedis()
	}
	r.Add(modules.NewUserModule(
		handlers.NewAuthHandler(deps.Auth, logger),
		handlers.NewRecoveryHandler(deps.Recovery, logger),
		deps.Auth,
		limit,
	))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}

	r.Engine.GET("/healthz", healthz)
}

func healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"status": "ok"}
	code := http.StatusOK
	if pool := container.GetPGPool(); pool != nil {
		if err := pool.Ping(ctx); err != nil {
			status["status"], status["postgres"] = "degraded", "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	if rdb := container.GetRedis(); rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = "unreachable"
		}
	}
	c.JSON(code, status)
}
