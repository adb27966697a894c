package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/wellness-auth/config"
	"github.com/oksasatya/wellness-auth/internal/application"
	"github.com/oksasatya/wellness-auth/internal/container"
	auditinfra "github.com/oksasatya/wellness-auth/internal/infrastructure/audit"
	"github.com/oksasatya/wellness-auth/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/wellness-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/wellness-auth/internal/interface/middleware"
	"github.com/oksasatya/wellness-auth/internal/router"
	"github.com/oksasatya/wellness-auth/pkg/helpers"
	"github.com/oksasatya/wellness-auth/pkg/mailer"
	"github.com/oksasatya/wellness-auth/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	if cfg.InsecureJWTSecret() {
		logger.Fatalf("JWT_SECRET must be set when APP_ENV=%s", cfg.Env)
	}
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	container.SetConfig(cfg)
	container.SetLogger(logger)

	// Credential store
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory store; accounts are lost on restart")
		container.SetUserRepo(memory.NewUserRepository())
	default:
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			logger.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			logger.Fatalf("migration failed: %v", err)
		}
		container.SetPGPool(pool)
		container.SetUserRepo(pginfra.NewUserRepository(pool))
	}

	// Redis backs the optional rate limiter only
	if cfg.RateLimitEnabled {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		if err := helpers.PingRedis(ctx, rdb); err != nil {
			logger.WithError(err).Warn("redis unreachable; rate limiter will fail open")
		}
		container.SetRedis(rdb)
	}

	container.SetJWT(helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.AccessTTL))
	container.SetHasher(helpers.NewBcryptHasher(cfg.BcryptCost, cfg.HashWorkers))

	notifier, closeNotifier := buildNotifier(cfg, logger)
	defer closeNotifier()
	container.SetNotifier(notifier)
	auditor, closeAuditor := buildAuditor(ctx, cfg, logger)
	container.SetAuditor(auditor)

	// Gin engine and global middleware
	r := gin.New()
	if err := r.SetTrustedProxies(nil); err != nil {
		logger.WithError(err).Warn("set trusted proxies")
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP(cfg.TrustProxyHeaders))
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled {
		r.Use(gin.Logger())
	}

	// Registry: auto-register modules using container
	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
		return
	}
	closeAuditor(ctxShutdown)
	logger.Info("server exited properly")
}

// buildNotifier picks the delivery channel for recovery emails. The returned
// func releases any broker connection.
func buildNotifier(cfg *config.Config, logger *logrus.Logger) (application.Notifier, func()) {
	noop := func() {}
	if !cfg.MailSendEnabled {
		logger.Warn("MAIL_SEND_ENABLED=false; recovery codes will not be delivered")
		return mailer.NewLogNotifier(logger), noop
	}
	switch cfg.MailDriver {
	case "queue":
		if cfg.StoreDriver == "memory" {
			logger.Warn("MAIL_DRIVER=queue with STORE_DRIVER=memory; the worker cannot revoke undelivered codes")
		}
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			logger.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		return mailer.NewQueueNotifier(pub), pub.Close
	case "log":
		return mailer.NewLogNotifier(logger), noop
	default:
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
			logger.Fatal("mailgun not configured (MAILGUN_DOMAIN, MAILGUN_API_KEY, MAILGUN_SENDER)")
		}
		mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
		mg.Timeout = cfg.DeliveryTimeout
		return mg, noop
	}
}

// buildAuditor picks the audit sink. The returned func waits for pending
// events to be indexed.
func buildAuditor(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (application.Auditor, func(context.Context)) {
	noop := func(context.Context) {}
	if cfg.AuditSink != "elasticsearch" {
		return auditinfra.NewLogAuditor(logger), noop
	}
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		logger.WithError(err).Warn("elasticsearch client init failed; auditing to log")
		return auditinfra.NewLogAuditor(logger), noop
	}
	if err := helpers.EnsureAuditIndex(ctx, es, cfg.ESAuditIndex); err != nil {
		logger.WithError(err).Warn("ensure audit index failed; events will still be indexed")
	}
	a := auditinfra.NewESAuditor(es, cfg.ESAuditIndex, logger, cfg.ESMaxInFlight)
	return a, func(c context.Context) {
		if err := a.Close(c); err != nil {
			logger.WithError(err).Warn("pending audit events not indexed")
		}
		if n := a.Dropped(); n > 0 {
			logger.WithField("dropped", n).Warn("audit events dropped under load")
		}
	}
}
