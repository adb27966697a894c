package container

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/wellness-auth/config"
	"github.com/oksasatya/wellness-auth/internal/application"
	repo "github.com/oksasatya/wellness-auth/internal/domain/repository"
	"github.com/oksasatya/wellness-auth/pkg/helpers"
	"github.com/oksasatya/wellness-auth/pkg/mailer"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	userRepo    repo.UserRepository
	redisClient *redis.Client

	jwtManager *helpers.JWTManager
	hasher     *helpers.BcryptHasher

	notifier application.Notifier
	auditor  application.Auditor
)

func SetConfig(c *config.Config)         { cfg = c }
func SetLogger(l *logrus.Logger)         { logger = l }
func SetPGPool(p *pgxpool.Pool)          { pgPool = p }
func GetPGPool() *pgxpool.Pool           { return pgPool }
func SetUserRepo(r repo.UserRepository)  { userRepo = r }
func GetUserRepo() repo.UserRepository   { return userRepo }
func SetRedis(r *redis.Client)           { redisClient = r }
func GetRedis() *redis.Client            { return redisClient }
func SetJWT(m *helpers.JWTManager)       { jwtManager = m }
func SetHasher(h *helpers.BcryptHasher)  { hasher = h }
func SetNotifier(n application.Notifier) { notifier = n }
func SetAuditor(a application.Auditor)   { auditor = a }
func GetAuditor() application.Auditor    { return auditor }

func GetConfig() *config.Config {
	if cfg == nil {
		cfg = config.Load()
	}
	return cfg
}

func GetLogger() *logrus.Logger {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return logger
}

func GetJWT() *helpers.JWTManager {
	if jwtManager == nil {
		c := GetConfig()
		jwtManager = helpers.NewJWTManager(c.JWTAccessSecret, c.AccessTTL)
	}
	return jwtManager
}

func GetHasher() *helpers.BcryptHasher {
	if hasher == nil {
		c := GetConfig()
		hasher = helpers.NewBcryptHasher(c.BcryptCost, c.HashWorkers)
	}
	return hasher
}

// GetNotifier falls back to logging when no delivery channel was configured.
func GetNotifier() application.Notifier {
	if notifier == nil {
		notifier = mailer.NewLogNotifier(GetLogger())
	}
	return notifier
}
