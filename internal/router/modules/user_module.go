package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	handlers "github.com/oksasatya/wellness-auth/internal/interface/http"
	"github.com/oksasatya/wellness-auth/internal/interface/middleware"
)

// UserModule wires the account and password recovery handlers.
// Public: POST /users/register, /users/login, /users/forgotpassword, /users/verify-otp
// and PUT /users/resetpassword. Protected: GET /users/profile.
type UserModule struct {
	Auth     *handlers.AuthHandler
	Recovery *handlers.RecoveryHandler
	Sessions middleware.TokenAuthenticator
	Limit    LimitConfig
}

// LimitConfig enables the per-IP throttle on public routes when RDB is set.
type LimitConfig struct {
	RDB    *redis.Client
	Max    int
	Window time.Duration
	Logger *logrus.Logger
}

func NewUserModule(auth *handlers.AuthHandler, recovery *handlers.RecoveryHandler, sessions middleware.TokenAuthenticator, limit LimitConfig) *UserModule {
	return &UserModule{Auth: auth, Recovery: recovery, Sessions: sessions, Limit: limit}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")

	limiter := middleware.RateLimit(m.Limit.RDB, m.Limit.Max, m.Limit.Window, middleware.KeyByIPAndPath(), nil, m.Limit.Logger)

	users.POST("/register", limiter, m.Auth.Register)
	users.POST("/login", limiter, m.Auth.Login)
	users.POST("/forgotpassword", limiter, m.Recovery.ForgotPassword)
	users.POST("/verify-otp", limiter, m.Recovery.VerifyOTP)
	users.PUT("/resetpassword", limiter, m.Recovery.ResetPassword)

	users.GET("/profile", middleware.Auth(m.Sessions), m.Auth.Profile)
}
