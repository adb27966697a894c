package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/wellness-auth/config"
	"github.com/oksasatya/wellness-auth/internal/application"
	pginfra "github.com/oksasatya/wellness-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/wellness-auth/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}

	svc := application.NewService(
		pginfra.NewUserRepository(pool),
		helpers.NewBcryptHasher(cfg.BcryptCost, cfg.HashWorkers),
		helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.AccessTTL),
		application.SystemClock{},
		logger,
		nil,
		cfg.StoreTimeout,
	)

	email := "demo@wellness.local"
	password := "password123"
	username := "demoUser"

	u, _, err := svc.Register(ctx, application.RegisterInput{Username: username, Email: email, Password: password}, application.RequestMeta{IP: "127.0.0.1", UserAgent: "seed"})
	switch {
	case errors.Is(err, application.ErrDuplicateIdentity):
		fmt.Printf("demo user already present: email=%s\n", email)
	case err != nil:
		logger.Fatalf("failed to seed user: %v", err)
	default:
		fmt.Printf("seeded user: id=%s email=%s username=%s password=%s\n", u.ID, email, username, password)
	}
}
