// Command seed-admin creates the administrator account. It is the only way
// an account with admin rights comes to exist. Running it again with the
// same email changes nothing.
//
//	ADMIN_EMAIL=admin@example.com ADMIN_PASSWORD=... go run ./cmd/seed-admin
package main

import (
	"context"
	"os"
	"time"

	"github.com/diagnosis/estate-listings/internal/app"
	"github.com/diagnosis/estate-listings/internal/domain"
	"github.com/diagnosis/estate-listings/internal/service"
	"github.com/diagnosis/estate-listings/pkg/auth"
	"github.com/diagnosis/estate-listings/pkg/config"
	"github.com/diagnosis/estate-listings/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	logger.Setup(cfg.Env, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := seed(ctx, cfg); err != nil {
		logger.Error("Admin bootstrap failed", "error", err)
		cancel()
		os.Exit(1)
	}
}

func seed(ctx context.Context, cfg *config.Config) error {
	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	eventBus, err := app.OpenPublisher(cfg)
	if err != nil {
		return err
	}
	defer eventBus.Close()

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}
	hasher, err := auth.NewHasher(cfg.Auth.PasswordHasher)
	if err != nil {
		return err
	}

	svc := service.NewAuthService(stores.Users, hasher, tokens, eventBus)
	user, created, err := svc.BootstrapAdmin(ctx, &domain.SignupRequest{
		Name:     os.Getenv("ADMIN_NAME"),
		Email:    os.Getenv("ADMIN_EMAIL"),
		Password: os.Getenv("ADMIN_PASSWORD"),
	})
	if err != nil {
		return err
	}

	if !created {
		logger.Info("Account already exists; nothing to do", "user_id", user.ID, "is_admin", user.IsAdmin)
		return nil
	}
	logger.Info("Admin account created", "user_id", user.ID, "email", user.Email)
	return nil
}
