// Package bootstrap wires the process-wide dependencies shared by the commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pipal/internal/cache"
	"pipal/internal/config"
	"pipal/internal/database"
	"pipal/internal/featureflags"
	"pipal/internal/middleware"
	"pipal/internal/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Runtime holds the connections a command needs. Redis is nil when unreachable.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	Flags *featureflags.Manager
}

// Options control runtime initialization behavior.
type Options struct {
	// SkipSchema leaves the schema untouched, for commands that manage it themselves.
	SkipSchema bool
}

// InitRuntime connects to the database and Redis, applies the schema and loads feature flags.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if !opts.SkipSchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return nil, fmt.Errorf("schema setup failed: %w", err)
		}
	}

	flags, err := featureflags.Load(cfg.FeatureFlags, cfg.FeatureFile)
	if err != nil {
		return nil, err
	}

	if err := ensureDevAdmin(ctx, cfg, db); err != nil {
		return nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	return &Runtime{
		DB:    db,
		Redis: cache.Connect(ctx, cfg.RedisURL),
		Flags: flags,
	}, nil
}

// Close releases the runtime's connections.
func (r *Runtime) Close() {
	if sqlDB, err := r.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if r.Redis != nil {
		_ = r.Redis.Close()
	}
}

// ensureDevAdmin creates or promotes the configured admin account in development.
func ensureDevAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if !strings.EqualFold(cfg.Env, "development") {
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(cfg.DevAdminEmail))
	if email == "" {
		return nil
	}
	if cfg.DevAdminPassword == "" {
		return errors.New("DEV_ADMIN_PASSWORD must be set when DEV_ADMIN_EMAIL is")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DevAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admin models.User
		findErr := tx.Where("email = ?", email).Take(&admin).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			admin = models.User{
				Email:        email,
				Username:     strings.SplitN(email, "@", 2)[0],
				PasswordHash: string(hash),
				Role:         models.RoleAdmin,
				IsActive:     true,
				IsVerified:   true,
			}
			return tx.Create(&admin).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&admin).Updates(map[string]any{
				"role":          models.RoleAdmin,
				"password_hash": string(hash),
				"is_active":     true,
			}).Error
		}
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("development admin ensured", slog.String("email", email))
	return nil
}
