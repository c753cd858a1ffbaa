// Package bootstrap connects the stores shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"struggles/internal/cache"
	"struggles/internal/config"
	"struggles/internal/database"
	"struggles/internal/middleware"
	"struggles/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// Migrate applies the GORM schema after connecting.
	Migrate bool
	// FixturePath, when set, loads a YAML fixture into an empty database.
	FixturePath string
	// SkipRedis leaves the Redis client nil.
	SkipRedis bool
}

// Runtime holds the connected stores. Redis is nil when unreachable or skipped.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// InitRuntime connects to DB and Redis and optionally migrates and seeds.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt := &Runtime{DB: db}

	if opts.Migrate {
		if err := database.Migrate(db); err != nil {
			rt.Close()
			return nil, err
		}
	}

	if !opts.SkipRedis {
		rt.Redis = cache.NewRedisClient(cfg.RedisURL)
	}

	if opts.FixturePath != "" {
		if err := loadFixtureIfEmpty(ctx, db, opts.FixturePath); err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to load fixture: %w", err)
		}
	}

	return rt, nil
}

// Close releases the database pool and the Redis client.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
	if rt.DB != nil {
		if sqlDB, err := rt.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func loadFixtureIfEmpty(ctx context.Context, db *gorm.DB, path string) error {
	var users int64
	if err := db.WithContext(ctx).Table("users").Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		middleware.Logger.Info("fixture skipped, database already has users", slog.Int64("users", users))
		return nil
	}
	fx, err := seed.LoadFixtureFile(path)
	if err != nil {
		return err
	}
	res, err := seed.ApplyFixture(ctx, db, fx, seed.Options{})
	if err != nil {
		return err
	}
	middleware.Logger.Info("fixture loaded", slog.String("path", path),
		slog.Int("users", res.Users), slog.Int("stories", res.Stories))
	return nil
}
