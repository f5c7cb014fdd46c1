package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"dumdummies/internal/cache"
	"dumdummies/internal/config"
	"dumdummies/internal/database"
	"dumdummies/internal/middleware"
	"dumdummies/internal/models"
	"dumdummies/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDemo bool
}

// InitRuntime connects to DB and Redis and optionally seeds demo data.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDemo {
		if err := ensureDemoData(context.Background(), cfg, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// ensureDemoData seeds an empty development database. Existing channels are
// left alone.
func ensureDemoData(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil || cfg.IsProduction() {
		return nil
	}

	var channels int64
	if err := db.WithContext(ctx).Model(&models.Channel{}).Count(&channels).Error; err != nil {
		return err
	}
	if channels > 0 {
		return nil
	}

	opts := seed.DefaultOptions()
	opts.Clean = false
	res, err := seed.NewSeeder(db).Seed(ctx, opts)
	if err != nil {
		return err
	}

	middleware.Logger.Info("demo data seeded",
		slog.Int("users", len(res.Users)),
		slog.Int("channels", len(res.Channels)),
		slog.String("password", seed.DemoPassword),
	)
	return nil
}
