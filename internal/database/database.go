// Package database wires gorm to Postgres and go-redis to Redis, and owns
// the schema migration / index creation the reservation engine depends on.
package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/slotwise/reservation-engine/internal/config"
	"github.com/slotwise/reservation-engine/internal/models"
)

// Connect opens the Postgres connection pool.
func Connect(cfg config.Database) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate auto-migrates every model and then lays down the indexes the
// spec's persisted-state layout requires.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.Store{},
		&models.User{},
		&models.Treatment{},
		&models.Resource{},
		&models.Timeslot{},
		&models.Booking{},
		&models.WebhookSubscription{},
		&models.WebhookDelivery{},
	)
	if err != nil {
		return fmt.Errorf("failed to run auto-migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createIndexes adds the composite/partial indexes spec.md §6 names that
// GORM tags alone cannot express.
func createIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_bookings_store_datetime ON bookings(store_id, booking_date_time)",
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_staff_datetime_active ON bookings(staff_id, booking_date_time) WHERE status NOT IN ('cancelled','no_show') AND staff_id IS NOT NULL`,
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_timeslots_store_range ON timeslots(store_id, start_time, end_time)",
		"CREATE INDEX IF NOT EXISTS idx_timeslots_store_start ON timeslots(store_id, start_time)",
		"CREATE INDEX IF NOT EXISTS idx_treatments_store_active ON treatments(store_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_resources_store_active ON resources(store_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_subscription ON webhook_deliveries(subscription_id, created_at)",
	}

	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// ConnectRedis opens a Redis client for caching and rate limiting.
func ConnectRedis(cfg config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return client, nil
}

// HealthCheck pings whichever of db/redis is non-nil, used by the
// health and readiness handlers. Either argument may be nil when that
// dependency is not configured for the running service.
func HealthCheck(db *gorm.DB, redisClient *redis.Client) error {
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		if err := sqlDB.Ping(); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}
	return nil
}
