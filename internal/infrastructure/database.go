package infrastructure

import (
	"fmt"
	"log"
	"os"
	"time"

	"garment-dashboard/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDatabase opens the PostgreSQL connection pool
func ConnectDatabase(dsn string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  true,
			},
		),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// MigrateAllSchemas creates or updates every table. Orders and their history are
// migrated even when DynamoDB holds the orders, so switching back needs no migration.
func MigrateAllSchemas(db *gorm.DB) error {
	tables := []struct {
		name  string
		model interface{}
	}{
		{"User", &model.User{}},
		{"Product", &model.Product{}},
		{"Order", &model.Order{}},
		{"OrderEvent", &model.OrderEvent{}},
		{"RoleChange", &model.RoleChange{}},
		{"CacheEntry", &model.CacheEntry{}},
	}
	for _, t := range tables {
		if err := db.AutoMigrate(t.model); err != nil {
			return fmt.Errorf("failed to migrate %s table: %w", t.name, err)
		}
	}

	if err := createAdditionalIndexes(db); err != nil {
		return fmt.Errorf("failed to create additional indexes: %w", err)
	}
	return nil
}

func createAdditionalIndexes(db *gorm.DB) error {
	// Board queries filter by status and sort by creation time
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_orders_status_created_at
		ON orders(status, created_at DESC)
	`).Error; err != nil {
		return err
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_order_events_order_occurred
		ON order_events(order_id, occurred_at)
	`).Error; err != nil {
		return err
	}

	return nil
}
