package database

import (
	"fmt"

	"github.com/Eursukkul/courier-backoffice/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the schema plus the indexes gorm tags cannot express.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Shipper{},
		&models.Consignee{},
		&models.Booking{},
		&models.StatusEvent{},
		&models.BookingException{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// one event per request id per booking, blank ids excluded
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_status_event_request
		ON booking_status_events (booking_id, request_id)
		WHERE request_id <> ''
	`).Error; err != nil {
		return fmt.Errorf("create request id index: %w", err)
	}

	return nil
}
