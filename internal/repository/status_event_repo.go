package repository

import (
	"context"

	"github.com/Eursukkul/courier-backoffice/internal/models"
	"gorm.io/gorm"
)

// StatusEventRepository has no update or delete: history rows are written once.
type StatusEventRepository interface {
	Create(ctx context.Context, tx *gorm.DB, event *models.StatusEvent) error
	FindLast(ctx context.Context, tx *gorm.DB, bookingID uint) (*models.StatusEvent, error)
	ListByBooking(ctx context.Context, bookingID uint) ([]models.StatusEvent, error)
	FindByRequestID(ctx context.Context, bookingID uint, requestID string) (*models.StatusEvent, error)
}

type statusEventRepository struct {
	db *gorm.DB
}

func NewStatusEventRepository(db *gorm.DB) StatusEventRepository {
	return &statusEventRepository{db: db}
}

func (r *statusEventRepository) Create(ctx context.Context, tx *gorm.DB, event *models.StatusEvent) error {
	return tx.WithContext(ctx).Create(event).Error
}

func (r *statusEventRepository) FindLast(ctx context.Context, tx *gorm.DB, bookingID uint) (*models.StatusEvent, error) {
	var event models.StatusEvent
	err := tx.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("sequence DESC").
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *statusEventRepository) ListByBooking(ctx context.Context, bookingID uint) ([]models.StatusEvent, error) {
	var events []models.StatusEvent
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("sequence ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *statusEventRepository) FindByRequestID(ctx context.Context, bookingID uint, requestID string) (*models.StatusEvent, error) {
	var event models.StatusEvent
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND request_id = ?", bookingID, requestID).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}
