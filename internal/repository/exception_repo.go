package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/models"
	"gorm.io/gorm"
)

type ExceptionRepository interface {
	Create(ctx context.Context, ex *models.BookingException) error
	FindByID(ctx context.Context, id string) (*models.BookingException, error)
	ListByBooking(ctx context.Context, bookingID uint, openOnly bool) ([]models.BookingException, error)
	// Transition moves an exception to `to` only while it is in one of `from`.
	Transition(ctx context.Context, id string, from []models.ExceptionStatus, to models.ExceptionStatus, fields map[string]any) (bool, error)
}

type exceptionRepository struct {
	db *gorm.DB
}

func NewExceptionRepository(db *gorm.DB) ExceptionRepository {
	return &exceptionRepository{db: db}
}

func (r *exceptionRepository) Create(ctx context.Context, ex *models.BookingException) error {
	return r.db.WithContext(ctx).Create(ex).Error
}

func (r *exceptionRepository) FindByID(ctx context.Context, id string) (*models.BookingException, error) {
	var ex models.BookingException
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ex).Error; err != nil {
		return nil, err
	}
	return &ex, nil
}

func (r *exceptionRepository) ListByBooking(ctx context.Context, bookingID uint, openOnly bool) ([]models.BookingException, error) {
	var list []models.BookingException
	q := r.db.WithContext(ctx).Where("booking_id = ?", bookingID)
	if openOnly {
		q = q.Where("status <> ?", models.ExceptionResolved)
	}
	if err := q.Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *exceptionRepository) Transition(ctx context.Context, id string, from []models.ExceptionStatus, to models.ExceptionStatus, fields map[string]any) (bool, error) {
	values := map[string]any{"status": to, "updated_at": time.Now()}
	for k, v := range fields {
		values[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.BookingException{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
