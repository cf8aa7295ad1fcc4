package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingFilter struct {
	Status    *models.ShipmentStatus
	ShipperID *uint
	Limit     int
	Offset    int
}

// StatusUpdate moves a booking's status pointer, conditional on the version the caller read.
type StatusUpdate struct {
	BookingID       uint
	ExpectedVersion int
	Status          models.ShipmentStatus
	StampColumns    []string
	At              time.Time
}

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByAWB(ctx context.Context, awb string) (*models.Booking, error)
	FindRedispatchOf(ctx context.Context, originalID uint) (*models.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]models.Booking, error)
	Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, upd StatusUpdate) (bool, error)
	UpdateReference(ctx context.Context, id uint, reference string) error
	FindByIDsForUpdate(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Booking, error)
	MarkInvoiced(ctx context.Context, tx *gorm.DB, id uint, invoiceNumber string, at time.Time) (bool, error)
	ListEligibleForInvoicing(ctx context.Context, shipperID *uint) ([]models.Booking, error)
	ListStale(ctx context.Context, updatedBefore time.Time, limit int) ([]models.Booking, error)
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Omit(clause.Associations).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Preload("Shipper").Preload("Consignee").First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindRedispatchOf returns the booking created by re-dispatching originalID.
func (r *bookingRepository) FindRedispatchOf(ctx context.Context, originalID uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Where("redispatch_of_id = ?", originalID).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByAWB(ctx context.Context, awb string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Shipper").
		Preload("Consignee").
		Where("awb = ?", awb).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) List(ctx context.Context, filter BookingFilter) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.db.WithContext(ctx)
	if filter.Status != nil {
		q = q.Where("current_status = ?", *filter.Status)
	}
	if filter.ShipperID != nil {
		q = q.Where("shipper_id = ?", *filter.ShipperID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Order("id DESC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

// Exists checks inside tx when given one, otherwise on the pool.
func (r *bookingRepository) Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	var count int64
	err := tx.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// UpdateStatus reports false when no row matched id and version.
func (r *bookingRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, upd StatusUpdate) (bool, error) {
	values := map[string]any{
		"current_status": upd.Status,
		"version":        gorm.Expr("version + 1"),
		"updated_at":     time.Now(),
	}
	for _, col := range upd.StampColumns {
		// first occurrence wins, a re-pickup after a hold keeps the original time
		values[col] = gorm.Expr("COALESCE("+col+", ?)", upd.At)
	}

	result := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND version = ?", upd.BookingID, upd.ExpectedVersion).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *bookingRepository) UpdateReference(ctx context.Context, id uint, reference string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Update("reference_number", reference)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByIDsForUpdate row-locks the bookings in id order within the given transaction.
func (r *bookingRepository) FindByIDsForUpdate(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// MarkInvoiced flips invoice_generated only for a delivered, not yet invoiced booking.
func (r *bookingRepository) MarkInvoiced(ctx context.Context, tx *gorm.DB, id uint, invoiceNumber string, at time.Time) (bool, error) {
	result := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND invoice_generated = ? AND current_status = ?", id, false, models.StatusDelivered).
		Updates(map[string]any{
			"invoice_generated": true,
			"invoice_number":    invoiceNumber,
			"invoiced_at":       at,
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *bookingRepository) ListEligibleForInvoicing(ctx context.Context, shipperID *uint) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.db.WithContext(ctx).
		Where("current_status = ? AND invoice_generated = ?", models.StatusDelivered, false)
	if shipperID != nil {
		q = q.Where("shipper_id = ?", *shipperID)
	}
	if err := q.Order("delivered_at ASC, id ASC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

// ListStale returns open bookings untouched since updatedBefore, oldest first.
func (r *bookingRepository) ListStale(ctx context.Context, updatedBefore time.Time, limit int) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.db.WithContext(ctx).
		Where("current_status NOT IN ? AND updated_at < ?", models.TerminalStatuses(), updatedBefore).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}
