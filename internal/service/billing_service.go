package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/events"
	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/Eursukkul/courier-backoffice/internal/pricing"
	"github.com/Eursukkul/courier-backoffice/internal/repository"
	"github.com/Eursukkul/courier-backoffice/pkg/cache"
	"github.com/Eursukkul/courier-backoffice/pkg/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const invoiceLockTTL = 10 * time.Second

type QuoteInput struct {
	ServiceType   models.ServiceType   `json:"service_type" validate:"required,service_type"`
	PaymentMode   models.PaymentMode   `json:"payment_mode" validate:"required,payment_mode"`
	Weight        decimal.Decimal      `json:"weight" validate:"gt=0"`
	Length        decimal.Decimal      `json:"length" validate:"gte=0"`
	Width         decimal.Decimal      `json:"width" validate:"gte=0"`
	Height        decimal.Decimal      `json:"height" validate:"gte=0"`
	DimensionUnit models.DimensionUnit `json:"dimension_unit,omitempty" validate:"omitempty,dimension_unit"`
	DeclaredValue decimal.Decimal      `json:"declared_value" validate:"gte=0"`
	Insured       bool                 `json:"insured"`
	CODAmount     decimal.Decimal      `json:"cod_amount" validate:"gte=0"`
}

// ViewInvalidator drops any cached read model for an AWB.
type ViewInvalidator interface {
	Invalidate(ctx context.Context, awb string) error
}

type BillingService interface {
	Quote(ctx context.Context, in QuoteInput) (models.ChargeBreakdown, error)
	IsEligible(ctx context.Context, bookingID uint) (bool, error)
	ListEligible(ctx context.Context, shipperID *uint) ([]models.Booking, error)
	MarkInvoiced(ctx context.Context, bookingID uint, invoiceNumber string) (*models.Booking, error)
	MarkInvoicedBatch(ctx context.Context, invoiceNumber string, bookingIDs []uint) ([]models.Booking, error)
}

type billingService struct {
	txm       repository.Transactor
	bookings  repository.BookingRepository
	locker    cache.Locker
	views     ViewInvalidator
	validator *validation.Validator
	tariff    pricing.Config
	logger    *zap.Logger
	now       func() time.Time
}

func NewBillingService(txm repository.Transactor, bookings repository.BookingRepository, locker cache.Locker, views ViewInvalidator, v *validation.Validator, tariff pricing.Config, logger *zap.Logger) BillingService {
	if locker == nil {
		locker = cache.NoopLocker{}
	}
	return &billingService{
		txm:       txm,
		bookings:  bookings,
		locker:    locker,
		views:     views,
		validator: v,
		tariff:    tariff,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *billingService) Quote(_ context.Context, in QuoteInput) (models.ChargeBreakdown, error) {
	if err := s.validator.Struct(in); err != nil {
		return models.ChargeBreakdown{}, validationError(err)
	}
	return pricing.ComputeCharges(pricing.ChargeInput{
		ServiceType:   in.ServiceType,
		PaymentMode:   in.PaymentMode,
		Weight:        in.Weight,
		Length:        in.Length,
		Width:         in.Width,
		Height:        in.Height,
		DimensionUnit: in.DimensionUnit,
		DeclaredValue: in.DeclaredValue,
		Insured:       in.Insured,
		CODAmount:     in.CODAmount,
	}, s.tariff), nil
}

func (s *billingService) IsEligible(ctx context.Context, bookingID uint) (bool, error) {
	b, err := s.find(ctx, bookingID)
	if err != nil {
		return false, err
	}
	return pricing.IsEligibleForInvoicing(b), nil
}

func (s *billingService) ListEligible(ctx context.Context, shipperID *uint) ([]models.Booking, error) {
	return s.bookings.ListEligibleForInvoicing(ctx, shipperID)
}

// MarkInvoiced flips the invoice flag once. Concurrent callers queue on a per-booking lock and
// the conditional update decides the winner; the rest get ErrAlreadyInvoiced.
func (s *billingService) MarkInvoiced(ctx context.Context, bookingID uint, invoiceNumber string) (*models.Booking, error) {
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if invoiceNumber == "" {
		return nil, fieldError("invoice_number", "required")
	}

	release, err := s.locker.Obtain(ctx, fmt.Sprintf("invoice:booking:%d", bookingID), invoiceLockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLockNotObtained) {
			return nil, ErrConcurrentModification
		}
		return nil, fmt.Errorf("obtain invoice lock: %w", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release invoice lock", zap.Uint("booking_id", bookingID), zap.Error(err))
		}
	}()

	at := s.now().UTC()
	err = s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		ok, err := s.bookings.MarkInvoiced(ctx, tx, bookingID, invoiceNumber, at)
		if err != nil {
			return err
		}
		if !ok {
			return s.whyNotInvoiced(ctx, bookingID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	b, err := s.find(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, b.AWB)
	s.logger.Info("booking invoiced", zap.Uint("booking_id", bookingID), zap.String("invoice_number", invoiceNumber))
	return b, nil
}

// MarkInvoicedBatch invoices every booking or none. Rows are locked in id order so overlapping
// batches cannot deadlock.
func (s *billingService) MarkInvoicedBatch(ctx context.Context, invoiceNumber string, bookingIDs []uint) ([]models.Booking, error) {
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if invoiceNumber == "" {
		return nil, fieldError("invoice_number", "required")
	}
	ids := slices.Clone(bookingIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		return nil, fieldError("booking_ids", "min")
	}

	at := s.now().UTC()
	var out []models.Booking
	err := s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		locked, err := s.bookings.FindByIDsForUpdate(ctx, tx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uint]models.Booking, len(locked))
		for _, b := range locked {
			byID[b.ID] = b
		}
		for _, id := range ids {
			b, ok := byID[id]
			if !ok {
				return fmt.Errorf("booking %d: %w", id, ErrBookingNotFound)
			}
			if b.InvoiceGenerated {
				return fmt.Errorf("booking %d: %w", id, ErrAlreadyInvoiced)
			}
			if !pricing.IsEligibleForInvoicing(&b) {
				return fmt.Errorf("booking %d: %w", id, ErrNotEligible)
			}
		}
		for _, id := range ids {
			ok, err := s.bookings.MarkInvoiced(ctx, tx, id, invoiceNumber, at)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("booking %d: %w", id, ErrConcurrentModification)
			}
			b := byID[id]
			b.InvoiceGenerated = true
			b.InvoiceNumber = invoiceNumber
			b.InvoicedAt = &at
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, b := range out {
		s.invalidate(ctx, b.AWB)
	}
	s.logger.Info("bookings invoiced", zap.Int("count", len(out)), zap.String("invoice_number", invoiceNumber))
	return out, nil
}

func (s *billingService) whyNotInvoiced(ctx context.Context, bookingID uint) error {
	b, err := s.find(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.InvoiceGenerated {
		return ErrAlreadyInvoiced
	}
	return ErrNotEligible
}

func (s *billingService) find(ctx context.Context, id uint) (*models.Booking, error) {
	b, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *billingService) invalidate(ctx context.Context, awb string) {
	if s.views == nil {
		return
	}
	if err := s.views.Invalidate(ctx, awb); err != nil {
		s.logger.Warn("invalidate tracking view", zap.String("awb", awb), zap.Error(err))
	}
}

// InvoiceReadiness announces bookings that just became invoiceable.
type InvoiceReadiness struct {
	publisher events.Publisher
	logger    *zap.Logger
}

func NewInvoiceReadiness(publisher events.Publisher, logger *zap.Logger) *InvoiceReadiness {
	return &InvoiceReadiness{publisher: publisher, logger: logger}
}

func (n *InvoiceReadiness) OnStatusChanged(ctx context.Context, ev events.StatusChanged) error {
	if ev.To != models.StatusDelivered {
		return nil
	}
	n.logger.Info("booking ready for invoicing", zap.Uint("booking_id", ev.BookingID), zap.String("awb", ev.AWB))
	return n.publisher.Publish(ctx, events.RoutingInvoiceReady, events.InvoiceReady{
		BookingID:   ev.BookingID,
		AWB:         ev.AWB,
		DeliveredAt: ev.OccurredAt,
	})
}
