package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/events"
	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/Eursukkul/courier-backoffice/internal/pricing"
	"github.com/Eursukkul/courier-backoffice/internal/repository"
	"github.com/Eursukkul/courier-backoffice/pkg/awb"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Audience string

const (
	AudienceInternal Audience = "internal"
	AudiencePublic   Audience = "public"
)

type HistoryEntry struct {
	Status     models.ShipmentStatus `json:"status"`
	Location   string                `json:"location,omitempty"`
	Remarks    string                `json:"remarks,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
}

type PartySummary struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

type ExceptionSummary struct {
	ID         string                 `json:"id"`
	Type       models.ExceptionType   `json:"type"`
	Status     models.ExceptionStatus `json:"status"`
	ReportedAt time.Time              `json:"reported_at"`
}

// TrackingView is the read model served to staff and to the public. Fields marked
// omitempty that carry money or contact details are only filled for AudienceInternal.
type TrackingView struct {
	AWB                   string                `json:"awb"`
	BookingID             uint                  `json:"booking_id,omitempty"`
	ReferenceNumber       string                `json:"reference_number,omitempty"`
	CurrentStatus         models.ShipmentStatus `json:"current_status"`
	ServiceType           models.ServiceType    `json:"service_type"`
	Origin                string                `json:"origin,omitempty"`
	Destination           string                `json:"destination,omitempty"`
	BookingDate           time.Time             `json:"booking_date"`
	EstimatedDeliveryDate *time.Time            `json:"estimated_delivery_date,omitempty"`
	DeliveredAt           *time.Time            `json:"delivered_at,omitempty"`
	Shipper               PartySummary          `json:"shipper"`
	Consignee             PartySummary          `json:"consignee"`
	History               []HistoryEntry        `json:"history"`
	OpenExceptions        []ExceptionSummary    `json:"open_exceptions"`

	PaymentMode      models.PaymentMode      `json:"payment_mode,omitempty"`
	DeclaredValue    *decimal.Decimal        `json:"declared_value,omitempty"`
	Charges          *models.ChargeBreakdown `json:"charges,omitempty"`
	InvoiceGenerated *bool                   `json:"invoice_generated,omitempty"`
}

// ViewCache is satisfied by cache.Store; a nil Store disables caching.
type ViewCache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type TrackingService interface {
	GetTrackingView(ctx context.Context, ref string, audience Audience) (*TrackingView, error)
	Invalidate(ctx context.Context, awb string) error
	events.StatusSubscriber
}

type trackingService struct {
	bookings   repository.BookingRepository
	shippers   repository.ShipperRepository
	exceptions repository.ExceptionRepository
	ledger     *Ledger
	cache      ViewCache
	ttl        time.Duration
	logger     *zap.Logger
}

func NewTrackingService(bookings repository.BookingRepository, shippers repository.ShipperRepository, exceptions repository.ExceptionRepository, ledger *Ledger, viewCache ViewCache, ttl time.Duration, logger *zap.Logger) TrackingService {
	return &trackingService{
		bookings:   bookings,
		shippers:   shippers,
		exceptions: exceptions,
		ledger:     ledger,
		cache:      viewCache,
		ttl:        ttl,
		logger:     logger,
	}
}

func viewKey(awbNumber string, audience Audience) string {
	return fmt.Sprintf("tracking:%s:%s", audience, awbNumber)
}

// GetTrackingView resolves ref as an AWB, or for internal callers also as a numeric booking id.
func (s *trackingService) GetTrackingView(ctx context.Context, ref string, audience Audience) (*TrackingView, error) {
	if audience != AudienceInternal {
		audience = AudiencePublic
	}
	booking, err := s.resolve(ctx, ref, audience)
	if err != nil {
		return nil, err
	}

	key := viewKey(booking.AWB, audience)
	if s.cache != nil {
		var cached TrackingView
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("read tracking cache", zap.String("key", key), zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	view, head, err := s.build(ctx, booking, audience)
	if err != nil {
		return nil, err
	}

	// A transition committed between the booking read and the history read; the view is
	// still built from the ledger, but caching it would outlive the invalidation already sent.
	if head != booking.Version {
		s.logger.Debug("tracking view raced a transition, not cached",
			zap.String("awb", booking.AWB), zap.Int("version", booking.Version), zap.Int("head", head))
		return view, nil
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, view, s.ttl); err != nil {
			s.logger.Warn("write tracking cache", zap.String("key", key), zap.Error(err))
		}
	}
	return view, nil
}

func (s *trackingService) resolve(ctx context.Context, ref string, audience Audience) (*models.Booking, error) {
	b, err := s.bookings.FindByAWB(ctx, awb.Normalize(ref))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if audience == AudienceInternal {
		if id, perr := strconv.ParseUint(ref, 10, 64); perr == nil {
			b, err := s.bookings.FindByID(ctx, uint(id))
			if err == nil {
				return b, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
	}
	return nil, ErrUnknownAWB
}

// build returns the view and the sequence of the ledger entry its status was taken from.
func (s *trackingService) build(ctx context.Context, b *models.Booking, audience Audience) (*TrackingView, int, error) {
	history, err := s.ledger.Read(ctx, b.ID)
	if err != nil {
		return nil, 0, err
	}
	open, err := s.exceptions.ListByBooking(ctx, b.ID, true)
	if err != nil {
		return nil, 0, fmt.Errorf("list open exceptions: %w", err)
	}

	head := history[len(history)-1]
	deliveredAt := b.DeliveredAt
	if head.Status == models.StatusDelivered && deliveredAt == nil {
		deliveredAt = &head.OccurredAt
	}

	internal := audience == AudienceInternal
	view := &TrackingView{
		AWB:                   b.AWB,
		CurrentStatus:         head.Status,
		ServiceType:           b.ServiceType,
		Origin:                b.Origin,
		Destination:           b.Destination,
		BookingDate:           b.BookingDate.UTC(),
		EstimatedDeliveryDate: utcPtr(pricing.EstimatedDelivery(b.BookingDate.UTC(), b.ServiceType, head.Status)),
		DeliveredAt:           utcPtr(deliveredAt),
		History:               make([]HistoryEntry, 0, len(history)),
		OpenExceptions:        make([]ExceptionSummary, 0, len(open)),
	}

	for i := len(history) - 1; i >= 0; i-- {
		ev := history[i]
		view.History = append(view.History, HistoryEntry{
			Status:     ev.Status,
			Location:   ev.Location,
			Remarks:    ev.Remarks,
			OccurredAt: ev.OccurredAt.UTC(),
		})
	}
	for _, ex := range open {
		view.OpenExceptions = append(view.OpenExceptions, ExceptionSummary{
			ID:         ex.ID,
			Type:       ex.Type,
			Status:     ex.Status,
			ReportedAt: ex.CreatedAt.UTC(),
		})
	}

	shipper := b.Shipper
	if shipper == nil {
		shipper, err = s.shippers.FindByID(ctx, b.ShipperID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, fmt.Errorf("load shipper: %w", err)
		}
	}
	if shipper != nil {
		view.Shipper = PartySummary{Name: shipper.Name, Company: shipper.Company, City: shipper.City, Country: shipper.Country}
		if internal {
			view.Shipper.Email = shipper.Email
			view.Shipper.Phone = shipper.Phone
			view.Shipper.Address = shipper.Address
		}
	}

	consignee, err := consigneeOf(b)
	if err != nil {
		return nil, 0, err
	}
	if consignee != nil {
		view.Consignee = PartySummary{Name: consignee.Name, City: consignee.City, Country: consignee.Country}
		if internal {
			view.Consignee.Company = consignee.Company
			view.Consignee.Email = consignee.Email
			view.Consignee.Phone = consignee.Phone
			view.Consignee.Address = consignee.Address
		}
	}

	if internal {
		charges := b.Charges
		declared := b.DeclaredValue
		invoiced := b.InvoiceGenerated
		view.BookingID = b.ID
		view.ReferenceNumber = b.ReferenceNumber
		view.PaymentMode = b.PaymentMode
		view.DeclaredValue = &declared
		view.Charges = &charges
		view.InvoiceGenerated = &invoiced
	}
	return view, head.Sequence, nil
}

func consigneeOf(b *models.Booking) (*models.ContactSnapshot, error) {
	if b.Consignee != nil {
		snap := models.SnapshotOf(b.Consignee)
		return &snap, nil
	}
	snap, err := b.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("decode consignee snapshot: %w", err)
	}
	return snap, nil
}

func (s *trackingService) Invalidate(ctx context.Context, awbNumber string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, viewKey(awbNumber, AudienceInternal), viewKey(awbNumber, AudiencePublic))
}

func (s *trackingService) OnStatusChanged(ctx context.Context, ev events.StatusChanged) error {
	return s.Invalidate(ctx, ev.AWB)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
