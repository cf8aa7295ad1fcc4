package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/lifecycle"
	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/Eursukkul/courier-backoffice/internal/pricing"
	"github.com/Eursukkul/courier-backoffice/internal/repository"
	"github.com/Eursukkul/courier-backoffice/pkg/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CreateBookingInput struct {
	ShipperID          uint                    `json:"shipper_id" validate:"required"`
	ConsigneeID        *uint                   `json:"consignee_id,omitempty"`
	Consignee          *models.ContactSnapshot `json:"consignee,omitempty"`
	ReferenceNumber    string                  `json:"reference_number,omitempty" validate:"max=64"`
	ServiceType        models.ServiceType      `json:"service_type" validate:"required,service_type"`
	PaymentMode        models.PaymentMode      `json:"payment_mode" validate:"required,payment_mode"`
	Origin             string                  `json:"origin,omitempty" validate:"max=120"`
	Destination        string                  `json:"destination,omitempty" validate:"max=120"`
	PackageDescription string                  `json:"package_description,omitempty" validate:"max=2000"`
	Weight             decimal.Decimal         `json:"weight" validate:"gt=0"`
	Length             decimal.Decimal         `json:"length" validate:"gte=0"`
	Width              decimal.Decimal         `json:"width" validate:"gte=0"`
	Height             decimal.Decimal         `json:"height" validate:"gte=0"`
	DimensionUnit      models.DimensionUnit    `json:"dimension_unit,omitempty" validate:"omitempty,dimension_unit"`
	DeclaredValue      decimal.Decimal         `json:"declared_value" validate:"gte=0"`
	Insured            bool                    `json:"insured"`
	CODAmount          decimal.Decimal         `json:"cod_amount" validate:"gte=0"`
	BookingDate        *time.Time              `json:"booking_date,omitempty"`
	RecordedBy         string                  `json:"-"`
}

func (in CreateBookingInput) chargeInput() pricing.ChargeInput {
	return pricing.ChargeInput{
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
	}
}

// TransitionRequest asks for a booking to move to Status. ExpectedVersion, when set, must
// match the booking's version at the time of the write.
type TransitionRequest struct {
	Status          models.ShipmentStatus
	Location        string
	Remarks         string
	OccurredAt      *time.Time
	RequestID       string
	RecordedBy      string
	ExpectedVersion *int
}

type TransitionResult struct {
	Event    models.StatusEvent
	Status   models.ShipmentStatus
	Version  int
	Replayed bool
}

type AWBGenerator interface {
	Next() string
}

type BookingService interface {
	CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error)
	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	ListBookings(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error)
	UpdateReference(ctx context.Context, id uint, reference string) (*models.Booking, error)
	GetHistory(ctx context.Context, id uint) ([]models.StatusEvent, error)
	AttemptTransition(ctx context.Context, id uint, req TransitionRequest) (*TransitionResult, error)
	Redispatch(ctx context.Context, id uint, recordedBy string) (*models.Booking, error)
}

type bookingService struct {
	txm        repository.Transactor
	bookings   repository.BookingRepository
	history    repository.StatusEventRepository
	shippers   repository.ShipperRepository
	consignees repository.ConsigneeRepository
	ledger     *Ledger
	awb        AWBGenerator
	validator  *validation.Validator
	tariff     pricing.Config
	logger     *zap.Logger
	now        func() time.Time
}

type BookingDeps struct {
	Transactor repository.Transactor
	Bookings   repository.BookingRepository
	History    repository.StatusEventRepository
	Shippers   repository.ShipperRepository
	Consignees repository.ConsigneeRepository
	Ledger     *Ledger
	AWB        AWBGenerator
	Validator  *validation.Validator
	Tariff     pricing.Config
	Logger     *zap.Logger
}

func NewBookingService(d BookingDeps) BookingService {
	return &bookingService{
		txm:        d.Transactor,
		bookings:   d.Bookings,
		history:    d.History,
		shippers:   d.Shippers,
		consignees: d.Consignees,
		ledger:     d.Ledger,
		awb:        d.AWB,
		validator:  d.Validator,
		tariff:     d.Tariff,
		logger:     d.Logger,
		now:        time.Now,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	return s.create(ctx, in, nil)
}

func (s *bookingService) create(ctx context.Context, in CreateBookingInput, redispatchOf *uint) (*models.Booking, error) {
	if err := s.validateCreate(in); err != nil {
		return nil, err
	}

	if _, err := s.shippers.FindByID(ctx, in.ShipperID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShipperNotFound
		}
		return nil, err
	}

	var snapshot datatypes.JSON
	if in.ConsigneeID != nil {
		if _, err := s.consignees.FindByID(ctx, *in.ConsigneeID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrConsigneeNotFound
			}
			return nil, err
		}
	} else {
		raw, err := json.Marshal(in.Consignee)
		if err != nil {
			return nil, fmt.Errorf("encode consignee: %w", err)
		}
		snapshot = raw
	}

	bookedAt := s.now().UTC()
	if in.BookingDate != nil {
		bookedAt = in.BookingDate.UTC()
	}
	unit := in.DimensionUnit
	if unit == "" {
		unit = models.DimensionCM
	}
	in.DimensionUnit = unit

	booking := &models.Booking{
		AWB:                s.awb.Next(),
		ReferenceNumber:    strings.TrimSpace(in.ReferenceNumber),
		CurrentStatus:      models.StatusBooked,
		Version:            1,
		ShipperID:          in.ShipperID,
		ConsigneeID:        in.ConsigneeID,
		ConsigneeSnapshot:  snapshot,
		ServiceType:        in.ServiceType,
		PaymentMode:        in.PaymentMode,
		Origin:             in.Origin,
		Destination:        in.Destination,
		PackageDescription: in.PackageDescription,
		Weight:             in.Weight,
		Length:             in.Length,
		Width:              in.Width,
		Height:             in.Height,
		DimensionUnit:      unit,
		DeclaredValue:      in.DeclaredValue,
		Insured:            in.Insured,
		CODAmount:          in.CODAmount,
		Charges:            pricing.ComputeCharges(in.chargeInput(), s.tariff),
		BookingDate:        bookedAt,
		RedispatchOfID:     redispatchOf,
	}

	err := s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.bookings.Create(ctx, tx, booking); err != nil {
			// the unique index on redispatch_of_id settles two concurrent re-dispatches
			if redispatchOf != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyRedispatched
			}
			return fmt.Errorf("create booking: %w", err)
		}
		return s.ledger.Seed(ctx, tx, booking, in.RecordedBy)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.Uint("booking_id", booking.ID),
		zap.String("awb", booking.AWB),
		zap.String("total", booking.Charges.Total.StringFixed(pricing.MoneyPlaces)))
	return booking, nil
}

func (s *bookingService) validateCreate(in CreateBookingInput) error {
	fields := validation.FieldErrors{}
	if err := s.validator.Struct(in); err != nil {
		var fe validation.FieldErrors
		if !errors.As(err, &fe) {
			return err
		}
		for k, v := range fe {
			fields[k] = v
		}
	}

	switch {
	case in.ConsigneeID == nil && in.Consignee == nil:
		fields["consignee"] = "required"
	case in.ConsigneeID != nil && in.Consignee != nil:
		fields["consignee"] = "excluded_with_consignee_id"
	}
	if in.PaymentMode == models.PaymentCOD && !in.CODAmount.IsPositive() {
		fields["cod_amount"] = "required_for_cod"
	}
	if in.Insured && !in.DeclaredValue.IsPositive() {
		fields["declared_value"] = "required_when_insured"
	}
	// every later event must not precede the booking, so it cannot start in the future
	if in.BookingDate != nil && in.BookingDate.After(s.now().Add(bookingDateSkew)) {
		fields["booking_date"] = "not_in_future"
	}

	if len(fields) > 0 {
		return validationError(fields)
	}
	return nil
}

func (s *bookingService) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	b, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *bookingService) ListBookings(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, fieldError("status", "shipment_status")
	}
	return s.bookings.List(ctx, filter)
}

// UpdateReference is the one booking field editable after creation; it has no lifecycle effect.
func (s *bookingService) UpdateReference(ctx context.Context, id uint, reference string) (*models.Booking, error) {
	reference = strings.TrimSpace(reference)
	if len(reference) > 64 {
		return nil, fieldError("reference_number", "max")
	}
	if err := s.bookings.UpdateReference(ctx, id, reference); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return s.GetBooking(ctx, id)
}

func (s *bookingService) GetHistory(ctx context.Context, id uint) ([]models.StatusEvent, error) {
	return s.ledger.Read(ctx, id)
}

// bookingDateSkew tolerates clock drift between the caller and this host.
const bookingDateSkew = 5 * time.Minute

// MaxRequestIDLength matches the width of the status event request_id column.
const MaxRequestIDLength = 64

// AttemptTransition re-reads the booking, validates the move and hands it to the ledger.
// A repeated RequestID returns the event recorded the first time.
func (s *bookingService) AttemptTransition(ctx context.Context, id uint, req TransitionRequest) (*TransitionResult, error) {
	req.RequestID = strings.TrimSpace(req.RequestID)
	if len(req.RequestID) > MaxRequestIDLength {
		return nil, fieldError("request_id", "max")
	}
	if req.RequestID != "" {
		prev, err := s.history.FindByRequestID(ctx, id, req.RequestID)
		if err == nil {
			return &TransitionResult{Event: *prev, Status: prev.Status, Version: prev.Sequence, Replayed: true}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.ExpectedVersion != nil && *req.ExpectedVersion != booking.Version {
		return nil, ErrConcurrentModification
	}

	meta := lifecycle.Meta{Location: req.Location, Remarks: req.Remarks}
	if req.OccurredAt != nil {
		meta.OccurredAt = *req.OccurredAt
	}
	tr, err := lifecycle.Validate(booking.CurrentStatus, req.Status, meta)
	if err != nil {
		return nil, err
	}

	ev, err := s.ledger.Append(ctx, AppendRequest{
		BookingID:       booking.ID,
		AWB:             booking.AWB,
		ExpectedVersion: booking.Version,
		From:            tr.From,
		Stamps:          tr.Stamps,
		Event: models.StatusEvent{
			Status:     tr.To,
			Location:   tr.Meta.Location,
			Remarks:    tr.Meta.Remarks,
			RequestID:  req.RequestID,
			RecordedBy: req.RecordedBy,
			OccurredAt: tr.Meta.OccurredAt,
		},
	})
	if err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			s.logger.Warn("transition lost a concurrent write",
				zap.Uint("booking_id", booking.ID),
				zap.Int("version", booking.Version),
				zap.String("to", req.Status.String()))
		}
		return nil, err
	}

	s.logger.Info("booking status changed",
		zap.Uint("booking_id", booking.ID),
		zap.String("from", tr.From.String()),
		zap.String("to", tr.To.String()),
		zap.Int("sequence", ev.Sequence))
	return &TransitionResult{Event: *ev, Status: ev.Status, Version: ev.Sequence}, nil
}

// Redispatch books a returned shipment again as a new booking linked to the original.
func (s *bookingService) Redispatch(ctx context.Context, id uint, recordedBy string) (*models.Booking, error) {
	orig, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if orig.CurrentStatus != models.StatusReturned {
		return nil, ErrRedispatchNotAllowed
	}
	prior, err := s.bookings.FindRedispatchOf(ctx, orig.ID)
	if err == nil {
		return nil, fmt.Errorf("%w as %s", ErrAlreadyRedispatched, prior.AWB)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	in := CreateBookingInput{
		ShipperID:          orig.ShipperID,
		ConsigneeID:        orig.ConsigneeID,
		ReferenceNumber:    orig.ReferenceNumber,
		ServiceType:        orig.ServiceType,
		PaymentMode:        orig.PaymentMode,
		Origin:             orig.Origin,
		Destination:        orig.Destination,
		PackageDescription: orig.PackageDescription,
		Weight:             orig.Weight,
		Length:             orig.Length,
		Width:              orig.Width,
		Height:             orig.Height,
		DimensionUnit:      orig.DimensionUnit,
		DeclaredValue:      orig.DeclaredValue,
		Insured:            orig.Insured,
		CODAmount:          orig.CODAmount,
		RecordedBy:         recordedBy,
	}
	if orig.ConsigneeID == nil {
		snap, err := orig.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("decode consignee snapshot: %w", err)
		}
		in.Consignee = snap
	}
	return s.create(ctx, in, &orig.ID)
}
