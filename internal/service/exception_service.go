package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/Eursukkul/courier-backoffice/internal/repository"
	"github.com/Eursukkul/courier-backoffice/pkg/awb"
	"github.com/Eursukkul/courier-backoffice/pkg/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ReporterInput struct {
	Name         string `json:"name" validate:"required,max=120"`
	Email        string `json:"email,omitempty" validate:"omitempty,email,max=120"`
	Mobile       string `json:"mobile" validate:"required,phone"`
	Relationship string `json:"relationship,omitempty" validate:"max=40"`
}

type ReportExceptionInput struct {
	AWB         string               `json:"awb" validate:"required,max=32"`
	Type        models.ExceptionType `json:"type" validate:"required,exception_type"`
	Description string               `json:"description" validate:"required,max=2000"`
	Reporter    ReporterInput        `json:"reporter"`
}

// ExceptionService tracks customer-reported incidents. None of its operations touch the
// booking's status or history.
type ExceptionService interface {
	Report(ctx context.Context, in ReportExceptionInput) (*models.BookingException, error)
	Get(ctx context.Context, id string) (*models.BookingException, error)
	ListForBooking(ctx context.Context, bookingID uint, openOnly bool) ([]models.BookingException, error)
	Assign(ctx context.Context, id, assignee string) (*models.BookingException, error)
	Resolve(ctx context.Context, id, resolution string) (*models.BookingException, error)
}

type exceptionService struct {
	exceptions repository.ExceptionRepository
	bookings   repository.BookingRepository
	views      ViewInvalidator
	validator  *validation.Validator
	logger     *zap.Logger
	now        func() time.Time
}

func NewExceptionService(exceptions repository.ExceptionRepository, bookings repository.BookingRepository, views ViewInvalidator, v *validation.Validator, logger *zap.Logger) ExceptionService {
	return &exceptionService{
		exceptions: exceptions,
		bookings:   bookings,
		views:      views,
		validator:  v,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *exceptionService) Report(ctx context.Context, in ReportExceptionInput) (*models.BookingException, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validator.Struct(in); err != nil {
		return nil, validationError(err)
	}

	booking, err := s.bookings.FindByAWB(ctx, awb.Normalize(in.AWB))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownAWB
		}
		return nil, err
	}

	ex := &models.BookingException{
		ID:          uuid.NewString(),
		BookingID:   booking.ID,
		AWB:         booking.AWB,
		Type:        in.Type,
		Description: in.Description,
		Reporter: models.Reporter{
			Name:         in.Reporter.Name,
			Email:        in.Reporter.Email,
			Mobile:       in.Reporter.Mobile,
			Relationship: in.Reporter.Relationship,
		},
		Status: models.ExceptionOpen,
	}
	if err := s.exceptions.Create(ctx, ex); err != nil {
		return nil, err
	}

	s.invalidate(ctx, booking.AWB)
	s.logger.Info("exception reported",
		zap.String("exception_id", ex.ID),
		zap.String("awb", ex.AWB),
		zap.String("type", string(ex.Type)))
	return ex, nil
}

func (s *exceptionService) Get(ctx context.Context, id string) (*models.BookingException, error) {
	ex, err := s.exceptions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExceptionNotFound
		}
		return nil, err
	}
	return ex, nil
}

func (s *exceptionService) ListForBooking(ctx context.Context, bookingID uint, openOnly bool) ([]models.BookingException, error) {
	exists, err := s.bookings.Exists(ctx, nil, bookingID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrBookingNotFound
	}
	return s.exceptions.ListByBooking(ctx, bookingID, openOnly)
}

// Assign hands an open exception to a staff member; an assigned one may be reassigned.
func (s *exceptionService) Assign(ctx context.Context, id, assignee string) (*models.BookingException, error) {
	assignee = strings.TrimSpace(assignee)
	if assignee == "" {
		return nil, fieldError("assigned_to", "required")
	}
	return s.move(ctx, id,
		[]models.ExceptionStatus{models.ExceptionOpen, models.ExceptionAssigned},
		models.ExceptionAssigned,
		map[string]any{"assigned_to": assignee})
}

func (s *exceptionService) Resolve(ctx context.Context, id, resolution string) (*models.BookingException, error) {
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return nil, fieldError("resolution", "required")
	}
	return s.move(ctx, id,
		[]models.ExceptionStatus{models.ExceptionOpen, models.ExceptionAssigned},
		models.ExceptionResolved,
		map[string]any{"resolution": resolution, "resolved_at": s.now().UTC()})
}

func (s *exceptionService) move(ctx context.Context, id string, from []models.ExceptionStatus, to models.ExceptionStatus, fields map[string]any) (*models.BookingException, error) {
	ok, err := s.exceptions.Transition(ctx, id, from, to, fields)
	if err != nil {
		return nil, err
	}
	ex, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidExceptionTransition
	}

	s.invalidate(ctx, ex.AWB)
	s.logger.Info("exception updated", zap.String("exception_id", id), zap.String("status", string(to)))
	return ex, nil
}

func (s *exceptionService) invalidate(ctx context.Context, awbNumber string) {
	if s.views == nil {
		return
	}
	if err := s.views.Invalidate(ctx, awbNumber); err != nil {
		s.logger.Warn("invalidate tracking view", zap.String("awb", awbNumber), zap.Error(err))
	}
}
