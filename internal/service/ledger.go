package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/events"
	"github.com/Eursukkul/courier-backoffice/internal/lifecycle"
	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/Eursukkul/courier-backoffice/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AppendRequest is one status change to record. ExpectedVersion is the booking version the
// caller validated against.
type AppendRequest struct {
	BookingID       uint
	AWB             string
	ExpectedVersion int
	From            models.ShipmentStatus
	Event           models.StatusEvent
	Stamps          []lifecycle.Stamp
}

// Ledger is the only writer of booking history and of the booking's current status.
type Ledger struct {
	txm       repository.Transactor
	bookings  repository.BookingRepository
	history   repository.StatusEventRepository
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewLedger(txm repository.Transactor, bookings repository.BookingRepository, history repository.StatusEventRepository, publisher events.Publisher, logger *zap.Logger) *Ledger {
	return &Ledger{
		txm:       txm,
		bookings:  bookings,
		history:   history,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Seed writes the first Booked entry for a booking created in tx.
func (l *Ledger) Seed(ctx context.Context, tx *gorm.DB, b *models.Booking, recordedBy string) error {
	ev := &models.StatusEvent{
		BookingID:  b.ID,
		Sequence:   1,
		Status:     models.StatusBooked,
		Location:   b.Origin,
		RecordedBy: recordedBy,
		OccurredAt: b.BookingDate,
	}
	if err := l.history.Create(ctx, tx, ev); err != nil {
		return fmt.Errorf("seed history: %w", err)
	}
	return nil
}

// Append records req.Event and moves the booking's status pointer in one transaction.
func (l *Ledger) Append(ctx context.Context, req AppendRequest) (*models.StatusEvent, error) {
	ev := req.Event
	ev.BookingID = req.BookingID
	ev.Sequence = req.ExpectedVersion + 1
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = l.now()
	}
	ev.OccurredAt = ev.OccurredAt.UTC()

	stampCols := make([]string, len(req.Stamps))
	for i, s := range req.Stamps {
		stampCols[i] = string(s)
	}

	err := l.txm.Transaction(ctx, func(tx *gorm.DB) error {
		last, err := l.history.FindLast(ctx, tx, req.BookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("read last event: %w", err)
		}
		if last.Sequence != req.ExpectedVersion {
			return ErrConcurrentModification
		}
		if ev.OccurredAt.Before(last.OccurredAt) {
			return fmt.Errorf("%w: %s is before %s", ErrOutOfOrder, ev.OccurredAt.Format(time.RFC3339), last.OccurredAt.Format(time.RFC3339))
		}

		updated, err := l.bookings.UpdateStatus(ctx, tx, repository.StatusUpdate{
			BookingID:       req.BookingID,
			ExpectedVersion: req.ExpectedVersion,
			Status:          ev.Status,
			StampColumns:    stampCols,
			At:              ev.OccurredAt,
		})
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !updated {
			exists, err := l.bookings.Exists(ctx, tx, req.BookingID)
			if err != nil {
				return fmt.Errorf("check booking: %w", err)
			}
			if !exists {
				return ErrBookingNotFound
			}
			return ErrConcurrentModification
		}

		if err := l.history.Create(ctx, tx, &ev); err != nil {
			return fmt.Errorf("append event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.publish(ctx, events.StatusChanged{
		BookingID:  req.BookingID,
		AWB:        req.AWB,
		From:       req.From,
		To:         ev.Status,
		Sequence:   ev.Sequence,
		Location:   ev.Location,
		OccurredAt: ev.OccurredAt,
	})
	return &ev, nil
}

// Read returns the booking's history, oldest first. The slice is the caller's to keep.
func (l *Ledger) Read(ctx context.Context, bookingID uint) ([]models.StatusEvent, error) {
	list, err := l.history.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(list) == 0 {
		return nil, ErrBookingNotFound
	}
	out := make([]models.StatusEvent, len(list))
	copy(out, list)
	return out, nil
}

// publish runs after commit; a failure cannot undo the write, so it is logged rather than returned.
func (l *Ledger) publish(ctx context.Context, ev events.StatusChanged) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, events.RoutingStatusChanged, ev); err != nil {
		l.logger.Error("publish status change",
			zap.Uint("booking_id", ev.BookingID),
			zap.Int("sequence", ev.Sequence),
			zap.Error(err))
	}
}
