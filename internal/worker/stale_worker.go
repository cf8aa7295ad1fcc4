package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/events"
	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const staleBatch = 500

type StaleLister interface {
	ListStale(ctx context.Context, updatedBefore time.Time, limit int) ([]models.Booking, error)
}

// StaleScanner reports open bookings whose status has not moved for longer than staleAfter.
type StaleScanner struct {
	bookings   StaleLister
	publisher  events.Publisher
	staleAfter time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewStaleScanner(bookings StaleLister, publisher events.Publisher, staleAfter time.Duration, logger *zap.Logger) *StaleScanner {
	return &StaleScanner{
		bookings:   bookings,
		publisher:  publisher,
		staleAfter: staleAfter,
		logger:     logger,
		now:        time.Now,
	}
}

// Scan publishes one shipment.stale event per stale booking and returns how many it sent.
func (s *StaleScanner) Scan(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.staleAfter)
	stale, err := s.bookings.ListStale(ctx, cutoff, staleBatch)
	if err != nil {
		return 0, fmt.Errorf("list stale bookings: %w", err)
	}

	sent := 0
	for _, b := range stale {
		err := s.publisher.Publish(ctx, events.RoutingStale, events.StaleBooking{
			BookingID:     b.ID,
			AWB:           b.AWB,
			CurrentStatus: b.CurrentStatus,
			LastUpdatedAt: b.UpdatedAt,
		})
		if err != nil {
			s.logger.Error("publish stale booking", zap.Uint("booking_id", b.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// Start runs Scan on schedule until the returned cron is stopped. Overlapping runs are skipped.
func (s *StaleScanner) Start(ctx context.Context, schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(schedule, func() {
		n, err := s.Scan(ctx)
		if err != nil {
			s.logger.Error("stale scan failed", zap.Error(err))
			return
		}
		if n > 0 {
			s.logger.Info("stale bookings reported", zap.Int("count", n))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule stale scan %q: %w", schedule, err)
	}

	c.Start()
	return c, nil
}
