package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/events"
	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockStaleLister struct {
	listFn func(ctx context.Context, before time.Time, limit int) ([]models.Booking, error)
}

func (m *mockStaleLister) ListStale(ctx context.Context, before time.Time, limit int) ([]models.Booking, error) {
	return m.listFn(ctx, before, limit)
}

type mockPublisher struct {
	publishFn func(ctx context.Context, key string, payload any) error
}

func (m *mockPublisher) Publish(ctx context.Context, key string, payload any) error {
	return m.publishFn(ctx, key, payload)
}

func TestScan_PublishesEachStaleBooking(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	var cutoff time.Time
	lister := &mockStaleLister{
		listFn: func(ctx context.Context, before time.Time, limit int) ([]models.Booking, error) {
			cutoff = before
			return []models.Booking{
				{ID: 1, AWB: "CX1", CurrentStatus: models.StatusInTransit},
				{ID: 2, AWB: "CX2", CurrentStatus: models.StatusOnHold},
			}, nil
		},
	}
	var sent []events.StaleBooking
	pub := &mockPublisher{
		publishFn: func(ctx context.Context, key string, payload any) error {
			assert.Equal(t, events.RoutingStale, key)
			sent = append(sent, payload.(events.StaleBooking))
			return nil
		},
	}

	s := NewStaleScanner(lister, pub, 48*time.Hour, zap.NewNop())
	s.now = func() time.Time { return now }

	n, err := s.Scan(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, now.Add(-48*time.Hour), cutoff)
	assert.Equal(t, "CX2", sent[1].AWB)
}

func TestScan_PublishFailureSkipsBooking(t *testing.T) {
	lister := &mockStaleLister{
		listFn: func(ctx context.Context, before time.Time, limit int) ([]models.Booking, error) {
			return []models.Booking{{ID: 1}, {ID: 2}}, nil
		},
	}
	pub := &mockPublisher{
		publishFn: func(ctx context.Context, key string, payload any) error {
			if payload.(events.StaleBooking).BookingID == 1 {
				return errors.New("channel closed")
			}
			return nil
		},
	}

	n, err := NewStaleScanner(lister, pub, time.Hour, zap.NewNop()).Scan(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScan_ListError(t *testing.T) {
	lister := &mockStaleLister{
		listFn: func(ctx context.Context, before time.Time, limit int) ([]models.Booking, error) {
			return nil, errors.New("db down")
		},
	}

	_, err := NewStaleScanner(lister, &mockPublisher{}, time.Hour, zap.NewNop()).Scan(context.Background())

	assert.ErrorContains(t, err, "db down")
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s := NewStaleScanner(&mockStaleLister{}, &mockPublisher{}, time.Hour, zap.NewNop())

	_, err := s.Start(context.Background(), "every tuesday-ish")

	assert.Error(t, err)
}
