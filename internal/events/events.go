package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/models"
	"go.uber.org/zap"
)

const (
	RoutingStatusChanged = "shipment.status_changed"
	RoutingInvoiceReady  = "shipment.invoice_ready"
	RoutingStale         = "shipment.stale"
)

// StatusChanged is emitted by the ledger after a history row is committed.
type StatusChanged struct {
	BookingID  uint                  `json:"booking_id"`
	AWB        string                `json:"awb"`
	From       models.ShipmentStatus `json:"from"`
	To         models.ShipmentStatus `json:"to"`
	Sequence   int                   `json:"sequence"`
	Location   string                `json:"location,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
}

type InvoiceReady struct {
	BookingID   uint      `json:"booking_id"`
	AWB         string    `json:"awb"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type StaleBooking struct {
	BookingID     uint                  `json:"booking_id"`
	AWB           string                `json:"awb"`
	CurrentStatus models.ShipmentStatus `json:"current_status"`
	LastUpdatedAt time.Time             `json:"last_updated_at"`
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type StatusSubscriber interface {
	OnStatusChanged(ctx context.Context, ev StatusChanged) error
}

// Dispatcher fans StatusChanged out to in-process subscribers. It doubles as the Publisher
// when no broker is configured.
type Dispatcher struct {
	mu     sync.RWMutex
	subs   []StatusSubscriber
	logger *zap.Logger
}

func NewDispatcher(logger *zap.Logger, subs ...StatusSubscriber) *Dispatcher {
	return &Dispatcher{subs: subs, logger: logger}
}

func (d *Dispatcher) Subscribe(s StatusSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, s)
}

func (d *Dispatcher) Subscribers() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// Dispatch runs every subscriber, even after a failure, and joins their errors.
func (d *Dispatcher) Dispatch(ctx context.Context, ev StatusChanged) error {
	d.mu.RLock()
	subs := append([]StatusSubscriber(nil), d.subs...)
	d.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := s.OnStatusChanged(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) Publish(ctx context.Context, routingKey string, payload any) error {
	if ev, ok := payload.(StatusChanged); ok && routingKey == RoutingStatusChanged {
		return d.Dispatch(ctx, ev)
	}
	d.logger.Info("event", zap.String("routing_key", routingKey), zap.Any("payload", payload))
	return nil
}
