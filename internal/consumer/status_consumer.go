package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const handleTimeout = 10 * time.Second

// Acknowledger is the part of amqp.Delivery the consumer needs; tests substitute it.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type StatusConsumer struct {
	dispatcher *events.Dispatcher
	logger     *zap.Logger
}

func NewStatusConsumer(dispatcher *events.Dispatcher, logger *zap.Logger) *StatusConsumer {
	return &StatusConsumer{dispatcher: dispatcher, logger: logger}
}

// Start feeds broker deliveries to the in-process subscribers until the channel closes.
func (sc *StatusConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			sc.handle(msg.RoutingKey, msg.Body, &msg)
		}
		sc.logger.Info("status consumer channel closed, stopping")
	}()
}

func (sc *StatusConsumer) handle(routingKey string, body []byte, ack Acknowledger) {
	if routingKey != events.RoutingStatusChanged {
		_ = ack.Ack(false)
		return
	}

	// Nobody is listening yet; leave the delivery on the queue instead of acking it away.
	if sc.dispatcher.Subscribers() == 0 {
		sc.logger.Warn("status event arrived before any subscriber, requeueing")
		_ = ack.Nack(false, true)
		return
	}

	var ev events.StatusChanged
	if err := json.Unmarshal(body, &ev); err != nil {
		sc.logger.Error("unmarshal status event", zap.Error(err))
		_ = ack.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := sc.dispatcher.Dispatch(ctx, ev); err != nil {
		sc.logger.Warn("status subscribers failed, requeueing",
			zap.Uint("booking_id", ev.BookingID), zap.Int("sequence", ev.Sequence), zap.Error(err))
		_ = ack.Nack(false, true)
		return
	}

	sc.logger.Debug("status event handled", zap.String("awb", ev.AWB), zap.String("to", ev.To.String()))
	_ = ack.Ack(false)
}
