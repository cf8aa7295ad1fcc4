package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "shipments"
	ExchangeKind = "topic"
	QueueName    = "shipment-service.status"
	BindingKey   = "shipment.*"
)

// session is one connection with one channel on which the shipments exchange exists.
type session struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func open(url string) (*session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	s := &session{conn: conn, channel: ch}
	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		s.close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	return s, nil
}

func (s *session) close() {
	if s.channel != nil {
		_ = s.channel.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
}
