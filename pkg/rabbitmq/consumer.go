package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// prefetch bounds unacked deliveries held by one consumer.
const prefetch = 20

type Consumer struct {
	*session
	logger *zap.Logger
}

// NewConsumer declares the durable status queue and binds it to every shipment.* key.
func NewConsumer(url string, logger *zap.Logger) (*Consumer, error) {
	s, err := open(url)
	if err != nil {
		return nil, err
	}

	if err := setupQueue(s.channel); err != nil {
		s.close()
		return nil, err
	}
	return &Consumer{session: s, logger: logger}, nil
}

func setupQueue(ch *amqp.Channel) error {
	q, err := ch.QueueDeclare(QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, BindingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue bind: %w", err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("rabbitmq qos: %w", err)
	}
	return nil
}

// Consume starts delivery with manual acks; the status consumer acks once subscribers ran.
func (c *Consumer) Consume() (<-chan amqp.Delivery, error) {
	msgs, err := c.channel.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq consume: %w", err)
	}

	c.logger.Info("consuming", zap.String("queue", QueueName), zap.String("binding", BindingKey))
	return msgs, nil
}

func (c *Consumer) Close() {
	c.close()
}
