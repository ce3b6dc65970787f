package rabbit

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer binds a durable queue to the events exchange. Used by the
// audit binary; any number of further subscribers can bind their own
// queues without the core knowing.
type Consumer struct {
	ch    *amqp.Channel
	queue string
}

func NewConsumer(conn *amqp.Connection, queue string) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if _, err = ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, err
	}
	if err = ch.QueueBind(queue, "#", exchange, false, nil); err != nil {
		return nil, err
	}
	return &Consumer{ch: ch, queue: queue}, nil
}

func (c *Consumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	return c.ch.Consume(c.queue, "", false, false, false, false, nil)
}
