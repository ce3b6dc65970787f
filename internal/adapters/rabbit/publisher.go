package rabbit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"cinema-ticketing/internal/observability"
)

const exchange = "cinema.events"

// Publisher is the fire-and-forget sink for domain events. Publish
// never fails the caller: errors are logged and dropped, delivery is
// best effort by contract.
type Publisher struct {
	ch     *amqp.Channel
	logger observability.Logger
}

func NewPublisher(conn *amqp.Connection, logger observability.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	err = ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return nil, err
	}
	return &Publisher{ch: ch, logger: logger}, nil
}

func (p *Publisher) Publish(ctx context.Context, event string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithField("event", event).Error("failed to encode event payload", err)
		return
	}
	msg := amqp.Publishing{
		MessageId:   uuid.New().String(),
		ContentType: "application/json",
		Type:        event,
		Body:        body,
	}
	if err := p.ch.PublishWithContext(ctx, exchange, event, false, false, msg); err != nil {
		p.logger.WithField("event", event).Error("failed to publish event", err)
	}
}
