package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultQueue is the durable queue review events are routed to.
const DefaultQueue = "storefront.reviews"

// Publisher sends events to RabbitMQ through the default exchange, using
// the queue name as routing key.  Each call dials its own connection so a
// broker restart never leaves the publisher holding a dead channel.
type Publisher struct {
	url   string
	queue string
	log   *zap.Logger
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url, queue string, log *zap.Logger) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Publisher{url: url, queue: queue, log: log}
}

// Publish sends ev as a persistent JSON message.  Errors are logged and
// returned so the caller can choose to ignore them.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		p.log.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.log.Warn("rabbitmq: publish failed", zap.String("type", ev.Type), zap.Error(err))
		return err
	}
	return nil
}
