package observability

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const serviceName = "board-service"

// Publisher is the transport events leave through.
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error
}

// AMQPPublisher publishes board events to a durable topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQPPublisher connects and declares the exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	if url == "" {
		return nil, errors.New("amqp url is empty")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Info().Str("exchange", exchange).Msg("event exchange declared")
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// PublishJSON sends one persistent message.
func (p *AMQPPublisher) PublishJSON(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error {
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	table := amqp.Table{}
	for key, value := range headers {
		table[key] = value
	}

	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      table,
	})
}

// Close tears down channel and connection.
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

var defaultPublisher Publisher

// SetPublisher installs the process-wide event publisher. With none set,
// PublishEvent is a no-op so the sync engine never depends on the bus.
func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

// PublishEvent stamps the envelope and hands it to the installed publisher.
// Failures are counted and logged, never propagated into board operations.
func PublishEvent(ctx context.Context, routingKey string, envelope EventEnvelope, headers map[string]string) error {
	if defaultPublisher == nil {
		return nil
	}

	envelope.Service = serviceName
	envelope.OccurredAt = time.Now().UTC().Format(time.RFC3339Nano)

	err := defaultPublisher.PublishJSON(ctx, routingKey, envelope, headers)
	if err != nil {
		IncAMQPPublishError()
		log.Warn().Err(err).Str("routing_key", routingKey).Str("event_name", envelope.EventName).Msg("event publish failed")
	}
	return err
}
