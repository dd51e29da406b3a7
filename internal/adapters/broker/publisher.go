package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"eventrsvp/internal/domain"
)

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type dialFunc func(url string) (*amqp.Connection, channel, error)

// Publisher sends JSON messages to a durable topic exchange, using the topic as the
// routing key. A dropped connection is re-dialed on the next publish.
type Publisher struct {
	url      string
	exchange string
	logger   *slog.Logger
	dial     dialFunc

	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel
}

// NewPublisher connects to RabbitMQ and declares the exchange. An empty url returns a
// publisher that drops every message.
func NewPublisher(url, exchange string, logger *slog.Logger) (domain.EventPublisher, error) {
	if url == "" {
		return NoopPublisher{}, nil
	}
	p := &Publisher{url: url, exchange: exchange, logger: logger}
	p.dial = p.dialAndDeclare
	if err := p.ensureConnection(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) dialAndDeclare(url string) (*amqp.Connection, channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %q: %w", p.exchange, err)
	}
	return conn, ch, nil
}

func (p *Publisher) ensureConnection() error {
	if p.ch != nil && (p.conn == nil || !p.conn.IsClosed()) {
		return nil
	}
	conn, ch, err := p.dial(p.url)
	if err != nil {
		return err
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *Publisher) Publish(ctx context.Context, topic string, message any) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureConnection(); err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         topic,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, topic, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.logger.DebugContext(ctx, "published message", "topic", topic, "message_id", msg.MessageId)
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NoopPublisher discards messages.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
