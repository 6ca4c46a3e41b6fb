package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Publisher sends a JSON body to an exchange under a routing key.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body any) error
	Close()
}

// Producer publishes to RabbitMQ over one connection and channel. A failed
// declare or publish reopens the channel once and retries.
type Producer struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	declared map[string]bool
	logger   *slog.Logger
}

// Dial connects to the broker at rawURL with a bounded dial timeout.
func Dial(rawURL string, logger *slog.Logger) (*Producer, error) {
	cleanURL, err := sanitizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Producer{
		conn:     conn,
		channel:  ch,
		declared: make(map[string]bool),
		logger:   logger,
	}, nil
}

// Publish declares exchange as a durable topic exchange on first use and
// publishes body as persistent JSON.
func (p *Producer) Publish(ctx context.Context, exchange, routingKey string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         payload,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.publish(ctx, exchange, routingKey, msg)
	if err == nil {
		return nil
	}

	p.logger.Warn("amqp: publish failed; reopening channel",
		"exchange", exchange,
		"routing_key", routingKey,
		"error", err,
	)
	if reopenErr := p.reopen(); reopenErr != nil {
		return errors.Join(err, reopenErr)
	}
	return p.publish(ctx, exchange, routingKey, msg)
}

func (p *Producer) publish(ctx context.Context, exchange, routingKey string, msg amqp091.Publishing) error {
	if !p.declared[exchange] {
		if err := p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			return err
		}
		p.declared[exchange] = true
	}
	return p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
}

func (p *Producer) reopen() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	_ = p.channel.Close()
	p.channel = ch
	p.declared = make(map[string]bool)
	return nil
}

// Close closes the channel and connection.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Fallback is a no-op Publisher used when the broker is unavailable at
// startup. Every skipped message is logged.
type Fallback struct {
	Logger *slog.Logger
}

// Publish implements Publisher.
func (f Fallback) Publish(_ context.Context, exchange, routingKey string, _ any) error {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("amqp: publish skipped (fallback mode)", "exchange", exchange, "routing_key", routingKey)
	return nil
}

// Close implements Publisher.
func (Fallback) Close() {}

func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	if idx := strings.Index(strings.ToLower(clean), "amqp"); idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("amqp: URL scheme must be amqp:// or amqps://")
	}
	return clean, nil
}
