// Package events announces recorded tasks on an AMQP exchange.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"converto/internal/config"
	"converto/internal/history"
	"converto/internal/logging"
	"converto/internal/services"
)

// EventTaskRecorded is the envelope type for stored history records.
const EventTaskRecorded = "task_recorded"

const publishTimeout = 5 * time.Second

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Envelope is the JSON body of every published message.
type Envelope struct {
	Event      string         `json:"event"`
	OccurredAt time.Time      `json:"occurred_at"`
	Task       history.Record `json:"task"`
}

// Publisher sends history records to a direct exchange.
type Publisher struct {
	mu         sync.Mutex
	ch         Channel
	conn       io.Closer
	exchange   string
	routingKey string
	logger     *slog.Logger
	now        func() time.Time
}

// NewPublisher wraps an already-open channel.
func NewPublisher(ch Channel, exchange, routingKey string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logging.NewComponentLogger(logger, "events"),
		now:        time.Now,
	}
}

// Dial connects to the broker and declares the exchange. It returns
// (nil, nil) when no broker URL is configured.
func Dial(cfg config.Events, logger *slog.Logger) (*Publisher, error) {
	url := strings.TrimSpace(cfg.AMQPURL)
	if url == "" {
		return nil, nil
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "events", "dial", "connect to AMQP broker", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, services.Wrap(services.ErrTransient, "events", "channel", "open AMQP channel", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, services.Wrap(services.ErrConfiguration, "events", "declare", fmt.Sprintf("declare exchange %q", cfg.Exchange), err)
	}
	pub := NewPublisher(ch, cfg.Exchange, cfg.RoutingKey, logger)
	pub.conn = conn
	pub.logger.Info("event publisher connected",
		logging.String("exchange", cfg.Exchange),
		logging.String("routing_key", cfg.RoutingKey),
	)
	return pub, nil
}

// Publish sends rec as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, rec history.Record) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(Envelope{Event: EventTaskRecorded, OccurredAt: p.now().UTC(), Task: rec})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return errors.New("event publisher closed")
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Type:         EventTaskRecorded,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}
