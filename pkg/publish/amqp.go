package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/niktheblak/helvetic/pkg/measurement"
)

const publishTimeout = 5 * time.Second

var ErrClosed = errors.New("publisher closed")

type Config struct {
	URL    string
	Queue  string
	Logger *slog.Logger
}

// AMQP publishes stored measurements to a RabbitMQ queue
type AMQP struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *slog.Logger
}

// NewAMQP connects to the broker and declares the queue
func NewAMQP(cfg Config) (*AMQP, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		cfg.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}
	cfg.Logger.LogAttrs(context.Background(), slog.LevelInfo, "Connected to message broker", slog.String("queue", cfg.Queue))
	return &AMQP{
		conn:    conn,
		channel: ch,
		queue:   cfg.Queue,
		logger:  cfg.Logger,
	}, nil
}

// Publish sends m as a JSON message
func (p *AMQP) Publish(ctx context.Context, m measurement.Measurement) error {
	msg, err := Message(m)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.channel.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		msg,
	)
}

func (p *AMQP) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		p.logger.Error("Failed to close channel", "err", err)
	}
	p.channel = nil
	return p.conn.Close()
}

// Message builds the broker message for m
func Message(m measurement.Measurement) (amqp.Publishing, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    fmt.Sprintf("%d", m.ID),
		Timestamp:    m.Timestamp,
		Type:         "measurement",
		Body:         body,
	}, nil
}
