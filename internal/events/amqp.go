package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Topology names
const (
	Exchange = "catalog.analysis"
	Queue    = "catalog.analysis.events"
)

// AMQPPublisher publishes events to a RabbitMQ topic exchange and reconnects
// when the broker drops the connection.
type AMQPPublisher struct {
	url    string
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel

	closed   bool
	closedCh chan struct{}
}

// NewAMQPPublisher dials url, declares the topology and starts watching the connection.
func NewAMQPPublisher(url string, logger *slog.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &AMQPPublisher{
		url:      url,
		logger:   logger.With("component", "amqp_publisher"),
		closedCh: make(chan struct{}),
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	go p.watch()
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := declareTopology(ch); err != nil {
		_ = conn.Close()
		return err
	}

	p.mu.Lock()
	p.conn = conn
	p.channel = ch
	p.mu.Unlock()

	p.logger.Info("connected to RabbitMQ")
	return nil
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", Exchange, err)
	}
	if _, err := ch.QueueDeclare(Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", Queue, err)
	}
	if err := ch.QueueBind(Queue, "analysis.*", Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", Queue, err)
	}
	return nil
}

// watch reconnects with exponential backoff whenever the connection closes.
func (p *AMQPPublisher) watch() {
	for {
		p.mu.RLock()
		conn := p.conn
		p.mu.RUnlock()

		notify := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-p.closedCh:
			return
		case err := <-notify:
			if err != nil {
				p.logger.Warn("connection closed", "error", err)
			}
		}

		delay := time.Second
		for {
			select {
			case <-p.closedCh:
				return
			case <-time.After(delay):
			}
			if err := p.connect(); err != nil {
				p.logger.Warn("reconnect failed", "error", err, "delay", delay)
				delay = min(delay*2, 30*time.Second)
				continue
			}
			break
		}
	}
}

// Publish sends msg with the message type as routing key.
func (p *AMQPPublisher) Publish(ctx context.Context, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	p.mu.RLock()
	ch := p.channel
	closed := p.closed
	p.mu.RUnlock()
	if closed || ch == nil {
		return errors.New("no channel available")
	}

	err = ch.PublishWithContext(ctx, Exchange, string(msg.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    msg.Timestamp,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", Exchange, msg.Type, err)
	}

	p.logger.Debug("published message", "message_id", msg.ID, "type", msg.Type)
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.closedCh)

	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}
