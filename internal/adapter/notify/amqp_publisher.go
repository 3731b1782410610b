package notify

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

	"github.com/rl1809/lottery-cart/internal/core/domain"
)

const (
	QueueName      = "cart.notifications"
	publishTimeout = 2 * time.Second
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends notifications as persistent JSON messages to the
// cart.notifications queue. A closed channel is re-dialed once per publish;
// failures are logged and dropped.
type AMQPPublisher struct {
	log  *slog.Logger
	dial func() (io.Closer, channel, error)

	mu   sync.Mutex
	conn io.Closer
	ch   channel
}

// DialAMQP connects to url and declares the durable notification queue.
func DialAMQP(url string, log *slog.Logger) (*AMQPPublisher, error) {
	if log == nil {
		log = slog.Default()
	}

	p := &AMQPPublisher{
		log:  log.With("component", "amqp_publisher"),
		dial: func() (io.Closer, channel, error) { return openChannel(url) },
	}
	conn, ch, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return p, nil
}

func openChannel(url string) (io.Closer, channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	return conn, ch, nil
}

func (p *AMQPPublisher) Notify(ctx context.Context, n domain.Notification) {
	if err := p.Publish(ctx, n); err != nil {
		p.log.Warn("publish notification failed", "kind", n.Kind, "session_id", n.SessionID, "err", err)
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    n.At.UTC(),
		Type:         string(n.Kind),
		Body:         body,
	}

	// amqp channels must not be shared between concurrent publishers
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		if err := p.reconnectLocked(); err != nil {
			return err
		}
	}
	err = p.ch.PublishWithContext(ctx, "", QueueName, false, false, msg)
	if !errors.Is(err, amqp.ErrClosed) || p.dial == nil {
		return err
	}

	p.log.Info("rabbitmq channel closed, reconnecting")
	if err := p.reconnectLocked(); err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, "", QueueName, false, false, msg)
}

// reconnectLocked requires p.mu. On failure the publisher is left without a
// channel and the next publish dials again.
func (p *AMQPPublisher) reconnectLocked() error {
	p.closeLocked()
	if p.dial == nil {
		return amqp.ErrClosed
	}
	conn, ch, err := p.dial()
	if err != nil {
		return fmt.Errorf("rabbitmq reconnect: %w", err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *AMQPPublisher) closeLocked() error {
	var err error
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return err
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}
