// Package notify hands push notifications to a delivery service. Delivery to
// devices is done by a separate consumer of the published messages.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/tomasagata/extra-api-sub001/contract"
	"github.com/tomasagata/extra-api-sub001/logger"
	"github.com/tomasagata/extra-api-sub001/model"
)

const publishTimeout = 5 * time.Second

// channel is the part of *amqp091.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	NotifyClose(c chan *amqp091.Error) chan *amqp091.Error
	Close() error
}

// dialer opens a channel ready for publishing and the connection behind it.
type dialer func() (channel, io.Closer, error)

// AMQPPublisher publishes every notification as a persistent JSON message.
// A channel or connection closed by the broker is reopened on the next publish.
type AMQPPublisher struct {
	dial       dialer
	exchange   string
	routingKey string

	mu      sync.Mutex
	conn    io.Closer
	channel channel
	closed  chan *amqp091.Error
}

func NewAMQPPublisher(url, exchange, routingKey string) (*AMQPPublisher, error) {
	p := newPublisher(func() (channel, io.Closer, error) {
		return dial(url, exchange)
	}, exchange, routingKey)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func newPublisher(dial dialer, exchange, routingKey string) *AMQPPublisher {
	return &AMQPPublisher{dial: dial, exchange: exchange, routingKey: routingKey}
}

func dial(url, exchange string) (channel, io.Closer, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}
	return ch, conn, nil
}

// connect must be called with mu held.
func (p *AMQPPublisher) connect() error {
	ch, conn, err := p.dial()
	if err != nil {
		return err
	}
	p.channel, p.conn = ch, conn
	p.closed = ch.NotifyClose(make(chan *amqp091.Error, 1))
	return nil
}

// drop must be called with mu held.
func (p *AMQPPublisher) drop() error {
	var err error
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		err = p.conn.Close()
	}
	p.channel, p.conn, p.closed = nil, nil, nil
	return err
}

// ready reopens the channel if the broker closed it. It must be called with
// mu held.
func (p *AMQPPublisher) ready(ctx context.Context) error {
	if p.channel != nil {
		select {
		case amqpErr := <-p.closed:
			log := logger.FromContext(ctx)
			log.Warn().Interface("reason", amqpErr).Msg("AMQP channel closed, reconnecting")
			p.drop()
		default:
			return nil
		}
	}
	if err := p.connect(); err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Notify(ctx context.Context, n model.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// amqp091 channels must not be shared between concurrent publishers.
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ready(ctx); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,   // exchange
		p.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    n.SentAt,
			Body:         body,
		},
	)
	if errors.Is(err, amqp091.ErrClosed) {
		p.drop()
	}
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drop()
}

// LogNotifier writes notifications to the log instead of publishing them. It
// is used when no broker is configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, n model.Notification) error {
	l.log.Info().
		Int64("user_id", n.UserID).
		Int("devices", len(n.Tokens)).
		Str("title", n.Title).
		Msg("notification not published: no broker configured")
	return nil
}

var (
	_ contract.Notifier = (*AMQPPublisher)(nil)
	_ contract.Notifier = (*LogNotifier)(nil)
)
