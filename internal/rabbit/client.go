package rabbit

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/zlog"
)

type Config struct {
	URL      string
	Exchange string
	Queue    string
}

type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
}

// Publisher sends a message, optionally held back by the delayed exchange.
type Publisher interface {
	Publish(ctx context.Context, message []byte, delay time.Duration) error
}

// Consumer delivers queued messages to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handler func([]byte) error) error
}

// NewClient connects and declares a delayed exchange bound to queue. The
// broker needs the rabbitmq_delayed_message_exchange plugin.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to connect to RabbitMQ")
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	client := &Client{conn: conn, channel: ch, exchange: cfg.Exchange, queue: cfg.Queue}

	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		"x-delayed-message",
		true,
		false,
		false,
		false,
		amqp.Table{"x-delayed-type": "direct"},
	); err != nil {
		client.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		client.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(cfg.Queue, cfg.Queue, cfg.Exchange, false, nil); err != nil {
		client.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	zlog.Logger.Info().Str("exchange", cfg.Exchange).Str("queue", cfg.Queue).Msg("RabbitMQ initialized")
	return client, nil
}

func (c *Client) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	zlog.Logger.Info().Msg("RabbitMQ connection closed")
}

func (c *Client) Publish(ctx context.Context, message []byte, delay time.Duration) error {
	headers := amqp.Table{}
	if delay > 0 {
		headers["x-delay"] = int32(delay.Milliseconds())
	}

	err := c.channel.PublishWithContext(ctx,
		c.exchange,
		c.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         message,
			Timestamp:    time.Now(),
			Headers:      headers,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", c.exchange, err)
	}
	zlog.Logger.Debug().Str("exchange", c.exchange).Dur("delay", delay).Msg("message published")
	return nil
}

// Consume acks a delivery when handler succeeds and drops it otherwise.
// Handlers that want a retry republish the message themselves.
func (c *Client) Consume(ctx context.Context, handler func([]byte) error) error {
	msgs, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	go func() {
		for d := range msgs {
			if err := handler(d.Body); err != nil {
				zlog.Logger.Warn().Err(err).Str("queue", c.queue).Msg("failed to process message")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}()

	zlog.Logger.Info().Str("queue", c.queue).Msg("started consuming")
	return nil
}
