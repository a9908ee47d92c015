package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	// Declare exchange
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Bind queue to exchange
	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishRefresh publishes a refresh message for the given scope.
func (c *Client) PublishRefresh(ctx context.Context, scope RefreshScope, accountID string) error {
	msg := NewRefreshMessage(scope, accountID)
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid refresh message: %w", err)
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent, // make message persistent
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published refresh message",
		"scope", msg.Scope,
		"account_id", msg.AccountID,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// ConsumeRefresh consumes refresh messages until the context is cancelled.
func (c *Client) ConsumeRefresh(ctx context.Context, handler func(*RefreshMessage) error) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming refresh messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msg, err := RefreshMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			slog.InfoContext(ctx, "Processing refresh message",
				"scope", msg.Scope,
				"account_id", msg.AccountID)

			if err := handler(msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					"error", err,
					"scope", msg.Scope,
					"account_id", msg.AccountID)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false) // acknowledge successful processing
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
