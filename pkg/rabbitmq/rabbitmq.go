package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// OrderQueue is the durable queue order events are published to.
const OrderQueue = "order_queue"

// OrderCreatedEvent is published after every successful checkout.
type OrderCreatedEvent struct {
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	Total     float64   `json:"total"`
	Items     int       `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex // serialises publishes on the shared channel
	log     logrus.FieldLogger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, opens a channel and declares the order queue.
func NewClient(cfg Config, log logrus.FieldLogger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declareOrderQueue(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.WithField("queue", OrderQueue).Info("RabbitMQ client connected")

	return &Client{
		conn:    conn,
		channel: ch,
		log:     log,
	}, nil
}

func declareOrderQueue(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		OrderQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return q, fmt.Errorf("failed to declare %s: %w", OrderQueue, err)
	}
	return q, nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing RabbitMQ client: %v", errs)
	}
	return nil
}

// PublishOrderCreated publishes event to the order queue as a persistent JSON message.
func (c *Client) PublishOrderCreated(ctx context.Context, event OrderCreatedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := EncodeOrderCreated(event)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	err = c.channel.Publish(
		"",         // default exchange
		OrderQueue, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         "order.created",
			MessageId:    event.OrderID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish order %s: %w", event.OrderID, err)
	}

	c.log.WithField("order_id", event.OrderID).Debug("Published order created event")
	return nil
}

// EncodeOrderCreated renders the wire form of an order event.
func EncodeOrderCreated(event OrderCreatedEvent) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order event: %w", err)
	}
	return body, nil
}

// DecodeOrderCreated parses an order event and rejects messages without an order ID.
func DecodeOrderCreated(body []byte) (OrderCreatedEvent, error) {
	var event OrderCreatedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("malformed order event: %w", err)
	}
	if event.OrderID == "" {
		return event, fmt.Errorf("order event without order_id")
	}
	return event, nil
}

// ConsumeOrderEvents delivers order events to handler until ctx is done.
// Messages that fail to decode are dropped; handler errors requeue the message once.
func (c *Client) ConsumeOrderEvents(ctx context.Context, handler func(OrderCreatedEvent) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		OrderQueue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.WithField("queue", OrderQueue).Info("Waiting for order events")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				c.handleDelivery(msg, handler)
			}
		}
	}()
	return nil
}

func (c *Client) handleDelivery(msg amqp.Delivery, handler func(OrderCreatedEvent) error) {
	entry := c.log.WithField("delivery_tag", msg.DeliveryTag)

	event, err := DecodeOrderCreated(msg.Body)
	if err != nil {
		entry.WithError(err).Warn("Discarding order message")
		if err := msg.Nack(false, false); err != nil {
			entry.WithError(err).Error("Failed to nack message")
		}
		return
	}

	if err := handler(event); err != nil {
		entry.WithError(err).WithField("order_id", event.OrderID).Error("Error processing order event")
		if err := msg.Nack(false, !msg.Redelivered); err != nil {
			entry.WithError(err).Error("Failed to nack message")
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		entry.WithError(err).Error("Failed to ack message")
	}
}
