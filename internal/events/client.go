package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

// Deliveries failing this many times in a row are dropped.
const maxDeliveryAttempts = 5

// Client publishes and consumes events over AMQP 0-9-1.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	c := &Client{url: url, exchangeName: exchangeName, queueName: queueName}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// one binding per event type; the routing key is the type
	for _, key := range []string{TypeCreated, TypeDeleted} {
		if err := ch.QueueBind(queue, key, exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue to %s: %w", key, err)
		}
	}
	return nil
}

// Publish implements Publisher. A broken connection is re-dialed once.
func (c *Client) Publish(ctx context.Context, e Event) error {
	body, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.publishLocked(ctx, e.Type, body)
	if isConnectionError(err) {
		slog.WarnContext(ctx, "AMQP connection lost, reconnecting", "error", err)
		c.closeLocked()
		if rerr := c.connect(); rerr != nil {
			return fmt.Errorf("reconnect: %w", rerr)
		}
		err = c.publishLocked(ctx, e.Type, body)
	}
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	slog.InfoContext(ctx, "Published transaction event",
		"type", e.Type,
		"transaction_id", e.Transaction.ID,
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) publishLocked(ctx context.Context, key string, body []byte) error {
	if c.channel == nil {
		return amqp091.ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		key,            // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Type:         key,
			Body:         body,
		},
	)
}

// Handler processes one event. Returning an error requeues the delivery after a backoff.
type Handler func(ctx context.Context, e Event) error

// Consume delivers queued events to handler until ctx is cancelled or the channel closes.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return amqp091.ErrClosed
	}

	msgs, err := ch.Consume(
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

	slog.InfoContext(ctx, "Started consuming transaction events", "queue", c.queueName)

	failures := newDeliveryFailures()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed: %w", amqp091.ErrClosed)
			}

			switch v, wait := failures.handle(ctx, delivery.Body, handler); v {
			case verdictAck:
				delivery.Ack(false)
			case verdictDrop:
				delivery.Nack(false, false)
			case verdictRequeue:
				select {
				case <-ctx.Done():
					delivery.Nack(false, true)
					return ctx.Err()
				case <-time.After(wait):
				}
				delivery.Nack(false, true)
			}
		}
	}
}

type verdict int

const (
	verdictAck verdict = iota
	verdictRequeue
	verdictDrop
)

// deliveryFailures counts consecutive handler failures per event so a poisoned
// event is delayed on each redelivery and eventually dropped.
type deliveryFailures struct {
	attempts map[string]int
}

func newDeliveryFailures() *deliveryFailures {
	return &deliveryFailures{attempts: make(map[string]int)}
}

// handle runs handler on body and decides how the delivery is settled.
// For verdictRequeue the returned duration is the delay before requeueing.
func (f *deliveryFailures) handle(ctx context.Context, body []byte, handler Handler) (verdict, time.Duration) {
	e, err := EventFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal event", "error", err)
		return verdictDrop, 0
	}

	key := e.Type + ":" + e.Transaction.ID
	if err := handler(ctx, e); err != nil {
		f.attempts[key]++
		n := f.attempts[key]
		if n >= maxDeliveryAttempts {
			delete(f.attempts, key)
			slog.ErrorContext(ctx, "Dropping event after repeated failures",
				"error", err,
				"type", e.Type,
				"transaction_id", e.Transaction.ID,
				"attempts", n)
			return verdictDrop, 0
		}
		wait := exponentialBackoff(n - 1)
		slog.ErrorContext(ctx, "Failed to handle event",
			"error", err,
			"type", e.Type,
			"transaction_id", e.Transaction.ID,
			"attempt", n,
			"requeue_in", wait)
		return verdictRequeue, wait
	}

	delete(f.attempts, key)
	return verdictAck, 0
}

// ConsumeWithRetry keeps consuming across connection failures, backing off between attempts.
func (c *Client) ConsumeWithRetry(ctx context.Context, handler Handler) error {
	for attempt := 0; ; attempt++ {
		err := c.Consume(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "Consumer disconnected, retrying",
			"error", err, "attempt", attempt+1, "backoff", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		c.mu.Lock()
		c.closeLocked()
		cerr := c.connect()
		c.mu.Unlock()
		if cerr != nil {
			slog.WarnContext(ctx, "Reconnect failed", "error", cerr)
			continue
		}
		attempt = -1
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		if err != nil && !errors.Is(err, amqp091.ErrClosed) {
			return err
		}
	}
	return nil
}

// exponentialBackoff returns 1s, 2s, 4s ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
