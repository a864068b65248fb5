package rabbitmq

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer owns the worker side of the job stream: one channel with a
// prefetch window plus redelivery through the retry queue.
type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	top  Topology
}

func NewConsumer(url, queue string, prefetch int) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	top, err := DeclareTopology(ch, queue)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Consumer{conn: conn, ch: ch, top: top}, nil
}

func (c *Consumer) Deliveries() (<-chan amqp.Delivery, error) {
	return c.ch.Consume(c.top.Main, "", false, false, false, false, nil)
}

// Retry republishes d onto the retry queue with its attempt counter
// bumped, then acks the original. It reports false without publishing
// when the message has exhausted MaxAttempts; the caller dead-letters
// it instead.
func (c *Consumer) Retry(ctx context.Context, d amqp.Delivery) (bool, error) {
	n := Attempts(d) + 1
	if n > MaxAttempts {
		return false, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.ch.PublishWithContext(cctx,
		"",
		c.top.Retry,
		false,
		false,
		amqp.Publishing{
			ContentType:  d.ContentType,
			DeliveryMode: amqp.Persistent,
			Headers:      amqp.Table{attemptsHeader: int32(n)},
			Body:         d.Body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return false, err
	}
	return true, d.Ack(false)
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
