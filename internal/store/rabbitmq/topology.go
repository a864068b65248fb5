package rabbitmq

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Topology is the queue trio behind one job stream: the main work queue,
// a retry queue that delays redeliveries, and a dead-letter queue for
// messages that exhausted their attempts.
type Topology struct {
	Main  string
	Retry string
	DLQ   string
}

const (
	// retryDelay is how long a redelivered job sits on the retry queue
	// before its TTL dead-letters it back onto the main queue.
	retryDelay = 15 * time.Second

	// MaxAttempts bounds redeliveries per message; past it the message
	// goes to the DLQ.
	MaxAttempts = 3

	attemptsHeader = "x-attempts"
)

func queueTopology(queue string) Topology {
	return Topology{
		Main:  queue,
		Retry: queue + ".retry",
		DLQ:   queue + ".dlq",
	}
}

// Retry queue: message TTL -> dead-letter back to the main queue.
func retryQueueArgs(t Topology) amqp.Table {
	return amqp.Table{
		"x-message-ttl":             retryDelay.Milliseconds(),
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": t.Main,
	}
}

// Main queue: dead-letter to DLQ on reject/nack(requeue=false).
func mainQueueArgs(t Topology) amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": t.DLQ,
	}
}

// DeclareTopology declares all three queues on ch. Every process touching
// the job stream declares through here: RabbitMQ rejects a redeclaration
// with inequivalent arguments, so the argument tables must come from a
// single place.
func DeclareTopology(ch *amqp.Channel, queue string) (Topology, error) {
	t := queueTopology(queue)

	if _, err := ch.QueueDeclare(
		t.DLQ,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false,
		nil,
	); err != nil {
		return t, err
	}

	if _, err := ch.QueueDeclare(
		t.Retry,
		true,
		false,
		false,
		false,
		retryQueueArgs(t),
	); err != nil {
		return t, err
	}

	if _, err := ch.QueueDeclare(
		t.Main,
		true,
		false,
		false,
		false,
		mainQueueArgs(t),
	); err != nil {
		return t, err
	}

	return t, nil
}

// Attempts reads the redelivery counter stamped on retried messages. A
// message fresh from the publisher carries no header and counts as zero.
func Attempts(d amqp.Delivery) int {
	if d.Headers == nil {
		return 0
	}
	switch v := d.Headers[attemptsHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
