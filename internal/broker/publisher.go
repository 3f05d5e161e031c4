package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	QueueReservationCreated = "reservation.created"
	QueueOrderClosed        = "order.closed"
)

// Publisher sends durable domain events to RabbitMQ queues on the default exchange.
// A nil *Publisher drops every event.
type Publisher struct {
	url    string
	queues []string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects and declares the event queues.
func Dial(url string, queues ...string) (*Publisher, error) {
	const op = "broker.Dial"

	if len(queues) == 0 {
		queues = []string{QueueReservationCreated, QueueOrderClosed}
	}

	p := &Publisher{url: url, queues: queues}
	if err := p.connect(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}

	for _, q := range p.queues {
		if _, err := ch.QueueDeclare(
			q,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,
		); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return err
		}
	}

	p.conn, p.ch = conn, ch
	return nil
}

// Publish marshals event and sends it as a persistent message to queue.
// A dropped connection is re-established once.
func (p *Publisher) Publish(ctx context.Context, queue string, event any) error {
	const op = "broker.Publisher.Publish"

	if p == nil {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		if err := p.connect(); err != nil {
			return fmt.Errorf("%s: reconnect: %w", op, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
