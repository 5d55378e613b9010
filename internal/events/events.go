// Package events publishes resource-change notifications to AMQP so
// downstream consumers (exports, notifications) can react without polling.
// Publishing is best-effort; the HTTP layer never fails a request because a
// message could not be sent.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Actions carried by resource-change messages.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Message describes one mutation of one record. Consumers fetch the full
// record themselves; the payload carries just enough to locate it.
type Message struct {
	Resource  string    `json:"resource"`
	Action    string    `json:"action"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageFromJSON decodes a message body.
func MessageFromJSON(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Publisher is the mutation hook the CRUD layer calls after a successful
// create, update or delete.
type Publisher interface {
	ResourceChanged(ctx context.Context, resource, action string, id int64) error
	Close() error
}

// Nop discards all events. Used when AMQP is not configured.
type Nop struct{}

func (Nop) ResourceChanged(context.Context, string, string, int64) error { return nil }
func (Nop) Close() error                                                 { return nil }

// AMQP publishes messages to a durable direct exchange bound to a durable
// queue of the same routing key.
type AMQP struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	queue    string
	log      *slog.Logger
}

// Dial connects, declares the exchange/queue pair and binds them.
func Dial(url, exchange, queue string, log *slog.Logger) (*AMQP, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p := &AMQP{conn: conn, channel: ch, exchange: exchange, queue: queue, log: log}
	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return p, nil
}

func (p *AMQP) setup() error {
	if err := p.channel.ExchangeDeclare(p.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := p.channel.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := p.channel.QueueBind(p.queue, p.queue, p.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// ResourceChanged publishes one persistent JSON message.
func (p *AMQP) ResourceChanged(ctx context.Context, resource, action string, id int64) error {
	body, err := json.Marshal(Message{Resource: resource, Action: action, ID: id, Timestamp: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(ctx, p.exchange, p.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	p.log.Debug("published resource event", "resource", resource, "action", action, "id", id)
	return nil
}

// Consume delivers messages to handler with manual acknowledgement. Failed
// handlers nack with requeue; undecodable bodies are dropped.
func (p *AMQP) Consume(ctx context.Context, handler func(*Message) error) error {
	deliveries, err := p.channel.Consume(p.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	p.log.Info("consuming resource events", "queue", p.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			msg, err := MessageFromJSON(d.Body)
			if err != nil {
				p.log.Error("undecodable resource event", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			if err := handler(msg); err != nil {
				p.log.Error("resource event handler failed", "error", err, "resource", msg.Resource, "id", msg.ID)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (p *AMQP) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
