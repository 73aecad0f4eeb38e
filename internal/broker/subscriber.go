package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Guizzs26/suya-queue/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Subscriber tails queue events through a private queue that disappears with the connection
type Subscriber struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

func NewSubscriber(url string, logger *slog.Logger) (*Subscriber, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// Prefetch 1 keeps events in publish order
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := declareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare topic exchange: %w", err)
	}

	return &Subscriber{conn: conn, channel: ch, logger: logger}, nil
}

// Listen delivers events matching bindingKey ("#" for all) to handle until ctx is done
func (s *Subscriber) Listen(ctx context.Context, bindingKey string, handle func(models.QueueEvent) error) error {
	q, err := s.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := s.channel.QueueBind(q.Name, bindingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := s.channel.Consume(q.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	s.logger.Info("Subscriber is online and waiting for events", "queue", q.Name, "binding_key", bindingKey)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			ev, err := decodeEvent(d.Body)
			if err != nil {
				s.logger.Error("Failed to decode event", "error", err)
				d.Nack(false, false) // Drop malformed messages
				continue
			}

			// Events describe state that is already superseded by the next poll; a failed handler is not retried
			if err := handle(ev); err != nil {
				s.logger.Warn("Event handler failed", "event_id", ev.EventID, "error", err)
				d.Nack(false, false)
				continue
			}

			if err := d.Ack(false); err != nil {
				s.logger.Error("Failed to Ack event", "event_id", ev.EventID, "error", err)
			}
		}
	}
}

func decodeEvent(body []byte) (models.QueueEvent, error) {
	var ev models.QueueEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, err
	}
	if ev.Type == "" {
		return ev, fmt.Errorf("event without type")
	}
	return ev, nil
}

// Close gracefully terminates RabbitMQ resources
func (s *Subscriber) Close() {
	s.logger.Info("Shutting down RabbitMQ subscriber")
	s.channel.Close()
	s.conn.Close()
}
