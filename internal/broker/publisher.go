package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Guizzs26/suya-queue/internal/models"
	"github.com/Guizzs26/suya-queue/pkg/infra"
)

var ErrBrokerUnavailable = errors.New("event broker unavailable")

// eventClient is the part of RabbitMQClient the publisher depends on
type eventClient interface {
	Publish(ctx context.Context, routingKey string, ev models.QueueEvent) error
	IsHealthy() bool
	Close() error
}

type dialFunc func(url string, l *slog.Logger) (eventClient, error)

// Publisher forwards engine events to RabbitMQ. The link is (re)established lazily on the next event;
// while the broker is down events are dropped and the next attempt waits out a backoff.
type Publisher struct {
	url     string
	logger  *slog.Logger
	dial    dialFunc
	backoff *infra.Backoff
	now     func() time.Time

	mu      sync.Mutex
	client  eventClient
	retryAt time.Time
}

func NewPublisher(url string, logger *slog.Logger) *Publisher {
	return &Publisher{
		url:    url,
		logger: logger,
		dial: func(url string, l *slog.Logger) (eventClient, error) {
			return NewRabbitMQClient(url, l)
		},
		backoff: infra.NewBackoff(time.Second, time.Minute, 2.0),
		now:     time.Now,
	}
}

// Notify publishes ev with its type as routing key
func (p *Publisher) Notify(ctx context.Context, ev models.QueueEvent) error {
	client, err := p.link()
	if err != nil {
		return err
	}
	if err := client.Publish(ctx, string(ev.Type), ev); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *Publisher) link() (eventClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil && p.client.IsHealthy() {
		return p.client, nil
	}
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}

	if now := p.now(); now.Before(p.retryAt) {
		return nil, fmt.Errorf("%w: next attempt in %s", ErrBrokerUnavailable, p.retryAt.Sub(now).Round(time.Millisecond))
	}

	client, err := p.dial(p.url, p.logger)
	if err != nil {
		wait := p.backoff.Next()
		p.retryAt = p.now().Add(wait)
		p.logger.Error("RabbitMQ link failure, events dropped until retry", "wait", wait, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
	}

	p.logger.Info("RabbitMQ link established 🚀")
	p.backoff.Reset()
	p.retryAt = time.Time{}
	p.client = client
	return client, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		err := p.client.Close()
		p.client = nil
		return err
	}
	return nil
}
