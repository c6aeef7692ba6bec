package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrBufferFull is returned by Emit when the worker has fallen behind.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher hands events to a background worker over a bounded buffer so
// request paths never block on audit storage.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
	now    func() time.Time
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithPublisherLogger sets a logger for dropped events.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithClock overrides the timestamp source for events emitted without one.
func WithClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		p.now = now
	}
}

// NewPublisher creates a publisher with the given buffer size.
func NewPublisher(buffer int, opts ...PublisherOption) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &Publisher{
		inbox:  make(chan Event, buffer),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit enqueues an event without blocking. A full buffer drops the event.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	event = event.Normalize(p.now())
	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.WarnContext(ctx, "audit event dropped",
			"action", event.Action,
			"request_id", event.RequestID,
		)
		return ErrBufferFull
	}
}

// Inbox exposes the receive side for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
