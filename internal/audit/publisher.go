package audit

import (
	"context"
	"time"
)

// Sink is an append-only audit destination: a store, a Kafka topic, or both
// behind a fan-out.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. In sync mode Emit appends
// directly; with an async buffer a background worker drains an inbox so
// emitting never blocks the funding path.
type Publisher struct {
	sink   Sink
	inbox  chan Event
	done   chan struct{}
	cancel context.CancelFunc
}

type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous publishing with the given inbox size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

// NewPublisher builds a publisher over the given sink.
func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		p.done = make(chan struct{})
		w := NewWorker(sink, p.inbox)
		go func() {
			defer close(p.done)
			_ = w.Run(ctx)
		}()
	}
	return p
}

// Emit records an event. The category is always derived from the action so
// callers cannot misfile a reconciliation hazard.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Category = AuditEvent(event.Action).Category()

	if p.inbox == nil {
		return p.sink.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the async worker, if any, after draining pending events.
func (p *Publisher) Close() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}
