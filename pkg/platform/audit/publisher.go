package audit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBufferFull is returned by async Emit when the buffer cannot accept more
// events. Dropped audit events are a deliberate trade against blocking auth
// operations.
var ErrBufferFull = errors.New("audit buffer full")

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, subject string) ([]Event, error)
}

// Publisher emits audit events to a Store, synchronously by default or
// through a buffered background worker with WithAsyncBuffer. Close drains the
// buffer before returning.
type Publisher struct {
	store Store

	inbox  chan Event
	done   chan struct{}
	closed sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous mode with the given
// buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

// NewPublisher constructs a publisher over the given store.
func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.done = make(chan struct{})
		go p.drain()
	}
	return p
}

// Emit records an event. The timestamp defaults to now when unset, and the
// category is derived from the action when unset.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = Action(event.Action).Category()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// List returns events recorded for a subject, oldest first.
func (p *Publisher) List(ctx context.Context, subject string) ([]Event, error) {
	return p.store.ListByUser(ctx, subject)
}

// Close stops the background worker after draining buffered events.
// Safe to call on synchronous publishers and safe to call twice.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			<-p.done
		}
	})
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		// Persistence failures are dropped on the floor by design: audit is
		// best-effort in async mode.
		_ = p.store.Append(context.Background(), event)
	}
}
