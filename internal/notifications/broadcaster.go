package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pipal/internal/middleware"
	"pipal/internal/observability"
)

const defaultPublishTimeout = 2 * time.Second

// Sink is one transport an event is delivered through.
type Sink interface {
	Name() string
	Publish(ctx context.Context, topic string, event Event) error
}

// Listener reacts in-process to a published event.
type Listener func(ctx context.Context, topic string, event Event)

// Broadcaster fans an event out to every sink and local listener. Publishing is
// fire-and-forget: sink failures are logged and counted, never returned.
type Broadcaster struct {
	sinks   []Sink
	timeout time.Duration

	mu        sync.RWMutex
	listeners map[string][]Listener
}

// NewBroadcaster returns a broadcaster over sinks.
func NewBroadcaster(sinks ...Sink) *Broadcaster {
	return &Broadcaster{
		sinks:     sinks,
		timeout:   defaultPublishTimeout,
		listeners: make(map[string][]Listener),
	}
}

// Listen registers fn for events of eventType.
func (b *Broadcaster) Listen(eventType string, fn Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventType] = append(b.listeners[eventType], fn)
}

// Publish delivers event on topic.
func (b *Broadcaster) Publish(ctx context.Context, topic string, event Event) {
	// Delivery outlives a cancelled request.
	base := context.WithoutCancel(ctx)

	for _, sink := range b.sinks {
		pctx, cancel := context.WithTimeout(base, b.timeout)
		err := sink.Publish(pctx, topic, event)
		cancel()
		if err != nil {
			observability.BroadcastPublishFailures.WithLabelValues(sink.Name(), event.Type).Inc()
			middleware.Logger.WarnContext(ctx, "broadcast publish failed",
				slog.String("sink", sink.Name()),
				slog.String("topic", topic),
				slog.String("event", event.Type),
				slog.String("error", err.Error()),
			)
		}
	}

	b.mu.RLock()
	listeners := b.listeners[event.Type]
	b.mu.RUnlock()
	for _, fn := range listeners {
		b.notify(base, fn, topic, event)
	}
}

func (b *Broadcaster) notify(ctx context.Context, fn Listener, topic string, event Event) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.ErrorContext(ctx, "panic in event listener",
				slog.String("event", event.Type),
				slog.Any("panic", r),
			)
		}
	}()
	fn(ctx, topic, event)
}
