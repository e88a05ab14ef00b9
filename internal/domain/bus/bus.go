// Package bus provides the in-process change bus for canonical state events.
//
// Fan-out is synchronous and ordered: every listener registered at publish
// time is invoked in registration order before Publish returns. There is no
// buffering and no replay of missed events; a listener that is not subscribed
// when an event is published never sees it. Consumers that need catch-up must
// re-read current state after subscribing, which the store does for them.
package bus

import (
	"context"
	"sync"

	"github.com/okian/rallyboard/internal/domain/model"
	"github.com/okian/rallyboard/pkg/logger"
	"github.com/okian/rallyboard/pkg/metrics"
)

// Listener receives published events. A listener that panics is isolated:
// the panic is logged and delivery continues with the next listener.
type Listener func(ctx context.Context, ev model.Event)

// Unsubscribe removes a listener. Safe to call multiple times.
type Unsubscribe func()

// Bus fans events out to subscribers per kind.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[model.Kind][]*subscription
	logger logger.Logger
}

type subscription struct {
	id uint64
	fn Listener
}

// Option applies a configuration option to the Bus.
type Option func(*Bus)

// WithLogger sets a custom logger for the bus.
func WithLogger(l logger.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs: make(map[model.Kind][]*subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers fn for events of the given kind and returns its
// unsubscribe handle. Registration order is delivery order.
func (b *Bus) Subscribe(kind model.Kind, fn Listener) Unsubscribe {
	b.mu.Lock()
	b.nextID++
	sub := &subscription{id: b.nextID, fn: fn}
	b.subs[kind] = append(b.subs[kind], sub)
	b.mu.Unlock()

	metrics.UpdateBusListeners(string(kind), b.Len(kind))

	var once sync.Once
	return func() {
		once.Do(func() {
			b.remove(kind, sub.id)
			metrics.UpdateBusListeners(string(kind), b.Len(kind))
		})
	}
}

// Publish delivers ev to all listeners of ev.Kind, in registration order,
// before returning. Listener failures never stop delivery.
func (b *Bus) Publish(ctx context.Context, ev model.Event) {
	b.mu.RLock()
	listeners := make([]*subscription, len(b.subs[ev.Kind]))
	copy(listeners, b.subs[ev.Kind])
	b.mu.RUnlock()

	for _, sub := range listeners {
		b.deliver(ctx, sub, ev)
	}
	metrics.RecordBusPublish(string(ev.Kind))
}

// Len returns the number of listeners currently registered for kind.
func (b *Bus) Len(kind model.Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}

func (b *Bus) deliver(ctx context.Context, sub *subscription, ev model.Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordBusListenerPanic(string(ev.Kind))
			b.log().Error(ctx, "listener panicked during fan-out",
				logger.String("kind", string(ev.Kind)),
				logger.Int64("revision", int64(ev.Revision)),
				logger.Any("panic", r),
			)
		}
	}()
	sub.fn(ctx, ev)
}

func (b *Bus) remove(kind model.Kind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	listeners := b.subs[kind]
	for i, sub := range listeners {
		if sub.id == id {
			b.subs[kind] = append(listeners[:i:i], listeners[i+1:]...)
			return
		}
	}
}

func (b *Bus) log() logger.Logger {
	if b.logger != nil {
		return b.logger
	}
	return logger.Get().Named("bus")
}
