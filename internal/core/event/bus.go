// Package event carries outward notifications from the simulation to
// observers that must not run inside the step (feed, logging hooks).
package event

import (
	"reflect"
	"sync"
)

// Bus is a queued event bus. Events emitted while a tick runs are held
// until Dispatch, which the runner calls once per tick in its output
// phase. Delivery keeps emission order across all event types.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	pending  []queued
	handlers map[reflect.Type][]any
}

type queued struct {
	t  reflect.Type
	ev any
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[reflect.Type][]any),
	}
}

// Emit queues an event for the next Dispatch.
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.pending = append(b.pending, queued{t: t, ev: event})
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// Pending returns the number of queued events.
func (b *Bus) Pending() int { return len(b.pending) }

// Dispatch delivers every queued event to its handlers and empties the
// queue. Events emitted by handlers are kept for the next Dispatch.
func (b *Bus) Dispatch() int {
	events := b.pending
	b.pending = nil
	for _, q := range events {
		for _, h := range b.handlers[q.t] {
			// Subscribe and Emit use the same type key.
			callHandler(h, q.ev)
		}
	}
	return len(events)
}

func callHandler(handler any, event any) {
	reflect.ValueOf(handler).Call([]reflect.Value{reflect.ValueOf(event)})
}
