// Package notify implements the in-process notification hub that records
// domain events and fans them out to listeners.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aquagest/apiserver/types"
)

// Listener receives every published event.
type Listener interface {
	Notify(ctx context.Context, event types.Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, event types.Event) error

func (f ListenerFunc) Notify(ctx context.Context, event types.Event) error {
	return f(ctx, event)
}

// FailureHook is called for every listener error or panic.
type FailureHook func(event types.Event, err error)

// Hub keeps an append-only event log and an ordered listener list.
// Listener failures never reach the publisher.
type Hub struct {
	mu        sync.Mutex
	listeners []Listener
	events    []types.Event

	logger    zerolog.Logger
	onFailure FailureHook
	now       func() time.Time
}

type Option func(*Hub)

func WithLogger(logger zerolog.Logger) Option {
	return func(h *Hub) { h.logger = logger }
}

func WithFailureHook(hook FailureHook) Option {
	return func(h *Hub) { h.onFailure = hook }
}

func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		logger: log.Logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe appends listener; it is invoked after every listener
// subscribed before it.
func (h *Hub) Subscribe(listener Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, listener)
}

// Publish records the event and invokes every listener synchronously.
func (h *Hub) Publish(ctx context.Context, eventType types.EventType, payload map[string]any) types.Event {
	data := make(map[string]any, len(payload))
	for key, value := range payload {
		data[key] = value
	}

	h.mu.Lock()
	event := types.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   data,
		Timestamp: h.now(),
	}
	h.events = append(h.events, event)
	listeners := make([]Listener, len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	for _, listener := range listeners {
		h.deliver(ctx, listener, event)
	}
	return event
}

// Events returns a copy of the event log in publication order.
func (h *Hub) Events() []types.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]types.Event, len(h.events))
	copy(out, h.events)
	return out
}

func (h *Hub) deliver(ctx context.Context, listener Listener, event types.Event) {
	defer func() {
		if r := recover(); r != nil {
			h.fail(event, fmt.Errorf("listener panic: %v", r))
		}
	}()
	if err := listener.Notify(ctx, event); err != nil {
		h.fail(event, err)
	}
}

func (h *Hub) fail(event types.Event, err error) {
	h.logger.Error().
		Err(err).
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Msg("notification listener failed")
	if h.onFailure != nil {
		h.onFailure(event, err)
	}
}
