package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquagest/apiserver/internal/mq"
	"github.com/aquagest/apiserver/types"
)

func newTestHub(opts ...Option) *Hub {
	return NewHub(append([]Option{WithLogger(zerolog.Nop())}, opts...)...)
}

func TestPublishInvokesListenersInOrder(t *testing.T) {
	hub := newTestHub()
	var calls []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		hub.Subscribe(ListenerFunc(func(context.Context, types.Event) error {
			calls = append(calls, name)
			return nil
		}))
	}

	hub.Publish(context.Background(), types.EventNewRequest, map[string]any{"solicitud_id": 1})

	assert.Equal(t, []string{"a", "b", "c"}, calls)
}

func TestPublishAppendsToLog(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	hub := newTestHub(WithClock(func() time.Time { return fixed }))

	first := hub.Publish(context.Background(), types.EventUserRegistered, map[string]any{"user_id": 1})
	second := hub.Publish(context.Background(), types.EventUserLogin, map[string]any{"user_id": 1})

	events := hub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, first.ID, events[0].ID)
	assert.Equal(t, second.ID, events[1].ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, types.EventUserLogin, events[1].Type)
	assert.Equal(t, fixed, events[0].Timestamp)
}

func TestEventsReturnsCopy(t *testing.T) {
	hub := newTestHub()
	payload := map[string]any{"user_id": 7}
	hub.Publish(context.Background(), types.EventUserLogin, payload)
	payload["user_id"] = 8

	events := hub.Events()
	events[0].Type = "tampered"

	again := hub.Events()
	assert.Equal(t, types.EventUserLogin, again[0].Type)
	assert.Equal(t, 7, again[0].Payload["user_id"])
}

func TestFailingListenersDoNotPropagate(t *testing.T) {
	var failures []error
	hub := newTestHub(WithFailureHook(func(_ types.Event, err error) {
		failures = append(failures, err)
	}))

	var reached bool
	hub.Subscribe(ListenerFunc(func(context.Context, types.Event) error {
		return errors.New("mail relay down")
	}))
	hub.Subscribe(ListenerFunc(func(context.Context, types.Event) error {
		panic("boom")
	}))
	hub.Subscribe(ListenerFunc(func(context.Context, types.Event) error {
		reached = true
		return nil
	}))

	assert.NotPanics(t, func() {
		hub.Publish(context.Background(), types.EventReportGenerated, nil)
	})
	assert.True(t, reached)
	require.Len(t, failures, 2)
	assert.EqualError(t, failures[0], "mail relay down")
	assert.Contains(t, failures[1].Error(), "boom")
	assert.Len(t, hub.Events(), 1)
}

func TestConcurrentPublish(t *testing.T) {
	hub := newTestHub()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hub.Publish(context.Background(), types.EventNewRequest, map[string]any{"solicitud_id": i})
		}(i)
	}
	wg.Wait()

	events := hub.Events()
	assert.Len(t, events, 50)
	seen := make(map[string]bool, len(events))
	for _, event := range events {
		seen[event.ID] = true
	}
	assert.Len(t, seen, 50)
}

type fakeBackend struct {
	mu       sync.Mutex
	channel  string
	messages [][]byte
	attrs    []map[string]string
	err      error
}

func (b *fakeBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return "", b.err
	}
	b.channel = channel
	b.messages = append(b.messages, data)
	b.attrs = append(b.attrs, attrs)
	return "msg-1", nil
}

func (b *fakeBackend) Subscribe(context.Context, string, mq.Handler) error { return nil }
func (b *fakeBackend) Close() error                                        { return nil }

func TestBrokerListenerForwardsJSON(t *testing.T) {
	backend := &fakeBackend{}
	hub := newTestHub()
	hub.Subscribe(BrokerListener(mq.New(backend, "aquagest-events")))

	event := hub.Publish(context.Background(), types.EventNewRequest, map[string]any{"solicitud_id": 3, "usuario_id": 1})

	require.Len(t, backend.messages, 1)
	assert.Equal(t, "aquagest-events", backend.channel)
	assert.Equal(t, "new_request", backend.attrs[0]["tipo"])
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, event.ID, backend.attrs[0][mq.AttrEventID])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(backend.messages[0], &decoded))
	assert.Equal(t, event.ID, decoded["id"])
	assert.Equal(t, "new_request", decoded["tipo"])
	assert.Equal(t, map[string]any{"solicitud_id": 3.0, "usuario_id": 1.0}, decoded["datos"])
}

func TestBrokerListenerFailureIsReported(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection refused")}
	var failed bool
	hub := newTestHub(WithFailureHook(func(types.Event, error) { failed = true }))
	hub.Subscribe(BrokerListener(mq.New(backend, "aquagest-events")))

	hub.Publish(context.Background(), types.EventUserLogin, nil)

	assert.True(t, failed)
}
