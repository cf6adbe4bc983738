// Package mq forwards domain events to an external broker.
package mq

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aquagest/apiserver/config"
)

// Attribute keys set on every forwarded event.
const (
	AttrType    = "tipo"
	AttrEventID = "event_id"
)

// Message is a broker-agnostic event envelope delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker operations used by the event forwarder and
// the consume command.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ binds a backend to the channel events are forwarded on.
type MQ struct {
	backend Backend
	channel string
}

// New constructs an MQ for backend publishing on channel.
func New(backend Backend, channel string) *MQ {
	return &MQ{backend: backend, channel: channel}
}

// Open builds the backend selected by cfg. It returns nil when forwarding is
// disabled.
func Open(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	var (
		backend Backend
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", config.BackendNone:
		return nil, nil
	case config.BackendRabbitMQ:
		backend, err = NewRabbitMQClient(cfg.RabbitMQ)
	case config.BackendPubSub:
		backend, err = NewPubSubClient(ctx, cfg.PubSub)
	case config.BackendRedis:
		backend, err = NewRedisClient(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	return New(backend, cfg.Channel), nil
}

// Channel returns the channel events are published on.
func (m *MQ) Channel() string {
	return m.channel
}

// Publish sends data to the bound channel.
func (m *MQ) Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, m.channel, data, attrs)
}

// Subscribe consumes messages from the bound channel until ctx is done.
func (m *MQ) Subscribe(ctx context.Context, handler Handler) error {
	return m.backend.Subscribe(ctx, m.channel, handler)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}

// messageID returns the event id carried in attrs, or a fresh id when the
// publisher supplied none.
func messageID(attrs map[string]string) string {
	if id := strings.TrimSpace(attrs[AttrEventID]); id != "" {
		return id
	}
	return newMessageID()
}

func newMessageID() string {
	return uuid.NewString()
}
