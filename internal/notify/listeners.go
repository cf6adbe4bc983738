package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aquagest/apiserver/internal/metrics"
	"github.com/aquagest/apiserver/internal/mq"
	"github.com/aquagest/apiserver/types"
)

const brokerPublishTimeout = 3 * time.Second

// LogListener writes every event to logger.
func LogListener(logger zerolog.Logger) Listener {
	return ListenerFunc(func(_ context.Context, event types.Event) error {
		logger.Info().
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Interface("datos", event.Payload).
			Msg("domain event")
		return nil
	})
}

// MetricsListener counts events by type.
func MetricsListener(m *metrics.Metrics) Listener {
	return ListenerFunc(func(_ context.Context, event types.Event) error {
		m.IncEvent(string(event.Type))
		return nil
	})
}

// BrokerListener forwards the JSON-encoded event to the broker channel. The
// event id travels as the broker message id.
func BrokerListener(broker *mq.MQ) Listener {
	return ListenerFunc(func(ctx context.Context, event types.Event) error {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), brokerPublishTimeout)
		defer cancel()

		attrs := map[string]string{
			mq.AttrType:    string(event.Type),
			mq.AttrEventID: event.ID,
		}
		if _, err := broker.Publish(ctx, data, attrs); err != nil {
			return fmt.Errorf("forward event to %s: %w", broker.Channel(), err)
		}
		return nil
	})
}
