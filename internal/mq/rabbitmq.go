package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/aquagest/apiserver/config"
)

const rabbitAppID = "aquagest"

// RabbitMQClient publishes events to a queue named after the channel, using
// the default exchange.
type RabbitMQClient struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	durable    bool
	autoDelete bool
}

// NewRabbitMQClient dials cfg.URL and opens a channel with the configured
// prefetch.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("set rabbitmq prefetch: %w", err)
		}
	}

	return &RabbitMQClient{
		conn:       conn,
		ch:         ch,
		durable:    cfg.QueueDurable,
		autoDelete: cfg.QueueAutoDelete,
	}, nil
}

// Publish declares the queue and sends data to it. The returned id is the
// event id carried in attrs when present.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}
	if err := r.declare(channel); err != nil {
		return "", err
	}

	msg := publishing(data, attrs, r.durable, time.Now())
	if err := r.ch.PublishWithContext(ctx, "", channel, false, false, msg); err != nil {
		return "", fmt.Errorf("publish to %s: %w", channel, err)
	}
	return msg.MessageId, nil
}

// Subscribe consumes the queue until ctx is done. A failed delivery is
// requeued once; a failed redelivery is dropped.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}
	if err := r.declare(channel); err != nil {
		return err
	}

	tag := rabbitAppID + "-" + newMessageID()
	deliveries, err := r.ch.Consume(channel, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", channel, err)
	}
	defer func() {
		_ = r.ch.Cancel(tag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			msg := deliveryMessage(delivery)
			if err := handler(ctx, msg); err != nil {
				requeue := !delivery.Redelivered
				log.Warn().Err(err).Str("event_id", msg.ID).Bool("requeue", requeue).Msg("rabbitmq handler failed")
				_ = delivery.Nack(false, requeue)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the channel, then the connection.
func (r *RabbitMQClient) Close() error {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQClient) declare(queue string) error {
	if _, err := r.ch.QueueDeclare(queue, r.durable, r.autoDelete, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return nil
}

// publishing builds the AMQP message for an event. attrs become headers and
// the tipo attribute is also exposed as the message type.
func publishing(data []byte, attrs map[string]string, durable bool, now time.Time) amqp.Publishing {
	headers := make(amqp.Table, len(attrs))
	for key, value := range attrs {
		headers[key] = value
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    messageID(attrs),
		Type:         attrs[AttrType],
		AppId:        rabbitAppID,
		Timestamp:    now.UTC(),
		DeliveryMode: amqp.Transient,
		Headers:      headers,
		Body:         data,
	}
	if durable {
		msg.DeliveryMode = amqp.Persistent
	}
	return msg
}

// deliveryMessage converts a delivery, falling back to the event_id header
// when the publisher set no message id.
func deliveryMessage(delivery amqp.Delivery) Message {
	attrs := headerStrings(delivery.Headers)
	id := delivery.MessageId
	if id == "" {
		id = attrs[AttrEventID]
	}
	return Message{ID: id, Data: delivery.Body, Attributes: attrs}
}

func headerStrings(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch v := value.(type) {
		case string:
			attrs[key] = v
		case []byte:
			attrs[key] = string(v)
		default:
			attrs[key] = fmt.Sprint(v)
		}
	}
	return attrs
}
