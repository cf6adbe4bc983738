package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/aquagest/apiserver/config"
)

const redisPopTimeout = 5 * time.Second

// redisEnvelope is the list entry pushed for every message.
type redisEnvelope struct {
	ID         string            `json:"id"`
	Data       json.RawMessage   `json:"data"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// redisLists is the subset of *redis.Client the list queue needs.
type redisLists interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	Close() error
}

// RedisClient uses a Redis list per channel as a FIFO queue: LPUSH to
// publish, BRPOP to consume.
type RedisClient struct {
	rdb redisLists
}

// NewRedisClient parses cfg.URL and checks connectivity.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*RedisClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisClient{rdb: rdb}, nil
}

// Publish pushes data onto the list named after channel.
func (r *RedisClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("redis channel is required")
	}
	entry, err := encodeRedisEnvelope(messageID(attrs), data, attrs)
	if err != nil {
		return "", err
	}
	if err := r.rdb.LPush(ctx, channel, entry.raw).Err(); err != nil {
		return "", err
	}
	return entry.id, nil
}

// Subscribe blocks on BRPOP until ctx is done. Messages whose handler fails
// go back to the tail of the queue, behind anything already waiting.
func (r *RedisClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("redis channel is required")
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := r.rdb.BRPop(ctx, redisPopTimeout, channel).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if len(result) < 2 {
			continue
		}

		message, err := decodeRedisEnvelope([]byte(result[1]))
		if err != nil {
			// Undecodable entries are dropped; retrying cannot fix them.
			continue
		}
		if err := handler(ctx, message); err != nil {
			log.Warn().Err(err).Str("event_id", message.ID).Msg("redis handler failed, requeueing")
			if err := r.rdb.LPush(ctx, channel, result[1]).Err(); err != nil {
				log.Error().Err(err).Str("event_id", message.ID).Msg("redis requeue failed")
			}
		}
	}
}

// Close closes the Redis connection pool.
func (r *RedisClient) Close() error {
	return r.rdb.Close()
}

type encodedEntry struct {
	id  string
	raw []byte
}

func encodeRedisEnvelope(id string, data []byte, attrs map[string]string) (encodedEntry, error) {
	if !json.Valid(data) {
		return encodedEntry{}, errors.New("redis backend only carries JSON payloads")
	}
	raw, err := json.Marshal(redisEnvelope{ID: id, Data: data, Attributes: attrs})
	if err != nil {
		return encodedEntry{}, err
	}
	return encodedEntry{id: id, raw: raw}, nil
}

func decodeRedisEnvelope(raw []byte) (Message, error) {
	var envelope redisEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Message{}, err
	}
	return Message{
		ID:         envelope.ID,
		Data:       envelope.Data,
		Attributes: envelope.Attributes,
	}, nil
}
