package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/chatwoot/inboxq/internal/inbox"
)

const defaultRedisPrefix = "inboxq:"

// Redis stores slots as plain string keys, letting several machines share
// saved filters.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps client. Keys are "<prefix><slot>".
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(slot string) string { return r.prefix + slot }

// Load reads a slot.
func (r *Redis) Load(ctx context.Context, slot string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, inbox.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key(slot), err)
	}
	return data, nil
}

// Save writes a slot with no expiry.
func (r *Redis) Save(ctx context.Context, slot string, data []byte) error {
	if err := r.client.Set(ctx, r.key(slot), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key(slot), err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
