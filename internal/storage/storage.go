// Package storage provides durable backends for the session's persisted
// slot. Every backend stores opaque bytes under a slot name and reports a
// missing slot as inbox.ErrSlotNotFound.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
	"github.com/redis/go-redis/v9"

	"github.com/chatwoot/inboxq/internal/inbox"
)

// Backend names accepted by Open.
const (
	BackendFile    = "file"
	BackendRedis   = "redis"
	BackendSQLite  = "sqlite"
	BackendKeyring = "keyring"
	BackendMemory  = "memory"
)

// Store is a slot store that may hold resources.
type Store interface {
	inbox.SlotStore
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend string

	// Dir is the directory for the file backend.
	Dir string

	RedisAddr     string
	RedisDB       int
	RedisPassword string
	// RedisPrefix namespaces slot keys, e.g. per account.
	RedisPrefix string

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string

	// OpenKeyring opens the keyring for the keyring backend.
	OpenKeyring func() (keyring.Keyring, error)
}

// Open returns the backend named by opts.Backend. An empty name selects the
// file backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendFile:
		if opts.Dir == "" {
			return nil, fmt.Errorf("file storage requires a directory")
		}
		return NewFile(opts.Dir), nil
	case BackendMemory:
		return NewMemory(), nil
	case BackendRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis storage requires an address")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			DB:       opts.RedisDB,
			Password: opts.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", opts.RedisAddr, err)
		}
		return NewRedis(client, opts.RedisPrefix), nil
	case BackendSQLite:
		return OpenSQLite(ctx, opts.SQLitePath)
	case BackendKeyring:
		if opts.OpenKeyring == nil {
			return nil, fmt.Errorf("keyring storage requires a keyring opener")
		}
		ring, err := opts.OpenKeyring()
		if err != nil {
			return nil, fmt.Errorf("failed to open keyring: %w", err)
		}
		return NewKeyring(ring), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (use file, redis, sqlite, keyring, or memory)", opts.Backend)
	}
}
