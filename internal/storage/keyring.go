package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/99designs/keyring"

	"github.com/chatwoot/inboxq/internal/inbox"
)

const keyringSlotPrefix = "slot:"

// Keyring keeps slots next to the account credentials in the OS keychain.
type Keyring struct {
	ring keyring.Keyring
}

func NewKeyring(ring keyring.Keyring) *Keyring {
	return &Keyring{ring: ring}
}

// Load reads a slot.
func (k *Keyring) Load(_ context.Context, slot string) ([]byte, error) {
	item, err := k.ring.Get(keyringSlotPrefix + slot)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, inbox.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return item.Data, nil
}

// Save writes a slot.
func (k *Keyring) Save(_ context.Context, slot string, data []byte) error {
	if err := k.ring.Set(keyring.Item{
		Key:   keyringSlotPrefix + slot,
		Data:  data,
		Label: "inboxq " + slot,
	}); err != nil {
		return fmt.Errorf("failed to save slot: %w", err)
	}
	return nil
}

// Close is a no-op.
func (k *Keyring) Close() error { return nil }
