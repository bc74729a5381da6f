package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chatwoot/inboxq/internal/inbox"
)

// File stores each slot as <dir>/<slot>.json.
type File struct {
	dir string
}

// NewFile returns a File store rooted at dir. The directory is created on
// first write.
func NewFile(dir string) *File {
	return &File{dir: dir}
}

func (f *File) path(slot string) string {
	return filepath.Join(f.dir, sanitizeSlot(slot)+".json")
}

// Load reads a slot.
func (f *File) Load(_ context.Context, slot string) ([]byte, error) {
	data, err := os.ReadFile(f.path(slot))
	if errors.Is(err, os.ErrNotExist) {
		return nil, inbox.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read slot: %w", err)
	}
	return data, nil
}

// Save writes a slot via temp file and rename so readers never see a
// partial document.
func (f *File) Save(_ context.Context, slot string, data []byte) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	path := f.path(slot)
	tmp, err := os.CreateTemp(f.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write slot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write slot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write slot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write slot: %w", err)
	}
	return nil
}

// Close is a no-op.
func (f *File) Close() error { return nil }

// DefaultDir returns "$XDG_STATE_HOME/inboxq" or the closest equivalent.
func DefaultDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); dir != "" {
		return filepath.Join(dir, "inboxq"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		base, cerr := os.UserCacheDir()
		if cerr != nil {
			return "", err
		}
		return filepath.Join(base, "inboxq"), nil
	}
	return filepath.Join(home, ".local", "state", "inboxq"), nil
}

func sanitizeSlot(slot string) string {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return "slot"
	}
	slot = strings.ReplaceAll(slot, "/", "-")
	slot = strings.ReplaceAll(slot, "\\", "-")
	slot = strings.ReplaceAll(slot, "..", "-")
	return slot
}
