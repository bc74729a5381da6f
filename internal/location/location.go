// Package location provides the places a session mirrors its filters to:
// an in-memory URL, a query-string state file, or nowhere.
package location

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Memory holds a URL in memory. Replace rewrites only the query component.
type Memory struct {
	mu       sync.Mutex
	u        *url.URL
	replaces int
}

// NewMemory parses raw as either a full URL or a bare query string.
func NewMemory(raw string) (*Memory, error) {
	u, err := parse(raw)
	if err != nil {
		return nil, err
	}
	return &Memory{u: u}, nil
}

func parse(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &url.URL{}, nil
	}
	if !strings.Contains(raw, "://") && !strings.HasPrefix(raw, "/") {
		return &url.URL{RawQuery: strings.TrimPrefix(raw, "?")}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid location %q: %w", raw, err)
	}
	return u, nil
}

// QueryOf extracts the raw query from a full URL, a path with a query, or a
// bare query string with or without the leading "?".
func QueryOf(raw string) (string, error) {
	u, err := parse(raw)
	if err != nil {
		return "", err
	}
	return u.RawQuery, nil
}

// Read returns the current raw query string.
func (m *Memory) Read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.u.RawQuery, nil
}

// Replace overwrites the query string in place.
func (m *Memory) Replace(rawQuery string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.u.RawQuery = rawQuery
	m.replaces++
	return nil
}

// URL returns the full current location.
func (m *Memory) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.u.String()
}

// Replaces counts calls to Replace.
func (m *Memory) Replaces() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaces
}

// File keeps the query string in a one-line text file so filters survive
// between CLI invocations. A missing file reads as an empty query.
type File struct {
	path string
}

// NewFile returns a File location at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

// Read returns the stored query string.
func (f *File) Read() (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return strings.TrimPrefix(strings.TrimSpace(string(data)), "?"), nil
}

// Replace writes rawQuery through a temp file and rename.
func (f *File) Replace(rawQuery string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create location dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(rawQuery+"\n"), 0o600); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write location: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write location: %w", err)
	}
	return nil
}

// Nop discards writes and always reads empty.
type Nop struct{}

func (Nop) Read() (string, error)  { return "", nil }
func (Nop) Replace(_ string) error { return nil }
