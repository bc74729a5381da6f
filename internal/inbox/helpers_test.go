package inbox

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	mu     sync.Mutex
	calls  []QueryParams
	total  int
	err    error
	before func(QueryParams)
}

func (f *fakeLister) List(_ context.Context, params QueryParams) (*ListResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, params)
	before, err, total := f.before, f.err, f.total
	f.mu.Unlock()

	if before != nil {
		before(params)
	}
	if err != nil {
		return nil, err
	}
	if total == 0 {
		total = 100
	}
	pages := (total + params.PerPage - 1) / params.PerPage
	return &ListResult{
		Data: []Conversation{{ID: params.Page, Status: StatusActive}},
		Meta: ListMeta{Pagination: PaginationMeta{
			Total:      total,
			Page:       params.Page,
			PerPage:    params.PerPage,
			TotalPages: pages,
		}},
	}, nil
}

func (f *fakeLister) last(t *testing.T) QueryParams {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls, "expected at least one list call")
	return f.calls[len(f.calls)-1]
}

func (f *fakeLister) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeLister) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type memLocation struct {
	query    string
	replaces int
}

func (m *memLocation) Read() (string, error) { return m.query, nil }

func (m *memLocation) Replace(q string) error {
	m.query = q
	m.replaces++
	return nil
}

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Load(_ context.Context, slot string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[slot]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return data, nil
}

func (m *memStore) Save(_ context.Context, slot string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.data[slot] = append([]byte(nil), data...)
	return nil
}

var errStoreDown = errors.New("store unavailable")

func newTestSession(t *testing.T, lister Lister, opts ...Option) *Session {
	t.Helper()
	seq := 0
	base := []Option{
		WithIDFunc(func() string {
			seq++
			return "sf-" + strconv.Itoa(seq)
		}),
		WithClock(func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }),
	}
	s, err := New(context.Background(), lister, append(base, opts...)...)
	require.NoError(t, err)
	return s
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
