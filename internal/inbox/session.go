package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/chatwoot/inboxq/internal/metrics"
)

// DefaultSlot is the storage slot name used for persisted preferences.
const DefaultSlot = "conversation-store"

// Session owns the canonical filter, sort and pagination state of one
// conversation list and is its only writer.
//
// Every mutation replaces the whole state under a mutex, so callers never
// observe a half-applied update. Filter changes and slot writes are further
// serialized by writeMu, which is held across the state change and the
// matching location or store write so neither can be reordered against the
// canonical state. Mutators that fetch block until the list request settles;
// the returned error mirrors View.Error and may be ignored by callers that
// react to state instead (e.g. `go s.NextPage(ctx)`).
type Session struct {
	lister    Lister
	location  Location
	store     SlotStore
	slot      string
	persisted map[PersistField]bool
	newID     func() string
	now       func() time.Time
	logger    *slog.Logger

	// writeMu is always taken before mu.
	writeMu sync.Mutex

	mu         sync.Mutex
	st         state
	version    uint64
	generation uint64
	listeners  map[int]func(View)
	nextID     int

	notifyMu sync.Mutex
	notified uint64
}

type state struct {
	filters       FilterState
	page          int
	perPage       int
	sortBy        SortField
	sortOrder     SortOrder
	conversations []Conversation
	pagination    PaginationMeta
	loading       LoadingState
	err           string
	saved         []SavedFilter
}

// Option configures a Session.
type Option func(*Session)

// WithLocation mirrors filter state into loc.
func WithLocation(loc Location) Option {
	return func(s *Session) { s.location = loc }
}

// WithStore persists saved filters and preferences in store.
func WithStore(store SlotStore) Option {
	return func(s *Session) { s.store = store }
}

// WithSlot overrides the storage slot name.
func WithSlot(slot string) Option {
	return func(s *Session) {
		if slot != "" {
			s.slot = slot
		}
	}
}

// WithPersistedFields limits which fields are written to the store.
func WithPersistedFields(fields ...PersistField) Option {
	return func(s *Session) {
		s.persisted = make(map[PersistField]bool, len(fields))
		for _, f := range fields {
			s.persisted[f] = true
		}
	}
}

// WithDefaults sets the initial sort and page size before persisted
// preferences are applied.
func WithDefaults(perPage int, sortBy SortField, sortOrder SortOrder) Option {
	return func(s *Session) {
		if perPage > 0 {
			s.st.perPage = perPage
		}
		if sortBy != "" {
			s.st.sortBy = sortBy
		}
		if sortOrder != "" {
			s.st.sortOrder = sortOrder
		}
	}
}

// WithIDFunc replaces the saved filter id generator.
func WithIDFunc(fn func() string) Option {
	return func(s *Session) { s.newID = fn }
}

// WithClock replaces time.Now for saved filter timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// New creates a session and restores persisted preferences from the store.
// A corrupt slot is logged and ignored; an unreachable store is an error.
func New(ctx context.Context, lister Lister, opts ...Option) (*Session, error) {
	if lister == nil {
		return nil, fmt.Errorf("conversation lister is required")
	}
	s := &Session{
		lister:    lister,
		location:  nopLocation{},
		slot:      DefaultSlot,
		persisted: defaultPersistedFields(),
		newID:     newSavedFilterID,
		now:       time.Now,
		logger:    slog.Default(),
		listeners: make(map[int]func(View)),
		st: state{
			page:      1,
			perPage:   DefaultPerPage,
			sortBy:    DefaultSortField,
			sortOrder: DefaultSortOrder,
			loading:   LoadingIdle,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.location == nil {
		s.location = nopLocation{}
	}
	if err := s.hydrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns a deep copy of the observable state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.view()
}

// Subscribe registers fn to receive a View after state changes. Views arrive
// in commit order; when updates overlap, a listener may skip an intermediate
// View but never sees an older one after a newer one. Listeners run
// synchronously and must not call mutators on the same session. The returned
// func removes the listener.
func (s *Session) Subscribe(fn func(View)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SetSearchQuery replaces the free-text filter.
func (s *Session) SetSearchQuery(ctx context.Context, q string) error {
	return s.changeFilters(ctx, "set_search", func(f *FilterState) { f.SearchQuery = q })
}

// SetDateRange replaces the date bounds. Either side may be nil.
func (s *Session) SetDateRange(ctx context.Context, from, to *time.Time) error {
	return s.changeFilters(ctx, "set_date_range", func(f *FilterState) {
		f.DateRange = DateRange{From: cloneTime(from), To: cloneTime(to)}
	})
}

// SetStatusFilters replaces the status set.
func (s *Session) SetStatusFilters(ctx context.Context, statuses ...Status) error {
	return s.changeFilters(ctx, "set_status", func(f *FilterState) {
		f.StatusFilters = slices.Clone(statuses)
	})
}

// SetSentimentFilters replaces the sentiment set.
func (s *Session) SetSentimentFilters(ctx context.Context, sentiments ...Sentiment) error {
	return s.changeFilters(ctx, "set_sentiment", func(f *FilterState) {
		f.SentimentFilters = slices.Clone(sentiments)
	})
}

// SetHasHandoffFilter sets the handoff flag; nil stops filtering on it.
func (s *Session) SetHasHandoffFilter(ctx context.Context, v *bool) error {
	return s.changeFilters(ctx, "set_handoff", func(f *FilterState) {
		f.HasHandoffFilter = nil
		if v != nil {
			f.HasHandoffFilter = Bool(*v)
		}
	})
}

// RemoveFilter clears one dimension. For the set dimensions a value removes
// just that member; removing an absent member leaves the set as it was. For
// the date range, "from" or "to" clears one side.
func (s *Session) RemoveFilter(ctx context.Context, key FilterKey, value ...string) error {
	var member string
	if len(value) > 0 {
		member = value[0]
	}
	var apply func(f *FilterState)
	switch key {
	case KeySearchQuery:
		apply = func(f *FilterState) { f.SearchQuery = "" }
	case KeyDateRange:
		apply = func(f *FilterState) {
			switch member {
			case "from":
				f.DateRange.From = nil
			case "to":
				f.DateRange.To = nil
			default:
				f.DateRange = DateRange{}
			}
		}
	case KeyStatusFilters:
		apply = func(f *FilterState) {
			if member == "" {
				f.StatusFilters = nil
				return
			}
			f.StatusFilters = without(f.StatusFilters, Status(member))
		}
	case KeySentimentFilters:
		apply = func(f *FilterState) {
			if member == "" {
				f.SentimentFilters = nil
				return
			}
			f.SentimentFilters = without(f.SentimentFilters, Sentiment(member))
		}
	case KeyHasHandoffFilter:
		apply = func(f *FilterState) { f.HasHandoffFilter = nil }
	default:
		return fmt.Errorf("unknown filter key %q", key)
	}
	return s.changeFilters(ctx, "remove_filter", apply)
}

// ClearAllFilters resets every dimension to its default.
func (s *Session) ClearAllFilters(ctx context.Context) error {
	return s.changeFilters(ctx, "clear_filters", func(f *FilterState) { *f = FilterState{} })
}

// SetSorting changes the sort and goes back to the first page. Filters and
// the location are left alone.
func (s *Session) SetSorting(ctx context.Context, field SortField, order SortOrder) error {
	metrics.CountMutation("set_sorting")
	if field == "" {
		field = DefaultSortField
	}
	if order == "" {
		order = DefaultSortOrder
	}
	s.update(func(st *state) {
		st.sortBy = field
		st.sortOrder = order
		st.page = 1
	})
	s.persistPreferences(ctx)
	return s.FetchConversations(ctx, Overrides{})
}

// SetPerPage changes the page size and goes back to the first page. Sizes
// below one fall back to DefaultPerPage.
func (s *Session) SetPerPage(ctx context.Context, n int) error {
	metrics.CountMutation("set_per_page")
	if n < 1 {
		n = DefaultPerPage
	}
	s.update(func(st *state) {
		st.perPage = n
		st.page = 1
	})
	s.persistPreferences(ctx)
	return s.FetchConversations(ctx, Overrides{})
}

// NextPage advances the cursor unless the latest pagination meta says this
// is the last page.
func (s *Session) NextPage(ctx context.Context) error {
	s.mu.Lock()
	page, last := s.st.page, s.st.pagination.TotalPages
	s.mu.Unlock()
	if page >= last {
		return nil
	}
	metrics.CountMutation("next_page")
	return s.FetchConversations(ctx, Overrides{Page: page + 1})
}

// PrevPage steps the cursor back unless it is on the first page.
func (s *Session) PrevPage(ctx context.Context) error {
	s.mu.Lock()
	page := s.st.page
	s.mu.Unlock()
	if page <= 1 {
		return nil
	}
	metrics.CountMutation("prev_page")
	return s.FetchConversations(ctx, Overrides{Page: page - 1})
}

// GoToPage fetches an explicit page without touching filters.
func (s *Session) GoToPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	metrics.CountMutation("go_to_page")
	return s.FetchConversations(ctx, Overrides{Page: page})
}

// RestoreFromLocation seeds the filters from the location without fetching.
// It reports whether any recognized parameter was present.
func (s *Session) RestoreFromLocation() bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	raw, err := s.location.Read()
	if err != nil {
		s.logger.Warn("failed to read filter location", "error", err)
		return false
	}
	decoded := Decode(raw)
	if decoded.IsEmpty() {
		return false
	}
	s.update(func(st *state) {
		st.filters = decoded.ApplyTo(FilterState{})
		st.page = 1
	})
	return true
}

// SyncWithLocation is the mount-time entry point: seed filters from the
// location when it carries any, then fetch once regardless.
func (s *Session) SyncWithLocation(ctx context.Context) error {
	s.RestoreFromLocation()
	return s.FetchConversations(ctx, Overrides{})
}

// ClearError drops the error message without fetching. LoadingState is left
// as it is.
func (s *Session) ClearError() {
	s.update(func(st *state) { st.err = "" })
}

// changeFilters is the shared path of every filter mutator: replace the
// filters, reset to page one, mirror to the location, then fetch.
func (s *Session) changeFilters(ctx context.Context, op string, apply func(f *FilterState)) error {
	metrics.CountMutation(op)
	s.writeMu.Lock()
	var filters FilterState
	s.update(func(st *state) {
		next := st.filters.Clone()
		apply(&next)
		st.filters = next.normalized()
		st.page = 1
		filters = st.filters.Clone()
	})
	s.writeLocation(filters)
	s.writeMu.Unlock()
	return s.FetchConversations(ctx, Overrides{})
}

// writeLocation must be called with writeMu held.
func (s *Session) writeLocation(f FilterState) {
	if err := WriteLocation(s.location, f); err != nil {
		s.logger.Warn("failed to write filter location", "error", err)
	}
}

// update applies fn to a copy of the state, swaps it in, and notifies
// listeners outside the lock.
func (s *Session) update(fn func(st *state)) {
	s.mu.Lock()
	s.swapLocked(fn)
}

// swapLocked replaces the state and releases mu before notifying.
func (s *Session) swapLocked(fn func(st *state)) {
	next := s.st.clone()
	fn(&next)
	s.st = next
	s.version++
	version, view, listeners := s.version, s.st.view(), s.listenersLocked()
	s.mu.Unlock()
	s.notify(version, listeners, view)
}

func (s *Session) listenersLocked() []func(View) {
	if len(s.listeners) == 0 {
		return nil
	}
	out := make([]func(View), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

// notify delivers v unless a newer version has already been delivered.
func (s *Session) notify(version uint64, listeners []func(View), v View) {
	if len(listeners) == 0 {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if version <= s.notified {
		return
	}
	s.notified = version
	for _, fn := range listeners {
		fn(v)
	}
}

func (st state) clone() state {
	out := st
	out.filters = st.filters.Clone()
	out.conversations = slices.Clone(st.conversations)
	out.saved = make([]SavedFilter, 0, len(st.saved))
	for _, sf := range st.saved {
		out.saved = append(out.saved, sf.clone())
	}
	return out
}

func (st state) view() View {
	c := st.clone()
	conversations := c.conversations
	if conversations == nil {
		conversations = []Conversation{}
	}
	return View{
		Conversations: conversations,
		Pagination:    c.pagination,
		LoadingState:  c.loading,
		Error:         c.err,
		Filters:       c.filters,
		SavedFilters:  c.saved,
		CurrentPage:   c.page,
		PerPage:       c.perPage,
		SortBy:        c.sortBy,
		SortOrder:     c.sortOrder,
	}
}

type nopLocation struct{}

func (nopLocation) Read() (string, error)  { return "", nil }
func (nopLocation) Replace(_ string) error { return nil }
