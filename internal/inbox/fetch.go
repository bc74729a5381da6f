package inbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chatwoot/inboxq/internal/metrics"
)

// ErrStaleResponse is returned by FetchConversations when a newer fetch was
// issued before this one settled and its result was discarded.
var ErrStaleResponse = errors.New("superseded by a newer fetch")

// Overrides replaces parts of the canonical cursor or filters for a single
// fetch. Zero values mean "use the canonical value".
type Overrides struct {
	Page      int
	PerPage   int
	SortBy    SortField
	SortOrder SortOrder
	Filters   *FilterState
}

// FetchConversations lists one page with the canonical state merged with o.
//
// Each call takes a new generation number. Only the response of the most
// recently issued fetch is committed; anything older that settles later is
// dropped and reported as ErrStaleResponse. On success the request's cursor
// becomes canonical. On failure the previous conversations stay visible and
// the message is recorded in View.Error.
func (s *Session) FetchConversations(ctx context.Context, o Overrides) error {
	s.mu.Lock()
	cursor := Cursor{Page: s.st.page, PerPage: s.st.perPage, SortBy: s.st.sortBy, SortOrder: s.st.sortOrder}
	filters := s.st.filters.Clone()
	s.mu.Unlock()

	if o.Page > 0 {
		cursor.Page = o.Page
	}
	if o.PerPage > 0 {
		cursor.PerPage = o.PerPage
	}
	if o.SortBy != "" {
		cursor.SortBy = o.SortBy
	}
	if o.SortOrder != "" {
		cursor.SortOrder = o.SortOrder
	}
	if o.Filters != nil {
		filters = o.Filters.Clone()
	}
	params := BuildQueryParams(cursor, filters)

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()
	s.commit(gen, func(st *state) { st.loading = LoadingLoading })

	s.logger.Debug("fetching conversations",
		"generation", gen,
		"page", params.Page,
		"per_page", params.PerPage,
		"sort_by", params.SortBy,
		"sort_order", params.SortOrder,
	)

	start := time.Now()
	result, err := s.lister.List(ctx, params)
	if err == nil && result == nil {
		err = fmt.Errorf("empty response from conversation listing service")
	}
	elapsed := time.Since(start)

	if err != nil {
		msg := err.Error()
		if !s.commit(gen, func(st *state) {
			st.loading = LoadingError
			st.err = msg
		}) {
			return s.stale(gen, elapsed)
		}
		metrics.ObserveFetch(elapsed, metrics.OutcomeError)
		s.logger.Debug("conversation fetch failed", "generation", gen, "error", err)
		return err
	}

	data := result.Data
	if data == nil {
		data = []Conversation{}
	}
	applied := params.Cursor()
	var changed bool
	if !s.commit(gen, func(st *state) {
		before := st.preferences()
		st.conversations = data
		st.pagination = result.Meta.Pagination
		st.loading = LoadingSuccess
		st.err = ""
		st.page = applied.Page
		st.perPage = applied.PerPage
		st.sortBy = applied.SortBy
		st.sortOrder = applied.SortOrder
		changed = st.preferences() != before
	}) {
		return s.stale(gen, elapsed)
	}
	metrics.ObserveFetch(elapsed, metrics.OutcomeSuccess)
	if changed {
		s.persistPreferences(ctx)
	}
	return nil
}

func (s *Session) stale(gen uint64, elapsed time.Duration) error {
	metrics.ObserveFetch(elapsed, metrics.OutcomeStale)
	s.logger.Debug("discarding stale conversation response", "generation", gen)
	return ErrStaleResponse
}

// commit applies fn only while gen is still the latest fetch generation.
func (s *Session) commit(gen uint64, fn func(st *state)) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.swapLocked(fn)
	return true
}
