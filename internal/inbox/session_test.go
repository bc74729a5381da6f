package inbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresLister(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.Error(t, err)
}

func TestNewSessionDefaults(t *testing.T) {
	s := newTestSession(t, &fakeLister{})
	v := s.Snapshot()

	assert.Equal(t, 1, v.CurrentPage)
	assert.Equal(t, DefaultPerPage, v.PerPage)
	assert.Equal(t, DefaultSortField, v.SortBy)
	assert.Equal(t, DefaultSortOrder, v.SortOrder)
	assert.Equal(t, LoadingIdle, v.LoadingState)
	assert.True(t, v.Filters.IsEmpty())
	assert.Empty(t, v.Conversations)
	assert.Empty(t, v.SavedFilters)
}

func TestFilterMutatorsResetToFirstPage(t *testing.T) {
	ctx := context.Background()
	mutators := map[string]func(s *Session) error{
		"search":    func(s *Session) error { return s.SetSearchQuery(ctx, "refund") },
		"dates":     func(s *Session) error { return s.SetDateRange(ctx, date(2024, 1, 1), nil) },
		"status":    func(s *Session) error { return s.SetStatusFilters(ctx, StatusClosed) },
		"sentiment": func(s *Session) error { return s.SetSentimentFilters(ctx, SentimentNeutral) },
		"handoff":   func(s *Session) error { return s.SetHasHandoffFilter(ctx, Bool(true)) },
		"remove":    func(s *Session) error { return s.RemoveFilter(ctx, KeyStatusFilters) },
		"clear":     func(s *Session) error { return s.ClearAllFilters(ctx) },
	}

	for name, mutate := range mutators {
		t.Run(name, func(t *testing.T) {
			lister := &fakeLister{}
			s := newTestSession(t, lister)
			require.NoError(t, s.GoToPage(ctx, 3))
			require.Equal(t, 3, s.Snapshot().CurrentPage)

			require.NoError(t, mutate(s))

			assert.Equal(t, 1, lister.last(t).Page)
			assert.Equal(t, 1, s.Snapshot().CurrentPage)
		})
	}
}

func TestSortingAndPerPageLeaveFiltersAlone(t *testing.T) {
	ctx := context.Background()
	lister := &fakeLister{}
	loc := &memLocation{query: "tab=mine"}
	s := newTestSession(t, lister, WithLocation(loc))

	require.NoError(t, s.SetStatusFilters(ctx, StatusActive))
	require.NoError(t, s.SetSearchQuery(ctx, "late"))
	before := s.Snapshot().Filters
	query := loc.query
	replaces := loc.replaces
	require.NoError(t, s.GoToPage(ctx, 2))

	require.NoError(t, s.SetSorting(ctx, SortCreatedAt, SortAsc))
	assert.True(t, before.Equal(s.Snapshot().Filters))
	assert.Equal(t, 1, lister.last(t).Page)
	assert.Equal(t, SortCreatedAt, lister.last(t).SortBy)
	assert.Equal(t, SortAsc, lister.last(t).SortOrder)

	require.NoError(t, s.SetPerPage(ctx, 50))
	assert.True(t, before.Equal(s.Snapshot().Filters))
	assert.Equal(t, 50, lister.last(t).PerPage)
	assert.Equal(t, 1, s.Snapshot().CurrentPage)

	assert.Equal(t, query, loc.query)
	assert.Equal(t, replaces, loc.replaces)
}

func TestSetPerPageFallsBackToDefault(t *testing.T) {
	lister := &fakeLister{}
	s := newTestSession(t, lister)

	require.NoError(t, s.SetPerPage(context.Background(), 0))
	assert.Equal(t, DefaultPerPage, lister.last(t).PerPage)
}

func TestScenarioBStatusThenSentiment(t *testing.T) {
	ctx := context.Background()
	loc := &memLocation{}
	s := newTestSession(t, &fakeLister{}, WithLocation(loc))
	require.NoError(t, s.GoToPage(ctx, 2))

	require.NoError(t, s.SetStatusFilters(ctx, StatusActive, StatusHandoff))
	require.NoError(t, s.SetSentimentFilters(ctx, SentimentPositive))

	assert.Equal(t, "status=active&status=handoff&sentiment=positive", loc.query)
	assert.Equal(t, 1, s.Snapshot().CurrentPage)
}

func TestRemoveFilter(t *testing.T) {
	ctx := context.Background()
	lister := &fakeLister{}
	s := newTestSession(t, lister)
	require.NoError(t, s.SetStatusFilters(ctx, StatusHandoff, StatusClosed))

	t.Run("absent member is a no-op", func(t *testing.T) {
		require.NoError(t, s.RemoveFilter(ctx, KeyStatusFilters, "active"))
		assert.Equal(t, []Status{StatusHandoff, StatusClosed}, s.Snapshot().Filters.StatusFilters)
	})

	t.Run("single member", func(t *testing.T) {
		require.NoError(t, s.RemoveFilter(ctx, KeyStatusFilters, "handoff"))
		assert.Equal(t, []Status{StatusClosed}, s.Snapshot().Filters.StatusFilters)
	})

	t.Run("whole dimension", func(t *testing.T) {
		require.NoError(t, s.RemoveFilter(ctx, KeyStatusFilters))
		assert.Empty(t, s.Snapshot().Filters.StatusFilters)
	})

	t.Run("one side of the date range", func(t *testing.T) {
		require.NoError(t, s.SetDateRange(ctx, date(2024, 1, 1), date(2024, 1, 31)))
		require.NoError(t, s.RemoveFilter(ctx, KeyDateRange, "to"))
		dr := s.Snapshot().Filters.DateRange
		require.NotNil(t, dr.From)
		assert.Nil(t, dr.To)
	})

	t.Run("unknown key", func(t *testing.T) {
		calls := lister.count()
		err := s.RemoveFilter(ctx, FilterKey("priority"))
		require.Error(t, err)
		assert.Equal(t, calls, lister.count())
	})
}

func TestClearAllFilters(t *testing.T) {
	ctx := context.Background()
	loc := &memLocation{query: "tab=mine"}
	s := newTestSession(t, &fakeLister{}, WithLocation(loc))
	require.NoError(t, s.SetSearchQuery(ctx, "x"))
	require.NoError(t, s.SetHasHandoffFilter(ctx, Bool(false)))

	require.NoError(t, s.ClearAllFilters(ctx))

	assert.True(t, s.Snapshot().Filters.IsEmpty())
	assert.Equal(t, "tab=mine", loc.query)
}

func TestPagingBounds(t *testing.T) {
	ctx := context.Background()
	lister := &fakeLister{total: 45}
	s := newTestSession(t, lister)

	require.NoError(t, s.PrevPage(ctx))
	assert.Equal(t, 0, lister.count(), "prev on first page must not fetch")

	require.NoError(t, s.FetchConversations(ctx, Overrides{}))
	require.Equal(t, 3, s.Snapshot().Pagination.TotalPages)

	require.NoError(t, s.NextPage(ctx))
	require.NoError(t, s.NextPage(ctx))
	assert.Equal(t, 3, s.Snapshot().CurrentPage)
	assert.False(t, s.Snapshot().HasNextPage())

	calls := lister.count()
	require.NoError(t, s.NextPage(ctx))
	assert.Equal(t, calls, lister.count(), "next on last page must not fetch")

	require.NoError(t, s.PrevPage(ctx))
	assert.Equal(t, 2, s.Snapshot().CurrentPage)
	assert.True(t, s.Snapshot().HasPrevPage())
}

func TestSyncWithLocation(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds filters from query", func(t *testing.T) {
		lister := &fakeLister{}
		loc := &memLocation{query: "tab=x&search=shoes&status=closed&has_handoff=true"}
		s := newTestSession(t, lister, WithLocation(loc))

		require.NoError(t, s.SyncWithLocation(ctx))

		f := s.Snapshot().Filters
		assert.Equal(t, "shoes", f.SearchQuery)
		assert.Equal(t, []Status{StatusClosed}, f.StatusFilters)
		require.NotNil(t, f.HasHandoffFilter)
		assert.True(t, *f.HasHandoffFilter)
		assert.Equal(t, "shoes", lister.last(t).Search)
		assert.Equal(t, 0, loc.replaces)
	})

	t.Run("fetches without filter params", func(t *testing.T) {
		lister := &fakeLister{}
		s := newTestSession(t, lister, WithLocation(&memLocation{query: "tab=x"}))

		require.NoError(t, s.SyncWithLocation(ctx))

		assert.Equal(t, 1, lister.count())
		assert.True(t, s.Snapshot().Filters.IsEmpty())
		assert.Equal(t, LoadingSuccess, s.Snapshot().LoadingState)
	})
}

func TestScenarioCFetchErrorKeepsConversations(t *testing.T) {
	ctx := context.Background()
	lister := &fakeLister{}
	s := newTestSession(t, lister)
	require.NoError(t, s.FetchConversations(ctx, Overrides{}))
	previous := s.Snapshot().Conversations
	require.NotEmpty(t, previous)

	lister.fail(errors.New("Network error"))
	err := s.FetchConversations(ctx, Overrides{Page: 2})
	require.Error(t, err)

	v := s.Snapshot()
	assert.Equal(t, previous, v.Conversations)
	assert.Equal(t, LoadingError, v.LoadingState)
	assert.Equal(t, "Network error", v.Error)
	assert.Equal(t, 1, v.CurrentPage, "failed fetch must not adopt the requested page")

	s.ClearError()
	assert.Empty(t, s.Snapshot().Error)
	assert.Equal(t, 2, lister.count(), "clearing the error must not fetch")
}

func TestFetchAdoptsRequestCursor(t *testing.T) {
	s := newTestSession(t, &fakeLister{})

	require.NoError(t, s.FetchConversations(context.Background(), Overrides{
		Page: 4, PerPage: 10, SortBy: SortStatus, SortOrder: SortAsc,
	}))

	v := s.Snapshot()
	assert.Equal(t, 4, v.CurrentPage)
	assert.Equal(t, 10, v.PerPage)
	assert.Equal(t, SortStatus, v.SortBy)
	assert.Equal(t, SortAsc, v.SortOrder)
	assert.Equal(t, LoadingSuccess, v.LoadingState)
	assert.Equal(t, 4, v.Pagination.Page)
}

func TestFetchFilterOverrideDoesNotChangeCanonicalFilters(t *testing.T) {
	lister := &fakeLister{}
	s := newTestSession(t, lister)

	override := FilterState{SearchQuery: "peek"}
	require.NoError(t, s.FetchConversations(context.Background(), Overrides{Filters: &override}))

	assert.Equal(t, "peek", lister.last(t).Search)
	assert.True(t, s.Snapshot().Filters.IsEmpty())
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})
	lister := &fakeLister{}
	lister.before = func(p QueryParams) {
		if p.Page == 2 {
			close(entered)
			<-release
		}
	}
	s := newTestSession(t, lister)

	slow := make(chan error, 1)
	go func() { slow <- s.FetchConversations(ctx, Overrides{Page: 2}) }()
	<-entered

	require.NoError(t, s.FetchConversations(ctx, Overrides{Page: 3}))
	close(release)

	assert.ErrorIs(t, <-slow, ErrStaleResponse)
	v := s.Snapshot()
	assert.Equal(t, 3, v.CurrentPage)
	assert.Equal(t, 3, v.Conversations[0].ID)
	assert.Equal(t, LoadingSuccess, v.LoadingState)
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	s := newTestSession(t, &fakeLister{})
	var states []LoadingState
	unsubscribe := s.Subscribe(func(v View) { states = append(states, v.LoadingState) })

	require.NoError(t, s.FetchConversations(context.Background(), Overrides{}))
	unsubscribe()
	require.NoError(t, s.FetchConversations(context.Background(), Overrides{}))

	assert.Equal(t, []LoadingState{LoadingLoading, LoadingSuccess}, states)
}

func TestSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, &fakeLister{})
	require.NoError(t, s.SetStatusFilters(ctx, StatusActive))

	v := s.Snapshot()
	v.Filters.StatusFilters[0] = StatusClosed

	assert.Equal(t, []Status{StatusActive}, s.Snapshot().Filters.StatusFilters)
}
