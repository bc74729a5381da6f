package inbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioDSaveCurrentFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, &fakeLister{})
	require.NoError(t, s.SetSearchQuery(ctx, "shoes"))
	before := len(s.Snapshot().SavedFilters)

	sf, err := s.SaveCurrentFilters(ctx, "My Filter")
	require.NoError(t, err)

	saved := s.Snapshot().SavedFilters
	assert.Len(t, saved, before+1)
	assert.Equal(t, "shoes", saved[len(saved)-1].Filters.SearchQuery)
	assert.Equal(t, "My Filter", sf.Name)
	assert.Equal(t, "sf-1", sf.ID)
	assert.False(t, sf.CreatedAt.IsZero())
}

func TestSaveRejectsBlankName(t *testing.T) {
	s := newTestSession(t, &fakeLister{})
	_, err := s.SaveCurrentFilters(context.Background(), "  ")
	require.Error(t, err)
	assert.Empty(t, s.SavedFilters())
}

func TestSavedFilterIsImmutable(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, &fakeLister{})
	require.NoError(t, s.SetStatusFilters(ctx, StatusActive))
	sf, err := s.SaveCurrentFilters(ctx, "X")
	require.NoError(t, err)

	require.NoError(t, s.SetStatusFilters(ctx, StatusClosed, StatusHandoff))
	require.NoError(t, s.SetSearchQuery(ctx, "later"))

	got := s.SavedFilters()
	require.Len(t, got, 1)
	assert.Equal(t, []Status{StatusActive}, got[0].Filters.StatusFilters)
	assert.Empty(t, got[0].Filters.SearchQuery)

	// mutating the returned copy does not leak back either
	sf.Filters.StatusFilters[0] = StatusClosed
	assert.Equal(t, []Status{StatusActive}, s.SavedFilters()[0].Filters.StatusFilters)
}

func TestSaveAllowsDuplicateNames(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, &fakeLister{})

	a, err := s.SaveCurrentFilters(ctx, "Same")
	require.NoError(t, err)
	b, err := s.SaveCurrentFilters(ctx, "Same")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, s.SavedFilters(), 2)
}

func TestApplySavedFilterSyncsLocation(t *testing.T) {
	ctx := context.Background()
	lister := &fakeLister{}
	loc := &memLocation{query: "tab=mine"}
	s := newTestSession(t, lister, WithLocation(loc))

	require.NoError(t, s.SetSearchQuery(ctx, "refund"))
	require.NoError(t, s.SetSentimentFilters(ctx, SentimentNegative))
	require.NoError(t, s.SetDateRange(ctx, date(2024, 2, 1), nil))
	sf, err := s.SaveCurrentFilters(ctx, "Angry refunds")
	require.NoError(t, err)

	require.NoError(t, s.ClearAllFilters(ctx))
	require.NoError(t, s.SetStatusFilters(ctx, StatusClosed))
	require.NoError(t, s.GoToPage(ctx, 2))

	require.NoError(t, s.ApplySavedFilter(ctx, sf.ID))

	decoded := Decode(loc.query).ApplyTo(FilterState{})
	assert.True(t, sf.Filters.Equal(decoded), "location %q does not match snapshot", loc.query)
	assert.True(t, sf.Filters.Equal(s.Snapshot().Filters), "apply must overwrite, not merge")
	assert.Contains(t, loc.query, "tab=mine")
	assert.Equal(t, 1, lister.last(t).Page)
	assert.Equal(t, "refund", lister.last(t).Search)
}

func TestUnknownSavedFilterIsNoop(t *testing.T) {
	ctx := context.Background()
	lister := &fakeLister{}
	store := newMemStore()
	s := newTestSession(t, lister, WithStore(store))

	require.NoError(t, s.ApplySavedFilter(ctx, "missing"))
	require.NoError(t, s.DeleteSavedFilter(ctx, "missing"))

	assert.Equal(t, 0, lister.count())
	assert.Equal(t, 0, store.saves)
}

func TestDeleteSavedFilter(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := newTestSession(t, &fakeLister{}, WithStore(store))

	first, err := s.SaveCurrentFilters(ctx, "one")
	require.NoError(t, err)
	second, err := s.SaveCurrentFilters(ctx, "two")
	require.NoError(t, err)

	require.NoError(t, s.DeleteSavedFilter(ctx, first.ID))

	got := s.SavedFilters()
	require.Len(t, got, 1)
	assert.Equal(t, second.ID, got[0].ID)

	var slot persistedSlot
	require.NoError(t, json.Unmarshal(store.data[DefaultSlot], &slot))
	require.Len(t, slot.State.SavedFilters, 1)
	assert.Equal(t, second.ID, slot.State.SavedFilters[0].ID)
}

func TestSaveRollsBackWhenStoreFails(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.saveErr = errStoreDown
	s := newTestSession(t, &fakeLister{}, WithStore(store))

	_, err := s.SaveCurrentFilters(ctx, "lost")
	require.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, s.SavedFilters())
}

func TestFindSavedFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, &fakeLister{})

	_, err := s.FindSavedFilter("anything")
	require.Error(t, err)

	first, err := s.SaveCurrentFilters(ctx, "Refund requests")
	require.NoError(t, err)
	second, err := s.SaveCurrentFilters(ctx, "Angry customers")
	require.NoError(t, err)

	got, err := s.FindSavedFilter(second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	got, err = s.FindSavedFilter("refund")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = s.FindSavedFilter("billing")
	require.Error(t, err)
}
