package inbox

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildQueryParamsDefaults(t *testing.T) {
	p := BuildQueryParams(Cursor{}, FilterState{})

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Equal(t, DefaultSortField, p.SortBy)
	assert.Equal(t, DefaultSortOrder, p.SortOrder)

	v := p.Values()
	want := url.Values{
		"page":       {"1"},
		"per_page":   {"20"},
		"sort_by":    {"updated_at"},
		"sort_order": {"desc"},
	}
	assert.Equal(t, want, v)
}

func TestBuildQueryParamsFilters(t *testing.T) {
	from := time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC)
	f := FilterState{
		SearchQuery:      "  late delivery ",
		DateRange:        DateRange{From: &from, To: date(2024, 5, 7)},
		StatusFilters:    []Status{StatusActive, StatusActive, StatusClosed},
		SentimentFilters: []Sentiment{SentimentNegative},
		HasHandoffFilter: Bool(false),
	}

	v := BuildQueryParams(Cursor{Page: 3, PerPage: 50, SortBy: SortStatus, SortOrder: SortAsc}, f).Values()

	assert.Equal(t, "3", v.Get("page"))
	assert.Equal(t, "50", v.Get("per_page"))
	assert.Equal(t, "status", v.Get("sort_by"))
	assert.Equal(t, "asc", v.Get("sort_order"))
	assert.Equal(t, "late delivery", v.Get("search"))
	assert.Equal(t, "2024-05-01", v.Get("date_from"))
	assert.Equal(t, "2024-05-07", v.Get("date_to"))
	assert.Equal(t, []string{"active", "closed"}, v["status"])
	assert.Equal(t, []string{"negative"}, v["sentiment"])
	assert.Equal(t, "false", v.Get("has_handoff"))

	// the source filters are not modified
	assert.Equal(t, []Status{StatusActive, StatusActive, StatusClosed}, f.StatusFilters)
}

func TestBuildQueryParamsOmitsBlankSearch(t *testing.T) {
	v := BuildQueryParams(Cursor{}, FilterState{SearchQuery: "   "}).Values()
	assert.NotContains(t, v, "search")
}
