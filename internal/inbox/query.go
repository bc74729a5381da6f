package inbox

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date layout used on the wire and in
// query strings.
const DateLayout = "2006-01-02"

// Cursor is the pagination and sort half of a list request.
type Cursor struct {
	Page      int
	PerPage   int
	SortBy    SortField
	SortOrder SortOrder
}

// QueryParams is the wire-ready parameter set for a single list request.
// It is derived fresh for every fetch and never mutated afterwards.
type QueryParams struct {
	Page       int
	PerPage    int
	SortBy     SortField
	SortOrder  SortOrder
	Search     string
	DateFrom   *time.Time
	DateTo     *time.Time
	Statuses   []Status
	Sentiments []Sentiment
	HasHandoff *bool
}

// BuildQueryParams maps cursor and filters to request parameters. Zero cursor
// fields fall back to the session defaults; default-valued filters are left
// out.
func BuildQueryParams(c Cursor, f FilterState) QueryParams {
	params := QueryParams{
		Page:      c.Page,
		PerPage:   c.PerPage,
		SortBy:    c.SortBy,
		SortOrder: c.SortOrder,
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 {
		params.PerPage = DefaultPerPage
	}
	if params.SortBy == "" {
		params.SortBy = DefaultSortField
	}
	if params.SortOrder == "" {
		params.SortOrder = DefaultSortOrder
	}

	params.Search = strings.TrimSpace(f.SearchQuery)
	params.DateFrom = dayPtr(f.DateRange.From)
	params.DateTo = dayPtr(f.DateRange.To)
	params.Statuses = dedupe(slices.Clone(f.StatusFilters))
	params.Sentiments = dedupe(slices.Clone(f.SentimentFilters))
	if f.HasHandoffFilter != nil {
		v := *f.HasHandoffFilter
		params.HasHandoff = &v
	}
	return params
}

// Values renders the parameters in wire format: sets become repeated keys
// and dates become ISO-8601 calendar dates.
func (p QueryParams) Values() url.Values {
	query := url.Values{}

	if p.Page > 0 {
		query.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(p.PerPage))
	}
	if p.SortBy != "" {
		query.Set("sort_by", string(p.SortBy))
	}
	if p.SortOrder != "" {
		query.Set("sort_order", string(p.SortOrder))
	}
	if p.Search != "" {
		query.Set(ParamSearch, p.Search)
	}
	if p.DateFrom != nil {
		query.Set(ParamDateFrom, p.DateFrom.Format(DateLayout))
	}
	if p.DateTo != nil {
		query.Set(ParamDateTo, p.DateTo.Format(DateLayout))
	}
	for _, s := range p.Statuses {
		query.Add(ParamStatus, string(s))
	}
	for _, s := range p.Sentiments {
		query.Add(ParamSentiment, string(s))
	}
	if p.HasHandoff != nil {
		query.Set(ParamHasHandoff, strconv.FormatBool(*p.HasHandoff))
	}

	return query
}

// Cursor returns the pagination half of the parameters.
func (p QueryParams) Cursor() Cursor {
	return Cursor{Page: p.Page, PerPage: p.PerPage, SortBy: p.SortBy, SortOrder: p.SortOrder}
}
