// Package inbox implements the conversation list engine: canonical filter,
// sort and pagination state, its query-string codec, saved filter snapshots,
// and the fetch lifecycle against a conversation listing service.
package inbox

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Status is a conversation status filter value. Values outside the known set
// are carried through as opaque strings.
type Status string

const (
	StatusActive  Status = "active"
	StatusHandoff Status = "handoff"
	StatusClosed  Status = "closed"
)

// Sentiment is a conversation sentiment filter value.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// KnownStatuses lists the statuses the listing service understands.
var KnownStatuses = []Status{StatusActive, StatusHandoff, StatusClosed}

// KnownSentiments lists the sentiments the listing service understands.
var KnownSentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative}

// FilterKey names one dimension of FilterState.
type FilterKey string

const (
	KeySearchQuery      FilterKey = "searchQuery"
	KeyDateRange        FilterKey = "dateRange"
	KeyStatusFilters    FilterKey = "statusFilters"
	KeySentimentFilters FilterKey = "sentimentFilters"
	KeyHasHandoffFilter FilterKey = "hasHandoffFilter"
)

// ParseFilterKey accepts either the state field name or the query parameter
// name of a dimension (e.g. "statusFilters" or "status").
func ParseFilterKey(s string) (FilterKey, error) {
	switch strings.TrimSpace(s) {
	case string(KeySearchQuery), ParamSearch, "q":
		return KeySearchQuery, nil
	case string(KeyDateRange), "date", "dates", ParamDateFrom, ParamDateTo:
		return KeyDateRange, nil
	case string(KeyStatusFilters), ParamStatus:
		return KeyStatusFilters, nil
	case string(KeySentimentFilters), ParamSentiment:
		return KeySentimentFilters, nil
	case string(KeyHasHandoffFilter), ParamHasHandoff, "handoff":
		return KeyHasHandoffFilter, nil
	default:
		return "", fmt.Errorf("unknown filter key %q (use search, dates, status, sentiment, or handoff)", s)
	}
}

// DateRange holds inclusive calendar-day bounds. A nil side is open-ended.
type DateRange struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

// FilterState is the canonical set of list filters.
//
// Set-typed fields are ordered and de-duplicated; an empty set means "all".
// HasHandoffFilter is tri-state: nil means the dimension is not filtered.
type FilterState struct {
	SearchQuery      string      `json:"searchQuery"`
	DateRange        DateRange   `json:"dateRange"`
	StatusFilters    []Status    `json:"statusFilters"`
	SentimentFilters []Sentiment `json:"sentimentFilters"`
	HasHandoffFilter *bool       `json:"hasHandoffFilter"`
}

// Clone returns a deep copy that shares no memory with f.
func (f FilterState) Clone() FilterState {
	out := FilterState{
		SearchQuery:      f.SearchQuery,
		DateRange:        DateRange{From: cloneTime(f.DateRange.From), To: cloneTime(f.DateRange.To)},
		StatusFilters:    slices.Clone(f.StatusFilters),
		SentimentFilters: slices.Clone(f.SentimentFilters),
	}
	if f.HasHandoffFilter != nil {
		v := *f.HasHandoffFilter
		out.HasHandoffFilter = &v
	}
	return out
}

// IsEmpty reports whether every dimension is at its default.
func (f FilterState) IsEmpty() bool {
	return f.SearchQuery == "" &&
		f.DateRange.From == nil && f.DateRange.To == nil &&
		len(f.StatusFilters) == 0 &&
		len(f.SentimentFilters) == 0 &&
		f.HasHandoffFilter == nil
}

// ActiveCount returns the number of dimensions that currently filter the list.
func (f FilterState) ActiveCount() int {
	n := 0
	if f.SearchQuery != "" {
		n++
	}
	if f.DateRange.From != nil || f.DateRange.To != nil {
		n++
	}
	if len(f.StatusFilters) > 0 {
		n++
	}
	if len(f.SentimentFilters) > 0 {
		n++
	}
	if f.HasHandoffFilter != nil {
		n++
	}
	return n
}

// Equal compares two filter states; nil and empty sets are equal.
func (f FilterState) Equal(o FilterState) bool {
	return f.SearchQuery == o.SearchQuery &&
		timePtrEqual(f.DateRange.From, o.DateRange.From) &&
		timePtrEqual(f.DateRange.To, o.DateRange.To) &&
		slices.Equal(f.StatusFilters, o.StatusFilters) &&
		slices.Equal(f.SentimentFilters, o.SentimentFilters) &&
		boolPtrEqual(f.HasHandoffFilter, o.HasHandoffFilter)
}

// normalized returns a copy with de-duplicated sets and day-aligned dates.
func (f FilterState) normalized() FilterState {
	out := f.Clone()
	out.StatusFilters = dedupe(out.StatusFilters)
	out.SentimentFilters = dedupe(out.SentimentFilters)
	out.DateRange.From = dayPtr(out.DateRange.From)
	out.DateRange.To = dayPtr(out.DateRange.To)
	return out
}

// Day truncates t to midnight UTC of its calendar day in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Bool returns a pointer to v, for the tri-state handoff filter.
func Bool(v bool) *bool { return &v }

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := Day(*t)
	return &d
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// dedupe keeps the first occurrence of each non-empty value, preserving order.
// An empty result is nil.
func dedupe[T ~string](in []T) []T {
	var out []T
	seen := make(map[T]struct{}, len(in))
	for _, v := range in {
		v = T(strings.TrimSpace(string(v)))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// without removes value from the set; the original is returned unchanged
// when value is absent.
func without[T ~string](in []T, value T) []T {
	if !slices.Contains(in, value) {
		return in
	}
	var out []T
	for _, v := range in {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}

// EnumError reports a value outside an enumerated set.
type EnumError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *EnumError) Error() string {
	return fmt.Sprintf("invalid %s %q: must be one of %s", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

func parseEnum[T ~string](field, s string, known []T) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(known, v) {
		return v, nil
	}
	allowed := make([]string, len(known))
	for i, k := range known {
		allowed[i] = string(k)
	}
	return "", &EnumError{Field: field, Value: s, Allowed: allowed}
}

// ParseStatuses validates each value against KnownStatuses.
func ParseStatuses(values []string) ([]Status, error) {
	out := make([]Status, 0, len(values))
	for _, s := range values {
		v, err := parseEnum("status", s, KnownStatuses)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseSentiments validates each value against KnownSentiments.
func ParseSentiments(values []string) ([]Sentiment, error) {
	out := make([]Sentiment, 0, len(values))
	for _, s := range values {
		v, err := parseEnum("sentiment", s, KnownSentiments)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseSortField validates a sort column name.
func ParseSortField(s string) (SortField, error) {
	return parseEnum("sort field", s, []SortField{SortUpdatedAt, SortCreatedAt, SortStatus})
}

// ParseSortOrder validates a sort direction.
func ParseSortOrder(s string) (SortOrder, error) {
	return parseEnum("sort order", s, []SortOrder{SortAsc, SortDesc})
}
