package inbox

import (
	"net/url"
	"strings"
	"time"
)

// Query parameter names recognized by the codec. Every other key in a query
// string belongs to someone else and is never touched.
const (
	ParamSearch     = "search"
	ParamDateFrom   = "date_from"
	ParamDateTo     = "date_to"
	ParamStatus     = "status"
	ParamSentiment  = "sentiment"
	ParamHasHandoff = "has_handoff"
)

// recognizedParams is also the order in which Encode writes keys.
var recognizedParams = []string{
	ParamSearch,
	ParamDateFrom,
	ParamDateTo,
	ParamStatus,
	ParamSentiment,
	ParamHasHandoff,
}

func isRecognizedParam(key string) bool {
	for _, k := range recognizedParams {
		if k == key {
			return true
		}
	}
	return false
}

// Location is the external place filter state is mirrored to: a browser URL
// in a web target, a state file for the CLI. Replace must overwrite the
// current entry rather than add a new one.
type Location interface {
	Read() (string, error)
	Replace(rawQuery string) error
}

// Partial is a decoded query string. Nil fields were absent and are left to
// the caller.
type Partial struct {
	SearchQuery      *string
	DateFrom         *time.Time
	DateTo           *time.Time
	StatusFilters    []Status
	SentimentFilters []Sentiment
	HasHandoffFilter *bool
}

// IsEmpty reports whether no recognized parameter was decoded.
func (p Partial) IsEmpty() bool {
	return p.SearchQuery == nil &&
		p.DateFrom == nil && p.DateTo == nil &&
		p.StatusFilters == nil &&
		p.SentimentFilters == nil &&
		p.HasHandoffFilter == nil
}

// ApplyTo overlays the decoded fields onto base.
func (p Partial) ApplyTo(base FilterState) FilterState {
	out := base.Clone()
	if p.SearchQuery != nil {
		out.SearchQuery = *p.SearchQuery
	}
	if p.DateFrom != nil {
		out.DateRange.From = cloneTime(p.DateFrom)
	}
	if p.DateTo != nil {
		out.DateRange.To = cloneTime(p.DateTo)
	}
	if p.StatusFilters != nil {
		out.StatusFilters = append([]Status(nil), p.StatusFilters...)
	}
	if p.SentimentFilters != nil {
		out.SentimentFilters = append([]Sentiment(nil), p.SentimentFilters...)
	}
	if p.HasHandoffFilter != nil {
		v := *p.HasHandoffFilter
		out.HasHandoffFilter = &v
	}
	return out.normalized()
}

// Decode parses the recognized keys of a query string. Values that do not
// have the expected shape are dropped; Decode never fails.
func Decode(rawQuery string) Partial {
	// ParseQuery keeps every well-formed pair even when it reports an error.
	values, _ := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))

	var p Partial
	if search := values.Get(ParamSearch); search != "" {
		p.SearchQuery = &search
	}
	if t, ok := parseDate(values.Get(ParamDateFrom)); ok {
		p.DateFrom = &t
	}
	if t, ok := parseDate(values.Get(ParamDateTo)); ok {
		p.DateTo = &t
	}
	p.StatusFilters = dedupe(toStatuses(values[ParamStatus]))
	p.SentimentFilters = dedupe(toSentiments(values[ParamSentiment]))
	switch strings.ToLower(strings.TrimSpace(values.Get(ParamHasHandoff))) {
	case "true":
		p.HasHandoffFilter = Bool(true)
	case "false":
		p.HasHandoffFilter = Bool(false)
	}
	return p
}

// Encode renders f as a query string containing only the recognized keys.
func Encode(f FilterState) string {
	return EncodeQuery("", f)
}

// EncodeQuery rewrites the recognized keys of rawQuery to reflect f. Pairs
// with other keys are kept verbatim and in their original order; recognized
// keys are appended in a fixed order, and dimensions at their default are
// left out entirely.
func EncodeQuery(rawQuery string, f FilterState) string {
	var pairs []string
	for _, pair := range strings.Split(strings.TrimPrefix(rawQuery, "?"), "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil && isRecognizedParam(k) {
			continue
		}
		pairs = append(pairs, pair)
	}

	add := func(key, value string) {
		pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(value))
	}
	f = f.normalized()
	if f.SearchQuery != "" {
		add(ParamSearch, f.SearchQuery)
	}
	if f.DateRange.From != nil {
		add(ParamDateFrom, f.DateRange.From.Format(DateLayout))
	}
	if f.DateRange.To != nil {
		add(ParamDateTo, f.DateRange.To.Format(DateLayout))
	}
	for _, s := range f.StatusFilters {
		add(ParamStatus, string(s))
	}
	for _, s := range f.SentimentFilters {
		add(ParamSentiment, string(s))
	}
	if f.HasHandoffFilter != nil {
		if *f.HasHandoffFilter {
			add(ParamHasHandoff, "true")
		} else {
			add(ParamHasHandoff, "false")
		}
	}
	return strings.Join(pairs, "&")
}

// WriteLocation mirrors f into loc, preserving loc's unrelated parameters.
func WriteLocation(loc Location, f FilterState) error {
	raw, err := loc.Read()
	if err != nil {
		return err
	}
	next := EncodeQuery(raw, f)
	if next == strings.TrimPrefix(raw, "?") {
		return nil
	}
	return loc.Replace(next)
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), true
	}
	return time.Time{}, false
}

func toStatuses(in []string) []Status {
	out := make([]Status, 0, len(in))
	for _, s := range in {
		out = append(out, Status(s))
	}
	return out
}

func toSentiments(in []string) []Sentiment {
	out := make([]Sentiment, 0, len(in))
	for _, s := range in {
		out = append(out, Sentiment(s))
	}
	return out
}
