// Package resolve turns user-typed references into saved filter ids.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// minIDPrefix is the shortest id prefix accepted as a reference.
const minIDPrefix = 4

// Named is anything with an id and a display name.
type Named struct {
	ID   string
	Name string
}

// Match is a fuzzy match result with score.
type Match struct {
	ID    string
	Name  string
	Score int
}

var (
	ErrEmptyQuery = errors.New("empty search query")
	ErrEmptyItems = errors.New("no items to match against")
)

// NotFoundError reports a reference that matched nothing.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no match found for %q", e.Query)
}

// AmbiguousError indicates multiple candidates matched equally well.
// Matches are sorted best-first and capped.
type AmbiguousError struct {
	Query   string
	Matches []Match
}

func (e *AmbiguousError) Error() string {
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "ambiguous match for %q", e.Query)
	if len(e.Matches) > 0 {
		b.WriteString(", candidates:")
		for _, m := range e.Matches {
			_, _ = fmt.Fprintf(&b, "\n  %s: %s", m.ID, m.Name)
		}
	}
	return b.String()
}

type namedSourceLower []Named

func (s namedSourceLower) String(i int) string { return strings.ToLower(s[i].Name) }
func (s namedSourceLower) Len() int            { return len(s) }

// Ref resolves ref against items: an exact id, then a unique id prefix of at
// least four characters, then a name via FuzzyMatch.
func Ref(ref string, items []Named) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrEmptyQuery
	}
	if len(items) == 0 {
		return "", ErrEmptyItems
	}

	for _, item := range items {
		if item.ID == ref {
			return item.ID, nil
		}
	}

	if len(ref) >= minIDPrefix {
		var hits []Match
		for _, item := range items {
			if strings.HasPrefix(item.ID, ref) {
				hits = append(hits, Match{ID: item.ID, Name: item.Name})
			}
		}
		switch {
		case len(hits) == 1:
			return hits[0].ID, nil
		case len(hits) > 1:
			return "", &AmbiguousError{Query: ref, Matches: capMatches(hits, 5)}
		}
	}

	return FuzzyMatch(ref, items)
}

// FuzzyMatch finds the best matching item by name and returns its id.
//
// Behavior:
// - Empty query or empty items are errors.
// - A single exact case-insensitive name wins; several are ambiguous.
// - Otherwise case-insensitive fuzzy matching.
// - If the top two fuzzy results tie on score, returns *AmbiguousError.
func FuzzyMatch(query string, items []Named) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	if len(items) == 0 {
		return "", ErrEmptyItems
	}

	var exact []Match
	for _, item := range items {
		if strings.EqualFold(item.Name, query) {
			exact = append(exact, Match{ID: item.ID, Name: item.Name})
		}
	}
	switch {
	case len(exact) == 1:
		return exact[0].ID, nil
	case len(exact) > 1:
		// saved filter names are not unique
		return "", &AmbiguousError{Query: query, Matches: capMatches(exact, 5)}
	}

	results := fuzzy.FindFrom(strings.ToLower(query), namedSourceLower(items))
	if len(results) == 0 {
		return "", &NotFoundError{Query: query}
	}
	if len(results) > 1 && results[0].Score == results[1].Score {
		return "", &AmbiguousError{
			Query:   query,
			Matches: buildMatches(items, results, 5),
		}
	}
	return items[results[0].Index].ID, nil
}

// FuzzyMatchAll returns up to limit matches ranked by score (best first).
func FuzzyMatchAll(query string, items []Named, limit int) []Match {
	query = strings.TrimSpace(query)
	if query == "" || len(items) == 0 || limit <= 0 {
		return nil
	}

	results := fuzzy.FindFrom(strings.ToLower(query), namedSourceLower(items))
	return buildMatches(items, results, limit)
}

func buildMatches(items []Named, results fuzzy.Matches, limit int) []Match {
	if len(results) == 0 || limit <= 0 {
		return nil
	}
	if len(results) > limit {
		results = results[:limit]
	}
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			ID:    items[r.Index].ID,
			Name:  items[r.Index].Name,
			Score: r.Score,
		}
	}
	return matches
}

func capMatches(m []Match, limit int) []Match {
	if len(m) > limit {
		return m[:limit]
	}
	return m
}
