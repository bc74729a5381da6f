package outfmt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

type queryKey struct{}

// WithQuery adds a jq expression to the context
func WithQuery(ctx context.Context, query string) context.Context {
	return context.WithValue(ctx, queryKey{}, query)
}

// GetQuery retrieves the jq expression from context
func GetQuery(ctx context.Context) string {
	if q, ok := ctx.Value(queryKey{}).(string); ok {
		return q
	}
	return ""
}

// Generic converts v to plain JSON values (maps, slices, float64, ...) so
// jq can walk it.
func Generic(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyQuery runs a jq expression against v. A single result is returned as
// is; multiple results are returned as a list.
func ApplyQuery(v any, expression string) (any, error) {
	data, err := Generic(v)
	if err != nil {
		return nil, err
	}
	if expression == "" {
		return data, nil
	}

	// zsh escapes ! even inside single quotes
	expression = strings.ReplaceAll(expression, `\!`, `!`)
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}

	var results []any
	iter := query.Run(data)
	for {
		r, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := r.(error); ok {
			return nil, fmt.Errorf("filter error: %w", err)
		}
		results = append(results, r)
	}
	if len(results) == 1 {
		return results[0], nil
	}
	if results == nil {
		results = []any{}
	}
	return results, nil
}
