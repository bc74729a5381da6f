package cmd

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chatwoot/inboxq/internal/api"
	"github.com/chatwoot/inboxq/internal/config"
	"github.com/chatwoot/inboxq/internal/inbox"
	"github.com/chatwoot/inboxq/internal/resolve"
)

func TestHandleError(t *testing.T) {
	_, enumErr := inbox.ParseStatuses([]string{"open"})
	_, typoErr := inbox.ParseSentiments([]string{"negativ"})

	tests := []struct {
		name         string
		err          error
		wantContains []string
	}{
		{
			name:         "nil error",
			err:          nil,
			wantContains: []string{},
		},
		{
			name:         "not configured",
			err:          config.ErrNotConfigured,
			wantContains: []string{"No listing service configured", "inboxq config account set"},
		},
		{
			name:         "enum",
			err:          enumErr,
			wantContains: []string{`Invalid status "open"`, "active, handoff, closed"},
		},
		{
			name:         "enum typo",
			err:          typoErr,
			wantContains: []string{`Did you mean "negative"?`},
		},
		{
			name:         "ambiguous saved filter",
			err:          &resolve.AmbiguousError{Query: "ref", Matches: []resolve.Match{{ID: "a", Name: "Refunds"}}},
			wantContains: []string{"ambiguous match", "inboxq saved list"},
		},
		{
			name:         "rate limit error",
			err:          &api.RateLimitError{RetryAfter: 5 * time.Second},
			wantContains: []string{"Rate limit exceeded", "Wait a few seconds"},
		},
		{
			name:         "circuit breaker error",
			err:          &api.CircuitBreakerError{},
			wantContains: []string{"circuit breaker", "Wait 30 seconds"},
		},
		{
			name:         "auth error",
			err:          &api.AuthError{Reason: "invalid token"},
			wantContains: []string{"Authentication failed: invalid token"},
		},
		{
			name:         "422 API error with request id",
			err:          &api.APIError{StatusCode: 422, Body: "bad status", RequestID: "req-1"},
			wantContains: []string{"API error (HTTP 422)", "inboxq filter clear", "Request ID: req-1"},
		},
		{
			name:         "server error",
			err:          &api.APIError{StatusCode: 503, Body: "down"},
			wantContains: []string{"not your fault"},
		},
		{
			name:         "connection refused",
			err:          errors.New("dial tcp 127.0.0.1:1: connection refused"),
			wantContains: []string{"Connection refused", "inboxq config show"},
		},
		{
			name:         "generic",
			err:          errors.New("boom"),
			wantContains: []string{"Error: boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HandleError(tt.err)
			if tt.err == nil && got != "" {
				t.Fatalf("HandleError(nil) = %q, want empty", got)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("HandleError() = %q, want it to contain %q", got, want)
				}
			}
		})
	}
}
