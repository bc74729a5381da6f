package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chatwoot/inboxq/internal/api"
	"github.com/chatwoot/inboxq/internal/config"
	"github.com/chatwoot/inboxq/internal/inbox"
	"github.com/chatwoot/inboxq/internal/resolve"
)

// HandleError processes an error and returns a user-friendly message with suggestions
func HandleError(err error) string {
	if err == nil {
		return ""
	}

	var msg strings.Builder

	var apiErr *api.APIError
	var rateLimitErr *api.RateLimitError
	var circuitBreakerErr *api.CircuitBreakerError
	var authErr *api.AuthError
	var enumErr *inbox.EnumError
	var ambiguousErr *resolve.AmbiguousError

	switch {
	case errors.Is(err, config.ErrNotConfigured):
		msg.WriteString("No listing service configured.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: inboxq config account set --base-url URL --token TOKEN --account-id ID\n")
		msg.WriteString("  - Or export INBOXQ_BASE_URL, INBOXQ_API_TOKEN and INBOXQ_ACCOUNT_ID\n")

	case errors.As(err, &enumErr):
		fmt.Fprintf(&msg, "Invalid %s %q.\n\n", enumErr.Field, enumErr.Value)
		if hint := suggestValue(enumErr.Value, enumErr.Allowed); hint != "" {
			fmt.Fprintf(&msg, "Did you mean %q?\n", hint)
		}
		fmt.Fprintf(&msg, "Allowed values: %s\n", strings.Join(enumErr.Allowed, ", "))

	case errors.As(err, &ambiguousErr):
		fmt.Fprintf(&msg, "%s\n\n", ambiguousErr.Error())
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Use the saved filter id instead of its name\n")
		msg.WriteString("  - Run: inboxq saved list\n")

	case errors.As(err, &rateLimitErr):
		msg.WriteString("Rate limit exceeded.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Wait a few seconds and retry\n")
		msg.WriteString("  - Use a longer --interval with watch\n")

	case errors.As(err, &circuitBreakerErr):
		msg.WriteString("Service temporarily unavailable (circuit breaker open).\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - The listing service has had multiple failures recently\n")
		msg.WriteString("  - Wait 30 seconds and retry\n")

	case errors.As(err, &authErr):
		fmt.Fprintf(&msg, "Authentication failed: %s\n\n", authErr.Reason)
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: inboxq config account set\n")
		msg.WriteString("  - Verify your API token is valid\n")

	case errors.As(err, &apiErr):
		fmt.Fprintf(&msg, "API error (HTTP %d): %s\n\n", apiErr.StatusCode, apiErr.Body)
		msg.WriteString(suggestionsForStatusCode(apiErr.StatusCode))
		if apiErr.RequestID != "" {
			fmt.Fprintf(&msg, "\nRequest ID: %s\n", apiErr.RequestID)
		}

	case strings.Contains(err.Error(), "connection refused"):
		msg.WriteString("Connection refused.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check if the listing service is running\n")
		msg.WriteString("  - Verify the base URL: inboxq config show\n")

	case strings.Contains(err.Error(), "no such host"):
		msg.WriteString("DNS resolution failed.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check the base URL spelling\n")
		msg.WriteString("  - Verify your DNS settings\n")

	default:
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())
	}

	return msg.String()
}

func suggestionsForStatusCode(code int) string {
	var suggestions strings.Builder
	suggestions.WriteString("Suggestions:\n")

	switch code {
	case 400, 422:
		suggestions.WriteString("  - One of the filters was rejected by the listing service\n")
		suggestions.WriteString("  - Run: inboxq filter clear\n")
	case 401:
		suggestions.WriteString("  - Your API token may be invalid or expired\n")
		suggestions.WriteString("  - Run: inboxq config account set\n")
	case 403:
		suggestions.WriteString("  - You don't have permission to list conversations in this account\n")
	case 404:
		suggestions.WriteString("  - Check the account id and base URL\n")
	case 429:
		suggestions.WriteString("  - Too many requests\n")
		suggestions.WriteString("  - Wait and retry in a few seconds\n")
	case 500, 502, 503, 504:
		suggestions.WriteString("  - Server error - not your fault\n")
		suggestions.WriteString("  - Wait and retry\n")
	default:
		suggestions.WriteString("  - Use --debug for more details\n")
	}

	return suggestions.String()
}
