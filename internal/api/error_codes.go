package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode classifies a failed list or profile call for --output json.
type ErrorCode string

const (
	ErrBadRequest   ErrorCode = "bad_request"
	ErrUnauthorized ErrorCode = "unauthorized"
	ErrForbidden    ErrorCode = "forbidden"
	ErrNotFound     ErrorCode = "not_found"
	ErrValidation   ErrorCode = "validation_failed"
	ErrRateLimited  ErrorCode = "rate_limited"
	ErrServerError  ErrorCode = "server_error"
	ErrTimeout      ErrorCode = "timeout"
	ErrCircuitOpen  ErrorCode = "circuit_open"
	ErrUnknown      ErrorCode = "unknown"
)

var statusCodes = map[int]ErrorCode{
	http.StatusBadRequest:          ErrBadRequest,
	http.StatusUnauthorized:        ErrUnauthorized,
	http.StatusForbidden:           ErrForbidden,
	http.StatusNotFound:            ErrNotFound,
	http.StatusUnprocessableEntity: ErrValidation,
	http.StatusTooManyRequests:     ErrRateLimited,
}

// codeHints holds the next step a user can take for each code. The listing
// service rejects filters it cannot parse with 400 or 422, so both point at
// the stored filters rather than the request.
var codeHints = map[ErrorCode]string{
	ErrUnauthorized: "Run 'inboxq config account set' or export INBOXQ_API_TOKEN",
	ErrForbidden:    "The token cannot list conversations for this account",
	ErrNotFound:     "Check the account id and base URL with 'inboxq config show'",
	ErrBadRequest:   "Run 'inboxq filter clear' if the stored filters are stale",
	ErrValidation:   "Run 'inboxq filter clear' if the stored filters are stale",
	ErrRateLimited:  "Wait a moment, or raise the watch interval",
	ErrServerError:  "The listing service failed; the previous page is kept",
	ErrTimeout:      "Retry with a larger --timeout",
	ErrCircuitOpen:  "The listing service keeps failing; requests resume after the cooldown",
}

// IsRetryable reports whether the same list call may succeed later.
func (c ErrorCode) IsRetryable() bool {
	switch c {
	case ErrRateLimited, ErrServerError, ErrTimeout, ErrCircuitOpen:
		return true
	}
	return false
}

// Suggestion returns a hint for c, or "".
func (c ErrorCode) Suggestion() string { return codeHints[c] }

// ErrorCodeFromStatus maps an HTTP status from the listing service.
func ErrorCodeFromStatus(status int) ErrorCode {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	if status >= 500 && status < 600 {
		return ErrServerError
	}
	return ErrUnknown
}

// StructuredError is the JSON shape of an error in --output json mode.
type StructuredError struct {
	Code          ErrorCode      `json:"code"`
	Message       string         `json:"message"`
	Retryable     bool           `json:"retryable"`
	Suggestion    string         `json:"suggestion,omitempty"`
	Context       map[string]any `json:"context,omitempty"`
	AllowedValues []string       `json:"allowed_values,omitempty"`
}

func (e *StructuredError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewStructuredError fills Retryable and Suggestion from code.
func NewStructuredError(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:       code,
		Message:    message,
		Retryable:  code.IsRetryable(),
		Suggestion: code.Suggestion(),
	}
}

// NewValidationError reports a filter or sort value outside allowed.
func NewValidationError(field, got string, allowed []string) *StructuredError {
	return &StructuredError{
		Code:          ErrValidation,
		Message:       fmt.Sprintf("invalid %s %q: must be one of %s", field, got, strings.Join(allowed, ", ")),
		Suggestion:    fmt.Sprintf("Use one of: %s", strings.Join(allowed, ", ")),
		AllowedValues: allowed,
		Context:       map[string]any{"field": field, "got": got},
	}
}

// StructuredErrorFromError classifies err. It returns nil for nil.
func StructuredErrorFromError(err error) *StructuredError {
	if err == nil {
		return nil
	}

	var (
		se      *StructuredError
		apiErr  *APIError
		rateErr *RateLimitError
		authErr *AuthError
		cbErr   *CircuitBreakerError
	)
	switch {
	case errors.As(err, &se):
		return se
	case errors.As(err, &apiErr):
		out := NewStructuredError(ErrorCodeFromStatus(apiErr.StatusCode), apiErr.Body)
		out.Context = map[string]any{"status_code": apiErr.StatusCode}
		if apiErr.RequestID != "" {
			out.Context["request_id"] = apiErr.RequestID
		}
		return out
	case errors.As(err, &rateErr):
		out := NewStructuredError(ErrRateLimited, rateErr.Error())
		out.Context = map[string]any{"retry_after": rateErr.RetryAfter.String()}
		return out
	case errors.As(err, &authErr):
		return NewStructuredError(ErrUnauthorized, authErr.Error())
	case errors.As(err, &cbErr):
		return NewStructuredError(ErrCircuitOpen, cbErr.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return NewStructuredError(ErrTimeout, err.Error())
	}
	return &StructuredError{Code: ErrUnknown, Message: err.Error()}
}
