package api

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chatwoot/inboxq/internal/debug"
)

const DefaultTimeout = 30 * time.Second

// Client talks to the conversation listing service. Breaker state lives as
// long as the client, so it spans every poll of a watch or serve process.
type Client struct {
	BaseURL          string
	APIToken         string
	AccountID        int
	HTTP             *http.Client
	UserAgent        string
	Retry            RetryPolicy
	breaker          breaker
	validatedBaseURL bool
	validateMu       sync.Mutex
}

// New creates a client for the account at baseURL.
func New(baseURL, token string, accountID int) *Client {
	baseTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		baseTransport = &http.Transport{}
	}
	transport := baseTransport.Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	} else {
		transport.TLSClientConfig = transport.TLSClientConfig.Clone()
	}
	transport.TLSClientConfig.MinVersion = tls.VersionTLS12

	return &Client{
		BaseURL:   strings.TrimSuffix(baseURL, "/"),
		APIToken:  token,
		AccountID: accountID,
		Retry:     DefaultRetryPolicy(),
		HTTP: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: transport,
		},
	}
}

// ValidateBaseURL checks that raw is an absolute http(s) URL without
// embedded credentials, query or fragment.
func ValidateBaseURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("base URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL has no host")
	}
	if u.User != nil {
		return fmt.Errorf("base URL must not contain credentials")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("base URL must not contain a query or fragment")
	}
	return nil
}

func (c *Client) ensureBaseURLValidated() error {
	c.validateMu.Lock()
	defer c.validateMu.Unlock()

	if c.validatedBaseURL {
		return nil
	}
	if err := ValidateBaseURL(c.BaseURL); err != nil {
		return fmt.Errorf("URL validation failed: %w", err)
	}
	c.validatedBaseURL = true
	return nil
}

// accountPath returns the base path for account-scoped API calls
func (c *Client) accountPath(path string) string {
	if path != "" && path[0] != '/' {
		path = "/" + path
	}
	return fmt.Sprintf("%s/api/v1/accounts/%d%s", c.BaseURL, c.AccountID, path)
}

// get performs a GET request and decodes the response into result.
func (c *Client) get(ctx context.Context, url string, result any) error {
	respBody, _, err := c.executeRequest(ctx, http.MethodGet, url)
	if err != nil {
		return err
	}
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unexpected API response format (JSON decode failed): %w", err)
		}
	}
	return nil
}

// executeRequest performs a GET under the client's retry policy and breaker.
// It returns the response body, status code, and any error.
func (c *Client) executeRequest(ctx context.Context, method, url string) ([]byte, int, error) {
	if !c.breaker.allow(c.Retry) {
		return nil, 0, &CircuitBreakerError{}
	}
	if err := c.ensureBaseURLValidated(); err != nil {
		return nil, 0, err
	}

	var throttled, failed int
	for attempt := 1; ; attempt++ {
		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		if c.APIToken != "" {
			req.Header.Set("api_access_token", c.APIToken)
		}
		if c.UserAgent != "" {
			req.Header.Set("User-Agent", c.UserAgent)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.HTTP.Do(req)
		if err != nil {
			if debug.IsEnabled(ctx) {
				slog.Debug("request failed", "method", method, "url", url, "attempt", attempt, "error", err)
			}
			return nil, 0, fmt.Errorf("request failed: %w", err)
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read response: %w", err)
		}
		if debug.IsEnabled(ctx) {
			slog.Debug("request complete", "method", method, "url", url, "status", resp.StatusCode, "attempt", attempt, "duration", time.Since(start))
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			delay := c.Retry.rateLimitDelay(throttled, resp.Header)
			if throttled >= c.Retry.RateLimitRetries {
				return nil, resp.StatusCode, &RateLimitError{RetryAfter: delay}
			}
			slog.Info("listing service throttled, retrying", "delay", delay, "attempt", throttled+1)
			if err := wait(ctx, delay); err != nil {
				return nil, 0, err
			}
			throttled++
			continue
		case resp.StatusCode >= 500:
			if c.breaker.failure(c.Retry) {
				slog.Warn("listing service failing, pausing requests", "cooldown", c.Retry.BreakerCooldown)
				break
			}
			if failed < c.Retry.ServerErrorRetries {
				slog.Info("listing service error, retrying", "status", resp.StatusCode)
				if err := wait(ctx, c.Retry.ServerErrorDelay); err != nil {
					return nil, 0, err
				}
				failed++
				continue
			}
		case resp.StatusCode == http.StatusUnauthorized:
			return respBody, resp.StatusCode, &AuthError{Reason: sanitizeErrorBody(string(respBody))}
		}

		if resp.StatusCode >= 400 {
			return respBody, resp.StatusCode, &APIError{
				StatusCode: resp.StatusCode,
				Body:       sanitizeErrorBody(string(respBody)),
				RequestID:  requestIDFromHeader(resp.Header),
			}
		}
		c.breaker.success()
		return respBody, resp.StatusCode, nil
	}
}

func requestIDFromHeader(header http.Header) string {
	if header == nil {
		return ""
	}
	return header.Get("X-Request-Id")
}

// sanitizeErrorBody extracts safe error message from API response
// without exposing potentially sensitive data like tokens or user info
func sanitizeErrorBody(body string) string {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Errors  any    `json:"errors"`
	}
	if err := json.Unmarshal([]byte(body), &errResp); err != nil {
		return "API request failed (response body redacted for security)"
	}

	validationErrors := formatValidationErrors(errResp.Errors)

	var result string
	if errResp.Error != "" {
		result = errResp.Error
	} else if errResp.Message != "" {
		result = errResp.Message
	}

	if validationErrors != "" {
		if result != "" {
			return result + "\nValidation errors:\n" + validationErrors
		}
		return "Validation errors:\n" + validationErrors
	}
	if result != "" {
		return result
	}
	return "API request failed (response body redacted for security)"
}

// formatValidationErrors handles both {"field": "msg"} and {"field": ["msg", ...]}.
func formatValidationErrors(errors any) string {
	errMap, ok := errors.(map[string]any)
	if !ok || len(errMap) == 0 {
		return ""
	}

	var lines []string
	for field, value := range errMap {
		switch v := value.(type) {
		case string:
			lines = append(lines, fmt.Sprintf("  %s: %s", field, v))
		case []any:
			for _, msg := range v {
				if msgStr, ok := msg.(string); ok {
					lines = append(lines, fmt.Sprintf("  %s: %s", field, msgStr))
				}
			}
		}
	}
	if len(lines) == 0 {
		return ""
	}

	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

// APIError represents an error response from the API
type APIError struct {
	StatusCode int
	Body       string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}
