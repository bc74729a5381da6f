package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// captureStdout executes a function and captures its stdout output.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// captureStderr executes a function and captures its stderr output.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	fn()

	_ = w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// listingService is a fake conversation listing endpoint. It records every
// query it receives and serves totalPages pages of two conversations each.
type listingService struct {
	mu         sync.Mutex
	queries    []url.Values
	totalPages int
	status     int
}

func (s *listingService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.queries = append(s.queries, r.URL.Query())
	status, totalPages := s.status, s.totalPages
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/api/v1/profile":
		_, _ = w.Write([]byte(`{"id": 3, "name": "Agent", "email": "agent@example.com", "pubsub_token": "pub-123"}`))
		return
	case r.URL.Path != "/api/v1/accounts/1/conversations":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "Not found"}`))
		return
	case status != 0:
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error": "listing failed"}`))
		return
	}

	page := r.URL.Query().Get("page")
	if page == "" {
		page = "1"
	}
	_, _ = fmt.Fprintf(w, `{
		"data": [
			{"id": 101, "status": "active", "sentiment": "negative", "has_handoff": true, "contact_name": "Ada", "last_message": "I want a refund", "created_at": "2024-03-01T10:00:00Z", "updated_at": "2024-03-02T10:00:00Z"},
			{"id": 102, "status": "closed", "has_handoff": false, "created_at": "2024-03-01T11:00:00Z", "updated_at": "2024-03-01T11:00:00Z"}
		],
		"meta": {"pagination": {"total": %d, "page": %s, "per_page": 20, "total_pages": %d}}
	}`, totalPages*2, page, totalPages)
}

func (s *listingService) requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func (s *listingService) last(t *testing.T) url.Values {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queries) == 0 {
		t.Fatal("listing service received no requests")
	}
	return s.queries[len(s.queries)-1]
}

// testEnv is an isolated workspace: a fake listing service, credentials in
// the environment, and state and config directories under t.TempDir().
type testEnv struct {
	service  *listingService
	server   *httptest.Server
	stateDir string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	service := &listingService{totalPages: 3}
	server := httptest.NewServer(service)
	t.Cleanup(server.Close)

	env := &testEnv{service: service, server: server, stateDir: t.TempDir()}
	setupOfflineEnv(t, env.stateDir)
	t.Setenv("INBOXQ_BASE_URL", server.URL)
	t.Setenv("INBOXQ_API_TOKEN", "test-token")
	t.Setenv("INBOXQ_ACCOUNT_ID", "1")
	return env
}

// setupOfflineEnv isolates state and config without any credentials.
func setupOfflineEnv(t *testing.T, stateDir string) {
	t.Helper()
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	t.Setenv("INBOXQ_CREDENTIALS_DIR", filepath.Join(configHome, "credentials"))
	t.Setenv("INBOXQ_CONFIG", "")
	t.Setenv("INBOXQ_STATE_DIR", stateDir)
	t.Setenv("INBOXQ_STORE", "file")
	t.Setenv("INBOXQ_BASE_URL", "")
	t.Setenv("INBOXQ_API_TOKEN", "")
	t.Setenv("INBOXQ_ACCOUNT_ID", "")
}

func (e *testEnv) storedQuery(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.stateDir, locationFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("read stored query: %v", err)
	}
	return string(bytes.TrimSpace(data))
}

// run executes args and returns stdout, failing the test on error.
func run(t *testing.T, args ...string) string {
	t.Helper()
	var err error
	out := captureStdout(t, func() {
		err = Execute(t.Context(), args)
	})
	if err != nil {
		t.Fatalf("Execute(%v) error = %v", args, err)
	}
	return out
}

func decodeJSON[T any](t *testing.T, output string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(output), &v); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, output)
	}
	return v
}
