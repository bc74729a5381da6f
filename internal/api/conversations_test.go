package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chatwoot/inboxq/internal/inbox"
)

func TestListSendsQueryParams(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"data":[],"meta":{"pagination":{"total":0,"page":2,"per_page":10,"total_pages":0}}}`))
	}))
	defer server.Close()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	handoff := true
	params := inbox.QueryParams{
		Page:       2,
		PerPage:    10,
		SortBy:     inbox.SortCreatedAt,
		SortOrder:  inbox.SortAsc,
		Search:     "refund",
		DateFrom:   &from,
		Statuses:   []inbox.Status{inbox.StatusActive, inbox.StatusHandoff},
		HasHandoff: &handoff,
	}

	if _, err := newTestClient(server).List(context.Background(), params); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if gotPath != "/api/v1/accounts/7/conversations" {
		t.Errorf("path = %q", gotPath)
	}
	want := map[string][]string{
		"page":        {"2"},
		"per_page":    {"10"},
		"sort_by":     {"created_at"},
		"sort_order":  {"asc"},
		"search":      {"refund"},
		"date_from":   {"2024-01-01"},
		"status":      {"active", "handoff"},
		"has_handoff": {"true"},
	}
	for key, values := range want {
		got := gotQuery[key]
		if len(got) != len(values) {
			t.Errorf("%s = %v, want %v", key, got, values)
			continue
		}
		for i := range values {
			if got[i] != values[i] {
				t.Errorf("%s = %v, want %v", key, got, values)
			}
		}
	}
	for _, absent := range []string{"date_to", "sentiment"} {
		if _, ok := gotQuery[absent]; ok {
			t.Errorf("%s should be omitted", absent)
		}
	}
}

func TestListDecodesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"data": [
				{"id": 11, "status": "active", "sentiment": "negative", "has_handoff": true, "created_at": "2024-03-01T10:00:00Z", "updated_at": "2024-03-02T10:00:00Z"},
				{"id": 12, "status": "closed", "has_handoff": false, "created_at": "2024-03-01T11:00:00Z", "updated_at": "2024-03-01T11:00:00Z"}
			],
			"meta": {"pagination": {"total": "42", "page": 3, "per_page": "20", "total_pages": 3}}
		}`))
	}))
	defer server.Close()

	result, err := newTestClient(server).List(context.Background(), inbox.QueryParams{Page: 3, PerPage: 20})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(result.Data) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(result.Data))
	}
	if result.Data[0].ID != 11 || result.Data[0].Sentiment != inbox.SentimentNegative || !result.Data[0].HasHandoff {
		t.Errorf("unexpected first row: %+v", result.Data[0])
	}
	want := inbox.PaginationMeta{Total: 42, Page: 3, PerPage: 20, TotalPages: 3}
	if result.Meta.Pagination != want {
		t.Errorf("pagination = %+v, want %+v", result.Meta.Pagination, want)
	}
}

func TestListRejectsMalformedEnvelope(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `oops`},
		{"missing data", `{"meta":{"pagination":{"total":0,"page":1,"per_page":20,"total_pages":0}}}`},
		{"null data", `{"data":null,"meta":{"pagination":{"total":0,"page":1,"per_page":20,"total_pages":0}}}`},
		{"missing pagination", `{"data":[]}`},
		{"data not a list", `{"data":{"id":1},"meta":{"pagination":{"total":1,"page":1,"per_page":20,"total_pages":1}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			if _, err := newTestClient(server).List(context.Background(), inbox.QueryParams{Page: 1}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/profile" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":5,"name":"Ada","email":"ada@example.com","pubsub_token":"pst"}`))
	}))
	defer server.Close()

	profile, err := newTestClient(server).Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if profile.PubsubToken != "pst" || profile.ID != 5 {
		t.Errorf("unexpected profile: %+v", profile)
	}
}
