package inbox

import (
	"context"
	"errors"
	"time"
)

// SortField is a column the listing service can order by.
type SortField string

const (
	SortUpdatedAt SortField = "updated_at"
	SortStatus    SortField = "status"
	SortCreatedAt SortField = "created_at"
)

// SortOrder is the sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Defaults for a fresh session.
const (
	DefaultPerPage   = 20
	DefaultSortField = SortUpdatedAt
	DefaultSortOrder = SortDesc
)

// LoadingState is the fetch lifecycle indicator.
type LoadingState string

const (
	LoadingIdle    LoadingState = "idle"
	LoadingLoading LoadingState = "loading"
	LoadingSuccess LoadingState = "success"
	LoadingError   LoadingState = "error"
)

// Conversation is one row of the conversation inbox.
type Conversation struct {
	ID          int       `json:"id"`
	Status      Status    `json:"status"`
	Sentiment   Sentiment `json:"sentiment,omitempty"`
	HasHandoff  bool      `json:"has_handoff"`
	ContactName string    `json:"contact_name,omitempty"`
	LastMessage string    `json:"last_message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PaginationMeta is the page bookkeeping reported by the listing service.
type PaginationMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// ListMeta wraps pagination metadata in the listing envelope.
type ListMeta struct {
	Pagination PaginationMeta `json:"pagination"`
}

// ListResult is one page of conversations.
type ListResult struct {
	Data []Conversation `json:"data"`
	Meta ListMeta       `json:"meta"`
}

// Lister is the conversation listing service.
type Lister interface {
	List(ctx context.Context, params QueryParams) (*ListResult, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(ctx context.Context, params QueryParams) (*ListResult, error)

// List calls f.
func (f ListerFunc) List(ctx context.Context, params QueryParams) (*ListResult, error) {
	return f(ctx, params)
}

// ErrSlotNotFound is returned by a SlotStore when nothing has been saved yet.
var ErrSlotNotFound = errors.New("storage slot not found")

// SlotStore is durable storage for the session's persisted slot.
type SlotStore interface {
	Load(ctx context.Context, slot string) ([]byte, error)
	Save(ctx context.Context, slot string, data []byte) error
}

// SavedFilter is a named, immutable snapshot of FilterState.
type SavedFilter struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Filters   FilterState `json:"filters"`
	CreatedAt time.Time   `json:"createdAt"`
}

func (sf SavedFilter) clone() SavedFilter {
	sf.Filters = sf.Filters.Clone()
	return sf
}

// View is a point-in-time copy of everything a UI reads from a Session.
type View struct {
	Conversations []Conversation `json:"conversations"`
	Pagination    PaginationMeta `json:"pagination"`
	LoadingState  LoadingState   `json:"loadingState"`
	Error         string         `json:"error,omitempty"`
	Filters       FilterState    `json:"filters"`
	SavedFilters  []SavedFilter  `json:"savedFilters"`
	CurrentPage   int            `json:"currentPage"`
	PerPage       int            `json:"perPage"`
	SortBy        SortField      `json:"sortBy"`
	SortOrder     SortOrder      `json:"sortOrder"`
}

// HasNextPage reports whether the latest pagination meta has a later page.
func (v View) HasNextPage() bool {
	return v.CurrentPage < v.Pagination.TotalPages
}

// HasPrevPage reports whether the cursor is past the first page.
func (v View) HasPrevPage() bool {
	return v.CurrentPage > 1
}
