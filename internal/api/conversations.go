package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chatwoot/inboxq/internal/inbox"
)

var _ inbox.Lister = (*Client)(nil)

// conversationsPath builds the listing URL for params.
func (c *Client) conversationsPath(params inbox.QueryParams) string {
	path := "/conversations"
	if query := params.Values(); len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.accountPath(path)
}

// List fetches one page of conversations. It satisfies inbox.Lister.
func (c *Client) List(ctx context.Context, params inbox.QueryParams) (*inbox.ListResult, error) {
	var env listEnvelope
	if err := c.get(ctx, c.conversationsPath(params), &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, fmt.Errorf("unexpected API response format: missing data")
	}
	if env.Meta.Pagination == nil {
		return nil, fmt.Errorf("unexpected API response format: missing meta.pagination")
	}

	var rows []inbox.Conversation
	if err := json.Unmarshal(*env.Data, &rows); err != nil {
		return nil, fmt.Errorf("unexpected API response format (JSON decode failed): %w", err)
	}

	p := env.Meta.Pagination
	return &inbox.ListResult{
		Data: rows,
		Meta: inbox.ListMeta{Pagination: inbox.PaginationMeta{
			Total:      int(p.Total),
			Page:       int(p.Page),
			PerPage:    int(p.PerPage),
			TotalPages: int(p.TotalPages),
		}},
	}, nil
}
