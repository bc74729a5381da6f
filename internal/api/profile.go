package api

import (
	"context"
	"fmt"
)

// Profile gets the current user's profile. Its pubsub token authorizes the
// realtime subscription.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var result Profile
	if err := c.get(ctx, fmt.Sprintf("%s/api/v1/profile", c.BaseURL), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
