package api

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexInt handles JSON numbers that may come as strings or integers
type FlexInt int

func (fi *FlexInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*fi = FlexInt(i)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*fi = 0
			return nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*fi = FlexInt(i)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into FlexInt", data)
}

// Profile represents the current user's profile
type Profile struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PubsubToken string `json:"pubsub_token,omitempty"`
}

// paginationMeta is the wire form of inbox.PaginationMeta. Some deployments
// serialize counts as strings.
type paginationMeta struct {
	Total      FlexInt `json:"total"`
	Page       FlexInt `json:"page"`
	PerPage    FlexInt `json:"per_page"`
	TotalPages FlexInt `json:"total_pages"`
}

type listEnvelope struct {
	Data *json.RawMessage `json:"data"`
	Meta struct {
		Pagination *paginationMeta `json:"pagination"`
	} `json:"meta"`
}
