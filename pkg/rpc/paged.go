package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// maxPages bounds a listing in case a node keeps returning a next_key.
const maxPages = 10000

// pageInfo is the Cosmos SDK PageResponse.
type pageInfo struct {
	NextKey *string `json:"next_key"`
	Total   string  `json:"total"`
}

// ListKeyed walks a Cosmos SDK paginated listing, following pagination.next_key until it is empty.
// field names the array holding the items ("data", "pools", ...).
func ListKeyed[T any](ctx context.Context, c *HTTPClient, path, field string, limit int) ([]T, error) {
	var all []T
	var key string
	seen := map[string]bool{}
	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("pagination.limit", strconv.Itoa(limit))
		if key != "" {
			q.Set("pagination.key", key)
		}

		var raw map[string]json.RawMessage
		if err := c.GetJSON(ctx, path, q, &raw); err != nil {
			return nil, err
		}

		var items []T
		if body, ok := raw[field]; ok {
			if err := json.Unmarshal(body, &items); err != nil {
				return nil, fmt.Errorf("unmarshal %s: %w", field, err)
			}
		}
		all = append(all, items...)

		var p pageInfo
		if body, ok := raw["pagination"]; ok && len(body) > 0 {
			if err := json.Unmarshal(body, &p); err != nil {
				return nil, fmt.Errorf("unmarshal pagination: %w", err)
			}
		}
		if p.NextKey == nil || *p.NextKey == "" {
			return all, nil
		}
		if seen[*p.NextKey] {
			return nil, fmt.Errorf("pagination loop at key %q", *p.NextKey)
		}
		seen[*p.NextKey] = true
		key = *p.NextKey
	}
	return nil, fmt.Errorf("listing %s exceeded %d pages", path, maxPages)
}
