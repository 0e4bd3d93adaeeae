package rpc

import (
	"context"
	"encoding/json"
	"fmt"
)

// Pools returns every pool as raw JSON. Pool shapes differ per pool type, so decoding is left to
// the caller.
func (c *HTTPClient) Pools(ctx context.Context) ([]json.RawMessage, error) {
	pools, err := ListKeyed[json.RawMessage](ctx, c, c.poolsPath, "pools", c.pageLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch pools: %w", err)
	}
	return pools, nil
}
