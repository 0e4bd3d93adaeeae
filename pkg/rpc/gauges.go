package rpc

import (
	"context"
	"fmt"

	"github.com/canopy-network/gaugewatch/pkg/gauge"
)

// Gauges returns every gauge known to the incentives module, in the order the node lists them.
func (c *HTTPClient) Gauges(ctx context.Context) ([]gauge.Record, error) {
	records, err := ListKeyed[gauge.Record](ctx, c, c.gaugesPath, "data", c.pageLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch gauges: %w", err)
	}
	return records, nil
}
