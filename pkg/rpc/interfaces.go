package rpc

import (
	"context"
	"encoding/json"

	"github.com/canopy-network/gaugewatch/pkg/gauge"
)

// Client captures the node queries the pipeline needs.
type Client interface {
	Gauges(ctx context.Context) ([]gauge.Record, error)
	Pools(ctx context.Context) ([]json.RawMessage, error)
}

var _ Client = (*HTTPClient)(nil)
