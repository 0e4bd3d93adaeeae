package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/canopy-network/gaugewatch/pkg/classify"
)

// Stream entry fields. payload holds the full event as JSON; the rest are for filtering.
const (
	fieldRun     = "run"
	fieldType    = "type"
	fieldPoolID  = "poolId"
	fieldGaugeID = "gaugeId"
	fieldPayload = "payload"
)

// EventEntry encodes an event as stream entry values.
func EventEntry(runID string, ev classify.Event) (map[string]any, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event for gauge %s: %w", ev.Gauge.ID, err)
	}
	return map[string]any{
		fieldRun:     runID,
		fieldType:    string(ev.Type),
		fieldPoolID:  ev.PoolID,
		fieldGaugeID: ev.Gauge.ID,
		fieldPayload: string(payload),
	}, nil
}

// DecodeEntry reverses EventEntry.
func DecodeEntry(values map[string]any) (string, classify.Event, error) {
	var ev classify.Event
	raw, ok := values[fieldPayload].(string)
	if !ok {
		return "", ev, fmt.Errorf("stream entry has no %s field", fieldPayload)
	}
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return "", ev, fmt.Errorf("failed to decode event payload: %w", err)
	}
	run, _ := values[fieldRun].(string)
	return run, ev, nil
}

// PublishEvents appends one entry per event, in order, and returns how many were written.
func (c *Client) PublishEvents(ctx context.Context, stream, runID string, events []classify.Event) int {
	published := 0
	for _, ev := range events {
		values, err := EventEntry(runID, ev)
		if err != nil {
			c.logger.Warn("Skipping event for stream", zap.String("gaugeId", ev.Gauge.ID), zap.Error(err))
			continue
		}
		if id := c.XAdd(ctx, stream, values); id != "" {
			published++
		}
	}
	if len(events) > 0 {
		c.logger.Debug("Published events to stream",
			zap.String("stream", stream),
			zap.Int("published", published),
			zap.Int("events", len(events)))
	}
	return published
}
