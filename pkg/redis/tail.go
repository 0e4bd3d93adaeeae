package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/canopy-network/gaugewatch/pkg/classify"
)

// EventHandler receives one decoded stream entry.
type EventHandler func(ctx context.Context, id, runID string, ev classify.Event) error

// TailConfig configures Tail.
type TailConfig struct {
	Stream string
	// LastID is the position to read after: "0" replays the stream, "$" only new entries.
	LastID string
	// Count is the max number of entries per read. Default: 100.
	Count int64
	// Block is how long one read waits for new entries. Default: 5 seconds.
	Block time.Duration
	// MaxRetryInterval bounds the backoff after read errors. Default: 30 seconds.
	MaxRetryInterval time.Duration
}

// Tail follows the event stream until ctx is cancelled, calling handler for each entry in order.
// Entries that do not decode are logged and skipped. A handler error stops the tail.
func (c *Client) Tail(ctx context.Context, cfg TailConfig, handler EventHandler) error {
	if cfg.LastID == "" {
		cfg.LastID = "$"
	}
	if cfg.Count == 0 {
		cfg.Count = 100
	}
	if cfg.Block == 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.MaxRetryInterval == 0 {
		cfg.MaxRetryInterval = 30 * time.Second
	}

	lastID := cfg.LastID
	retryInterval := time.Second

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		messages, err := c.XRead(ctx, cfg.Stream, lastID, cfg.Count, cfg.Block)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, redis.Nil) {
				continue
			}

			c.logger.Warn("Error reading from stream, will retry",
				zap.String("stream", cfg.Stream),
				zap.Duration("retryIn", retryInterval),
				zap.Error(err))

			select {
			case <-time.After(retryInterval):
				retryInterval = min(retryInterval*2, cfg.MaxRetryInterval)
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		retryInterval = time.Second

		for _, msg := range messages {
			lastID = msg.ID
			runID, ev, err := DecodeEntry(msg.Values)
			if err != nil {
				c.logger.Warn("Skipping undecodable stream entry", zap.String("id", msg.ID), zap.Error(err))
				continue
			}
			if err := handler(ctx, msg.ID, runID, ev); err != nil {
				return err
			}
		}
	}
}
