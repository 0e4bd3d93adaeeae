package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultStreamMaxLen caps the event stream when no limit is configured.
const DefaultStreamMaxLen = 10000

// Options configures a Client.
type Options struct {
	Addr         string
	Password     string
	DB           int
	StreamMaxLen int64 // 0 = DefaultStreamMaxLen, negative = unlimited
}

// Client wraps the Redis client used to fan events out on a stream.
type Client struct {
	client       *redis.Client
	logger       *zap.Logger
	streamMaxLen int64
}

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	maxLen := opts.StreamMaxLen
	if maxLen == 0 {
		maxLen = DefaultStreamMaxLen
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,

		// Connection pool
		PoolSize:     4,
		MinIdleConns: 1,

		// Timeouts
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Int64("streamMaxLen", maxLen))

	return &Client{
		client:       rdb,
		logger:       logger,
		streamMaxLen: maxLen,
	}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Health checks if Redis is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// XAdd adds an entry to a stream, trimming it to the configured length.
// Errors are logged and an empty id returned; publishing never fails a run.
func (c *Client) XAdd(ctx context.Context, stream string, values map[string]any) string {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}

	// Approximate trimming is much cheaper for Redis.
	if c.streamMaxLen > 0 {
		args.MaxLen = c.streamMaxLen
		args.Approx = true
	}

	id, err := c.client.XAdd(ctx, args).Result()
	if err != nil {
		c.logger.Warn("Failed to add to Redis stream",
			zap.String("stream", stream),
			zap.Error(err))
		return ""
	}
	return id
}

// XRead reads entries after lastID, blocking up to block for new ones.
func (c *Client) XRead(ctx context.Context, stream, lastID string, count int64, block time.Duration) ([]redis.XMessage, error) {
	res, err := c.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, lastID},
		Count:   count,
		Block:   block,
	}).Result()
	if err != nil {
		return nil, err
	}
	var out []redis.XMessage
	for _, s := range res {
		out = append(out, s.Messages...)
	}
	return out, nil
}
