package refdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Fetcher returns the raw JSON for one dataset.
type Fetcher func(ctx context.Context) ([]byte, error)

// Cache keeps one file per dataset and refetches it once the file is older than the TTL.
type Cache struct {
	dir    string
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewCache creates a Cache rooted at dir.
func NewCache(dir string, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{dir: dir, ttl: ttl, logger: logger, now: time.Now}
}

// WithClock replaces the clock used for age checks.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Ensure creates the cache directory.
func (c *Cache) Ensure() error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache dir %s: %w", c.dir, err)
	}
	return nil
}

func (c *Cache) path(name string) string {
	return filepath.Join(c.dir, name+".json")
}

// Get returns the cached dataset when it is fresh. Otherwise it fetches and rewrites the file.
// When the fetch fails, a stale file is returned instead of the error.
func (c *Cache) Get(ctx context.Context, name string, fetch Fetcher) ([]byte, error) {
	path := c.path(name)
	stale, age, statErr := c.read(path)
	if statErr == nil && age <= c.ttl {
		c.logger.Debug("Reference data cache hit",
			zap.String("dataset", name),
			zap.Duration("age", age))
		return stale, nil
	}

	data, err := fetch(ctx)
	if err != nil {
		if stale != nil {
			c.logger.Warn("Reference data fetch failed, using stale cache",
				zap.String("dataset", name),
				zap.Duration("age", age),
				zap.Error(err))
			return stale, nil
		}
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}

	if err := writeFile(path, data); err != nil {
		c.logger.Warn("Failed to write reference data cache",
			zap.String("dataset", name),
			zap.String("path", path),
			zap.Error(err))
	}
	return data, nil
}

func (c *Cache) read(path string) ([]byte, time.Duration, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.logger.Warn("Failed to read reference data cache", zap.String("path", path), zap.Error(err))
		return nil, 0, err
	}
	return data, c.now().Sub(info.ModTime()), nil
}

func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
