package refdata

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

const (
	assetsDataset = "assetlist"
	poolsDataset  = "pools"
)

// Sources are the fetchers behind the two cached datasets.
type Sources struct {
	Assets Fetcher
	Pools  Fetcher
}

// Load builds a Registry from the cache, refreshing expired datasets through src.
// A dataset that cannot be obtained is logged and left empty; the error is returned alongside a usable Registry.
func Load(ctx context.Context, cache *Cache, src Sources, logger *zap.Logger) (*Registry, error) {
	reg := NewRegistry()
	var errs []error

	if src.Assets != nil {
		if data, err := cache.Get(ctx, assetsDataset, src.Assets); err != nil {
			errs = append(errs, err)
		} else if n, err := reg.LoadAssets(data); err != nil {
			errs = append(errs, err)
		} else {
			logger.Debug("Loaded asset list", zap.Int("assets", n))
		}
	}

	if src.Pools != nil {
		if data, err := cache.Get(ctx, poolsDataset, src.Pools); err != nil {
			errs = append(errs, err)
		} else if n, err := reg.LoadPools(data); err != nil {
			errs = append(errs, err)
		} else {
			logger.Debug("Loaded pool list", zap.Int("pools", n))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		logger.Warn("Reference data incomplete, falling back to raw denoms", zap.Error(err))
	}
	return reg, err
}
