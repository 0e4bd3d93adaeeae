package gaugewatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/canopy-network/gaugewatch/pkg/classify"
	"github.com/canopy-network/gaugewatch/pkg/config"
	"github.com/canopy-network/gaugewatch/pkg/notify"
	"github.com/canopy-network/gaugewatch/pkg/redis"
	"github.com/canopy-network/gaugewatch/pkg/refdata"
	"github.com/canopy-network/gaugewatch/pkg/retry"
	"github.com/canopy-network/gaugewatch/pkg/rpc"
	"github.com/canopy-network/gaugewatch/pkg/snapshot"
)

// App runs the poll, diff, classify and notify pipeline, once or on a cron schedule.
type App struct {
	Config config.Config

	// Client queries the node for gauges and pools.
	Client rpc.Client
	// Store holds the current and previous snapshot generations.
	Store snapshot.Store

	RefCache   *refdata.Cache
	RefSources refdata.Sources

	Classifier *classify.Classifier
	Sender     notify.Sender
	// Publisher is optional; nil disables the event stream.
	Publisher EventPublisher

	// Pool runs the fetch stage tasks concurrently.
	Pool  pond.Pool
	Retry retry.Config

	// Cron is the scheduler used in watch mode, according to CronSpec.
	Cron     *cron.Cron
	CronSpec string

	// Server exposes the probes in watch mode.
	Server *http.Server

	Logger *zap.Logger

	now     func() time.Time
	last    atomic.Pointer[RunReport]
	lastErr atomic.Bool
	seq     atomic.Uint64
}

// Deps are the collaborators New does not build itself.
type Deps struct {
	Client    rpc.Client
	Store     snapshot.Store
	Sender    notify.Sender
	AssetList refdata.Fetcher
	Publisher EventPublisher
}

// New assembles an App from cfg and deps.
func New(cfg config.Config, deps Deps, logger *zap.Logger) (*App, error) {
	if deps.Client == nil || deps.Store == nil || deps.Sender == nil {
		return nil, errors.New("client, store and sender are required")
	}

	cache := refdata.NewCache(cacheDir(cfg), cfg.RefDataTTL, logger)
	if err := cache.Ensure(); err != nil {
		return nil, err
	}

	client := deps.Client
	return &App{
		Config:   cfg,
		Client:   client,
		Store:    deps.Store,
		RefCache: cache,
		RefSources: refdata.Sources{
			Assets: deps.AssetList,
			Pools: func(ctx context.Context) ([]byte, error) {
				pools, err := client.Pools(ctx)
				if err != nil {
					return nil, err
				}
				return json.Marshal(map[string]any{"pools": pools})
			},
		},
		Classifier: classify.New(classify.Options{
			NativeDenom:      cfg.NativeDenom,
			SuperfluidMarker: cfg.SuperfluidMarker,
		}, logger),
		Sender:    deps.Sender,
		Publisher: deps.Publisher,
		Pool:      pond.NewPool(2, pond.WithQueueSize(8)),
		Retry:     retry.DefaultConfig(),
		CronSpec:  cfg.Schedule,
		Logger:    logger,
		now:       time.Now,
	}, nil
}

// Initialize builds the production App: LCD and Telegram clients, the file store and the optional
// redis stream. A store that cannot be created is fatal.
func Initialize(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	lcd := rpc.NewHTTPWithOpts(rpc.Opts{
		Endpoints:  cfg.LCDEndpoints,
		Timeout:    cfg.RequestTimeout,
		RPS:        cfg.RPS,
		GaugesPath: cfg.GaugesPath,
		PoolsPath:  cfg.PoolsPath,
		PageLimit:  cfg.PageLimit,
	})

	store, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	deps := Deps{
		Client: lcd,
		Store:  store,
		Sender: notify.LogSender{Logger: logger},
	}

	if cfg.AssetListURL != "" {
		assets, err := assetListFetcher(cfg.AssetListURL, cfg.RequestTimeout)
		if err != nil {
			return nil, err
		}
		deps.AssetList = assets
	}

	if cfg.TelegramEnabled() {
		tg := rpc.NewHTTPWithOpts(rpc.Opts{
			Endpoints: []string{cfg.TelegramAPI},
			Timeout:   cfg.RequestTimeout,
		})
		deps.Sender = notify.NewTelegram(tg, cfg.TelegramToken, cfg.TelegramChatID, cfg.TelegramRPS, logger)
	} else {
		logger.Info("Telegram not configured, notifications go to the log")
	}

	if cfg.RedisEnabled() {
		rc, err := redis.NewClient(ctx, redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			StreamMaxLen: cfg.RedisMaxLen,
		}, logger)
		if err != nil {
			logger.Warn("Redis unavailable, event stream disabled", zap.Error(err))
		} else {
			deps.Publisher = rc
		}
	}

	return New(cfg, deps, logger)
}

func newStore(cfg config.Config, logger *zap.Logger) (snapshot.Store, error) {
	if cfg.DataDir == "" {
		return snapshot.NewMemoryStore(), nil
	}
	fs := snapshot.NewFileStore(cfg.DataDir, cfg.StrictSnapshots, logger)
	if err := fs.Ensure(); err != nil {
		return nil, fmt.Errorf("unable to prepare data dir: %w", err)
	}
	return fs, nil
}

func cacheDir(cfg config.Config) string {
	if cfg.DataDir == "" {
		return filepath.Join(os.TempDir(), "gaugewatch", "cache")
	}
	return filepath.Join(cfg.DataDir, "cache")
}

// assetListFetcher reads an absolute URL through its own HTTPClient so the LCD breaker is not shared.
func assetListFetcher(raw string, timeout time.Duration) (refdata.Fetcher, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid asset list url %q", raw)
	}
	client := rpc.NewHTTPWithOpts(rpc.Opts{
		Endpoints: []string{u.Scheme + "://" + u.Host},
		Timeout:   timeout,
	})
	path := u.EscapedPath()
	query := u.Query()
	return func(ctx context.Context) ([]byte, error) {
		var body json.RawMessage
		if err := client.GetJSON(ctx, path, query, &body); err != nil {
			return nil, err
		}
		return body, nil
	}, nil
}

// WithClock replaces the clock for run ids and start-time arithmetic.
func (a *App) WithClock(now func() time.Time) *App {
	a.now = now
	a.Classifier.WithClock(now)
	return a
}

// LastReport returns the most recent run report, if any.
func (a *App) LastReport() (RunReport, bool) {
	r := a.last.Load()
	if r == nil {
		return RunReport{}, false
	}
	return *r, true
}

// Close releases the worker pool and the event stream.
func (a *App) Close() {
	a.Pool.StopAndWait()
	if a.Publisher != nil {
		_ = a.Publisher.Close()
	}
}
