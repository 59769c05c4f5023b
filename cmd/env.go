package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/retention-cli/internal/analysis"
	"github.com/sells-group/retention-cli/internal/cache"
	"github.com/sells-group/retention-cli/internal/fetcher"
	"github.com/sells-group/retention-cli/internal/ingest"
	"github.com/sells-group/retention-cli/internal/resilience"
	"github.com/sells-group/retention-cli/internal/store"
	"github.com/sells-group/retention-cli/pkg/sheets"
)

// appEnv holds the wired dependencies shared by commands. Store and Loader
// are nil when not configured.
type appEnv struct {
	Store    store.Store
	Cache    cache.Cache
	Loader   *ingest.SheetLoader
	Analyzer *analysis.Analyzer

	closers []func() error
}

// Close releases every opened backend.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			zap.L().Warn("close failed", zap.Error(err))
		}
	}
}

// initEnv wires the store, cache, worksheet loader and analyzer from cfg.
func initEnv(ctx context.Context) (*appEnv, error) {
	env := &appEnv{}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st != nil {
		env.Store = st
		env.closers = append(env.closers, st.Close)
		if err := st.Migrate(ctx); err != nil {
			env.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
	}

	c, closeCache, err := initCache(ctx, env.Store)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Cache = c
	if closeCache != nil {
		env.closers = append(env.closers, closeCache)
	}

	loader, err := initLoader(ctx, c)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Loader = loader

	params, err := cfg.Analysis.Params()
	if err != nil {
		env.Close()
		return nil, err
	}
	acfg := analysis.Config{
		Params:      params,
		ExtraStates: cfg.Analysis.Extra(),
	}
	if env.Store != nil {
		acfg.Recorder = env.Store
	}
	if loader != nil {
		acfg.Sheets = loader
	}
	env.Analyzer, err = analysis.New(acfg)
	if err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

// initStore opens the configured run-history store. Driver "none" returns
// a nil store.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "retention.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "none", "":
		return nil, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initCache builds the worksheet cache. The returned close func is nil for
// backends without a connection.
func initCache(ctx context.Context, st store.Store) (cache.Cache, func() error, error) {
	opts := cache.Options{
		Backend:    cfg.Cache.Backend,
		TTL:        cfg.Cache.TTL(),
		MaxEntries: cfg.Cache.MaxEntries,
		RedisKey:   cfg.Cache.RedisPrefix,
	}

	var closeFn func() error
	switch cfg.Cache.Backend {
	case cache.BackendRedis:
		ropts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			return nil, nil, eris.Wrap(err, "parse redis url")
		}
		rdb := redis.NewClient(ropts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, eris.Wrap(err, "ping redis")
		}
		opts.Redis = rdb
		closeFn = rdb.Close
	case cache.BackendStore:
		if st == nil {
			return nil, nil, eris.New("cache backend store needs a store driver")
		}
		opts.Store = st
	}

	c, err := cache.New(opts)
	if err != nil {
		if closeFn != nil {
			_ = closeFn()
		}
		return nil, nil, err
	}
	return c, closeFn, nil
}

// initLoader creates the worksheet loader, or nil when no spreadsheet is
// configured.
func initLoader(ctx context.Context, c cache.Cache) (*ingest.SheetLoader, error) {
	if cfg.Sheets.SpreadsheetID == "" {
		return nil, nil
	}

	opts := []sheets.Option{sheets.WithRateLimit(cfg.Sheets.RatePerSec, cfg.Sheets.Burst)}
	if cfg.Sheets.CredentialsFile != "" {
		opts = append(opts, sheets.WithCredentialsFile(cfg.Sheets.CredentialsFile))
	}
	if cfg.Sheets.Endpoint != "" {
		opts = append(opts, sheets.WithEndpoint(cfg.Sheets.Endpoint, http.DefaultClient))
	}

	client, err := sheets.NewClient(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "init sheets client")
	}
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Name:             "sheets",
		FailureThreshold: cfg.Sheets.BreakerFailures,
		ResetTimeout:     time.Duration(cfg.Sheets.BreakerResetSec) * time.Second,
	})
	loader := ingest.NewSheetLoader(client, c, cfg.Sheets.SpreadsheetID, cfg.Sheets.Timeout())
	return loader.UseBreaker(breaker), nil
}

// newRouter builds the upload fetcher from the fetch section.
func newRouter() *fetcher.Router {
	return fetcher.NewRouter(
		fetcher.HTTPOptions{
			UserAgent:   cfg.Fetch.UserAgent,
			Timeout:     cfg.Fetch.Timeout(),
			RatePerHost: rate.Limit(cfg.Fetch.RatePerHost),
		},
		fetcher.FTPOptions{Timeout: cfg.Fetch.Timeout()},
	)
}
