package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/seller-scout/internal/cache"
	"github.com/sells-group/seller-scout/internal/contact"
	"github.com/sells-group/seller-scout/internal/filter"
	"github.com/sells-group/seller-scout/internal/marketplace"
	"github.com/sells-group/seller-scout/internal/pipeline"
	"github.com/sells-group/seller-scout/internal/ranking"
	"github.com/sells-group/seller-scout/internal/store"
	"github.com/sells-group/seller-scout/pkg/rapidapi"
)

// appEnv holds the shared cache, the history store, and the pipeline used by
// the search and serve commands.
type appEnv struct {
	Cache    *cache.Store
	Store    store.Store // nil when history is unavailable
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
}

// initCache connects the shared cache. It never fails; an unreachable Redis
// leaves the cache in-process.
func initCache(ctx context.Context) *cache.Store {
	return cache.New(ctx, cache.Options{
		RedisURL:    cfg.Cache.RedisURL,
		Prefix:      cfg.Cache.Prefix,
		DefaultTTL:  cfg.Cache.DefaultTTL,
		DialTimeout: 2 * time.Second,
	})
}

// initStore opens the history store named by the config.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// initApp validates the config for mode and wires every provider client into a
// Pipeline. Callers should defer env.Close().
func initApp(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	if err := ranking.ValidateConfig(cfg.Ranking); err != nil {
		return nil, eris.Wrap(err, "ranking config")
	}

	env := &appEnv{Cache: initCache(ctx)}

	st, err := initStore(ctx)
	if err != nil {
		zap.L().Warn("search history disabled", zap.Error(err))
	} else {
		env.Store = st
	}

	api := rapidapi.NewClient(cfg.Secrets.RapidAPIKey, rapidapi.WithTimeout(cfg.Marketplace.Timeout))
	search := marketplace.NewFromConfig(api, cfg.Marketplace)
	contacts := contact.NewFactoryFromConfig(cfg, api, env.Cache)

	var history pipeline.History
	if env.Store != nil {
		history = env.Store
	}

	env.Pipeline = pipeline.New(
		search,
		filter.CriteriaFromConfig(cfg.Filter),
		ranking.New(cfg.Ranking),
		contacts,
		env.Cache,
		history,
		pipeline.OptionsFromConfig(cfg),
	)
	return env, nil
}
