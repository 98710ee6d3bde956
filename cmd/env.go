package main

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/envirowatch/envirowatch/internal/aggregate"
	"github.com/envirowatch/envirowatch/internal/cache"
	"github.com/envirowatch/envirowatch/internal/config"
	"github.com/envirowatch/envirowatch/internal/fetcher"
	"github.com/envirowatch/envirowatch/internal/provider"
)

// searchEnv bundles the aggregation dependencies built from config.
type searchEnv struct {
	Aggregator *aggregate.Aggregator
	Cache      *cache.SearchCache
}

// Close releases the search cache, if one was opened.
func (e *searchEnv) Close() {
	if e.Cache != nil {
		if err := e.Cache.Close(); err != nil {
			zap.L().Warn("closing search cache", zap.Error(err))
		}
	}
}

// initSearchEnv builds the fetcher, provider registry, cache, and
// aggregator from the loaded config.
func initSearchEnv(cfg *config.Config) (*searchEnv, error) {
	if err := cfg.Validate("search"); err != nil {
		return nil, err
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.Search.UserAgent,
		Timeout:      time.Duration(cfg.Search.HTTPTimeoutSecs) * time.Second,
		MaxRetries:   cfg.Search.HTTPRetries,
		RateLimiters: fetcher.DefaultRateLimiters(),
	})

	reg := provider.NewRegistry()
	if cfg.Providers.POI.Enabled {
		reg.Register(provider.NewPOIProvider(f, cfg.Providers.POI.BaseURL, cfg.Map.SubscriptionKey))
	}
	if cfg.Providers.Registry.Enabled {
		reg.Register(provider.NewHIFLDProvider(f, cfg.Providers.Registry.BaseURL))
	}
	if cfg.Providers.Overpass.Enabled {
		reg.Register(provider.NewOverpassProvider(f, cfg.Providers.Overpass.BaseURL))
	}
	if cfg.Providers.ECHO.Enabled {
		reg.Register(provider.NewECHOProvider(f, cfg.Providers.ECHO.BaseURL))
	}
	if len(reg.All()) == 0 {
		return nil, eris.New("no providers enabled")
	}

	var sc *cache.SearchCache
	if cfg.Cache.Path != "" {
		c, err := cache.New(cfg.Cache.Path, cfg.Cache.TTL())
		if err != nil {
			// A broken cache degrades to live queries only.
			zap.L().Warn("search cache unavailable", zap.Error(err))
		} else {
			sc = c
		}
	}

	aggCfg := aggregate.DefaultConfig()
	aggCfg.DefaultRadiusMeters = float64(cfg.Search.RadiusMeters)
	aggCfg.RadiusMeters["overpass"] = float64(cfg.Search.OverpassRadiusMeters)
	aggCfg.MaxResults = cfg.Search.MaxResults
	aggCfg.PerCallTimeout = time.Duration(cfg.Search.PerCallTimeoutSecs) * time.Second
	aggCfg.FallbackEnabled = cfg.Fallback.Enabled

	return &searchEnv{
		Aggregator: aggregate.New(reg, sc, aggCfg),
		Cache:      sc,
	}, nil
}
