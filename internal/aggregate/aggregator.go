// Package aggregate fans a location query out to all configured facility
// providers, merges and deduplicates their results, and assigns each
// surviving facility an environmental impact classification.
package aggregate

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/envirowatch/envirowatch/internal/cache"
	"github.com/envirowatch/envirowatch/internal/model"
	"github.com/envirowatch/envirowatch/internal/provider"
)

// Config tunes one aggregation cycle.
type Config struct {
	// DefaultRadiusMeters is the search radius passed to providers without
	// an override.
	DefaultRadiusMeters float64
	// RadiusMeters overrides the radius per provider name.
	RadiusMeters map[string]float64
	// MaxResults caps the merged result list; 0 means uncapped.
	MaxResults int
	// PerCallTimeout bounds each provider call.
	PerCallTimeout time.Duration
	// FallbackEnabled substitutes the built-in sample set when every
	// provider fails with a transport error.
	FallbackEnabled bool
}

// DefaultConfig returns the standard aggregation settings.
func DefaultConfig() Config {
	return Config{
		DefaultRadiusMeters: 15000,
		RadiusMeters:        map[string]float64{"overpass": 50000},
		MaxResults:          0,
		PerCallTimeout:      20 * time.Second,
		FallbackEnabled:     false,
	}
}

// Result is the outcome of one aggregation cycle.
type Result struct {
	Facilities []model.AggregatedFacility
	// ProvidersQueried and ProvidersFailed hold provider names and
	// distinguish "no matches" from "nothing answered".
	ProvidersQueried []string
	ProvidersFailed  []string
}

// AllFailed reports whether every queried provider failed.
func (r *Result) AllFailed() bool {
	return len(r.ProvidersQueried) > 0 && len(r.ProvidersFailed) == len(r.ProvidersQueried)
}

// Aggregator drives the provider fan-out and merge.
type Aggregator struct {
	registry *provider.Registry
	cache    *cache.SearchCache // nil disables caching
	cfg      Config
}

// New creates an Aggregator. The cache may be nil.
func New(registry *provider.Registry, c *cache.SearchCache, cfg Config) *Aggregator {
	if cfg.DefaultRadiusMeters <= 0 {
		cfg.DefaultRadiusMeters = DefaultConfig().DefaultRadiusMeters
	}
	if cfg.PerCallTimeout <= 0 {
		cfg.PerCallTimeout = DefaultConfig().PerCallTimeout
	}
	return &Aggregator{registry: registry, cache: c, cfg: cfg}
}

// Aggregate runs one cycle around center. Individual provider failures are
// contained and logged; the only error returned is an invalid center. A
// cycle where nothing matched yields an empty facility list.
func (a *Aggregator) Aggregate(ctx context.Context, center model.Coordinate) (*Result, error) {
	if !center.Valid() {
		return nil, eris.Errorf("aggregate: invalid center %.4f,%.4f", center.Lat, center.Lng)
	}

	providers := a.registry.All()
	log := zap.L().With(
		zap.Float64("lat", center.Lat),
		zap.Float64("lng", center.Lng),
	)

	// Fan out, one slot per provider so merge order stays deterministic.
	// The group is also the join barrier: every call completes, success or
	// failure, before merging starts.
	resultSets := make([][]model.FacilityRecord, len(providers))
	errs := make([]error, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range providers {
		radius := a.radiusFor(p.Name())
		g.Go(func() error {
			records, err := a.search(gctx, p, center, radius)
			if err != nil {
				errs[i] = err
				log.Warn("provider search failed",
					zap.String("provider", p.Name()),
					zap.Error(err),
				)
				return nil // contained: one source failing must not abort the rest
			}
			resultSets[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "aggregate: fan-out")
	}

	result := &Result{ProvidersQueried: a.registry.Names()}
	var merged []model.FacilityRecord
	for i, p := range providers {
		if errs[i] != nil {
			result.ProvidersFailed = append(result.ProvidersFailed, p.Name())
			continue
		}
		merged = append(merged, resultSets[i]...)
	}

	if result.AllFailed() && a.cfg.FallbackEnabled {
		log.Warn("all providers failed, substituting sample facilities")
		result.Facilities = fallbackFacilities(center)
		return result, nil
	}

	// Filter, dedup, then score the survivors.
	filtered := merged[:0]
	for _, rec := range merged {
		if relevant(rec) {
			filtered = append(filtered, rec)
		}
	}
	deduped := dedup(filtered)

	facilities := make([]model.AggregatedFacility, 0, len(deduped))
	for _, rec := range deduped {
		category, score := Score(rec.Source, provider.Violations(rec))
		facilities = append(facilities, model.AggregatedFacility{
			FacilityRecord: rec,
			ImpactCategory: category,
			ImpactScore:    score,
		})
	}

	if a.cfg.MaxResults > 0 && len(facilities) > a.cfg.MaxResults {
		facilities = facilities[:a.cfg.MaxResults]
	}
	result.Facilities = facilities

	log.Info("aggregation cycle complete",
		zap.Int("raw", len(merged)),
		zap.Int("deduped", len(deduped)),
		zap.Int("facilities", len(result.Facilities)),
		zap.Strings("providers_failed", result.ProvidersFailed),
	)
	return result, nil
}

// search runs one provider call with its timeout, consulting the cache
// first and populating it on success.
func (a *Aggregator) search(ctx context.Context, p provider.Provider, center model.Coordinate, radius float64) ([]model.FacilityRecord, error) {
	if a.cache != nil {
		if records, ok, err := a.cache.Get(ctx, p.Name(), center, radius); err == nil && ok {
			zap.L().Debug("cache hit", zap.String("provider", p.Name()))
			return records, nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.PerCallTimeout)
	defer cancel()

	records, err := p.Search(callCtx, center, radius)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.Put(ctx, p.Name(), center, radius, records); err != nil {
			zap.L().Warn("cache put failed", zap.String("provider", p.Name()), zap.Error(err))
		}
	}
	return records, nil
}

func (a *Aggregator) radiusFor(name string) float64 {
	if r, ok := a.cfg.RadiusMeters[name]; ok && r > 0 {
		return r
	}
	return a.cfg.DefaultRadiusMeters
}
