package resolver

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/kts999jjang/themeradar/internal/models"
)

const defaultResolveConcurrency = 4

// SymbolProvider resolves a normalized company name to a ticker. A
// nil record with a nil error is a legitimate no-match.
type SymbolProvider interface {
	Name() string
	SymbolSearch(ctx context.Context, name string) (*models.TickerRecord, error)
}

// Resolver turns extracted organization names into TickerRecords. It
// checks the cache first and only then asks the providers, in order,
// behind a shared rate limiter so concurrent resolutions stay inside
// the per-minute provider quota.
type Resolver struct {
	cache       *TickerCache
	providers   []SymbolProvider
	limiter     *rate.Limiter
	concurrency int
}

func New(cache *TickerCache, limiter *rate.Limiter, providers ...SymbolProvider) *Resolver {
	return &Resolver{
		cache:       cache,
		providers:   providers,
		limiter:     limiter,
		concurrency: defaultResolveConcurrency,
	}
}

// Resolve maps one normalized name to a ticker. Returns (nil, nil)
// when no provider finds a confident match; that outcome is cached so
// the same unknown name does not burn quota on every run. Provider
// errors also yield (nil, nil) but are not cached.
func (r *Resolver) Resolve(ctx context.Context, normalizedName string) (*models.TickerRecord, error) {
	if record, cached := r.cache.Lookup(ctx, normalizedName); cached {
		return record, nil
	}

	sawProviderError := false
	for _, provider := range r.providers {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		record, err := provider.SymbolSearch(ctx, normalizedName)
		if err != nil {
			slog.Warn("[Resolver] Provider lookup failed",
				slog.String("provider", provider.Name()),
				slog.String("name", normalizedName),
				slog.String("error", err.Error()))
			sawProviderError = true
			continue
		}
		if record == nil {
			continue
		}

		record.CompanyName = normalizedName
		if err := r.cache.StoreResult(ctx, normalizedName, record); err != nil {
			slog.Warn("[Resolver] Failed to cache resolution",
				slog.String("name", normalizedName), slog.String("error", err.Error()))
		}
		return record, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if sawProviderError {
		// A transient provider failure is not a confirmed no-match;
		// leave the cache alone so the next run retries.
		return nil, nil
	}
	if err := r.cache.StoreResult(ctx, normalizedName, nil); err != nil {
		slog.Warn("[Resolver] Failed to cache negative resolution",
			slog.String("name", normalizedName), slog.String("error", err.Error()))
	}
	return nil, nil
}

// ResolveAll resolves a batch of names with bounded concurrency and
// returns only the names that mapped to a ticker.
func (r *Resolver) ResolveAll(ctx context.Context, normalizedNames []string) map[string]*models.TickerRecord {
	sem := make(chan struct{}, r.concurrency)

	var mu sync.Mutex
	resolved := make(map[string]*models.TickerRecord)

	var wg sync.WaitGroup
	for _, name := range normalizedNames {
		wg.Add(1)
		sem <- struct{}{}
		go func(name string) {
			defer wg.Done()
			defer func() { <-sem }()

			record, err := r.Resolve(ctx, name)
			if err != nil {
				slog.Warn("[Resolver] Resolution aborted",
					slog.String("name", name), slog.String("error", err.Error()))
				return
			}
			if record == nil {
				return
			}
			mu.Lock()
			resolved[name] = record
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	return resolved
}
