package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kts999jjang/themeradar/config"
	"github.com/kts999jjang/themeradar/internal/analysis"
	"github.com/kts999jjang/themeradar/internal/clients"
	"github.com/kts999jjang/themeradar/internal/logging"
	"github.com/kts999jjang/themeradar/internal/resolver"
	"github.com/kts999jjang/themeradar/internal/scoring"
)

var validPeriods = map[string]bool{
	"7d": true, "14d": true, "30d": true, "90d": true, "180d": true, "365d": true,
}

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	period := flag.String("period", "14d", "analysis lookback period (7d, 14d, 30d, 90d, 180d, 365d)")
	flag.Parse()

	window, err := periodWindow(*period)
	if err != nil {
		slog.Error("[Main] Invalid period", slog.String("period", *period))
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clients.InitValkey()
	defer clients.CloseValkey()
	valkeyClient := clients.GetValkeyClient()

	cache := resolver.NewTickerCache(valkeyClient)
	if err := cache.Refresh(ctx); err != nil {
		slog.Warn("[Main] Ticker cache refresh failed, starting cold",
			slog.String("error", err.Error()))
	}

	tickerResolver := resolver.New(cache, resolutionLimiter(),
		clients.GetAlphaVantageClient(), clients.GetFinnhubClient())

	orchestrator := analysis.New(analysis.Config{
		News:       newsSources(),
		Generators: textGenerators(ctx),
		Embedders:  embedders(ctx),
		Index:      clients.GetPineconeClient(),
		Store:      valkeyClient,
		Resolver:   tickerResolver,
		Scorer:     scoring.NewScorer(clients.GetFinnhubClient()),
		Records:    cache,
		Notifier:   clients.GetSlackClient(),
		Weights:    scoring.WeightsFromEnv(),
	})

	slog.Info("[Main] Starting theme analysis", slog.String("period", *period))
	if err := orchestrator.Run(ctx, *period, window); err != nil {
		slog.Error("[Main] Analysis run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func periodWindow(period string) (time.Duration, error) {
	if !validPeriods[period] {
		return 0, fmt.Errorf("unsupported period %q", period)
	}
	days, err := strconv.Atoi(strings.TrimSuffix(period, "d"))
	if err != nil {
		return 0, err
	}
	return time.Duration(days) * 24 * time.Hour, nil
}

// resolutionLimiter caps symbol-search traffic; the default matches
// the Alpha Vantage free-tier quota of 5 requests per minute.
func resolutionLimiter() *rate.Limiter {
	perMinute := 5.0
	if raw := os.Getenv("RESOLVER_RATE_PER_MINUTE"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			perMinute = v
		}
	}
	return rate.NewLimiter(rate.Limit(perMinute/60.0), 1)
}

func newsSources() []analysis.NewsSource {
	return []analysis.NewsSource{
		clients.GetGNewsClient(),
		clients.GetNewsAPIClient(),
	}
}

func textGenerators(ctx context.Context) []analysis.TextGenerator {
	var generators []analysis.TextGenerator
	if gemini, err := clients.GetGeminiClient(ctx); err == nil {
		generators = append(generators, gemini)
	} else {
		slog.Warn("[Main] Gemini unavailable", slog.String("error", err.Error()))
	}
	if openAI, err := clients.GetOpenAIClient(); err == nil {
		generators = append(generators, openAI)
	} else {
		slog.Warn("[Main] OpenAI unavailable", slog.String("error", err.Error()))
	}
	return generators
}

func embedders(ctx context.Context) []analysis.Embedder {
	var out []analysis.Embedder
	if gemini, err := clients.GetGeminiClient(ctx); err == nil {
		out = append(out, gemini)
	}
	if openAI, err := clients.GetOpenAIClient(); err == nil {
		out = append(out, openAI)
	}
	return out
}
