package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/kts999jjang/themeradar/config"
	"github.com/kts999jjang/themeradar/internal/clients"
	"github.com/kts999jjang/themeradar/internal/ingestion"
	"github.com/kts999jjang/themeradar/internal/logging"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	days := flag.Int("days", 7, "number of trailing days to collect and index")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ingester := buildIngester(ctx)

	slog.Info("[Main] Starting index population", slog.Int("days", *days))
	written, err := ingester.Populate(ctx, *days)
	if err != nil {
		slog.Error("[Main] Index population failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("[Main] Index population finished", slog.Int("vectors", written))
}

func buildIngester(ctx context.Context) *ingestion.Ingester {
	news := []ingestion.NewsSource{
		clients.GetGNewsClient(),
		clients.GetNewsAPIClient(),
	}

	var embedders []ingestion.Embedder
	if gemini, err := clients.GetGeminiClient(ctx); err == nil {
		embedders = append(embedders, gemini)
	} else {
		slog.Warn("[Main] Gemini unavailable", slog.String("error", err.Error()))
	}
	if openAI, err := clients.GetOpenAIClient(); err == nil {
		embedders = append(embedders, openAI)
	} else {
		slog.Warn("[Main] OpenAI unavailable", slog.String("error", err.Error()))
	}

	return ingestion.New(news, embedders, clients.GetPineconeClient(), embeddingLimiter())
}

// embeddingLimiter spaces embedding calls out to respect the provider
// per-minute quota.
func embeddingLimiter() *rate.Limiter {
	perMinute := 100.0
	if raw := os.Getenv("EMBEDDING_RATE_PER_MINUTE"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			perMinute = v
		}
	}
	return rate.NewLimiter(rate.Limit(perMinute/60.0), 1)
}
