package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/kts999jjang/themeradar/config"
	"github.com/kts999jjang/themeradar/internal/clients"
	"github.com/kts999jjang/themeradar/internal/ingestion"
	"github.com/kts999jjang/themeradar/internal/logging"
	"github.com/kts999jjang/themeradar/internal/resolver"
	"github.com/kts999jjang/themeradar/internal/server"
)

const shutdownGrace = 10 * time.Second

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clients.InitValkey()
	defer clients.CloseValkey()
	valkeyClient := clients.GetValkeyClient()

	cache := resolver.NewTickerCache(valkeyClient)
	if err := cache.Refresh(ctx); err != nil {
		slog.Warn("[Main] Ticker cache refresh failed, detail views will lack company names",
			slog.String("error", err.Error()))
	}

	srv := server.New(server.Config{
		Port:       os.Getenv("PORT"),
		Store:      valkeyClient,
		Charts:     clients.GetYahooClient(),
		Embedders:  serverEmbedders(ctx),
		Index:      clients.GetPineconeClient(),
		Records:    cache,
		News:       clients.GetGNewsClient(),
		Ingest:     ingestRunner(ctx),
		CronSecret: os.Getenv("CRON_SECRET"),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("[Main] Server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("[Main] Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("[Main] Shutdown failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
}

func serverEmbedders(ctx context.Context) []server.Embedder {
	var embedders []server.Embedder
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
	return embedders
}

// ingestRunner builds the pipeline lazily so the server starts even
// when the ingest-side providers are unconfigured.
func ingestRunner(ctx context.Context) server.IngestRunner {
	return func(runCtx context.Context, days int) (int, error) {
		news := []ingestion.NewsSource{
			clients.GetGNewsClient(),
			clients.GetNewsAPIClient(),
		}
		var embedders []ingestion.Embedder
		if gemini, err := clients.GetGeminiClient(ctx); err == nil {
			embedders = append(embedders, gemini)
		}
		if openAI, err := clients.GetOpenAIClient(); err == nil {
			embedders = append(embedders, openAI)
		}
		ingester := ingestion.New(news, embedders, clients.GetPineconeClient(), embeddingLimiter())
		return ingester.Populate(runCtx, days)
	}
}

func embeddingLimiter() *rate.Limiter {
	perMinute := 100.0
	if raw := os.Getenv("EMBEDDING_RATE_PER_MINUTE"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			perMinute = v
		}
	}
	return rate.NewLimiter(rate.Limit(perMinute/60.0), 1)
}
