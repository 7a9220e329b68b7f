package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/kts999jjang/themeradar/internal/models"
)

const (
	FINNHUB_ENDPOINT      = "https://finnhub.io/api/v1"
	finnhubRequestTimeout = 15 * time.Second
)

var (
	finnhubInstance *FinnhubClient
	finnhubOnce     sync.Once
)

// FinnhubClient supplies the fundamentals side of scoring: valuation
// metrics, analyst recommendation trends and earnings surprises. It
// also doubles as a secondary symbol-search provider.
type FinnhubClient struct {
	Client *http.Client
	APIKey string
}

func GetFinnhubClient() *FinnhubClient {
	finnhubOnce.Do(func() {
		finnhubInstance = &FinnhubClient{
			Client: &http.Client{Timeout: finnhubRequestTimeout},
			APIKey: os.Getenv("FINNHUB_API_KEY"),
		}
	})
	return finnhubInstance
}

func (f *FinnhubClient) Name() string { return "Finnhub" }

func (f *FinnhubClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if f.APIKey == "" {
		return errors.New("[FinnhubClient] API key is missing")
	}
	params.Set("token", f.APIKey)

	reqURL := FINNHUB_ENDPOINT + path + "?" + params.Encode()

	backoff := INITIAL_BACKOFF
	var lastErr error
	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", USER_AGENT)

		res, err := f.Client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(res.Body)
			res.Body.Close()

			switch {
			case readErr != nil:
				lastErr = readErr
			case res.StatusCode == http.StatusOK:
				if err := json.Unmarshal(body, out); err != nil {
					lastErr = fmt.Errorf("[FinnhubClient] failed to parse response for %s: %w", path, err)
				} else {
					return nil
				}
			case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500:
				lastErr = fmt.Errorf("[FinnhubClient] retryable status %d for %s", res.StatusCode, path)
				slog.Warn("[FinnhubClient] Retryable response",
					slog.String("path", path),
					slog.Int("statusCode", res.StatusCode),
					slog.Int("attempt", attempt))
			default:
				return fmt.Errorf("[FinnhubClient] unexpected status %d for %s", res.StatusCode, path)
			}
		}

		if attempt < MAX_RETRIES {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > MAX_BACKOFF {
				backoff = MAX_BACKOFF
			}
		}
	}

	return fmt.Errorf("[FinnhubClient] failed after max retries: %w", lastErr)
}

// Metrics fetches the valuation/quality block for one symbol.
func (f *FinnhubClient) Metrics(ctx context.Context, symbol string) (*models.FinnhubMetric, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("metric", "all")

	var response models.FinnhubMetricsResponse
	if err := f.get(ctx, "/stock/metric", params, &response); err != nil {
		return nil, err
	}
	return &response.Metric, nil
}

// RecommendationTrend returns the most recent analyst recommendation
// period for a symbol, or nil when the provider has none.
func (f *FinnhubClient) RecommendationTrend(ctx context.Context, symbol string) (*models.FinnhubRecommendation, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var response []models.FinnhubRecommendation
	if err := f.get(ctx, "/stock/recommendation", params, &response); err != nil {
		return nil, err
	}
	if len(response) == 0 {
		return nil, nil
	}
	// Finnhub returns periods newest first.
	return &response[0], nil
}

// EarningsSurprises returns up to the trailing four reported quarters.
func (f *FinnhubClient) EarningsSurprises(ctx context.Context, symbol string) ([]models.FinnhubEarningsSurprise, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", "4")

	var response []models.FinnhubEarningsSurprise
	if err := f.get(ctx, "/stock/earnings", params, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// Quote returns the latest trade price for one symbol.
func (f *FinnhubClient) Quote(ctx context.Context, symbol string) (*models.FinnhubQuote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var response models.FinnhubQuote
	if err := f.get(ctx, "/quote", params, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// SymbolSearch is the no-confidence-score fallback search: the first
// result is accepted only when its symbol carries no separator
// characters, filtering out dual-class and compound listings.
func (f *FinnhubClient) SymbolSearch(ctx context.Context, name string) (*models.TickerRecord, error) {
	params := url.Values{}
	params.Set("q", name)

	var response models.FinnhubSymbolSearchResponse
	if err := f.get(ctx, "/search", params, &response); err != nil {
		return nil, err
	}
	if len(response.Result) == 0 {
		return nil, nil
	}

	first := response.Result[0]
	if strings.ContainsAny(first.Symbol, ".-/") {
		return nil, nil
	}

	return &models.TickerRecord{
		Ticker:      first.Symbol,
		CompanyName: first.Description,
	}, nil
}
