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
	"strconv"
	"sync"
	"time"

	"github.com/kts999jjang/themeradar/internal/models"
)

const (
	ALPHA_VANTAGE_ENDPOINT    = "https://www.alphavantage.co/query"
	alphaVantageMinMatchScore = 0.7
	alphaVantageTimeout       = 15 * time.Second
)

var (
	alphaVantageInstance *AlphaVantageClient
	alphaVantageOnce     sync.Once
)

// AlphaVantageClient resolves free-text company names to ticker
// symbols via the SYMBOL_SEARCH function. The free tier allows 5
// requests per minute; callers are expected to throttle through the
// resolver's shared limiter.
type AlphaVantageClient struct {
	Client *http.Client
	APIKey string
}

func GetAlphaVantageClient() *AlphaVantageClient {
	alphaVantageOnce.Do(func() {
		alphaVantageInstance = &AlphaVantageClient{
			Client: &http.Client{Timeout: alphaVantageTimeout},
			APIKey: os.Getenv("ALPHA_VANTAGE_API_KEY"),
		}
	})
	return alphaVantageInstance
}

func (a *AlphaVantageClient) Name() string { return "AlphaVantage" }

// SymbolSearch returns the best-scoring match for a cleaned company
// name, or nil when no match clears the confidence threshold.
func (a *AlphaVantageClient) SymbolSearch(ctx context.Context, name string) (*models.TickerRecord, error) {
	if a.APIKey == "" {
		return nil, errors.New("[AlphaVantageClient] API key is missing")
	}

	params := url.Values{}
	params.Set("function", "SYMBOL_SEARCH")
	params.Set("keywords", name)
	params.Set("apikey", a.APIKey)

	var response models.AlphaVantageSearchResponse
	if err := a.getWithRetry(ctx, ALPHA_VANTAGE_ENDPOINT+"?"+params.Encode(), &response); err != nil {
		return nil, err
	}

	if len(response.BestMatches) == 0 {
		return nil, nil
	}

	best := response.BestMatches[0]
	score, err := strconv.ParseFloat(best.MatchScore, 64)
	if err != nil || score <= alphaVantageMinMatchScore {
		return nil, nil
	}

	return &models.TickerRecord{
		Ticker:      best.Symbol,
		CompanyName: best.Name,
	}, nil
}

func (a *AlphaVantageClient) getWithRetry(ctx context.Context, reqURL string, out any) error {
	backoff := INITIAL_BACKOFF
	var lastErr error

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", USER_AGENT)

		res, err := a.Client.Do(req)
		if err != nil {
			lastErr = err
			slog.Warn("[AlphaVantageClient] Request failed, retrying...",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		} else {
			body, readErr := io.ReadAll(res.Body)
			res.Body.Close()

			switch {
			case readErr != nil:
				lastErr = readErr
			case res.StatusCode == http.StatusOK:
				if err := json.Unmarshal(body, out); err != nil {
					lastErr = fmt.Errorf("[AlphaVantageClient] failed to parse response: %w", err)
				} else {
					return nil
				}
			case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500:
				lastErr = fmt.Errorf("[AlphaVantageClient] retryable status %d", res.StatusCode)
				slog.Warn("[AlphaVantageClient] Retryable response",
					slog.Int("statusCode", res.StatusCode),
					slog.Int("attempt", attempt),
					slog.Duration("backoff", backoff))
			default:
				return fmt.Errorf("[AlphaVantageClient] unexpected status %d", res.StatusCode)
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

	return fmt.Errorf("[AlphaVantageClient] failed after max retries: %w", lastErr)
}
