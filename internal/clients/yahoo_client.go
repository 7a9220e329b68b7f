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
	"sync"
	"time"

	"github.com/kts999jjang/themeradar/internal/models"
)

const (
	YAHOO_CHART_ENDPOINT = "https://query1.finance.yahoo.com/v8/finance/chart/"
	yahooRequestTimeout  = 15 * time.Second
)

var (
	yahooInstance *YahooClient
	yahooOnce     sync.Once
)

// YahooClient fetches historical close prices for the detail view.
type YahooClient struct {
	Client *http.Client
}

func GetYahooClient() *YahooClient {
	yahooOnce.Do(func() {
		yahooInstance = &YahooClient{
			Client: &http.Client{Timeout: yahooRequestTimeout},
		}
	})
	return yahooInstance
}

// Chart returns the price series for a ticker over the given range and
// interval (e.g. "1mo", "1d").
func (y *YahooClient) Chart(ctx context.Context, ticker, chartRange, interval string) (*models.YahooChartResult, error) {
	if ticker == "" {
		return nil, errors.New("[YahooClient] ticker is required")
	}

	params := url.Values{}
	params.Set("range", chartRange)
	params.Set("interval", interval)

	reqURL := YAHOO_CHART_ENDPOINT + url.PathEscape(ticker) + "?" + params.Encode()

	var response models.YahooChartResponse
	if err := y.getWithRetry(ctx, reqURL, &response); err != nil {
		return nil, err
	}

	if response.Chart.Error != nil {
		return nil, fmt.Errorf("[YahooClient] chart error for %s: %s", ticker, response.Chart.Error.Code)
	}
	if len(response.Chart.Result) == 0 {
		return nil, fmt.Errorf("[YahooClient] no chart data for %s", ticker)
	}

	return &response.Chart.Result[0], nil
}

func (y *YahooClient) getWithRetry(ctx context.Context, reqURL string, out any) error {
	backoff := INITIAL_BACKOFF
	var lastErr error

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", USER_AGENT)

		res, err := y.Client.Do(req)
		if err != nil {
			lastErr = err
			slog.Warn("[YahooClient] Request failed, retrying...",
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
					lastErr = fmt.Errorf("[YahooClient] failed to parse response: %w", err)
				} else {
					return nil
				}
			case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500:
				lastErr = fmt.Errorf("[YahooClient] retryable status %d", res.StatusCode)
				slog.Warn("[YahooClient] Retryable response",
					slog.Int("statusCode", res.StatusCode),
					slog.Int("attempt", attempt),
					slog.Duration("backoff", backoff))
			default:
				return fmt.Errorf("[YahooClient] unexpected status %d", res.StatusCode)
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

	return fmt.Errorf("[YahooClient] failed after max retries: %w", lastErr)
}
