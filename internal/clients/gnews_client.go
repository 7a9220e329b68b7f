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
	"sync"
	"time"

	"github.com/kts999jjang/themeradar/internal/models"
)

const (
	GNEWS_SEARCH_ENDPOINT = "https://gnews.io/api/v4/search"
	gnewsRequestTimeout   = 15 * time.Second
)

var (
	gnewsInstance *GNewsClient
	gnewsOnce     sync.Once
)

// GNewsClient is the primary news-search provider.
type GNewsClient struct {
	Client *http.Client
	APIKey string
}

func GetGNewsClient() *GNewsClient {
	gnewsOnce.Do(func() {
		gnewsInstance = &GNewsClient{
			Client: &http.Client{Timeout: gnewsRequestTimeout},
			APIKey: os.Getenv("GNEWS_API_KEY"),
		}
	})
	return gnewsInstance
}

// Name identifies the provider in fallback-chain logs.
func (g *GNewsClient) Name() string { return "GNews" }

// Search runs a boolean query against GNews within [from, to) and
// returns normalized articles plus the provider's total match count.
func (g *GNewsClient) Search(ctx context.Context, query string, from, to time.Time, max int) ([]models.Article, int, error) {
	if g.APIKey == "" {
		return nil, 0, errors.New("[GNewsClient] API key is missing")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("topic", "business,technology")
	params.Set("lang", "en")
	params.Set("max", fmt.Sprintf("%d", max))
	if !from.IsZero() {
		params.Set("from", from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		params.Set("to", to.UTC().Format(time.RFC3339))
	}
	params.Set("apikey", g.APIKey)

	reqURL := GNEWS_SEARCH_ENDPOINT + "?" + params.Encode()

	var response models.GNewsSearchResponse
	if err := g.getWithRetry(ctx, reqURL, &response); err != nil {
		return nil, 0, err
	}

	articles := make([]models.Article, 0, len(response.Articles))
	for _, a := range response.Articles {
		publishedAt, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil {
			publishedAt = time.Now().UTC()
		}
		articles = append(articles, models.Article{
			Title:       a.Title,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: publishedAt.Unix(),
		})
	}

	return articles, response.TotalArticles, nil
}

func (g *GNewsClient) getWithRetry(ctx context.Context, reqURL string, out any) error {
	backoff := INITIAL_BACKOFF
	var lastErr error

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", USER_AGENT)

		res, err := g.Client.Do(req)
		if err != nil {
			lastErr = err
			slog.Warn("[GNewsClient] Request failed, retrying...",
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
					// Malformed bodies are treated like transient failures.
					lastErr = fmt.Errorf("[GNewsClient] failed to parse response: %w", err)
				} else {
					return nil
				}
			case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
				return fmt.Errorf("[GNewsClient] rejected request: status %d", res.StatusCode)
			case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500:
				lastErr = fmt.Errorf("[GNewsClient] retryable status %d", res.StatusCode)
				slog.Warn("[GNewsClient] Retryable response",
					slog.Int("statusCode", res.StatusCode),
					slog.Int("attempt", attempt),
					slog.Duration("backoff", backoff))
			default:
				return fmt.Errorf("[GNewsClient] unexpected status %d", res.StatusCode)
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

	return fmt.Errorf("[GNewsClient] failed after max retries: %w", lastErr)
}
