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
	NEWS_API_ENDPOINT    = "https://newsapi.org/v2/everything"
	newsAPIRequestTimout = 15 * time.Second
)

var (
	newsAPIInstance *NewsAPIClient
	newsAPIOnce     sync.Once
)

// NewsAPIClient is the fallback news-search provider, used when GNews
// is unreachable or out of quota.
type NewsAPIClient struct {
	Client *http.Client
	APIKey string
}

func GetNewsAPIClient() *NewsAPIClient {
	newsAPIOnce.Do(func() {
		newsAPIInstance = &NewsAPIClient{
			Client: &http.Client{Timeout: newsAPIRequestTimout},
			APIKey: os.Getenv("NEWS_API_KEY"),
		}
	})
	return newsAPIInstance
}

func (n *NewsAPIClient) Name() string { return "NewsAPI" }

// Search queries the everything endpoint with the same contract as the
// primary provider.
func (n *NewsAPIClient) Search(ctx context.Context, query string, from, to time.Time, max int) ([]models.Article, int, error) {
	if n.APIKey == "" {
		slog.Error("[NewsAPIClient] API key is missing")
		return nil, 0, errors.New("[NewsAPIClient] API key is missing")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", fmt.Sprintf("%d", max))
	if !from.IsZero() {
		params.Set("from", from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		params.Set("to", to.UTC().Format(time.RFC3339))
	}

	reqURL := NEWS_API_ENDPOINT + "?" + params.Encode()

	var response models.NewsAPIEverythingResponse
	backoff := INITIAL_BACKOFF
	var lastErr error

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set("X-Api-Key", n.APIKey)
		req.Header.Set("User-Agent", USER_AGENT)

		res, err := n.Client.Do(req)
		if err != nil {
			slog.Warn("[NewsAPIClient] Request failed",
				slog.Int("attempt", attempt), slog.String("error", err.Error()))
			lastErr = err
		} else {
			body, readErr := io.ReadAll(res.Body)
			res.Body.Close()

			switch {
			case readErr != nil:
				lastErr = readErr
			case res.StatusCode == http.StatusOK:
				if err := json.Unmarshal(body, &response); err != nil {
					lastErr = fmt.Errorf("[NewsAPIClient] failed to parse JSON response: %w", err)
				} else {
					return n.normalize(response), response.TotalResults, nil
				}
			case res.StatusCode == http.StatusUnauthorized:
				return nil, 0, errors.New("[NewsAPIClient] Invalid API Key, check credentials")
			case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500:
				lastErr = fmt.Errorf("[NewsAPIClient] retryable status %d", res.StatusCode)
				slog.Warn("[NewsAPIClient] Rate limited or server error, retrying...",
					slog.Int("statusCode", res.StatusCode),
					slog.Duration("backoff", backoff),
					slog.Int("attempt", attempt))
			default:
				return nil, 0, fmt.Errorf("[NewsAPIClient] unexpected status %d", res.StatusCode)
			}
		}

		if attempt < MAX_RETRIES {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > MAX_BACKOFF {
				backoff = MAX_BACKOFF
			}
		}
	}

	return nil, 0, fmt.Errorf("[NewsAPIClient] failed after max retries: %w", lastErr)
}

func (n *NewsAPIClient) normalize(response models.NewsAPIEverythingResponse) []models.Article {
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
	return articles
}
