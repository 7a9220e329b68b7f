package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/kts999jjang/themeradar/internal/models"
)

const pineconeRequestTimeout = 30 * time.Second

var (
	pineconeInstance *PineconeClient
	pineconeOnce     sync.Once
)

// PineconeClient talks to the Pinecone data plane for one index. The
// index holds one vector per ingested article, keyed by article URL,
// with the article fields as metadata.
type PineconeClient struct {
	Client *http.Client
	Host   string
	APIKey string
}

type PineconeVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type PineconeMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type pineconeQueryRequest struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata"`
}

type pineconeQueryResponse struct {
	Matches []PineconeMatch `json:"matches"`
}

type pineconeUpsertRequest struct {
	Vectors []PineconeVector `json:"vectors"`
}

type pineconeUpsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

type pineconeStatsResponse struct {
	TotalVectorCount int `json:"totalVectorCount"`
}

func GetPineconeClient() *PineconeClient {
	pineconeOnce.Do(func() {
		pineconeInstance = &PineconeClient{
			Client: &http.Client{Timeout: pineconeRequestTimeout},
			Host:   os.Getenv("PINECONE_INDEX_HOST"),
			APIKey: os.Getenv("PINECONE_API_KEY"),
		}
	})
	return pineconeInstance
}

func (p *PineconeClient) post(ctx context.Context, path string, payload, out any) error {
	if p.Host == "" || p.APIKey == "" {
		return errors.New("[PineconeClient] index host or API key is missing")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	backoff := INITIAL_BACKOFF
	var lastErr error

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			"https://"+p.Host+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Api-Key", p.APIKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", USER_AGENT)

		res, err := p.Client.Do(req)
		if err != nil {
			lastErr = err
			slog.Warn("[PineconeClient] Request failed, retrying...",
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		} else {
			resBody, readErr := io.ReadAll(res.Body)
			res.Body.Close()

			switch {
			case readErr != nil:
				lastErr = readErr
			case res.StatusCode == http.StatusOK:
				if out == nil {
					return nil
				}
				if err := json.Unmarshal(resBody, out); err != nil {
					lastErr = fmt.Errorf("[PineconeClient] failed to parse response for %s: %w", path, err)
				} else {
					return nil
				}
			case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500:
				lastErr = fmt.Errorf("[PineconeClient] retryable status %d for %s", res.StatusCode, path)
				slog.Warn("[PineconeClient] Retryable response",
					slog.String("path", path),
					slog.Int("statusCode", res.StatusCode),
					slog.Int("attempt", attempt))
			default:
				return fmt.Errorf("[PineconeClient] unexpected status %d for %s", res.StatusCode, path)
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

	return fmt.Errorf("[PineconeClient] failed after max retries: %w", lastErr)
}

// Query runs a similarity search and returns scored matches with their
// metadata.
func (p *PineconeClient) Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]PineconeMatch, error) {
	var response pineconeQueryResponse
	err := p.post(ctx, "/query", pineconeQueryRequest{
		Vector:          vector,
		TopK:            topK,
		Filter:          filter,
		IncludeMetadata: true,
	}, &response)
	if err != nil {
		return nil, err
	}
	return response.Matches, nil
}

// QueryArticles runs Query and converts match metadata into validated
// Articles, dropping malformed records.
func (p *PineconeClient) QueryArticles(ctx context.Context, vector []float32, topK int, publishedAfter int64) ([]models.Article, error) {
	var filter map[string]any
	if publishedAfter > 0 {
		filter = map[string]any{
			"publishedAt": map[string]any{"$gte": publishedAfter},
		}
	}

	matches, err := p.Query(ctx, vector, topK, filter)
	if err != nil {
		return nil, err
	}

	articles := make([]models.Article, 0, len(matches))
	for _, m := range matches {
		article, ok := models.ArticleFromMetadata(m.Metadata)
		if !ok {
			slog.Debug("[PineconeClient] Dropping match with malformed metadata",
				slog.String("id", m.ID))
			continue
		}
		articles = append(articles, article)
	}
	return articles, nil
}

// Upsert writes vectors in place; existing IDs are overwritten.
func (p *PineconeClient) Upsert(ctx context.Context, vectors []PineconeVector) (int, error) {
	if len(vectors) == 0 {
		return 0, nil
	}
	var response pineconeUpsertResponse
	if err := p.post(ctx, "/vectors/upsert", pineconeUpsertRequest{Vectors: vectors}, &response); err != nil {
		return 0, err
	}
	return response.UpsertedCount, nil
}

// Stats returns the total vector count for operator visibility.
func (p *PineconeClient) Stats(ctx context.Context) (int, error) {
	var response pineconeStatsResponse
	if err := p.post(ctx, "/describe_index_stats", struct{}{}, &response); err != nil {
		return 0, err
	}
	return response.TotalVectorCount, nil
}
