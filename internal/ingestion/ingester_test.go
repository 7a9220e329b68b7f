package ingestion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/kts999jjang/themeradar/internal/clients"
	"github.com/kts999jjang/themeradar/internal/models"
	"github.com/kts999jjang/themeradar/internal/themes"
)

type staticNews struct {
	articles []models.Article
	err      error
	calls    int
}

func (s *staticNews) Name() string { return "static" }

func (s *staticNews) Search(context.Context, string, time.Time, time.Time, int) ([]models.Article, int, error) {
	s.calls++
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.articles, len(s.articles), nil
}

type stubEmbedder struct {
	failTitle string
}

func (s *stubEmbedder) Name() string { return "stub" }

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.failTitle != "" && text == s.failTitle {
		return nil, errors.New("embedding quota exceeded")
	}
	return []float32{0.1, 0.2}, nil
}

type captureIndex struct {
	batches [][]clients.PineconeVector
}

func (c *captureIndex) Upsert(_ context.Context, vectors []clients.PineconeVector) (int, error) {
	batch := make([]clients.PineconeVector, len(vectors))
	copy(batch, vectors)
	c.batches = append(c.batches, batch)
	return len(vectors), nil
}

func someArticles(n int) []models.Article {
	out := make([]models.Article, n)
	for i := range out {
		out[i] = models.Article{
			Title:       fmt.Sprintf("Story %d", i),
			URL:         fmt.Sprintf("https://news.example/%d", i),
			Source:      "example",
			PublishedAt: time.Now().Unix(),
		}
	}
	return out
}

func TestPopulateDedupesAndBatches(t *testing.T) {
	news := &staticNews{articles: someArticles(130)}
	index := &captureIndex{}
	ingester := New([]NewsSource{news}, []Embedder{&stubEmbedder{}}, index, rate.NewLimiter(rate.Inf, 1))

	written, err := ingester.Populate(context.Background(), 2)
	require.NoError(t, err)

	// Every per-day per-theme search returns the same 130 URLs, so the
	// dedupe must collapse them back to 130 vectors.
	assert.Equal(t, 130, written)
	assert.Equal(t, 2*len(themes.InvestmentThemes), news.calls)

	require.Len(t, index.batches, 2)
	assert.Len(t, index.batches[0], 100)
	assert.Len(t, index.batches[1], 30)
	assert.Equal(t, "https://news.example/0", index.batches[0][0].ID, "vector ID is the article URL")
}

func TestPopulateSkipsFailedEmbeddings(t *testing.T) {
	news := &staticNews{articles: someArticles(3)}
	index := &captureIndex{}
	embedder := &stubEmbedder{failTitle: "Story 1"}
	ingester := New([]NewsSource{news}, []Embedder{embedder}, index, rate.NewLimiter(rate.Inf, 1))

	written, err := ingester.Populate(context.Background(), 1)
	require.NoError(t, err, "a failed embedding skips the article, not the run")
	assert.Equal(t, 2, written)
}

func TestPopulateFailsWhenEverySearchFails(t *testing.T) {
	news := &staticNews{err: errors.New("provider dark")}
	ingester := New([]NewsSource{news}, []Embedder{&stubEmbedder{}}, &captureIndex{}, rate.NewLimiter(rate.Inf, 1))

	_, err := ingester.Populate(context.Background(), 1)
	assert.Error(t, err)
}

func TestPopulateRejectsNonPositiveDays(t *testing.T) {
	ingester := New(nil, nil, &captureIndex{}, rate.NewLimiter(rate.Inf, 1))
	_, err := ingester.Populate(context.Background(), 0)
	assert.Error(t, err)
}
