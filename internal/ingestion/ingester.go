package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/kts999jjang/themeradar/internal/clients"
	"github.com/kts999jjang/themeradar/internal/models"
	"github.com/kts999jjang/themeradar/internal/themes"
)

const (
	upsertBatchSize     = 100
	articlesPerQuery    = 50
	ingestScanChunkSize = 24 * time.Hour
)

// NewsSource searches a news provider for one theme query.
type NewsSource interface {
	Name() string
	Search(ctx context.Context, query string, from, to time.Time, max int) ([]models.Article, int, error)
}

// Embedder turns an article title into a vector.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorUpserter writes article vectors to the index.
type VectorUpserter interface {
	Upsert(ctx context.Context, vectors []clients.PineconeVector) (int, error)
}

// Ingester populates the vector index: it walks the lookback window a
// day at a time per theme, dedupes by URL, embeds titles behind a
// shared limiter and upserts in batches.
type Ingester struct {
	news      []NewsSource
	embedders []Embedder
	index     VectorUpserter
	limiter   *rate.Limiter
	batchSize int
	now       func() time.Time
}

func New(news []NewsSource, embedders []Embedder, index VectorUpserter, limiter *rate.Limiter) *Ingester {
	return &Ingester{
		news:      news,
		embedders: embedders,
		index:     index,
		limiter:   limiter,
		batchSize: upsertBatchSize,
		now:       time.Now,
	}
}

// Populate collects and indexes articles for the trailing N days.
// Returns the number of vectors written.
func (i *Ingester) Populate(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		return 0, fmt.Errorf("[Ingester] days must be positive, got %d", days)
	}

	articles, err := i.collect(ctx, days)
	if err != nil {
		return 0, err
	}
	slog.Info("[Ingester] Collection finished", slog.Int("articles", len(articles)))

	return i.indexArticles(ctx, articles)
}

// collect runs one search per theme per day, newest day first, and
// dedupes across the whole window. A single failed query is skipped;
// only a fully dark provider chain fails the run.
func (i *Ingester) collect(ctx context.Context, days int) ([]models.Article, error) {
	var (
		all      []models.Article
		failures int
		queries  int
	)
	end := i.now()

	for day := 0; day < days; day++ {
		to := end.Add(-time.Duration(day) * ingestScanChunkSize)
		from := to.Add(-ingestScanChunkSize)

		for _, theme := range themes.InvestmentThemes {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			queries++

			articles, err := i.search(ctx, theme.Query, from, to)
			if err != nil {
				slog.Warn("[Ingester] Search failed, skipping slot",
					slog.String("theme", theme.Name),
					slog.Time("from", from),
					slog.String("error", err.Error()))
				failures++
				continue
			}
			all = append(all, articles...)
		}
	}

	if failures == queries {
		return nil, fmt.Errorf("[Ingester] all %d searches failed", queries)
	}
	return models.DedupeArticles(all), nil
}

func (i *Ingester) search(ctx context.Context, query string, from, to time.Time) ([]models.Article, error) {
	var lastErr error
	for _, source := range i.news {
		articles, _, err := source.Search(ctx, query, from, to, articlesPerQuery)
		if err != nil {
			slog.Warn("[Ingester] News source failed, trying next",
				slog.String("source", source.Name()),
				slog.String("error", err.Error()))
			lastErr = err
			continue
		}
		return articles, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no news sources configured")
	}
	return nil, lastErr
}

// indexArticles embeds each title and flushes full batches as it goes.
// An article whose embedding fails is skipped.
func (i *Ingester) indexArticles(ctx context.Context, articles []models.Article) (int, error) {
	var (
		batch   []clients.PineconeVector
		written int
		skipped int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		count, err := i.index.Upsert(ctx, batch)
		if err != nil {
			return err
		}
		written += count
		batch = batch[:0]
		return nil
	}

	for _, article := range articles {
		if err := i.limiter.Wait(ctx); err != nil {
			return written, err
		}

		vector, err := i.embed(ctx, article.Title)
		if err != nil {
			slog.Warn("[Ingester] Embedding failed, skipping article",
				slog.String("url", article.URL),
				slog.String("error", err.Error()))
			skipped++
			continue
		}

		batch = append(batch, clients.PineconeVector{
			ID:       article.URL,
			Values:   vector,
			Metadata: article.Metadata(),
		})
		if len(batch) == i.batchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}

	slog.Info("[Ingester] Indexing finished",
		slog.Int("written", written),
		slog.Int("skipped", skipped))
	return written, nil
}

func (i *Ingester) embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for _, embedder := range i.embedders {
		vector, err := embedder.Embed(ctx, text)
		if err != nil {
			lastErr = err
			continue
		}
		return vector, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no embedders configured")
	}
	return nil, lastErr
}
