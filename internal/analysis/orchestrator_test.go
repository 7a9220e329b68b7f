package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kts999jjang/themeradar/internal/models"
	"github.com/kts999jjang/themeradar/internal/scoring"
	"github.com/kts999jjang/themeradar/internal/themes"
)

type memStore struct {
	mu      sync.Mutex
	strings map[string]string
}

func newMemStore() *memStore {
	return &memStore{strings: make(map[string]string)}
}

func (m *memStore) GetString(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *memStore) SetString(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strings[key] = value
	return nil
}

// fakeNews serves a fixed article list, optionally failing for one
// query substring.
type fakeNews struct {
	articles  []models.Article
	failQuery string
}

func (f *fakeNews) Name() string { return "fake-news" }

func (f *fakeNews) Search(_ context.Context, query string, _, _ time.Time, _ int) ([]models.Article, int, error) {
	if f.failQuery != "" && strings.Contains(query, f.failQuery) {
		return nil, 0, errors.New("provider outage")
	}
	return f.articles, len(f.articles), nil
}

type fakeResolver struct {
	records map[string]*models.TickerRecord
}

func (f *fakeResolver) ResolveAll(_ context.Context, names []string) map[string]*models.TickerRecord {
	out := make(map[string]*models.TickerRecord)
	for _, name := range names {
		if r, ok := f.records[name]; ok {
			out[name] = r
		}
	}
	return out
}

type fakeScorer struct {
	sub models.SubScores
}

func (f *fakeScorer) Score(_ context.Context, _ string, _ []string) (models.SubScores, error) {
	return f.sub, nil
}

type recordingUpdater struct {
	mu      sync.Mutex
	updated []models.TickerRecord
}

func (r *recordingUpdater) UpdateRecords(_ context.Context, records []models.TickerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, records...)
	return nil
}

func (r *recordingUpdater) all() []models.TickerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TickerRecord(nil), r.updated...)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []bool
}

func (r *recordingNotifier) Notify(_ context.Context, ok bool, _, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, ok)
}

type failingIndex struct{}

func (failingIndex) QueryArticles(context.Context, []float32, int, int64) ([]models.Article, error) {
	return nil, errors.New("index unreachable")
}

func nvidiaArticles() []models.Article {
	titles := []string{
		"NVIDIA posts record quarterly revenue",
		"NVIDIA unveils next data center chip",
		"Analysts raise NVIDIA price targets again",
		"NVIDIA supply improves ahead of launch",
		"Gamers line up for new NVIDIA hardware",
		"Cloud providers expand NVIDIA deployments",
		"NVIDIA partners with major automakers",
		"Researchers adopt NVIDIA platforms broadly",
		"Analysts praise Microsoft cloud momentum",
		"Enterprises renew Microsoft contracts early",
		"Developers flock to Microsoft tooling",
	}
	articles := make([]models.Article, len(titles))
	for i, title := range titles {
		articles[i] = models.Article{
			Title:       title,
			URL:         "https://news.example/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
			Source:      "example",
			PublishedAt: time.Now().Unix(),
		}
	}
	return articles
}

func newTestOrchestrator(news *fakeNews, store *memStore, notifier *recordingNotifier) *Orchestrator {
	weights := scoring.DefaultWeights()
	weights.AdmissionThreshold = 0

	o := New(Config{
		News:     []NewsSource{news},
		Index:    failingIndex{},
		Store:    store,
		Resolver: &fakeResolver{records: map[string]*models.TickerRecord{
			"nvidia": {Ticker: "NVDA", CompanyName: "nvidia"},
		}},
		Scorer:   &fakeScorer{sub: models.SubScores{SentimentScore: 5.0, MarketCap: 3_000_000}},
		Notifier: notifier,
		Weights:  weights,
	})
	o.chunkDelay = 0
	return o
}

func TestAnalyzeThemeScoresMentionsIntoLeading(t *testing.T) {
	o := newTestOrchestrator(&fakeNews{articles: nvidiaArticles()}, newMemStore(), nil)

	result, err := o.AnalyzeTheme(context.Background(), themes.InvestmentThemes[0], 14*24*time.Hour)
	require.NoError(t, err)

	require.Len(t, result.Leading, 1, "only the resolvable company may appear")
	nvda := result.Leading[0]
	assert.Equal(t, "NVDA", nvda.Ticker)
	assert.Equal(t, models.StyleLeading, nvda.Style)
	assert.InDelta(t, 8.0, nvda.SubScores.NewsScore, 1e-9, "eight title mentions")
	assert.InDelta(t, 8*0.6+5.0*0.4, nvda.HypeScore, 1e-9)
	assert.Empty(t, result.Growth)
}

func TestAnalyzeThemeWritesStyledRecordsBack(t *testing.T) {
	o := newTestOrchestrator(&fakeNews{articles: nvidiaArticles()}, newMemStore(), nil)
	updater := &recordingUpdater{}
	o.records = updater

	_, err := o.AnalyzeTheme(context.Background(), themes.InvestmentThemes[0], 14*24*time.Hour)
	require.NoError(t, err)

	updated := updater.all()
	require.Len(t, updated, 1)
	assert.Equal(t, "NVDA", updated[0].Ticker)
	assert.Equal(t, models.StyleLeading, updated[0].Style,
		"the classified style must be written back to the record")
}

func TestAnalyzeThemeMergesAliasesIntoOneCandidate(t *testing.T) {
	titles := []string{
		"NVIDIA posts record quarterly revenue",
		"NVIDIA unveils next data center chip",
		"NVIDIA supply improves ahead of launch",
		"Fans cheer as Team Green unveils flagship card",
		"Rivals scramble while Team Green extends its lead",
	}
	articles := make([]models.Article, len(titles))
	for i, title := range titles {
		articles[i] = models.Article{
			Title:       title,
			URL:         "https://news.example/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
			Source:      "example",
			PublishedAt: time.Now().Unix(),
		}
	}

	o := newTestOrchestrator(&fakeNews{articles: articles}, newMemStore(), nil)
	o.resolver = &fakeResolver{records: map[string]*models.TickerRecord{
		"nvidia":     {Ticker: "NVDA", CompanyName: "nvidia"},
		"team green": {Ticker: "NVDA", CompanyName: "team green"},
	}}
	updater := &recordingUpdater{}
	o.records = updater

	result, err := o.AnalyzeTheme(context.Background(), themes.InvestmentThemes[0], 14*24*time.Hour)
	require.NoError(t, err)

	require.Len(t, result.Leading, 1, "both names resolve to one company")
	nvda := result.Leading[0]
	assert.Equal(t, "NVDA", nvda.Ticker)
	assert.InDelta(t, 5.0, nvda.SubScores.NewsScore, 1e-9, "mentions of both names sum")
	assert.Len(t, nvda.RelevantArticles, 5, "alias titles count as relevant too")

	updated := updater.all()
	require.Len(t, updated, 1)
	assert.Contains(t, updated[0].Keywords, "team green",
		"the extra name becomes a keyword alias on the record")
}

func TestAnalyzeThemeEmptyArticlesYieldsEmptyResult(t *testing.T) {
	o := newTestOrchestrator(&fakeNews{}, newMemStore(), nil)

	result, err := o.AnalyzeTheme(context.Background(), themes.InvestmentThemes[0], 14*24*time.Hour)
	require.NoError(t, err)
	assert.True(t, result.Empty())
	assert.Equal(t, themes.InvestmentThemes[0].Name, result.ThemeName)
}

func TestRunContinuesPastFailedTheme(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	// Make exactly one theme's news query fail; the index is down for
	// everyone, so that theme has no candidate source at all.
	news := &fakeNews{articles: nvidiaArticles(), failQuery: "metaverse"}
	o := newTestOrchestrator(news, store, notifier)

	err := o.Run(context.Background(), "14d", 14*24*time.Hour)
	require.NoError(t, err, "one broken theme must not fail the run")

	blob, found, err := store.GetString(context.Background(), RecommendationsKey("14d"))
	require.NoError(t, err)
	require.True(t, found)

	set, err := DecodeRecommendations(blob)
	require.NoError(t, err)
	assert.Len(t, set.Results, len(themes.InvestmentThemes)-1)
	_, hasFailed := set.Results["Metaverse & VR"]
	assert.False(t, hasFailed, "the failed theme must be absent, not empty")

	require.NotEmpty(t, notifier.calls)
	assert.False(t, notifier.calls[len(notifier.calls)-1],
		"a partially failed run notifies as failure")
}

func TestRunPersistsIncrementally(t *testing.T) {
	store := newMemStore()
	o := newTestOrchestrator(&fakeNews{articles: nvidiaArticles()}, store, &recordingNotifier{})

	require.NoError(t, o.Run(context.Background(), "7d", 7*24*time.Hour))

	blob, found, _ := store.GetString(context.Background(), RecommendationsKey("7d"))
	require.True(t, found)
	set, err := DecodeRecommendations(blob)
	require.NoError(t, err)
	assert.Len(t, set.Results, len(themes.InvestmentThemes))
	for name, result := range set.Results {
		assert.Equal(t, name, result.ThemeName)
	}
}

type countingGenerator struct {
	calls int
	err   error
}

func (c *countingGenerator) Name() string { return "counting" }

func (c *countingGenerator) GenerateText(context.Context, string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "Companies building **AI** chips and infrastructure.", nil
}

func TestCachedThemeSummaryGeneratesOnce(t *testing.T) {
	store := newMemStore()
	generator := &countingGenerator{}
	theme := themes.InvestmentThemes[0]

	first, err := cachedThemeSummary(context.Background(), store, []TextGenerator{generator}, theme)
	require.NoError(t, err)
	assert.Equal(t, "Companies building AI chips and infrastructure.", first,
		"markdown is stripped before caching")

	second, err := cachedThemeSummary(context.Background(), store, []TextGenerator{generator}, theme)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, generator.calls, "second call within the TTL is served from cache")
}

func TestCachedThemeSummaryFallsBack(t *testing.T) {
	broken := &countingGenerator{err: errors.New("quota exhausted")}
	working := &countingGenerator{}

	summary, err := cachedThemeSummary(context.Background(), newMemStore(),
		[]TextGenerator{broken, working}, themes.InvestmentThemes[1])
	require.NoError(t, err)
	assert.NotEmpty(t, summary)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, working.calls)
}
