package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kts999jjang/themeradar/internal/extraction"
	"github.com/kts999jjang/themeradar/internal/models"
	"github.com/kts999jjang/themeradar/internal/scoring"
	"github.com/kts999jjang/themeradar/internal/themes"
)

const (
	defaultCandidateLimit = 20
	defaultQueryTopK      = 200
	defaultChunkSize      = 5
	defaultChunkDelay     = 2 * time.Second
	newsScoreCap          = 10
	relevantArticleLimit  = 5

	recommendationsKeyPrefix = "recommendations_"
)

// NewsSource searches a news provider; the second return value is the
// provider's total match count for the query.
type NewsSource interface {
	Name() string
	Search(ctx context.Context, query string, from, to time.Time, max int) ([]models.Article, int, error)
}

// TextGenerator produces a short completion for a prompt.
type TextGenerator interface {
	Name() string
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the pre-populated article embedding index.
type VectorIndex interface {
	QueryArticles(ctx context.Context, vector []float32, topK int, publishedAfter int64) ([]models.Article, error)
}

// Store is the key-value surface used for the summary cache and result
// persistence.
type Store interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
}

// TickerResolver maps normalized organization names to ticker records.
type TickerResolver interface {
	ResolveAll(ctx context.Context, normalizedNames []string) map[string]*models.TickerRecord
}

// TickerScorer gathers the per-ticker sub-scores.
type TickerScorer interface {
	Score(ctx context.Context, ticker string, titles []string) (models.SubScores, error)
}

// RecordUpdater persists refreshed ticker records after ranking
// classifies their style.
type RecordUpdater interface {
	UpdateRecords(ctx context.Context, records []models.TickerRecord) error
}

// Notifier delivers best-effort run notifications.
type Notifier interface {
	Notify(ctx context.Context, ok bool, title, text string)
}

// Orchestrator runs the per-theme discovery state machine: fetch
// candidate articles, extract mentions, resolve tickers, score the top
// candidates and persist the ranked result.
type Orchestrator struct {
	news       []NewsSource
	generators []TextGenerator
	embedders  []Embedder
	index      VectorIndex
	store      Store
	resolver   TickerResolver
	scorer     TickerScorer
	records    RecordUpdater
	notifier   Notifier
	weights    scoring.Weights

	candidateLimit int
	queryTopK      int
	chunkSize      int
	chunkDelay     time.Duration
	now            func() time.Time
}

type Config struct {
	News       []NewsSource
	Generators []TextGenerator
	Embedders  []Embedder
	Index      VectorIndex
	Store      Store
	Resolver   TickerResolver
	Scorer     TickerScorer
	Records    RecordUpdater
	Notifier   Notifier
	Weights    scoring.Weights
}

func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		news:           cfg.News,
		generators:     cfg.Generators,
		embedders:      cfg.Embedders,
		index:          cfg.Index,
		store:          cfg.Store,
		resolver:       cfg.Resolver,
		scorer:         cfg.Scorer,
		records:        cfg.Records,
		notifier:       cfg.Notifier,
		weights:        cfg.Weights,
		candidateLimit: defaultCandidateLimit,
		queryTopK:      defaultQueryTopK,
		chunkSize:      defaultChunkSize,
		chunkDelay:     defaultChunkDelay,
		now:            time.Now,
	}
}

// Run analyzes every theme over the lookback window and persists the
// accumulated result set under recommendations_<period>. A failing
// theme is logged and skipped; the run fails only when no theme could
// be analyzed or persistence itself is broken.
func (o *Orchestrator) Run(ctx context.Context, period string, window time.Duration) error {
	started := o.now()
	results := make(map[string]models.ThemeResult, len(themes.InvestmentThemes))
	var failed []string

	for _, theme := range themes.InvestmentThemes {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := o.AnalyzeTheme(ctx, theme, window)
		if err != nil {
			slog.Error("[Orchestrator] Theme analysis failed, continuing with remaining themes",
				slog.String("theme", theme.Name),
				slog.String("error", err.Error()))
			failed = append(failed, theme.Name)
			continue
		}
		results[theme.Name] = result

		// Persist after every theme so a late failure keeps what is
		// already done.
		if err := o.persist(ctx, period, results); err != nil {
			o.notify(ctx, false, "Theme analysis failed",
				fmt.Sprintf("period=%s persist error: %v", period, err))
			return err
		}

		slog.Info("[Orchestrator] Theme analyzed",
			slog.String("theme", theme.Name),
			slog.Int("leading", len(result.Leading)),
			slog.Int("growth", len(result.Growth)))
	}

	if len(results) == 0 {
		err := fmt.Errorf("[Orchestrator] all %d themes failed", len(failed))
		o.notify(ctx, false, "Theme analysis failed", err.Error())
		return err
	}

	summary := fmt.Sprintf("period=%s themes=%d failed=%d duration=%s",
		period, len(results), len(failed), o.now().Sub(started).Round(time.Second))
	o.notify(ctx, len(failed) == 0, "Theme analysis completed", summary)
	slog.Info("[Orchestrator] Run completed", slog.String("summary", summary))
	return nil
}

// AnalyzeTheme runs the state machine for one theme.
func (o *Orchestrator) AnalyzeTheme(ctx context.Context, theme themes.Theme, window time.Duration) (models.ThemeResult, error) {
	articles, err := o.fetchCandidates(ctx, theme, window)
	if err != nil {
		return models.ThemeResult{}, err
	}
	if len(articles) == 0 {
		slog.Warn("[Orchestrator] No articles for theme", slog.String("theme", theme.Name))
		return models.ThemeResult{ThemeName: theme.Name, AnalyzedAt: o.now().UTC()}, nil
	}

	mentions := extraction.CountOrganizations(articles)
	if len(mentions) == 0 {
		return models.ThemeResult{ThemeName: theme.Name, AnalyzedAt: o.now().UTC()}, nil
	}

	resolved := o.resolver.ResolveAll(ctx, sortedByCount(mentions))
	if len(resolved) == 0 {
		slog.Warn("[Orchestrator] No resolvable tickers for theme", slog.String("theme", theme.Name))
		return models.ThemeResult{ThemeName: theme.Name, AnalyzedAt: o.now().UTC()}, nil
	}

	candidates := o.selectCandidates(mentions, resolved)
	records := make(map[string]models.TickerRecord, len(candidates))
	for _, seed := range candidates {
		records[seed.record.Ticker] = *seed.record
	}

	scored, err := o.scoreCandidates(ctx, candidates, articles, theme)
	if err != nil {
		return models.ThemeResult{}, err
	}

	result := scoring.Rank(theme.Name, scored, o.weights)
	attachRelevantArticles(&result, articles, theme, records)
	o.persistRecords(ctx, result, records)
	return result, nil
}

// fetchCandidates prefers the vector index (theme summary → embedding →
// similarity query) and falls back to a direct news search when any of
// those stages is unavailable.
func (o *Orchestrator) fetchCandidates(ctx context.Context, theme themes.Theme, window time.Duration) ([]models.Article, error) {
	cutoff := o.now().Add(-window)

	articles, err := o.queryIndex(ctx, theme, cutoff)
	if err == nil && len(articles) > 0 {
		return articles, nil
	}
	if err != nil {
		slog.Warn("[Orchestrator] Vector index unavailable, falling back to news search",
			slog.String("theme", theme.Name),
			slog.String("error", err.Error()))
	}

	return o.searchNews(ctx, theme.Query, cutoff, o.now(), o.queryTopK)
}

func (o *Orchestrator) queryIndex(ctx context.Context, theme themes.Theme, cutoff time.Time) ([]models.Article, error) {
	if o.index == nil {
		return nil, fmt.Errorf("no vector index configured")
	}

	summary, err := o.themeSummary(ctx, theme)
	if err != nil {
		return nil, err
	}

	vector, err := o.embed(ctx, summary)
	if err != nil {
		return nil, err
	}

	articles, err := o.index.QueryArticles(ctx, vector, o.queryTopK, cutoff.Unix())
	if err != nil {
		return nil, err
	}
	return models.DedupeArticles(articles), nil
}

func (o *Orchestrator) searchNews(ctx context.Context, query string, from, to time.Time, max int) ([]models.Article, error) {
	var lastErr error
	for _, source := range o.news {
		articles, _, err := source.Search(ctx, query, from, to, max)
		if err != nil {
			slog.Warn("[Orchestrator] News source failed, trying next",
				slog.String("source", source.Name()),
				slog.String("error", err.Error()))
			lastErr = err
			continue
		}
		return models.DedupeArticles(articles), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no news sources configured")
	}
	return nil, lastErr
}

// selectCandidates keeps the top candidateLimit resolved tickers by
// mention count. Ties keep the deterministic name order. Distinct
// extracted names resolving to the same ticker fold into one seed:
// their mentions sum and the extra names become keyword aliases so
// title matching still sees them.
func (o *Orchestrator) selectCandidates(mentions map[string]int, resolved map[string]*models.TickerRecord) []candidateSeed {
	seeds := make([]candidateSeed, 0, len(resolved))
	index := make(map[string]int, len(resolved))
	for _, name := range sortedByCount(mentions) {
		record, ok := resolved[name]
		if !ok {
			continue
		}
		if i, seen := index[record.Ticker]; seen {
			seeds[i].mentions += mentions[name]
			if name != seeds[i].record.CompanyName {
				seeds[i].record.Keywords = appendKeyword(seeds[i].record.Keywords, name)
			}
			continue
		}
		if len(seeds) == o.candidateLimit {
			continue
		}
		clone := *record
		index[clone.Ticker] = len(seeds)
		seeds = append(seeds, candidateSeed{record: &clone, mentions: mentions[name]})
	}
	return seeds
}

func appendKeyword(keywords []string, keyword string) []string {
	for _, existing := range keywords {
		if existing == keyword {
			return keywords
		}
	}
	return append(keywords, keyword)
}

type candidateSeed struct {
	record   *models.TickerRecord
	mentions int
}

// scoreCandidates scores seeds in chunks with a delay between chunks
// to stay inside the fundamentals provider's per-minute quota.
func (o *Orchestrator) scoreCandidates(ctx context.Context, seeds []candidateSeed, articles []models.Article, theme themes.Theme) ([]models.ScoredCandidate, error) {
	scored := make([]models.ScoredCandidate, 0, len(seeds))

	for start := 0; start < len(seeds); start += o.chunkSize {
		if start > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.chunkDelay):
			}
		}

		end := start + o.chunkSize
		if end > len(seeds) {
			end = len(seeds)
		}
		for _, seed := range seeds[start:end] {
			titles := relevantTitles(articles, seed.record, theme)
			sub, err := o.scorer.Score(ctx, seed.record.Ticker, titles)
			if err != nil {
				return nil, err
			}
			sub.NewsScore = newsScore(seed.mentions)
			scored = append(scored, models.ScoredCandidate{
				Ticker:      seed.record.Ticker,
				CompanyName: seed.record.CompanyName,
				SubScores:   sub,
			})
		}
	}
	return scored, nil
}

func (o *Orchestrator) persist(ctx context.Context, period string, results map[string]models.ThemeResult) error {
	blob, err := encodeRecommendations(models.RecommendationSet{
		Results:    results,
		AnalyzedAt: o.now().UTC(),
	})
	if err != nil {
		return err
	}
	return o.store.SetString(ctx, recommendationsKeyPrefix+period, blob, 0)
}

// persistRecords writes the freshly classified style, along with any
// merged alias keywords, back to the ticker records of admitted
// candidates. Best-effort: a failed write never fails the theme.
func (o *Orchestrator) persistRecords(ctx context.Context, result models.ThemeResult, records map[string]models.TickerRecord) {
	if o.records == nil {
		return
	}

	updated := make([]models.TickerRecord, 0, len(result.Leading)+len(result.Growth))
	collect := func(list []models.ScoredCandidate) {
		for _, c := range list {
			record, ok := records[c.Ticker]
			if !ok {
				record = models.TickerRecord{Ticker: c.Ticker, CompanyName: c.CompanyName}
			}
			record.Style = c.Style
			updated = append(updated, record)
		}
	}
	collect(result.Leading)
	collect(result.Growth)

	if len(updated) == 0 {
		return
	}
	if err := o.records.UpdateRecords(ctx, updated); err != nil {
		slog.Warn("[Orchestrator] Failed to update ticker records",
			slog.String("theme", result.ThemeName),
			slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) notify(ctx context.Context, ok bool, title, text string) {
	if o.notifier == nil {
		return
	}
	o.notifier.Notify(ctx, ok, title, text)
}

func (o *Orchestrator) themeSummary(ctx context.Context, theme themes.Theme) (string, error) {
	return cachedThemeSummary(ctx, o.store, o.generators, theme)
}

func (o *Orchestrator) embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for _, embedder := range o.embedders {
		vector, err := embedder.Embed(ctx, text)
		if err != nil {
			slog.Warn("[Orchestrator] Embedder failed, trying next",
				slog.String("embedder", embedder.Name()),
				slog.String("error", err.Error()))
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

// newsScore maps a raw mention count onto the 0-10 scale shared by the
// other sub-scores.
func newsScore(mentionCount int) float64 {
	if mentionCount > newsScoreCap {
		return newsScoreCap
	}
	return float64(mentionCount)
}

// sortedByCount orders names by descending mention count, breaking
// ties alphabetically so runs are deterministic.
func sortedByCount(mentions map[string]int) []string {
	names := make([]string, 0, len(mentions))
	for name := range mentions {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if mentions[names[i]] != mentions[names[j]] {
			return mentions[names[i]] > mentions[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// relevantTitles collects titles mentioning the company or one of its
// keywords.
func relevantTitles(articles []models.Article, record *models.TickerRecord, theme themes.Theme) []string {
	needles := matchNeedles(record, theme)
	var titles []string
	for _, a := range articles {
		if titleMatches(a.Title, needles) {
			titles = append(titles, a.Title)
		}
	}
	return titles
}

// attachRelevantArticles fills each admitted candidate's article list,
// capped at relevantArticleLimit. The resolved records carry the alias
// keywords that plain candidate identity would lose.
func attachRelevantArticles(result *models.ThemeResult, articles []models.Article, theme themes.Theme, records map[string]models.TickerRecord) {
	fill := func(list []models.ScoredCandidate) {
		for i := range list {
			record, ok := records[list[i].Ticker]
			if !ok {
				record = models.TickerRecord{
					Ticker:      list[i].Ticker,
					CompanyName: list[i].CompanyName,
				}
			}
			needles := matchNeedles(&record, theme)
			for _, a := range articles {
				if !titleMatches(a.Title, needles) {
					continue
				}
				list[i].RelevantArticles = append(list[i].RelevantArticles, a)
				if len(list[i].RelevantArticles) == relevantArticleLimit {
					break
				}
			}
		}
	}
	fill(result.Leading)
	fill(result.Growth)
}

func matchNeedles(record *models.TickerRecord, theme themes.Theme) []string {
	needles := make([]string, 0, 2+len(record.Keywords)+len(theme.Keywords))
	if record.CompanyName != "" {
		needles = append(needles, strings.ToLower(record.CompanyName))
	}
	needles = append(needles, strings.ToLower(record.Ticker))
	for _, kw := range record.Keywords {
		needles = append(needles, strings.ToLower(kw))
	}
	for _, kw := range theme.Keywords {
		needles = append(needles, strings.ToLower(kw))
	}
	return needles
}

func titleMatches(title string, needles []string) bool {
	lower := strings.ToLower(title)
	for _, needle := range needles {
		if needle != "" && strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}
