package server

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kts999jjang/themeradar/internal/analysis"
	"github.com/kts999jjang/themeradar/internal/extraction"
	"github.com/kts999jjang/themeradar/internal/indicators"
	"github.com/kts999jjang/themeradar/internal/models"
	"github.com/kts999jjang/themeradar/internal/themes"
)

const (
	defaultPeriod       = "14d"
	detailArticleTopK   = 100
	detailArticleLimit  = 5
	detailKeywordCount  = 5
	detailChartRange    = "1mo"
	detailChartInterval = "1d"
	smaShortPeriod      = 5
	smaLongPeriod       = 20
	rsiPeriod           = 14
	defaultIngestDays   = 7
	detailArticleWindow = 14 * 24 * time.Hour
	trendingWindow      = 7 * 24 * time.Hour
)

var allowedPeriods = map[string]bool{
	"7d": true, "14d": true, "30d": true, "90d": true, "180d": true, "365d": true,
}

// handleThemes serves the persisted recommendation set for a period.
func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = defaultPeriod
	}
	if !allowedPeriods[period] {
		writeError(w, http.StatusBadRequest, "unsupported analysis period", "INVALID_PERIOD")
		return
	}

	blob, found, err := s.store.GetString(r.Context(), analysis.RecommendationsKey(period))
	if err != nil {
		slog.Error("[Server] Failed to read recommendations",
			slog.String("period", period), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load recommendations", "STORE_ERROR")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no recommendations for this period yet", "NOT_ANALYZED")
		return
	}

	set, err := analysis.DecodeRecommendations(blob)
	if err != nil {
		slog.Error("[Server] Stored recommendations are unreadable",
			slog.String("period", period), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "stored recommendations are unreadable", "STORE_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// handleDetails serves the chart, indicators and recent news context
// for one ticker. The news side is best-effort: a broken vector index
// degrades to empty lists rather than failing the chart.
func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
		return
	}

	ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker query parameter is required", "MISSING_TICKER")
		return
	}
	themeName := r.URL.Query().Get("theme")

	chart, err := s.charts.Chart(r.Context(), ticker, detailChartRange, detailChartInterval)
	if err != nil || chart == nil {
		if err != nil {
			slog.Warn("[Server] Chart lookup failed",
				slog.String("ticker", ticker), slog.String("error", err.Error()))
		}
		writeError(w, http.StatusNotFound, "no chart data for ticker", "TICKER_NOT_FOUND")
		return
	}

	closes, timestamps := models.YahooAlignedSeries(chart)
	details := models.TickerDetails{
		Ticker:           ticker,
		CompanyName:      ticker,
		LatestPrice:      chart.Meta.RegularMarketPrice,
		Timestamps:       timestamps,
		ChartData:        chartPoints(closes),
		SMAShortData:     chartPoints(indicators.SMA(closes, smaShortPeriod)),
		SMALongData:      chartPoints(indicators.SMA(closes, smaLongPeriod)),
		RelevantArticles: []models.Article{},
		DailyNewsStats:   map[string]int{},
		TopKeywords:      []string{},
	}
	if rsi, ok := indicators.RSI(closes, rsiPeriod); ok {
		details.RSI = &rsi
	}
	if details.LatestPrice == 0 && len(closes) > 0 {
		details.LatestPrice = closes[len(closes)-1]
	}

	record := models.TickerRecord{Ticker: ticker, CompanyName: ticker}
	if s.records != nil {
		if cached, ok := s.records.Find(r.Context(), ticker); ok {
			record = cached
			details.CompanyName = cached.CompanyName
		}
	}
	if _, ok := themes.ByName(themeName); ok {
		details.TrendingTheme = themeName
	}

	s.attachNewsContext(r, &details, record, themeName)
	writeJSON(w, http.StatusOK, details)
}

// handleTrending ranks the curated themes by recent news volume.
func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
		return
	}
	if s.news == nil {
		writeError(w, http.StatusNotFound, "trending is not enabled", "TRENDING_DISABLED")
		return
	}

	trending, err := analysis.TrendingThemes(r.Context(), s.news, trendingWindow)
	if err != nil {
		slog.Error("[Server] Trending lookup failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to rank trending themes", "NEWS_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, trending)
}

func (s *Server) attachNewsContext(r *http.Request, details *models.TickerDetails, record models.TickerRecord, themeName string) {
	if s.index == nil || len(s.embedders) == 0 {
		return
	}

	vector, err := s.embed(r, record.CompanyName)
	if err != nil {
		slog.Warn("[Server] Embedding failed, serving details without news",
			slog.String("ticker", record.Ticker), slog.String("error", err.Error()))
		return
	}

	cutoff := time.Now().Add(-detailArticleWindow).Unix()
	articles, err := s.index.QueryArticles(r.Context(), vector, detailArticleTopK, cutoff)
	if err != nil {
		slog.Warn("[Server] Article query failed, serving details without news",
			slog.String("ticker", record.Ticker), slog.String("error", err.Error()))
		return
	}

	needles := []string{strings.ToLower(record.CompanyName), strings.ToLower(record.Ticker)}
	for _, kw := range record.Keywords {
		needles = append(needles, strings.ToLower(kw))
	}
	if theme, ok := themes.ByName(themeName); ok {
		for _, kw := range theme.Keywords {
			needles = append(needles, strings.ToLower(kw))
		}
	}

	titles := make([]string, 0, len(articles))
	for _, a := range articles {
		titles = append(titles, a.Title)
		day := time.Unix(a.PublishedAt, 0).UTC().Format("2006-01-02")
		details.DailyNewsStats[day]++

		if len(details.RelevantArticles) < detailArticleLimit && titleContainsAny(a.Title, needles) {
			details.RelevantArticles = append(details.RelevantArticles, a)
		}
	}
	details.TopKeywords = extraction.TopKeywords(titles, detailKeywordCount)
}

func (s *Server) embed(r *http.Request, text string) ([]float32, error) {
	var lastErr error
	for _, embedder := range s.embedders {
		vector, err := embedder.Embed(r.Context(), text)
		if err != nil {
			lastErr = err
			continue
		}
		return vector, nil
	}
	return nil, lastErr
}

// handleIngest triggers an index population run. Guarded by the shared
// cron secret; the run itself happens in the background so the cron
// caller is not held open.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
		return
	}
	if s.cronSecret == "" || s.ingest == nil {
		writeError(w, http.StatusNotFound, "ingest trigger is not enabled", "INGEST_DISABLED")
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.cronSecret)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid or missing bearer token", "UNAUTHORIZED")
		return
	}

	days := defaultIngestDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer", "INVALID_DAYS")
			return
		}
		days = parsed
	}

	go func() {
		written, err := s.ingest(context.Background(), days)
		if err != nil {
			slog.Error("[Server] Triggered ingest failed", slog.String("error", err.Error()))
			return
		}
		slog.Info("[Server] Triggered ingest finished", slog.Int("written", written))
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "started", "days": days})
}

// chartPoints converts a series to indexed points, skipping the NaN
// warmup sentinels the indicator functions emit.
func chartPoints(series []float64) []models.ChartPoint {
	points := make([]models.ChartPoint, 0, len(series))
	for i, v := range series {
		if math.IsNaN(v) {
			continue
		}
		points = append(points, models.ChartPoint{X: i, Y: v})
	}
	return points
}

func titleContainsAny(title string, needles []string) bool {
	lower := strings.ToLower(title)
	for _, needle := range needles {
		if needle != "" && strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}
