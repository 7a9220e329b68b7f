package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kts999jjang/themeradar/internal/models"
)

const (
	defaultPort  = "10000"
	readTimeout  = 15 * time.Second
	writeTimeout = 30 * time.Second
	idleTimeout  = 60 * time.Second
)

// Store is the read-side key-value surface.
type Store interface {
	GetString(ctx context.Context, key string) (string, bool, error)
}

// ChartSource supplies historical price series.
type ChartSource interface {
	Chart(ctx context.Context, ticker, chartRange, interval string) (*models.YahooChartResult, error)
}

// Embedder turns text into a query vector.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex serves article similarity queries.
type VectorIndex interface {
	QueryArticles(ctx context.Context, vector []float32, topK int, publishedAfter int64) ([]models.Article, error)
}

// RecordSource resolves a ticker symbol to its known record.
type RecordSource interface {
	Find(ctx context.Context, ticker string) (models.TickerRecord, bool)
}

// NewsSource counts theme article volume for the trending endpoint.
type NewsSource interface {
	Name() string
	Search(ctx context.Context, query string, from, to time.Time, max int) ([]models.Article, int, error)
}

// IngestRunner triggers an index population run.
type IngestRunner func(ctx context.Context, days int) (int, error)

// Server is the read-side HTTP API plus the secret-guarded ingest
// trigger.
type Server struct {
	store      Store
	charts     ChartSource
	embedders  []Embedder
	index      VectorIndex
	records    RecordSource
	news       NewsSource
	ingest     IngestRunner
	cronSecret string

	httpServer *http.Server
}

type Config struct {
	Port       string
	Store      Store
	Charts     ChartSource
	Embedders  []Embedder
	Index      VectorIndex
	Records    RecordSource
	News       NewsSource
	Ingest     IngestRunner
	CronSecret string
}

func New(cfg Config) *Server {
	s := &Server{
		store:      cfg.Store,
		charts:     cfg.Charts,
		embedders:  cfg.Embedders,
		index:      cfg.Index,
		records:    cfg.Records,
		news:       cfg.News,
		ingest:     cfg.Ingest,
		cronSecret: cfg.CronSecret,
	}

	port := cfg.Port
	if port == "" {
		port = defaultPort
	}
	s.httpServer = &http.Server{
		Addr:         ":" + port,
		Handler:      withCORS(s.routes()),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/themes", s.handleThemes)
	mux.HandleFunc("/api/details", s.handleDetails)
	mux.HandleFunc("/api/trending", s.handleTrending)
	mux.HandleFunc("/api/ingest", s.handleIngest)
	return mux
}

func (s *Server) Start() error {
	slog.Info("[Server] Listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// withCORS applies the allow-all CORS policy the browser client
// expects and short-circuits preflight requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("[Server] Failed to write response", slog.String("error", err.Error()))
	}
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, apiError{Error: message, Code: code})
}
