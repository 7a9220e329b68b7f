package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kts999jjang/themeradar/internal/clients"
	"github.com/kts999jjang/themeradar/internal/models"
)

const (
	resolutionKeyPrefix = "ticker:"
	resolutionTTL       = 7 * 24 * time.Hour
	cacheEntryVersion   = 1
)

// Store is the key-value surface the cache needs from Valkey.
type Store interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HSet(ctx context.Context, key, field, value string) error
	HSetMulti(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// cacheEntry is the versioned envelope stored per normalized company
// name. Found=false records a confirmed no-match so the provider is
// not asked again within the TTL.
type cacheEntry struct {
	V      int                  `json:"v"`
	Found  bool                 `json:"found"`
	Record *models.TickerRecord `json:"record,omitempty"`
}

// TickerCache caches name-to-ticker resolutions in Valkey and keeps an
// in-memory view of all resolved records for fast lookups by symbol.
type TickerCache struct {
	store Store

	mu      sync.RWMutex
	records map[string]models.TickerRecord // keyed by ticker symbol
}

func NewTickerCache(store Store) *TickerCache {
	return &TickerCache{
		store:   store,
		records: make(map[string]models.TickerRecord),
	}
}

// Lookup returns (record, cached). cached=true with a nil record means
// a stored negative result. Entries that fail to parse are treated as
// misses so a stale or legacy value never poisons a resolution.
func (c *TickerCache) Lookup(ctx context.Context, normalizedName string) (*models.TickerRecord, bool) {
	raw, found, err := c.store.GetString(ctx, resolutionKeyPrefix+normalizedName)
	if err != nil {
		slog.Warn("[TickerCache] Lookup failed, treating as miss",
			slog.String("name", normalizedName), slog.String("error", err.Error()))
		return nil, false
	}
	if !found {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.V != cacheEntryVersion {
		slog.Warn("[TickerCache] Unreadable cache entry, treating as miss",
			slog.String("name", normalizedName))
		return nil, false
	}
	if !entry.Found || entry.Record == nil {
		return nil, true
	}
	return entry.Record, true
}

// StoreResult persists a resolution outcome. A nil record writes the
// negative sentinel. Positive results are also written to the ticker
// hash and reflected in the in-memory view.
func (c *TickerCache) StoreResult(ctx context.Context, normalizedName string, record *models.TickerRecord) error {
	entry := cacheEntry{V: cacheEntryVersion, Found: record != nil, Record: record}
	blob, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := c.store.SetString(ctx, resolutionKeyPrefix+normalizedName, string(blob), resolutionTTL); err != nil {
		return fmt.Errorf("[TickerCache] failed to store resolution for %q: %w", normalizedName, err)
	}
	if record == nil {
		return nil
	}

	recordBlob, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := c.store.HSet(ctx, clients.VALKEY_TICKER_HASH, record.Ticker, string(recordBlob)); err != nil {
		return fmt.Errorf("[TickerCache] failed to store ticker record %q: %w", record.Ticker, err)
	}

	c.mu.Lock()
	c.records[record.Ticker] = *record
	c.mu.Unlock()
	return nil
}

// UpdateRecord rewrites an existing ticker record, used when the style
// is recomputed from fresh market cap data.
func (c *TickerCache) UpdateRecord(ctx context.Context, record models.TickerRecord) error {
	return c.UpdateRecords(ctx, []models.TickerRecord{record})
}

// UpdateRecords rewrites a batch of ticker records in one store round
// trip, the shape each ranked theme hands back.
func (c *TickerCache) UpdateRecords(ctx context.Context, records []models.TickerRecord) error {
	if len(records) == 0 {
		return nil
	}
	fields := make(map[string]string, len(records))
	for _, record := range records {
		blob, err := json.Marshal(record)
		if err != nil {
			return err
		}
		fields[record.Ticker] = string(blob)
	}
	if err := c.store.HSetMulti(ctx, clients.VALKEY_TICKER_HASH, fields); err != nil {
		return fmt.Errorf("[TickerCache] failed to update ticker records: %w", err)
	}
	c.mu.Lock()
	for _, record := range records {
		c.records[record.Ticker] = record
	}
	c.mu.Unlock()
	return nil
}

// Refresh hydrates the in-memory view from the ticker hash. Called at
// startup and after bulk writes.
func (c *TickerCache) Refresh(ctx context.Context) error {
	all, err := c.store.HGetAll(ctx, clients.VALKEY_TICKER_HASH)
	if err != nil {
		return fmt.Errorf("[TickerCache] refresh failed: %w", err)
	}

	records := make(map[string]models.TickerRecord, len(all))
	for symbol, blob := range all {
		var record models.TickerRecord
		if err := json.Unmarshal([]byte(blob), &record); err != nil {
			slog.Warn("[TickerCache] Skipping unreadable ticker record",
				slog.String("ticker", symbol))
			continue
		}
		records[symbol] = record
	}

	c.mu.Lock()
	c.records = records
	c.mu.Unlock()
	slog.Info("[TickerCache] Refreshed in-memory view", slog.Int("records", len(records)))
	return nil
}

// Record returns the in-memory record for a symbol, if known.
func (c *TickerCache) Record(ticker string) (models.TickerRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record, ok := c.records[ticker]
	return record, ok
}

// Find returns the record for a symbol, falling back to the ticker
// hash when the in-memory view has not seen it yet. A hash hit is
// folded into the view so the next lookup stays in memory.
func (c *TickerCache) Find(ctx context.Context, ticker string) (models.TickerRecord, bool) {
	if record, ok := c.Record(ticker); ok {
		return record, true
	}

	blob, found, err := c.store.HGet(ctx, clients.VALKEY_TICKER_HASH, ticker)
	if err != nil {
		slog.Warn("[TickerCache] Record lookup failed",
			slog.String("ticker", ticker), slog.String("error", err.Error()))
		return models.TickerRecord{}, false
	}
	if !found {
		return models.TickerRecord{}, false
	}

	var record models.TickerRecord
	if err := json.Unmarshal([]byte(blob), &record); err != nil {
		slog.Warn("[TickerCache] Unreadable ticker record", slog.String("ticker", ticker))
		return models.TickerRecord{}, false
	}

	c.mu.Lock()
	c.records[record.Ticker] = record
	c.mu.Unlock()
	return record, true
}
