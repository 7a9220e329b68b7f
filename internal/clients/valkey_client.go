package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

var (
	valkeyInstance *ValkeyClient
	valkeyOnce     sync.Once
)

// ValkeyClient wraps the shared Valkey connection. It serves both as
// the memoization cache (company-name resolutions, daily theme
// summaries) and as the publishing mechanism for final theme results.
type ValkeyClient struct {
	Client valkey.Client
	mu     sync.Mutex
}

const (
	// VALKEY_TICKER_HASH holds resolved TickerRecord blobs keyed by symbol.
	VALKEY_TICKER_HASH = "tickers:records"
)

func InitValkey() *ValkeyClient {
	valkeyOnce.Do(func() {
		client, err := newValkeyConn()
		if err != nil {
			panic(fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err))
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()

		c := client.Do(ctx, client.B().Ping().Build())
		if c.Error() != nil {
			panic(fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", c.Error()))
		}

		slog.Info("[ValkeyClient] Successfully connected to valkey")

		valkeyInstance = &ValkeyClient{Client: client}
	})
	return valkeyInstance
}

func newValkeyConn() (valkey.Client, error) {
	valkeyAddr := os.Getenv("VALKEY_INIT_ADDRESS")
	valkeyPassword := os.Getenv("VALKEY_PASSWORD")
	useTLS := os.Getenv("VALKEY_TLS") == "true"

	opts := valkey.ClientOption{
		InitAddress: []string{
			valkeyAddr,
		},
		Password:         valkeyPassword,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}

	if useTLS {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	return valkey.NewClient(opts)
}

func (vc *ValkeyClient) recreateClient() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[ValkeyClient] Recreate failed and was recovered from panic",
				slog.Any("panic", r))
		}
	}()

	vc.mu.Lock()
	defer vc.mu.Unlock()
	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	vc.Client.Close()

	client, err := newValkeyConn()
	if err != nil {
		panic(fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()

	c := client.Do(ctx, client.B().Ping().Build())
	if c.Error() != nil {
		panic(fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", c.Error()))
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey")
	vc.Client = client
}

func CloseValkey() {
	if valkeyInstance != nil {
		valkeyInstance.Client.Close()
	}
}

func GetValkeyClient() *ValkeyClient {
	if valkeyInstance == nil {
		panic("[ValkeyClient] Error: Valkey client is not initilialized")
	}
	return valkeyInstance
}

// GetString fetches a plain string value. found is false on a nil reply.
func (vc *ValkeyClient) GetString(ctx context.Context, key string) (string, bool, error) {
	res := vc.DoWithRetry(ctx, vc.Client.B().Get().Key(key).Build(), MAX_RETRIES)
	if err := res.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	val, err := res.ToString()
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetString stores a string value with a TTL. A zero ttl stores the key
// without expiry.
func (vc *ValkeyClient) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	var cmd valkey.Completed
	if ttl > 0 {
		cmd = vc.Client.B().Set().Key(key).Value(value).Ex(ttl).Build()
	} else {
		cmd = vc.Client.B().Set().Key(key).Value(value).Build()
	}
	res := vc.DoWithRetry(ctx, cmd, MAX_RETRIES)
	return res.Error()
}

// HGet reads one field from a hash key.
func (vc *ValkeyClient) HGet(ctx context.Context, key, field string) (string, bool, error) {
	res := vc.DoWithRetry(ctx, vc.Client.B().Hget().Key(key).Field(field).Build(), MAX_RETRIES)
	if err := res.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	val, err := res.ToString()
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// HSet writes one field of a hash key. Last writer wins; each field's
// value is derived independently of other writers.
func (vc *ValkeyClient) HSet(ctx context.Context, key, field, value string) error {
	res := vc.DoWithRetry(ctx,
		vc.Client.B().Hset().Key(key).FieldValue().FieldValue(field, value).Build(),
		MAX_RETRIES)
	return res.Error()
}

// HSetMulti writes several fields of a hash key in one pipelined round
// trip.
func (vc *ValkeyClient) HSetMulti(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	cmds := make([]valkey.Completed, 0, len(fields))
	for field, value := range fields {
		cmds = append(cmds, vc.Client.B().Hset().Key(key).FieldValue().FieldValue(field, value).Build())
	}
	for _, res := range vc.DoMultiWithRetry(ctx, cmds, MAX_RETRIES) {
		if err := res.Error(); err != nil {
			return err
		}
	}
	return nil
}

// HGetAll reads a whole hash key into a map.
func (vc *ValkeyClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	res := vc.DoWithRetry(ctx, vc.Client.B().Hgetall().Key(key).Build(), MAX_RETRIES)
	if err := res.Error(); err != nil {
		return nil, err
	}
	return res.AsStrMap()
}

func (vc *ValkeyClient) DoMultiWithRetry(ctx context.Context, completed []valkey.Completed, retries int) []valkey.ValkeyResult {
	var results []valkey.ValkeyResult

	for i := 0; i < retries; i++ {
		results = vc.Client.DoMulti(ctx, completed...)
		hasErr := false
		for _, r := range results {
			if r.Error() != nil && !valkey.IsValkeyNil(r.Error()) {
				hasErr = true
				slog.Warn("[ValkeyClient] Do Multi failed",
					slog.Int("attempt", i+1),
					slog.String("error", r.Error().Error()))
				if isConnectionError(r.Error()) {
					vc.recreateClient()
				}
				break
			}
		}
		if !hasErr {
			break
		}
		time.Sleep(time.Millisecond * 250)
	}

	return results
}

func (vc *ValkeyClient) DoWithRetry(ctx context.Context, completed valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.Client.Do(ctx, completed)
		if result.Error() == nil || valkey.IsValkeyNil(result.Error()) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		if isConnectionError(result.Error()) {
			vc.recreateClient()
		}

		time.Sleep(250 * time.Millisecond)
	}

	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
