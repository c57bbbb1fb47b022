package paycode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/redis/go-redis/v9"
)

// HTTPFetcher retrieves the catalogue as a JSON array from a URL.
type HTTPFetcher struct {
	URL    string
	Client *http.Client
}

// NewHTTPFetcher creates a fetcher with the given request timeout
func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]domain.PayCode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("paycode: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paycode: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("paycode: fetch: unexpected status %d", resp.StatusCode)
	}

	var codes []domain.PayCode
	if err := json.NewDecoder(resp.Body).Decode(&codes); err != nil {
		return nil, fmt.Errorf("paycode: decode: %w", err)
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("paycode: fetch: empty catalogue")
	}
	return codes, nil
}

// RedisCache keeps the last fetched catalogue under a single key.
type RedisCache struct {
	Client *redis.Client
	Key    string
	TTL    time.Duration
}

// DefaultCacheKey is the Redis key used when none is configured
const DefaultCacheKey = "payroll:paycodes"

// NewRedisCache creates a Redis-backed catalogue cache
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: client, Key: DefaultCacheKey, TTL: ttl}
}

func (c *RedisCache) Get(ctx context.Context) ([]domain.PayCode, bool, error) {
	data, err := c.Client.Get(ctx, c.Key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("paycode: cache get: %w", err)
	}
	var codes []domain.PayCode
	if err := json.Unmarshal(data, &codes); err != nil {
		return nil, false, fmt.Errorf("paycode: cache decode: %w", err)
	}
	return codes, true, nil
}

func (c *RedisCache) Set(ctx context.Context, codes []domain.PayCode) error {
	data, err := json.Marshal(codes)
	if err != nil {
		return fmt.Errorf("paycode: cache encode: %w", err)
	}
	if err := c.Client.Set(ctx, c.Key, data, c.TTL).Err(); err != nil {
		return fmt.Errorf("paycode: cache set: %w", err)
	}
	return nil
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("paycode: redis ping: %w", err)
	}
	return client, nil
}
