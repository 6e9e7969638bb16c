// Package datasource fetches market quotes, the constituent universe, and
// financial news, and aggregates them into one MarketSnapshot per run.
package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/marketbrief/marketbrief/pkg/models"
)

// browserUA avoids bot blocking on public endpoints.
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Quotes is the interface for daily price history sources.
type Quotes interface {
	// History returns daily bars for symbol within [start, end).
	History(ctx context.Context, symbol string, start, end time.Time) (models.PriceSeries, error)
	// RecentHistory returns daily bars for the trailing number of days.
	RecentHistory(ctx context.Context, symbol string, days int) (models.PriceSeries, error)
}

// Universe is the interface for constituent-list sources.
type Universe interface {
	Symbols(ctx context.Context) ([]string, error)
}

// News is the interface for article sources.
type News interface {
	Articles(ctx context.Context, start, end time.Time) ([]models.NewsArticle, []FetchError)
}

// FetchError records one failed fetch so callers can inspect exactly which
// targets a snapshot is missing. Failures never abort a run.
type FetchError struct {
	Target string // symbol, feed URL, or source name
	Stage  string // "indices", "sectors", "news", ...
	Err    error
}

func (e FetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Target, e.Err)
}

func (e FetchError) Unwrap() error { return e.Err }

// ErrHTTPStatus indicates a non-200 response.
type ErrHTTPStatus struct {
	URL        string
	StatusCode int
}

func (e *ErrHTTPStatus) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// doGet performs a GET request with browser-like headers and returns the
// response body. Callers own timeout via ctx or the client.
func doGet(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ErrHTTPStatus{URL: url, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// Cache is a simple TTL cache for fetched payloads.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	value   interface{}
	expires time.Time
}

// NewCache creates a cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get returns a cached value if present and not expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return e.value, true
}

// Set stores a value with the cache's TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expires: time.Now().Add(c.ttl)}
}

// RateLimiter is a token-bucket limiter for outbound requests.
type RateLimiter struct {
	tokens chan struct{}
	ticker *time.Ticker
	done   chan struct{}
}

// NewRateLimiter allows burst immediate requests, refilling at interval.
func NewRateLimiter(burst int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		tokens: make(chan struct{}, burst),
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	for i := 0; i < burst; i++ {
		rl.tokens <- struct{}{}
	}
	go rl.refill()
	return rl
}

func (rl *RateLimiter) refill() {
	for {
		select {
		case <-rl.ticker.C:
			select {
			case rl.tokens <- struct{}{}:
			default:
			}
		case <-rl.done:
			return
		}
	}
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	select {
	case <-rl.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts down the refill goroutine.
func (rl *RateLimiter) Stop() {
	rl.ticker.Stop()
	close(rl.done)
}
