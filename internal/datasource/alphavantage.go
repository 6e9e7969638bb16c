package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/marketbrief/marketbrief/pkg/models"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantage is the fallback quote source, used when the primary source
// fails and an API key is configured. It serves the daily time series
// (TIME_SERIES_DAILY), trimmed to the requested range.
type AlphaVantage struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *Cache
	logger     *zap.Logger
}

// AlphaVantageOption configures the Alpha Vantage source.
type AlphaVantageOption func(*AlphaVantage)

// WithAlphaVantageBaseURL sets a custom API base URL.
func WithAlphaVantageBaseURL(u string) AlphaVantageOption {
	return func(a *AlphaVantage) { a.baseURL = u }
}

// WithAlphaVantageHTTPClient sets a custom HTTP client.
func WithAlphaVantageHTTPClient(c *http.Client) AlphaVantageOption {
	return func(a *AlphaVantage) { a.httpClient = c }
}

// NewAlphaVantage creates the fallback quote source.
func NewAlphaVantage(apiKey string, timeout time.Duration, logger *zap.Logger, opts ...AlphaVantageOption) *AlphaVantage {
	a := &AlphaVantage{
		apiKey:     apiKey,
		baseURL:    alphaVantageBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      NewCache(5 * time.Minute),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type avDailyResponse struct {
	Series map[string]avDailyBar `json:"Time Series (Daily)"`
	Note   string                `json:"Note,omitempty"`
	Error  string                `json:"Error Message,omitempty"`
}

type avDailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// History implements Quotes.
func (a *AlphaVantage) History(ctx context.Context, symbol string, start, end time.Time) (models.PriceSeries, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("alpha vantage: no API key configured")
	}

	full, err := a.daily(ctx, symbol)
	if err != nil {
		return nil, err
	}

	series := make(models.PriceSeries, 0, len(full))
	for _, bar := range full {
		if bar.Date.Before(start) || !bar.Date.Before(end) {
			continue
		}
		series = append(series, bar)
	}
	return series, nil
}

// RecentHistory implements Quotes.
func (a *AlphaVantage) RecentHistory(ctx context.Context, symbol string, days int) (models.PriceSeries, error) {
	end := time.Now()
	return a.History(ctx, symbol, end.AddDate(0, 0, -days), end)
}

// daily fetches and caches the full daily series for a symbol, sorted by
// date ascending.
func (a *AlphaVantage) daily(ctx context.Context, symbol string) (models.PriceSeries, error) {
	if cached, ok := a.cache.Get(symbol); ok {
		return cached.(models.PriceSeries), nil
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", "compact")
	params.Set("apikey", a.apiKey)

	body, err := doGet(ctx, a.httpClient, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching daily series for %s: %w", symbol, err)
	}

	var resp avDailyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing daily series for %s: %w", symbol, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("alpha vantage error for %s: %s", symbol, resp.Error)
	}
	if resp.Note != "" {
		a.logger.Warn("alpha vantage throttled",
			zap.String("symbol", symbol),
			zap.String("note", resp.Note))
		return nil, fmt.Errorf("alpha vantage throttled for %s: %s", symbol, resp.Note)
	}
	if len(resp.Series) == 0 {
		return nil, fmt.Errorf("no daily series for %s", symbol)
	}

	series := make(models.PriceSeries, 0, len(resp.Series))
	for date, raw := range resp.Series {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		bar := models.Bar{Date: day}
		if _, err := fmt.Sscanf(raw.Open, "%f", &bar.Open); err != nil {
			continue
		}
		fmt.Sscanf(raw.High, "%f", &bar.High)
		fmt.Sscanf(raw.Low, "%f", &bar.Low)
		if _, err := fmt.Sscanf(raw.Close, "%f", &bar.Close); err != nil {
			continue
		}
		fmt.Sscanf(raw.Volume, "%d", &bar.Volume)
		series = append(series, bar)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	a.cache.Set(symbol, series)
	return series, nil
}
