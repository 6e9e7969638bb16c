package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/marketbrief/marketbrief/pkg/models"
)

const yahooChartBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooFinance fetches daily OHLCV history from the Yahoo chart API.
// Identical in-flight requests are deduplicated and responses are cached
// for a short TTL so the same symbol fetched by multiple report sections
// costs one HTTP call.
type YahooFinance struct {
	baseURL    string
	httpClient *http.Client
	cache      *Cache
	limiter    *RateLimiter
	group      singleflight.Group
	logger     *zap.Logger
}

// YahooOption configures the Yahoo source.
type YahooOption func(*YahooFinance)

// WithYahooBaseURL sets a custom chart API base URL.
func WithYahooBaseURL(u string) YahooOption {
	return func(y *YahooFinance) { y.baseURL = u }
}

// WithYahooHTTPClient sets a custom HTTP client.
func WithYahooHTTPClient(c *http.Client) YahooOption {
	return func(y *YahooFinance) { y.httpClient = c }
}

// NewYahooFinance creates the primary quote source.
func NewYahooFinance(timeout time.Duration, logger *zap.Logger, opts ...YahooOption) *YahooFinance {
	y := &YahooFinance{
		baseURL:    yahooChartBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      NewCache(5 * time.Minute),
		limiter:    NewRateLimiter(10, 200*time.Millisecond),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// History implements Quotes.
func (y *YahooFinance) History(ctx context.Context, symbol string, start, end time.Time) (models.PriceSeries, error) {
	key := fmt.Sprintf("%s:%d:%d", symbol, start.Unix(), end.Unix())
	if cached, ok := y.cache.Get(key); ok {
		return cached.(models.PriceSeries), nil
	}

	// Overlapping callers for the same key share one fetch. The report
	// pipeline runs sequentially, so dedupe only comes into play when the
	// source is shared across concurrent callers.
	v, err, _ := y.group.Do(key, func() (interface{}, error) {
		if err := y.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		series, err := y.fetchChart(ctx, symbol, start, end)
		if err != nil {
			return nil, err
		}
		y.cache.Set(key, series)
		return series, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(models.PriceSeries), nil
}

// RecentHistory implements Quotes. The trailing window is anchored at now.
func (y *YahooFinance) RecentHistory(ctx context.Context, symbol string, days int) (models.PriceSeries, error) {
	end := time.Now()
	return y.History(ctx, symbol, end.AddDate(0, 0, -days), end)
}

// Close stops the rate limiter's refill goroutine.
func (y *YahooFinance) Close() {
	y.limiter.Stop()
}

func (y *YahooFinance) fetchChart(ctx context.Context, symbol string, start, end time.Time) (models.PriceSeries, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", start.Unix()))
	params.Set("period2", fmt.Sprintf("%d", end.Unix()))
	params.Set("interval", "1d")
	params.Set("events", "history")

	reqURL := fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(symbol), params.Encode())
	body, err := doGet(ctx, y.httpClient, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching chart for %s: %w", symbol, err)
	}

	var chart yahooChartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("parsing chart for %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}
	return parseChartResult(chart.Chart.Result[0]), nil
}

type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// parseChartResult converts one chart result into bars. Yahoo pads
// non-trading slots with nulls; those rows are dropped.
func parseChartResult(res yahooChartResult) models.PriceSeries {
	if len(res.Indicators.Quote) == 0 {
		return nil
	}
	q := res.Indicators.Quote[0]
	series := make(models.PriceSeries, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		bar := models.Bar{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *q.Close[i],
		}
		if i < len(q.Open) && q.Open[i] != nil {
			bar.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			bar.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			bar.Low = *q.Low[i]
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		series = append(series, bar)
	}
	return series
}
