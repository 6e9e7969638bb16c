package datasource

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const sp500ListURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// SP500Universe scrapes the S&P 500 constituents table from Wikipedia.
// The list changes rarely, so results are cached for a day.
type SP500Universe struct {
	url        string
	httpClient *http.Client
	cache      *Cache
	logger     *zap.Logger
}

// UniverseOption configures the universe source.
type UniverseOption func(*SP500Universe)

// WithUniverseURL sets a custom constituents page URL.
func WithUniverseURL(u string) UniverseOption {
	return func(s *SP500Universe) { s.url = u }
}

// WithUniverseHTTPClient sets a custom HTTP client.
func WithUniverseHTTPClient(c *http.Client) UniverseOption {
	return func(s *SP500Universe) { s.httpClient = c }
}

// NewSP500Universe creates the constituent-list source.
func NewSP500Universe(timeout time.Duration, logger *zap.Logger, opts ...UniverseOption) *SP500Universe {
	s := &SP500Universe{
		url:        sp500ListURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      NewCache(24 * time.Hour),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Symbols implements Universe. Tickers with dots are normalized to the
// dash form Yahoo uses (BRK.B becomes BRK-B).
func (s *SP500Universe) Symbols(ctx context.Context) ([]string, error) {
	if cached, ok := s.cache.Get("sp500"); ok {
		return cached.([]string), nil
	}

	body, err := doGet(ctx, s.httpClient, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching constituents page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing constituents page: %w", err)
	}

	var symbols []string
	doc.Find("table#constituents tbody tr").Each(func(_ int, row *goquery.Selection) {
		cell := row.Find("td").First()
		ticker := strings.TrimSpace(cell.Text())
		if ticker == "" {
			return
		}
		symbols = append(symbols, strings.ReplaceAll(ticker, ".", "-"))
	})
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no constituents found at %s", s.url)
	}

	s.cache.Set("sp500", symbols)
	s.logger.Debug("loaded constituent universe", zap.Int("count", len(symbols)))
	return symbols, nil
}
