package datasource

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/marketbrief/marketbrief/pkg/models"
)

// stubQuotes serves canned series by symbol and fails for anything absent.
type stubQuotes struct {
	series map[string]models.PriceSeries
}

func (s *stubQuotes) History(ctx context.Context, symbol string, start, end time.Time) (models.PriceSeries, error) {
	if ps, ok := s.series[symbol]; ok {
		return ps, nil
	}
	return nil, errors.New("symbol not found")
}

func (s *stubQuotes) RecentHistory(ctx context.Context, symbol string, days int) (models.PriceSeries, error) {
	return s.History(ctx, symbol, time.Time{}, time.Time{})
}

type stubUniverse struct {
	symbols []string
	err     error
}

func (s *stubUniverse) Symbols(ctx context.Context) ([]string, error) {
	return s.symbols, s.err
}

type stubNews struct {
	articles []models.NewsArticle
	diags    []FetchError
}

func (s *stubNews) Articles(ctx context.Context, start, end time.Time) ([]models.NewsArticle, []FetchError) {
	return s.articles, s.diags
}

func singleBar(open, close float64, volume int64) models.PriceSeries {
	return models.PriceSeries{{
		Date:   time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Open:   open,
		High:   close + 1,
		Low:    open - 1,
		Close:  close,
		Volume: volume,
	}}
}

func closesSeries(closes ...float64) models.PriceSeries {
	s := make(models.PriceSeries, len(closes))
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		s[i] = models.Bar{Date: day.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return s
}

func testAggregator(quotes Quotes, universe Universe, news News) *Aggregator {
	return NewAggregatorWithSources(quotes, universe, news, zap.NewNop(),
		WithRand(rand.New(rand.NewSource(1))))
}

func TestTopStocksByVolumeOrdering(t *testing.T) {
	quotes := &stubQuotes{series: map[string]models.PriceSeries{
		"AAA": singleBar(100, 110, 300),
		"BBB": singleBar(50, 45, 500),
		"CCC": singleBar(10, 10, 100),
	}}
	agg := testAggregator(quotes, &stubUniverse{symbols: []string{"AAA", "BBB", "CCC"}}, &stubNews{})

	stocks := agg.TopStocksByVolume(context.Background())
	if len(stocks) != 3 {
		t.Fatalf("stocks: got %d, want 3", len(stocks))
	}
	wantOrder := []string{"BBB", "AAA", "CCC"}
	for i, want := range wantOrder {
		if stocks[i].Symbol != want {
			t.Fatalf("position %d: got %s, want %s", i, stocks[i].Symbol, want)
		}
	}
	// (110 - 100) / 100 × 100 = 10
	if stocks[1].ChangePct != 10 {
		t.Fatalf("AAA change: got %v, want 10", stocks[1].ChangePct)
	}
	if stocks[0].Price != 45 {
		t.Fatalf("BBB price: got %v, want 45", stocks[0].Price)
	}
}

func TestTopStocksByVolumeSkipsFailures(t *testing.T) {
	quotes := &stubQuotes{series: map[string]models.PriceSeries{
		"AAA": singleBar(100, 101, 300),
	}}
	agg := testAggregator(quotes, &stubUniverse{symbols: []string{"AAA", "GONE"}}, &stubNews{})

	stocks := agg.TopStocksByVolume(context.Background())
	if len(stocks) != 1 || stocks[0].Symbol != "AAA" {
		t.Fatalf("stocks: got %+v", stocks)
	}
}

func TestTopStocksByVolumeLimit(t *testing.T) {
	series := map[string]models.PriceSeries{}
	symbols := make([]string, 15)
	for i := range symbols {
		sym := string(rune('A'+i)) + "X"
		symbols[i] = sym
		series[sym] = singleBar(10, 11, int64(100+i))
	}
	agg := testAggregator(&stubQuotes{series: series}, &stubUniverse{symbols: symbols}, &stubNews{})

	stocks := agg.TopStocksByVolume(context.Background())
	if len(stocks) != 10 {
		t.Fatalf("stocks: got %d, want 10", len(stocks))
	}
	for i := 1; i < len(stocks); i++ {
		if stocks[i].Volume > stocks[i-1].Volume {
			t.Fatalf("not sorted by volume descending at %d", i)
		}
	}
}

func TestTopStocksUniverseFailureIsDiagnosed(t *testing.T) {
	agg := testAggregator(&stubQuotes{}, &stubUniverse{err: errors.New("scrape failed")}, &stubNews{})

	if stocks := agg.TopStocksByVolume(context.Background()); stocks != nil {
		t.Fatalf("stocks: got %+v, want nil", stocks)
	}
	diags := agg.Diagnostics()
	if len(diags) != 1 || diags[0].Stage != "top_stocks" {
		t.Fatalf("diagnostics: got %+v", diags)
	}
}

func TestSentimentIndicatorLabels(t *testing.T) {
	tests := []struct {
		vix  float64
		want string
	}{
		{15, models.VIXLabelLow},
		{25, models.VIXLabelModerate},
		{35, models.VIXLabelHigh},
	}
	for _, tt := range tests {
		quotes := &stubQuotes{series: map[string]models.PriceSeries{
			"^VIX": closesSeries(tt.vix),
		}}
		agg := testAggregator(quotes, &stubUniverse{}, &stubNews{})
		s := agg.SentimentIndicators(context.Background())
		if !s.HasVIX || s.VIX != tt.vix {
			t.Fatalf("VIX %v: got %+v", tt.vix, s)
		}
		if s.VIXLabel != tt.want {
			t.Fatalf("VIX %v: label %q, want %q", tt.vix, s.VIXLabel, tt.want)
		}
	}
}

func TestSentimentSPYTrend(t *testing.T) {
	rising := closesSeries(100, 101, 102, 103, 104, 105, 110, 111, 112, 113, 114)
	quotes := &stubQuotes{series: map[string]models.PriceSeries{"SPY": rising}}
	agg := testAggregator(quotes, &stubUniverse{}, &stubNews{})
	if s := agg.SentimentIndicators(context.Background()); s.SPYTrend != "Bullish" {
		t.Fatalf("rising SPY: got %q, want Bullish", s.SPYTrend)
	}

	falling := closesSeries(114, 113, 112, 111, 110, 105, 104, 103, 102, 101, 100)
	quotes = &stubQuotes{series: map[string]models.PriceSeries{"SPY": falling}}
	agg = testAggregator(quotes, &stubUniverse{}, &stubNews{})
	if s := agg.SentimentIndicators(context.Background()); s.SPYTrend != "Bearish" {
		t.Fatalf("falling SPY: got %q, want Bearish", s.SPYTrend)
	}
}

func TestMarketIndicesOmitsFailures(t *testing.T) {
	quotes := &stubQuotes{series: map[string]models.PriceSeries{
		"^GSPC": closesSeries(5000, 5050),
		"^IXIC": {}, // empty series must be skipped, not reported
	}}
	agg := testAggregator(quotes, &stubUniverse{}, &stubNews{})

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	indices := agg.MarketIndices(context.Background(), start, start.AddDate(0, 0, 7))

	if len(indices) != 1 {
		t.Fatalf("indices: got %d entries (%v)", len(indices), indices)
	}
	if _, ok := indices["S&P 500"]; !ok {
		t.Fatal("S&P 500 missing")
	}
	// Six roster symbols failed outright; the empty one is not a failure.
	if got := len(agg.Diagnostics()); got != 6 {
		t.Fatalf("diagnostics: got %d, want 6", got)
	}
}

func TestFallbackQuotesUsed(t *testing.T) {
	primary := &stubQuotes{}
	fallback := &stubQuotes{series: map[string]models.PriceSeries{
		"^GSPC": closesSeries(5000, 5100),
	}}
	agg := NewAggregatorWithSources(primary, &stubUniverse{}, &stubNews{}, zap.NewNop(),
		WithFallbackQuotes(fallback),
		WithRand(rand.New(rand.NewSource(1))))

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	indices := agg.MarketIndices(context.Background(), start, start.AddDate(0, 0, 7))
	if _, ok := indices["S&P 500"]; !ok {
		t.Fatal("fallback series should back the S&P 500 entry")
	}
}

func TestSnapshotResetsDiagnostics(t *testing.T) {
	quotes := &stubQuotes{series: map[string]models.PriceSeries{
		"^GSPC": closesSeries(5000, 5050),
	}}
	agg := testAggregator(quotes, &stubUniverse{symbols: []string{"AAA"}}, &stubNews{})

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	agg.Snapshot(context.Background(), start, start.AddDate(0, 0, 7))
	first := len(agg.Diagnostics())
	if first == 0 {
		t.Fatal("expected failures for the missing roster symbols")
	}

	agg.Snapshot(context.Background(), start, start.AddDate(0, 0, 7))
	if got := len(agg.Diagnostics()); got != first {
		t.Fatalf("diagnostics not reset between runs: got %d, want %d", got, first)
	}
}

func TestEconomicIndicatorsLastClose(t *testing.T) {
	quotes := &stubQuotes{series: map[string]models.PriceSeries{
		"^TNX": closesSeries(4.1, 4.2, 4.35),
		"GC=F": closesSeries(2300, 2310),
	}}
	agg := testAggregator(quotes, &stubUniverse{}, &stubNews{})

	out := agg.EconomicIndicators(context.Background())
	if out["10-Year Treasury"] != 4.35 {
		t.Fatalf("10Y: got %v, want 4.35", out["10-Year Treasury"])
	}
	if out["Gold"] != 2310 {
		t.Fatalf("Gold: got %v, want 2310", out["Gold"])
	}
	if _, ok := out["Crude Oil"]; ok {
		t.Fatal("missing symbol should be omitted")
	}
}

func TestAggregatorClose(t *testing.T) {
	agg := testAggregator(&stubQuotes{}, &stubUniverse{}, &stubNews{})
	agg.Close() // no closers registered, must be a no-op

	closed := false
	agg.closers = append(agg.closers, func() { closed = true })
	agg.Close()
	if !closed {
		t.Fatal("registered closer not invoked")
	}
}

func TestFinancialNewsCollectsDiagnostics(t *testing.T) {
	news := &stubNews{
		articles: []models.NewsArticle{{Title: "Markets rally", Source: "Test"}},
		diags:    []FetchError{{Target: "Bloomberg Markets", Stage: "news", Err: errors.New("timeout")}},
	}
	agg := testAggregator(&stubQuotes{}, &stubUniverse{}, news)

	articles := agg.FinancialNews(context.Background(), time.Now().AddDate(0, 0, -7), time.Now())
	if len(articles) != 1 {
		t.Fatalf("articles: got %d", len(articles))
	}
	diags := agg.Diagnostics()
	if len(diags) != 1 || diags[0].Target != "Bloomberg Markets" {
		t.Fatalf("diagnostics: got %+v", diags)
	}
}
