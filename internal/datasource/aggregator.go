package datasource

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marketbrief/marketbrief/internal/config"
	"github.com/marketbrief/marketbrief/pkg/models"
)

// Listing pairs a display name with its quote symbol. Rosters are slices
// so fetch order stays deterministic.
type Listing struct {
	Name   string
	Symbol string
}

// IndexRoster is the fixed set of global indices tracked in every report.
var IndexRoster = []Listing{
	{Name: "S&P 500", Symbol: "^GSPC"},
	{Name: "NASDAQ", Symbol: "^IXIC"},
	{Name: "Dow Jones", Symbol: "^DJI"},
	{Name: "Russell 2000", Symbol: "^RUT"},
	{Name: "VIX", Symbol: "^VIX"},
	{Name: "FTSE 100", Symbol: "^FTSE"},
	{Name: "Nikkei 225", Symbol: "^N225"},
	{Name: "Hang Seng", Symbol: "^HSI"},
}

// SectorRoster is the fixed set of sector ETFs.
var SectorRoster = []Listing{
	{Name: "Technology", Symbol: "XLK"},
	{Name: "Healthcare", Symbol: "XLV"},
	{Name: "Financials", Symbol: "XLF"},
	{Name: "Consumer Discretionary", Symbol: "XLY"},
	{Name: "Consumer Staples", Symbol: "XLP"},
	{Name: "Energy", Symbol: "XLE"},
	{Name: "Utilities", Symbol: "XLU"},
	{Name: "Industrials", Symbol: "XLI"},
	{Name: "Materials", Symbol: "XLB"},
	{Name: "Real Estate", Symbol: "XLRE"},
	{Name: "Communication Services", Symbol: "XLC"},
}

// EconRoster is the fixed set of economic indicator symbols. The reported
// value is the latest close in a trailing five-day window.
var EconRoster = []Listing{
	{Name: "10-Year Treasury", Symbol: "^TNX"},
	{Name: "2-Year Treasury", Symbol: "^IRX"},
	{Name: "30-Year Treasury", Symbol: "^TYX"},
	{Name: "Dollar Index", Symbol: "DX-Y.NYB"},
	{Name: "Gold", Symbol: "GC=F"},
	{Name: "Crude Oil", Symbol: "CL=F"},
}

const (
	indicatorLookbackDays = 5
	spyTrendLookbackDays  = 30
	spyTrendSampleSize    = 5
	topStocksSampleSize   = 50
	topStocksLimit        = 10
)

// Aggregator collects the market, economic, sentiment, and news data for
// one report run. All fetches are sequential; every failure is recorded in
// the run's diagnostics and the target is simply omitted from the result.
type Aggregator struct {
	quotes   Quotes
	fallback Quotes // nil when no fallback is configured
	universe Universe
	news     News
	rng      *rand.Rand
	logger   *zap.Logger
	closers  []func()

	mu    sync.Mutex
	diags []FetchError
}

// AggregatorOption configures the aggregator.
type AggregatorOption func(*Aggregator)

// WithFallbackQuotes sets the secondary quote source.
func WithFallbackQuotes(q Quotes) AggregatorOption {
	return func(a *Aggregator) { a.fallback = q }
}

// WithRand sets the sampling source, fixed in tests.
func WithRand(r *rand.Rand) AggregatorOption {
	return func(a *Aggregator) { a.rng = r }
}

// NewAggregator wires the production sources from configuration: Yahoo
// primary quotes, Alpha Vantage fallback when a key is configured, the
// S&P 500 constituents universe, and the RSS + NewsAPI news source.
func NewAggregator(cfg *config.Config, logger *zap.Logger) *Aggregator {
	timeout := cfg.DataTimeout()
	yf := NewYahooFinance(timeout, logger)
	opts := []AggregatorOption{}
	if cfg.Data.AlphaVantageKey != "" {
		opts = append(opts, WithFallbackQuotes(NewAlphaVantage(cfg.Data.AlphaVantageKey, timeout, logger)))
	}
	a := NewAggregatorWithSources(
		yf,
		NewSP500Universe(timeout, logger),
		NewNewsSource(cfg.Data.NewsAPIKey, timeout, logger),
		logger,
		opts...,
	)
	a.closers = append(a.closers, yf.Close)
	return a
}

// NewAggregatorWithSources builds an aggregator over explicit sources.
func NewAggregatorWithSources(quotes Quotes, universe Universe, news News, logger *zap.Logger, opts ...AggregatorOption) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{
		quotes:   quotes,
		universe: universe,
		news:     news,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Close releases the background resources held by the sources.
func (a *Aggregator) Close() {
	for _, f := range a.closers {
		f()
	}
}

// Diagnostics returns the fetch failures recorded since the last Reset.
func (a *Aggregator) Diagnostics() []FetchError {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]FetchError, len(a.diags))
	copy(out, a.diags)
	return out
}

// Reset clears the recorded diagnostics. Snapshot calls it at the start of
// every run.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.diags = nil
	a.mu.Unlock()
}

func (a *Aggregator) record(stage, target string, err error) {
	a.logger.Warn("fetch failed",
		zap.String("stage", stage),
		zap.String("target", target),
		zap.Error(err))
	a.mu.Lock()
	a.diags = append(a.diags, FetchError{Target: target, Stage: stage, Err: err})
	a.mu.Unlock()
}

// fetchHistory tries the primary quote source, then the fallback.
func (a *Aggregator) fetchHistory(ctx context.Context, stage, symbol string, start, end time.Time) (models.PriceSeries, bool) {
	series, err := a.quotes.History(ctx, symbol, start, end)
	if err == nil {
		return series, true
	}
	a.record(stage, symbol, err)

	if a.fallback == nil {
		return nil, false
	}
	series, err = a.fallback.History(ctx, symbol, start, end)
	if err != nil {
		a.record(stage, symbol, err)
		return nil, false
	}
	return series, true
}

func (a *Aggregator) fetchRecent(ctx context.Context, stage, symbol string, days int) (models.PriceSeries, bool) {
	series, err := a.quotes.RecentHistory(ctx, symbol, days)
	if err == nil {
		return series, true
	}
	a.record(stage, symbol, err)

	if a.fallback == nil {
		return nil, false
	}
	series, err = a.fallback.RecentHistory(ctx, symbol, days)
	if err != nil {
		a.record(stage, symbol, err)
		return nil, false
	}
	return series, true
}

// fetchRoster collects history for a fixed roster; failed or empty series
// leave no entry.
func (a *Aggregator) fetchRoster(ctx context.Context, stage string, roster []Listing, start, end time.Time) map[string]models.PriceSeries {
	out := make(map[string]models.PriceSeries, len(roster))
	for _, l := range roster {
		series, ok := a.fetchHistory(ctx, stage, l.Symbol, start, end)
		if !ok || series.Empty() {
			continue
		}
		out[l.Name] = series
	}
	return out
}

// MarketIndices fetches history for the fixed global index roster.
func (a *Aggregator) MarketIndices(ctx context.Context, start, end time.Time) map[string]models.PriceSeries {
	return a.fetchRoster(ctx, "indices", IndexRoster, start, end)
}

// SectorPerformance fetches history for the fixed sector ETF roster.
func (a *Aggregator) SectorPerformance(ctx context.Context, start, end time.Time) map[string]models.PriceSeries {
	return a.fetchRoster(ctx, "sectors", SectorRoster, start, end)
}

// EconomicIndicators returns the latest close for each indicator symbol,
// read from a trailing five-day window. Missing series are tolerated.
func (a *Aggregator) EconomicIndicators(ctx context.Context) map[string]float64 {
	out := make(map[string]float64, len(EconRoster))
	for _, l := range EconRoster {
		series, ok := a.fetchRecent(ctx, "indicators", l.Symbol, indicatorLookbackDays)
		if !ok {
			continue
		}
		if last, ok := series.Last(); ok {
			out[l.Name] = last.Close
		}
	}
	return out
}

// TopStocksByVolume samples constituents from the universe, fetches one
// day of data each, and returns the ten highest by volume. Symbols that
// fail or come back empty are skipped.
func (a *Aggregator) TopStocksByVolume(ctx context.Context) []models.StockVolume {
	symbols, err := a.universe.Symbols(ctx)
	if err != nil {
		a.record("top_stocks", "universe", err)
		return nil
	}

	n := topStocksSampleSize
	if len(symbols) < n {
		n = len(symbols)
	}
	perm := a.rng.Perm(len(symbols))

	var stocks []models.StockVolume
	for _, idx := range perm[:n] {
		symbol := symbols[idx]
		series, err := a.quotes.RecentHistory(ctx, symbol, 1)
		if err != nil || series.Empty() {
			continue
		}
		bar, _ := series.Last()
		sv := models.StockVolume{
			Symbol: symbol,
			Volume: bar.Volume,
			Price:  bar.Close,
		}
		if bar.Open != 0 {
			sv.ChangePct = (bar.Close - bar.Open) / bar.Open * 100
		}
		stocks = append(stocks, sv)
	}

	sort.Slice(stocks, func(i, j int) bool { return stocks[i].Volume > stocks[j].Volume })
	if len(stocks) > topStocksLimit {
		stocks = stocks[:topStocksLimit]
	}
	return stocks
}

// SentimentIndicators reads the latest VIX level and a coarse SPY trend.
// The SPY direction compares the mean of the last five closes in a 30-day
// window against the mean of the first five.
func (a *Aggregator) SentimentIndicators(ctx context.Context) models.Sentiment {
	var s models.Sentiment

	if series, ok := a.fetchRecent(ctx, "sentiment", "^VIX", indicatorLookbackDays); ok {
		if last, ok := series.Last(); ok {
			s.VIX = last.Close
			s.HasVIX = true
			s.VIXLabel = models.VIXLabel(last.Close)
		}
	}

	if series, ok := a.fetchRecent(ctx, "sentiment", "SPY", spyTrendLookbackDays); ok && !series.Empty() {
		closes := series.Closes()
		k := spyTrendSampleSize
		if len(closes) < k {
			k = len(closes)
		}
		recent := meanOf(closes[len(closes)-k:])
		past := meanOf(closes[:k])
		if recent > past {
			s.SPYTrend = "Bullish"
		} else {
			s.SPYTrend = "Bearish"
		}
	}

	return s
}

// FinancialNews collects articles for the period from all news sources.
func (a *Aggregator) FinancialNews(ctx context.Context, start, end time.Time) []models.NewsArticle {
	articles, diags := a.news.Articles(ctx, start, end)
	if len(diags) > 0 {
		a.mu.Lock()
		a.diags = append(a.diags, diags...)
		a.mu.Unlock()
	}
	return articles
}

// Snapshot assembles the complete market snapshot for the period. Each
// stage runs sequentially; diagnostics from the previous run are cleared.
func (a *Aggregator) Snapshot(ctx context.Context, start, end time.Time) *models.MarketSnapshot {
	a.Reset()
	a.logger.Info("aggregating market data",
		zap.Time("start", start),
		zap.Time("end", end))

	snap := &models.MarketSnapshot{
		Indices:            a.MarketIndices(ctx, start, end),
		Sectors:            a.SectorPerformance(ctx, start, end),
		EconomicIndicators: a.EconomicIndicators(ctx),
		TopStocks:          a.TopStocksByVolume(ctx),
	}
	snap.Sentiment = a.SentimentIndicators(ctx)

	a.logger.Info("snapshot assembled",
		zap.Int("indices", len(snap.Indices)),
		zap.Int("sectors", len(snap.Sectors)),
		zap.Int("indicators", len(snap.EconomicIndicators)),
		zap.Int("top_stocks", len(snap.TopStocks)),
		zap.Int("failures", len(a.Diagnostics())))
	return snap
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
