package report

import (
	"fmt"
	"strings"

	"github.com/marketbrief/marketbrief/internal/analysis"
	"github.com/marketbrief/marketbrief/internal/datasource"
	"github.com/marketbrief/marketbrief/pkg/models"
)

// Per-section caps on the news items serialized into the context.
const (
	headlineCap        = 10
	macroNewsCap       = 15
	consumerNewsCap    = 20
	allHeadlinesCap    = 30
	riskNewsCap        = 20
	opportunityNewsCap = 15
)

// Keyword sets for the title filters.
var (
	macroKeywords       = []string{"technology", "ai", "regulation", "policy", "climate", "esg"}
	consumerKeywords    = []string{"consumer", "retail", "spending", "confidence", "inflation"}
	riskKeywords        = []string{"risk", "crisis", "tension", "inflation", "recession", "cyber", "supply chain"}
	opportunityKeywords = []string{"growth", "opportunity", "innovation", "merger", "acquisition", "ipo"}
)

// FilterNews returns the articles whose title contains any keyword,
// case-insensitive. Only titles are matched; summaries never influence
// selection.
func FilterNews(articles []models.NewsArticle, keywords []string) []models.NewsArticle {
	var out []models.NewsArticle
	for _, a := range articles {
		title := strings.ToLower(a.Title)
		for _, kw := range keywords {
			if strings.Contains(title, kw) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// BuildContext serializes the data payload for one section. Empty series
// and missing indicators are omitted rather than rendered as placeholders.
func BuildContext(s Section, snap *models.MarketSnapshot, news []models.NewsArticle) string {
	var b strings.Builder
	switch s {
	case ExecutiveSummary:
		writeBlock(&b, "Market Indices Performance", formatSeriesMetrics(snap.Indices, indexOrder()))
		writeBlock(&b, "Market Sentiment", formatSentiment(snap.Sentiment))
		writeBlock(&b, "Recent News Headlines", formatHeadlines(news, headlineCap))

	case GlobalOverview:
		writeBlock(&b, "Major Indices Performance", formatSeriesMetrics(snap.Indices, indexOrder()))
		writeBlock(&b, "Economic Indicators", formatIndicators(snap.EconomicIndicators))

	case MacroTrends:
		writeBlock(&b, "Market Performance Data", formatSeriesMetrics(snap.Indices, indexOrder()))
		writeBlock(&b, "Relevant News", formatNewsWithSummaries(FilterNews(news, macroKeywords), macroNewsCap))
		writeBlock(&b, "Economic Indicators", formatIndicators(snap.EconomicIndicators))

	case SectorHighlights:
		writeBlock(&b, "Sector Performance Data", formatSeriesMetrics(snap.Sectors, sectorOrder()))
		writeBlock(&b, "Top Volume Stocks", formatTopStocks(snap.TopStocks))

	case ConsumerInsights:
		writeBlock(&b, "Consumer-Related News", formatNewsWithSummaries(FilterNews(news, consumerKeywords), consumerNewsCap))
		writeBlock(&b, "All Recent Headlines", formatHeadlines(news, allHeadlinesCap))

	case InvestmentOutlook:
		writeBlock(&b, "Market Performance", formatSeriesMetrics(snap.Indices, indexOrder()))
		writeBlock(&b, "Economic Indicators", formatIndicators(snap.EconomicIndicators))
		writeBlock(&b, "Market Sentiment", formatSentiment(snap.Sentiment))
		writeBlock(&b, "Volatility Analysis", formatVolatility(snap.Indices))

	case RisksChallenges:
		writeBlock(&b, "Risk-Related News", formatNewsWithSummaries(FilterNews(news, riskKeywords), riskNewsCap))
		writeBlock(&b, "Market Volatility", formatVIX(snap.Sentiment))
		writeBlock(&b, "Market Trends", formatTrends(snap.Indices))

	case Opportunities:
		writeBlock(&b, "Market Performance Trends", formatTrends(snap.Indices))
		writeBlock(&b, "Sector Performance", formatSeriesMetrics(snap.Sectors, sectorOrder()))
		writeBlock(&b, "Top Performing Stocks", formatTopStocks(snap.TopStocks))
		writeBlock(&b, "Opportunity-Related News", formatNewsWithSummaries(FilterNews(news, opportunityKeywords), opportunityNewsCap))
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeBlock(b *strings.Builder, label, body string) {
	b.WriteString(label)
	b.WriteString(":\n")
	if body == "" {
		body = "(none)"
	}
	b.WriteString(body)
	b.WriteString("\n\n")
}

// indexOrder and sectorOrder pin map iteration to the fetch rosters so the
// serialized context is deterministic.
func indexOrder() []string {
	names := make([]string, len(datasource.IndexRoster))
	for i, l := range datasource.IndexRoster {
		names[i] = l.Name
	}
	return names
}

func sectorOrder() []string {
	names := make([]string, len(datasource.SectorRoster))
	for i, l := range datasource.SectorRoster {
		names[i] = l.Name
	}
	return names
}

// formatSeriesMetrics renders one metrics line per non-empty series.
func formatSeriesMetrics(series map[string]models.PriceSeries, order []string) string {
	var lines []string
	for _, name := range order {
		s, ok := series[name]
		if !ok {
			continue
		}
		m, ok := analysis.PerformanceMetrics(s)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf(
			"%s: total_return=%.2f%%, high=%.2f, low=%.2f, volatility=%.2f%%, avg_volume=%.0f",
			name, m.TotalReturn, m.High, m.Low, m.Volatility, m.AvgVolume))
	}
	return strings.Join(lines, "\n")
}

func formatIndicators(indicators map[string]float64) string {
	var lines []string
	for _, l := range datasource.EconRoster {
		v, ok := indicators[l.Name]
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %.2f", l.Name, v))
	}
	return strings.Join(lines, "\n")
}

func formatSentiment(s models.Sentiment) string {
	var lines []string
	if s.HasVIX {
		lines = append(lines, fmt.Sprintf("VIX: %.2f (%s)", s.VIX, s.VIXLabel))
	} else {
		lines = append(lines, "VIX: N/A")
	}
	if s.SPYTrend != "" {
		lines = append(lines, "SPY Trend: "+s.SPYTrend)
	}
	return strings.Join(lines, "\n")
}

func formatVIX(s models.Sentiment) string {
	if !s.HasVIX {
		return "VIX: N/A"
	}
	return fmt.Sprintf("VIX: %.2f", s.VIX)
}

func formatHeadlines(news []models.NewsArticle, limit int) string {
	if len(news) > limit {
		news = news[:limit]
	}
	var lines []string
	for _, a := range news {
		lines = append(lines, "- "+a.Title)
	}
	return strings.Join(lines, "\n")
}

func formatNewsWithSummaries(news []models.NewsArticle, limit int) string {
	if len(news) > limit {
		news = news[:limit]
	}
	var lines []string
	for _, a := range news {
		lines = append(lines, fmt.Sprintf("- %s - %s", a.Title, a.Summary))
	}
	return strings.Join(lines, "\n")
}

func formatTopStocks(stocks []models.StockVolume) string {
	var lines []string
	for _, s := range stocks {
		lines = append(lines, fmt.Sprintf(
			"%s: volume=%d, price=%.2f, change=%.2f%%",
			s.Symbol, s.Volume, s.Price, s.ChangePct))
	}
	return strings.Join(lines, "\n")
}

func formatVolatility(indices map[string]models.PriceSeries) string {
	var lines []string
	for _, name := range indexOrder() {
		s, ok := indices[name]
		if !ok {
			continue
		}
		daily, annualized, ok := analysis.VolatilityStats(s)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf(
			"%s: daily_volatility=%.2f%%, annualized_volatility=%.2f%%",
			name, daily, annualized))
	}
	return strings.Join(lines, "\n")
}

func formatTrends(indices map[string]models.PriceSeries) string {
	var lines []string
	for _, name := range indexOrder() {
		s, ok := indices[name]
		if !ok {
			continue
		}
		res := analysis.IdentifyTrends(s, 0)
		if res.Trend == analysis.InsufficientData {
			lines = append(lines, fmt.Sprintf("%s: %s", name, res.Trend))
			continue
		}
		lines = append(lines, fmt.Sprintf(
			"%s: %s (momentum %.2f%% over %d periods)",
			name, res.Trend, res.MomentumPct, res.Window))
	}
	return strings.Join(lines, "\n")
}
