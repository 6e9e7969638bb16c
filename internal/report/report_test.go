package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marketbrief/marketbrief/pkg/models"
)

// scriptWriter echoes the section prompt so tests can see which prompt
// and context reached the agent.
type scriptWriter struct {
	calls []string
}

func (w *scriptWriter) GenerateSection(ctx context.Context, prompt, data string) string {
	w.calls = append(w.calls, data)
	return "text for " + firstLine(prompt)
}

func (w *scriptWriter) Available() []string { return []string{"openai"} }

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

type fixedData struct {
	snap *models.MarketSnapshot
	news []models.NewsArticle
}

func (d *fixedData) Snapshot(ctx context.Context, start, end time.Time) *models.MarketSnapshot {
	return d.snap
}

func (d *fixedData) FinancialNews(ctx context.Context, start, end time.Time) []models.NewsArticle {
	return d.news
}

func sampleSeries(closes ...float64) models.PriceSeries {
	s := make(models.PriceSeries, len(closes))
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		s[i] = models.Bar{Date: day.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return s
}

func TestFilterNewsTitleOnly(t *testing.T) {
	articles := []models.NewsArticle{
		{Title: "AI stocks rally", Summary: "chips up"},
		{Title: "Weather update", Summary: "climate change coverage"},
		{Title: "Banks report earnings"},
	}
	got := FilterNews(articles, macroKeywords)
	if len(got) != 1 || got[0].Title != "AI stocks rally" {
		t.Fatalf("filtered: got %+v", got)
	}

	// Matching is case-insensitive on the title.
	got = FilterNews([]models.NewsArticle{{Title: "NEW REGULATION PASSED"}}, macroKeywords)
	if len(got) != 1 {
		t.Fatalf("case-insensitive match failed: got %+v", got)
	}

	if got := FilterNews(nil, macroKeywords); got != nil {
		t.Fatalf("nil input: got %+v", got)
	}
}

func TestBuildContextMacroTrends(t *testing.T) {
	snap := &models.MarketSnapshot{
		Indices: map[string]models.PriceSeries{
			"S&P 500": sampleSeries(5000, 5100),
		},
		EconomicIndicators: map[string]float64{"Gold": 2310},
	}
	news := []models.NewsArticle{
		{Title: "AI stocks rally", Summary: "chips surged"},
		{Title: "Banks report earnings", Summary: "mixed"},
	}

	ctx := BuildContext(MacroTrends, snap, news)
	if !strings.Contains(ctx, "S&P 500: total_return=2.00%") {
		t.Fatalf("indices summary missing: %q", ctx)
	}
	if !strings.Contains(ctx, "AI stocks rally - chips surged") {
		t.Fatalf("filtered news missing: %q", ctx)
	}
	if strings.Contains(ctx, "Banks report earnings") {
		t.Fatalf("unfiltered news leaked: %q", ctx)
	}
	if !strings.Contains(ctx, "Gold: 2310.00") {
		t.Fatalf("indicators missing: %q", ctx)
	}
}

func TestBuildContextOmitsEmptySeries(t *testing.T) {
	snap := &models.MarketSnapshot{
		Indices: map[string]models.PriceSeries{
			"S&P 500": sampleSeries(5000, 5100),
			"NASDAQ":  {},
		},
	}
	ctx := BuildContext(ExecutiveSummary, snap, nil)
	if !strings.Contains(ctx, "S&P 500:") {
		t.Fatalf("populated index missing: %q", ctx)
	}
	if strings.Contains(ctx, "NASDAQ") {
		t.Fatalf("empty index should be omitted: %q", ctx)
	}
}

func TestBuildContextRisksVIXNA(t *testing.T) {
	snap := &models.MarketSnapshot{}
	ctx := BuildContext(RisksChallenges, snap, nil)
	if !strings.Contains(ctx, "VIX: N/A") {
		t.Fatalf("missing VIX placeholder: %q", ctx)
	}
}

func TestBuildContextHeadlineCaps(t *testing.T) {
	news := make([]models.NewsArticle, 40)
	for i := range news {
		news[i] = models.NewsArticle{Title: "headline"}
	}
	ctx := BuildContext(ExecutiveSummary, &models.MarketSnapshot{}, news)
	if got := strings.Count(ctx, "- headline"); got != headlineCap {
		t.Fatalf("headlines: got %d, want %d", got, headlineCap)
	}

	ctx = BuildContext(ConsumerInsights, &models.MarketSnapshot{}, news)
	if got := strings.Count(ctx, "- headline"); got != allHeadlinesCap {
		t.Fatalf("all headlines: got %d, want %d", got, allHeadlinesCap)
	}
}

func TestComposeStructure(t *testing.T) {
	sections := make(map[Section]string)
	for _, s := range AllSections() {
		sections[s] = "body " + string(s)
	}
	start := time.Date(2024, 5, 27, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	out := Compose(sections, start, end, []string{"openai", "claude"})
	if !strings.HasPrefix(out, "# COMPREHENSIVE STOCK MARKET REPORT\n") {
		t.Fatalf("header: %q", out[:60])
	}
	if !strings.Contains(out, "**Report Period:** 2024-05-27 to 2024-06-03") {
		t.Fatal("report period missing")
	}
	if !strings.Contains(out, "**AI Agent:** openai, claude") {
		t.Fatal("agent list missing")
	}

	// Headings appear in the fixed order.
	last := -1
	for _, s := range AllSections() {
		idx := strings.Index(out, "## "+s.Title())
		if idx < 0 {
			t.Fatalf("heading for %s missing", s)
		}
		if idx < last {
			t.Fatalf("heading for %s out of order", s)
		}
		last = idx
	}
	if !strings.Contains(out, "## METHODOLOGY & DATA SOURCES") {
		t.Fatal("methodology block missing")
	}
	if !strings.Contains(out, footerLine) {
		t.Fatal("footer missing")
	}
	if got := strings.Count(out, "\n---\n"); got != 10 {
		t.Fatalf("separators: got %d, want 10", got)
	}
}

func TestGeneratorEndToEnd(t *testing.T) {
	data := &fixedData{
		snap: &models.MarketSnapshot{
			Indices: map[string]models.PriceSeries{
				"S&P 500": sampleSeries(5000, 5050, 5100),
				"NASDAQ":  {}, // failed fetch upstream: must be omitted, not fatal
			},
			EconomicIndicators: map[string]float64{"Gold": 2310},
			TopStocks: []models.StockVolume{
				{Symbol: "AAPL", Volume: 9999, Price: 190, ChangePct: 1.2},
			},
			Sentiment: models.Sentiment{VIX: 15, HasVIX: true, VIXLabel: models.VIXLabelLow, SPYTrend: "Bullish"},
		},
		news: []models.NewsArticle{{Title: "AI stocks rally", Summary: "chips surged"}},
	}
	writer := &scriptWriter{}
	gen := NewGenerator(data, writer, nil)

	start := time.Date(2024, 5, 27, 0, 0, 0, 0, time.UTC)
	out := gen.Generate(context.Background(), start, start.AddDate(0, 0, 7))

	if len(writer.calls) != len(AllSections()) {
		t.Fatalf("agent calls: got %d, want %d", len(writer.calls), len(AllSections()))
	}
	for _, s := range AllSections() {
		if !strings.Contains(out, "text for "+firstLine(s.Prompt())) {
			t.Fatalf("section %s text missing", s)
		}
	}
	if strings.Contains(out, "NASDAQ") {
		t.Fatal("empty index leaked into the report context")
	}
}

func TestSaveDefaultFilename(t *testing.T) {
	dir := t.TempDir()
	path, err := Save("report body", dir)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "market_report_") || !strings.HasSuffix(base, ".md") {
		t.Fatalf("filename: got %q", base)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "report body" {
		t.Fatalf("content: got %q, err %v", data, err)
	}
}

func TestSaveExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.md")
	got, err := Save("x", path)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got != path {
		t.Fatalf("resolved path: got %q, want %q", got, path)
	}
}

func TestSaveUnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "nested", "out.md")
	if _, err := Save("x", path); err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
