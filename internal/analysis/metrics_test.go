package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/marketbrief/marketbrief/pkg/models"
)

func seriesFromCloses(closes []float64) models.PriceSeries {
	s := make(models.PriceSeries, len(closes))
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		s[i] = models.Bar{
			Date:   day.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return s
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPerformanceMetricsEmptySeries(t *testing.T) {
	m, ok := PerformanceMetrics(nil)
	if ok {
		t.Fatal("empty series should not yield metrics")
	}
	if m != (MetricSet{}) {
		t.Fatalf("empty series: got %+v", m)
	}
}

func TestPerformanceMetricsTotalReturn(t *testing.T) {
	s := seriesFromCloses([]float64{100, 105, 110})
	m, ok := PerformanceMetrics(s)
	if !ok {
		t.Fatal("expected metrics")
	}
	// (110 - 100) / 100 × 100
	if !almostEqual(m.TotalReturn, 10) {
		t.Fatalf("total return: got %v, want 10", m.TotalReturn)
	}
	if !almostEqual(m.High, 111) || !almostEqual(m.Low, 99) {
		t.Fatalf("high/low: got %v/%v", m.High, m.Low)
	}
	if !almostEqual(m.AvgVolume, 1000) {
		t.Fatalf("avg volume: got %v", m.AvgVolume)
	}
}

func TestPerformanceMetricsAvgVolume(t *testing.T) {
	s := seriesFromCloses([]float64{50, 51, 52})
	s[0].Volume = 100
	s[1].Volume = 200
	s[2].Volume = 600
	m, _ := PerformanceMetrics(s)
	if !almostEqual(m.AvgVolume, 300) {
		t.Fatalf("avg volume: got %v, want 300", m.AvgVolume)
	}
}

func TestPerformanceMetricsVolatility(t *testing.T) {
	// Returns: +10%, then −10/110 ≈ −9.0909%.
	s := seriesFromCloses([]float64{100, 110, 100})
	m, _ := PerformanceMetrics(s)

	r1, r2 := 0.10, -10.0/110.0
	mu := (r1 + r2) / 2
	want := math.Sqrt(((r1-mu)*(r1-mu)+(r2-mu)*(r2-mu))/1) * 100
	if !almostEqual(m.Volatility, want) {
		t.Fatalf("volatility: got %v, want %v", m.Volatility, want)
	}

	// A single bar has no returns and therefore zero volatility.
	m, _ = PerformanceMetrics(seriesFromCloses([]float64{100}))
	if m.Volatility != 0 {
		t.Fatalf("single bar volatility: got %v", m.Volatility)
	}
}

func TestIdentifyTrendsInsufficientData(t *testing.T) {
	for n := 0; n < DefaultTrendWindow; n++ {
		closes := make([]float64, n)
		for i := range closes {
			closes[i] = 100
		}
		res := IdentifyTrends(seriesFromCloses(closes), 0)
		if res.Trend != InsufficientData {
			t.Fatalf("len %d: got %v, want InsufficientData", n, res.Trend)
		}
		if res.Window != DefaultTrendWindow {
			t.Fatalf("len %d: window %d", n, res.Window)
		}
	}
}

func TestIdentifyTrendsEqualClosesIsDowntrend(t *testing.T) {
	// Length exactly equal to the window with all equal closes: the latest
	// close equals the moving average, which resolves to Downtrend under
	// the strict uptrend comparison.
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	res := IdentifyTrends(seriesFromCloses(closes), 20)
	if res.Trend != Downtrend {
		t.Fatalf("equal closes: got %v, want Downtrend", res.Trend)
	}
	if res.MomentumPct != 0 {
		t.Fatalf("momentum without lookback: got %v, want 0", res.MomentumPct)
	}
}

func TestIdentifyTrendsUptrendAndMomentum(t *testing.T) {
	// Strictly rising closes: latest close above its moving average.
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	res := IdentifyTrends(seriesFromCloses(closes), 20)
	if res.Trend != Uptrend {
		t.Fatalf("rising closes: got %v, want Uptrend", res.Trend)
	}
	// close[-1]=124, close[-21]=104 → (124−104)/104×100.
	want := (124.0 - 104.0) / 104.0 * 100
	if !almostEqual(res.MomentumPct, want) {
		t.Fatalf("momentum: got %v, want %v", res.MomentumPct, want)
	}
}

func TestIdentifyTrendsDowntrend(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	res := IdentifyTrends(seriesFromCloses(closes), 20)
	if res.Trend != Downtrend {
		t.Fatalf("falling closes: got %v, want Downtrend", res.Trend)
	}
	if res.MomentumPct >= 0 {
		t.Fatalf("momentum should be negative, got %v", res.MomentumPct)
	}
}

func TestVolatilityStats(t *testing.T) {
	daily, annualized, ok := VolatilityStats(seriesFromCloses([]float64{100, 110, 100}))
	if !ok {
		t.Fatal("expected stats for 3-bar series")
	}
	if !almostEqual(annualized, daily*math.Sqrt(252)) {
		t.Fatalf("annualized: got %v, daily %v", annualized, daily)
	}

	if _, _, ok := VolatilityStats(seriesFromCloses([]float64{100})); ok {
		t.Fatal("single bar should not yield stats")
	}
}
