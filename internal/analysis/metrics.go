// Package analysis implements the metric processor: performance metrics,
// trend identification, and volatility statistics over price series.
// All functions are pure and recompute from the series on every call.
package analysis

import (
	"math"

	"github.com/marketbrief/marketbrief/pkg/models"
)

// MetricSet holds the derived performance statistics for one price series.
type MetricSet struct {
	TotalReturn float64 `json:"total_return"` // percent over the series
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Volatility  float64 `json:"volatility"` // stddev of close-to-close returns, percent
	AvgVolume   float64 `json:"avg_volume"`
}

// Trend classifies a series relative to its trailing moving average.
type Trend string

const (
	Uptrend          Trend = "Uptrend"
	Downtrend        Trend = "Downtrend"
	InsufficientData Trend = "Insufficient data"
)

// DefaultTrendWindow is the moving-average window used when none is given.
const DefaultTrendWindow = 20

// TradingDaysPerYear is the annualization factor base for volatility.
const TradingDaysPerYear = 252

// TrendResult is the outcome of IdentifyTrends for one series.
type TrendResult struct {
	Trend       Trend   `json:"trend"`
	MomentumPct float64 `json:"momentum_pct"` // percent change over the trailing window
	Window      int     `json:"window"`
}

// PerformanceMetrics computes the basic performance statistics for a
// series. ok is false for an empty series, which callers treat as
// "omit from summaries", never as an error.
func PerformanceMetrics(s models.PriceSeries) (MetricSet, bool) {
	if s.Empty() {
		return MetricSet{}, false
	}

	m := MetricSet{High: s[0].High, Low: s[0].Low}
	var volumeSum int64
	for _, b := range s {
		if b.High > m.High {
			m.High = b.High
		}
		if b.Low < m.Low {
			m.Low = b.Low
		}
		volumeSum += b.Volume
	}
	m.AvgVolume = float64(volumeSum) / float64(s.Len())

	first, last := s[0].Close, s[s.Len()-1].Close
	if first != 0 {
		m.TotalReturn = (last - first) / first * 100
	}
	m.Volatility = sampleStdDev(pctChanges(s.Closes())) * 100
	return m, true
}

// IdentifyTrends classifies the series direction against its trailing
// moving average. Series shorter than the window yield InsufficientData.
// The uptrend comparison is strict: a latest close exactly equal to the
// moving average counts as Downtrend.
func IdentifyTrends(s models.PriceSeries, window int) TrendResult {
	if window <= 0 {
		window = DefaultTrendWindow
	}
	res := TrendResult{Trend: InsufficientData, Window: window}
	if s.Len() < window {
		return res
	}

	closes := s.Closes()
	last := closes[len(closes)-1]
	if last > mean(closes[len(closes)-window:]) {
		res.Trend = Uptrend
	} else {
		res.Trend = Downtrend
	}

	// Momentum needs one bar beyond the window for its baseline; a series
	// exactly window long has no lookback and reports zero momentum.
	if len(closes) > window {
		base := closes[len(closes)-1-window]
		if base != 0 {
			res.MomentumPct = (last - base) / base * 100
		}
	}
	return res
}

// VolatilityStats returns the daily and annualized (√252) standard
// deviation of close-to-close returns, in percent. ok is false when the
// series has fewer than two bars.
func VolatilityStats(s models.PriceSeries) (daily, annualized float64, ok bool) {
	if s.Len() < 2 {
		return 0, 0, false
	}
	daily = sampleStdDev(pctChanges(s.Closes())) * 100
	annualized = daily * math.Sqrt(TradingDaysPerYear)
	return daily, annualized, true
}

// pctChanges returns period-over-period fractional changes. Periods with
// a zero base are skipped to keep the math finite.
func pctChanges(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out = append(out, (closes[i]-closes[i-1])/closes[i-1])
	}
	return out
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// sampleStdDev computes the n−1 (sample) standard deviation. Fewer than
// two samples yield zero.
func sampleStdDev(vals []float64) float64 {
	n := len(vals)
	if n < 2 {
		return 0
	}
	m := mean(vals)
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(n-1))
}
