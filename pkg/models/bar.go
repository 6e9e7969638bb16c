// Package models defines the shared value types that flow between the
// data sources, the metric processor, and the report pipeline.
package models

import "time"

// Bar is one time-indexed OHLCV record within a price series.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is an ordered sequence of bars for one symbol over a date
// range. It is immutable once fetched. An empty series is a valid
// "no data available" state and must be skippable downstream; it never
// causes a report-generation failure on its own.
type PriceSeries []Bar

// Empty reports whether the series has no bars.
func (s PriceSeries) Empty() bool { return len(s) == 0 }

// Len returns the number of bars in the series.
func (s PriceSeries) Len() int { return len(s) }

// Last returns the most recent bar. ok is false for an empty series.
func (s PriceSeries) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// Closes returns the close column in bar order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}
