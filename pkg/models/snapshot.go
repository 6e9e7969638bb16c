package models

// StockVolume is one entry in the top-traded-stocks ranking.
type StockVolume struct {
	Symbol    string  `json:"symbol"`
	Volume    int64   `json:"volume"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
}

// VIX interpretation labels, tiered at 20 and 30 (exclusive upper bounds).
const (
	VIXLabelLow      = "Low volatility - Complacent market"
	VIXLabelModerate = "Moderate volatility - Normal market conditions"
	VIXLabelHigh     = "High volatility - Fearful market"
)

// VIXLabel maps a VIX level to its qualitative interpretation.
func VIXLabel(vix float64) string {
	switch {
	case vix < 20:
		return VIXLabelLow
	case vix < 30:
		return VIXLabelModerate
	default:
		return VIXLabelHigh
	}
}

// Sentiment is the market sentiment snapshot: the latest VIX level with
// its qualitative label, and a coarse SPY trend direction.
type Sentiment struct {
	VIX      float64 `json:"vix"`
	HasVIX   bool    `json:"has_vix"`
	VIXLabel string  `json:"vix_label,omitempty"`
	SPYTrend string  `json:"spy_trend,omitempty"` // "Bullish" or "Bearish"
}

// MarketSnapshot is the complete aggregated market/economic/sentiment
// data for one report run. It is built once per invocation and only read
// afterwards. Symbols whose fetch failed are simply absent from the maps;
// TopStocks is capped at 10 and sorted by volume descending.
type MarketSnapshot struct {
	Indices            map[string]PriceSeries `json:"indices"`
	Sectors            map[string]PriceSeries `json:"sectors"`
	EconomicIndicators map[string]float64     `json:"economic_indicators"`
	TopStocks          []StockVolume          `json:"top_stocks"`
	Sentiment          Sentiment              `json:"sentiment"`
}
