package domain

import "time"

// KLine is one candlestick for a period as returned by the market API.
type KLine struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	Close  float64   `json:"close"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Volume float64   `json:"volume"`
	Amount float64   `json:"amount"`
}

// BodyLow is the lower edge of the candle body.
func (k KLine) BodyLow() float64 {
	if k.Open < k.Close {
		return k.Open
	}
	return k.Close
}

// PricePoint is one row of the Bollinger indicator table.
// Valid is false during the warm-up prefix where the bands are undefined.
type PricePoint struct {
	KLine
	Middle float64 `json:"middle"`
	Upper  float64 `json:"upper"`
	Lower  float64 `json:"lower"`
	Valid  bool    `json:"valid"`
}

// VegasPoint is one row of the Vegas channel table (fast, mid and filter EMAs).
type VegasPoint struct {
	KLine
	EMA1 float64 `json:"ema1"`
	EMA2 float64 `json:"ema2"`
	EMA3 float64 `json:"ema3"`
}
