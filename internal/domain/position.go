package domain

import "time"

type PositionState int

const (
	StateFlat PositionState = iota
	StateLong
)

func (s PositionState) String() string {
	switch s {
	case StateFlat:
		return "FLAT"
	case StateLong:
		return "LONG"
	}
	return "UNKNOWN"
}

// Position is the open leg of a backtest run. At most one exists at a time.
type Position struct {
	BuyTime  time.Time `json:"buy_time"`
	BuyPrice float64   `json:"buy_price"`
}

// Trade is a closed round trip. It is never mutated after Close returns it.
type Trade struct {
	BuyTime       time.Time `json:"buy_time"`
	BuyPrice      float64   `json:"buy_price"`
	SellTime      time.Time `json:"sell_time"`
	SellPrice     float64   `json:"sell_price"`
	Profit        float64   `json:"profit"`
	ProfitPercent float64   `json:"profit_percent"`
}

// Close turns the position into a trade at the given exit. ProfitPercent is
// 0 when the entry price is not positive.
func (p Position) Close(sellTime time.Time, sellPrice float64) Trade {
	profit := sellPrice - p.BuyPrice
	var percent float64
	if p.BuyPrice > 0 {
		percent = profit / p.BuyPrice * 100
	}
	return Trade{
		BuyTime:       p.BuyTime,
		BuyPrice:      p.BuyPrice,
		SellTime:      sellTime,
		SellPrice:     sellPrice,
		Profit:        profit,
		ProfitPercent: percent,
	}
}

// HoldingDays returns whole days between entry and exit.
func (t Trade) HoldingDays() int {
	return WholeDays(t.BuyTime, t.SellTime)
}

// WholeDays returns the number of complete 24h periods from a to b.
func WholeDays(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
