package domain

import "time"

type SignalType string

const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
)

// Signal is a live strategy hit on one bar.
type Signal struct {
	ID       int64              `json:"id,omitempty"`
	ItemID   string             `json:"item_id"`
	ItemName string             `json:"item_name"`
	Strategy string             `json:"strategy"`
	Type     SignalType         `json:"type"`
	Price    float64            `json:"price"`
	Open     float64            `json:"open"`
	Close    float64            `json:"close"`
	Volume   float64            `json:"volume"`
	Details  map[string]float64 `json:"details,omitempty"`
	Reason   string             `json:"reason,omitempty"`
	Time     time.Time          `json:"time"`
}
