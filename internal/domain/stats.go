package domain

// Statistics summarises the closed trades of one backtest run.
// MaxLoss is the minimum profit and stays positive when every trade wins.
type Statistics struct {
	TotalTrades      int     `json:"total_trades"`
	WinRate          float64 `json:"win_rate"`
	AvgProfit        float64 `json:"avg_profit"`
	AvgProfitPercent float64 `json:"avg_profit_percent"`
	TotalProfit      float64 `json:"total_profit"`
	MaxProfit        float64 `json:"max_profit"`
	MaxLoss          float64 `json:"max_loss"`
	AvgHoldDays      float64 `json:"avg_hold_days"`
}

// BacktestResult is the outcome of one run. OpenPosition is set when the
// window ended while long; it is not part of Trades or Stats.
type BacktestResult struct {
	Strategy     string     `json:"strategy"`
	Trades       []Trade    `json:"trades"`
	Stats        Statistics `json:"stats"`
	OpenPosition *Position  `json:"open_position,omitempty"`
	WindowStart  int        `json:"window_start"`
	WindowLen    int        `json:"window_len"`
}
