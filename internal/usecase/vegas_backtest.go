package usecase

import (
	"time"

	"github.com/vitos/cs2_market_watch/internal/domain"
)

const StrategyVegas = "vegas"

type VegasBacktestConfig struct {
	LookbackDays int     `yaml:"lookback_days" json:"lookback_days" env:"LOOKBACK_DAYS"`
	CooldownDays int     `yaml:"cooldown_days" json:"cooldown_days" env:"COOLDOWN_DAYS"`
	Tolerance    float64 `yaml:"tolerance" json:"tolerance" env:"TOLERANCE"`
	WarmupDays   int     `yaml:"warmup_days" json:"warmup_days" env:"WARMUP_DAYS"`
}

func DefaultVegasBacktestConfig() VegasBacktestConfig {
	return VegasBacktestConfig{
		LookbackDays: 300,
		CooldownDays: 8,
		Tolerance:    0.005,
		WarmupDays:   169,
	}
}

type VegasBacktester struct {
	config VegasBacktestConfig
}

func NewVegasBacktester(config VegasBacktestConfig) *VegasBacktester {
	return &VegasBacktester{config: config}
}

// DetectSignals buys a pullback to the filter EMA in an uptrend (fast above
// mid) and sells when the low breaks the filter or the fast EMA crosses below.
func (v *VegasBacktester) DetectSignals(rows []domain.VegasPoint, idx int, inPosition bool, buyTime *time.Time) Signal {
	if idx < 0 || idx >= len(rows) || idx < v.config.WarmupDays {
		return Signal{}
	}
	row := rows[idx]

	inCooldown := false
	if inPosition && buyTime != nil {
		inCooldown = domain.WholeDays(*buyTime, row.Time) < v.config.CooldownDays
	}

	var sig Signal
	if !inPosition {
		if row.BodyLow() <= row.EMA3*(1+v.config.Tolerance) && row.EMA1 > row.EMA2 {
			sig.Buy = true
			sig.BuyPrice = row.BodyLow()
		}
	} else if !inCooldown {
		if row.Low < row.EMA3*(1-v.config.Tolerance) || row.EMA1 < row.EMA2 {
			sig.Sell = true
			sig.SellPrice = row.Low
		}
	}
	return sig
}

// Run uses the same FLAT/LONG machine as the Bollinger backtest. Rows inside
// the warm-up prefix never signal.
func (v *VegasBacktester) Run(rows []domain.VegasPoint) domain.BacktestResult {
	start := windowStart(len(rows), v.config.LookbackDays)

	m := newPositionMachine()
	for i := start; i < len(rows); i++ {
		sig := v.DetectSignals(rows, i, m.State() == domain.StateLong, m.BuyTime())
		switch {
		case sig.Buy:
			m.Open(rows[i].Time, sig.BuyPrice)
		case sig.Sell:
			m.Close(rows[i].Time, sig.SellPrice)
		}
	}
	return m.Result(StrategyVegas, start, len(rows)-start)
}
