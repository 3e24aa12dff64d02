package usecase

import (
	"math"
	"time"

	"github.com/vitos/cs2_market_watch/internal/domain"
)

const StrategyBollinger = "bollinger"

type BollingerBacktestConfig struct {
	LookbackDays int     `yaml:"lookback_days" json:"lookback_days" env:"LOOKBACK_DAYS"`
	CooldownDays int     `yaml:"cooldown_days" json:"cooldown_days" env:"COOLDOWN_DAYS"`
	Tolerance    float64 `yaml:"tolerance" json:"tolerance" env:"TOLERANCE"`
}

func DefaultBollingerBacktestConfig() BollingerBacktestConfig {
	return BollingerBacktestConfig{
		LookbackDays: 100,
		CooldownDays: 5,
		Tolerance:    0.005,
	}
}

// Signal is the detector output for one bar. Prices are zero when the
// matching flag is false.
type Signal struct {
	Buy       bool
	Sell      bool
	BuyPrice  float64
	SellPrice float64
}

type BollingerBacktester struct {
	config BollingerBacktestConfig
}

func NewBollingerBacktester(config BollingerBacktestConfig) *BollingerBacktester {
	return &BollingerBacktester{config: config}
}

func (b *BollingerBacktester) Config() BollingerBacktestConfig {
	return b.config
}

// DetectSignals evaluates rows[idx]. Buy is only reachable when flat and sell
// only when long, so both flags are never set together.
func (b *BollingerBacktester) DetectSignals(rows []domain.PricePoint, idx int, inPosition bool, buyTime *time.Time) Signal {
	if idx < 0 || idx >= len(rows) {
		return Signal{}
	}
	row := rows[idx]
	if !row.Valid || math.IsNaN(row.Upper) || math.IsNaN(row.Lower) {
		return Signal{}
	}

	bodyLow := row.BodyLow()

	inCooldown := false
	if inPosition && buyTime != nil {
		inCooldown = domain.WholeDays(*buyTime, row.Time) < b.config.CooldownDays
	}

	var sig Signal
	if !inPosition {
		lowerThreshold := row.Lower * (1 + b.config.Tolerance)
		if bodyLow <= lowerThreshold {
			sig.Buy = true
			sig.BuyPrice = bodyLow
		}
	} else if !inCooldown {
		upperThreshold := row.Upper * (1 - b.config.Tolerance)
		if row.High >= upperThreshold {
			sig.Sell = true
			sig.SellPrice = row.High
		}
	}
	return sig
}

// Run walks the trailing LookbackDays rows. A position still open when the
// window ends is returned in OpenPosition and left out of the statistics.
func (b *BollingerBacktester) Run(rows []domain.PricePoint) domain.BacktestResult {
	start := windowStart(len(rows), b.config.LookbackDays)

	m := newPositionMachine()
	for i := start; i < len(rows); i++ {
		sig := b.DetectSignals(rows, i, m.State() == domain.StateLong, m.BuyTime())
		switch {
		case sig.Buy:
			m.Open(rows[i].Time, sig.BuyPrice)
		case sig.Sell:
			m.Close(rows[i].Time, sig.SellPrice)
		}
	}

	return m.Result(StrategyBollinger, start, len(rows)-start)
}

func windowStart(total, lookback int) int {
	if lookback <= 0 {
		return 0
	}
	start := total - lookback
	if start < 0 {
		return 0
	}
	return start
}
