package usecase

import (
	"fmt"
	"math"

	"github.com/vitos/cs2_market_watch/internal/domain"
	"go.uber.org/zap"
)

type DetectMode string

const (
	ModeNewest DetectMode = "newest"
	ModeFull   DetectMode = "full"
)

// Strategy inspects prepared k-lines and reports signals.
type Strategy interface {
	Name() string
	Detect(klines []domain.KLine, mode DetectMode) []domain.Signal
}

type StrategyConfig struct {
	Enabled        []string `yaml:"enabled" env:"STRATEGIES" envSeparator:","`
	UpperTolerance float64  `yaml:"upper_tolerance" env:"BOLL_TOLERANCE_UPPER"`
	LowerTolerance float64  `yaml:"lower_tolerance" env:"BOLL_TOLERANCE_LOWER"`
	RSIOversold    float64  `yaml:"rsi_oversold" env:"RSI_OVERSOLD"`
	RSIOverbought  float64  `yaml:"rsi_overbought" env:"RSI_OVERBOUGHT"`
}

func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		Enabled:        []string{"Bollinger", "Vegas"},
		UpperTolerance: 0.01,
		LowerTolerance: 0.01,
		RSIOversold:    35,
		RSIOverbought:  75,
	}
}

// scanStart is the first index to evaluate: the last bar in newest mode,
// otherwise first.
func scanStart(n, first int, mode DetectMode) int {
	if mode == ModeNewest {
		return max(n-1, first)
	}
	return first
}

// BollingerStrategy flags a sell when the high reaches the upper band and a
// buy when the low reaches the lower band. A bar touching both is a buy.
type BollingerStrategy struct {
	calc           *IndicatorCalculator
	upperTolerance float64
	lowerTolerance float64
}

func NewBollingerStrategy(calc *IndicatorCalculator, upperTol, lowerTol float64) *BollingerStrategy {
	return &BollingerStrategy{calc: calc, upperTolerance: upperTol, lowerTolerance: lowerTol}
}

func (s *BollingerStrategy) Name() string {
	cfg := s.calc.Config()
	return fmt.Sprintf("Bollinger_%d_%g", cfg.BollingerPeriod, cfg.BollingerStd)
}

func (s *BollingerStrategy) Detect(klines []domain.KLine, mode DetectMode) []domain.Signal {
	if len(klines) < s.calc.Config().BollingerPeriod {
		return nil
	}
	points := s.calc.Bollinger(klines)

	var signals []domain.Signal
	for i := scanStart(len(points), 0, mode); i < len(points); i++ {
		p := points[i]
		if !p.Valid {
			continue
		}
		var typ domain.SignalType
		if p.High >= p.Upper*(1-s.upperTolerance) {
			typ = domain.SignalSell
		}
		if p.Low <= p.Lower*(1+s.lowerTolerance) {
			typ = domain.SignalBuy
		}
		if typ == "" {
			continue
		}
		signals = append(signals, newSignal(s.Name(), typ, p.KLine, map[string]float64{
			"high_price":  p.High,
			"low_price":   p.Low,
			"upper_band":  round2(p.Upper),
			"middle_band": round2(p.Middle),
			"lower_band":  round2(p.Lower),
		}))
	}
	return signals
}

// VegasStrategy buys when the fast EMA is above the medium one and the close
// sits inside the tunnel [ema3, ema2]. A close below the fast EMA is a sell
// and overrides the buy.
type VegasStrategy struct {
	calc *IndicatorCalculator
}

func NewVegasStrategy(calc *IndicatorCalculator) *VegasStrategy {
	return &VegasStrategy{calc: calc}
}

func (s *VegasStrategy) Name() string {
	cfg := s.calc.Config()
	return fmt.Sprintf("Vegas_Modified_%d_%d_%d", cfg.VegasEMA1, cfg.VegasEMA2, cfg.VegasEMA3)
}

func (s *VegasStrategy) Detect(klines []domain.KLine, mode DetectMode) []domain.Signal {
	required := s.calc.Config().VegasEMA3
	if len(klines) == 0 || len(klines) < required {
		return nil
	}
	points := s.calc.Vegas(klines)

	var signals []domain.Signal
	for i := scanStart(len(points), max(required-1, 0), mode); i < len(points); i++ {
		p := points[i]
		uptrend := p.EMA1 > p.EMA2
		var typ domain.SignalType
		if uptrend && p.EMA3 <= p.Close && p.Close <= p.EMA2 {
			typ = domain.SignalBuy
		}
		if p.Close < p.EMA1 {
			typ = domain.SignalSell
		}
		if typ == "" {
			continue
		}
		trend := 0.0
		if uptrend {
			trend = 1
		}
		signals = append(signals, newSignal(s.Name(), typ, p.KLine, map[string]float64{
			"close_price": round2(p.Close),
			"ema_fast":    round2(p.EMA1),
			"ema_medium":  round2(p.EMA2),
			"ema_slow":    round2(p.EMA3),
			"is_uptrend":  trend,
		}))
	}
	return signals
}

// RSIStrategy buys below the oversold threshold and sells above the
// overbought one.
type RSIStrategy struct {
	calc       *IndicatorCalculator
	oversold   float64
	overbought float64
}

func NewRSIStrategy(calc *IndicatorCalculator, oversold, overbought float64) *RSIStrategy {
	return &RSIStrategy{calc: calc, oversold: oversold, overbought: overbought}
}

func (s *RSIStrategy) Name() string {
	return fmt.Sprintf("RSI_%g_%g", s.oversold, s.overbought)
}

func (s *RSIStrategy) Detect(klines []domain.KLine, mode DetectMode) []domain.Signal {
	if len(klines) == 0 || len(klines) < s.calc.Config().RSIPeriod {
		return nil
	}
	rsi := s.calc.RSI(klines)

	var signals []domain.Signal
	for i := scanStart(len(rsi), 0, mode); i < len(rsi); i++ {
		v := rsi[i]
		if math.IsNaN(v) {
			continue
		}
		var typ domain.SignalType
		threshold := s.oversold
		switch {
		case v < s.oversold:
			typ = domain.SignalBuy
		case v > s.overbought:
			typ = domain.SignalSell
			threshold = s.overbought
		default:
			continue
		}
		signals = append(signals, newSignal(s.Name(), typ, klines[i], map[string]float64{
			"rsi_value": round2(v),
			"threshold": threshold,
		}))
	}
	return signals
}

// MACDStrategy reports DIF/DEA crosses: golden cross buys, death cross sells.
type MACDStrategy struct {
	calc *IndicatorCalculator
}

func NewMACDStrategy(calc *IndicatorCalculator) *MACDStrategy {
	return &MACDStrategy{calc: calc}
}

func (s *MACDStrategy) Name() string {
	cfg := s.calc.Config()
	return fmt.Sprintf("MACD_Cross_%d_%d_%d", cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
}

func (s *MACDStrategy) Detect(klines []domain.KLine, mode DetectMode) []domain.Signal {
	cfg := s.calc.Config()
	if len(klines) < 2 || len(klines) < cfg.MACDSlow+cfg.MACDSignal {
		return nil
	}
	dif, dea, _ := s.calc.MACD(klines)

	var signals []domain.Signal
	for i := scanStart(len(dif), 1, mode); i < len(dif); i++ {
		var typ domain.SignalType
		var reason string
		switch {
		case dif[i-1] < dea[i-1] && dif[i] > dea[i]:
			typ, reason = domain.SignalBuy, "Golden Cross"
		case dif[i-1] > dea[i-1] && dif[i] < dea[i]:
			typ, reason = domain.SignalSell, "Death Cross"
		default:
			continue
		}
		sig := newSignal(s.Name(), typ, klines[i], map[string]float64{
			"macd_line":   round2(dif[i]),
			"signal_line": round2(dea[i]),
		})
		sig.Reason = reason
		signals = append(signals, sig)
	}
	return signals
}

// CsMaStrategy trades three simple averages. Price falling through the fast
// average sells and takes priority. With medium above slow, a fast/medium
// golden cross or price rising through the slow average buys.
type CsMaStrategy struct {
	calc *IndicatorCalculator
}

func NewCsMaStrategy(calc *IndicatorCalculator) *CsMaStrategy {
	return &CsMaStrategy{calc: calc}
}

func (s *CsMaStrategy) Name() string {
	cfg := s.calc.Config()
	return fmt.Sprintf("CsMaStrategy_%d_%d_%d", cfg.CsMaFast, cfg.CsMaMedium, cfg.CsMaSlow)
}

func (s *CsMaStrategy) Detect(klines []domain.KLine, mode DetectMode) []domain.Signal {
	cfg := s.calc.Config()
	if len(klines) < 2 || len(klines) < cfg.CsMaSlow {
		return nil
	}
	fast, medium, slow := s.calc.CsMa(klines)
	valid := func(i int) bool {
		return !math.IsNaN(fast[i]) && !math.IsNaN(medium[i]) && !math.IsNaN(slow[i])
	}

	var signals []domain.Signal
	for i := scanStart(len(klines), 1, mode); i < len(klines); i++ {
		if !valid(i-1) || !valid(i) {
			continue
		}
		prevClose, curClose := klines[i-1].Close, klines[i].Close

		var typ domain.SignalType
		var reason string
		details := map[string]float64{}
		switch {
		case prevClose > fast[i-1] && curClose < fast[i]:
			typ = domain.SignalSell
			reason = fmt.Sprintf("Price crosses below MA%d", cfg.CsMaFast)
			details["price"] = curClose
			details["ma_fast"] = round2(fast[i])
		case medium[i] <= slow[i]:
			continue
		case fast[i-1] < medium[i-1] && fast[i] > medium[i]:
			typ = domain.SignalBuy
			reason = fmt.Sprintf("MA%d crosses above MA%d", cfg.CsMaFast, cfg.CsMaMedium)
			details["ma_fast"] = round2(fast[i])
			details["ma_medium"] = round2(medium[i])
		case prevClose < slow[i-1] && curClose > slow[i]:
			typ = domain.SignalBuy
			reason = fmt.Sprintf("Price crosses above MA%d", cfg.CsMaSlow)
			details["price"] = curClose
			details["ma_slow"] = round2(slow[i])
		default:
			continue
		}
		sig := newSignal(s.Name(), typ, klines[i], details)
		sig.Reason = reason
		signals = append(signals, sig)
	}
	return signals
}

// StrategyCenter runs the configured strategies in order over one data set.
type StrategyCenter struct {
	registry   map[string]Strategy
	configured []string
	logger     *zap.Logger
}

func NewStrategyCenter(calc *IndicatorCalculator, cfg StrategyConfig, logger *zap.Logger) *StrategyCenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StrategyCenter{
		registry: map[string]Strategy{
			"RSI":       NewRSIStrategy(calc, cfg.RSIOversold, cfg.RSIOverbought),
			"MACD":      NewMACDStrategy(calc),
			"Bollinger": NewBollingerStrategy(calc, cfg.UpperTolerance, cfg.LowerTolerance),
			"Vegas":     NewVegasStrategy(calc),
			"CsMa":      NewCsMaStrategy(calc),
		},
		configured: cfg.Enabled,
		logger:     logger,
	}
}

func (c *StrategyCenter) Run(klines []domain.KLine, mode DetectMode) []domain.Signal {
	if len(c.configured) == 0 {
		c.logger.Warn("No strategies configured")
		return nil
	}
	if len(klines) == 0 {
		return nil
	}

	var all []domain.Signal
	for _, name := range c.configured {
		s, ok := c.registry[name]
		if !ok {
			c.logger.Warn("Strategy not registered, skipping", zap.String("strategy", name))
			continue
		}
		sigs := s.Detect(klines, mode)
		if len(sigs) > 0 {
			c.logger.Debug("Strategy produced signals", zap.String("strategy", s.Name()), zap.Int("count", len(sigs)))
		}
		all = append(all, sigs...)
	}
	return all
}

func newSignal(strategy string, typ domain.SignalType, k domain.KLine, details map[string]float64) domain.Signal {
	return domain.Signal{
		Strategy: strategy,
		Type:     typ,
		Price:    k.Close,
		Open:     k.Open,
		Close:    k.Close,
		Volume:   k.Volume,
		Details:  details,
		Time:     k.Time,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
