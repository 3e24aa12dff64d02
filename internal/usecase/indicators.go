package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/vitos/cs2_market_watch/internal/domain"
)

var ErrMalformedKLine = errors.New("malformed k-line row")

type IndicatorConfig struct {
	BollingerPeriod int     `yaml:"bollinger_period" env:"BOLLINGER_PERIOD"`
	BollingerStd    float64 `yaml:"bollinger_std" env:"BOLLINGER_STD"`
	VegasEMA1       int     `yaml:"vegas_ema1" env:"VEGAS_EMA1"`
	VegasEMA2       int     `yaml:"vegas_ema2" env:"VEGAS_EMA2"`
	VegasEMA3       int     `yaml:"vegas_ema3" env:"VEGAS_EMA3"`
	RSIPeriod       int     `yaml:"rsi_period" env:"RSI_PERIOD"`
	MACDFast        int     `yaml:"macd_fast" env:"MACD_FAST"`
	MACDSlow        int     `yaml:"macd_slow" env:"MACD_SLOW"`
	MACDSignal      int     `yaml:"macd_signal" env:"MACD_SIGNAL"`
	CsMaFast        int     `yaml:"cs_ma_fast" env:"CS_MA_FAST"`
	CsMaMedium      int     `yaml:"cs_ma_medium" env:"CS_MA_MEDIUM"`
	CsMaSlow        int     `yaml:"cs_ma_slow" env:"CS_MA_SLOW"`
}

func DefaultIndicatorConfig() IndicatorConfig {
	return IndicatorConfig{
		BollingerPeriod: 20,
		BollingerStd:    2,
		VegasEMA1:       12,
		VegasEMA2:       144,
		VegasEMA3:       169,
		RSIPeriod:       14,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		CsMaFast:        7,
		CsMaMedium:      56,
		CsMaSlow:        112,
	}
}

type IndicatorCalculator struct {
	config IndicatorConfig
}

func NewIndicatorCalculator(config IndicatorConfig) *IndicatorCalculator {
	return &IndicatorCalculator{config: config}
}

func (c *IndicatorCalculator) Config() IndicatorConfig {
	return c.config
}

// PrepareKLines converts cleaned positional rows
// [time, open, close, high, low, volume?, amount?] into sorted k-lines.
// Duplicate timestamps keep the last row seen.
func (c *IndicatorCalculator) PrepareKLines(rows [][]any) ([]domain.KLine, error) {
	byTime := make(map[int64]domain.KLine, len(rows))
	for i, row := range rows {
		if len(row) < 5 {
			return nil, fmt.Errorf("%w: row %d has %d fields", ErrMalformedKLine, i, len(row))
		}
		vals := make([]float64, 7)
		for j := 0; j < len(row) && j < 7; j++ {
			f, err := toFloat(row[j])
			if err != nil {
				return nil, fmt.Errorf("%w: row %d field %d: %v", ErrMalformedKLine, i, j, err)
			}
			vals[j] = f
		}
		ts := int64(vals[0])
		byTime[ts] = domain.KLine{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   vals[1],
			Close:  vals[2],
			High:   vals[3],
			Low:    vals[4],
			Volume: vals[5],
			Amount: vals[6],
		}
	}

	klines := make([]domain.KLine, 0, len(byTime))
	for _, k := range byTime {
		klines = append(klines, k)
	}
	sort.Slice(klines, func(i, j int) bool { return klines[i].Time.Before(klines[j].Time) })
	return klines, nil
}

// Bollinger annotates each k-line with SMA(period) of close and bands at
// ±std·σ, σ being the sample standard deviation of the window.
func (c *IndicatorCalculator) Bollinger(klines []domain.KLine) []domain.PricePoint {
	period := c.config.BollingerPeriod
	out := make([]domain.PricePoint, len(klines))
	closes := closesOf(klines)
	middle, std := RollingMeanStd(closes, period)
	for i, k := range klines {
		out[i].KLine = k
		if period <= 0 || math.IsNaN(middle[i]) || math.IsNaN(std[i]) {
			out[i].Middle, out[i].Upper, out[i].Lower = math.NaN(), math.NaN(), math.NaN()
			continue
		}
		out[i].Middle = middle[i]
		out[i].Upper = middle[i] + std[i]*c.config.BollingerStd
		out[i].Lower = middle[i] - std[i]*c.config.BollingerStd
		out[i].Valid = true
	}
	return out
}

// Vegas annotates each k-line with the three channel EMAs.
func (c *IndicatorCalculator) Vegas(klines []domain.KLine) []domain.VegasPoint {
	closes := closesOf(klines)
	e1 := EMA(closes, c.config.VegasEMA1)
	e2 := EMA(closes, c.config.VegasEMA2)
	e3 := EMA(closes, c.config.VegasEMA3)
	out := make([]domain.VegasPoint, len(klines))
	for i, k := range klines {
		out[i] = domain.VegasPoint{KLine: k, EMA1: e1[i], EMA2: e2[i], EMA3: e3[i]}
	}
	return out
}

// RSI is Wilder's RSI over closes, NaN up to index period.
func (c *IndicatorCalculator) RSI(klines []domain.KLine) []float64 {
	return RSI(closesOf(klines), c.config.RSIPeriod)
}

// MACD returns the DIF line, its DEA signal line and the histogram.
func (c *IndicatorCalculator) MACD(klines []domain.KLine) (dif, dea, hist []float64) {
	return MACD(closesOf(klines), c.config.MACDFast, c.config.MACDSlow, c.config.MACDSignal)
}

// CsMa returns the fast, medium and slow simple moving averages of close.
func (c *IndicatorCalculator) CsMa(klines []domain.KLine) (fast, medium, slow []float64) {
	closes := closesOf(klines)
	return SMA(closes, c.config.CsMaFast), SMA(closes, c.config.CsMaMedium), SMA(closes, c.config.CsMaSlow)
}

func closesOf(klines []domain.KLine) []float64 {
	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}
	return closes
}

// RollingMeanStd returns the rolling mean and sample std-dev over window p,
// NaN during warm-up.
func RollingMeanStd(x []float64, p int) (mean, std []float64) {
	n := len(x)
	mean = make([]float64, n)
	std = make([]float64, n)
	for i := 0; i < n; i++ {
		if p <= 1 || i < p-1 {
			mean[i] = math.NaN()
			std[i] = math.NaN()
			continue
		}
		var sum float64
		for _, v := range x[i-p+1 : i+1] {
			sum += v
		}
		m := sum / float64(p)
		var ss float64
		for _, v := range x[i-p+1 : i+1] {
			ss += (v - m) * (v - m)
		}
		mean[i] = m
		std[i] = math.Sqrt(ss / float64(p-1))
	}
	return mean, std
}

// EMA with alpha 2/(p+1) seeded with the first value (no warm-up NaNs).
func EMA(x []float64, p int) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 || p <= 0 {
		return out
	}
	k := 2.0 / float64(p+1)
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = x[i]*k + out[i-1]*(1-k)
	}
	return out
}

// SMA is the simple moving average over window p, NaN during warm-up.
func SMA(x []float64, p int) []float64 {
	out := make([]float64, len(x))
	var sum float64
	for i, v := range x {
		sum += v
		if p > 0 && i >= p {
			sum -= x[i-p]
		}
		if p <= 0 || i < p-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(p)
	}
	return out
}

// RSI uses Wilder smoothing seeded with the simple average of the first p
// changes. A window without losses reads 100.
func RSI(x []float64, p int) []float64 {
	n := len(x)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if p <= 0 || n <= p {
		return out
	}

	var gainSum, lossSum float64
	for i := 1; i <= p; i++ {
		change := x[i] - x[i-1]
		if change >= 0 {
			gainSum += change
		} else {
			lossSum -= change
		}
	}
	avgGain := gainSum / float64(p)
	avgLoss := lossSum / float64(p)
	out[p] = rsiValue(avgGain, avgLoss)

	for i := p + 1; i < n; i++ {
		change := x[i] - x[i-1]
		var gain, loss float64
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(p-1) + gain) / float64(p)
		avgLoss = (avgLoss*float64(p-1) + loss) / float64(p)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}

// MACD is EMA(fast) - EMA(slow) with an EMA(signal) of that difference.
// The EMAs are seeded like EMA, so no value is NaN.
func MACD(x []float64, fast, slow, signal int) (dif, dea, hist []float64) {
	ef := EMA(x, fast)
	es := EMA(x, slow)
	dif = make([]float64, len(x))
	for i := range x {
		dif[i] = ef[i] - es[i]
	}
	dea = EMA(dif, signal)
	hist = make([]float64, len(x))
	for i := range x {
		hist[i] = dif[i] - dea[i]
	}
	return dif, dea, hist
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		if n == "" {
			return 0, nil
		}
		return strconv.ParseFloat(n, 64)
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("unsupported value %T", v)
}
