package usecase_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/cs2_market_watch/internal/domain"
	"github.com/vitos/cs2_market_watch/internal/usecase"
)

func trade(buyDay, sellDay int, buy, sell float64) domain.Trade {
	return domain.Position{BuyTime: day(buyDay), BuyPrice: buy}.Close(day(sellDay), sell)
}

func TestCalculateStats_Empty(t *testing.T) {
	assert.Equal(t, domain.Statistics{}, usecase.CalculateStats(nil))
	assert.Equal(t, domain.Statistics{}, usecase.CalculateStats([]domain.Trade{}))
}

func TestCalculateStats_WinAndLoss(t *testing.T) {
	stats := usecase.CalculateStats([]domain.Trade{
		trade(0, 6, 100, 120),
		trade(10, 20, 100, 80),
	})

	assert.Equal(t, 2, stats.TotalTrades)
	assert.Equal(t, 50.0, stats.WinRate)
	assert.Equal(t, 0.0, stats.TotalProfit)
	assert.Equal(t, 0.0, stats.AvgProfit)
	assert.Equal(t, 0.0, stats.AvgProfitPercent)
	assert.Equal(t, 20.0, stats.MaxProfit)
	assert.Equal(t, -20.0, stats.MaxLoss)
	assert.Equal(t, 8.0, stats.AvgHoldDays)
}

func TestCalculateStats_AllWinners(t *testing.T) {
	stats := usecase.CalculateStats([]domain.Trade{
		trade(0, 5, 10, 12),
		trade(6, 11, 10, 15),
		trade(12, 20, 20, 21),
	})

	assert.Equal(t, 100.0, stats.WinRate)
	assert.Equal(t, 8.0, stats.TotalProfit)
	assert.InDelta(t, 8.0/3, stats.AvgProfit, 1e-12)
	assert.InDelta(t, (20.0+50.0+5.0)/3, stats.AvgProfitPercent, 1e-12)
	assert.Equal(t, 5.0, stats.MaxProfit)
	assert.Equal(t, 1.0, stats.MaxLoss, "smallest profit even when positive")
}

func TestCalculateStats_BreakEvenIsNotAWin(t *testing.T) {
	stats := usecase.CalculateStats([]domain.Trade{trade(0, 5, 50, 50)})
	assert.Equal(t, 0.0, stats.WinRate)
	assert.Equal(t, 0.0, stats.MaxProfit)
}

func TestPositionClose_ProfitExact(t *testing.T) {
	buy, sell := 37.5, 41.25
	tr := trade(0, 9, buy, sell)
	assert.Equal(t, sell-buy, tr.Profit)
	assert.Equal(t, (sell-buy)/buy*100, tr.ProfitPercent)
	assert.Equal(t, 9, tr.HoldingDays())
}

func TestReporter_Write(t *testing.T) {
	res := domain.BacktestResult{
		Strategy: usecase.StrategyBollinger,
		Trades:   []domain.Trade{trade(0, 6, 100, 120), trade(10, 20, 100, 80)},
		OpenPosition: &domain.Position{
			BuyTime: day(25), BuyPrice: 77,
		},
	}
	res.Stats = usecase.CalculateStats(res.Trades)

	var buf bytes.Buffer
	require.NoError(t, usecase.NewReporter(nil).Write(&buf, "AK-47 | Redline", res))
	out := buf.String()

	assert.Contains(t, out, "=== AK-47 | Redline ===")
	assert.Contains(t, out, "Trades (2):")
	assert.Contains(t, out, "Buy:  2024-01-01 00:00:00 price: 100.00")
	assert.Contains(t, out, "Sell: 2024-01-07 00:00:00 price: 120.00")
	assert.Contains(t, out, "Profit: -20.00 (-20.00%)")
	assert.Contains(t, out, "Open position: bought 2024-01-26 00:00:00 at 77.00")
	assert.Contains(t, out, "Win rate: 50.00%")
	assert.Contains(t, out, "Max loss: -20.00")
	assert.Equal(t, 2, strings.Count(out, "Buy:"))
}

func TestShortSummary(t *testing.T) {
	s := domain.Statistics{TotalTrades: 4, WinRate: 75, AvgProfitPercent: 3.456, MaxProfit: 12, MaxLoss: -2, AvgHoldDays: 7.3}
	assert.Equal(t, "trades=4 win=75.0% avg=3.46% max=12.00 min=-2.00 hold=7.3d", usecase.ShortSummary(s))
}
