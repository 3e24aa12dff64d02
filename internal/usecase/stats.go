package usecase

import "github.com/vitos/cs2_market_watch/internal/domain"

// CalculateStats aggregates closed trades. An empty slice yields zero stats.
func CalculateStats(trades []domain.Trade) domain.Statistics {
	n := len(trades)
	if n == 0 {
		return domain.Statistics{}
	}

	var wins int
	var totalProfit, totalPercent, totalDays float64
	maxProfit := trades[0].Profit
	maxLoss := trades[0].Profit

	for _, t := range trades {
		if t.Profit > 0 {
			wins++
		}
		totalProfit += t.Profit
		totalPercent += t.ProfitPercent
		totalDays += float64(t.HoldingDays())
		if t.Profit > maxProfit {
			maxProfit = t.Profit
		}
		if t.Profit < maxLoss {
			maxLoss = t.Profit
		}
	}

	return domain.Statistics{
		TotalTrades:      n,
		WinRate:          float64(wins) / float64(n) * 100,
		AvgProfit:        totalProfit / float64(n),
		AvgProfitPercent: totalPercent / float64(n),
		TotalProfit:      totalProfit,
		MaxProfit:        maxProfit,
		MaxLoss:          maxLoss,
		AvgHoldDays:      totalDays / float64(n),
	}
}
