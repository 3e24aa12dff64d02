package usecase

import (
	"fmt"
	"io"
	"strings"

	"github.com/vitos/cs2_market_watch/internal/domain"
	"go.uber.org/zap"
)

const reportTimeLayout = "2006-01-02 15:04:05"

type Reporter struct {
	logger *zap.Logger
}

func NewReporter(logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{logger: logger}
}

// Write renders the trade log and the aggregate lines.
func (r *Reporter) Write(w io.Writer, title string, res domain.BacktestResult) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "\n=== %s ===\n", title)
	fmt.Fprintf(&sb, "\nTrades (%d):\n", res.Stats.TotalTrades)
	sb.WriteString(strings.Repeat("-", 80) + "\n")
	for _, t := range res.Trades {
		fmt.Fprintf(&sb, "Buy:  %s price: %.2f\n", t.BuyTime.Format(reportTimeLayout), t.BuyPrice)
		fmt.Fprintf(&sb, "Sell: %s price: %.2f\n", t.SellTime.Format(reportTimeLayout), t.SellPrice)
		fmt.Fprintf(&sb, "Profit: %.2f (%.2f%%)\n", t.Profit, t.ProfitPercent)
		sb.WriteString(strings.Repeat("-", 80) + "\n")
	}
	if res.OpenPosition != nil {
		fmt.Fprintf(&sb, "Open position: bought %s at %.2f (not counted)\n",
			res.OpenPosition.BuyTime.Format(reportTimeLayout), res.OpenPosition.BuyPrice)
	}

	sb.WriteString(FormatStats(res.Stats))

	r.logger.Info("Backtest finished",
		zap.String("strategy", res.Strategy),
		zap.Int("trades", res.Stats.TotalTrades),
		zap.Float64("win_rate", res.Stats.WinRate),
		zap.Float64("total_profit", res.Stats.TotalProfit),
		zap.Bool("open_position", res.OpenPosition != nil),
	)

	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatStats renders the aggregate block used by reports and notifications.
func FormatStats(s domain.Statistics) string {
	var sb strings.Builder
	sb.WriteString("\nStatistics:\n")
	fmt.Fprintf(&sb, "Total trades: %d\n", s.TotalTrades)
	fmt.Fprintf(&sb, "Win rate: %.2f%%\n", s.WinRate)
	fmt.Fprintf(&sb, "Average profit: %.2f\n", s.AvgProfit)
	fmt.Fprintf(&sb, "Average profit percent: %.2f%%\n", s.AvgProfitPercent)
	fmt.Fprintf(&sb, "Total profit: %.2f\n", s.TotalProfit)
	fmt.Fprintf(&sb, "Max profit: %.2f\n", s.MaxProfit)
	fmt.Fprintf(&sb, "Max loss: %.2f\n", s.MaxLoss)
	fmt.Fprintf(&sb, "Average holding days: %.1f\n", s.AvgHoldDays)
	return sb.String()
}

// ShortSummary is a one-line digest for chat messages.
func ShortSummary(s domain.Statistics) string {
	return fmt.Sprintf("trades=%d win=%.1f%% avg=%.2f%% max=%.2f min=%.2f hold=%.1fd",
		s.TotalTrades, s.WinRate, s.AvgProfitPercent, s.MaxProfit, s.MaxLoss, s.AvgHoldDays)
}
