package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vitos/cs2_market_watch/internal/domain"
	"go.uber.org/zap"
)

var ErrUnknownStrategy = errors.New("unknown backtest strategy")

// BacktestService loads stored history and runs the backtesters over it.
type BacktestService struct {
	prices    domain.PriceRepository
	runs      domain.BacktestRepository
	calc      *IndicatorCalculator
	bollinger *BollingerBacktester
	vegas     *VegasBacktester
	logger    *zap.Logger
	timeNow   func() time.Time
}

func NewBacktestService(
	prices domain.PriceRepository,
	runs domain.BacktestRepository,
	calc *IndicatorCalculator,
	bollinger *BollingerBacktester,
	vegas *VegasBacktester,
	logger *zap.Logger,
) *BacktestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestService{
		prices:    prices,
		runs:      runs,
		calc:      calc,
		bollinger: bollinger,
		vegas:     vegas,
		logger:    logger,
		timeNow:   time.Now,
	}
}

// RunKLines runs the named strategy over already prepared k-lines.
func (s *BacktestService) RunKLines(strategy string, klines []domain.KLine) (domain.BacktestResult, error) {
	switch strategy {
	case StrategyBollinger, "":
		return s.bollinger.Run(s.calc.Bollinger(klines)), nil
	case StrategyVegas:
		return s.vegas.Run(s.calc.Vegas(klines)), nil
	}
	return domain.BacktestResult{}, fmt.Errorf("%w: %s", ErrUnknownStrategy, strategy)
}

// RunItem backtests the full stored history of one item and records the run.
func (s *BacktestService) RunItem(ctx context.Context, itemID, strategy string) (domain.BacktestResult, error) {
	klines, err := s.prices.ListKLines(ctx, itemID, time.Time{}, time.Time{})
	if err != nil {
		return domain.BacktestResult{}, fmt.Errorf("load history for %s: %w", itemID, err)
	}
	res, err := s.RunKLines(strategy, klines)
	if err != nil {
		return res, err
	}

	if s.runs != nil {
		if err := s.record(ctx, itemID, res); err != nil {
			s.logger.Error("Failed to save backtest run", zap.String("item_id", itemID), zap.Error(err))
		}
	}
	return res, nil
}

func (s *BacktestService) record(ctx context.Context, itemID string, res domain.BacktestResult) error {
	var params any = s.bollinger.Config()
	if res.Strategy == StrategyVegas {
		params = s.vegas.config
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return s.runs.SaveBacktestRun(ctx, &domain.BacktestRun{
		ID:        uuid.NewString(),
		ItemID:    itemID,
		Strategy:  res.Strategy,
		Params:    string(raw),
		Stats:     res.Stats,
		Open:      res.OpenPosition != nil,
		CreatedAt: s.timeNow(),
	})
}
