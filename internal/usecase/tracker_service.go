package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vitos/cs2_market_watch/internal/domain"
	"go.uber.org/zap"
)

type TrackerConfig struct {
	ItemIDs    []string      `yaml:"item_ids" env:"TEST_ITEM_IDS" envSeparator:","`
	ItemDelay  time.Duration `yaml:"item_delay"`
	SignalsDir string        `yaml:"signals_dir"`
	Notify     bool          `yaml:"notify" env:"NOTIFY"`
}

// CycleReport describes the outcome of one crawl cycle.
type CycleReport struct {
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Items      int             `json:"items"`
	Failed     int             `json:"failed"`
	Signals    []domain.Signal `json:"signals"`
	Summary    string          `json:"summary_path,omitempty"`
}

// TrackerService runs the crawl → clean → store → analyse → notify cycle.
type TrackerService struct {
	source    domain.MarketSource
	items     domain.ItemRepository
	prices    domain.PriceRepository
	signals   domain.SignalRepository
	notifier  domain.Notifier
	cleaner   *DataCleaner
	calc      *IndicatorCalculator
	center    *StrategyCenter
	backtests *BacktestService
	config    TrackerConfig
	logger    *zap.Logger

	callbacks []func(domain.Signal)

	mu      sync.RWMutex
	running bool
	last    *CycleReport
	sleep   func(ctx context.Context, d time.Duration)
	timeNow func() time.Time
}

func NewTrackerService(
	source domain.MarketSource,
	items domain.ItemRepository,
	prices domain.PriceRepository,
	signals domain.SignalRepository,
	notifier domain.Notifier,
	cleaner *DataCleaner,
	calc *IndicatorCalculator,
	center *StrategyCenter,
	backtests *BacktestService,
	config TrackerConfig,
	logger *zap.Logger,
) *TrackerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackerService{
		source:    source,
		items:     items,
		prices:    prices,
		signals:   signals,
		notifier:  notifier,
		cleaner:   cleaner,
		calc:      calc,
		center:    center,
		backtests: backtests,
		config:    config,
		logger:    logger,
		sleep:     sleepCtx,
		timeNow:   time.Now,
	}
}

// OnSignal registers a callback invoked for every new signal.
func (s *TrackerService) OnSignal(callback func(domain.Signal)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, callback)
}

func (s *TrackerService) LastCycle() *CycleReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	c := *s.last
	return &c
}

// RunCycle processes every tracked item once. A failing item is logged and
// skipped. Overlapping cycles are rejected.
func (s *TrackerService) RunCycle(ctx context.Context) (*CycleReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("crawl cycle already running")
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	report := &CycleReport{StartedAt: s.timeNow()}
	items, err := s.trackedItems(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Starting crawl cycle", zap.Int("items", len(items)))

	summary := NewSignalSummary()
	for i, item := range items {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		report.Items++

		sigs, err := s.processItem(ctx, item)
		if err != nil {
			report.Failed++
			s.logger.Error("Failed to process item", zap.String("item_id", item.ID), zap.Error(err))
		}
		for _, sig := range sigs {
			summary.Add(sig)
			report.Signals = append(report.Signals, sig)
		}

		if i < len(items)-1 && s.config.ItemDelay > 0 {
			s.sleep(ctx, s.config.ItemDelay)
		}
	}

	if s.config.SignalsDir != "" {
		path, err := summary.Save(s.config.SignalsDir)
		if err != nil {
			s.logger.Error("Failed to save signal summary", zap.Error(err))
		} else if path != "" {
			s.logger.Info("Signal summary saved", zap.String("path", path))
			report.Summary = path
		}
	}

	report.FinishedAt = s.timeNow()
	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	s.logger.Info("Crawl cycle finished",
		zap.Int("items", report.Items),
		zap.Int("failed", report.Failed),
		zap.Int("signals", len(report.Signals)),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (s *TrackerService) trackedItems(ctx context.Context) ([]domain.Item, error) {
	if len(s.config.ItemIDs) > 0 {
		items := make([]domain.Item, 0, len(s.config.ItemIDs))
		for _, id := range s.config.ItemIDs {
			item := domain.Item{ID: id, Name: id}
			if stored, err := s.items.GetItem(ctx, id); err == nil && stored != nil {
				item = *stored
			}
			items = append(items, item)
		}
		return items, nil
	}

	folders, err := s.source.GetFavoriteItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list favourite items: %w", err)
	}
	seen := make(map[string]bool)
	var items []domain.Item
	for _, f := range folders {
		for _, it := range f.Items {
			if seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			it.Folder = f.Name
			items = append(items, it)
		}
	}
	return items, nil
}

func (s *TrackerService) processItem(ctx context.Context, item domain.Item) ([]domain.Signal, error) {
	raw, err := s.source.GetKLineHistory(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	cleaned := s.cleaner.CleanKLineData(raw, true)
	klines, err := s.calc.PrepareKLines(cleaned)
	if err != nil {
		return nil, err
	}
	if len(klines) == 0 {
		s.logger.Warn("No usable k-lines", zap.String("item_id", item.ID))
		return nil, nil
	}

	item.LastUpdated = s.timeNow()
	if err := s.items.SaveItem(ctx, &item); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}
	n, err := s.prices.SaveKLines(ctx, item.ID, klines)
	if err != nil {
		return nil, fmt.Errorf("save k-lines: %w", err)
	}
	s.logger.Debug("Stored k-lines", zap.String("item_id", item.ID), zap.Int("new", n), zap.Int("total", len(klines)))

	signals := s.center.Run(klines, ModeNewest)
	if len(signals) == 0 {
		return nil, nil
	}

	var digest string
	if s.backtests != nil {
		if res, err := s.backtests.RunKLines(StrategyBollinger, klines); err == nil {
			digest = ShortSummary(res.Stats)
		}
	}

	for i := range signals {
		signals[i].ItemID = item.ID
		signals[i].ItemName = item.Name
		if err := s.signals.SaveSignal(ctx, &signals[i]); err != nil {
			s.logger.Error("Failed to save signal", zap.String("item_id", item.ID), zap.Error(err))
		}
		s.logger.Info("Signal detected",
			zap.String("item_id", item.ID),
			zap.String("strategy", signals[i].Strategy),
			zap.String("type", string(signals[i].Type)),
			zap.Float64("price", signals[i].Price),
		)
		s.emit(signals[i])
		s.notify(ctx, signals[i], digest)
	}
	return signals, nil
}

func (s *TrackerService) emit(sig domain.Signal) {
	s.mu.RLock()
	callbacks := append([]func(domain.Signal){}, s.callbacks...)
	s.mu.RUnlock()
	for _, cb := range callbacks {
		cb(sig)
	}
}

func (s *TrackerService) notify(ctx context.Context, sig domain.Signal, digest string) {
	if !s.config.Notify || s.notifier == nil {
		return
	}
	title := fmt.Sprintf("%s %s", strings.ToUpper(string(sig.Type)), sig.ItemName)
	msg := FormatSignalMessage(sig)
	if digest != "" {
		msg += "\nBacktest: " + digest
	}
	tag := "chart_with_upwards_trend"
	if sig.Type == domain.SignalSell {
		tag = "chart_with_downwards_trend"
	}
	if err := s.notifier.Notify(ctx, title, msg, tag); err != nil {
		s.logger.Error("Failed to send notification", zap.String("item_id", sig.ItemID), zap.Error(err))
	}
}

// FormatSignalMessage renders a signal as a chat message body.
func FormatSignalMessage(sig domain.Signal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)\n", sig.ItemName, sig.ItemID)
	fmt.Fprintf(&sb, "Strategy: %s\n", sig.Strategy)
	fmt.Fprintf(&sb, "Signal: %s at %.2f\n", sig.Type, sig.Price)
	if sig.Reason != "" {
		fmt.Fprintf(&sb, "Reason: %s\n", sig.Reason)
	}
	fmt.Fprintf(&sb, "Open %.2f / Close %.2f\n", sig.Open, sig.Close)
	fmt.Fprintf(&sb, "Time: %s", sig.Time.Format(reportTimeLayout))
	return sb.String()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
