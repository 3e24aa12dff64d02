package usecase_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vitos/cs2_market_watch/internal/domain"
)

type MockMarketSource struct {
	mock.Mock
}

func (m *MockMarketSource) GetFavoriteItems(ctx context.Context) ([]domain.FavoriteFolder, error) {
	args := m.Called(ctx)
	folders, _ := args.Get(0).([]domain.FavoriteFolder)
	return folders, args.Error(1)
}

func (m *MockMarketSource) GetKLineHistory(ctx context.Context, itemID string) ([]any, error) {
	args := m.Called(ctx, itemID)
	rows, _ := args.Get(0).([]any)
	return rows, args.Error(1)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) SaveItem(ctx context.Context, item *domain.Item) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockStore) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*domain.Item)
	return item, args.Error(1)
}

func (m *MockStore) ListItems(ctx context.Context) ([]*domain.Item, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]*domain.Item)
	return items, args.Error(1)
}

func (m *MockStore) SaveKLines(ctx context.Context, itemID string, klines []domain.KLine) (int, error) {
	args := m.Called(ctx, itemID, klines)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) ListKLines(ctx context.Context, itemID string, from, to time.Time) ([]domain.KLine, error) {
	args := m.Called(ctx, itemID, from, to)
	klines, _ := args.Get(0).([]domain.KLine)
	return klines, args.Error(1)
}

func (m *MockStore) SaveSignal(ctx context.Context, signal *domain.Signal) error {
	return m.Called(ctx, signal).Error(0)
}

func (m *MockStore) ListLatestSignals(ctx context.Context, limit int) ([]*domain.Signal, error) {
	args := m.Called(ctx, limit)
	sigs, _ := args.Get(0).([]*domain.Signal)
	return sigs, args.Error(1)
}

func (m *MockStore) SaveBacktestRun(ctx context.Context, run *domain.BacktestRun) error {
	return m.Called(ctx, run).Error(0)
}

func (m *MockStore) ListBacktestRuns(ctx context.Context, itemID string, limit int) ([]*domain.BacktestRun, error) {
	args := m.Called(ctx, itemID, limit)
	runs, _ := args.Get(0).([]*domain.BacktestRun)
	return runs, args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, title, message string, tags ...string) error {
	return m.Called(ctx, title, message, tags).Error(0)
}
