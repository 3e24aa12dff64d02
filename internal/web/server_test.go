package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/cs2_market_watch/internal/domain"
	"github.com/vitos/cs2_market_watch/internal/infrastructure/storage"
	"github.com/vitos/cs2_market_watch/internal/usecase"
)

type fakeTracker struct {
	calls   atomic.Int32
	last    *usecase.CycleReport
	lastCtx atomic.Value
}

func (f *fakeTracker) RunCycle(ctx context.Context) (*usecase.CycleReport, error) {
	f.lastCtx.Store(ctx)
	f.calls.Add(1)
	return f.last, nil
}

// brokenItems fails every item lookup with a storage error.
type brokenItems struct {
	domain.ItemRepository
}

func (brokenItems) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	return nil, errors.New("database is locked")
}

func (f *fakeTracker) LastCycle() *usecase.CycleReport {
	return f.last
}

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

type testEnv struct {
	srv       *httptest.Server
	hub       *SignalHub
	tracker   *fakeTracker
	store     *storage.SQLiteStore
	backtests *usecase.BacktestService
	calc      *usecase.IndicatorCalculator
	cancel    context.CancelFunc
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.SaveItem(ctx, &domain.Item{ID: "553370", Name: "AWP | Asiimov", Folder: "Rifles", LastUpdated: day(30)}))
	klines := make([]domain.KLine, 30)
	for i := range klines {
		c := 100 + float64(i%5)
		klines[i] = domain.KLine{Time: day(i), Open: c, Close: c, High: c + 1, Low: c - 1, Volume: 10}
	}
	_, err = store.SaveKLines(ctx, "553370", klines)
	require.NoError(t, err)
	require.NoError(t, store.SaveSignal(ctx, &domain.Signal{
		ItemID: "553370", ItemName: "AWP | Asiimov", Strategy: "Bollinger_20_2",
		Type: domain.SignalBuy, Price: 99, Time: day(29),
	}))

	calc := usecase.NewIndicatorCalculator(usecase.DefaultIndicatorConfig())
	backtests := usecase.NewBacktestService(store, store, calc,
		usecase.NewBollingerBacktester(usecase.DefaultBollingerBacktestConfig()),
		usecase.NewVegasBacktester(usecase.DefaultVegasBacktestConfig()),
		nil,
	)
	baseCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	env := &testEnv{
		hub:       NewSignalHub(nil),
		tracker:   &fakeTracker{last: &usecase.CycleReport{Items: 1, FinishedAt: day(30)}},
		store:     store,
		backtests: backtests,
		calc:      calc,
		cancel:    cancel,
	}
	server := NewServer(baseCtx, 0, store, store, store, store, backtests, calc, env.tracker, env.hub, nil)
	env.srv = httptest.NewServer(server.Handler())
	t.Cleanup(env.srv.Close)
	t.Cleanup(env.hub.Close)
	return env
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestServer_ListItems(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.get(t, "/api/items")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var items []domain.Item
	require.NoError(t, json.Unmarshal(body, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "AWP | Asiimov", items[0].Name)
}

func TestServer_KLinesWithBollinger(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.get(t, "/api/items/553370/klines?indicator=bollinger")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 30)
	assert.NotContains(t, rows[18], "upper", "warm-up rows have no bands")
	assert.Contains(t, rows[19], "upper")
	assert.InDelta(t, 102.0, rows[19]["middle"], 1e-9)
}

func TestServer_KLinesRangeAndErrors(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/items/553370/klines?from=2024-01-26&indicator=vegas")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(body, &rows))
	assert.Len(t, rows, 5)
	assert.Contains(t, rows[0], "ema3")

	resp, _ = env.get(t, "/api/items/553370/klines?indicator=macd")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.get(t, "/api/items/553370/klines?from=yesterday")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Backtest(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/items/553370/backtest?strategy=bollinger")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res domain.BacktestResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, usecase.StrategyBollinger, res.Strategy)
	assert.Equal(t, 30, res.WindowLen)

	resp, body = env.get(t, "/api/items/553370/backtests")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var runs []domain.BacktestRun
	require.NoError(t, json.Unmarshal(body, &runs))
	assert.Len(t, runs, 1)

	resp, _ = env.get(t, "/api/items/553370/backtest?strategy=macd")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.get(t, "/api/items/missing/backtest")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_BacktestItemLookupError(t *testing.T) {
	env := newTestEnv(t)
	server := NewServer(context.Background(), 0, brokenItems{env.store}, env.store, env.store, env.store,
		env.backtests, env.calc, env.tracker, nil, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/553370/backtest", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	runs, err := env.store.ListBacktestRuns(context.Background(), "553370", 10)
	require.NoError(t, err)
	assert.Empty(t, runs, "backtest must not run when the item lookup fails")
}

func TestServer_WriteJSONEncodeFailure(t *testing.T) {
	server := NewServer(context.Background(), 0, nil, nil, nil, nil, nil, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	server.writeJSON(rec, http.StatusOK, map[string]float64{"avg_profit_percent": math.Inf(1)})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = httptest.NewRecorder()
	server.writeJSON(rec, http.StatusCreated, map[string]int{"n": 1})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}

func TestServer_Signals(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/signals?limit=5")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sigs []domain.Signal
	require.NoError(t, json.Unmarshal(body, &sigs))
	require.Len(t, sigs, 1)
	assert.Equal(t, domain.SignalBuy, sigs[0].Type)

	resp, _ = env.get(t, "/api/signals?limit=-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_StatusAndDashboard(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status map[string]any
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, "ok", status["status"])
	assert.Contains(t, status, "last_cycle")

	resp, body = env.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "AWP | Asiimov")
	assert.Contains(t, string(body), "1 items, 0 failed")

	resp, _ = env.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Crawl(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.srv.URL+"/api/crawl", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Eventually(t, func() bool { return env.tracker.calls.Load() == 1 }, time.Second, 10*time.Millisecond)

	crawlCtx := env.tracker.lastCtx.Load().(context.Context)
	assert.NoError(t, crawlCtx.Err())
	env.cancel()
	assert.ErrorIs(t, crawlCtx.Err(), context.Canceled, "manual crawl follows the server's base context")
}

func TestSignalHub_Broadcast(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws/signals"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	env.hub.Broadcast(domain.Signal{ItemID: "553370", Type: domain.SignalSell, Price: 120, Time: day(31)})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got domain.Signal
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "553370", got.ItemID)
	assert.Equal(t, domain.SignalSell, got.Type)

	conn.Close()
	assert.Eventually(t, func() bool { return env.hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
