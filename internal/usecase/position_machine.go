package usecase

import (
	"time"

	"github.com/vitos/cs2_market_watch/internal/domain"
)

// positionMachine holds the FLAT/LONG state of a single backtest run.
// Open is a no-op while long and Close is a no-op while flat.
type positionMachine struct {
	state    domain.PositionState
	position *domain.Position
	trades   []domain.Trade
}

func newPositionMachine() *positionMachine {
	return &positionMachine{state: domain.StateFlat}
}

func (m *positionMachine) State() domain.PositionState {
	return m.state
}

func (m *positionMachine) BuyTime() *time.Time {
	if m.position == nil {
		return nil
	}
	t := m.position.BuyTime
	return &t
}

func (m *positionMachine) Open(at time.Time, price float64) bool {
	if m.state != domain.StateFlat {
		return false
	}
	m.position = &domain.Position{BuyTime: at, BuyPrice: price}
	m.state = domain.StateLong
	return true
}

func (m *positionMachine) Close(at time.Time, price float64) bool {
	if m.state != domain.StateLong || m.position == nil {
		return false
	}
	m.trades = append(m.trades, m.position.Close(at, price))
	m.position = nil
	m.state = domain.StateFlat
	return true
}

func (m *positionMachine) Trades() []domain.Trade {
	return m.trades
}

func (m *positionMachine) Result(strategy string, windowStart, windowLen int) domain.BacktestResult {
	trades := m.trades
	if trades == nil {
		trades = []domain.Trade{}
	}
	res := domain.BacktestResult{
		Strategy:    strategy,
		Trades:      trades,
		Stats:       CalculateStats(trades),
		WindowStart: windowStart,
		WindowLen:   windowLen,
	}
	if m.position != nil {
		open := *m.position
		res.OpenPosition = &open
	}
	return res
}
