package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vitos/cs2_market_watch/internal/domain"
	"github.com/vitos/cs2_market_watch/internal/usecase"
	"go.uber.org/zap"
)

// CycleRunner is the part of the tracker the web layer drives.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*usecase.CycleReport, error)
	LastCycle() *usecase.CycleReport
}

type Server struct {
	router    *http.ServeMux
	server    *http.Server
	items     domain.ItemRepository
	prices    domain.PriceRepository
	signals   domain.SignalRepository
	runs      domain.BacktestRepository
	backtests *usecase.BacktestService
	calc      *usecase.IndicatorCalculator
	tracker   CycleRunner
	hub       *SignalHub
	logger    *zap.Logger
	baseCtx   context.Context
	startedAt time.Time
}

// NewServer builds the HTTP server. Background work started by handlers, such
// as a manual crawl, runs under ctx.
func NewServer(
	ctx context.Context,
	port int,
	items domain.ItemRepository,
	prices domain.PriceRepository,
	signals domain.SignalRepository,
	runs domain.BacktestRepository,
	backtests *usecase.BacktestService,
	calc *usecase.IndicatorCalculator,
	tracker CycleRunner,
	hub *SignalHub,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Server{
		router:    http.NewServeMux(),
		items:     items,
		prices:    prices,
		signals:   signals,
		runs:      runs,
		backtests: backtests,
		calc:      calc,
		tracker:   tracker,
		hub:       hub,
		logger:    logger,
		baseCtx:   ctx,
		startedAt: time.Now(),
	}
	s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	// Dashboard
	s.router.HandleFunc("GET /{$}", s.handleDashboard)

	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)

	// Items and history
	s.router.HandleFunc("GET /api/items", s.handleListItems)
	s.router.HandleFunc("GET /api/items/{id}/klines", s.handleKLines)

	// Backtests
	s.router.HandleFunc("GET /api/items/{id}/backtest", s.handleBacktest)
	s.router.HandleFunc("GET /api/items/{id}/backtests", s.handleBacktestRuns)

	// Signals
	s.router.HandleFunc("GET /api/signals", s.handleListSignals)
	if s.hub != nil {
		s.router.Handle("GET /ws/signals", s.hub)
	}

	// Manual crawl
	s.router.HandleFunc("POST /api/crawl", s.handleCrawl)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	return s.server.Shutdown(ctx)
}
