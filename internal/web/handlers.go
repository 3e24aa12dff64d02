package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/vitos/cs2_market_watch/internal/domain"
	"github.com/vitos/cs2_market_watch/internal/usecase"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"fmtTime": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
}).ParseFS(templateFS, "templates/*.html"))

const (
	defaultSignalLimit = 50
	maxSignalLimit     = 500
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	items, err := s.items.ListItems(r.Context())
	if err != nil {
		s.logger.Error("Failed to list items", zap.Error(err))
	}
	signals, err := s.signals.ListLatestSignals(r.Context(), 20)
	if err != nil {
		s.logger.Error("Failed to list signals", zap.Error(err))
	}

	data := map[string]any{
		"Items":   items,
		"Signals": signals,
	}
	if s.tracker != nil {
		data["LastCycle"] = s.tracker.LastCycle()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error("Template error", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":     "ok",
		"started_at": s.startedAt,
	}
	if s.tracker != nil {
		status["last_cycle"] = s.tracker.LastCycle()
	}
	if s.hub != nil {
		status["ws_clients"] = s.hub.Clients()
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.items.ListItems(r.Context())
	if err != nil {
		s.logger.Error("Failed to list items", zap.Error(err))
		http.Error(w, "Failed to list items", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []*domain.Item{}
	}
	s.writeJSON(w, http.StatusOK, items)
}

// klineView carries a k-line with optional overlay values. Bands are null
// during the warm-up rows.
type klineView struct {
	domain.KLine
	Middle *float64 `json:"middle,omitempty"`
	Upper  *float64 `json:"upper,omitempty"`
	Lower  *float64 `json:"lower,omitempty"`
	EMA1   *float64 `json:"ema1,omitempty"`
	EMA2   *float64 `json:"ema2,omitempty"`
	EMA3   *float64 `json:"ema3,omitempty"`
}

func optional(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func (s *Server) handleKLines(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	from, err := parseTimeParam(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Overlays need the full history to warm up, so filter after computing.
	klines, err := s.prices.ListKLines(r.Context(), id, time.Time{}, time.Time{})
	if err != nil {
		s.logger.Error("Failed to list k-lines", zap.String("item_id", id), zap.Error(err))
		http.Error(w, "Failed to list k-lines", http.StatusInternalServerError)
		return
	}

	views := make([]klineView, len(klines))
	for i, k := range klines {
		views[i].KLine = k
	}
	switch r.URL.Query().Get("indicator") {
	case "":
	case usecase.StrategyBollinger:
		for i, p := range s.calc.Bollinger(klines) {
			views[i].Middle, views[i].Upper, views[i].Lower = optional(p.Middle), optional(p.Upper), optional(p.Lower)
		}
	case usecase.StrategyVegas:
		for i, p := range s.calc.Vegas(klines) {
			views[i].EMA1, views[i].EMA2, views[i].EMA3 = optional(p.EMA1), optional(p.EMA2), optional(p.EMA3)
		}
	default:
		http.Error(w, "unknown indicator", http.StatusBadRequest)
		return
	}

	out := make([]klineView, 0, len(views))
	for _, v := range views {
		if !from.IsZero() && v.Time.Before(from) {
			continue
		}
		if !to.IsZero() && v.Time.After(to) {
			continue
		}
		out = append(out, v)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.items.GetItem(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			http.Error(w, "item not found", http.StatusNotFound)
			return
		}
		s.logger.Error("Failed to load item", zap.String("item_id", id), zap.Error(err))
		http.Error(w, "Failed to load item", http.StatusInternalServerError)
		return
	}

	res, err := s.backtests.RunItem(r.Context(), id, r.URL.Query().Get("strategy"))
	if errors.Is(err, usecase.ErrUnknownStrategy) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.logger.Error("Backtest failed", zap.String("item_id", id), zap.Error(err))
		http.Error(w, "Backtest failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBacktestRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	runs, err := s.runs.ListBacktestRuns(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.logger.Error("Failed to list backtest runs", zap.Error(err))
		http.Error(w, "Failed to list backtest runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*domain.BacktestRun{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	signals, err := s.signals.ListLatestSignals(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list signals", zap.Error(err))
		http.Error(w, "Failed to list signals", http.StatusInternalServerError)
		return
	}
	if signals == nil {
		signals = []*domain.Signal{}
	}
	s.writeJSON(w, http.StatusOK, signals)
}

// handleCrawl starts a cycle in the background and returns immediately.
func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		http.Error(w, "tracker not available", http.StatusServiceUnavailable)
		return
	}
	go func() {
		if _, err := s.tracker.RunCycle(s.baseCtx); err != nil {
			s.logger.Warn("Manual crawl failed", zap.Error(err))
		}
	}()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultSignalLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if n > maxSignalLimit {
		n = maxSignalLimit
	}
	return n, nil
}

// parseTimeParam accepts unix seconds or YYYY-MM-DD.
func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if sec, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.New(name + " must be unix seconds or YYYY-MM-DD")
	}
	return t, nil
}
