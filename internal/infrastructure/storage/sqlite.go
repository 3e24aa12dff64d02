package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/cs2_market_watch/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// one writer; the tracker and the web API share the handle
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			name TEXT,
			folder TEXT,
			last_updated DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			open REAL NOT NULL,
			close REAL NOT NULL,
			high REAL NOT NULL,
			low REAL NOT NULL,
			volume REAL NOT NULL DEFAULT 0,
			amount REAL NOT NULL DEFAULT 0,
			UNIQUE(item_id, timestamp)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_item_ts ON price_history(item_id, timestamp);`,
		`CREATE TABLE IF NOT EXISTS trading_signals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id TEXT NOT NULL,
			item_name TEXT,
			strategy TEXT NOT NULL,
			signal_type TEXT NOT NULL,
			price REAL NOT NULL,
			open REAL NOT NULL DEFAULT 0,
			close REAL NOT NULL DEFAULT 0,
			volume REAL NOT NULL DEFAULT 0,
			details TEXT,
			reason TEXT,
			timestamp DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trading_signals_item ON trading_signals(item_id);`,
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id TEXT PRIMARY KEY,
			item_id TEXT NOT NULL,
			strategy TEXT NOT NULL,
			params TEXT,
			stats TEXT NOT NULL,
			open_position BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

// ItemRepository Implementation

func (s *SQLiteStore) SaveItem(ctx context.Context, item *domain.Item) error {
	query := `INSERT INTO items (id, name, folder, last_updated) VALUES (?, ?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET
			  name=excluded.name,
			  folder=excluded.folder,
			  last_updated=excluded.last_updated`
	_, err := s.db.ExecContext(ctx, query, item.ID, item.Name, item.Folder, item.LastUpdated)
	return err
}

func (s *SQLiteStore) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, folder, last_updated FROM items WHERE id = ?`, id)

	var it domain.Item
	var name, folder sql.NullString
	if err := row.Scan(&it.ID, &name, &folder, &it.LastUpdated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}
	it.Name, it.Folder = name.String, folder.String
	return &it, nil
}

func (s *SQLiteStore) ListItems(ctx context.Context) ([]*domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, folder, last_updated FROM items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		var it domain.Item
		var name, folder sql.NullString
		if err := rows.Scan(&it.ID, &name, &folder, &it.LastUpdated); err != nil {
			return nil, err
		}
		it.Name, it.Folder = name.String, folder.String
		items = append(items, &it)
	}
	return items, rows.Err()
}

// PriceRepository Implementation

// SaveKLines inserts rows not yet stored and returns how many were new.
func (s *SQLiteStore) SaveKLines(ctx context.Context, itemID string, klines []domain.KLine) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO price_history
		(item_id, timestamp, open, close, high, low, volume, amount) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, k := range klines {
		res, err := stmt.ExecContext(ctx, itemID, k.Time.Unix(), k.Open, k.Close, k.High, k.Low, k.Volume, k.Amount)
		if err != nil {
			return 0, fmt.Errorf("insert k-line %d: %w", k.Time.Unix(), err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListKLines returns rows in ascending time. A zero from or to leaves that
// side of the range open.
func (s *SQLiteStore) ListKLines(ctx context.Context, itemID string, from, to time.Time) ([]domain.KLine, error) {
	query := `SELECT timestamp, open, close, high, low, volume, amount FROM price_history WHERE item_id = ?`
	args := []any{itemID}
	if !from.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, from.Unix())
	}
	if !to.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, to.Unix())
	}
	query += ` ORDER BY timestamp ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var klines []domain.KLine
	for rows.Next() {
		var k domain.KLine
		var ts int64
		if err := rows.Scan(&ts, &k.Open, &k.Close, &k.High, &k.Low, &k.Volume, &k.Amount); err != nil {
			return nil, err
		}
		k.Time = time.Unix(ts, 0).UTC()
		klines = append(klines, k)
	}
	return klines, rows.Err()
}

// SignalRepository Implementation

func (s *SQLiteStore) SaveSignal(ctx context.Context, sig *domain.Signal) error {
	details, err := json.Marshal(sig.Details)
	if err != nil {
		return err
	}
	query := `INSERT INTO trading_signals (item_id, item_name, strategy, signal_type, price, open, close, volume, details, reason, timestamp, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		sig.ItemID, sig.ItemName, sig.Strategy, string(sig.Type), sig.Price, sig.Open, sig.Close, sig.Volume,
		string(details), sig.Reason, sig.Time, time.Now())
	if err != nil {
		return err
	}
	sig.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) ListLatestSignals(ctx context.Context, limit int) ([]*domain.Signal, error) {
	query := `SELECT id, item_id, item_name, strategy, signal_type, price, open, close, volume, details, reason, timestamp
			  FROM trading_signals ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []*domain.Signal
	for rows.Next() {
		var sig domain.Signal
		var name, details, reason sql.NullString
		var typ string
		if err := rows.Scan(&sig.ID, &sig.ItemID, &name, &sig.Strategy, &typ, &sig.Price, &sig.Open, &sig.Close, &sig.Volume, &details, &reason, &sig.Time); err != nil {
			return nil, err
		}
		sig.ItemName = name.String
		sig.Reason = reason.String
		sig.Type = domain.SignalType(typ)
		if details.Valid && details.String != "" && details.String != "null" {
			if err := json.Unmarshal([]byte(details.String), &sig.Details); err != nil {
				return nil, fmt.Errorf("decode signal %d details: %w", sig.ID, err)
			}
		}
		signals = append(signals, &sig)
	}
	return signals, rows.Err()
}

// BacktestRepository Implementation

func (s *SQLiteStore) SaveBacktestRun(ctx context.Context, run *domain.BacktestRun) error {
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return err
	}
	query := `INSERT INTO backtest_runs (id, item_id, strategy, params, stats, open_position, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query, run.ID, run.ItemID, run.Strategy, run.Params, string(stats), run.Open, run.CreatedAt)
	return err
}

func (s *SQLiteStore) ListBacktestRuns(ctx context.Context, itemID string, limit int) ([]*domain.BacktestRun, error) {
	query := `SELECT id, item_id, strategy, params, stats, open_position, created_at FROM backtest_runs
			  WHERE item_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, itemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.BacktestRun
	for rows.Next() {
		var r domain.BacktestRun
		var params sql.NullString
		var stats string
		if err := rows.Scan(&r.ID, &r.ItemID, &r.Strategy, &params, &stats, &r.Open, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Params = params.String
		if err := json.Unmarshal([]byte(stats), &r.Stats); err != nil {
			return nil, fmt.Errorf("decode backtest run %s stats: %w", r.ID, err)
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}
