// Package storage persists simulation output to SQLite. Writes on the
// scheduler path are best-effort: a failed insert is logged and dropped,
// never propagated into the simulation.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// Sink receives simulation records. Implementations must not block the
// caller on failure.
type Sink interface {
	LogTrade(simTime float64, ticker, trader, side string, qty, price float64, orderType string)
	LogPortfolioSnapshot(simTime float64, trader string, cash, holdingsValue, totalValue float64, holdings map[string]float64)
	LogStockMetrics(simTime float64, ticker string, price, marketCap, totalShares, buyVolume, sellVolume, volatility float64)
	LogTraderPerformance(simTime float64, trader string, totalTrades int, buyVolume, sellVolume, realizedPnL, unrealizedPnL, totalPnL float64)
	LogMarketEvent(simTime float64, eventType string, magnitude float64, tickers []string, description string)
}

// NopSink discards everything. Used by tests and db-less runs.
type NopSink struct{}

func (NopSink) LogTrade(float64, string, string, string, float64, float64, string) {}
func (NopSink) LogPortfolioSnapshot(float64, string, float64, float64, float64, map[string]float64) {
}
func (NopSink) LogStockMetrics(float64, string, float64, float64, float64, float64, float64, float64) {
}
func (NopSink) LogTraderPerformance(float64, string, int, float64, float64, float64, float64, float64) {
}
func (NopSink) LogMarketEvent(float64, string, float64, []string, string) {}

// SimStore is the SQLite-backed Sink plus the offline query side.
type SimStore struct {
	db *sql.DB
}

// NewSimStore opens (or creates) the database and ensures the schema.
func NewSimStore(dbPath string) (*SimStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	return &SimStore{db: db}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		trade_id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp REAL NOT NULL,
		simulation_time REAL NOT NULL,
		ticker TEXT NOT NULL,
		trader_id TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity REAL NOT NULL,
		price REAL NOT NULL,
		total_value REAL NOT NULL,
		order_type TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS portfolio_snapshots (
		snapshot_id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp REAL NOT NULL,
		simulation_time REAL NOT NULL,
		trader_id TEXT NOT NULL,
		cash REAL NOT NULL,
		portfolio_value REAL NOT NULL,
		total_value REAL NOT NULL,
		holdings TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS stock_metrics (
		metric_id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp REAL NOT NULL,
		simulation_time REAL NOT NULL,
		ticker TEXT NOT NULL,
		price REAL NOT NULL,
		market_cap REAL NOT NULL,
		total_shares REAL NOT NULL,
		buy_volume REAL NOT NULL,
		sell_volume REAL NOT NULL,
		volatility REAL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS trader_performance (
		performance_id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp REAL NOT NULL,
		simulation_time REAL NOT NULL,
		trader_id TEXT NOT NULL,
		total_trades INTEGER NOT NULL,
		total_buy_volume REAL NOT NULL,
		total_sell_volume REAL NOT NULL,
		realized_pnl REAL NOT NULL,
		unrealized_pnl REAL NOT NULL,
		total_pnl REAL NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS market_events (
		event_id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp REAL NOT NULL,
		simulation_time REAL NOT NULL,
		event_type TEXT NOT NULL,
		description TEXT NOT NULL,
		affected_tickers TEXT,
		impact_magnitude REAL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE INDEX IF NOT EXISTS idx_trades_ticker ON trades(ticker, timestamp);`,
	`CREATE INDEX IF NOT EXISTS idx_trades_trader ON trades(trader_id, timestamp);`,
	`CREATE INDEX IF NOT EXISTS idx_portfolio_trader ON portfolio_snapshots(trader_id, timestamp);`,
	`CREATE INDEX IF NOT EXISTS idx_stock_ticker ON stock_metrics(ticker, timestamp);`,
}

func wallClock() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// exec runs a best-effort insert.
func (s *SimStore) exec(table, query string, args ...any) {
	if _, err := s.db.Exec(query, args...); err != nil {
		slog.Warn("sink write failed", slog.String("table", table), slog.Any("error", err))
	}
}

func (s *SimStore) LogTrade(simTime float64, ticker, trader, side string, qty, price float64, orderType string) {
	s.exec("trades",
		`INSERT INTO trades (timestamp, simulation_time, ticker, trader_id, side, quantity, price, total_value, order_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wallClock(), simTime, ticker, trader, side, qty, price, qty*price, orderType)
}

func (s *SimStore) LogPortfolioSnapshot(simTime float64, trader string, cash, holdingsValue, totalValue float64, holdings map[string]float64) {
	blob, err := json.Marshal(holdings)
	if err != nil {
		slog.Warn("sink write failed", slog.String("table", "portfolio_snapshots"), slog.Any("error", err))
		return
	}
	s.exec("portfolio_snapshots",
		`INSERT INTO portfolio_snapshots (timestamp, simulation_time, trader_id, cash, portfolio_value, total_value, holdings)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		wallClock(), simTime, trader, cash, holdingsValue, totalValue, string(blob))
}

func (s *SimStore) LogStockMetrics(simTime float64, ticker string, price, marketCap, totalShares, buyVolume, sellVolume, volatility float64) {
	s.exec("stock_metrics",
		`INSERT INTO stock_metrics (timestamp, simulation_time, ticker, price, market_cap, total_shares, buy_volume, sell_volume, volatility)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wallClock(), simTime, ticker, price, marketCap, totalShares, buyVolume, sellVolume, volatility)
}

func (s *SimStore) LogTraderPerformance(simTime float64, trader string, totalTrades int, buyVolume, sellVolume, realizedPnL, unrealizedPnL, totalPnL float64) {
	s.exec("trader_performance",
		`INSERT INTO trader_performance (timestamp, simulation_time, trader_id, total_trades, total_buy_volume, total_sell_volume, realized_pnl, unrealized_pnl, total_pnl)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wallClock(), simTime, trader, totalTrades, buyVolume, sellVolume, realizedPnL, unrealizedPnL, totalPnL)
}

func (s *SimStore) LogMarketEvent(simTime float64, eventType string, magnitude float64, tickers []string, description string) {
	blob, err := json.Marshal(tickers)
	if err != nil {
		slog.Warn("sink write failed", slog.String("table", "market_events"), slog.Any("error", err))
		return
	}
	s.exec("market_events",
		`INSERT INTO market_events (timestamp, simulation_time, event_type, description, affected_tickers, impact_magnitude)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		wallClock(), simTime, eventType, description, string(blob), magnitude)
}

// Close closes the database connection.
func (s *SimStore) Close() error {
	return s.db.Close()
}
