package storage

import (
	"encoding/json"
	"fmt"
)

// TradeRecord is one row from the trades table.
type TradeRecord struct {
	SimTime   float64
	Ticker    string
	TraderID  string
	Side      string
	Quantity  float64
	Price     float64
	Value     float64
	OrderType string
}

// PortfolioRecord is one row from the portfolio_snapshots table.
type PortfolioRecord struct {
	SimTime    float64
	TraderID   string
	Cash       float64
	TotalValue float64
	Holdings   map[string]float64
}

// PricePoint is one price observation from stock_metrics.
type PricePoint struct {
	SimTime float64
	Price   float64
}

// EventRecord is one row from the market_events table.
type EventRecord struct {
	SimTime     float64
	EventType   string
	Description string
	Tickers     []string
	Magnitude   float64
}

// SummaryStats aggregates a finished run.
type SummaryStats struct {
	TotalTrades int
	TotalVolume float64
	TotalEvents int
	Traders     int
	Instruments int
}

const tradeColumns = `simulation_time, ticker, trader_id, side, quantity, price, total_value, order_type`

func (s *SimStore) queryTrades(query string, args ...any) ([]TradeRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var r TradeRecord
		if err := rows.Scan(&r.SimTime, &r.Ticker, &r.TraderID, &r.Side, &r.Quantity, &r.Price, &r.Value, &r.OrderType); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TradesByTicker returns all trades in one instrument, oldest first.
func (s *SimStore) TradesByTicker(ticker string) ([]TradeRecord, error) {
	return s.queryTrades(
		`SELECT `+tradeColumns+` FROM trades WHERE ticker = ? ORDER BY simulation_time ASC`, ticker)
}

// TradesByTrader returns all trades by one agent, oldest first.
func (s *SimStore) TradesByTrader(trader string) ([]TradeRecord, error) {
	return s.queryTrades(
		`SELECT `+tradeColumns+` FROM trades WHERE trader_id = ? ORDER BY simulation_time ASC`, trader)
}

// PortfolioHistory returns an agent's snapshots, oldest first.
func (s *SimStore) PortfolioHistory(trader string) ([]PortfolioRecord, error) {
	rows, err := s.db.Query(
		`SELECT simulation_time, trader_id, cash, total_value, holdings
		 FROM portfolio_snapshots WHERE trader_id = ? ORDER BY simulation_time ASC`, trader)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio history: %w", err)
	}
	defer rows.Close()

	var out []PortfolioRecord
	for rows.Next() {
		var r PortfolioRecord
		var blob string
		if err := rows.Scan(&r.SimTime, &r.TraderID, &r.Cash, &r.TotalValue, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(blob), &r.Holdings); err != nil {
			return nil, fmt.Errorf("failed to decode holdings: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PriceHistory returns an instrument's recorded prices, oldest first.
func (s *SimStore) PriceHistory(ticker string) ([]PricePoint, error) {
	rows, err := s.db.Query(
		`SELECT simulation_time, price FROM stock_metrics WHERE ticker = ? ORDER BY simulation_time ASC`, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var out []PricePoint
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.SimTime, &p.Price); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// EventsByType returns matching market events, oldest first. An empty type
// returns every event.
func (s *SimStore) EventsByType(eventType string) ([]EventRecord, error) {
	query := `SELECT simulation_time, event_type, description, affected_tickers, impact_magnitude
		 FROM market_events ORDER BY simulation_time ASC`
	args := []any{}
	if eventType != "" {
		query = `SELECT simulation_time, event_type, description, affected_tickers, impact_magnitude
		 FROM market_events WHERE event_type = ? ORDER BY simulation_time ASC`
		args = append(args, eventType)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var r EventRecord
		var blob string
		if err := rows.Scan(&r.SimTime, &r.EventType, &r.Description, &blob, &r.Magnitude); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(blob), &r.Tickers); err != nil {
			return nil, fmt.Errorf("failed to decode tickers: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary aggregates counts across the whole run.
func (s *SimStore) Summary() (SummaryStats, error) {
	var st SummaryStats
	row := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(quantity), 0), COUNT(DISTINCT trader_id), COUNT(DISTINCT ticker) FROM trades`)
	if err := row.Scan(&st.TotalTrades, &st.TotalVolume, &st.Traders, &st.Instruments); err != nil {
		return st, fmt.Errorf("failed to aggregate trades: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM market_events`).Scan(&st.TotalEvents); err != nil {
		return st, fmt.Errorf("failed to count events: %w", err)
	}
	return st, nil
}
