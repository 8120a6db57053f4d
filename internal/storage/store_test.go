package storage

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SimStore {
	t.Helper()
	s, err := NewSimStore(filepath.Join(t.TempDir(), "sim.db"))
	if err != nil {
		t.Fatalf("NewSimStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTradeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	s.LogTrade(1.5, "AAPL", "alice", "buy", 100, 270.5, "market")
	s.LogTrade(2.0, "AAPL", "bob", "sell", 50, 272, "limit")
	s.LogTrade(2.5, "GOOGL", "alice", "buy", 10, 281, "market")

	trades, err := s.TradesByTicker("AAPL")
	if err != nil {
		t.Fatalf("TradesByTicker: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("got %d AAPL trades, want 2", len(trades))
	}
	tr := trades[0]
	if tr.SimTime != 1.5 || tr.TraderID != "alice" || tr.Side != "buy" ||
		tr.Quantity != 100 || tr.Price != 270.5 || tr.Value != 27050 || tr.OrderType != "market" {
		t.Fatalf("trade = %+v", tr)
	}

	byTrader, err := s.TradesByTrader("alice")
	if err != nil {
		t.Fatalf("TradesByTrader: %v", err)
	}
	if len(byTrader) != 2 {
		t.Fatalf("got %d alice trades, want 2", len(byTrader))
	}
	if byTrader[1].Ticker != "GOOGL" {
		t.Fatalf("trades not ordered by sim time: %+v", byTrader)
	}
}

func TestPortfolioHistoryDecodesHoldings(t *testing.T) {
	s := newTestStore(t)
	s.LogPortfolioSnapshot(1, "alice", 5000, 2000, 7000, map[string]float64{"AAPL": 10, "NVDA": 5})
	s.LogPortfolioSnapshot(2, "alice", 4000, 3500, 7500, map[string]float64{"AAPL": 15})

	hist, err := s.PortfolioHistory("alice")
	if err != nil {
		t.Fatalf("PortfolioHistory: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(hist))
	}
	if hist[0].Holdings["AAPL"] != 10 || hist[0].Holdings["NVDA"] != 5 {
		t.Fatalf("holdings = %v", hist[0].Holdings)
	}
	if hist[1].Cash != 4000 || hist[1].TotalValue != 7500 {
		t.Fatalf("snapshot = %+v", hist[1])
	}
}

func TestPriceHistory(t *testing.T) {
	s := newTestStore(t)
	for i, p := range []float64{100, 101, 99.5} {
		s.LogStockMetrics(float64(i), "AAPL", p, p*1e9, 1e9, 10, 5, 0.01)
	}
	hist, err := s.PriceHistory("AAPL")
	if err != nil {
		t.Fatalf("PriceHistory: %v", err)
	}
	if len(hist) != 3 || hist[2].Price != 99.5 {
		t.Fatalf("history = %+v", hist)
	}
}

func TestEventsByType(t *testing.T) {
	s := newTestStore(t)
	s.LogMarketEvent(1, "market_crash", -0.08, []string{"AAPL", "GOOGL"}, "Market drops on economic concerns")
	s.LogMarketEvent(2, "positive_news", 0.04, []string{"NVDA"}, "NVDA wins major contract")

	crashes, err := s.EventsByType("market_crash")
	if err != nil {
		t.Fatalf("EventsByType: %v", err)
	}
	if len(crashes) != 1 {
		t.Fatalf("got %d crashes, want 1", len(crashes))
	}
	if crashes[0].Magnitude != -0.08 || len(crashes[0].Tickers) != 2 {
		t.Fatalf("event = %+v", crashes[0])
	}

	all, err := s.EventsByType("")
	if err != nil {
		t.Fatalf("EventsByType(all): %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d events, want 2", len(all))
	}
}

func TestSummary(t *testing.T) {
	s := newTestStore(t)
	s.LogTrade(1, "AAPL", "alice", "buy", 100, 100, "market")
	s.LogTrade(2, "GOOGL", "bob", "sell", 40, 200, "market")
	s.LogMarketEvent(1, "sentiment_shift", 0, nil, "Market sentiment turns bullish")

	st, err := s.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if st.TotalTrades != 2 || st.TotalVolume != 140 || st.TotalEvents != 1 {
		t.Fatalf("summary = %+v", st)
	}
	if st.Traders != 2 || st.Instruments != 2 {
		t.Fatalf("summary = %+v", st)
	}
}

func TestTraderPerformanceInsert(t *testing.T) {
	s := newTestStore(t)
	// Write path only; the table is consumed by offline analysis.
	s.LogTraderPerformance(10, "alice", 42, 1000, 400, 1234.5, -56.7, 1177.8)

	var trades int
	var total float64
	err := s.db.QueryRow(`SELECT total_trades, total_pnl FROM trader_performance WHERE trader_id = ?`, "alice").
		Scan(&trades, &total)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if trades != 42 || total != 1177.8 {
		t.Fatalf("got %d/%v", trades, total)
	}
}
