package engine

import (
	"math/rand"
	"testing"

	"github.com/Sashreek007/MarketDynamicsSim/internal/book"
	"github.com/Sashreek007/MarketDynamicsSim/internal/market"
	"github.com/Sashreek007/MarketDynamicsSim/internal/storage"
	"github.com/Sashreek007/MarketDynamicsSim/internal/trader"
)

func newProcMarket() *market.Market {
	return market.New(
		market.Params{PriceImpactFactor: 0.1, BaseVolatility: 0.02, TypicalVolume: 1000},
		[]market.InstrumentSpec{{Ticker: "AAPL", Price: 100, SharesOutstanding: 1e9}},
	)
}

// buyEverything is a test strategy with a fixed oversized intent.
type buyEverything struct{ qty float64 }

func (*buyEverything) Name() string { return "buy_everything" }
func (s *buyEverything) Decide(market.Snapshot, *trader.Ledger, *rand.Rand) *trader.Intent {
	return &trader.Intent{Side: book.SideBuy, Qty: s.qty}
}

type countingSink struct {
	storage.NopSink
	trades int
}

func (c *countingSink) LogTrade(float64, string, string, string, float64, float64, string) {
	c.trades++
}

func TestTraderProcessSkipsUnaffordableOrders(t *testing.T) {
	mkt := newProcMarket()
	mm := NewMarketMakerProcess(mkt, rand.New(rand.NewSource(1)))
	mm.SeedInitial()

	led, err := trader.NewLedger("broke", 1000)
	if err != nil {
		t.Fatal(err)
	}
	sink := &countingSink{}
	p := &TraderProcess{
		AgentName:   "broke",
		Strategy:    &buyEverything{qty: 100}, // 100 shares ~ 10000, ten times the cash
		Ledger:      led,
		Market:      mkt,
		Sink:        sink,
		Rng:         rand.New(rand.NewSource(2)),
		TradeProb:   1,
		TradePeriod: 0.25,
	}
	p.Tick(0.25)

	if led.Cash() != 1000 {
		t.Fatalf("cash = %v, want untouched 1000", led.Cash())
	}
	if led.TradeCount() != 0 || sink.trades != 0 {
		t.Fatal("unaffordable intent must be a silent no-trade")
	}
	if p2 := mkt.Price("AAPL"); p2 != 100 {
		t.Fatalf("price moved to %v with no executable order", p2)
	}
}

func TestTraderProcessSettlesFills(t *testing.T) {
	mkt := newProcMarket()
	mm := NewMarketMakerProcess(mkt, rand.New(rand.NewSource(1)))
	mm.SeedInitial()

	led, err := trader.NewLedger("whale", 1_000_000)
	if err != nil {
		t.Fatal(err)
	}
	sink := &countingSink{}
	p := &TraderProcess{
		AgentName:   "whale",
		Strategy:    &buyEverything{qty: 10},
		Ledger:      led,
		Market:      mkt,
		Sink:        sink,
		Rng:         rand.New(rand.NewSource(2)),
		TradeProb:   1,
		TradePeriod: 0.25,
	}
	p.Tick(0.25)

	if led.Holding("AAPL") != 10 {
		t.Fatalf("holding = %v, want 10", led.Holding("AAPL"))
	}
	if led.Cash() >= 1_000_000 {
		t.Fatal("buy must debit cash")
	}
	if sink.trades != 1 {
		t.Fatalf("logged %d trades, want 1", sink.trades)
	}
	// Basis matches the execution VWAP, around the seeded ask.
	basis := led.CostBasis("AAPL")
	if basis < 100 || basis > 102 {
		t.Fatalf("basis = %v, want near the seeded ask", basis)
	}
}

func TestTraderProcessGateBlocksAll(t *testing.T) {
	mkt := newProcMarket()
	NewMarketMakerProcess(mkt, rand.New(rand.NewSource(1))).SeedInitial()
	led, err := trader.NewLedger("idle", 1_000_000)
	if err != nil {
		t.Fatal(err)
	}
	p := &TraderProcess{
		AgentName:   "idle",
		Strategy:    &buyEverything{qty: 10},
		Ledger:      led,
		Market:      mkt,
		Sink:        storage.NopSink{},
		Rng:         rand.New(rand.NewSource(2)),
		TradeProb:   0,
		TradePeriod: 0.25,
	}
	for i := 0; i < 50; i++ {
		p.Tick(float64(i) * 0.25)
	}
	if led.TradeCount() != 0 {
		t.Fatal("probability 0 must never trade")
	}
}

func TestMarketMakerRefreshesQuotes(t *testing.T) {
	mkt := newProcMarket()
	mm := NewMarketMakerProcess(mkt, rand.New(rand.NewSource(1)))

	mm.Tick(0.5)
	b, _ := mkt.Book("AAPL")
	if b.Orders(book.SideBuy) != 2 || b.Orders(book.SideSell) != 2 {
		t.Fatalf("depth = %d/%d, want 2/2", b.Orders(book.SideBuy), b.Orders(book.SideSell))
	}

	bestBid, ok := b.BestBid()
	if !ok || bestBid >= 100 {
		t.Fatalf("best bid = %v, want below mid", bestBid)
	}
	bestAsk, ok := b.BestAsk()
	if !ok || bestAsk <= 100 {
		t.Fatalf("best ask = %v, want above mid", bestAsk)
	}

	// A second tick replaces rather than stacks.
	mm.Tick(1.0)
	if b.Orders(book.SideBuy) != 2 || b.Orders(book.SideSell) != 2 {
		t.Fatalf("stale quotes left behind: %d/%d", b.Orders(book.SideBuy), b.Orders(book.SideSell))
	}
}

func TestMarketMakerSeedInitialDepth(t *testing.T) {
	mkt := newProcMarket()
	mm := NewMarketMakerProcess(mkt, rand.New(rand.NewSource(1)))
	mm.SeedInitial()

	b, _ := mkt.Book("AAPL")
	if b.Orders(book.SideBuy) != 5 || b.Orders(book.SideSell) != 5 {
		t.Fatalf("depth = %d/%d, want 5/5", b.Orders(book.SideBuy), b.Orders(book.SideSell))
	}
}

func TestLoggingProcessWritesAllRecords(t *testing.T) {
	mkt := newProcMarket()
	led, err := trader.NewLedger("alice", 10_000)
	if err != nil {
		t.Fatal(err)
	}
	sink := &fullCountSink{}
	p := &LoggingProcess{
		Market:  mkt,
		Ledgers: map[string]*trader.Ledger{"alice": led},
		Agents:  []string{"alice"},
		Sink:    sink,
	}
	p.Tick(1)

	if sink.metrics != 1 || sink.snapshots != 1 || sink.performance != 1 {
		t.Fatalf("records = %d/%d/%d, want 1/1/1", sink.metrics, sink.snapshots, sink.performance)
	}
}

type fullCountSink struct {
	storage.NopSink
	metrics     int
	snapshots   int
	performance int
}

func (s *fullCountSink) LogStockMetrics(float64, string, float64, float64, float64, float64, float64, float64) {
	s.metrics++
}
func (s *fullCountSink) LogPortfolioSnapshot(float64, string, float64, float64, float64, map[string]float64) {
	s.snapshots++
}
func (s *fullCountSink) LogTraderPerformance(float64, string, int, float64, float64, float64, float64, float64) {
	s.performance++
}
