package engine

import (
	"log/slog"
	"math/rand"

	"github.com/Sashreek007/MarketDynamicsSim/internal/book"
	"github.com/Sashreek007/MarketDynamicsSim/internal/effects"
	"github.com/Sashreek007/MarketDynamicsSim/internal/market"
	"github.com/Sashreek007/MarketDynamicsSim/internal/storage"
	"github.com/Sashreek007/MarketDynamicsSim/internal/trader"
)

// TraderProcess runs one agent: every period it considers each instrument,
// gates on the agent's trade probability, and routes any strategy intent
// through the market.
type TraderProcess struct {
	AgentName   string
	Strategy    trader.Strategy
	Ledger      *trader.Ledger
	Market      *market.Market
	Sink        storage.Sink
	Rng         *rand.Rand
	TradeProb   float64
	TradePeriod float64
}

func (p *TraderProcess) Name() string    { return p.AgentName }
func (p *TraderProcess) Period() float64 { return p.TradePeriod }

func (p *TraderProcess) Tick(now float64) {
	for _, ticker := range p.Market.Tickers() {
		if p.Rng.Float64() >= p.TradeProb {
			continue
		}
		snap, ok := p.Market.Snapshot(ticker, now)
		if !ok {
			continue
		}
		intent := p.Strategy.Decide(snap, p.Ledger, p.Rng)
		if intent == nil {
			continue
		}
		p.execute(ticker, snap.Price, intent, now)
	}
}

func (p *TraderProcess) execute(ticker string, refPrice float64, intent *trader.Intent, now float64) {
	// Pre-trade checks; shortfalls are silent no-trades, not errors.
	checkPrice := refPrice
	if intent.LimitPrice > 0 {
		checkPrice = intent.LimitPrice
	}
	if intent.Side == book.SideBuy && !p.Ledger.CanAfford(checkPrice, intent.Qty) {
		return
	}
	if intent.Side == book.SideSell && !p.Ledger.HasShares(ticker, intent.Qty) {
		return
	}

	kind := book.KindMarket
	if intent.LimitPrice > 0 {
		kind = book.KindLimit
	}
	res := p.Market.SubmitOrder(market.OrderRequest{
		Ticker:     ticker,
		TraderID:   p.AgentName,
		Side:       intent.Side,
		Kind:       kind,
		Qty:        intent.Qty,
		LimitPrice: intent.LimitPrice,
	})

	switch res.Status {
	case market.StatusFilled:
		p.settle(ticker, intent.Side, res, kind, now)
	case market.StatusRejected:
		slog.Debug("order rejected",
			slog.String("agent", p.AgentName),
			slog.String("ticker", ticker),
			slog.String("reason", res.Reason.String()))
	case market.StatusHalted:
		slog.Debug("order refused, market halted", slog.String("agent", p.AgentName))
	}
}

func (p *TraderProcess) settle(ticker string, side book.Side, res market.Result, kind book.Kind, now float64) {
	var err error
	sideName := "buy"
	if side == book.SideBuy {
		err = p.Ledger.ExecuteBuy(ticker, res.AvgPrice, res.FilledQty)
	} else {
		sideName = "sell"
		err = p.Ledger.ExecuteSell(ticker, res.AvgPrice, res.FilledQty)
	}
	if err != nil {
		// The pre-trade check passed, so a partial fill can't overdraw;
		// reaching here means the ledger and market disagree.
		slog.Error("settlement failed",
			slog.String("agent", p.AgentName),
			slog.String("ticker", ticker),
			slog.Any("error", err))
		return
	}

	orderType := "market"
	if kind == book.KindLimit {
		orderType = "limit"
	}
	p.Sink.LogTrade(now, ticker, p.AgentName, sideName, res.FilledQty, res.AvgPrice, orderType)
	slog.Debug("trade executed",
		slog.String("agent", p.AgentName),
		slog.String("ticker", ticker),
		slog.String("side", sideName),
		slog.Float64("qty", res.FilledQty),
		slog.Float64("price", res.AvgPrice),
		slog.Float64("sim_time", now))
}

// MarketMakerProcess keeps two-sided resting liquidity around each
// instrument's current price, refreshing its quotes every period.
type MarketMakerProcess struct {
	Market *market.Market
	Rng    *rand.Rand

	open map[string][]string // ticker -> live order ids
}

const marketMakerID = "market_maker"

func NewMarketMakerProcess(mkt *market.Market, rng *rand.Rand) *MarketMakerProcess {
	return &MarketMakerProcess{
		Market: mkt,
		Rng:    rng,
		open:   make(map[string][]string),
	}
}

func (*MarketMakerProcess) Name() string    { return marketMakerID }
func (*MarketMakerProcess) Period() float64 { return 0.5 }

func (p *MarketMakerProcess) Tick(now float64) {
	for _, ticker := range p.Market.Tickers() {
		for _, id := range p.open[ticker] {
			p.Market.CancelOrder(ticker, id)
		}
		p.open[ticker] = p.open[ticker][:0]

		price := p.Market.Price(ticker)
		if price <= 0 {
			continue
		}
		for i := 0; i < 2; i++ {
			step := float64(i)
			bid := price * (0.995 - 0.002*step)
			ask := price * (1.005 + 0.002*step)
			bidQty := float64(30 + p.Rng.Intn(71))
			askQty := float64(30 + p.Rng.Intn(71))
			if id, ok := p.Market.AddLiquidity(ticker, marketMakerID, book.SideBuy, bid, bidQty); ok {
				p.open[ticker] = append(p.open[ticker], id)
			}
			if id, ok := p.Market.AddLiquidity(ticker, marketMakerID, book.SideSell, ask, askQty); ok {
				p.open[ticker] = append(p.open[ticker], id)
			}
		}
	}
}

// SeedInitial rests a deeper opening book so the first trading day has
// something to cross against. Seed orders are not refreshed.
func (p *MarketMakerProcess) SeedInitial() {
	for _, ticker := range p.Market.Tickers() {
		price := p.Market.Price(ticker)
		for i := 0; i < 5; i++ {
			step := float64(i)
			bid := price * (0.99 - 0.001*step)
			ask := price * (1.01 + 0.001*step)
			p.Market.AddLiquidity(ticker, marketMakerID, book.SideBuy, bid, float64(50+p.Rng.Intn(151)))
			p.Market.AddLiquidity(ticker, marketMakerID, book.SideSell, ask, float64(50+p.Rng.Intn(151)))
		}
	}
}

// EffectsProcess rolls the stochastic event gate every period.
type EffectsProcess struct {
	Generator *effects.Generator
}

func (*EffectsProcess) Name() string    { return "effects" }
func (*EffectsProcess) Period() float64 { return 0.25 }

func (p *EffectsProcess) Tick(now float64) {
	if ev := p.Generator.Roll(); ev != nil {
		p.Generator.Apply(ev, now)
	}
}

// LoggingProcess records per-instrument metrics and per-agent portfolio
// state once a simulated day.
type LoggingProcess struct {
	Market    *market.Market
	Ledgers   map[string]*trader.Ledger
	Agents    []string // stable iteration order over Ledgers
	Sink      storage.Sink
	Verbosity int
}

func (*LoggingProcess) Name() string    { return "logging" }
func (*LoggingProcess) Period() float64 { return 1.0 }

func (p *LoggingProcess) Tick(now float64) {
	prices := p.Market.Prices()

	for _, ticker := range p.Market.Tickers() {
		s, ok := p.Market.Stock(ticker)
		if !ok {
			continue
		}
		p.Sink.LogStockMetrics(now, ticker, s.CurrentPrice, s.MarketCap,
			s.SharesOutstanding, s.BuyVolume, s.SellVolume, s.Volatility)
	}

	for _, name := range p.Agents {
		led := p.Ledgers[name]
		holdings := make(map[string]float64)
		for _, t := range led.Positions() {
			holdings[t] = led.Holding(t)
		}
		hv := led.HoldingsValue(prices)
		p.Sink.LogPortfolioSnapshot(now, name, led.Cash(), hv, led.Cash()+hv, holdings)
		p.Sink.LogTraderPerformance(now, name, led.TradeCount(),
			led.SharesBought(), led.SharesSold(),
			led.RealizedPnL(), led.UnrealizedPnL(prices), led.TotalPnL(prices))
	}

	if p.Verbosity >= 1 {
		slog.Info("day summary",
			slog.Float64("sim_time", now),
			slog.Bool("halted", p.Market.Halted()),
			slog.Float64("sentiment", p.Market.Sentiment()))
	}
}
