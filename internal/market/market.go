// Package market implements the microstructure model: per-instrument price,
// volatility and volume state, price-impact price formation from executed
// order flow, exogenous shocks, and the circuit breaker.
package market

import (
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/Sashreek007/MarketDynamicsSim/internal/book"
	"github.com/Sashreek007/MarketDynamicsSim/pkg/safe"
)

// breakerThreshold halts trading once any instrument drifts further than
// this fraction from its initial price.
const breakerThreshold = 0.20

// priceFloor is the absolute minimum price on the order-driven path.
const priceFloor = 1.0

// shockFloor is the absolute minimum price on the exogenous-shock path.
const shockFloor = 0.01

type Status uint8

const (
	// StatusFilled: the order executed, at least partially.
	StatusFilled Status = iota
	// StatusUnfilled: the order was accepted but produced no fills (limit
	// resting in the book, or market order against an empty book).
	StatusUnfilled
	// StatusRejected: validation failed; nothing was mutated.
	StatusRejected
	// StatusHalted: the circuit breaker is active.
	StatusHalted
)

func (s Status) String() string {
	switch s {
	case StatusFilled:
		return "filled"
	case StatusUnfilled:
		return "unfilled"
	case StatusRejected:
		return "rejected"
	case StatusHalted:
		return "halted"
	default:
		return "unknown"
	}
}

type RejectReason uint8

const (
	ReasonNone RejectReason = iota
	ReasonUnknownInstrument
	ReasonInvalidQuantity
	ReasonInvalidPrice
)

func (r RejectReason) String() string {
	switch r {
	case ReasonUnknownInstrument:
		return "unknown instrument"
	case ReasonInvalidQuantity:
		return "invalid quantity"
	case ReasonInvalidPrice:
		return "invalid price"
	default:
		return "none"
	}
}

// OrderRequest is a trade intent submitted against one instrument.
type OrderRequest struct {
	Ticker     string
	TraderID   string
	Side       book.Side
	Kind       book.Kind
	Qty        float64
	LimitPrice float64 // required > 0 iff Kind == KindLimit
}

// Result is the tagged outcome of SubmitOrder. Callers must switch on
// Status; no case is signalled through errors.
type Result struct {
	Status    Status
	Reason    RejectReason
	Fills     []book.Fill
	FilledQty float64
	AvgPrice  float64 // volume-weighted execution price
}

// Snapshot is the fixed-shape, immutable view strategies consume.
type Snapshot struct {
	Ticker         string
	Price          float64
	InitialPrice   float64
	PriceChangePct float64
	Volatility     float64
	BuyVolume      float64
	SellVolume     float64
	Sentiment      float64
	SimTime        float64
}

// Params are the microstructure constants.
type Params struct {
	PriceImpactFactor float64
	BaseVolatility    float64
	TypicalVolume     float64
}

// InstrumentSpec is one initial listing.
type InstrumentSpec struct {
	Ticker            string
	Price             float64
	SharesOutstanding float64
}

// Market owns all instrument state and the per-instrument books. It is not
// safe for concurrent use: the scheduler guarantees a single thread of
// control.
type Market struct {
	params    Params
	tickers   []string
	stocks    map[string]*Stock
	books     map[string]*book.Book
	sentiment float64
	halted    bool
}

// New lists the given instruments. Instruments are created once and never
// destroyed.
func New(params Params, specs []InstrumentSpec) *Market {
	m := &Market{
		params: params,
		stocks: make(map[string]*Stock, len(specs)),
		books:  make(map[string]*book.Book, len(specs)),
	}
	for _, sp := range specs {
		m.tickers = append(m.tickers, sp.Ticker)
		m.stocks[sp.Ticker] = newStock(sp.Ticker, sp.Price, sp.SharesOutstanding)
		m.books[sp.Ticker] = book.New()
	}
	sort.Strings(m.tickers)
	return m
}

// Tickers returns the listed tickers in stable order.
func (m *Market) Tickers() []string {
	return m.tickers
}

// Stock returns the instrument state for direct inspection.
func (m *Market) Stock(ticker string) (*Stock, bool) {
	s, ok := m.stocks[ticker]
	return s, ok
}

// Price returns the current price, or 0 for unknown tickers.
func (m *Market) Price(ticker string) float64 {
	if s, ok := m.stocks[ticker]; ok {
		return s.CurrentPrice
	}
	return 0
}

// Prices returns all current prices keyed by ticker.
func (m *Market) Prices() map[string]float64 {
	out := make(map[string]float64, len(m.tickers))
	for _, t := range m.tickers {
		out[t] = m.stocks[t].CurrentPrice
	}
	return out
}

// Sentiment returns the current market-wide sentiment in [-1, 1].
func (m *Market) Sentiment() float64 {
	return m.sentiment
}

// Halted reports whether the circuit breaker is active.
func (m *Market) Halted() bool {
	return m.halted
}

// Snapshot builds the immutable per-instrument view at the given simulated
// time.
func (m *Market) Snapshot(ticker string, simTime float64) (Snapshot, bool) {
	s, ok := m.stocks[ticker]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		Ticker:         s.Ticker,
		Price:          s.CurrentPrice,
		InitialPrice:   s.InitialPrice,
		PriceChangePct: s.LastChangePct,
		Volatility:     s.Volatility,
		BuyVolume:      s.BuyVolume,
		SellVolume:     s.SellVolume,
		Sentiment:      m.sentiment,
		SimTime:        simTime,
	}, true
}

// SubmitOrder validates the request, matches it, and on execution applies
// the price-impact update and the circuit-breaker check.
func (m *Market) SubmitOrder(req OrderRequest) Result {
	if m.halted {
		return Result{Status: StatusHalted}
	}
	s, ok := m.stocks[req.Ticker]
	if !ok {
		return Result{Status: StatusRejected, Reason: ReasonUnknownInstrument}
	}
	if !safe.PositiveFinite(req.Qty) {
		return Result{Status: StatusRejected, Reason: ReasonInvalidQuantity}
	}
	if req.Kind == book.KindLimit && !safe.PositiveFinite(req.LimitPrice) {
		return Result{Status: StatusRejected, Reason: ReasonInvalidPrice}
	}

	fills := m.books[req.Ticker].Submit(book.Order{
		ID:       uuid.NewString(),
		TraderID: req.TraderID,
		Side:     req.Side,
		Kind:     req.Kind,
		Price:    req.LimitPrice,
		Qty:      req.Qty,
	})
	if len(fills) == 0 {
		return Result{Status: StatusUnfilled}
	}

	var totalQty, totalValue float64
	for _, f := range fills {
		totalQty += f.Qty
		totalValue += f.Qty * f.Price
	}
	avg := totalValue / totalQty

	s.addVolume(req.Side, totalQty)
	m.applyImpact(s, req.Side, totalQty)
	m.checkBreaker(s)

	return Result{
		Status:    StatusFilled,
		Fills:     fills,
		FilledQty: totalQty,
		AvgPrice:  avg,
	}
}

// applyImpact translates executed volume into a price change. The move is
// clamped to ±10% per fill and floored at priceFloor.
func (m *Market) applyImpact(s *Stock, side book.Side, qty float64) {
	volumeRatio := qty / m.params.TypicalVolume
	direction := 1.0
	if side == book.SideSell {
		direction = -1.0
	}
	volatilityMultiplier := 1 + s.Volatility/m.params.BaseVolatility
	changePct := m.params.PriceImpactFactor*volumeRatio*direction*volatilityMultiplier +
		m.sentiment*0.1*direction

	newPrice := s.CurrentPrice * (1 + changePct)
	if !safe.PositiveFinite(newPrice) {
		newPrice = s.CurrentPrice
	}
	newPrice = safe.Clamp(newPrice, s.CurrentPrice*0.90, s.CurrentPrice*1.10)
	if newPrice < priceFloor {
		newPrice = priceFloor
	}
	s.updatePrice(newPrice)
	s.verifyInvariant()
}

// checkBreaker trips the global halt once cumulative deviation from the
// initial price exceeds the threshold. Only an explicit reset resumes
// trading.
func (m *Market) checkBreaker(s *Stock) {
	deviation := (s.CurrentPrice - s.InitialPrice) / s.InitialPrice
	if deviation < 0 {
		deviation = -deviation
	}
	if deviation > breakerThreshold && !m.halted {
		m.halted = true
		slog.Warn("circuit breaker tripped",
			slog.String("ticker", s.Ticker),
			slog.Float64("price", s.CurrentPrice),
			slog.Float64("initial", s.InitialPrice))
	}
}

// ResetCircuitBreaker resumes trading after a halt.
func (m *Market) ResetCircuitBreaker() {
	if m.halted {
		m.halted = false
		slog.Info("circuit breaker reset")
	}
}

// ApplyShock moves the given instruments by magnitude (e.g. -0.05 = -5%),
// bypassing order flow. Exogenous moves skip the ±10% clamp and the breaker
// check but still respect the non-negativity floor. Unknown tickers are
// ignored.
func (m *Market) ApplyShock(magnitude float64, tickers []string) {
	if !safe.Finite(magnitude) {
		return
	}
	for _, t := range tickers {
		s, ok := m.stocks[t]
		if !ok {
			continue
		}
		newPrice := s.CurrentPrice * (1 + magnitude)
		if !safe.PositiveFinite(newPrice) || newPrice < shockFloor {
			newPrice = shockFloor
		}
		s.updatePrice(newPrice)
		s.verifyInvariant()
	}
}

// SetSentiment sets market-wide sentiment, clamped to [-1, 1].
func (m *Market) SetSentiment(v float64) {
	if !safe.Finite(v) {
		return
	}
	m.sentiment = safe.Clamp(v, -1, 1)
}

// SetVolatilityRegime overrides every instrument's volatility. The override
// holds until the next executed fill recomputes volatility from the price
// window.
func (m *Market) SetVolatilityRegime(v float64) {
	if !safe.NonNegativeFinite(v) {
		return
	}
	for _, t := range m.tickers {
		m.stocks[t].Volatility = v
	}
}

// AddLiquidity rests a limit order directly in an instrument's book without
// triggering price impact or the breaker. Used by the market maker; if the
// order happens to cross stale contra liquidity the fills are discarded,
// matching the liquidity-seeding semantics.
func (m *Market) AddLiquidity(ticker, traderID string, side book.Side, price, qty float64) (string, bool) {
	b, ok := m.books[ticker]
	if !ok || !safe.PositiveFinite(price) || !safe.PositiveFinite(qty) {
		return "", false
	}
	id := uuid.NewString()
	b.Submit(book.Order{
		ID:       id,
		TraderID: traderID,
		Side:     side,
		Kind:     book.KindLimit,
		Price:    price,
		Qty:      qty,
	})
	return id, true
}

// CancelOrder removes a resting order placed via AddLiquidity.
func (m *Market) CancelOrder(ticker, orderID string) bool {
	b, ok := m.books[ticker]
	if !ok {
		return false
	}
	return b.Cancel(orderID)
}

// Book exposes an instrument's book for depth inspection.
func (m *Market) Book(ticker string) (*book.Book, bool) {
	b, ok := m.books[ticker]
	return b, ok
}
