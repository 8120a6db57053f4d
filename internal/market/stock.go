package market

import (
	"fmt"
	"math"

	"github.com/Sashreek007/MarketDynamicsSim/internal/book"
	"github.com/Sashreek007/MarketDynamicsSim/pkg/safe"
)

// HistoryCap is the trailing price window used for volatility estimation.
const HistoryCap = 20

// Stock holds the market state of one instrument. It is mutated only by the
// Market, either through executed fills or exogenous shocks.
type Stock struct {
	Ticker            string
	InitialPrice      float64
	CurrentPrice      float64
	SharesOutstanding float64
	MarketCap         float64

	// Volatility is the population stdev of consecutive returns over the
	// trailing price window. Zero until at least two prices exist.
	Volatility    float64
	LastChangePct float64

	BuyVolume  float64
	SellVolume float64

	history [HistoryCap]float64
	histLen int
	head    int // next write slot in the ring
}

func newStock(ticker string, price, shares float64) *Stock {
	s := &Stock{
		Ticker:            ticker,
		InitialPrice:      price,
		CurrentPrice:      price,
		SharesOutstanding: shares,
		MarketCap:         price * shares,
	}
	s.pushHistory(price)
	return s
}

// updatePrice moves the instrument to a new price and recomputes every
// derived field. Callers are responsible for clamping/flooring first.
func (s *Stock) updatePrice(p float64) {
	if !safe.PositiveFinite(p) {
		panic(fmt.Sprintf("stock %s: invalid price %v", s.Ticker, p))
	}
	s.LastChangePct = (p - s.CurrentPrice) / s.CurrentPrice
	s.CurrentPrice = p
	s.MarketCap = p * s.SharesOutstanding
	s.pushHistory(p)
	s.Volatility = s.stdevReturns()
}

func (s *Stock) addVolume(side book.Side, qty float64) {
	if side == book.SideBuy {
		s.BuyVolume += qty
	} else {
		s.SellVolume += qty
	}
}

func (s *Stock) pushHistory(p float64) {
	s.history[s.head] = p
	s.head = (s.head + 1) % HistoryCap
	if s.histLen < HistoryCap {
		s.histLen++
	}
}

// prices returns the trailing window oldest first.
func (s *Stock) prices() []float64 {
	out := make([]float64, 0, s.histLen)
	start := s.head - s.histLen
	if start < 0 {
		start += HistoryCap
	}
	for i := 0; i < s.histLen; i++ {
		out = append(out, s.history[(start+i)%HistoryCap])
	}
	return out
}

// stdevReturns computes the population standard deviation of consecutive
// returns over the trailing window.
func (s *Stock) stdevReturns() float64 {
	ps := s.prices()
	if len(ps) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(ps)-1)
	for i := 1; i < len(ps); i++ {
		returns = append(returns, (ps[i]-ps[i-1])/ps[i-1])
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(returns)))
}

// verifyInvariant panics if the instrument state is inconsistent.
func (s *Stock) verifyInvariant() {
	if s.CurrentPrice <= 0 {
		panic(fmt.Sprintf("stock %s: price %v <= 0", s.Ticker, s.CurrentPrice))
	}
	if s.MarketCap != s.CurrentPrice*s.SharesOutstanding {
		panic(fmt.Sprintf("stock %s: market cap %v != price*shares", s.Ticker, s.MarketCap))
	}
}
