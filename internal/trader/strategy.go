package trader

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/Sashreek007/MarketDynamicsSim/internal/book"
	"github.com/Sashreek007/MarketDynamicsSim/internal/market"
)

// Intent is a strategy's trade decision for one instrument. LimitPrice 0
// means a market order.
type Intent struct {
	Side       book.Side
	Qty        float64
	LimitPrice float64
}

// Strategy decides whether to trade one instrument given its snapshot and
// the agent's ledger. A nil return means no trade. Strategies must draw all
// randomness from the supplied rng.
type Strategy interface {
	Name() string
	Decide(snap market.Snapshot, led *Ledger, rng *rand.Rand) *Intent
}

// NewStrategy builds a strategy by its config name.
func NewStrategy(kind string) (Strategy, error) {
	switch kind {
	case "momentum":
		return &MomentumStrategy{}, nil
	case "value":
		return &ValueStrategy{}, nil
	case "poor_timing":
		return &PoorTimingStrategy{}, nil
	case "accumulator":
		return NewAccumulatorStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", kind)
	}
}

// wholeShares converts a cash budget into a whole share count at price.
// Returns 0 when the budget does not cover a single share.
func wholeShares(budget, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return math.Floor(budget / price)
}

// volumeSkew is the buy/sell volume imbalance, smoothed so an empty sell
// side does not divide by zero.
func volumeSkew(snap market.Snapshot) float64 {
	return snap.BuyVolume / (snap.SellVolume + 1)
}

// unrealizedGain is the fractional gain of a held position over its basis,
// 0 when flat.
func unrealizedGain(snap market.Snapshot, led *Ledger) float64 {
	basis := led.CostBasis(snap.Ticker)
	if basis <= 0 {
		return 0
	}
	return (snap.Price - basis) / basis
}

// drawdown is how far price sits below its initial listing level, as a
// negative fraction.
func drawdown(snap market.Snapshot) float64 {
	return (snap.Price - snap.InitialPrice) / snap.InitialPrice
}
