package trader

import (
	"math/rand"

	"github.com/Sashreek007/MarketDynamicsSim/internal/book"
	"github.com/Sashreek007/MarketDynamicsSim/internal/market"
)

// ValueStrategy buys weakness in small clips and trims on strength or when a
// single position dominates the portfolio.
type ValueStrategy struct{}

func (*ValueStrategy) Name() string { return "value" }

func (*ValueStrategy) Decide(snap market.Snapshot, led *Ledger, rng *rand.Rand) *Intent {
	held := led.Holding(snap.Ticker)

	// Concentration trim: a single instrument above 30% of portfolio value
	// gets cut regardless of price action.
	if held > 0 {
		prices := map[string]float64{snap.Ticker: snap.Price}
		for _, t := range led.Positions() {
			if t != snap.Ticker {
				// Other positions are marked at basis; good enough for a
				// concentration check on one-instrument snapshots.
				prices[t] = led.CostBasis(t)
			}
		}
		total := led.PortfolioValue(prices)
		if total > 0 && held*snap.Price/total > 0.30 {
			qty := clipToHeld(held*0.20, held)
			if qty > 0 {
				return &Intent{Side: book.SideSell, Qty: qty}
			}
			return nil
		}
	}

	// Take modest gains against the initial price.
	if held > 0 && drawdown(snap) > 0.05 {
		qty := clipToHeld(held*(0.10+rng.Float64()*0.15), held)
		if qty > 0 {
			return &Intent{Side: book.SideSell, Qty: qty, LimitPrice: snap.Price * 1.002}
		}
		return nil
	}

	// Buy short-term dips and deep drawdowns.
	if snap.PriceChangePct < -0.01 || drawdown(snap) <= -0.03 {
		qty := wholeShares(led.Cash()*(0.02+rng.Float64()*0.03), snap.Price)
		if qty > 0 {
			return &Intent{Side: book.SideBuy, Qty: qty, LimitPrice: snap.Price * 0.998}
		}
	}
	return nil
}
