package trader

import (
	"math/rand"

	"github.com/Sashreek007/MarketDynamicsSim/internal/book"
	"github.com/Sashreek007/MarketDynamicsSim/internal/market"
)

// PoorTimingStrategy models common retail loss patterns: it chases rallies,
// panic-sells small dips, banks tiny gains, and rides losers all the way
// down. There is deliberately no stop-loss.
type PoorTimingStrategy struct{}

func (*PoorTimingStrategy) Name() string { return "poor_timing" }

func (*PoorTimingStrategy) Decide(snap market.Snapshot, led *Ledger, rng *rand.Rand) *Intent {
	held := led.Holding(snap.Ticker)

	if held > 0 {
		// Panic sell on a small drop.
		if snap.PriceChangePct < -0.008 {
			qty := clipToHeld(held*(0.4+rng.Float64()*0.3), held)
			if qty > 0 {
				return &Intent{Side: book.SideSell, Qty: qty}
			}
			return nil
		}
		// Bank tiny winners early.
		gain := unrealizedGain(snap, led)
		if gain > 0.02 && gain < 0.04 && rng.Float64() < 0.4 {
			qty := clipToHeld(held*(0.5+rng.Float64()*0.3), held)
			if qty > 0 {
				return &Intent{Side: book.SideSell, Qty: qty}
			}
			return nil
		}
	}

	// FOMO: buy after the move already happened.
	if snap.PriceChangePct > 0.01 {
		qty := wholeShares(led.Cash()*(0.05+rng.Float64()*0.10), snap.Price)
		if qty > 0 {
			return &Intent{Side: book.SideBuy, Qty: qty}
		}
		return nil
	}

	// Churn when things get choppy.
	if snap.Volatility > 0.03 && rng.Float64() < 0.5 {
		if rng.Float64() < 0.5 {
			qty := wholeShares(led.Cash()*(0.05+rng.Float64()*0.05), snap.Price)
			if qty > 0 {
				return &Intent{Side: book.SideBuy, Qty: qty}
			}
		} else if held > 0 {
			qty := clipToHeld(held*(0.2+rng.Float64()*0.3), held)
			if qty > 0 {
				return &Intent{Side: book.SideSell, Qty: qty}
			}
		}
		return nil
	}

	// Impulsive buys with no signal at all.
	if rng.Float64() < 0.2 {
		qty := wholeShares(led.Cash()*(0.05+rng.Float64()*0.10), snap.Price)
		if qty > 0 {
			return &Intent{Side: book.SideBuy, Qty: qty}
		}
	}
	return nil
}
