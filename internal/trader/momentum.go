package trader

import (
	"math/rand"

	"github.com/Sashreek007/MarketDynamicsSim/internal/book"
	"github.com/Sashreek007/MarketDynamicsSim/internal/market"
)

// MomentumStrategy chases short-term trends with aggressive sizing. It cuts
// losers quickly and scales out of big winners.
type MomentumStrategy struct{}

func (*MomentumStrategy) Name() string { return "momentum" }

func (*MomentumStrategy) Decide(snap market.Snapshot, led *Ledger, rng *rand.Rand) *Intent {
	held := led.Holding(snap.Ticker)

	// Early in the run there is no trend to read yet; build starter
	// positions at random.
	if snap.SimTime < 1 && held == 0 && rng.Float64() < 0.3 {
		qty := wholeShares(led.Cash()*(0.05+rng.Float64()*0.05), snap.Price)
		if qty > 0 {
			return &Intent{Side: book.SideBuy, Qty: qty}
		}
		return nil
	}

	if held > 0 {
		gain := unrealizedGain(snap, led)
		// Stop-loss: cut a chunk of the position past -3%.
		if gain < -0.03 {
			qty := clipToHeld(held*(0.3+rng.Float64()*0.3), held)
			if qty > 0 {
				return &Intent{Side: book.SideSell, Qty: qty}
			}
			return nil
		}
		// Profit take: scale out past +10%.
		if gain > 0.10 && rng.Float64() < 0.3 {
			qty := clipToHeld(held*(0.2+rng.Float64()*0.2), held)
			if qty > 0 {
				return &Intent{Side: book.SideSell, Qty: qty}
			}
			return nil
		}
	}

	skew := volumeSkew(snap)
	if snap.PriceChangePct > 0.005 || skew > 1.2 {
		qty := wholeShares(led.Cash()*(0.05+rng.Float64()*0.07), snap.Price)
		if qty > 0 {
			return &Intent{Side: book.SideBuy, Qty: qty, LimitPrice: snap.Price * 1.001}
		}
		return nil
	}
	if held > 0 && (snap.PriceChangePct < -0.003 || skew < 0.8) {
		qty := clipToHeld(held*(0.3+rng.Float64()*0.3), held)
		if qty > 0 {
			return &Intent{Side: book.SideSell, Qty: qty, LimitPrice: snap.Price * 0.999}
		}
	}
	return nil
}

// clipToHeld floors a fractional sell size to whole shares without
// exceeding the position.
func clipToHeld(qty, held float64) float64 {
	q := float64(int64(qty))
	if q > held {
		q = float64(int64(held))
	}
	return q
}
