package trader

import (
	"math/rand"

	"github.com/Sashreek007/MarketDynamicsSim/internal/book"
	"github.com/Sashreek007/MarketDynamicsSim/internal/market"
)

// AccumulatorStrategy builds toward a per-instrument allocation target over
// the whole horizon. It buys weakness, treats deep drawdowns as sales, and
// only trims when an allocation badly overshoots its target. The sampled
// targets are the strategy's only mutable state.
type AccumulatorStrategy struct {
	targets map[string]float64
}

func NewAccumulatorStrategy() *AccumulatorStrategy {
	return &AccumulatorStrategy{targets: make(map[string]float64)}
}

func (*AccumulatorStrategy) Name() string { return "accumulator" }

func (a *AccumulatorStrategy) Decide(snap market.Snapshot, led *Ledger, rng *rand.Rand) *Intent {
	target, ok := a.targets[snap.Ticker]
	if !ok {
		target = 0.20 + rng.Float64()*0.05
		a.targets[snap.Ticker] = target
	}

	held := led.Holding(snap.Ticker)
	positionValue := held * snap.Price
	portfolio := led.Cash() + positionValue
	if portfolio <= 0 {
		return nil
	}
	allocation := positionValue / portfolio

	// Rebalance only on a wide overshoot.
	if allocation > target*1.5 && held > 0 {
		excess := (allocation - target) * portfolio / snap.Price
		qty := clipToHeld(excess, held)
		if qty > 0 {
			return &Intent{Side: book.SideSell, Qty: qty, LimitPrice: snap.Price * 1.003}
		}
		return nil
	}

	// Deep drawdowns are buying opportunities.
	if drawdown(snap) < -0.10 {
		qty := wholeShares(led.Cash()*(0.08+rng.Float64()*0.04), snap.Price)
		if qty > 0 {
			return &Intent{Side: book.SideBuy, Qty: qty, LimitPrice: snap.Price * 0.995}
		}
		return nil
	}

	// Accumulate toward target on weakness or the occasional patient bid.
	if allocation < target && (snap.PriceChangePct <= 0 || rng.Float64() < 0.3) {
		gap := (target - allocation) * portfolio
		budget := led.Cash() * 0.15
		if gap < budget {
			budget = gap
		}
		qty := wholeShares(budget, snap.Price)
		if qty > 0 {
			return &Intent{Side: book.SideBuy, Qty: qty, LimitPrice: snap.Price * 0.997}
		}
	}
	return nil
}
