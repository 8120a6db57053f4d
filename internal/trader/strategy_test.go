package trader

import (
	"math/rand"
	"testing"

	"github.com/Sashreek007/MarketDynamicsSim/internal/book"
	"github.com/Sashreek007/MarketDynamicsSim/internal/market"
)

func snap(price, initial, changePct float64) market.Snapshot {
	return market.Snapshot{
		Ticker:         "AAPL",
		Price:          price,
		InitialPrice:   initial,
		PriceChangePct: changePct,
		SimTime:        10, // past the early build window
	}
}

func TestNewStrategy(t *testing.T) {
	for _, kind := range []string{"momentum", "value", "poor_timing", "accumulator"} {
		s, err := NewStrategy(kind)
		if err != nil {
			t.Fatalf("NewStrategy(%q): %v", kind, err)
		}
		if s.Name() != kind {
			t.Fatalf("Name() = %q, want %q", s.Name(), kind)
		}
	}
	if _, err := NewStrategy("hodl"); err == nil {
		t.Fatal("unknown strategy must error")
	}
}

func TestMomentumBuysOnUpMove(t *testing.T) {
	s := &MomentumStrategy{}
	l := mustLedger(t, "m", 1_000_000)
	rng := rand.New(rand.NewSource(1))

	in := s.Decide(snap(100, 100, 0.01), l, rng)
	if in == nil || in.Side != book.SideBuy {
		t.Fatalf("intent = %+v, want buy on up move", in)
	}
	if in.LimitPrice <= 100 || in.LimitPrice > 100.2 {
		t.Fatalf("limit = %v, want just above market", in.LimitPrice)
	}
	// 5-12% of cash, whole shares.
	if in.Qty < 400 || in.Qty > 1300 || in.Qty != float64(int64(in.Qty)) {
		t.Fatalf("qty = %v, want whole shares in 5-12%% of cash", in.Qty)
	}
}

func TestMomentumStopLoss(t *testing.T) {
	s := &MomentumStrategy{}
	l := mustLedger(t, "m", 1_000_000)
	if err := l.ExecuteBuy("AAPL", 100, 1000); err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))

	// 4% under water, flat tick so no chase signal interferes.
	in := s.Decide(snap(96, 100, 0), l, rng)
	if in == nil || in.Side != book.SideSell {
		t.Fatalf("intent = %+v, want stop-loss sell", in)
	}
	if in.Qty < 300 || in.Qty > 600 {
		t.Fatalf("stop-loss qty = %v, want 30-60%% of position", in.Qty)
	}
}

func TestMomentumIdleOnFlatTick(t *testing.T) {
	s := &MomentumStrategy{}
	l := mustLedger(t, "m", 1_000_000)
	rng := rand.New(rand.NewSource(1))
	if in := s.Decide(snap(100, 100, 0), l, rng); in != nil {
		t.Fatalf("intent = %+v, want nil with no position and no signal", in)
	}
}

func TestValueBuysDips(t *testing.T) {
	s := &ValueStrategy{}
	l := mustLedger(t, "v", 2_000_000)
	rng := rand.New(rand.NewSource(1))

	in := s.Decide(snap(100, 100, -0.02), l, rng)
	if in == nil || in.Side != book.SideBuy {
		t.Fatalf("intent = %+v, want buy on dip", in)
	}
	if in.LimitPrice >= 100 {
		t.Fatalf("limit = %v, want below market", in.LimitPrice)
	}
	// 2-5% of cash.
	if in.Qty < 350 || in.Qty > 1100 {
		t.Fatalf("qty = %v, want 2-5%% of cash", in.Qty)
	}

	// Deep drawdown vs initial also triggers without a fresh tick move.
	in = s.Decide(snap(95, 100, 0), l, rng)
	if in == nil || in.Side != book.SideBuy {
		t.Fatalf("intent = %+v, want buy on drawdown", in)
	}
}

func TestValueTrimsConcentration(t *testing.T) {
	s := &ValueStrategy{}
	l := mustLedger(t, "v", 1_000_000)
	// 400k position in a 1M portfolio: 40% concentration.
	if err := l.ExecuteBuy("AAPL", 100, 4000); err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))

	in := s.Decide(snap(100, 100, 0), l, rng)
	if in == nil || in.Side != book.SideSell {
		t.Fatalf("intent = %+v, want concentration trim", in)
	}
	if in.Qty != 800 {
		t.Fatalf("trim qty = %v, want 20%% of 4000", in.Qty)
	}
}

func TestPoorTimingPanicSells(t *testing.T) {
	s := &PoorTimingStrategy{}
	l := mustLedger(t, "r", 500_000)
	if err := l.ExecuteBuy("AAPL", 100, 1000); err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))

	in := s.Decide(snap(99, 100, -0.01), l, rng)
	if in == nil || in.Side != book.SideSell {
		t.Fatalf("intent = %+v, want panic sell on small drop", in)
	}
	if in.Qty < 400 || in.Qty > 700 {
		t.Fatalf("panic qty = %v, want 40-70%% of position", in.Qty)
	}
}

func TestPoorTimingChasesRallies(t *testing.T) {
	s := &PoorTimingStrategy{}
	l := mustLedger(t, "r", 500_000)
	rng := rand.New(rand.NewSource(1))

	in := s.Decide(snap(110, 100, 0.02), l, rng)
	if in == nil || in.Side != book.SideBuy {
		t.Fatalf("intent = %+v, want FOMO buy after the move", in)
	}
}

func TestPoorTimingNeverStopsOutLosers(t *testing.T) {
	s := &PoorTimingStrategy{}
	l := mustLedger(t, "r", 500_000)
	if err := l.ExecuteBuy("AAPL", 100, 1000); err != nil {
		t.Fatal(err)
	}
	// Deep under water, calm tick: no intent should ever be a sell.
	for seed := int64(0); seed < 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		in := s.Decide(snap(70, 100, 0), l, rng)
		if in != nil && in.Side == book.SideSell {
			t.Fatalf("seed %d: sold a calm loser: %+v", seed, in)
		}
	}
}

func TestAccumulatorBuysTowardTarget(t *testing.T) {
	s := NewAccumulatorStrategy()
	l := mustLedger(t, "a", 5_000_000)
	rng := rand.New(rand.NewSource(1))

	in := s.Decide(snap(100, 100, -0.001), l, rng)
	if in == nil || in.Side != book.SideBuy {
		t.Fatalf("intent = %+v, want accumulation buy on weakness", in)
	}
	// At most 15% of cash.
	if in.Qty*100 > 5_000_000*0.15+100 {
		t.Fatalf("qty = %v exceeds the 15%% cash cap", in.Qty)
	}

	// Target is sampled once and reused.
	first := s.targets["AAPL"]
	if first < 0.20 || first > 0.25 {
		t.Fatalf("target = %v, want in [0.20, 0.25]", first)
	}
	s.Decide(snap(100, 100, -0.001), l, rng)
	if s.targets["AAPL"] != first {
		t.Fatal("target must not resample")
	}
}

func TestAccumulatorRebalancesOvershoot(t *testing.T) {
	s := NewAccumulatorStrategy()
	s.targets["AAPL"] = 0.20
	l := mustLedger(t, "a", 1_000_000)
	// 500k of a 1M portfolio: 50% allocation, far above 1.5x target.
	if err := l.ExecuteBuy("AAPL", 100, 5000); err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))

	in := s.Decide(snap(100, 100, 0), l, rng)
	if in == nil || in.Side != book.SideSell {
		t.Fatalf("intent = %+v, want rebalance sell", in)
	}
	if in.Qty <= 0 || in.Qty > 5000 {
		t.Fatalf("rebalance qty = %v", in.Qty)
	}
}

func TestAccumulatorBuysDeepDrawdown(t *testing.T) {
	s := NewAccumulatorStrategy()
	s.targets["AAPL"] = 0.20
	l := mustLedger(t, "a", 5_000_000)
	rng := rand.New(rand.NewSource(1))

	in := s.Decide(snap(85, 100, 0.002), l, rng)
	if in == nil || in.Side != book.SideBuy {
		t.Fatalf("intent = %+v, want drawdown buy", in)
	}
	if in.LimitPrice >= 85 {
		t.Fatalf("limit = %v, want below market", in.LimitPrice)
	}
}

func TestIntentsAreWholeShares(t *testing.T) {
	strategies := []Strategy{
		&MomentumStrategy{}, &ValueStrategy{}, &PoorTimingStrategy{}, NewAccumulatorStrategy(),
	}
	snaps := []market.Snapshot{
		snap(100, 100, 0.02), snap(100, 100, -0.02), snap(80, 100, 0), snap(120, 100, 0.001),
	}
	for _, s := range strategies {
		l := mustLedger(t, s.Name(), 1_000_000)
		if err := l.ExecuteBuy("AAPL", 100, 500); err != nil {
			t.Fatal(err)
		}
		for seed := int64(0); seed < 20; seed++ {
			rng := rand.New(rand.NewSource(seed))
			for _, sn := range snaps {
				in := s.Decide(sn, l, rng)
				if in == nil {
					continue
				}
				if in.Qty <= 0 || in.Qty != float64(int64(in.Qty)) {
					t.Fatalf("%s: fractional or empty qty %v", s.Name(), in.Qty)
				}
				if in.Side == book.SideSell && in.Qty > l.Holding(sn.Ticker) {
					t.Fatalf("%s: sell %v exceeds held", s.Name(), in.Qty)
				}
			}
		}
	}
}

func TestDecisionsAreDeterministicPerSeed(t *testing.T) {
	s1, s2 := NewAccumulatorStrategy(), NewAccumulatorStrategy()
	l1 := mustLedger(t, "a", 5_000_000)
	l2 := mustLedger(t, "a", 5_000_000)
	r1 := rand.New(rand.NewSource(7))
	r2 := rand.New(rand.NewSource(7))

	for i := 0; i < 20; i++ {
		sn := snap(100+float64(i), 100, -0.001)
		i1 := s1.Decide(sn, l1, r1)
		i2 := s2.Decide(sn, l2, r2)
		if (i1 == nil) != (i2 == nil) {
			t.Fatalf("step %d: divergent nil-ness", i)
		}
		if i1 != nil && *i1 != *i2 {
			t.Fatalf("step %d: %+v vs %+v", i, i1, i2)
		}
	}
}
