// Package trader holds the agent-side state (the Ledger) and the trading
// strategies that drive order flow.
package trader

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Sashreek007/MarketDynamicsSim/pkg/safe"
)

// Ledger is one agent's cash, holdings, and cost basis. Money amounts are
// decimals so a buy-then-sell round trip at one price nets a realized PnL of
// exactly zero. Owned by exactly one agent; never shared.
type Ledger struct {
	owner          string
	initialCapital decimal.Decimal
	cash           decimal.Decimal
	holdings       map[string]float64
	costBasis      map[string]decimal.Decimal
	realizedPnL    decimal.Decimal
	trades         int
	sharesBought   float64
	sharesSold     float64
}

// NewLedger creates a ledger funded with the given capital.
func NewLedger(owner string, initialCapital float64) (*Ledger, error) {
	if !safe.PositiveFinite(initialCapital) {
		return nil, fmt.Errorf("ledger %s: initial capital must be positive and finite, got %v", owner, initialCapital)
	}
	funding := decimal.NewFromFloat(initialCapital)
	return &Ledger{
		owner:          owner,
		initialCapital: funding,
		cash:           funding,
		holdings:       make(map[string]float64),
		costBasis:      make(map[string]decimal.Decimal),
	}, nil
}

// Owner returns the owning agent's name.
func (l *Ledger) Owner() string { return l.owner }

// Cash returns available cash as a float for sizing decisions.
func (l *Ledger) Cash() float64 { return l.cash.InexactFloat64() }

// InitialCapital returns the funding amount.
func (l *Ledger) InitialCapital() float64 { return l.initialCapital.InexactFloat64() }

// RealizedPnL returns cumulative realized profit and loss.
func (l *Ledger) RealizedPnL() float64 { return l.realizedPnL.InexactFloat64() }

// TradeCount returns the number of executed fills.
func (l *Ledger) TradeCount() int { return l.trades }

// SharesBought returns cumulative bought share volume.
func (l *Ledger) SharesBought() float64 { return l.sharesBought }

// SharesSold returns cumulative sold share volume.
func (l *Ledger) SharesSold() float64 { return l.sharesSold }

// Holding returns the position in one ticker, 0 if none.
func (l *Ledger) Holding(ticker string) float64 { return l.holdings[ticker] }

// CostBasis returns the average cost of the position, 0 if none held.
func (l *Ledger) CostBasis(ticker string) float64 {
	if b, ok := l.costBasis[ticker]; ok {
		return b.InexactFloat64()
	}
	return 0
}

// Positions returns held tickers in stable order.
func (l *Ledger) Positions() []string {
	out := make([]string, 0, len(l.holdings))
	for t := range l.holdings {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// CanAfford reports whether qty shares at price fit in available cash.
func (l *Ledger) CanAfford(price, qty float64) bool {
	if !safe.PositiveFinite(price) || !safe.PositiveFinite(qty) {
		return false
	}
	cost, ok := safe.Product(price, qty)
	if !ok {
		return false
	}
	return l.cash.GreaterThanOrEqual(decimal.NewFromFloat(cost))
}

// HasShares reports whether the position covers qty shares of ticker.
func (l *Ledger) HasShares(ticker string, qty float64) bool {
	if !safe.PositiveFinite(qty) {
		return false
	}
	return l.holdings[ticker] >= qty
}

// ExecuteBuy debits cash and updates the position at a weighted-average cost
// basis. The caller has already checked affordability; a buy that would
// overdraw is an error and leaves the ledger untouched.
func (l *Ledger) ExecuteBuy(ticker string, price, qty float64) error {
	if !safe.PositiveFinite(price) {
		return fmt.Errorf("ledger %s: buy %s: invalid price %v", l.owner, ticker, price)
	}
	if !safe.PositiveFinite(qty) {
		return fmt.Errorf("ledger %s: buy %s: invalid quantity %v", l.owner, ticker, qty)
	}
	dp := decimal.NewFromFloat(price)
	dq := decimal.NewFromFloat(qty)
	cost := dp.Mul(dq)
	if cost.GreaterThan(l.cash) {
		return fmt.Errorf("ledger %s: buy %s: cost %s exceeds cash %s", l.owner, ticker, cost, l.cash)
	}

	held := l.holdings[ticker]
	if held > 0 {
		// basis' = (basis*held + price*qty) / (held + qty)
		dh := decimal.NewFromFloat(held)
		basis := l.costBasis[ticker]
		l.costBasis[ticker] = basis.Mul(dh).Add(cost).Div(dh.Add(dq))
	} else {
		l.costBasis[ticker] = dp
	}
	l.cash = l.cash.Sub(cost)
	l.holdings[ticker] = held + qty
	l.trades++
	l.sharesBought += qty
	l.verifyInvariant()
	return nil
}

// ExecuteSell credits cash, realizes PnL against the recorded basis, and
// reduces the position. Selling more than held is an error and leaves the
// ledger untouched. The basis of the remainder is unchanged; a position
// sold to zero drops its basis entirely.
func (l *Ledger) ExecuteSell(ticker string, price, qty float64) error {
	if !safe.PositiveFinite(price) {
		return fmt.Errorf("ledger %s: sell %s: invalid price %v", l.owner, ticker, price)
	}
	if !safe.PositiveFinite(qty) {
		return fmt.Errorf("ledger %s: sell %s: invalid quantity %v", l.owner, ticker, qty)
	}
	held := l.holdings[ticker]
	if qty > held {
		return fmt.Errorf("ledger %s: sell %s: quantity %v exceeds held %v", l.owner, ticker, qty, held)
	}
	dp := decimal.NewFromFloat(price)
	dq := decimal.NewFromFloat(qty)
	basis, ok := l.costBasis[ticker]
	if !ok {
		basis = dp
	}

	l.cash = l.cash.Add(dp.Mul(dq))
	l.realizedPnL = l.realizedPnL.Add(dp.Sub(basis).Mul(dq))
	remaining := held - qty
	if remaining <= 0 {
		delete(l.holdings, ticker)
		delete(l.costBasis, ticker)
	} else {
		l.holdings[ticker] = remaining
	}
	l.trades++
	l.sharesSold += qty
	l.verifyInvariant()
	return nil
}

// HoldingsValue marks all positions to the given prices. Tickers missing
// from the price map are valued at zero.
func (l *Ledger) HoldingsValue(prices map[string]float64) float64 {
	var total float64
	for t, qty := range l.holdings {
		total += qty * prices[t]
	}
	return total
}

// PortfolioValue is cash plus marked holdings.
func (l *Ledger) PortfolioValue(prices map[string]float64) float64 {
	return l.Cash() + l.HoldingsValue(prices)
}

// UnrealizedPnL is the mark-to-market gain over recorded basis.
func (l *Ledger) UnrealizedPnL(prices map[string]float64) float64 {
	var total float64
	for t, qty := range l.holdings {
		total += (prices[t] - l.CostBasis(t)) * qty
	}
	return total
}

// TotalPnL is realized plus unrealized.
func (l *Ledger) TotalPnL(prices map[string]float64) float64 {
	return l.RealizedPnL() + l.UnrealizedPnL(prices)
}

// Return is total PnL as a fraction of initial capital.
func (l *Ledger) Return(prices map[string]float64) float64 {
	return l.TotalPnL(prices) / l.InitialCapital()
}

// verifyInvariant panics when the ledger reaches a state no sequence of
// valid operations can produce.
func (l *Ledger) verifyInvariant() {
	if l.cash.IsNegative() {
		panic(fmt.Sprintf("ledger %s: negative cash %s", l.owner, l.cash))
	}
	for t, qty := range l.holdings {
		if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
			panic(fmt.Sprintf("ledger %s: invalid holding %s=%v", l.owner, t, qty))
		}
		if _, ok := l.costBasis[t]; !ok {
			panic(fmt.Sprintf("ledger %s: holding %s has no cost basis", l.owner, t))
		}
	}
	for t := range l.costBasis {
		if _, ok := l.holdings[t]; !ok {
			panic(fmt.Sprintf("ledger %s: cost basis for %s without holding", l.owner, t))
		}
	}
}
