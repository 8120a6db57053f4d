package effects

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/Sashreek007/MarketDynamicsSim/internal/market"
)

// Recorder receives one record per applied event. Satisfied by the storage
// sink.
type Recorder interface {
	LogMarketEvent(simTime float64, eventType string, magnitude float64, tickers []string, description string)
}

// Generator rolls random events and applies them to the market. All
// randomness comes from its own rng, so a seeded run replays identically.
type Generator struct {
	mkt         *market.Market
	rec         Recorder
	rng         *rand.Rand
	probability float64
}

func NewGenerator(mkt *market.Market, rec Recorder, rng *rand.Rand, probability float64) *Generator {
	return &Generator{mkt: mkt, rec: rec, rng: rng, probability: probability}
}

var positiveHeadlines = []string{
	"%s announces strong earnings beat",
	"%s wins major contract",
	"%s launches innovative new product",
	"%s announces share buyback program",
	"%s upgrades guidance for next quarter",
}

var negativeHeadlines = []string{
	"%s misses earnings expectations",
	"%s faces regulatory investigation",
	"%s announces product recall",
	"%s lowers guidance",
	"%s CEO resignation announced",
}

// Roll draws the Bernoulli event gate and, on success, builds a random
// event. Returns nil most ticks.
func (g *Generator) Roll() *MarketEvent {
	if g.rng.Float64() >= g.probability {
		return nil
	}
	t := archetypes[g.rng.Intn(len(archetypes))]
	ev, err := g.Compose(t, Params{})
	if err != nil {
		// Unreachable for known archetypes.
		slog.Error("event roll failed", slog.String("type", t.String()), slog.Any("error", err))
		return nil
	}
	return ev
}

// Compose builds a concrete event of the given type, filling absent Params
// fields with the archetype's randomized defaults.
func (g *Generator) Compose(t EventType, p Params) (*MarketEvent, error) {
	tickers := g.mkt.Tickers()
	switch t {
	case PositiveNews:
		ticker := p.Ticker
		if ticker == "" {
			ticker = tickers[g.rng.Intn(len(tickers))]
		}
		mag := g.pick(p.Magnitude, 0.02, 0.08)
		desc := p.Description
		if desc == "" {
			desc = fmt.Sprintf(positiveHeadlines[g.rng.Intn(len(positiveHeadlines))], ticker)
		}
		return &MarketEvent{Type: t, Magnitude: mag, Tickers: []string{ticker}, Description: desc}, nil

	case NegativeNews:
		ticker := p.Ticker
		if ticker == "" {
			ticker = tickers[g.rng.Intn(len(tickers))]
		}
		mag := g.pick(p.Magnitude, -0.08, -0.02)
		desc := p.Description
		if desc == "" {
			desc = fmt.Sprintf(negativeHeadlines[g.rng.Intn(len(negativeHeadlines))], ticker)
		}
		return &MarketEvent{Type: t, Magnitude: mag, Tickers: []string{ticker}, Description: desc}, nil

	case MarketRally:
		mag := g.pick(p.Magnitude, 0.03, 0.07)
		desc := p.Description
		if desc == "" {
			desc = "Market rallies on positive economic data"
		}
		return &MarketEvent{Type: t, Magnitude: mag, Tickers: tickers, Description: desc}, nil

	case MarketCrash:
		mag := g.pick(p.Magnitude, -0.10, -0.03)
		desc := p.Description
		if desc == "" {
			desc = "Market drops on economic concerns"
		}
		return &MarketEvent{Type: t, Magnitude: mag, Tickers: tickers, Description: desc}, nil

	case VolatilitySpike:
		vol := g.pick(p.Volatility, 0.05, 0.10)
		return &MarketEvent{Type: t, Volatility: vol,
			Description: "Market volatility spikes due to uncertainty"}, nil

	case VolatilityCalm:
		vol := g.pick(p.Volatility, 0.005, 0.015)
		return &MarketEvent{Type: t, Volatility: vol,
			Description: "Market volatility decreases as calm returns"}, nil

	case SentimentShift:
		sent := g.pick(p.Sentiment, -0.5, 0.5)
		desc := "Market sentiment becomes neutral"
		if sent > 0.3 {
			desc = "Market sentiment turns bullish"
		} else if sent < -0.3 {
			desc = "Market sentiment turns bearish"
		}
		return &MarketEvent{Type: t, Sentiment: sent, Description: desc}, nil

	case SectorRotation:
		n := 1 + g.rng.Intn(max(len(tickers)/2, 1))
		winners := g.sample(tickers, n)
		mag := g.pick(p.Magnitude, 0.02, 0.05)
		return &MarketEvent{Type: t, Magnitude: mag, Tickers: winners,
			Description: "Sector rotation: capital flows from growth to value"}, nil

	case CorrelatedMove:
		n := 2 + g.rng.Intn(max(len(tickers)-1, 1))
		if n > len(tickers) {
			n = len(tickers)
		}
		moved := g.sample(tickers, n)
		mag := g.pick(p.Magnitude, -0.05, 0.05)
		return &MarketEvent{Type: t, Magnitude: mag, Tickers: moved,
			Description: fmt.Sprintf("Correlated movement in %s", strings.Join(moved, ", "))}, nil

	case DividendNotice:
		ticker := p.Ticker
		if ticker == "" {
			ticker = tickers[g.rng.Intn(len(tickers))]
		}
		pct := g.pick(p.Magnitude, 0.01, 0.03)
		return &MarketEvent{Type: t, Magnitude: pct, Tickers: []string{ticker},
			Description: fmt.Sprintf("%s pays dividend (%.1f%% yield)", ticker, pct*100)}, nil

	default:
		return nil, fmt.Errorf("unknown event type %d", t)
	}
}

// Apply mutates the market per the event's archetype and emits one sink
// record. Rolled and manually composed events take the same path.
func (g *Generator) Apply(ev *MarketEvent, simTime float64) {
	switch ev.Type {
	case PositiveNews, NegativeNews, MarketRally, MarketCrash, CorrelatedMove:
		g.mkt.ApplyShock(ev.Magnitude, ev.Tickers)
	case SectorRotation:
		g.mkt.ApplyShock(ev.Magnitude, ev.Tickers)
		g.mkt.ApplyShock(-ev.Magnitude, g.losers(ev.Tickers))
	case SentimentShift:
		g.mkt.SetSentiment(ev.Sentiment)
	case VolatilitySpike, VolatilityCalm:
		g.mkt.SetVolatilityRegime(ev.Volatility)
	case DividendNotice:
		// Announcement only; no price or cash movement.
	}

	slog.Info("market event",
		slog.String("type", ev.Type.String()),
		slog.Float64("magnitude", ev.Magnitude),
		slog.String("description", ev.Description),
		slog.Float64("sim_time", simTime))
	g.rec.LogMarketEvent(simTime, ev.Type.String(), ev.Magnitude, ev.Tickers, ev.Description)
}

// losers returns all listed tickers not in winners, in listing order.
func (g *Generator) losers(winners []string) []string {
	in := make(map[string]bool, len(winners))
	for _, t := range winners {
		in[t] = true
	}
	var out []string
	for _, t := range g.mkt.Tickers() {
		if !in[t] {
			out = append(out, t)
		}
	}
	return out
}

// uniform draws from [lo, hi).
func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// pick returns the explicit value when one was given, else draws a default
// from [lo, hi). Only absent values consume randomness.
func (g *Generator) pick(v *float64, lo, hi float64) float64 {
	if v != nil {
		return *v
	}
	return g.uniform(lo, hi)
}

// sample picks n distinct tickers, preserving listing order in the result.
func (g *Generator) sample(tickers []string, n int) []string {
	if n >= len(tickers) {
		out := make([]string, len(tickers))
		copy(out, tickers)
		return out
	}
	idx := g.rng.Perm(len(tickers))[:n]
	picked := make(map[int]bool, n)
	for _, i := range idx {
		picked[i] = true
	}
	out := make([]string, 0, n)
	for i, t := range tickers {
		if picked[i] {
			out = append(out, t)
		}
	}
	return out
}
