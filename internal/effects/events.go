// Package effects generates and applies stochastic market events: news
// shocks, market-wide moves, volatility regime changes, sentiment shifts,
// sector rotations and dividend notices.
package effects

import "fmt"

// EventType tags the archetype of a market event.
type EventType uint8

const (
	PositiveNews EventType = iota
	NegativeNews
	MarketRally
	MarketCrash
	VolatilitySpike
	VolatilityCalm
	SentimentShift
	SectorRotation
	CorrelatedMove
	DividendNotice
)

// archetypes is the ordered roll table; order matters for determinism.
var archetypes = [...]EventType{
	PositiveNews, NegativeNews, MarketRally, MarketCrash,
	VolatilitySpike, VolatilityCalm, SentimentShift,
	SectorRotation, CorrelatedMove, DividendNotice,
}

var eventNames = map[EventType]string{
	PositiveNews:    "positive_news",
	NegativeNews:    "negative_news",
	MarketRally:     "market_rally",
	MarketCrash:     "market_crash",
	VolatilitySpike: "volatility_spike",
	VolatilityCalm:  "volatility_calm",
	SentimentShift:  "sentiment_shift",
	SectorRotation:  "sector_rotation",
	CorrelatedMove:  "correlated_move",
	DividendNotice:  "dividend_notice",
}

func (t EventType) String() string {
	if s, ok := eventNames[t]; ok {
		return s
	}
	return fmt.Sprintf("event_type(%d)", t)
}

// ParseEventType maps a wire name back to its tag.
func ParseEventType(s string) (EventType, error) {
	for t, name := range eventNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

// MarketEvent is one concrete event. Which fields are meaningful depends on
// Type: Magnitude for price shocks, Sentiment for sentiment shifts,
// Volatility for regime changes. Tickers lists the affected instruments;
// for SectorRotation it holds the winners, with every other listed
// instrument moving the opposite way.
type MarketEvent struct {
	Type        EventType
	Magnitude   float64
	Sentiment   float64
	Volatility  float64
	Tickers     []string
	Description string
}

// Params customizes Compose. Absent fields mean "use the archetype
// default": an empty Ticker picks at random, a nil Magnitude/Sentiment/
// Volatility samples from the archetype's range. A pointer to zero is an
// explicit zero and is honored as given.
type Params struct {
	Ticker      string
	Magnitude   *float64
	Sentiment   *float64
	Volatility  *float64
	Description string
}

// Fixed wraps an explicit parameter value.
func Fixed(v float64) *float64 { return &v }
