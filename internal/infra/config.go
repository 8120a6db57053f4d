package infra

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// InstrumentConfig describes one listed instrument. Shares outstanding are
// derived: marketCap / price.
type InstrumentConfig struct {
	Price             float64 `yaml:"price"`
	MarketCapBillions float64 `yaml:"market_cap_billions"`
}

// AgentConfig describes one trading agent.
type AgentConfig struct {
	Strategy         string  `yaml:"strategy"`
	InitialCapital   float64 `yaml:"initial_capital"`
	TradeProbability float64 `yaml:"trade_probability"`
}

// Config holds every knob the simulation reads.
type Config struct {
	Simulation struct {
		HorizonDays       float64 `yaml:"horizon_days"`
		TradesPerDay      int     `yaml:"trades_per_day"`
		PriceImpactFactor float64 `yaml:"price_impact_factor"`
		BaseVolatility    float64 `yaml:"base_volatility"`
		TypicalVolume     float64 `yaml:"typical_volume"`
		EventProbability  float64 `yaml:"event_probability"`
		RandomSeed        int64   `yaml:"random_seed"`
		Verbosity         int     `yaml:"verbosity"`
	} `yaml:"simulation"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Control struct {
		ListenAddr string `yaml:"listen_addr"` // empty disables the control server
	} `yaml:"control"`

	Instruments map[string]InstrumentConfig `yaml:"instruments"`
	Agents      map[string]AgentConfig      `yaml:"agents"`
}

// validStrategies mirrors the strategy names the trader package accepts.
var validStrategies = map[string]bool{
	"momentum":    true,
	"value":       true,
	"poor_timing": true,
	"accumulator": true,
}

// DefaultConfig returns the stock parameter tables: four large-cap
// instruments and one agent per strategy archetype.
func DefaultConfig() *Config {
	cfg := &Config{
		Instruments: map[string]InstrumentConfig{
			"AAPL":  {Price: 270.0, MarketCapBillions: 4010.0},
			"GOOGL": {Price: 281.0, MarketCapBillions: 3400.0},
			"AMZN":  {Price: 244.0, MarketCapBillions: 2600.0},
			"NVDA":  {Price: 202.0, MarketCapBillions: 4920.0},
		},
		Agents: map[string]AgentConfig{
			"Momentum":    {Strategy: "momentum", InitialCapital: 1_000_000, TradeProbability: 0.7},
			"Value":       {Strategy: "value", InitialCapital: 2_000_000, TradeProbability: 0.3},
			"Retail":      {Strategy: "poor_timing", InitialCapital: 500_000, TradeProbability: 0.9},
			"Accumulator": {Strategy: "accumulator", InitialCapital: 5_000_000, TradeProbability: 0.2},
		},
	}
	cfg.Simulation.HorizonDays = 100
	cfg.Simulation.TradesPerDay = 4
	cfg.Simulation.PriceImpactFactor = 0.1
	cfg.Simulation.BaseVolatility = 0.02
	cfg.Simulation.TypicalVolume = 1000
	cfg.Simulation.EventProbability = 0.01
	cfg.Simulation.RandomSeed = 42
	cfg.Simulation.Verbosity = 1
	cfg.Database.Path = "market_simulation.db"
	return cfg
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	// Unmarshalling merges into non-nil maps. A file that lists its own
	// instruments or agents replaces the default tables, so probe first and
	// clear the defaults it overrides.
	var probe struct {
		Instruments map[string]InstrumentConfig `yaml:"instruments"`
		Agents      map[string]AgentConfig      `yaml:"agents"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if probe.Instruments != nil {
		cfg.Instruments = nil
	}
	if probe.Agents != nil {
		cfg.Agents = nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	for ticker, ins := range c.Instruments {
		if ins.Price <= 0 {
			return fmt.Errorf("instrument %s: price must be positive", ticker)
		}
		if ins.MarketCapBillions <= 0 {
			return fmt.Errorf("instrument %s: market cap must be positive", ticker)
		}
	}

	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent is required")
	}
	for name, ag := range c.Agents {
		if !validStrategies[ag.Strategy] {
			return fmt.Errorf("agent %s: unknown strategy %q", name, ag.Strategy)
		}
		if ag.InitialCapital <= 0 {
			return fmt.Errorf("agent %s: initial capital must be positive", name)
		}
		if ag.TradeProbability < 0 || ag.TradeProbability > 1 {
			return fmt.Errorf("agent %s: trade probability must be in [0, 1]", name)
		}
	}

	s := &c.Simulation
	if s.TradesPerDay <= 0 {
		return fmt.Errorf("trades_per_day must be positive")
	}
	if s.PriceImpactFactor <= 0 {
		return fmt.Errorf("price_impact_factor must be positive")
	}
	if s.BaseVolatility <= 0 {
		return fmt.Errorf("base_volatility must be positive")
	}
	if s.TypicalVolume <= 0 {
		return fmt.Errorf("typical_volume must be positive")
	}
	if s.EventProbability < 0 || s.EventProbability > 1 {
		return fmt.Errorf("event_probability must be in [0, 1]")
	}
	if s.HorizonDays < 0 {
		return fmt.Errorf("horizon_days must not be negative")
	}
	return nil
}

// Tickers returns instrument tickers in a stable order. Map iteration order
// must never leak into the simulation: same config, same run.
func (c *Config) Tickers() []string {
	out := make([]string, 0, len(c.Instruments))
	for t := range c.Instruments {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// AgentNames returns agent names in a stable order.
func (c *Config) AgentNames() []string {
	out := make([]string, 0, len(c.Agents))
	for n := range c.Agents {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// SharesOutstanding derives the share count for a ticker from its market cap
// and initial price.
func (c *Config) SharesOutstanding(ticker string) float64 {
	ins, ok := c.Instruments[ticker]
	if !ok || ins.Price <= 0 {
		return 0
	}
	return ins.MarketCapBillions * 1e9 / ins.Price
}
