// Package app assembles the simulation from its parts and drives a run.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sashreek007/MarketDynamicsSim/internal/control"
	"github.com/Sashreek007/MarketDynamicsSim/internal/effects"
	"github.com/Sashreek007/MarketDynamicsSim/internal/engine"
	"github.com/Sashreek007/MarketDynamicsSim/internal/infra"
	"github.com/Sashreek007/MarketDynamicsSim/internal/market"
	"github.com/Sashreek007/MarketDynamicsSim/internal/storage"
	"github.com/Sashreek007/MarketDynamicsSim/internal/trader"
)

// Simulation wires the market, agents, effects generator and scheduler into
// one runnable system. Everything downstream of the master seed is
// deterministic: same config, same trace.
type Simulation struct {
	cfg       *infra.Config
	mkt       *market.Market
	sched     *engine.Scheduler
	generator *effects.Generator
	manual    *effects.Generator
	ledgers   map[string]*trader.Ledger
	agents    []string
	sink      storage.Sink
	running   atomic.Bool
}

// New builds a simulation from config. Registration order is fixed: agents
// (sorted by name), then effects, then the market maker, then logging; seeds
// derive from the master seed plus the registration index.
func New(cfg *infra.Config, sink storage.Sink) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	specs := make([]market.InstrumentSpec, 0, len(cfg.Instruments))
	for _, ticker := range cfg.Tickers() {
		specs = append(specs, market.InstrumentSpec{
			Ticker:            ticker,
			Price:             cfg.Instruments[ticker].Price,
			SharesOutstanding: cfg.SharesOutstanding(ticker),
		})
	}
	mkt := market.New(market.Params{
		PriceImpactFactor: cfg.Simulation.PriceImpactFactor,
		BaseVolatility:    cfg.Simulation.BaseVolatility,
		TypicalVolume:     cfg.Simulation.TypicalVolume,
	}, specs)

	sim := &Simulation{
		cfg:     cfg,
		mkt:     mkt,
		sched:   engine.NewScheduler(),
		ledgers: make(map[string]*trader.Ledger),
		agents:  cfg.AgentNames(),
		sink:    sink,
	}

	seed := cfg.Simulation.RandomSeed
	regIndex := int64(0)
	procRng := func() *rand.Rand {
		r := rand.New(rand.NewSource(seed + regIndex))
		regIndex++
		return r
	}

	tradePeriod := 1.0 / float64(cfg.Simulation.TradesPerDay)
	for _, name := range sim.agents {
		ac := cfg.Agents[name]
		strat, err := trader.NewStrategy(ac.Strategy)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
		led, err := trader.NewLedger(name, ac.InitialCapital)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
		sim.ledgers[name] = led
		sim.sched.Register(&engine.TraderProcess{
			AgentName:   name,
			Strategy:    strat,
			Ledger:      led,
			Market:      mkt,
			Sink:        sink,
			Rng:         procRng(),
			TradeProb:   ac.TradeProbability,
			TradePeriod: tradePeriod,
		})
	}

	sim.generator = effects.NewGenerator(mkt, sink, procRng(), cfg.Simulation.EventProbability)
	sim.sched.Register(&engine.EffectsProcess{Generator: sim.generator})

	mm := engine.NewMarketMakerProcess(mkt, procRng())
	mm.SeedInitial()
	sim.sched.Register(mm)

	sim.sched.Register(&engine.LoggingProcess{
		Market:    mkt,
		Ledgers:   sim.ledgers,
		Agents:    sim.agents,
		Sink:      sink,
		Verbosity: cfg.Simulation.Verbosity,
	})

	// Manually triggered events draw from their own stream so they never
	// perturb the scheduled event sequence of a seeded run.
	sim.manual = effects.NewGenerator(mkt, sink, procRng(), 0)

	return sim, nil
}

// Run drives the scheduler for untilDays of simulated time, or until ctx is
// cancelled.
func (s *Simulation) Run(ctx context.Context, untilDays float64) {
	slog.Info("simulation starting",
		slog.Float64("horizon_days", untilDays),
		slog.Int64("seed", s.cfg.Simulation.RandomSeed),
		slog.Int("instruments", len(s.mkt.Tickers())),
		slog.Int("agents", len(s.agents)))

	s.running.Store(true)
	s.sched.Run(ctx, untilDays)
	s.running.Store(false)

	slog.Info("simulation finished", slog.Float64("sim_time", s.sched.Now()))
}

// commandWait bounds how long a control command waits for the scheduler
// thread to service it.
const commandWait = 5 * time.Second

var errCommandDropped = errors.New("scheduler busy, command not applied")

// onScheduler runs fn on the scheduler thread and waits for it, so control
// commands never touch market or scheduler state while a process body may
// be running. Outside a run fn executes in the caller. Returns
// errCommandDropped when the command could not be serviced.
func (s *Simulation) onScheduler(fn func()) error {
	if !s.running.Load() {
		fn()
		return nil
	}
	var once sync.Once
	done := make(chan struct{})
	queued := s.sched.Enqueue(func() {
		once.Do(fn)
		close(done)
	})
	if !queued {
		return errCommandDropped
	}
	// The run loop may stop before draining the command; once it has, the
	// caller runs fn itself. once makes the two paths mutually exclusive.
	deadline := time.After(commandWait)
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-done:
			return nil
		case <-tick.C:
			if !s.running.Load() {
				once.Do(fn)
				return nil
			}
		case <-deadline:
			return errCommandDropped
		}
	}
}

// TriggerEvent composes and applies a manual event on the scheduler thread.
// Composition uses the manual rng, so identical seeded runs stay identical
// whether or not an operator injects events.
func (s *Simulation) TriggerEvent(t effects.EventType, p effects.Params) error {
	var composeErr error
	err := s.onScheduler(func() {
		ev, cerr := s.manual.Compose(t, p)
		if cerr != nil {
			composeErr = cerr
			return
		}
		s.manual.Apply(ev, s.sched.Now())
	})
	if err != nil {
		return err
	}
	return composeErr
}

// ResetCircuitBreaker lifts a trading halt.
func (s *Simulation) ResetCircuitBreaker() {
	if err := s.onScheduler(s.mkt.ResetCircuitBreaker); err != nil {
		slog.Warn("circuit breaker reset not applied", slog.Any("error", err))
	}
}

// Status reports the live view consumed by the control surface. The
// snapshot is taken on the scheduler thread between process bodies.
func (s *Simulation) Status() control.Status {
	var st control.Status
	if err := s.onScheduler(func() {
		st = control.Status{
			SimTime:   s.sched.Now(),
			Halted:    s.mkt.Halted(),
			Sentiment: s.mkt.Sentiment(),
			Prices:    s.mkt.Prices(),
		}
	}); err != nil {
		slog.Warn("status snapshot unavailable", slog.Any("error", err))
	}
	return st
}

// AgentSummary is one line of the end-of-run report.
type AgentSummary struct {
	Name           string
	Strategy       string
	InitialCapital float64
	FinalValue     float64
	RealizedPnL    float64
	TotalReturn    float64
	Trades         int
}

// Summary reports each agent's final standing, in stable agent order.
func (s *Simulation) Summary() []AgentSummary {
	prices := s.mkt.Prices()
	out := make([]AgentSummary, 0, len(s.agents))
	for _, name := range s.agents {
		led := s.ledgers[name]
		out = append(out, AgentSummary{
			Name:           name,
			Strategy:       s.cfg.Agents[name].Strategy,
			InitialCapital: led.InitialCapital(),
			FinalValue:     led.PortfolioValue(prices),
			RealizedPnL:    led.RealizedPnL(),
			TotalReturn:    led.Return(prices),
			Trades:         led.TradeCount(),
		})
	}
	return out
}

// Market exposes the market for inspection.
func (s *Simulation) Market() *market.Market { return s.mkt }

// Ledger returns one agent's ledger.
func (s *Simulation) Ledger(name string) *trader.Ledger { return s.ledgers[name] }
