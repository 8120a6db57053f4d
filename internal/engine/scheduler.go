// Package engine drives the simulation: a single-threaded scheduler over
// simulated time and the recurring processes that run on it.
package engine

import (
	"container/heap"
	"context"
	"log/slog"
)

// Process is one recurring simulation activity. Tick runs to completion
// before any other process body; there is no preemption.
type Process interface {
	Name() string
	Period() float64
	Tick(now float64)
}

type pendingProc struct {
	proc     Process
	wake     float64
	regOrder int
}

// wakeHeap orders by wake time, then by registration order so equal wakes
// replay identically.
type wakeHeap []*pendingProc

func (h wakeHeap) Len() int { return len(h) }
func (h wakeHeap) Less(i, j int) bool {
	if h[i].wake != h[j].wake {
		return h[i].wake < h[j].wake
	}
	return h[i].regOrder < h[j].regOrder
}
func (h wakeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *wakeHeap) Push(x any) { *h = append(*h, x.(*pendingProc)) }
func (h *wakeHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return p
}

// Scheduler advances simulated time by running the earliest pending process
// body. Time only moves when the scheduler moves it. Not safe for
// concurrent use except via Enqueue.
type Scheduler struct {
	pending  wakeHeap
	now      float64
	nextReg  int
	commands chan func()
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		commands: make(chan func(), 64),
	}
}

// Now returns the current simulated time in days.
func (s *Scheduler) Now() float64 { return s.now }

// Register adds a process; its first wake is one period from time zero.
// Registration order breaks wake-time ties.
func (s *Scheduler) Register(p Process) {
	heap.Push(&s.pending, &pendingProc{
		proc:     p,
		wake:     p.Period(),
		regOrder: s.nextReg,
	})
	s.nextReg++
}

// Enqueue schedules a command to run on the scheduler thread between
// process bodies. Safe to call from other goroutines. Reports whether the
// command was accepted; a full queue drops it.
func (s *Scheduler) Enqueue(cmd func()) bool {
	select {
	case s.commands <- cmd:
		return true
	default:
		slog.Warn("command queue full, dropping command")
		return false
	}
}

func (s *Scheduler) drainCommands() {
	for {
		select {
		case cmd := <-s.commands:
			cmd()
		default:
			return
		}
	}
}

// Run executes process bodies in wake order until the next wake passes
// until (when until > 0) or ctx is cancelled. Cancellation is observed
// between bodies only; a body in flight always completes.
func (s *Scheduler) Run(ctx context.Context, until float64) {
	for s.pending.Len() > 0 {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped", slog.Float64("sim_time", s.now))
			return
		default:
		}

		next := s.pending[0]
		if until > 0 && next.wake > until {
			s.now = until
			return
		}
		heap.Pop(&s.pending)
		s.now = next.wake

		s.drainCommands()
		next.proc.Tick(s.now)

		next.wake += next.proc.Period()
		heap.Push(&s.pending, next)
	}
}
