package engine

import (
	"context"
	"testing"
)

type recordingProc struct {
	name   string
	period float64
	log    *[]string
	times  []float64
}

func (p *recordingProc) Name() string    { return p.name }
func (p *recordingProc) Period() float64 { return p.period }
func (p *recordingProc) Tick(now float64) {
	*p.log = append(*p.log, p.name)
	p.times = append(p.times, now)
}

func TestSchedulerRunsInWakeOrder(t *testing.T) {
	s := NewScheduler()
	var log []string
	fast := &recordingProc{name: "fast", period: 0.25, log: &log}
	slow := &recordingProc{name: "slow", period: 1.0, log: &log}
	s.Register(fast)
	s.Register(slow)

	s.Run(context.Background(), 1.0)

	// fast at 0.25, 0.5, 0.75, then the 1.0 tie: fast registered first.
	want := []string{"fast", "fast", "fast", "fast", "slow"}
	if len(log) != len(want) {
		t.Fatalf("log = %v", log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}
	if fast.times[0] != 0.25 || slow.times[0] != 1.0 {
		t.Fatalf("wake times = %v / %v", fast.times, slow.times)
	}
}

func TestSchedulerTieBreakFollowsRegistration(t *testing.T) {
	s := NewScheduler()
	var log []string
	a := &recordingProc{name: "a", period: 1, log: &log}
	b := &recordingProc{name: "b", period: 1, log: &log}
	c := &recordingProc{name: "c", period: 1, log: &log}
	s.Register(a)
	s.Register(b)
	s.Register(c)

	s.Run(context.Background(), 2.0)

	want := []string{"a", "b", "c", "a", "b", "c"}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}
}

func TestSchedulerStopsAtHorizon(t *testing.T) {
	s := NewScheduler()
	var log []string
	p := &recordingProc{name: "p", period: 1, log: &log}
	s.Register(p)

	s.Run(context.Background(), 10)

	if len(log) != 10 {
		t.Fatalf("ticks = %d, want 10", len(log))
	}
	if s.Now() != 10 {
		t.Fatalf("final time = %v, want 10", s.Now())
	}
}

func TestSchedulerClockIsMonotonic(t *testing.T) {
	s := NewScheduler()
	var log []string
	a := &recordingProc{name: "a", period: 0.25, log: &log}
	b := &recordingProc{name: "b", period: 0.4, log: &log}
	s.Register(a)
	s.Register(b)

	s.Run(context.Background(), 5)

	var all []float64
	all = append(all, a.times...)
	// Each process sees increasing times; the global merged order is checked
	// through the clock itself, which only the scheduler advances.
	for i := 1; i < len(all); i++ {
		if all[i] <= all[i-1] {
			t.Fatalf("time went backwards: %v", all)
		}
	}
	for i := 1; i < len(b.times); i++ {
		if b.times[i] <= b.times[i-1] {
			t.Fatalf("time went backwards: %v", b.times)
		}
	}
}

func TestSchedulerContextCancel(t *testing.T) {
	s := NewScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	var log []string
	p := &recordingProc{name: "p", period: 1, log: &log}
	s.Register(p)

	ran := 0
	s.Register(&funcProc{name: "canceller", period: 1, fn: func(float64) {
		ran++
		if ran == 3 {
			cancel()
		}
	}})

	s.Run(ctx, 100)

	if ran != 3 {
		t.Fatalf("canceller ran %d times, want 3", ran)
	}
	// The in-flight day completes; nothing runs after cancellation is seen.
	if len(log) > 4 {
		t.Fatalf("process ran %d times after cancel", len(log))
	}
}

type funcProc struct {
	name   string
	period float64
	fn     func(now float64)
}

func (p *funcProc) Name() string     { return p.name }
func (p *funcProc) Period() float64  { return p.period }
func (p *funcProc) Tick(now float64) { p.fn(now) }

func TestEnqueueRunsBetweenBodies(t *testing.T) {
	s := NewScheduler()
	var order []string
	s.Register(&funcProc{name: "p", period: 1, fn: func(now float64) {
		order = append(order, "tick")
		if now == 1 {
			s.Enqueue(func() { order = append(order, "cmd") })
		}
	}})

	s.Run(context.Background(), 3)

	want := []string{"tick", "cmd", "tick", "tick"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
