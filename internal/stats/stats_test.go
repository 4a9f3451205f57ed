package stats_test

import (
	"nanotrade/internal/event"
	"nanotrade/internal/stats"
	"testing"
)

func TestWindowSumMatchesContents(t *testing.T) {
	var w stats.Window
	vals := []uint16{5, 10, 15, 20, 25, 30, 35, 40, 45, 50}
	for i, v := range vals {
		w.Push(v)
		// Recompute the expected sum over the live tail of length min(i+1, 8).
		start := 0
		if i >= stats.WindowSize {
			start = i - stats.WindowSize + 1
		}
		var want uint32
		for _, x := range vals[start : i+1] {
			want += uint32(x)
		}
		if w.Sum() != want {
			t.Fatalf("after push %d: sum=%d want %d", v, w.Sum(), want)
		}
	}
	if w.Avg() != 32 { // 260/8 truncated
		t.Errorf("avg=%d want 32", w.Avg())
	}
	if w.Last() != 50 {
		t.Errorf("last=%d want 50", w.Last())
	}
}

func TestWarmupRequiresBothWindowsFilled(t *testing.T) {
	s := stats.New()
	for i := 0; i < 8; i++ {
		s.Tick()
		s.Observe(event.NewPrice(100))
	}
	if !s.Warmup() {
		t.Fatal("warmup should hold until the volume window fills")
	}
	for i := 0; i < 7; i++ {
		s.Tick()
		s.Observe(event.NewVolume(100))
	}
	if !s.Warmup() {
		t.Fatal("warmup should hold at 7 volume samples")
	}
	s.Tick()
	s.Observe(event.NewVolume(100))
	if s.Warmup() {
		t.Fatal("warmup should clear after 8+8 real samples")
	}
}

func TestIdleSamplesExcluded(t *testing.T) {
	s := stats.New()
	for i := 0; i < 100; i++ {
		s.Tick()
		s.Observe(event.NewIdle())
		s.Observe(event.NewVolume(0))
	}
	if !s.Warmup() {
		t.Error("idle ticks must not count toward warmup")
	}
	if s.PriceAvg() != 0 || s.VolumeAvg() != 0 {
		t.Error("idle ticks must not enter the windows")
	}
}

func TestCountersHalvedAtWindowBoundary(t *testing.T) {
	s := stats.New()
	for i := 0; i < 10; i++ {
		s.Tick()
		s.Observe(event.NewBuy(10))
	}
	for i := 0; i < 3; i++ {
		s.Tick()
		s.Observe(event.NewSell(10))
	}
	s.ObserveMatch()
	s.ObserveMatch()

	if s.BuyCount() != 10 || s.SellCount() != 3 || s.OrderCount() != 13 || s.MatchRate() != 2 {
		t.Fatalf("counters: buy=%d sell=%d orders=%d matches=%d",
			s.BuyCount(), s.SellCount(), s.OrderCount(), s.MatchRate())
	}

	// Run out the remainder of the 256-tick window with idle ticks.
	for s.WindowTicks() != 0 {
		s.Tick()
	}

	if s.BuyCount() != 5 || s.SellCount() != 1 || s.OrderCount() != 6 || s.MatchRate() != 1 {
		t.Errorf("decayed counters: buy=%d sell=%d orders=%d matches=%d (want halved, not reset)",
			s.BuyCount(), s.SellCount(), s.OrderCount(), s.MatchRate())
	}
}

func TestDeltaTrackingAfterWarmup(t *testing.T) {
	s := stats.New()
	for i := 0; i < 8; i++ {
		s.Tick()
		s.Observe(event.NewPrice(100))
	}
	s.Tick()
	s.Observe(event.NewPrice(110))
	s.Tick()
	s.Observe(event.NewPrice(125))

	if s.LastDelta() != 15 || s.PrevDelta() != 10 {
		t.Errorf("deltas: last=%d prev=%d, want 15/10", s.LastDelta(), s.PrevDelta())
	}
}

func TestTimeSinceMatch(t *testing.T) {
	s := stats.New()
	s.ObserveMatch()
	if s.TimeSinceMatch() != 0 {
		t.Fatal("fresh match should zero the clock")
	}
	for i := 0; i < 5; i++ {
		s.Tick()
	}
	if s.TimeSinceMatch() != 5 {
		t.Errorf("time since match = %d, want 5", s.TimeSinceMatch())
	}
}
