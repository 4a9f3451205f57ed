package features_test

import (
	"nanotrade/internal/book"
	"nanotrade/internal/event"
	"nanotrade/internal/features"
	"nanotrade/internal/stats"
	"testing"
)

func warmedStats(t *testing.T) *stats.Stats {
	t.Helper()
	s := stats.New()
	for i := 0; i < 8; i++ {
		s.Tick()
		s.Observe(event.NewPrice(100))
		s.Observe(event.NewVolume(100))
	}
	return s
}

func TestSnapshotPulseEvery256Ticks(t *testing.T) {
	x := features.New()
	s := warmedStats(t)
	b := book.New()

	for i := 0; i < features.SnapshotInterval-1; i++ {
		if _, ok := x.Step(s, b); ok {
			t.Fatalf("premature snapshot at tick %d", i+1)
		}
	}
	if _, ok := x.Step(s, b); !ok {
		t.Fatal("no snapshot at tick 256")
	}
	// The pulse lasts one tick only.
	if _, ok := x.Step(s, b); ok {
		t.Fatal("pulse held past its tick")
	}
}

func TestQuietMarketSnapshot(t *testing.T) {
	x := features.New()
	s := warmedStats(t)

	b := book.New()
	b.Step(event.NewBuy(10), book.OpenPolicy())
	b.Step(event.NewSell(20), book.OpenPolicy()) // resting 10/20 spread

	var v features.Vector
	var ok bool
	for i := 0; i < features.SnapshotInterval; i++ {
		v, ok = x.Step(s, b)
	}
	if !ok {
		t.Fatal("expected snapshot")
	}

	want := map[int]uint8{
		0:  128, // no price move
		1:  128, // at the rolling average
		2:  128, // no previous snapshot to measure against
		3:  64,  // volume exactly at its average
		4:  85,  // spread 10 over mid 15, scaled by 128
		5:  128, // balanced (empty) flow
		6:  0,   // zero deviation so far
		8:  10,  // pinned cancel rate
		9:  64,  // one bid slot
		10: 64,  // one ask slot
		11: 255, // no match has ever happened
		12: 200, // pinned lifespan
		14: 128, // flat momentum
		15: 128,
	}
	for i, w := range want {
		if v[i] != w {
			t.Errorf("feature[%d] = %d, want %d", i, v[i], w)
		}
	}
}

func TestLongDeltaMeasuredBetweenSnapshots(t *testing.T) {
	x := features.New()
	s := warmedStats(t)
	b := book.New()

	for i := 0; i < features.SnapshotInterval; i++ {
		x.Step(s, b)
	}

	s.Tick()
	s.Observe(event.NewPrice(150))
	var v features.Vector
	for i := 0; i < features.SnapshotInterval; i++ {
		v, _ = x.Step(s, b)
	}

	if v[0] != 178 { // +50 biased
		t.Errorf("short delta = %d, want 178", v[0])
	}
	if v[2] != 178 { // 150 vs snapshot price 100
		t.Errorf("long delta = %d, want 178", v[2])
	}
	if v[1] != 172 { // 150 vs window average 106
		t.Errorf("medium delta = %d, want 172", v[1])
	}
}

func TestImbalanceSaturation(t *testing.T) {
	x := features.New()
	s := warmedStats(t)
	b := book.New()
	for i := 0; i < 20; i++ {
		s.Tick()
		s.Observe(event.NewBuy(5))
	}

	var v features.Vector
	for i := 0; i < features.SnapshotInterval; i++ {
		v, _ = x.Step(s, b)
	}
	if v[5] != 255 { // all-buy flow clips at +127 biased
		t.Errorf("imbalance = %d, want 255", v[5])
	}
}
