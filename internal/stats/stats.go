package stats

import (
	"nanotrade/internal/event"
	fpmath "nanotrade/internal/math"
)

// CounterWindow is the tick span between counter decay boundaries.
const CounterWindow = 256

// Stats maintains the rolling price/volume windows, an exponential
// mean-absolute-deviation estimate, and the order-flow counters the rule
// detectors read. Counters are halved (not reset) at every 256-tick
// window boundary; the decay keeps a baseline across windows instead of
// discarding it, which suppresses boundary-aligned false positives.
type Stats struct {
	price  Window
	volume Window

	mad uint16 // exponential MAD estimate of price deviation

	lastPrice uint16
	lastDelta int32 // most recent price move
	prevDelta int32 // the move before that

	buyCount   uint16
	sellCount  uint16
	orderCount uint16
	matchCount uint16 // decayed match-rate baseline

	windowTicks    uint16 // ticks elapsed in the current counter window
	timeSinceMatch uint16
}

func New() *Stats {
	return &Stats{timeSinceMatch: 0xFFFF}
}

// Tick advances per-tick bookkeeping. Called once at the start of every
// tick, before the event is observed.
func (s *Stats) Tick() {
	s.windowTicks++
	if s.windowTicks >= CounterWindow {
		s.buyCount >>= 1
		s.sellCount >>= 1
		s.orderCount >>= 1
		s.matchCount >>= 1
		s.windowTicks = 0
	}
	s.timeSinceMatch = fpmath.SatIncU16(s.timeSinceMatch)
}

// Observe folds one event into the statistics. Idle readings are a
// defined no-op and never enter the windows.
func (s *Stats) Observe(ev event.MarketEvent) {
	switch ev.Kind {
	case event.KindPrice:
		if ev.Value == 0 {
			return
		}
		s.observePrice(ev.Value)
	case event.KindVolume:
		if ev.Value == 0 {
			return
		}
		s.volume.Push(ev.Value)
	case event.KindBuy:
		s.buyCount = fpmath.SatIncU16(s.buyCount)
		s.orderCount = fpmath.SatIncU16(s.orderCount)
	case event.KindSell:
		s.sellCount = fpmath.SatIncU16(s.sellCount)
		s.orderCount = fpmath.SatIncU16(s.orderCount)
	}
}

func (s *Stats) observePrice(p uint16) {
	if s.price.Filled() {
		s.prevDelta = s.lastDelta
		s.lastDelta = int32(p) - int32(s.lastPrice)
	}
	s.lastPrice = p
	s.price.Push(p)

	// mad += (|p - avg| - mad) / 8, shift-approximated
	dev := fpmath.AbsDiffU16(p, s.price.Avg())
	s.mad = s.mad - s.mad>>3 + dev>>3
}

// ObserveMatch records an executed match.
func (s *Stats) ObserveMatch() {
	s.matchCount = fpmath.SatIncU16(s.matchCount)
	s.timeSinceMatch = 0
}

// Warmup is true until both windows hold 8 real samples; all detectors
// are gated while it holds.
func (s *Stats) Warmup() bool {
	return !(s.price.Filled() && s.volume.Filled())
}

func (s *Stats) LastPrice() uint16      { return s.lastPrice }
func (s *Stats) PriceAvg() uint16       { return s.price.Avg() }
func (s *Stats) PriceSum() uint32       { return s.price.Sum() }
func (s *Stats) LastVolume() uint16     { return s.volume.Last() }
func (s *Stats) VolumeAvg() uint16      { return s.volume.Avg() }
func (s *Stats) MAD() uint16            { return s.mad }
func (s *Stats) LastDelta() int32       { return s.lastDelta }
func (s *Stats) PrevDelta() int32       { return s.prevDelta }
func (s *Stats) BuyCount() uint16       { return s.buyCount }
func (s *Stats) SellCount() uint16      { return s.sellCount }
func (s *Stats) OrderCount() uint16     { return s.orderCount }
func (s *Stats) MatchRate() uint16      { return s.matchCount }
func (s *Stats) WindowTicks() uint16    { return s.windowTicks }
func (s *Stats) TimeSinceMatch() uint16 { return s.timeSinceMatch }
