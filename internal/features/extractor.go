// Package features snapshots the statistics and book state into the
// fixed 16-element vector the classifier was trained on.
package features

import (
	"nanotrade/internal/book"
	fpmath "nanotrade/internal/math"
	"nanotrade/internal/stats"
)

// Vector is one classifier input. Signed quantities are clipped to ±127
// and shifted by +128 so every element fits in a byte.
type Vector [16]uint8

// SnapshotInterval is the tick spacing between feature snapshots.
const SnapshotInterval = 256

// Fixed fill-ins for signals this feed does not carry. Cancel counts and
// order lifespans are not observable, so both are pinned to the values
// the classifier saw as the normal-regime mean, keeping them neutral.
const (
	placeholderCancelRate = 10
	placeholderLifespan   = 200

	reservedValue = 128
)

// Extractor emits a feature vector every SnapshotInterval ticks. The
// long-horizon price delta is measured against the price captured at the
// previous snapshot.
type Extractor struct {
	ticks         uint16
	snapshotPrice uint16
}

func New() *Extractor {
	return &Extractor{}
}

// Step advances one tick. The boolean is a one-tick pulse that is true
// only on the tick a fresh vector is produced.
func (x *Extractor) Step(s *stats.Stats, b *book.Book) (Vector, bool) {
	x.ticks++
	if x.ticks < SnapshotInterval {
		return Vector{}, false
	}
	x.ticks = 0

	price := s.LastPrice()

	longDelta := int32(0)
	if x.snapshotPrice != 0 {
		longDelta = int32(price) - int32(x.snapshotPrice)
	}
	x.snapshotPrice = price

	var v Vector
	v[0] = fpmath.ClampI8Biased(s.LastDelta())
	v[1] = fpmath.ClampI8Biased(int32(price) - int32(s.PriceAvg()))
	v[2] = fpmath.ClampI8Biased(longDelta)
	v[3] = volumeRatio(s)
	v[4] = spreadPct(b)
	v[5] = flowImbalance(s)
	v[6] = fpmath.ClampU8(4 * int32(s.MAD()))
	v[7] = fpmath.ClampU8(int32(s.OrderCount()))
	v[8] = placeholderCancelRate
	v[9] = depth(b.BidCount())
	v[10] = depth(b.AskCount())
	v[11] = fpmath.ClampU8(int32(s.TimeSinceMatch()))
	v[12] = placeholderLifespan
	v[13] = fpmath.ClampU8(int32(s.MatchRate()))
	v[14] = fpmath.ClampI8Biased(s.LastDelta() - s.PrevDelta())
	v[15] = reservedValue
	return v, true
}

// volumeRatio is current/average scaled so a 1x ratio lands on 64.
func volumeRatio(s *stats.Stats) uint8 {
	avg := s.VolumeAvg()
	if avg == 0 {
		return 0
	}
	return fpmath.ClampU8(int32(uint32(s.LastVolume()) * 64 / uint32(avg)))
}

// spreadPct is (ask-bid)/mid scaled by 128. An empty or one-sided book
// has no spread to report.
func spreadPct(b *book.Book) uint8 {
	bid, haveBid := b.BestBid()
	ask, haveAsk := b.BestAsk()
	if !haveBid || !haveAsk || ask <= bid {
		return 0
	}
	mid := (int32(ask) + int32(bid)) / 2
	if mid == 0 {
		return 0
	}
	return fpmath.ClampU8((int32(ask) - int32(bid)) * 128 / mid)
}

// flowImbalance is (buys-sells)/(buys+sells) scaled by 128 and biased so
// a balanced book reads 128.
func flowImbalance(s *stats.Stats) uint8 {
	buys, sells := int32(s.BuyCount()), int32(s.SellCount())
	total := buys + sells
	if total == 0 {
		return 128
	}
	return fpmath.ClampI8Biased((buys - sells) * 128 / total)
}

// depth maps occupied book slots onto the trained 0..255 scale.
func depth(n int) uint8 {
	return fpmath.ClampU8(int32(n) * 64)
}
