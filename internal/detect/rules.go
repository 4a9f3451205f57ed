package detect

import (
	"nanotrade/internal/alert"
	fpmath "nanotrade/internal/math"
	"nanotrade/internal/stats"
)

// Counter thresholds for the quote-stuffing rule. Orders must outnumber
// the decayed match-rate baseline by stuffingRatio to count as stuffing
// rather than a legitimately busy book.
const (
	stuffingMinOrders    = 50
	stuffingMinPerSide   = 20
	stuffingMinMatches   = 6
	stuffingRatio        = 8
	stuffingMinWindowAge = 128

	imbalanceRatio    = 3
	imbalanceMinCount = 8

	surgeRatio = 3
)

// Evaluate runs all rule detectors against the current statistics and
// returns the fused rule alert. The bitmap carries every detector that
// fired; the headline priority/type belong to the highest code that fired.
// All detectors are gated until both rolling windows are full.
func Evaluate(s *stats.Stats, th Thresholds) alert.Record {
	if s.Warmup() {
		return alert.Record{}
	}

	var bitmap uint8

	price := s.LastPrice()
	avg := s.PriceAvg()

	// FLASH_CRASH: one-sided, only a fall below the average counts.
	if avg > price && avg-price > th.Flash {
		bitmap |= 1 << alert.TypeFlashCrash
	}

	// PRICE_SPIKE: deviation beyond both the static threshold and 4x MAD,
	// so a volatile regime raises the bar on its own.
	dev := fpmath.AbsDiffU16(price, avg)
	if dev > th.Spike && uint32(dev) > 4*uint32(s.MAD()) {
		bitmap |= 1 << alert.TypePriceSpike
	}

	if vol, volAvg := s.LastVolume(), s.VolumeAvg(); uint32(vol) > surgeRatio*uint32(volAvg) && volAvg > th.VolFloor {
		bitmap |= 1 << alert.TypeVolumeSurge
	}

	buys, sells := s.BuyCount(), s.SellCount()
	dominant, other := buys, sells
	if sells > buys {
		dominant, other = sells, buys
	}
	if uint32(dominant) > imbalanceRatio*uint32(other) && dominant >= imbalanceMinCount {
		bitmap |= 1 << alert.TypeOrderImbalance
	}

	if orders, matches := s.OrderCount(), s.MatchRate(); orders > stuffingMinOrders &&
		buys > stuffingMinPerSide && sells > stuffingMinPerSide &&
		matches > stuffingMinMatches &&
		uint32(orders) > stuffingRatio*uint32(matches) &&
		s.WindowTicks() >= stuffingMinWindowAge {
		bitmap |= 1 << alert.TypeQuoteStuffing
	}

	// TRADE_VELOCITY: two consecutive moves in the same direction, each
	// clearing the spike threshold on its own.
	last, prev := s.LastDelta(), s.PrevDelta()
	if sameSign(last, prev) && absI32(last) > int32(th.Spike) && absI32(prev) > int32(th.Spike) {
		bitmap |= 1 << alert.TypeTradeVelocity
	}

	// VOL_DRY and SPREAD_WIDENING need cancel and depth signals this feed
	// does not carry; their bits stay permanently clear.

	if bitmap == 0 {
		return alert.Record{}
	}
	winner := highestSet(bitmap)
	return alert.Record{Any: true, Priority: winner, Type: winner, Bitmap: bitmap}
}

func sameSign(a, b int32) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func absI32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func highestSet(bitmap uint8) uint8 {
	for i := 7; i >= 0; i-- {
		if bitmap&(1<<uint(i)) != 0 {
			return uint8(i)
		}
	}
	return 0
}
