package book

import (
	"nanotrade/internal/event"
)

// Capacity per side. A full side silently drops new orders.
const SideCapacity = 4

// Entry is one resting order slot.
type Entry struct {
	Price    uint8 // 7-bit price
	Occupied bool
}

// Policy is the circuit breaker's gate over book activity, sampled from
// the previous tick's controller output.
type Policy struct {
	AllowOrder  bool
	AllowMatch  bool
	SpreadGuard uint8 // nonzero only in Widen mode
}

// OpenPolicy admits everything (Normal mode).
func OpenPolicy() Policy {
	return Policy{AllowOrder: true, AllowMatch: true}
}

// MatchResult is emitted for exactly one tick when a crossing executes.
// OrderAccepted and DropReason report the fate of an order event on this
// tick; both stay zero on non-order ticks.
type MatchResult struct {
	Valid bool
	Price uint8 // maker wins: trades print at the resting ask

	OrderAccepted bool
	DropReason    string // "gated" or "book_full", empty when no drop
}

// Book holds at most 4 bids and 4 asks with first-free slot reuse.
// The arrays are owned exclusively by the book and mutated only under
// the current policy gate.
type Book struct {
	bids [SideCapacity]Entry
	asks [SideCapacity]Entry
}

func New() *Book {
	return &Book{}
}

// Step processes one tick. When AllowMatch is false the book is frozen:
// no insertion, no matching, match_valid stays false. At most one match
// executes per tick; matched slots are free by the next tick's read.
func (b *Book) Step(ev event.MarketEvent, pol Policy) MatchResult {
	isOrder := ev.Kind == event.KindBuy || ev.Kind == event.KindSell

	if !pol.AllowMatch {
		if isOrder {
			return MatchResult{DropReason: "gated"}
		}
		return MatchResult{}
	}

	var res MatchResult
	if isOrder {
		if !pol.AllowOrder {
			res.DropReason = "gated"
		} else {
			side := b.bids[:]
			if ev.Kind == event.KindSell {
				side = b.asks[:]
			}
			if b.insert(side, uint8(ev.Value&0x7F)) {
				res.OrderAccepted = true
			} else {
				res.DropReason = "book_full"
			}
		}
	}

	bidIdx, bestBid := b.bestBid()
	askIdx, bestAsk := b.bestAsk()
	if bidIdx < 0 || askIdx < 0 {
		return res
	}

	if uint16(bestBid) >= uint16(bestAsk)+uint16(pol.SpreadGuard) {
		b.bids[bidIdx].Occupied = false
		b.asks[askIdx].Occupied = false
		res.Valid = true
		res.Price = bestAsk
	}

	return res
}

// insert places a price into the first free slot; a full side drops the
// order silently.
func (b *Book) insert(side []Entry, price uint8) bool {
	for i := range side {
		if !side[i].Occupied {
			side[i] = Entry{Price: price, Occupied: true}
			return true
		}
	}
	return false
}

// bestBid returns the index and price of the highest occupied bid, or -1.
func (b *Book) bestBid() (int, uint8) {
	idx, best := -1, uint8(0)
	for i := range b.bids {
		if b.bids[i].Occupied && (idx < 0 || b.bids[i].Price > best) {
			idx, best = i, b.bids[i].Price
		}
	}
	return idx, best
}

// bestAsk returns the index and price of the lowest occupied ask, or -1.
func (b *Book) bestAsk() (int, uint8) {
	idx, best := -1, uint8(0)
	for i := range b.asks {
		if b.asks[i].Occupied && (idx < 0 || b.asks[i].Price < best) {
			idx, best = i, b.asks[i].Price
		}
	}
	return idx, best
}

// BidCount returns the number of occupied bid slots.
func (b *Book) BidCount() int {
	return countOccupied(b.bids[:])
}

// AskCount returns the number of occupied ask slots.
func (b *Book) AskCount() int {
	return countOccupied(b.asks[:])
}

// BestBid returns the highest occupied bid price, ok=false if empty.
func (b *Book) BestBid() (uint8, bool) {
	idx, best := b.bestBid()
	return best, idx >= 0
}

// BestAsk returns the lowest occupied ask price, ok=false if empty.
func (b *Book) BestAsk() (uint8, bool) {
	idx, best := b.bestAsk()
	return best, idx >= 0
}

func countOccupied(side []Entry) int {
	n := 0
	for i := range side {
		if side[i].Occupied {
			n++
		}
	}
	return n
}
