package ingestion

import (
	"fmt"
)

// TickSequencer enforces one-event-per-tick delivery ahead of the core.
// Stale redeliveries (JetStream at-least-once) are dropped; gaps are a
// producer contract violation and surface as errors.
// Not thread-safe: only accessed from the single ingest loop.
type TickSequencer struct {
	expected uint64
	stale    uint64
	gaps     uint64
}

// ErrStaleTick marks a redelivered tick that was already processed.
var ErrStaleTick = fmt.Errorf("stale tick")

func NewTickSequencer() *TickSequencer {
	return &TickSequencer{expected: 1}
}

// Validate checks a tick number against the expected next tick and
// advances on success.
func (s *TickSequencer) Validate(tick uint64) error {
	switch {
	case tick == s.expected:
		s.expected++
		return nil
	case tick < s.expected:
		s.stale++
		return fmt.Errorf("%w: expected=%d got=%d", ErrStaleTick, s.expected, tick)
	default:
		s.gaps++
		return fmt.Errorf("tick gap: expected=%d got=%d", s.expected, tick)
	}
}

// SetExpected initializes the next expected tick (used during recovery).
func (s *TickSequencer) SetExpected(tick uint64) {
	s.expected = tick
}

func (s *TickSequencer) Expected() uint64 { return s.expected }
func (s *TickSequencer) Stale() uint64    { return s.stale }
func (s *TickSequencer) Gaps() uint64     { return s.gaps }
