// Package breaker is the risk-mitigation state machine. A single
// anomaly trigger latches one intervention, runs it to completion on a
// countdown, and self-heals back to Normal without operator action.
package breaker

import (
	"github.com/google/uuid"

	"nanotrade/internal/alert"
	"nanotrade/internal/book"
)

type Mode uint8

const (
	ModeNormal Mode = iota
	ModeThrottle
	ModeWiden
	ModePause
)

var modeNames = [...]string{"NORMAL", "THROTTLE", "WIDEN", "PAUSE"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "UNKNOWN"
}

// WidenGuard is the spread guard applied in Widen mode, in price ticks.
const WidenGuard = 2

// Trigger is one candidate intervention for this tick. Source records
// which path raised it for the audit trail.
type Trigger struct {
	Active     bool
	Class      alert.Class
	Confidence uint8
	Source     string
}

const (
	SourceRule    = "rule"
	SourceML      = "ml"
	SourceCascade = "cascade"
)

// Intervention is the audit record emitted when a trigger is accepted.
type Intervention struct {
	ID         uuid.UUID
	Tick       uint64
	Mode       Mode
	Class      alert.Class
	Confidence uint8
	Duration   uint16
	Source     string
}

// Controller holds the breaker state. Triggers are accepted only while
// the mode is Normal; an active intervention can be neither extended nor
// cancelled, it always counts down to completion.
type Controller struct {
	mode      Mode
	countdown uint16

	throttleN     uint16 // admit one order per throttleN ticks
	throttlePhase uint16
}

func New() *Controller {
	return &Controller{}
}

func (c *Controller) Mode() Mode        { return c.mode }
func (c *Controller) Active() bool      { return c.mode != ModeNormal }
func (c *Controller) Countdown() uint16 { return c.countdown }

// Step advances the breaker one tick and returns the policy the order
// book must apply on the next tick, plus an audit record when a trigger
// was accepted this tick. The countdown expires before the trigger is
// considered, so a fresh anomaly on the expiry tick is not lost.
func (c *Controller) Step(tick uint64, trig Trigger) (book.Policy, *Intervention) {
	if c.mode != ModeNormal {
		c.countdown--
		c.throttlePhase++
		if c.countdown == 0 {
			c.mode = ModeNormal
			c.throttlePhase = 0
		}
	}

	var iv *Intervention
	if c.mode == ModeNormal && trig.Active {
		iv = c.accept(tick, trig)
	}

	return c.policy(), iv
}

func (c *Controller) accept(tick uint64, trig Trigger) *Intervention {
	var mode Mode
	switch trig.Class {
	case alert.ClassFlashCrash:
		mode = ModePause
	case alert.ClassQuoteStuffing:
		mode = ModeThrottle
	case alert.ClassOrderImbalance:
		mode = ModeWiden
	default:
		return nil // spikes and surges alarm but do not intervene
	}

	duration := 2 * uint16(trig.Confidence)
	if duration == 0 {
		return nil
	}

	c.mode = mode
	c.countdown = duration
	c.throttleN = 1 + uint16(trig.Confidence)/32
	c.throttlePhase = 0

	return &Intervention{
		ID:         uuid.New(),
		Tick:       tick,
		Mode:       mode,
		Class:      trig.Class,
		Confidence: trig.Confidence,
		Duration:   duration,
		Source:     trig.Source,
	}
}

func (c *Controller) policy() book.Policy {
	switch c.mode {
	case ModePause:
		return book.Policy{AllowOrder: false, AllowMatch: false}
	case ModeThrottle:
		return book.Policy{
			AllowOrder: c.throttlePhase%c.throttleN == 0,
			AllowMatch: true,
		}
	case ModeWiden:
		return book.Policy{AllowOrder: true, AllowMatch: true, SpreadGuard: WidenGuard}
	default:
		return book.OpenPolicy()
	}
}
